package user

import "time"

// CalendarCredentials authorizes free/busy reads for one participant. Token is
// plaintext in memory and sealed at rest.
type CalendarCredentials struct {
	Email     string
	Token     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c CalendarCredentials) Valid() bool {
	return c.Email != "" && c.Token != ""
}
