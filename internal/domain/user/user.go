package user

import "time"

// User is an organizer account. Email is the user's own mailbox address and
// is excluded from contact resolution.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}
