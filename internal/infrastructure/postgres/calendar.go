package postgres

import (
	"context"
	"time"

	"github.com/example/meeting-scheduler/internal/db"
	"github.com/example/meeting-scheduler/internal/domain/meeting"
)

// CalendarStore reads busy intervals synced into busy_intervals.
type CalendarStore struct{ q db.Querier }

func NewCalendarStore(q db.Querier) *CalendarStore { return &CalendarStore{q: q} }

func (s *CalendarStore) BusyIntervals(ctx context.Context, p meeting.ParticipantRef, start, end time.Time) ([]meeting.BusyInterval, error) {
	rows, err := s.q.Query(ctx, `
		SELECT starts_at, ends_at FROM busy_intervals
		WHERE email=$1 AND starts_at < $3 AND ends_at > $2
		ORDER BY starts_at
	`, p.Key(), start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []meeting.BusyInterval{}
	for rows.Next() {
		var b meeting.BusyInterval
		if err := rows.Scan(&b.Start, &b.End); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *CalendarStore) AddBusy(ctx context.Context, email string, b meeting.BusyInterval) error {
	return s.q.Exec(ctx,
		`INSERT INTO busy_intervals (email, starts_at, ends_at) VALUES ($1,$2,$3)`,
		meeting.NormalizeEmail(email), b.Start.UTC(), b.End.UTC(),
	)
}
