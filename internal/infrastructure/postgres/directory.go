package postgres

import (
	"context"

	"github.com/example/meeting-scheduler/internal/db"
	"github.com/example/meeting-scheduler/internal/domain/meeting"
)

type DirectoryStore struct{ q db.Querier }

func NewDirectoryStore(q db.Querier) *DirectoryStore { return &DirectoryStore{q: q} }

func (s *DirectoryStore) Lookup(ctx context.Context, email string) (meeting.DirectoryEntry, bool, error) {
	var e meeting.DirectoryEntry
	err := s.q.QueryRow(ctx,
		`SELECT email, display_name FROM directory_entries WHERE email=$1`,
		meeting.NormalizeEmail(email),
	).Scan(&e.Email, &e.DisplayName)
	if err != nil {
		if db.IsNotFound(err) {
			return meeting.DirectoryEntry{}, false, nil
		}
		return meeting.DirectoryEntry{}, false, err
	}
	return e, true, nil
}

func (s *DirectoryStore) Upsert(ctx context.Context, e meeting.DirectoryEntry) error {
	return s.q.Exec(ctx, `
		INSERT INTO directory_entries (email, display_name) VALUES ($1,$2)
		ON CONFLICT (email) DO UPDATE SET display_name=EXCLUDED.display_name
	`, meeting.NormalizeEmail(e.Email), e.DisplayName)
}
