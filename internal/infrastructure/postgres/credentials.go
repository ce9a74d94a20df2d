package postgres

import (
	"context"
	"time"

	"github.com/example/meeting-scheduler/internal/db"
	"github.com/example/meeting-scheduler/internal/domain/meeting"
)

// SealedCredential is a calendar token as stored: sealed, never plaintext.
type SealedCredential struct {
	Email       string
	SealedToken string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type CredentialRepo struct{ q db.Querier }

func NewCredentialRepo(q db.Querier) *CredentialRepo { return &CredentialRepo{q: q} }

func (r *CredentialRepo) Get(ctx context.Context, email string) (SealedCredential, error) {
	var c SealedCredential
	err := r.q.QueryRow(ctx, `
		SELECT email, sealed_token, created_at, updated_at
		FROM calendar_credentials WHERE email=$1
	`, meeting.NormalizeEmail(email)).Scan(&c.Email, &c.SealedToken, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return SealedCredential{}, db.WrapNotFound(err)
	}
	return c, nil
}

func (r *CredentialRepo) Put(ctx context.Context, c SealedCredential) error {
	return r.q.Exec(ctx, `
		INSERT INTO calendar_credentials (email, sealed_token, created_at, updated_at)
		VALUES ($1,$2,$3,$3)
		ON CONFLICT (email) DO UPDATE SET sealed_token=EXCLUDED.sealed_token, updated_at=EXCLUDED.updated_at
	`, meeting.NormalizeEmail(c.Email), c.SealedToken, time.Now().UTC())
}
