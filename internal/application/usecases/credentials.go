package usecases

import (
	"context"
	"errors"

	"github.com/example/meeting-scheduler/internal/db"
	"github.com/example/meeting-scheduler/internal/domain/meeting"
	"github.com/example/meeting-scheduler/internal/domain/user"
	"github.com/example/meeting-scheduler/internal/infrastructure/postgres"
)

type CredentialStore interface {
	Get(ctx context.Context, email string) (postgres.SealedCredential, error)
	Put(ctx context.Context, c postgres.SealedCredential) error
}

type Sealer interface {
	Seal(plaintext, aad string) (string, error)
	Open(sealed, aad string) (string, error)
}

var ErrNoSealer = errors.New("credential sealing is not configured (set CRED_ENC_KEY)")

// CredentialsService stores calendar tokens sealed and hands them out to
// the free/busy client.
type CredentialsService struct {
	Store  CredentialStore
	Sealer Sealer
}

func (s CredentialsService) Put(ctx context.Context, c user.CalendarCredentials) error {
	if s.Sealer == nil {
		return ErrNoSealer
	}
	c.Email = meeting.NormalizeEmail(c.Email)
	if !c.Valid() {
		return meeting.InputError("credentials", "email and token are required")
	}
	sealed, err := s.Sealer.Seal(c.Token, c.Email)
	if err != nil {
		return err
	}
	return s.Store.Put(ctx, postgres.SealedCredential{Email: c.Email, SealedToken: sealed})
}

// Token returns "" with no error when the participant has no stored token.
func (s CredentialsService) Token(ctx context.Context, email string) (string, error) {
	email = meeting.NormalizeEmail(email)
	c, err := s.Store.Get(ctx, email)
	if err != nil {
		if db.IsNotFound(err) {
			return "", nil
		}
		return "", err
	}
	if s.Sealer == nil {
		return "", ErrNoSealer
	}
	return s.Sealer.Open(c.SealedToken, email)
}
