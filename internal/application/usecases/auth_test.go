package usecases

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/meeting-scheduler/internal/domain/meeting"
	"github.com/example/meeting-scheduler/internal/domain/user"
	"github.com/example/meeting-scheduler/internal/infrastructure/crypto"
	"github.com/example/meeting-scheduler/internal/infrastructure/postgres"
)

type memUsers map[string]user.User

func (m memUsers) Create(ctx context.Context, u user.User) error {
	if _, ok := m[u.Username]; ok {
		return errors.New("duplicate username")
	}
	m[u.Username] = u
	return nil
}

func (m memUsers) GetByUsername(ctx context.Context, username string) (user.User, error) {
	u, ok := m[username]
	if !ok {
		return user.User{}, meeting.ErrNotFound
	}
	return u, nil
}

func TestAuthService(t *testing.T) {
	users := memUsers{}
	svc := AuthService{Users: users}

	u, err := svc.Register(context.Background(), "alice", " Alice@Example.com ", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.NotEqual(t, []byte("s3cret"), u.PasswordHash)

	got, err := svc.VerifyPassword(context.Background(), "alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.VerifyPassword(context.Background(), "alice", "wrong")
	assert.ErrorIs(t, err, meeting.ErrUnauthorized)

	_, err = svc.VerifyPassword(context.Background(), "mallory", "s3cret")
	assert.ErrorIs(t, err, meeting.ErrUnauthorized)
}

func TestNewUserValidates(t *testing.T) {
	_, err := NewUser("", "a@b.com", "pw")
	assert.ErrorIs(t, err, meeting.ErrInput)
	_, err = NewUser("bob", "not-an-address", "pw")
	assert.ErrorIs(t, err, meeting.ErrInput)
}

type memCreds map[string]postgres.SealedCredential

func (m memCreds) Get(ctx context.Context, email string) (postgres.SealedCredential, error) {
	c, ok := m[email]
	if !ok {
		return postgres.SealedCredential{}, meeting.ErrNotFound
	}
	return c, nil
}

func (m memCreds) Put(ctx context.Context, c postgres.SealedCredential) error {
	m[c.Email] = c
	return nil
}

func TestCredentialsService(t *testing.T) {
	aead, err := crypto.New(bytes.Repeat([]byte{9}, 32))
	require.NoError(t, err)
	store := memCreds{}
	svc := CredentialsService{Store: store, Sealer: aead}

	require.NoError(t, svc.Put(context.Background(), user.CalendarCredentials{Email: "Jane@X.com", Token: "tok"}))
	assert.NotEqual(t, "tok", store["jane@x.com"].SealedToken)

	tok, err := svc.Token(context.Background(), "jane@x.com")
	require.NoError(t, err)
	assert.Equal(t, "tok", tok)

	tok, err = svc.Token(context.Background(), "nobody@x.com")
	require.NoError(t, err)
	assert.Empty(t, tok)

	err = svc.Put(context.Background(), user.CalendarCredentials{Email: "jane@x.com"})
	assert.ErrorIs(t, err, meeting.ErrInput)
}

func TestCredentialsServiceWithoutSealer(t *testing.T) {
	svc := CredentialsService{Store: memCreds{}}
	err := svc.Put(context.Background(), user.CalendarCredentials{Email: "a@b.com", Token: "t"})
	assert.ErrorIs(t, err, ErrNoSealer)
}
