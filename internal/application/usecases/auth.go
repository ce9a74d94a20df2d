package usecases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/meeting-scheduler/internal/db"
	"github.com/example/meeting-scheduler/internal/domain/meeting"
	"github.com/example/meeting-scheduler/internal/domain/user"
)

type UserStore interface {
	Create(ctx context.Context, u user.User) error
	GetByUsername(ctx context.Context, username string) (user.User, error)
}

type AuthService struct {
	Users UserStore
}

// VerifyPassword never distinguishes an unknown user from a wrong password.
func (a AuthService) VerifyPassword(ctx context.Context, username, password string) (user.User, error) {
	u, err := a.Users.GetByUsername(ctx, username)
	if err != nil {
		if db.IsNotFound(err) {
			return user.User{}, fmt.Errorf("invalid credentials: %w", meeting.ErrUnauthorized)
		}
		return user.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return user.User{}, fmt.Errorf("invalid credentials: %w", meeting.ErrUnauthorized)
	}
	return u, nil
}

func (a AuthService) Register(ctx context.Context, username, email, password string) (user.User, error) {
	u, err := NewUser(username, email, password)
	if err != nil {
		return user.User{}, err
	}
	if err := a.Users.Create(ctx, u); err != nil {
		return user.User{}, err
	}
	return u, nil
}

func HashPassword(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
}

func NewUser(username, email, password string) (user.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return user.User{}, meeting.InputError("user", "username and password are required")
	}
	if !strings.Contains(email, "@") {
		return user.User{}, meeting.InputError("user", "a mailbox address is required")
	}
	h, err := HashPassword(password)
	if err != nil {
		return user.User{}, err
	}
	return user.User{
		ID:           "u_" + uuid.NewString(),
		Username:     username,
		Email:        meeting.NormalizeEmail(email),
		PasswordHash: h,
		CreatedAt:    time.Now().UTC(),
	}, nil
}
