package postgres

import (
	"context"

	"github.com/example/meeting-scheduler/internal/db"
	"github.com/example/meeting-scheduler/internal/domain/meeting"
	"github.com/example/meeting-scheduler/internal/domain/user"
)

type UserRepo struct{ q db.Querier }

func NewUserRepo(q db.Querier) *UserRepo { return &UserRepo{q: q} }

func (r *UserRepo) Create(ctx context.Context, u user.User) error {
	return r.q.Exec(ctx,
		`INSERT INTO users (id, username, email, password_hash, created_at) VALUES ($1,$2,$3,$4,$5)`,
		u.ID, u.Username, meeting.NormalizeEmail(u.Email), u.PasswordHash, u.CreatedAt,
	)
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (user.User, error) {
	return r.get(ctx, `SELECT id, username, email, password_hash, created_at FROM users WHERE username=$1`, username)
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	return r.get(ctx, `SELECT id, username, email, password_hash, created_at FROM users WHERE id=$1`, id)
}

func (r *UserRepo) get(ctx context.Context, sql string, arg string) (user.User, error) {
	var u user.User
	if err := r.q.QueryRow(ctx, sql, arg).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		return user.User{}, db.WrapNotFound(err)
	}
	return u, nil
}

// OwnAddress returns the organizer's mailbox address.
func (r *UserRepo) OwnAddress(ctx context.Context, userID string) (string, error) {
	var email string
	if err := r.q.QueryRow(ctx, `SELECT email FROM users WHERE id=$1`, userID).Scan(&email); err != nil {
		return "", db.WrapNotFound(err)
	}
	return email, nil
}
