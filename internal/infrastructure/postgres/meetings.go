package postgres

import (
	"context"
	"encoding/json"

	"github.com/example/meeting-scheduler/internal/db"
	"github.com/example/meeting-scheduler/internal/domain/meeting"
)

type MeetingRepo struct{ q db.Querier }

func NewMeetingRepo(q db.Querier) *MeetingRepo { return &MeetingRepo{q: q} }

// SaveMeeting is idempotent on the request ID.
func (r *MeetingRepo) SaveMeeting(ctx context.Context, m meeting.MeetingRequest) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return r.q.Exec(ctx, `
		INSERT INTO meeting_requests (id, user_id, state, payload, created_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (id) DO NOTHING
	`, m.ID, m.UserID, string(m.State), payload, m.CreatedAt)
}

// Get returns the meeting only when it belongs to userID.
func (r *MeetingRepo) Get(ctx context.Context, userID, id string) (meeting.MeetingRequest, error) {
	var payload []byte
	err := r.q.QueryRow(ctx,
		`SELECT payload FROM meeting_requests WHERE id=$1 AND user_id=$2`, id, userID,
	).Scan(&payload)
	if err != nil {
		return meeting.MeetingRequest{}, db.WrapNotFound(err)
	}
	var m meeting.MeetingRequest
	if err := json.Unmarshal(payload, &m); err != nil {
		return meeting.MeetingRequest{}, err
	}
	return m, nil
}
