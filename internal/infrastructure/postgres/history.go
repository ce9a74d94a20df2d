package postgres

import (
	"context"
	"strings"

	"github.com/example/meeting-scheduler/internal/db"
	"github.com/example/meeting-scheduler/internal/domain/meeting"
)

// HistoryStore serves correspondence history from the messages table.
type HistoryStore struct {
	*UserRepo
	q db.Querier
}

func NewHistoryStore(q db.Querier) *HistoryStore {
	return &HistoryStore{UserRepo: NewUserRepo(q), q: q}
}

func (s *HistoryStore) Search(ctx context.Context, userID string, hq meeting.HistoryQuery, maxResults int) ([]string, error) {
	patterns := likePatterns(hq.Terms)
	if len(patterns) == 0 || maxResults <= 0 {
		return []string{}, nil
	}
	rows, err := s.q.Query(ctx, `
		SELECT id FROM messages
		WHERE user_id=$1
		  AND (from_header ILIKE ANY($2) OR to_header ILIKE ANY($2) OR cc_header ILIKE ANY($2))
		ORDER BY sent_at DESC, id
		LIMIT $3
	`, userID, patterns, maxResults)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *HistoryStore) Message(ctx context.Context, userID, messageID string) (meeting.MessageHeaders, error) {
	var m meeting.MessageHeaders
	err := s.q.QueryRow(ctx, `
		SELECT id, from_header, to_header, cc_header, sent_at
		FROM messages WHERE user_id=$1 AND id=$2
	`, userID, messageID).Scan(&m.ID, &m.From, &m.To, &m.Cc, &m.Date)
	if err != nil {
		return meeting.MessageHeaders{}, db.WrapNotFound(err)
	}
	return m, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePatterns turns search terms into substring ILIKE patterns.
func likePatterns(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		out = append(out, "%"+likeEscaper.Replace(t)+"%")
	}
	return out
}
