// Package notify announces proposed meetings.
package notify

import (
	"context"
	"log/slog"

	"github.com/example/meeting-scheduler/internal/domain/meeting"
	"github.com/example/meeting-scheduler/internal/logging"
)

// LogNotifier writes proposals to the log. Delivery transports plug in behind
// meeting.Notifier.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: logging.OrDiscard(log).With("component", "notify")}
}

func (n *LogNotifier) MeetingProposed(ctx context.Context, m meeting.MeetingRequest) error {
	attendees := make([]string, 0, len(m.Participants))
	for _, p := range m.Participants {
		attendees = append(attendees, p.Email)
	}
	attrs := []any{"request_id", m.ID, "user_id", m.UserID, "attendees", attendees, "slots", len(m.Slots)}
	if len(m.Slots) > 0 {
		attrs = append(attrs, "first_slot", m.Slots[0].Start)
	}
	if len(m.Venues) > 0 {
		attrs = append(attrs, "top_venue", m.Venues[0].Name)
	}
	n.log.InfoContext(ctx, "meeting proposed", attrs...)
	return nil
}
