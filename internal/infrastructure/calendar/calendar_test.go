package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/meeting-scheduler/internal/domain/meeting"
)

type staticTokens map[string]string

func (s staticTokens) Token(ctx context.Context, email string) (string, error) {
	return s[email], nil
}

var (
	windowStart = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	windowEnd   = windowStart.Add(8 * time.Hour)
)

func TestBusyIntervals(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/freeBusy", r.URL.Path)
		assert.Equal(t, "Bearer tok-jane", r.Header.Get("authorization"))
		var req freeBusyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "2026-03-02T09:00:00Z", req.TimeMin)
		assert.Equal(t, []freeBusyItem{{ID: "jane@x.com"}}, req.Items)
		_, _ = w.Write([]byte(`{"calendars":{"jane@x.com":{"busy":[{"start":"2026-03-02T10:00:00Z","end":"2026-03-02T10:30:00Z"}]}}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, staticTokens{"jane@x.com": "tok-jane"}, nil)
	got, err := c.BusyIntervals(context.Background(), meeting.ParticipantRef{Email: "Jane@x.com"}, windowStart, windowEnd)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, windowStart.Add(time.Hour), got[0].Start)
	assert.Equal(t, windowStart.Add(90*time.Minute), got[0].End)
}

func TestBusyIntervalsMissingToken(t *testing.T) {
	c := New("http://unused", staticTokens{}, nil)
	_, err := c.BusyIntervals(context.Background(), meeting.ParticipantRef{Email: "bob@x.com"}, windowStart, windowEnd)
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestBusyIntervalsFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{"unauthorized", http.StatusUnauthorized, `{}`, func(t *testing.T, err error) {
			assert.True(t, errors.Is(err, meeting.ErrUnauthorized))
		}},
		{"server error", http.StatusInternalServerError, `{}`, func(t *testing.T, err error) {
			assert.Contains(t, err.Error(), "http 500")
		}},
		{"calendar error", http.StatusOK, `{"calendars":{"jane@x.com":{"errors":[{"reason":"notFound"}]}}}`, func(t *testing.T, err error) {
			assert.Contains(t, err.Error(), "notFound")
		}},
		{"bad time", http.StatusOK, `{"calendars":{"jane@x.com":{"busy":[{"start":"soon","end":"later"}]}}}`, func(t *testing.T, err error) {
			assert.Contains(t, err.Error(), "busy start")
		}},
		{"missing calendar", http.StatusOK, `{"calendars":{}}`, func(t *testing.T, err error) {
			assert.Contains(t, err.Error(), "missing")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()
			c := New(srv.URL, staticTokens{"jane@x.com": "t"}, nil)
			_, err := c.BusyIntervals(context.Background(), meeting.ParticipantRef{Email: "jane@x.com"}, windowStart, windowEnd)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}
