// Package calendar reads participants' busy intervals from a free/busy API.
package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/example/meeting-scheduler/internal/domain/meeting"
)

var ErrNoToken = errors.New("no calendar credentials for participant")

// TokenSource yields the bearer token for one participant's calendar.
type TokenSource interface {
	Token(ctx context.Context, email string) (string, error)
}

type Client struct {
	hc     *http.Client
	base   string
	tokens TokenSource
}

func New(baseURL string, tokens TokenSource, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{hc: hc, base: strings.TrimRight(baseURL, "/"), tokens: tokens}
}

type freeBusyRequest struct {
	TimeMin string         `json:"timeMin"`
	TimeMax string         `json:"timeMax"`
	Items   []freeBusyItem `json:"items"`
}

type freeBusyItem struct {
	ID string `json:"id"`
}

type freeBusyResponse struct {
	Calendars map[string]struct {
		Busy []struct {
			Start string `json:"start"`
			End   string `json:"end"`
		} `json:"busy"`
		Errors []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"calendars"`
}

func (c *Client) BusyIntervals(ctx context.Context, p meeting.ParticipantRef, start, end time.Time) ([]meeting.BusyInterval, error) {
	email := p.Key()
	tok, err := c.tokens.Token(ctx, email)
	if err != nil {
		return nil, err
	}
	if tok == "" {
		return nil, ErrNoToken
	}

	b, err := json.Marshal(freeBusyRequest{
		TimeMin: start.UTC().Format(time.RFC3339),
		TimeMax: end.UTC().Format(time.RFC3339),
		Items:   []freeBusyItem{{ID: email}},
	})
	if err != nil {
		return nil, err
	}
	status, body, err := c.do(ctx, http.MethodPost, c.base+"/freeBusy", tok, b)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return nil, fmt.Errorf("calendar %s: %w", email, meeting.ErrUnauthorized)
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("calendar freeBusy http %d", status)
	}

	var parsed freeBusyResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("calendar parse freeBusy: %w", err)
	}
	cal, ok := parsed.Calendars[email]
	if !ok {
		return nil, fmt.Errorf("calendar %s missing from response", email)
	}
	if len(cal.Errors) > 0 {
		return nil, fmt.Errorf("calendar %s: %s", email, cal.Errors[0].Reason)
	}

	out := make([]meeting.BusyInterval, 0, len(cal.Busy))
	for _, b := range cal.Busy {
		s, err := time.Parse(time.RFC3339, b.Start)
		if err != nil {
			return nil, fmt.Errorf("calendar %s: busy start: %w", email, err)
		}
		e, err := time.Parse(time.RFC3339, b.End)
		if err != nil {
			return nil, fmt.Errorf("calendar %s: busy end: %w", email, err)
		}
		out = append(out, meeting.BusyInterval{Start: s, End: e})
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, rawURL, token string, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("content-type", "application/json")
	req.Header.Set("accept", "application/json")
	req.Header.Set("authorization", "Bearer "+token)

	res, err := c.hc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()
	b, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return res.StatusCode, nil, err
	}
	return res.StatusCode, b, nil
}
