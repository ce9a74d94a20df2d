// Package contacts turns name fragments into ranked contact identities using
// the user's communication history.
package contacts

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"net/mail"
	"regexp"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example/meeting-scheduler/internal/domain/meeting"
	"github.com/example/meeting-scheduler/internal/domain/similarity"
	"github.com/example/meeting-scheduler/internal/logging"
)

const (
	MinConfidence = 0.7
	MaxResults    = 3

	DefaultMaxMessages = 50
	DefaultCacheTTL    = 5 * time.Minute
	defaultConcurrency = 8
)

// Resolver resolves fragments against communication history. Directory and
// cache are optional.
type Resolver struct {
	history   meeting.HistoryProvider
	directory meeting.DirectoryProvider
	cache     meeting.CacheStore
	log       *slog.Logger

	MaxMessages  int
	CacheTTL     time.Duration
	FetchTimeout time.Duration
	Concurrency  int
}

func NewResolver(history meeting.HistoryProvider, directory meeting.DirectoryProvider, cache meeting.CacheStore, log *slog.Logger) *Resolver {
	return &Resolver{
		history:     history,
		directory:   directory,
		cache:       cache,
		log:         logging.OrDiscard(log).With("component", "contacts"),
		MaxMessages: DefaultMaxMessages,
		CacheTTL:    DefaultCacheTTL,
		Concurrency: defaultConcurrency,
	}
}

type candidate struct {
	name       string
	headerName string
	email      string
	frequency  int
	last       time.Time
	source     meeting.ContactSource
}

// ResolveContacts returns at most MaxResults contacts with confidence of at
// least MinConfidence, best first.
func (r *Resolver) ResolveContacts(ctx context.Context, userID string, fragments []string) ([]meeting.Contact, error) {
	frags := normalizeFragments(fragments)
	if len(frags) == 0 {
		return []meeting.Contact{}, nil
	}

	key := cacheKey(userID, frags)
	if cached, ok := r.cached(ctx, key); ok {
		return cached, nil
	}

	own, err := r.history.OwnAddress(ctx, userID)
	if err != nil {
		return nil, meeting.ProviderError("contacts: own address", err)
	}
	hq := meeting.HistoryQuery{Terms: frags}
	r.log.Debug("searching history", "user_id", userID, "query", hq.String())
	ids, err := r.history.Search(ctx, userID, hq, r.maxMessages())
	if err != nil {
		return nil, meeting.ProviderError("contacts: search history", err)
	}

	headers := r.fetchMessages(ctx, userID, ids)
	if err := ctx.Err(); err != nil {
		return nil, meeting.TransientError("contacts: fetch messages", err)
	}

	cands := aggregate(headers, meeting.NormalizeEmail(own), r.log)
	r.enrich(ctx, cands)
	if err := ctx.Err(); err != nil {
		return nil, meeting.TransientError("contacts: directory", err)
	}

	out := rank(cands, frags)
	r.store(ctx, key, out)
	return out, nil
}

func (r *Resolver) maxMessages() int {
	if r.MaxMessages <= 0 {
		return DefaultMaxMessages
	}
	return r.MaxMessages
}

func (r *Resolver) limit() int {
	if r.Concurrency <= 0 {
		return defaultConcurrency
	}
	return r.Concurrency
}

func (r *Resolver) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.FetchTimeout > 0 {
		return context.WithTimeout(ctx, r.FetchTimeout)
	}
	return context.WithCancel(ctx)
}

// fetchMessages loads headers concurrently. A message that fails is logged
// and left out; order follows ids.
func (r *Resolver) fetchMessages(ctx context.Context, userID string, ids []string) []meeting.MessageHeaders {
	results := make([]*meeting.MessageHeaders, len(ids))
	var g errgroup.Group
	g.SetLimit(r.limit())
	for i, id := range ids {
		g.Go(func() error {
			fctx, cancel := r.withTimeout(ctx)
			defer cancel()
			h, err := r.history.Message(fctx, userID, id)
			if err != nil {
				r.log.Warn("skipping message", "message_id", id, "err", err)
				return nil
			}
			results[i] = &h
			return nil
		})
	}
	_ = g.Wait()

	out := make([]meeting.MessageHeaders, 0, len(results))
	for _, h := range results {
		if h != nil {
			out = append(out, *h)
		}
	}
	return out
}

// enrich replaces names with directory display names where available.
func (r *Resolver) enrich(ctx context.Context, cands []*candidate) {
	if r.directory != nil {
		var g errgroup.Group
		g.SetLimit(r.limit())
		for _, c := range cands {
			g.Go(func() error {
				fctx, cancel := r.withTimeout(ctx)
				defer cancel()
				e, ok, err := r.directory.Lookup(fctx, c.email)
				if err != nil {
					r.log.Warn("directory lookup failed", "email", c.email, "err", err)
					return nil
				}
				if ok && strings.TrimSpace(e.DisplayName) != "" {
					c.name = strings.TrimSpace(e.DisplayName)
					c.source = meeting.SourceDirectory
				}
				return nil
			})
		}
		_ = g.Wait()
	}
	for _, c := range cands {
		if c.source == meeting.SourceDirectory {
			continue
		}
		c.source = meeting.SourceHistory
		c.name = c.headerName
		if c.name == "" {
			c.name = localPart(c.email)
		}
	}
}

var emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

type address struct{ name, email string }

func parseAddresses(header string) ([]address, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, nil
	}
	list, err := mail.ParseAddressList(header)
	if err == nil {
		out := make([]address, 0, len(list))
		for _, a := range list {
			out = append(out, address{name: strings.TrimSpace(a.Name), email: a.Address})
		}
		return out, nil
	}
	// Malformed headers still usually carry bare addresses.
	found := emailPattern.FindAllString(header, -1)
	if len(found) == 0 {
		return nil, err
	}
	out := make([]address, 0, len(found))
	for _, e := range found {
		out = append(out, address{email: e})
	}
	return out, nil
}

// aggregate builds the frequency map keyed by normalized email, excluding own.
// The result is sorted by email.
func aggregate(msgs []meeting.MessageHeaders, own string, log *slog.Logger) []*candidate {
	byEmail := map[string]*candidate{}
	for _, m := range msgs {
		for _, h := range []string{m.From, m.To, m.Cc} {
			addrs, err := parseAddresses(h)
			if err != nil {
				log.Warn("unparseable address header", "message_id", m.ID, "err", err)
				continue
			}
			for _, a := range addrs {
				key := meeting.NormalizeEmail(a.email)
				if key == "" || key == own {
					continue
				}
				c, ok := byEmail[key]
				if !ok {
					c = &candidate{email: key}
					byEmail[key] = c
				}
				c.frequency++
				if c.headerName == "" && a.name != "" && meeting.NormalizeEmail(a.name) != key {
					c.headerName = a.name
				}
				if m.Date.After(c.last) {
					c.last = m.Date
				}
			}
		}
	}
	out := make([]*candidate, 0, len(byEmail))
	for _, c := range byEmail {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].email < out[j].email })
	return out
}

func rank(cands []*candidate, frags []string) []meeting.Contact {
	out := make([]meeting.Contact, 0, len(cands))
	for _, c := range cands {
		best := 0.0
		for _, f := range frags {
			best = math.Max(best, Confidence(f, c.name, c.email))
		}
		if best == 0 {
			continue
		}
		conf := round(math.Min(1, best+FrequencyBoost(c.frequency)))
		if conf < MinConfidence {
			continue
		}
		contact := meeting.Contact{
			Name:       c.name,
			Email:      c.email,
			Confidence: conf,
			Frequency:  c.frequency,
			Source:     c.source,
		}
		if !c.last.IsZero() {
			last := c.last.UTC()
			contact.LastContactAt = &last
		}
		out = append(out, contact)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		return out[i].Email < out[j].Email
	})
	if len(out) > MaxResults {
		out = out[:MaxResults]
	}
	return out
}

// Confidence scores one fragment against a candidate's name and email before
// the frequency boost. Zero means no match.
func Confidence(fragment, name, email string) float64 {
	f := strings.ToLower(strings.TrimSpace(fragment))
	n := strings.ToLower(strings.TrimSpace(name))
	e := strings.ToLower(strings.TrimSpace(email))
	if f == "" {
		return 0
	}
	switch {
	case f == n || f == e:
		return 1.0
	case n != "" && strings.Contains(n, f):
		return 0.9
	case allTokens(f, n, e):
		return 0.85
	}
	s := math.Max(similarity.Score(f, n), similarity.Score(f, e))
	if s > 0.5 {
		return 0.7 + (s-0.5)*0.2
	}
	return 0
}

func FrequencyBoost(frequency int) float64 {
	return math.Min(float64(frequency)/10, 0.10)
}

func allTokens(fragment, name, email string) bool {
	tokens := strings.Fields(fragment)
	if len(tokens) == 0 {
		return false
	}
	for _, t := range tokens {
		if !strings.Contains(name, t) && !strings.Contains(email, t) {
			return false
		}
	}
	return true
}

func round(v float64) float64 { return math.Round(v*1e6) / 1e6 }

func localPart(email string) string {
	if i := strings.IndexByte(email, '@'); i > 0 {
		return email[:i]
	}
	return email
}

// normalizeFragments trims, collapses whitespace and drops case-insensitive
// duplicates, keeping first-seen order.
func normalizeFragments(in []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, f := range in {
		f = strings.Join(strings.Fields(f), " ")
		k := strings.ToLower(f)
		if f == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, f)
	}
	return out
}

func cacheKey(userID string, frags []string) string {
	keys := make([]string, len(frags))
	for i, f := range frags {
		keys[i] = strings.ToLower(f)
	}
	sort.Strings(keys)
	return "contacts:v1:" + userID + ":" + strings.Join(keys, "|")
}

func (r *Resolver) cached(ctx context.Context, key string) ([]meeting.Contact, bool) {
	if r.cache == nil {
		return nil, false
	}
	raw, ok, err := r.cache.Get(ctx, key)
	if err != nil {
		r.log.Warn("cache get failed", "key", key, "err", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var out []meeting.Contact
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		r.log.Warn("discarding corrupt cache entry", "key", key, "err", err)
		return nil, false
	}
	if out == nil {
		out = []meeting.Contact{}
	}
	return out, true
}

func (r *Resolver) store(ctx context.Context, key string, contacts []meeting.Contact) {
	if r.cache == nil {
		return
	}
	b, err := json.Marshal(contacts)
	if err != nil {
		r.log.Warn("cache encode failed", "err", err)
		return
	}
	ttl := r.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if err := r.cache.Set(ctx, key, string(b), ttl); err != nil {
		r.log.Warn("cache set failed", "key", key, "err", err)
	}
}
