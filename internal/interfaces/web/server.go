// Package web serves the JSON API over the scheduling core.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/example/meeting-scheduler/internal/application/usecases"
	"github.com/example/meeting-scheduler/internal/domain/meeting"
	"github.com/example/meeting-scheduler/internal/domain/user"
	"github.com/example/meeting-scheduler/internal/logging"
)

type Authenticator interface {
	VerifyPassword(ctx context.Context, username, password string) (user.User, error)
}

type Planner interface {
	Execute(ctx context.Context, req usecases.PlanRequest) (meeting.MeetingRequest, error)
}

type MeetingReader interface {
	Get(ctx context.Context, userID, id string) (meeting.MeetingRequest, error)
}

// Services are the entry points the API exposes. Ping backs /healthz and may
// be nil.
type Services struct {
	Contacts     usecases.ContactResolver
	Availability usecases.SlotFinder
	Venues       usecases.VenueRanker
	Planner      Planner
	Meetings     MeetingReader
	Ping         func(ctx context.Context) error
}

type Server struct {
	addr     string
	sessions *SessionManager
	auth     Authenticator
	svc      Services
	log      *slog.Logger

	// RequestTimeout bounds each API call.
	RequestTimeout time.Duration
}

func New(addr string, sessions *SessionManager, auth Authenticator, svc Services, log *slog.Logger) *Server {
	return &Server{
		addr:           addr,
		sessions:       sessions,
		auth:           auth,
		svc:            svc,
		log:            logging.OrDiscard(log).With("component", "http"),
		RequestTimeout: 30 * time.Second,
	}
}

func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.recoverPanics, s.logRequests)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.requireAuth)
	api.HandleFunc("/contacts/resolve", s.handleResolveContacts).Methods(http.MethodPost)
	api.HandleFunc("/availability", s.handleAvailability).Methods(http.MethodPost)
	api.HandleFunc("/venues", s.handleVenues).Methods(http.MethodPost)
	api.HandleFunc("/meetings", s.handlePlanMeeting).Methods(http.MethodPost)
	api.HandleFunc("/meetings/{id}", s.handleGetMeeting).Methods(http.MethodGet)
	return r
}

func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("listening", "addr", s.addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info("request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
	})
}

func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				s.log.Error("panic recovered", "method", r.Method, "path", r.URL.Path, "panic", v)
				writeJSON(w, http.StatusInternalServerError, errorBody{Error: meeting.UserMessage(errors.New("panic"))})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type ctxKeyUserID struct{}

func userIDFromCtx(r *http.Request) string {
	if v, ok := r.Context().Value(ctxKeyUserID{}).(string); ok {
		return v
	}
	return ""
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, ok := s.sessions.GetUserID(r)
		if !ok {
			s.writeError(w, r, meeting.ErrUnauthorized)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), s.RequestTimeout)
		defer cancel()
		ctx = context.WithValue(ctx, ctxKeyUserID{}, uid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type errorBody struct {
	Error string        `json:"error"`
	Stage meeting.State `json:"stage,omitempty"`
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, meeting.ErrInput):
		return http.StatusBadRequest
	case errors.Is(err, meeting.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, meeting.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, meeting.ErrTransient):
		return http.StatusServiceUnavailable
	case errors.Is(err, meeting.ErrProvider):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError never exposes err's text; it is logged instead.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	body := errorBody{Error: meeting.UserMessage(err)}
	var se *meeting.StageError
	if errors.As(err, &se) {
		body.Stage = se.Stage
	}
	if code >= 500 {
		s.log.Error("request failed", "path", r.URL.Path, "status", code, "err", err)
	} else {
		s.log.Info("request rejected", "path", r.URL.Path, "status", code, "err", err)
	}
	writeJSON(w, code, body)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return meeting.InputError("decode", "malformed request body: %v", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.svc.Ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := s.svc.Ping(ctx); err != nil {
			s.log.Warn("health check failed", "err", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if strings.HasPrefix(r.Header.Get("content-type"), "application/json") {
		if err := decodeJSON(w, r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
	} else {
		_ = r.ParseForm()
		req.Username, req.Password = r.FormValue("username"), r.FormValue("password")
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	u, err := s.auth.VerifyPassword(ctx, strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.sessions.SetUserID(w, r, u.ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"user_id": u.ID, "username": u.Username})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}
