// Package http exposes the membership engine over HTTP: the Telegram webhook,
// a validated generic event endpoint and read-only admin views.
package http

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/staffgate/internal/logging"
	"github.com/aretw0/staffgate/pkg/adapters/telegram"
	"github.com/aretw0/staffgate/pkg/domain"
	"github.com/aretw0/staffgate/pkg/persistence/middleware"
	"github.com/aretw0/staffgate/pkg/ports"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// SecretHeader carries the webhook secret registered with setWebhook.
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// ErrUnauthorized is returned for a missing or wrong credential.
var ErrUnauthorized = errors.New("unauthorized")

// StaffLister returns the member list shown to the superuser.
type StaffLister interface {
	Staff(ctx context.Context) ([]domain.StaffRecord, error)
}

// CallbackAnswerer acknowledges button presses.
type CallbackAnswerer interface {
	AnswerCallback(ctx context.Context, callbackID string) error
}

// Server holds the collaborators behind the routes.
type Server struct {
	events        ports.EventHandler
	staff         StaffLister
	conversations ports.StateStore
	answerer      CallbackAnswerer
	metrics       http.Handler
	secret        string
	apiToken      string
	logger        *slog.Logger
	doc           *openapi3.T
}

// Option configures a Server.
type Option func(*Server)

// WithStaff enables GET /v1/staff.
func WithStaff(s StaffLister) Option {
	return func(srv *Server) { srv.staff = s }
}

// WithConversations enables GET /v1/conversations/{identity}. The store is
// read through the PII middleware, so contact data never leaves unmasked.
func WithConversations(store ports.StateStore) Option {
	return func(srv *Server) {
		if store != nil {
			srv.conversations = middleware.Chain(store, middleware.NewPIIMiddleware(middleware.DefaultPIIPatterns))
		}
	}
}

// WithCallbackAnswerer acknowledges callback queries received on the webhook.
func WithCallbackAnswerer(a CallbackAnswerer) Option {
	return func(srv *Server) { srv.answerer = a }
}

// WithWebhookSecret mounts POST /telegram/webhook. Every call must carry
// secret in SecretHeader; without a secret the route is not mounted.
func WithWebhookSecret(secret string) Option {
	return func(srv *Server) { srv.secret = secret }
}

// WithAPIToken mounts the /v1 routes behind "Authorization: Bearer token".
// Without a token they are not mounted.
func WithAPIToken(token string) Option {
	return func(srv *Server) { srv.apiToken = token }
}

// WithMetrics mounts h on /metrics.
func WithMetrics(h http.Handler) Option {
	return func(srv *Server) { srv.metrics = h }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(srv *Server) {
		if logger != nil {
			srv.logger = logger
		}
	}
}

// NewHandler builds the router.
func NewHandler(events ports.EventHandler, opts ...Option) (http.Handler, error) {
	if events == nil {
		return nil, errors.New("http: event handler is required")
	}
	doc, err := LoadSpec()
	if err != nil {
		return nil, err
	}
	s := &Server{events: events, logger: logging.NewNop(), doc: doc}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", s.health)
	r.Get("/openapi.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(specYAML)
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	if s.secret != "" {
		r.With(s.validate).Post("/telegram/webhook", s.webhook)
	} else {
		s.logger.Warn("no webhook secret, /telegram/webhook disabled")
	}

	if s.apiToken == "" {
		s.logger.Warn("no api token, /v1 disabled")
		return r, nil
	}
	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)
		r.With(s.validate).Post("/v1/events", s.postEvent)
		if s.staff != nil {
			r.Get("/v1/staff", s.listStaff)
		}
		if s.conversations != nil {
			r.With(s.validate).Get("/v1/conversations/{identity}", s.getConversation)
		}
	})
	return r, nil
}

// authenticate rejects requests without the bearer token.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := s.checkBearer(r.Header.Get("Authorization")); err != nil {
			s.logger.Warn("api request rejected", "path", r.URL.Path, "remote", r.RemoteAddr)
			w.Header().Set("WWW-Authenticate", `Bearer realm="staffgate"`)
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) checkBearer(header string) error {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), []byte(s.apiToken)) != 1 {
		return ErrUnauthorized
	}
	return nil
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) webhook(w http.ResponseWriter, r *http.Request) {
	got := r.Header.Get(SecretHeader)
	if subtle.ConstantTimeCompare([]byte(got), []byte(s.secret)) != 1 {
		s.logger.Warn("webhook secret mismatch", "remote", r.RemoteAddr)
		writeError(w, http.StatusUnauthorized, "invalid secret token")
		return
	}

	var u telegram.Update
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		writeError(w, http.StatusBadRequest, "invalid update")
		return
	}
	if id := telegram.CallbackID(&u); id != "" && s.answerer != nil {
		if err := s.answerer.AnswerCallback(r.Context(), id); err != nil {
			s.logger.Warn("answer callback failed", "update_id", u.ID, "error", err)
		}
	}

	ev, ok := telegram.EventFromUpdate(&u)
	if !ok {
		s.logger.Debug("ignoring update", "update_id", u.ID)
		w.WriteHeader(http.StatusOK)
		return
	}
	// Telegram redelivers on any non-2xx answer; failures are logged by the
	// engine and acknowledged here.
	if err := s.events.Handle(r.Context(), ev); err != nil {
		s.logger.Debug("update not applied", "update_id", u.ID, "identity", ev.From, "error", err)
	}
	w.WriteHeader(http.StatusOK)
}

type eventResult struct {
	ID    string `json:"id"`
	State string `json:"state"`
}

func (s *Server) postEvent(w http.ResponseWriter, r *http.Request) {
	var ev domain.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid event")
		return
	}
	if ev.ID == "" {
		ev.ID = domain.NewEventID()
	}
	if err := s.events.Handle(r.Context(), ev); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	res := eventResult{ID: ev.ID}
	if s.conversations != nil {
		conv, err := s.conversations.Load(r.Context(), ev.From)
		switch {
		case err == nil:
			res.State = string(conv.State)
		case !errors.Is(err, domain.ErrConversationNotFound):
			s.logger.Warn("load state after event failed", "identity", ev.From, "error", err)
		}
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) listStaff(w http.ResponseWriter, r *http.Request) {
	staff, err := s.staff.Staff(r.Context())
	if err != nil {
		s.logger.Error("list staff failed", "error", err)
		writeError(w, http.StatusInternalServerError, "list staff failed")
		return
	}
	writeJSON(w, http.StatusOK, middleware.MaskStaff(staff))
}

func (s *Server) getConversation(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseIdentity(chi.URLParam(r, "identity"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	conv, err := s.conversations.Load(r.Context(), id)
	if errors.Is(err, domain.ErrConversationNotFound) {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	if err != nil {
		s.logger.Error("load conversation failed", "identity", id, "error", err)
		writeError(w, http.StatusInternalServerError, "load conversation failed")
		return
	}
	// The encrypted envelope is useless to readers.
	conv.Sealed = ""
	writeJSON(w, http.StatusOK, conv)
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	var (
		unrecognized *domain.UnrecognizedEventError
		roleErr      *domain.InvalidRoleError
		handoffErr   *domain.HandoffIntegrityError
	)
	switch {
	case errors.Is(err, domain.ErrAccessDenied):
		return http.StatusForbidden
	case errors.As(err, &unrecognized), errors.Is(err, domain.ErrAlreadyFinalized):
		return http.StatusConflict
	case errors.As(err, &roleErr), errors.As(err, &handoffErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Run serves h on addr until ctx is done, then shuts down gracefully.
func Run(ctx context.Context, addr string, h http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", addr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown did not complete", "error", err)
			return srv.Close()
		}
		return nil
	}
}
