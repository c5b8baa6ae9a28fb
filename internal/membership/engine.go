// Package membership runs the two coupled conversation graphs of the
// membership procedure: the applicant asking for a role and the superuser
// reviewing the request.
//
// Every inbound event is handled in isolation. The engine loads the
// sender's conversation, checks the access gate for the sender's graph,
// looks the event up in the transition table of the current state and runs
// the matching handler. Events that match nothing are rejected with
// *domain.UnrecognizedEventError and change nothing.
//
// Only one superuser reviews applications. A second application handed
// off while one is pending replaces the pending one.
package membership

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/staffgate/internal/logging"
	"github.com/aretw0/staffgate/internal/metrics"
	"github.com/aretw0/staffgate/pkg/access"
	"github.com/aretw0/staffgate/pkg/domain"
	"github.com/aretw0/staffgate/pkg/ports"
	"github.com/aretw0/staffgate/pkg/rollback"
	"github.com/aretw0/staffgate/pkg/session"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/aretw0/staffgate/internal/membership"

// Event results used as metric labels.
const (
	resultOK           = "ok"
	resultDenied       = "denied"
	resultUnrecognized = "unrecognized"
	resultError        = "error"
)

// Deps are the collaborators the engine cannot run without.
type Deps struct {
	Sessions  *session.Manager
	Directory ports.Directory
	Documents ports.DocumentLister
	Messenger ports.Messenger
	// Superuser is the single reviewing authority.
	Superuser domain.Identity
}

// Engine implements ports.EventHandler.
type Engine struct {
	sessions  *session.Manager
	rollback  *rollback.Codec
	gate      *access.Gate
	directory ports.Directory
	documents ports.DocumentLister
	messenger ports.Messenger
	superuser domain.Identity
	finalizer *Finalizer

	catalog    *Catalog
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	now        func() time.Time
	onFinalize func(Outcome)

	table map[domain.State][]transition
}

var _ ports.EventHandler = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics sets the metric collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

// WithCatalog sets the message catalog.
func WithCatalog(c *Catalog) Option {
	return func(e *Engine) {
		if c != nil {
			e.catalog = c
		}
	}
}

// WithClock sets the time source used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithFinalizeHook registers a callback run after every finalization,
// including the duplicate and the partially notified ones.
func WithFinalizeHook(fn func(Outcome)) Option {
	return func(e *Engine) {
		e.onFinalize = fn
	}
}

// New builds an engine.
func New(deps Deps, opts ...Option) (*Engine, error) {
	switch {
	case deps.Sessions == nil:
		return nil, errors.New("membership: sessions are required")
	case deps.Directory == nil:
		return nil, errors.New("membership: directory is required")
	case deps.Documents == nil:
		return nil, errors.New("membership: document lister is required")
	case deps.Messenger == nil:
		return nil, errors.New("membership: messenger is required")
	case deps.Superuser.IsZero():
		return nil, errors.New("membership: superuser identity is required")
	}

	e := &Engine{
		sessions:  deps.Sessions,
		rollback:  rollback.NewCodec(deps.Sessions),
		directory: deps.Directory,
		documents: deps.Documents,
		messenger: deps.Messenger,
		superuser: deps.Superuser,
		catalog:   DefaultCatalog(),
		logger:    logging.NewNop(),
		tracer:    otel.Tracer(tracerName),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.gate = access.New(deps.Directory, access.WithLogger(e.logger))
	e.finalizer = &Finalizer{
		sessions:  e.sessions,
		directory: e.directory,
		messenger: e.messenger,
		catalog:   e.catalog,
		logger:    e.logger,
		metrics:   e.metrics,
		now:       e.now,
	}
	e.table = e.transitions()
	return e, nil
}

// Finalizer returns the outcome finalizer used by the reviewer workflow.
func (e *Engine) Finalizer() *Finalizer {
	return e.finalizer
}

// Gate returns the access gate.
func (e *Engine) Gate() *access.Gate {
	return e.gate
}

// Catalog returns the message catalog.
func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

// turn is one event together with the conversation it was dispatched on.
type turn struct {
	ev   domain.Event
	conv *domain.Conversation
}

func (t *turn) fields() domain.Fields {
	return t.conv.Fields
}

// Handle processes one inbound event.
func (e *Engine) Handle(ctx context.Context, ev domain.Event) error {
	if ev.ID == "" {
		ev.ID = domain.NewEventID()
	}
	start := e.now()

	ctx, span := e.tracer.Start(ctx, "membership.Handle", trace.WithAttributes(
		attribute.String("event.id", ev.ID),
		attribute.String("event.kind", string(ev.Kind)),
		attribute.Int64("identity", int64(ev.From)),
	))
	defer span.End()

	logger := e.logger.With("identity", ev.From, "event_id", ev.ID)

	conv, err := e.sessions.Load(ctx, ev.From)
	if err != nil {
		e.record(span, logger, ev, domain.GraphNone, start, err)
		return err
	}
	span.SetAttributes(attribute.String("state", string(conv.State)))
	logger.Debug("handling event", "state", conv.State, "kind", ev.Kind, "data", ev.Data)

	err = e.dispatch(ctx, &turn{ev: ev, conv: conv})
	e.record(span, logger, ev, conv.State.Graph(), start, err)
	return err
}

func (e *Engine) record(span trace.Span, logger *slog.Logger, ev domain.Event, graph domain.Graph, start time.Time, err error) {
	result := resultOK
	var (
		denied       *access.DeniedError
		unrecognized *domain.UnrecognizedEventError
	)
	switch {
	case err == nil:
		span.SetStatus(codes.Ok, "")
	case errors.As(err, &denied):
		result = resultDenied
		e.metrics.Denied(denied.Reason)
		span.SetStatus(codes.Error, "access denied")
	case errors.As(err, &unrecognized):
		result = resultUnrecognized
		logger.Warn("unrecognized event", "state", unrecognized.State, "kind", unrecognized.Kind, "data", unrecognized.Data)
		span.SetStatus(codes.Error, "unrecognized event")
	default:
		result = resultError
		e.metrics.Failed(errorKind(err))
		logger.Error("event handling failed", "graph", graph, "kind", ev.Kind, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	e.metrics.ObserveEvent(string(graph), string(ev.Kind), result, e.now().Sub(start))
}

func errorKind(err error) string {
	var (
		roleErr    *domain.InvalidRoleError
		handoffErr *domain.HandoffIntegrityError
		writeErr   *domain.StorageWriteError
	)
	switch {
	case errors.As(err, &roleErr):
		return "invalid_role"
	case errors.As(err, &handoffErr):
		return "handoff_integrity"
	case errors.As(err, &writeErr):
		return "storage_write"
	case errors.Is(err, domain.ErrAlreadyFinalized):
		return "already_finalized"
	default:
		return "internal"
	}
}

func (e *Engine) dispatch(ctx context.Context, t *turn) error {
	ev := t.ev
	if ev.Kind == domain.EventCommand {
		return e.command(ctx, t)
	}
	if ev.Kind == domain.EventCallback && ev.Data == domain.CallbackInvite {
		if err := e.gate.Allow(ctx, ev.From, access.Superuser()); err != nil {
			return err
		}
		return e.invite(ctx, t)
	}

	state := t.conv.State
	if state == domain.StateNone {
		return unrecognized(t)
	}
	if err := e.authorize(ctx, state.Graph(), ev.From); err != nil {
		return err
	}
	for _, tr := range e.table[state] {
		if tr.kind == ev.Kind && tr.match(ev, t.conv.Fields) {
			return tr.run(ctx, t)
		}
	}
	return unrecognized(t)
}

// authorize applies the guard of a graph. Reviewer steps belong to the
// superuser; applicant steps to identities the directory does not know.
func (e *Engine) authorize(ctx context.Context, graph domain.Graph, id domain.Identity) error {
	switch graph {
	case domain.GraphReviewer:
		return e.gate.Allow(ctx, id, access.Superuser())
	case domain.GraphApplicant:
		return e.gate.Allow(ctx, id, access.Unregistered())
	default:
		return e.gate.Allow(ctx, id, nil)
	}
}

func (e *Engine) command(ctx context.Context, t *turn) error {
	switch t.ev.Data {
	case domain.CommandStart:
		return e.start(ctx, t)
	case domain.CommandHelp:
		if err := e.gate.Allow(ctx, t.ev.From, access.Superuser()); err != nil {
			return err
		}
		return e.help(ctx, t)
	case domain.CommandStaff:
		if err := e.gate.Allow(ctx, t.ev.From, access.Superuser()); err != nil {
			return err
		}
		return e.staff(ctx, t)
	default:
		return unrecognized(t)
	}
}

func unrecognized(t *turn) error {
	return &domain.UnrecognizedEventError{State: t.conv.State, Kind: t.ev.Kind, Data: t.ev.Data}
}

// show replaces the message at ref with p, or sends p as a new message when
// there is nothing to edit or the edit fails.
func (e *Engine) show(ctx context.Context, to domain.Identity, ref domain.MessageRef, p domain.Prompt) (domain.MessageRef, error) {
	if ref != 0 {
		err := e.messenger.EditMessage(ctx, to, ref, p)
		if err == nil {
			return ref, nil
		}
		e.logger.Warn("edit failed, sending a new message", "identity", to, "message", ref, "error", err)
	}
	ref, err := e.messenger.SendMessage(ctx, to, p)
	if err != nil {
		return 0, fmt.Errorf("send prompt to %s: %w", to, err)
	}
	return ref, nil
}

// discard deletes a message and only logs failures.
func (e *Engine) discard(ctx context.Context, to domain.Identity, ref domain.MessageRef) {
	if ref == 0 {
		return
	}
	if err := e.messenger.DeleteMessage(ctx, to, ref); err != nil {
		e.logger.Warn("delete message failed", "identity", to, "message", ref, "error", err)
	}
}

// advance moves id to state and applies patch in one write.
func (e *Engine) advance(ctx context.Context, id domain.Identity, state domain.State, patch func(*domain.Fields)) error {
	return e.sessions.Update(ctx, id, func(c *domain.Conversation) error {
		c.State = state
		if patch != nil {
			patch(&c.Fields)
		}
		return nil
	})
}
