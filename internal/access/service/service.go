package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	accessmetrics "idregistry/internal/access/metrics"
	"idregistry/internal/access/models"
	id "idregistry/pkg/domain"
	dErrors "idregistry/pkg/domain-errors"
	"idregistry/pkg/platform/sentinel"
	"idregistry/pkg/requestcontext"
)

// Store persists registry state. Execute must run fn against a working copy
// under the registry's exclusive scope and commit only if fn returns nil.
type Store interface {
	Create(ctx context.Context, state *models.State) error
	Load(ctx context.Context, registryID models.RegistryID) (*models.State, error)
	Execute(ctx context.Context, registryID models.RegistryID, fn func(ctx context.Context, state *models.State) error) (*models.State, error)
}

// Notifier receives notifications synchronously at the point of mutation.
// Returning an error aborts the mutation.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

// Service is the access-control core for one registry: ownership, the
// trusted-caller gate, the pause guard and the registration authorizer.
//
// Mutations are serialized by mu and by the store's Execute scope, and
// notifications are delivered inside that scope, so their order equals
// mutation order.
type Service struct {
	registryID models.RegistryID
	store      Store
	notifier   Notifier
	logger     *slog.Logger
	metrics    *accessmetrics.Metrics
	tracer     trace.Tracer

	mu sync.Mutex
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

func WithMetrics(m *accessmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// New constructs a Service bound to registryID.
func New(registryID models.RegistryID, store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("registry store is required")
	}
	if _, err := models.ParseRegistryID(string(registryID)); err != nil {
		return nil, err
	}
	s := &Service{
		registryID: registryID,
		store:      store,
		logger:     slog.New(slog.DiscardHandler),
		tracer:     otel.Tracer("idregistry/internal/access/service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RegistryID returns the registry this service administers.
func (s *Service) RegistryID() models.RegistryID {
	return s.registryID
}

// Bootstrap creates the registry with its initial owner and trusted caller,
// gated and unpaused.
func (s *Service) Bootstrap(ctx context.Context, owner, trusted id.Identity) (*models.State, error) {
	ctx, span := s.startSpan(ctx, "bootstrap", owner)
	defer span.End()

	state, err := models.NewState(s.registryID, owner, trusted, requestcontext.Now(ctx))
	if err != nil {
		return nil, s.fail(span, "bootstrap", err)
	}
	if err := s.store.Create(ctx, state); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, s.fail(span, "bootstrap", dErrors.New(dErrors.CodeConflict, "registry is already initialized"))
		}
		return nil, s.fail(span, "bootstrap", dErrors.Wrap(err, dErrors.CodeInternal, "failed to create registry"))
	}

	s.logger.InfoContext(ctx, "registry initialized",
		"registry_id", s.registryID,
		"owner", owner.String(),
		"trusted_caller", trusted.String(),
	)
	s.succeed("bootstrap", state)
	return state, nil
}

// Snapshot returns the current state of all three guards.
func (s *Service) Snapshot(ctx context.Context) (models.Snapshot, error) {
	state, err := s.load(ctx)
	if err != nil {
		return models.Snapshot{}, err
	}
	return state.Snapshot(), nil
}

// mutation validates and applies a change to the working state. It returns the
// event to publish, or nil when the change carries no notification.
type mutation func(state *models.State) (models.Event, error)

// execute runs one administrative operation: guard, mutate, stamp, notify,
// commit. Any error leaves the stored state untouched.
func (s *Service) execute(ctx context.Context, operation string, caller id.Identity, apply mutation) (*models.State, error) {
	ctx, span := s.startSpan(ctx, operation, caller)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	var published []models.EventName
	state, err := s.store.Execute(ctx, s.registryID, func(txCtx context.Context, working *models.State) error {
		event, err := apply(working)
		if err != nil {
			return err
		}
		working.Touch(requestcontext.Now(ctx))
		if event == nil {
			return nil
		}
		if err := s.notify(txCtx, models.NewNotification(working, caller, event)); err != nil {
			return err
		}
		published = append(published, event.Name())
		return nil
	})
	if err != nil {
		err = translateStoreErr(err)
		s.logger.WarnContext(ctx, "registry operation refused",
			"registry_id", s.registryID,
			"operation", operation,
			"caller", caller.String(),
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return nil, s.fail(span, operation, err)
	}

	s.logger.InfoContext(ctx, "registry operation applied",
		"registry_id", s.registryID,
		"operation", operation,
		"caller", caller.String(),
		"version", state.Version,
		"request_id", requestcontext.RequestID(ctx),
	)
	for _, name := range published {
		if s.metrics != nil {
			s.metrics.IncrementNotification(name)
		}
	}
	s.succeed(operation, state)
	return state, nil
}

func (s *Service) notify(ctx context.Context, n models.Notification) error {
	if s.notifier == nil {
		return nil
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to deliver notification")
	}
	return nil
}

func (s *Service) load(ctx context.Context) (*models.State, error) {
	state, err := s.store.Load(ctx, s.registryID)
	if err != nil {
		return nil, translateStoreErr(err)
	}
	return state, nil
}

func (s *Service) startSpan(ctx context.Context, operation string, caller id.Identity) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "access."+operation, trace.WithAttributes(
		attribute.String("registry.id", string(s.registryID)),
		attribute.String("registry.caller", caller.String()),
	))
}

func (s *Service) fail(span trace.Span, operation string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	if s.metrics != nil {
		s.metrics.IncrementOperation(operation, string(dErrors.CodeOf(err)))
	}
	return err
}

func (s *Service) succeed(operation string, state *models.State) {
	if s.metrics != nil {
		s.metrics.IncrementOperation(operation, "ok")
		s.metrics.SetState(state.Snapshot())
	}
}

// translateStoreErr passes coded errors through verbatim and maps
// infrastructure sentinels onto domain codes.
func translateStoreErr(err error) error {
	var coded *dErrors.Error
	if errors.As(err, &coded) {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "registry is not initialized")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "registry changed concurrently")
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "registry operation timed out")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "registry store failure")
	}
}
