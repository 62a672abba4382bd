package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"idregistry/internal/access/forwarder"
	"idregistry/internal/access/models"
	"idregistry/internal/platform/metrics"
	id "idregistry/pkg/domain"
	dErrors "idregistry/pkg/domain-errors"
	audit "idregistry/pkg/platform/audit"
	"idregistry/pkg/platform/httputil"
	"idregistry/pkg/platform/middleware/metadata"
	"idregistry/pkg/platform/middleware/request"
	"idregistry/pkg/platform/middleware/requesttime"
	"idregistry/pkg/requestcontext"
)

// Service defines the registry access operations exposed over HTTP.
type Service interface {
	Snapshot(ctx context.Context) (models.Snapshot, error)
	IsOwner(ctx context.Context, caller id.Identity) (bool, error)
	RequestTransfer(ctx context.Context, caller, candidate id.Identity) (*models.State, error)
	CompleteTransfer(ctx context.Context, caller id.Identity) (*models.State, error)
	DirectTransfer(ctx context.Context, caller, candidate id.Identity) error
	SetTrustedCaller(ctx context.Context, caller, newCaller id.Identity) (*models.State, error)
	Open(ctx context.Context, caller id.Identity) (*models.State, error)
	Pause(ctx context.Context, caller id.Identity) (*models.State, error)
	Unpause(ctx context.Context, caller id.Identity) (*models.State, error)
	Authorize(ctx context.Context, caller id.Identity) (models.Decision, error)
}

// EventLister reads the audit trail.
type EventLister interface {
	ListByRegistry(ctx context.Context, registryID string, limit int) ([]audit.Event, error)
}

// Handler serves the /v1/registry administration API.
type Handler struct {
	registryID models.RegistryID
	service    Service
	events     EventLister
	resolver   forwarder.Resolver
	logger     *slog.Logger
	metrics    *metrics.Metrics
	timeout    time.Duration
}

type Option func(*Handler)

// WithRequestTimeout bounds each request's context.
func WithRequestTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

func New(
	registryID models.RegistryID,
	service Service,
	events EventLister,
	resolver forwarder.Resolver,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	opts ...Option,
) *Handler {
	h := &Handler{
		registryID: registryID,
		service:    service,
		events:     events,
		resolver:   resolver,
		logger:     logger,
		metrics:    metrics,
		timeout:    30 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the registry routes on r.
func (h *Handler) Register(r chi.Router) {
	registryRouter := chi.NewRouter()
	registryRouter.Use(request.Recovery(h.logger))
	registryRouter.Use(request.RequestID)
	registryRouter.Use(requesttime.Middleware)
	registryRouter.Use(metadata.ClientMetadata)
	registryRouter.Use(request.Logger(h.logger))
	registryRouter.Use(request.Timeout(h.timeout))
	registryRouter.Use(request.ContentTypeJSON)
	registryRouter.Use(metrics.LatencyMiddleware(h.metrics))
	registryRouter.Use(forwarder.Middleware(h.resolver, h.logger))

	registryRouter.Get("/", h.handleGetState)
	registryRouter.Post("/ownership/transfer", h.handleRequestTransfer)
	registryRouter.Post("/ownership/accept", h.handleCompleteTransfer)
	registryRouter.Post("/ownership/direct-transfer", h.handleDirectTransfer)
	registryRouter.Put("/trusted-caller", h.handleSetTrustedCaller)
	registryRouter.Post("/gate/open", h.handleOpenGate)
	registryRouter.Post("/pause", h.handlePause)
	registryRouter.Post("/unpause", h.handleUnpause)
	registryRouter.Post("/authorize", h.handleAuthorize)
	registryRouter.Get("/events", h.handleListEvents)

	r.Mount("/v1/registry", registryRouter)
}

func (h *Handler) handleGetState(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Snapshot(r.Context())
	if err != nil {
		h.writeFailure(w, r, "get state", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toStateResponse(snap))
}

func (h *Handler) handleRequestTransfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.rejectInput(w, r, "request transfer", err)
		return
	}
	candidate, err := parseIdentity("candidate", req.Candidate)
	if err != nil {
		h.rejectInput(w, r, "request transfer", err)
		return
	}
	h.writeState(w, r, "request transfer", func(ctx context.Context, caller id.Identity) (*models.State, error) {
		return h.service.RequestTransfer(ctx, caller, candidate)
	})
}

func (h *Handler) handleCompleteTransfer(w http.ResponseWriter, r *http.Request) {
	h.writeState(w, r, "complete transfer", h.service.CompleteTransfer)
}

// handleDirectTransfer refuses every request. The body is read only so the
// refusal can be logged with the attempted candidate.
func (h *Handler) handleDirectTransfer(w http.ResponseWriter, r *http.Request) {
	candidate := id.ZeroIdentity
	var req TransferRequest
	if decodeBody(w, r, &req) == nil {
		if parsed, err := id.ParseIdentity(req.Candidate); err == nil {
			candidate = parsed
		}
	}
	err := h.service.DirectTransfer(r.Context(), requestcontext.Caller(r.Context()), candidate)
	h.writeFailure(w, r, "direct transfer", err)
}

func (h *Handler) handleSetTrustedCaller(w http.ResponseWriter, r *http.Request) {
	var req TrustedCallerRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.rejectInput(w, r, "set trusted caller", err)
		return
	}
	newCaller, err := parseIdentity("trusted_caller", req.TrustedCaller)
	if err != nil {
		h.rejectInput(w, r, "set trusted caller", err)
		return
	}
	h.writeState(w, r, "set trusted caller", func(ctx context.Context, caller id.Identity) (*models.State, error) {
		return h.service.SetTrustedCaller(ctx, caller, newCaller)
	})
}

func (h *Handler) handleOpenGate(w http.ResponseWriter, r *http.Request) {
	h.writeState(w, r, "open gate", h.service.Open)
}

func (h *Handler) handlePause(w http.ResponseWriter, r *http.Request) {
	h.writeState(w, r, "pause", h.service.Pause)
}

func (h *Handler) handleUnpause(w http.ResponseWriter, r *http.Request) {
	h.writeState(w, r, "unpause", h.service.Unpause)
}

func (h *Handler) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := requestcontext.Caller(ctx)
	decision, err := h.service.Authorize(ctx, caller)
	if err != nil {
		h.writeFailure(w, r, "authorize", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, DecisionResponse{
		Caller:  caller.String(),
		Allowed: decision.Allowed,
		Reason:  string(decision.Reason),
	})
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		h.writeFailure(w, r, "list events", err)
		return
	}
	events, err := h.events.ListByRegistry(r.Context(), h.registryID.String(), limit)
	if err != nil {
		h.writeFailure(w, r, "list events", dErrors.Wrap(err, dErrors.CodeInternal, "failed to list events"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toEventsResponse(events))
}

// writeState runs a mutation for the resolved caller and responds with the
// committed state.
func (h *Handler) writeState(w http.ResponseWriter, r *http.Request, action string, op func(context.Context, id.Identity) (*models.State, error)) {
	ctx := r.Context()
	state, err := op(ctx, requestcontext.Caller(ctx))
	if err != nil {
		h.writeFailure(w, r, action, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toStateResponse(state.Snapshot()))
}

// rejectInput reports a malformed body or argument on an owner-only route.
// A caller who is not the owner gets Unauthorized instead, whatever it sent.
func (h *Handler) rejectInput(w http.ResponseWriter, r *http.Request, action string, inputErr error) {
	ctx := r.Context()
	owner, err := h.service.IsOwner(ctx, requestcontext.Caller(ctx))
	if err != nil {
		h.writeFailure(w, r, action, err)
		return
	}
	if !owner {
		h.writeFailure(w, r, action, dErrors.New(dErrors.CodeUnauthorized, "caller is not the owner"))
		return
	}
	h.writeFailure(w, r, action, inputErr)
}

func (h *Handler) writeFailure(w http.ResponseWriter, r *http.Request, action string, err error) {
	ctx := r.Context()
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "failed to "+action,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	} else {
		h.logger.WarnContext(ctx, action+" rejected",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	httputil.WriteError(w, err)
}
