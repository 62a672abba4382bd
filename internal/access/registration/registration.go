// Package registration guards the external registration endpoint with the
// registry's authorization decision.
package registration

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"

	"idregistry/internal/access/models"
	id "idregistry/pkg/domain"
	dErrors "idregistry/pkg/domain-errors"
	platformhttp "idregistry/pkg/platform/httputil"
	"idregistry/pkg/requestcontext"
)

// HeaderCaller carries the resolved caller to the registration backend.
const HeaderCaller = "X-Registry-Caller"

// Authorizer decides whether a caller may register.
type Authorizer interface {
	Authorize(ctx context.Context, caller id.Identity) (models.Decision, error)
}

type deniedResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// RequireRegistration lets a request through only when the authorizer allows
// the caller in context. Denials are 403 with error "registration_paused" or
// "registration_gated".
func RequireRegistration(authorizer Authorizer, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			caller := requestcontext.Caller(ctx)

			decision, err := authorizer.Authorize(ctx, caller)
			if err != nil {
				logger.ErrorContext(ctx, "registration authorization failed",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				platformhttp.WriteError(w, err)
				return
			}
			if !decision.Allowed {
				logger.InfoContext(ctx, "registration denied",
					"caller", caller.String(),
					"reason", decision.Reason,
					"request_id", requestcontext.RequestID(ctx),
				)
				platformhttp.WriteJSON(w, http.StatusForbidden, deniedResponse{
					Error:            "registration_" + string(decision.Reason),
					ErrorDescription: describe(decision.Reason),
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func describe(reason models.DenyReason) string {
	switch reason {
	case models.DenyReasonPaused:
		return "registration is paused"
	case models.DenyReasonGated:
		return "registration is restricted to the trusted caller"
	default:
		return "registration denied"
	}
}

// NewUpstreamProxy forwards allowed registrations to the registration backend,
// replacing any client-supplied caller header with the resolved one.
func NewUpstreamProxy(upstream string, logger *slog.Logger) (http.Handler, error) {
	target, err := url.Parse(upstream)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid registration upstream url")
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "registration upstream url must be absolute")
	}

	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			pr.Out.Header.Del(HeaderCaller)
			caller := requestcontext.Caller(pr.In.Context())
			if !caller.IsZero() {
				pr.Out.Header.Set(HeaderCaller, caller.String())
			}
			if requestID := requestcontext.RequestID(pr.In.Context()); requestID != "" {
				pr.Out.Header.Set("X-Request-ID", requestID)
			}
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.ErrorContext(r.Context(), "registration upstream failed",
				"error", err,
				"request_id", requestcontext.RequestID(r.Context()),
			)
			platformhttp.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "registration backend unavailable"))
		},
	}, nil
}
