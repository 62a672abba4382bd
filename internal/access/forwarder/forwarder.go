// Package forwarder resolves the acting caller of an HTTP request. The core
// treats the resolved identity as opaque: how a forwarder proves who the
// caller is stays behind the Resolver interface.
package forwarder

import (
	"log/slog"
	"net/http"
	"strings"

	id "idregistry/pkg/domain"
	dErrors "idregistry/pkg/domain-errors"
	"idregistry/pkg/platform/httputil"
	"idregistry/pkg/requestcontext"
)

// Resolver extracts the caller identity from a request.
type Resolver interface {
	Resolve(r *http.Request) (id.Identity, error)
}

// HeaderResolver reads the caller address from a fixed header. Only safe
// behind a proxy that strips the header from untrusted traffic.
type HeaderResolver struct {
	header string
}

func NewHeaderResolver(header string) *HeaderResolver {
	return &HeaderResolver{header: header}
}

func (h *HeaderResolver) Resolve(r *http.Request) (id.Identity, error) {
	raw := strings.TrimSpace(r.Header.Get(h.header))
	if raw == "" {
		return id.ZeroIdentity, dErrors.New(dErrors.CodeUnauthenticated, "missing caller header")
	}
	caller, err := id.ParseIdentity(raw)
	if err != nil {
		return id.ZeroIdentity, dErrors.Wrap(err, dErrors.CodeUnauthenticated, "malformed caller header")
	}
	if caller.IsZero() {
		return id.ZeroIdentity, dErrors.New(dErrors.CodeUnauthenticated, "caller must not be the null identity")
	}
	return caller, nil
}

// Middleware resolves the caller and stores it in the request context.
// Requests whose caller cannot be resolved get 401.
func Middleware(resolver Resolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			caller, err := resolver.Resolve(r)
			if err != nil {
				logger.WarnContext(ctx, "caller resolution failed",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				if !dErrors.Is(err, dErrors.CodeUnauthenticated) {
					err = dErrors.Wrap(err, dErrors.CodeUnauthenticated, "caller could not be resolved")
				}
				httputil.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(requestcontext.WithCaller(ctx, caller)))
		})
	}
}
