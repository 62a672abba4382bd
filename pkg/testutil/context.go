package testutil

import (
	"net/http"

	id "idregistry/pkg/domain"
	"idregistry/pkg/requestcontext"
)

// CallerHeader is the header the development resolver reads in handler tests.
const CallerHeader = "X-Forwarded-Caller"

// AsCaller sets the forwarded caller header, which is what the header resolver
// reads before the request reaches a handler.
func AsCaller(req *http.Request, caller id.Identity) *http.Request {
	req.Header.Set(CallerHeader, caller.String())
	return req
}

// WithCaller puts a resolved caller straight into the request context, for
// tests that bypass the forwarder middleware.
func WithCaller(req *http.Request, caller id.Identity) *http.Request {
	return req.WithContext(requestcontext.WithCaller(req.Context(), caller))
}
