package forwarder

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	id "idregistry/pkg/domain"
	dErrors "idregistry/pkg/domain-errors"
	"idregistry/pkg/requestcontext"
)

func TestHeaderResolver(t *testing.T) {
	h := NewHeaderResolver("X-Forwarded-Caller")

	tests := []struct {
		name  string
		value string
		want  id.Identity
		code  dErrors.Code
	}{
		{name: "checksummed address", value: caller.String(), want: caller},
		{name: "lower case address", value: "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", want: caller},
		{name: "missing", value: "", code: dErrors.CodeUnauthenticated},
		{name: "malformed", value: "0x1234", code: dErrors.CodeUnauthenticated},
		{name: "null identity", value: "0x0000000000000000000000000000000000000000", code: dErrors.CodeUnauthenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.value != "" {
				r.Header.Set("X-Forwarded-Caller", tt.value)
			}
			got, err := h.Resolve(r)
			if tt.code != "" {
				assert.True(t, dErrors.HasCode(err, tt.code), "got %v", err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var seen id.Identity
	h := Middleware(NewHeaderResolver("X-Forwarded-Caller"), logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestcontext.Caller(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("resolved caller reaches handler", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Forwarded-Caller", caller.String())
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, caller, seen)
	})

	t.Run("unresolved caller is 401", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), `"error":"unauthenticated"`)
	})
}
