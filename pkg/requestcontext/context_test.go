package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	id "idregistry/pkg/domain"
)

func TestAccessors(t *testing.T) {
	t.Run("defaults when unset", func(t *testing.T) {
		ctx := context.Background()
		assert.True(t, Caller(ctx).IsZero())
		assert.Empty(t, RequestID(ctx))
		assert.Empty(t, ClientIP(ctx))
		assert.False(t, Now(ctx).IsZero())
	})

	t.Run("returns injected values", func(t *testing.T) {
		caller := id.MustParseIdentity("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
		fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

		ctx := WithCaller(context.Background(), caller)
		ctx = WithRequestID(ctx, "req-1")
		ctx = WithTime(ctx, fixed)
		ctx = WithClientMetadata(ctx, "10.0.0.1", "curl")

		assert.Equal(t, caller, Caller(ctx))
		assert.Equal(t, "req-1", RequestID(ctx))
		assert.Equal(t, fixed, Now(ctx))
		assert.Equal(t, "10.0.0.1", ClientIP(ctx))
		assert.Equal(t, "curl", UserAgent(ctx))
	})
}
