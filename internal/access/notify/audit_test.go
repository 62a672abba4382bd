package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idregistry/internal/access/models"
	"idregistry/pkg/platform/audit/publishers/compliance"
	"idregistry/pkg/platform/audit/store/memory"
	"idregistry/pkg/requestcontext"
)

func TestToAuditEvent(t *testing.T) {
	ctx := requestcontext.WithRequestID(context.Background(), "req-1")
	ctx = requestcontext.WithClientMetadata(ctx, "10.0.0.1", "curl/8.0")

	t.Run("ownership transfer carries both owners", func(t *testing.T) {
		n := notification(t, models.OwnershipTransferred{PreviousOwner: owner, NewOwner: newcomer})
		e := ToAuditEvent(ctx, n)

		assert.Equal(t, n.ID, e.ID)
		assert.Equal(t, "main", e.RegistryID)
		assert.Equal(t, int64(2), e.Sequence)
		assert.Equal(t, "OwnershipTransferred", e.Action)
		assert.Equal(t, newcomer.String(), e.Subject)
		assert.Equal(t, "previous_owner="+owner.String(), e.Detail)
		assert.Equal(t, "req-1", e.RequestID)
		assert.Equal(t, "10.0.0.1", e.ClientIP)
		assert.Equal(t, "curl/8.0", e.UserAgent)
		assert.Equal(t, n.OccurredAt, e.Timestamp)
	})

	t.Run("pause carries state", func(t *testing.T) {
		e := ToAuditEvent(ctx, notification(t, models.PauseChanged{Paused: false}))
		assert.Equal(t, "paused=false", e.Detail)
		assert.Empty(t, e.Subject)
	})
}

func TestAuditNotifier(t *testing.T) {
	store := memory.NewInMemoryStore()
	a := NewAuditNotifier(compliance.New(store))

	require.NoError(t, a.Notify(context.Background(), notification(t, models.ChangeTrustedCaller{NewCaller: newcomer})))

	events, err := store.ListByRegistry(context.Background(), "main", 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "ChangeTrustedCaller", events[0].Action)
	assert.Equal(t, newcomer.String(), events[0].Subject)
}
