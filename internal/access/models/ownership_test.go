package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "idregistry/pkg/domain"
	dErrors "idregistry/pkg/domain-errors"
)

var (
	owner     = id.MustParseIdentity("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	candidate = id.MustParseIdentity("0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359")
	other     = id.MustParseIdentity("0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB")
	trusted   = id.MustParseIdentity("0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb")
)

func TestNewOwnership(t *testing.T) {
	t.Run("rejects null owner", func(t *testing.T) {
		_, err := NewOwnership(id.ZeroIdentity)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidAddress))
	})

	t.Run("starts without a pending owner", func(t *testing.T) {
		o, err := NewOwnership(owner)
		require.NoError(t, err)
		assert.Equal(t, owner, o.Owner)
		assert.False(t, o.HasPendingOwner())
	})
}

func TestOwnershipGuard(t *testing.T) {
	o, _ := NewOwnership(owner)

	assert.NoError(t, o.RequireOwner(owner))
	assert.True(t, dErrors.HasCode(o.RequireOwner(other), dErrors.CodeUnauthorized))
	assert.True(t, dErrors.HasCode(o.RequireOwner(id.ZeroIdentity), dErrors.CodeUnauthorized))
	assert.False(t, o.IsOwner(id.ZeroIdentity))
}

func TestRequestTransfer(t *testing.T) {
	t.Run("non-owner is unauthorized", func(t *testing.T) {
		o, _ := NewOwnership(owner)
		err := o.CanRequestTransfer(other, candidate)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("null candidate is invalid", func(t *testing.T) {
		o, _ := NewOwnership(owner)
		err := o.CanRequestTransfer(owner, id.ZeroIdentity)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidAddress))
	})

	t.Run("authorization is checked before the address", func(t *testing.T) {
		o, _ := NewOwnership(owner)
		err := o.CanRequestTransfer(other, id.ZeroIdentity)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("last request wins", func(t *testing.T) {
		o, _ := NewOwnership(owner)
		o.ApplyRequestTransfer(candidate)
		o.ApplyRequestTransfer(other)
		assert.Equal(t, other, o.PendingOwner)
	})
}

func TestCompleteTransfer(t *testing.T) {
	t.Run("nobody can complete without a request", func(t *testing.T) {
		o, _ := NewOwnership(owner)
		assert.True(t, dErrors.HasCode(o.CanCompleteTransfer(owner), dErrors.CodeUnauthorized))
		assert.True(t, dErrors.HasCode(o.CanCompleteTransfer(id.ZeroIdentity), dErrors.CodeUnauthorized))
	})

	t.Run("current owner cannot accept on behalf of the candidate", func(t *testing.T) {
		o, _ := NewOwnership(owner)
		o.ApplyRequestTransfer(candidate)
		assert.True(t, dErrors.HasCode(o.CanCompleteTransfer(owner), dErrors.CodeUnauthorized))
		assert.True(t, dErrors.HasCode(o.CanCompleteTransfer(other), dErrors.CodeUnauthorized))
	})

	t.Run("replaced candidate can no longer accept", func(t *testing.T) {
		o, _ := NewOwnership(owner)
		o.ApplyRequestTransfer(candidate)
		o.ApplyRequestTransfer(other)
		assert.True(t, dErrors.HasCode(o.CanCompleteTransfer(candidate), dErrors.CodeUnauthorized))
	})

	t.Run("candidate acceptance promotes and clears", func(t *testing.T) {
		o, _ := NewOwnership(owner)
		o.ApplyRequestTransfer(candidate)
		require.NoError(t, o.CanCompleteTransfer(candidate))

		event := o.ApplyCompleteTransfer()
		assert.Equal(t, OwnershipTransferred{PreviousOwner: owner, NewOwner: candidate}, event)
		assert.Equal(t, candidate, o.Owner)
		assert.False(t, o.HasPendingOwner())
	})
}

func TestDirectTransferIsAlwaysRefused(t *testing.T) {
	o, _ := NewOwnership(owner)
	for _, caller := range []id.Identity{owner, candidate, id.ZeroIdentity} {
		err := o.DirectTransfer(caller, candidate)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	}
	assert.Equal(t, owner, o.Owner)
}
