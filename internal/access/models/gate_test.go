package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "idregistry/pkg/domain"
	dErrors "idregistry/pkg/domain-errors"
)

func TestGated(t *testing.T) {
	t.Run("rejects null trusted caller", func(t *testing.T) {
		_, err := NewGated(id.ZeroIdentity)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidAddress))
	})

	t.Run("only the trusted caller may register", func(t *testing.T) {
		g, err := NewGated(trusted)
		require.NoError(t, err)
		assert.True(t, g.MayRegister(trusted))
		assert.False(t, g.MayRegister(other))
		assert.False(t, g.MayRegister(id.ZeroIdentity))
	})

	t.Run("replacing the trusted caller keeps it gated", func(t *testing.T) {
		g, _ := NewGated(trusted)
		next, err := g.WithTrustedCaller(other)
		require.NoError(t, err)
		assert.False(t, next.IsOpen())
		assert.True(t, next.MayRegister(other))
		assert.False(t, next.MayRegister(trusted))
	})

	t.Run("replacing with null is invalid", func(t *testing.T) {
		g, _ := NewGated(trusted)
		next, err := g.WithTrustedCaller(id.ZeroIdentity)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidAddress))
		assert.Nil(t, next)
	})
}

func TestOpenIsTerminal(t *testing.T) {
	g, _ := NewGated(trusted)
	opened := g.Open()
	require.True(t, opened.IsOpen())
	assert.Equal(t, trusted, opened.TrustedCaller())

	for _, caller := range []id.Identity{trusted, other, owner, id.ZeroIdentity} {
		assert.True(t, opened.MayRegister(caller))
	}

	t.Run("re-opening stays open", func(t *testing.T) {
		assert.True(t, opened.Open().IsOpen())
	})

	t.Run("changing the trusted caller stays open", func(t *testing.T) {
		next, err := opened.WithTrustedCaller(other)
		require.NoError(t, err)
		assert.True(t, next.IsOpen())
		assert.Equal(t, other, next.TrustedCaller())
		assert.True(t, next.MayRegister(trusted))
	})
}

func TestRestoreGate(t *testing.T) {
	g, err := RestoreGate(GatePhaseOpen, trusted)
	require.NoError(t, err)
	assert.True(t, g.IsOpen())

	g, err = RestoreGate(GatePhaseGated, trusted)
	require.NoError(t, err)
	assert.False(t, g.IsOpen())

	_, err = RestoreGate(GatePhaseGated, id.ZeroIdentity)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidAddress))

	_, err = RestoreGate("ajar", trusted)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
