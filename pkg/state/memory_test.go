package state

import (
	"context"
	"testing"

	"github.com/cbodonnell/buddybeacon/pkg/beacon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStateManager(t *testing.T) {
	ctx := context.Background()
	m := NewInMemoryStateManager()

	_, err := m.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrUnknownPlayer)

	require.NoError(t, m.Set(ctx, "a", PlayerState{
		Pos:    beacon.Vec3{X: 1, Y: 2, Z: 3},
		Vitals: beacon.Vitals{Health: 15, MaxHealth: 20},
	}))
	require.NoError(t, m.TeleportTo(ctx, "a", beacon.Vec3{X: 10}))

	s, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, beacon.Vec3{X: 10}, s.Pos)
	assert.Equal(t, float32(15), s.Vitals.Health, "vitals survive a teleport")

	require.NoError(t, m.Delete(ctx, "a"))
	_, err = m.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrUnknownPlayer)
}
