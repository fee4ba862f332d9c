package state

import (
	"context"
	"errors"

	"github.com/cbodonnell/buddybeacon/pkg/beacon"
)

var ErrUnknownPlayer = errors.New("unknown player")

// PlayerState is the last known world state of a player as reported by the
// host bridge.
type PlayerState struct {
	Pos         beacon.Vec3
	Vitals      beacon.Vitals
	UpdatedAtMs int64
}

// StateManager provides shared access to per-player world state.
// Implementations must be thread-safe.
type StateManager interface {
	// Get returns a copy of the player's state.
	Get(ctx context.Context, uid string) (PlayerState, error)
	// Set replaces the player's state.
	Set(ctx context.Context, uid string, s PlayerState) error
	// Delete forgets the player.
	Delete(ctx context.Context, uid string) error
	// TeleportTo moves the player, keeping its vitals.
	TeleportTo(ctx context.Context, uid string, pos beacon.Vec3) error
}
