package state

import (
	"context"
	"sync"

	"github.com/cbodonnell/buddybeacon/pkg/beacon"
)

type InMemoryStateManager struct {
	lock    sync.RWMutex
	players map[string]PlayerState
}

func NewInMemoryStateManager() *InMemoryStateManager {
	return &InMemoryStateManager{
		players: make(map[string]PlayerState),
	}
}

func (m *InMemoryStateManager) Get(_ context.Context, uid string) (PlayerState, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	s, ok := m.players[uid]
	if !ok {
		return PlayerState{}, ErrUnknownPlayer
	}
	return s, nil
}

func (m *InMemoryStateManager) Set(_ context.Context, uid string, s PlayerState) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.players[uid] = s
	return nil
}

func (m *InMemoryStateManager) Delete(_ context.Context, uid string) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	delete(m.players, uid)
	return nil
}

// TeleportTo creates the entry if the player has not reported yet.
func (m *InMemoryStateManager) TeleportTo(_ context.Context, uid string, pos beacon.Vec3) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	s := m.players[uid]
	s.Pos = pos
	m.players[uid] = s
	return nil
}
