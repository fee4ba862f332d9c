package repositories

import (
	"context"
	"sync"

	"github.com/cbodonnell/buddybeacon/pkg/repositories/models"
)

type MemoryRepository struct {
	lock    sync.RWMutex
	players map[string]models.Player
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		players: make(map[string]models.Player),
	}
}

func (r *MemoryRepository) Close(ctx context.Context) error {
	return nil
}

func (r *MemoryRepository) GetPlayer(ctx context.Context, uid string) (*models.Player, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	player, ok := r.players[uid]
	if !ok {
		return nil, &ErrNotFound{}
	}
	return &player, nil
}

func (r *MemoryRepository) SavePlayerJoin(ctx context.Context, uid string, name string, timestamp int64) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	player, ok := r.players[uid]
	if !ok {
		player = models.Player{UID: uid, FirstJoinedAt: timestamp}
	}
	player.Name = name
	player.LastJoinedAt = timestamp
	r.players[uid] = player
	return nil
}
