package handlers

import (
	"context"
	"errors"
	"fmt"

	gametypes "github.com/cbodonnell/buddybeacon/pkg/game/types"
	"github.com/cbodonnell/buddybeacon/pkg/queue"
)

var ErrQueryTimeout = errors.New("game loop did not answer in time")

// Querier answers admin queries against live game state.
type Querier interface {
	Query(ctx context.Context, q *gametypes.AdminQuery) (gametypes.AdminResponse, error)
}

// QueueQuerier hands queries to the game loop through the server event queue
// and waits for the answer, so no game state is read outside the loop.
type QueueQuerier struct {
	serverEventQueue queue.Queue
}

func NewQueueQuerier(serverEventQueue queue.Queue) *QueueQuerier {
	return &QueueQuerier{
		serverEventQueue: serverEventQueue,
	}
}

func (q *QueueQuerier) Query(ctx context.Context, query *gametypes.AdminQuery) (gametypes.AdminResponse, error) {
	if err := q.serverEventQueue.Enqueue(query); err != nil {
		return gametypes.AdminResponse{}, fmt.Errorf("failed to enqueue admin query: %v", err)
	}
	select {
	case <-ctx.Done():
		return gametypes.AdminResponse{}, ErrQueryTimeout
	case resp := <-query.Resp:
		return resp, resp.Err
	}
}
