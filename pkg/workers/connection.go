package workers

import (
	"context"
	"time"

	gametypes "github.com/cbodonnell/buddybeacon/pkg/game/types"
	"github.com/cbodonnell/buddybeacon/pkg/log"
	"github.com/cbodonnell/buddybeacon/pkg/network"
	"github.com/cbodonnell/buddybeacon/pkg/queue"
	"github.com/cbodonnell/buddybeacon/pkg/repositories"
)

type ConnectionEventWorker struct {
	connectionEventChan <-chan network.ConnectionEvent
	repository          repositories.Repository
	serverEventQueue    queue.Queue
	now                 func() time.Time
}

type NewConnectionEventWorkerOptions struct {
	ConnectionEventChan <-chan network.ConnectionEvent
	Repository          repositories.Repository
	ServerEventQueue    queue.Queue
}

// NewConnectionEventWorker creates a new ConnectionEventWorker.
// The worker processes connection events like connect and disconnect,
// consults the first-join ledger and writes server events to a queue for
// the game loop to process.
func NewConnectionEventWorker(opts NewConnectionEventWorkerOptions) *ConnectionEventWorker {
	return &ConnectionEventWorker{
		connectionEventChan: opts.ConnectionEventChan,
		repository:          opts.Repository,
		serverEventQueue:    opts.ServerEventQueue,
		now:                 time.Now,
	}
}

func (w *ConnectionEventWorker) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-w.connectionEventChan:
			w.handleEvent(ctx, event)
		}
	}
}

func (w *ConnectionEventWorker) handleEvent(ctx context.Context, event network.ConnectionEvent) {
	switch event.Type {
	case network.ConnectionEventTypeConnect:
		w.handleClientConnect(ctx, event)
	case network.ConnectionEventTypeDisconnect:
		w.handleClientDisconnect(event)
	default:
		log.Error("Unknown connection event type: %v", event.Type)
	}
}

func (w *ConnectionEventWorker) handleClientConnect(ctx context.Context, event network.ConnectionEvent) {
	data, ok := event.Data.(network.ClientConnectData)
	if !ok {
		log.Error("Failed to cast client connect data")
		return
	}

	// A ledger failure never grants the starter kit twice.
	firstJoin := false
	if _, err := w.repository.GetPlayer(ctx, event.UID); err != nil {
		if repositories.IsNotFound(err) {
			firstJoin = true
		} else {
			log.Error("Failed to look up player %s: %v", event.UID, err)
		}
	}
	if err := w.repository.SavePlayerJoin(ctx, event.UID, data.Name, w.now().UnixMilli()); err != nil {
		log.Error("Failed to save join of player %s: %v", event.UID, err)
	}

	if err := w.serverEventQueue.Enqueue(&gametypes.ConnectPlayerEvent{
		UID:       event.UID,
		Name:      data.Name,
		FirstJoin: firstJoin,
	}); err != nil {
		log.Error("Failed to enqueue connect player event: %v", err)
	}
}

func (w *ConnectionEventWorker) handleClientDisconnect(event network.ConnectionEvent) {
	if err := w.serverEventQueue.Enqueue(&gametypes.DisconnectPlayerEvent{
		UID: event.UID,
	}); err != nil {
		log.Error("Failed to enqueue disconnect player event: %v", err)
	}
}
