package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	gametypes "github.com/cbodonnell/buddybeacon/pkg/game/types"
	"github.com/cbodonnell/buddybeacon/pkg/messages"
	"github.com/cbodonnell/buddybeacon/pkg/network"
	"github.com/cbodonnell/buddybeacon/pkg/repositories"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mocks "github.com/cbodonnell/buddybeacon/mocks/github.com/cbodonnell/buddybeacon/pkg/queue"
)

type recordingSender struct {
	sent map[string][]*messages.Message
	err  error
}

func (s *recordingSender) SendReliableMessageToClient(ctx context.Context, uid string, msg *messages.Message) error {
	if s.err != nil {
		return s.err
	}
	if s.sent == nil {
		s.sent = make(map[string][]*messages.Message)
	}
	s.sent[uid] = append(s.sent[uid], msg)
	return nil
}

func drainServerMessages(t *testing.T, w *ServerMessageWorker) {
	t.Helper()
	for {
		select {
		case msg := <-w.serverMessageChan:
			require.NoError(t, w.handleServerMessage(context.Background(), msg))
		default:
			return
		}
	}
}

func TestServerMessageWorker_EncodesWithCodec(t *testing.T) {
	sender := &recordingSender{}
	w := NewServerMessageWorker(NewServerMessageWorkerOptions{
		Sender: sender,
		Codec:  messages.CBORCodec{},
	})

	w.Send("u1", messages.MessageTypeServerPong, &messages.ServerPong{ClientTimestamp: 7, ServerTimestamp: 9})
	drainServerMessages(t, w)

	require.Len(t, sender.sent["u1"], 1)
	msg := sender.sent["u1"][0]
	assert.Equal(t, messages.MessageTypeServerPong, msg.Type)
	assert.Empty(t, msg.PlayerUID)

	pong := &messages.ServerPong{}
	require.NoError(t, messages.CBORCodec{}.Unmarshal(msg.Payload, pong))
	assert.Equal(t, &messages.ServerPong{ClientTimestamp: 7, ServerTimestamp: 9}, pong)
}

func TestServerMessageWorker_SendNeverBlocks(t *testing.T) {
	sender := &recordingSender{}
	w := NewServerMessageWorker(NewServerMessageWorkerOptions{
		Sender:     sender,
		BufferSize: 1,
	})

	w.Send("u1", messages.MessageTypeServerPong, &messages.ServerPong{ClientTimestamp: 1})
	w.Send("u1", messages.MessageTypeServerPong, &messages.ServerPong{ClientTimestamp: 2})
	drainServerMessages(t, w)

	assert.Len(t, sender.sent["u1"], 1)
}

func TestServerMessageWorker_GoneClient(t *testing.T) {
	w := NewServerMessageWorker(NewServerMessageWorkerOptions{
		Sender: &recordingSender{err: network.ErrClientNotFound},
	})
	err := w.handleServerMessage(context.Background(), ServerMessage{UID: "u1", Type: messages.MessageTypeServerPong, Message: &messages.ServerPong{}})
	assert.NoError(t, err)

	w = NewServerMessageWorker(NewServerMessageWorkerOptions{
		Sender: &recordingSender{err: errors.New("broken pipe")},
	})
	err = w.handleServerMessage(context.Background(), ServerMessage{UID: "u1", Type: messages.MessageTypeServerPong, Message: &messages.ServerPong{}})
	assert.Error(t, err)
}

func TestConnectionEventWorker(t *testing.T) {
	repo := repositories.NewMemoryRepository()
	q := mocks.NewQueue(t)
	w := NewConnectionEventWorker(NewConnectionEventWorkerOptions{
		Repository:       repo,
		ServerEventQueue: q,
	})
	w.now = func() time.Time { return time.UnixMilli(1000) }

	connect := network.ConnectionEvent{
		UID:       "u1",
		SessionID: uuid.New(),
		Type:      network.ConnectionEventTypeConnect,
		Data:      network.ClientConnectData{Name: "Ann"},
	}

	q.EXPECT().Enqueue(&gametypes.ConnectPlayerEvent{UID: "u1", Name: "Ann", FirstJoin: true}).Return(nil).Once()
	w.handleEvent(context.Background(), connect)

	q.EXPECT().Enqueue(&gametypes.DisconnectPlayerEvent{UID: "u1"}).Return(nil).Once()
	w.handleEvent(context.Background(), network.ConnectionEvent{UID: "u1", Type: network.ConnectionEventTypeDisconnect})

	q.EXPECT().Enqueue(&gametypes.ConnectPlayerEvent{UID: "u1", Name: "Ann", FirstJoin: false}).Return(nil).Once()
	w.handleEvent(context.Background(), connect)

	player, err := repo.GetPlayer(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), player.FirstJoinedAt)
}

func TestConnectionEventWorker_BadConnectData(t *testing.T) {
	q := mocks.NewQueue(t)
	w := NewConnectionEventWorker(NewConnectionEventWorkerOptions{
		Repository:       repositories.NewMemoryRepository(),
		ServerEventQueue: q,
	})

	// no Enqueue expectation: the mock fails the test if one happens
	w.handleEvent(context.Background(), network.ConnectionEvent{UID: "u1", Type: network.ConnectionEventTypeConnect})
}
