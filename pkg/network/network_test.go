package network

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"

	authproviders "github.com/cbodonnell/buddybeacon/pkg/auth/providers"
	"github.com/cbodonnell/buddybeacon/pkg/messages"
	"github.com/cbodonnell/buddybeacon/pkg/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	inbound []*messages.Message
	written []*messages.Message
	closed  bool
}

func (c *fakeConn) ReadMessage() (*messages.Message, error) {
	if c.closed || len(c.inbound) == 0 {
		return nil, ErrConnectionClosed
	}
	msg := c.inbound[0]
	c.inbound = c.inbound[1:]
	return msg, nil
}

func (c *fakeConn) WriteMessage(msg *messages.Message) error {
	c.written = append(c.written, msg)
	return nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func (c *fakeConn) RemoteAddr() string   { return "fake" }
func (c *fakeConn) Type() ConnectionType { return ConnectionTypeTCP }

func mustMessage(t *testing.T, uid string, mt messages.MessageType, payload interface{}) *messages.Message {
	t.Helper()
	msg, err := messages.NewMessage(messages.JSONCodec{}, uid, mt, payload)
	require.NoError(t, err)
	return msg
}

func drainEvents(cm *ClientManager) []ConnectionEvent {
	var events []ConnectionEvent
	for {
		select {
		case e := <-cm.GetConnectionEventChan():
			events = append(events, e)
		default:
			return events
		}
	}
}

func newTestNetworkManager(rps float64, burst int) (*NetworkManager, *queue.InMemoryQueue) {
	q := queue.NewInMemoryQueue(0)
	n := NewNetworkManager(NewNetworkManagerOptions{
		AuthProvider:         authproviders.NewTrustedAuthProvider(),
		ClientManager:        NewClientManager(),
		MessageQueue:         q,
		InboundRatePerSecond: rps,
		InboundBurst:         burst,
	})
	return n, q
}

func TestTCPFraming(t *testing.T) {
	var buf bytes.Buffer
	in := &messages.Message{PlayerUID: "u1", Type: messages.MessageTypeClientPing, Payload: []byte(`{"timestamp":5}`)}
	require.NoError(t, WriteMessageToTCP(&buf, in))
	require.NoError(t, WriteMessageToTCP(&buf, in))

	size := binary.BigEndian.Uint32(buf.Bytes()[:frameHeaderSize])
	assert.Equal(t, int(size), buf.Len()/2-frameHeaderSize)

	for i := 0; i < 2; i++ {
		out, err := ReadMessageFromTCP(&buf)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	}

	_, err := ReadMessageFromTCP(&buf)
	assert.ErrorIs(t, err, ErrConnectionClosed)
}

func TestTCPFraming_Errors(t *testing.T) {
	header := make([]byte, frameHeaderSize)
	binary.BigEndian.PutUint32(header, MaxFrameSize+1)
	_, err := ReadMessageFromTCP(bytes.NewReader(header))
	assert.ErrorIs(t, err, ErrFrameTooLarge)

	binary.BigEndian.PutUint32(header, 10)
	_, err = ReadMessageFromTCP(bytes.NewReader(append(header, 1, 2, 3)))
	assert.ErrorIs(t, err, ErrConnectionClosed, "truncated body")

	binary.BigEndian.PutUint32(header, 3)
	_, err = ReadMessageFromTCP(bytes.NewReader(append(header, 1, 2, 3)))
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

func TestClientManager_EvictsDuplicateLogin(t *testing.T) {
	cm := NewClientManager()
	first := &fakeConn{}
	second := &fakeConn{}

	a := cm.ConnectClient(first, "u1", "Ann")
	b := cm.ConnectClient(second, "u1", "Ann")
	assert.NotEqual(t, a.SessionID, b.SessionID)
	assert.True(t, first.closed)
	assert.False(t, second.closed)

	events := drainEvents(cm)
	require.Len(t, events, 3)
	assert.Equal(t, ConnectionEventTypeConnect, events[0].Type)
	assert.Equal(t, ConnectionEventTypeDisconnect, events[1].Type)
	assert.Equal(t, a.SessionID, events[1].SessionID)
	assert.Equal(t, ConnectionEventTypeConnect, events[2].Type)
	assert.Equal(t, ClientConnectData{Name: "Ann"}, events[2].Data)

	// the evicted session going away must not remove the new one
	assert.False(t, cm.DisconnectClient(a))
	assert.Empty(t, drainEvents(cm))

	current, err := cm.GetClient("u1")
	require.NoError(t, err)
	assert.Same(t, b, current)

	assert.True(t, cm.DisconnectClient(b))
	assert.Zero(t, cm.Len())
	_, err = cm.GetClient("u1")
	assert.ErrorIs(t, err, ErrClientNotFound)
}

func TestServeConn_LoginAndStamp(t *testing.T) {
	n, q := newTestNetworkManager(0, 0)
	conn := &fakeConn{inbound: []*messages.Message{
		mustMessage(t, "", messages.MessageTypeClientPing, &messages.ClientPing{Timestamp: 1}),
		mustMessage(t, "", messages.MessageTypeClientLogin, &messages.ClientLogin{Token: "u1", Name: "  Ann "}),
		mustMessage(t, "someone-else", messages.MessageTypeClientPing, &messages.ClientPing{Timestamp: 2}),
		mustMessage(t, "", messages.MessageTypeClientLogin, &messages.ClientLogin{Token: "u2"}),
	}}

	n.ServeConn(context.Background(), conn)

	require.Len(t, conn.written, 1)
	assert.Equal(t, messages.MessageTypeServerLoginSuccess, conn.written[0].Type)
	success := &messages.ServerLoginSuccess{}
	require.NoError(t, messages.JSONCodec{}.Unmarshal(conn.written[0].Payload, success))
	assert.Equal(t, "u1", success.UID)
	assert.NotEmpty(t, success.SessionID)

	items, err := q.ReadAllMessages()
	require.NoError(t, err)
	require.Len(t, items, 1, "pre-login message and repeated login are dropped")
	msg := items[0].(*messages.Message)
	assert.Equal(t, "u1", msg.PlayerUID)
	assert.Equal(t, messages.MessageTypeClientPing, msg.Type)

	events := drainEvents(n.ClientManager)
	require.Len(t, events, 2)
	assert.Equal(t, ConnectionEventTypeConnect, events[0].Type)
	assert.Equal(t, ClientConnectData{Name: "Ann"}, events[0].Data)
	assert.Equal(t, success.SessionID, events[0].SessionID.String())
	assert.Equal(t, ConnectionEventTypeDisconnect, events[1].Type)
	assert.True(t, conn.closed)
}

func TestServeConn_LoginFailure(t *testing.T) {
	n, q := newTestNetworkManager(0, 0)
	conn := &fakeConn{inbound: []*messages.Message{
		mustMessage(t, "", messages.MessageTypeClientLogin, &messages.ClientLogin{Token: " "}),
		mustMessage(t, "", messages.MessageTypeClientPing, &messages.ClientPing{}),
	}}

	n.ServeConn(context.Background(), conn)

	require.Len(t, conn.written, 1)
	assert.Equal(t, messages.MessageTypeServerLoginFailure, conn.written[0].Type)
	failure := &messages.ServerLoginFailure{}
	require.NoError(t, messages.JSONCodec{}.Unmarshal(conn.written[0].Payload, failure))
	assert.Equal(t, "Invalid token.", failure.Reason)
	assert.Zero(t, q.Size())
	assert.Empty(t, drainEvents(n.ClientManager))
}

func TestServeConn_RateLimited(t *testing.T) {
	n, q := newTestNetworkManager(0.001, 3)
	inbound := []*messages.Message{
		mustMessage(t, "", messages.MessageTypeClientLogin, &messages.ClientLogin{Token: "u1"}),
	}
	for i := 0; i < 5; i++ {
		inbound = append(inbound, mustMessage(t, "", messages.MessageTypeClientPing, &messages.ClientPing{Timestamp: int64(i)}))
	}
	conn := &fakeConn{inbound: inbound}

	n.ServeConn(context.Background(), conn)

	assert.Equal(t, 2, q.Size())
}

func TestServeConn_RateLimitSparesAnswers(t *testing.T) {
	n, q := newTestNetworkManager(0.001, 3)
	inbound := []*messages.Message{
		mustMessage(t, "", messages.MessageTypeClientLogin, &messages.ClientLogin{Token: "u1"}),
	}
	for i := 0; i < 10; i++ {
		inbound = append(inbound, mustMessage(t, "", messages.MessageTypeClientPlayerUpdate, &messages.ClientPlayerUpdate{X: float64(i)}))
	}
	inbound = append(inbound,
		mustMessage(t, "", messages.MessageTypeClientTeleportResponse, &messages.ClientTeleportResponse{RequestID: 1, Accepted: true}),
		mustMessage(t, "", messages.MessageTypeClientPartyInviteResponse, &messages.ClientPartyInviteResponse{InviteID: 2}),
		mustMessage(t, "", messages.MessageTypeClientPartyLeave, &messages.ClientPartyLeave{}),
	)
	for i := 0; i < 3; i++ {
		inbound = append(inbound, mustMessage(t, "", messages.MessageTypeClientPing, &messages.ClientPing{Timestamp: int64(i)}))
	}
	conn := &fakeConn{inbound: inbound}

	n.ServeConn(context.Background(), conn)

	items, err := q.ReadAllMessages()
	require.NoError(t, err)
	counts := map[messages.MessageType]int{}
	for _, item := range items {
		counts[item.(*messages.Message).Type]++
	}
	assert.Equal(t, 3, counts[messages.MessageTypeClientPlayerUpdate], "updates have their own budget")
	assert.Equal(t, 1, counts[messages.MessageTypeClientTeleportResponse])
	assert.Equal(t, 1, counts[messages.MessageTypeClientPartyInviteResponse])
	assert.Equal(t, 1, counts[messages.MessageTypeClientPartyLeave])
	assert.Equal(t, 2, counts[messages.MessageTypeClientPing], "login used one general token")
}

func TestSendReliableMessageToClient(t *testing.T) {
	n, _ := newTestNetworkManager(0, 0)
	conn := &fakeConn{}
	n.ClientManager.ConnectClient(conn, "u1", "Ann")

	msg := mustMessage(t, "", messages.MessageTypeServerPong, &messages.ServerPong{})
	require.NoError(t, n.SendReliableMessageToClient(context.Background(), "u1", msg))
	assert.Equal(t, []*messages.Message{msg}, conn.written)

	err := n.SendReliableMessageToClient(context.Background(), "u2", msg)
	assert.ErrorIs(t, err, ErrClientNotFound)
}
