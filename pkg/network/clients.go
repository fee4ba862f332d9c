package network

import (
	"errors"
	"sync"
	"time"

	"github.com/cbodonnell/buddybeacon/pkg/log"
	"github.com/cbodonnell/buddybeacon/pkg/messages"
	"github.com/google/uuid"
)

const (
	// ConnectionEventChannelSize represents the size of the connection event channel
	ConnectionEventChannelSize = 1024
)

var ErrClientNotFound = errors.New("client not found")

// ConnectionType is the transport a client is connected over.
type ConnectionType int

const (
	ConnectionTypeTCP ConnectionType = iota
	ConnectionTypeWebSocket
)

func (t ConnectionType) String() string {
	switch t {
	case ConnectionTypeTCP:
		return "tcp"
	case ConnectionTypeWebSocket:
		return "websocket"
	default:
		return "unknown"
	}
}

// Conn is a message-framed transport connection.
type Conn interface {
	ReadMessage() (*messages.Message, error)
	WriteMessage(msg *messages.Message) error
	Close() error
	RemoteAddr() string
	Type() ConnectionType
}

// Client represents an authenticated connection
type Client struct {
	UID         string
	Name        string
	SessionID   uuid.UUID
	Conn        Conn
	ConnectedAt time.Time

	writeLock sync.Mutex
}

// Write sends msg to the client. Writes from different goroutines never
// interleave on the wire.
func (c *Client) Write(msg *messages.Message) error {
	c.writeLock.Lock()
	defer c.writeLock.Unlock()
	return c.Conn.WriteMessage(msg)
}

// ConnectionEvent represents an event that happened to a client
type ConnectionEvent struct {
	UID       string
	SessionID uuid.UUID
	Type      ConnectionEventType
	Data      interface{}
}

// ConnectionEventType represents the type of a connection event
type ConnectionEventType int

const (
	ConnectionEventTypeConnect ConnectionEventType = iota
	ConnectionEventTypeDisconnect
)

type ClientConnectData struct {
	Name string
}

// ClientManager manages authenticated clients. There is at most one client
// per uid.
type ClientManager struct {
	clients         map[string]*Client
	clientsLock     sync.RWMutex
	clientEventChan chan ConnectionEvent
}

// NewClientManager creates a new ClientManager
func NewClientManager() *ClientManager {
	return &ClientManager{
		clients:         make(map[string]*Client),
		clientEventChan: make(chan ConnectionEvent, ConnectionEventChannelSize),
	}
}

// GetConnectionEventChan returns a one-way channel for receiving connection events
func (cm *ClientManager) GetConnectionEventChan() <-chan ConnectionEvent {
	return cm.clientEventChan
}

// GetClients returns a slice of all connected clients.
func (cm *ClientManager) GetClients() []*Client {
	cm.clientsLock.RLock()
	defer cm.clientsLock.RUnlock()
	clients := make([]*Client, 0, len(cm.clients))
	for _, client := range cm.clients {
		clients = append(clients, client)
	}
	return clients
}

// GetClient returns the client logged in as uid.
func (cm *ClientManager) GetClient(uid string) (*Client, error) {
	cm.clientsLock.RLock()
	defer cm.clientsLock.RUnlock()
	client, ok := cm.clients[uid]
	if !ok {
		return nil, ErrClientNotFound
	}
	return client, nil
}

func (cm *ClientManager) Len() int {
	cm.clientsLock.RLock()
	defer cm.clientsLock.RUnlock()
	return len(cm.clients)
}

// ConnectClient registers conn as uid. An existing client for the same uid
// is evicted: its connection is closed and a disconnect event is emitted
// before the connect event of the new client.
func (cm *ClientManager) ConnectClient(conn Conn, uid string, name string) *Client {
	cm.clientsLock.Lock()
	defer cm.clientsLock.Unlock()

	if old, ok := cm.clients[uid]; ok {
		log.Info("Evicting session %s of %s for a new login", old.SessionID, uid)
		delete(cm.clients, uid)
		cm.clientEventChan <- ConnectionEvent{
			UID:       uid,
			SessionID: old.SessionID,
			Type:      ConnectionEventTypeDisconnect,
		}
		if err := old.Conn.Close(); err != nil {
			log.Debug("Failed to close evicted connection of %s: %v", uid, err)
		}
	}

	client := &Client{
		UID:         uid,
		Name:        name,
		SessionID:   uuid.New(),
		Conn:        conn,
		ConnectedAt: time.Now(),
	}
	cm.clients[uid] = client

	cm.clientEventChan <- ConnectionEvent{
		UID:       uid,
		SessionID: client.SessionID,
		Type:      ConnectionEventTypeConnect,
		Data: ClientConnectData{
			Name: name,
		},
	}

	return client
}

// DisconnectClient removes client from the manager. It returns false when
// client is no longer the current session for its uid.
func (cm *ClientManager) DisconnectClient(client *Client) bool {
	cm.clientsLock.Lock()
	defer cm.clientsLock.Unlock()

	current, ok := cm.clients[client.UID]
	if !ok || current != client {
		return false
	}

	delete(cm.clients, client.UID)
	cm.clientEventChan <- ConnectionEvent{
		UID:       client.UID,
		SessionID: client.SessionID,
		Type:      ConnectionEventTypeDisconnect,
	}

	return true
}
