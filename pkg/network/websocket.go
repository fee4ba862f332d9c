package network

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cbodonnell/buddybeacon/pkg/log"
	"github.com/cbodonnell/buddybeacon/pkg/messages"
	"github.com/gorilla/websocket"
)

// WSServer represents a WebSocket server.
type WSServer struct {
	port int
	tls  *TLSConfig
}

type TLSConfig struct {
	CertFile string
	KeyFile  string
}

type NewWSServerOptions struct {
	Port int
	TLS  *TLSConfig
}

// NewWSServer creates a new WebSocket server.
func NewWSServer(opts NewWSServerOptions) *WSServer {
	return &WSServer{
		port: opts.Port,
		tls:  opts.TLS,
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler upgrades requests and serves each websocket with handler.
func (s *WSServer) Handler(ctx context.Context, handler ConnectionHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error("Failed to upgrade to WebSocket: %v", err)
			return
		}
		conn.SetReadLimit(MaxFrameSize)
		log.Debug("New WebSocket connection from %s", conn.RemoteAddr().String())
		go handler(ctx, NewWSConn(conn))
	})
}

// Start starts the WebSocket server.
func (s *WSServer) Start(ctx context.Context, handler ConnectionHandler) {
	mux := http.NewServeMux()
	mux.Handle("/", s.Handler(ctx, handler))

	addr := fmt.Sprintf(":%d", s.port)
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		server.Shutdown(context.Background())
	}()

	var listenAndServe func() error
	if s.tls != nil {
		log.Info("WebSocket server listening on %s with TLS", addr)
		listenAndServe = func() error {
			return server.ListenAndServeTLS(s.tls.CertFile, s.tls.KeyFile)
		}
	} else {
		log.Info("WebSocket server listening on %s", addr)
		listenAndServe = server.ListenAndServe
	}
	if err := listenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			log.Info("WebSocket server closed")
			return
		}
		log.Error("WebSocket server error: %v", err)
	}
}

// wsWriteTimeout bounds a single frame write to a stalled peer.
const wsWriteTimeout = 5 * time.Second

// WSConn carries one message per binary websocket frame.
type WSConn struct {
	conn *websocket.Conn
}

func NewWSConn(conn *websocket.Conn) *WSConn {
	return &WSConn{conn: conn}
}

func (c *WSConn) ReadMessage() (*messages.Message, error) {
	return ReadMessageFromWS(c.conn)
}

func (c *WSConn) WriteMessage(msg *messages.Message) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return WriteMessageToWS(c.conn, msg)
}

func (c *WSConn) Close() error {
	return c.conn.Close()
}

func (c *WSConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

func (c *WSConn) Type() ConnectionType {
	return ConnectionTypeWebSocket
}

// WriteMessageToWS writes a Message to a WebSocket connection
func WriteMessageToWS(conn *websocket.Conn, msg *messages.Message) error {
	b, err := messages.SerializeMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to serialize message: %v", err)
	}

	if err := conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
		return fmt.Errorf("failed to write message to WebSocket connection: %v", err)
	}

	return nil
}

// ReadMessageFromWS reads a Message from a WebSocket connection.
// Text frames are rejected.
func ReadMessageFromWS(conn *websocket.Conn) (*messages.Message, error) {
	messageType, data, err := conn.ReadMessage()
	if err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
			return nil, err
		}
		return nil, ErrConnectionClosed
	}
	if messageType != websocket.BinaryMessage {
		return nil, fmt.Errorf("unexpected websocket message type %d: %w", messageType, ErrInvalidMessage)
	}

	msg, err := messages.DeserializeMessage(data)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrInvalidMessage)
	}

	return msg, nil
}
