package network

import (
	"context"
	"errors"
	"fmt"
	"strings"

	authproviders "github.com/cbodonnell/buddybeacon/pkg/auth/providers"
	"github.com/cbodonnell/buddybeacon/pkg/log"
	"github.com/cbodonnell/buddybeacon/pkg/messages"
	"github.com/cbodonnell/buddybeacon/pkg/queue"
	"golang.org/x/time/rate"
)

const maxNameLength = 32

type NetworkManager struct {
	AuthProvider  authproviders.AuthProvider
	ClientManager *ClientManager
	MessageQueue  queue.Queue
	Codec         messages.Codec
	TCPServer     *TCPServer
	WSServer      *WSServer

	inboundRate  rate.Limit
	inboundBurst int
}

type NewNetworkManagerOptions struct {
	AuthProvider  authproviders.AuthProvider
	ClientManager *ClientManager
	MessageQueue  queue.Queue
	Codec         messages.Codec
	TCPPort       int
	WSPort        int
	WSServerTLS   *TLSConfig
	// InboundRatePerSecond limits messages read from one connection.
	// Zero disables the limit.
	InboundRatePerSecond float64
	InboundBurst         int
}

func NewNetworkManager(options NewNetworkManagerOptions) *NetworkManager {
	codec := options.Codec
	if codec == nil {
		codec = messages.JSONCodec{}
	}
	inboundRate := rate.Inf
	if options.InboundRatePerSecond > 0 {
		inboundRate = rate.Limit(options.InboundRatePerSecond)
	}
	burst := options.InboundBurst
	if burst <= 0 {
		burst = 1
	}
	return &NetworkManager{
		AuthProvider:  options.AuthProvider,
		ClientManager: options.ClientManager,
		MessageQueue:  options.MessageQueue,
		Codec:         codec,
		TCPServer: NewTCPServer(NewTCPServerOptions{
			Port: options.TCPPort,
		}),
		WSServer: NewWSServer(NewWSServerOptions{
			Port: options.WSPort,
			TLS:  options.WSServerTLS,
		}),
		inboundRate:  inboundRate,
		inboundBurst: burst,
	}
}

func (n *NetworkManager) Start(ctx context.Context) {
	go n.TCPServer.Start(ctx, n.ServeConn)
	go n.WSServer.Start(ctx, n.ServeConn)
}

// ConnectionHandler serves a connection until it is closed.
type ConnectionHandler func(ctx context.Context, conn Conn)

// ServeConn reads messages from conn until it closes. The first accepted
// message must be a login; everything after it is stamped with the
// authenticated uid and queued for the game loop.
func (n *NetworkManager) ServeConn(ctx context.Context, conn Conn) {
	limiter := n.newInboundLimiter()
	var client *Client
	defer func() {
		if client != nil && n.ClientManager.DisconnectClient(client) {
			log.Info("Player %s disconnected (session %s)", client.UID, client.SessionID)
		}
		conn.Close()
	}()

	for {
		if ctx.Err() != nil {
			return
		}
		message, err := conn.ReadMessage()
		if err != nil {
			if errors.Is(err, ErrInvalidMessage) {
				log.Warn("Dropping invalid message from %s: %v", conn.RemoteAddr(), err)
				continue
			}
			if !errors.Is(err, ErrConnectionClosed) {
				log.Error("Error reading %s message from %s: %v", conn.Type(), conn.RemoteAddr(), err)
			}
			log.Trace("Connection closed for %s", conn.RemoteAddr())
			return
		}

		if !limiter.Allow(message.Type) {
			log.Debug("Rate limited %s from %s", message.Type, conn.RemoteAddr())
			continue
		}

		if client == nil {
			if message.Type != messages.MessageTypeClientLogin {
				log.Warn("Received %s from %s before login", message.Type, conn.RemoteAddr())
				continue
			}
			c, err := n.handleClientLogin(ctx, conn, message)
			if err != nil {
				log.Warn("Login from %s failed: %v", conn.RemoteAddr(), err)
				if err := n.sendServerLoginFailure(conn, err); err != nil {
					log.Error("Failed to send server login failure: %v", err)
				}
				continue
			}
			client = c
			log.Info("Player %s logged in over %s (session %s)", client.UID, conn.Type(), client.SessionID)
			if err := n.sendServerLoginSuccess(client); err != nil {
				log.Error("Failed to send server login success: %v", err)
			}
			continue
		}

		if message.Type == messages.MessageTypeClientLogin {
			log.Debug("Ignoring repeated login from %s", client.UID)
			continue
		}

		message.PlayerUID = client.UID
		if err := n.MessageQueue.Enqueue(message); err != nil {
			log.Error("Failed to enqueue message: %v", err)
		}
	}
}

// unlimitedMessageTypes answer or withdraw from something already in
// flight. Dropping one would leave a handshake or party change half applied.
var unlimitedMessageTypes = map[messages.MessageType]bool{
	messages.MessageTypeClientTeleportResponse:    true,
	messages.MessageTypeClientPartyInviteResponse: true,
	messages.MessageTypeClientPartyLeave:          true,
	messages.MessageTypeClientPartyKick:           true,
	messages.MessageTypeClientPartyMakeLead:       true,
	messages.MessageTypeClientSilencePlayer:       true,
}

// inboundLimiter gives position updates their own budget so a chatty host
// bridge cannot starve requests sharing the connection.
type inboundLimiter struct {
	general *rate.Limiter
	updates *rate.Limiter
}

func (n *NetworkManager) newInboundLimiter() *inboundLimiter {
	return &inboundLimiter{
		general: rate.NewLimiter(n.inboundRate, n.inboundBurst),
		updates: rate.NewLimiter(n.inboundRate, n.inboundBurst),
	}
}

func (l *inboundLimiter) Allow(t messages.MessageType) bool {
	switch {
	case unlimitedMessageTypes[t]:
		return true
	case t == messages.MessageTypeClientPlayerUpdate:
		return l.updates.Allow()
	default:
		return l.general.Allow()
	}
}

// handleClientLogin verifies the login token and registers the client.
func (n *NetworkManager) handleClientLogin(ctx context.Context, conn Conn, message *messages.Message) (*Client, error) {
	clientLogin := &messages.ClientLogin{}
	if err := n.Codec.Unmarshal(message.Payload, clientLogin); err != nil {
		return nil, fmt.Errorf("failed to unmarshal client login: %v", err)
	}

	token, err := n.AuthProvider.VerifyToken(ctx, clientLogin.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to verify token: %w", err)
	}

	name := strings.TrimSpace(clientLogin.Name)
	if name == "" {
		name = token.Name
	}
	if runes := []rune(name); len(runes) > maxNameLength {
		name = string(runes[:maxNameLength])
	}
	if name == "" {
		name = token.UID
	}

	return n.ClientManager.ConnectClient(conn, token.UID, name), nil
}

func (n *NetworkManager) sendServerLoginSuccess(client *Client) error {
	msg, err := messages.NewMessage(n.Codec, "", messages.MessageTypeServerLoginSuccess, &messages.ServerLoginSuccess{
		UID:       client.UID,
		SessionID: client.SessionID.String(),
	})
	if err != nil {
		return err
	}

	if err := client.Write(msg); err != nil {
		return fmt.Errorf("failed to send server login success: %v", err)
	}

	return nil
}

func (n *NetworkManager) sendServerLoginFailure(conn Conn, loginErr error) error {
	reason := "Login failed."
	if errors.Is(loginErr, authproviders.ErrInvalidToken) {
		reason = "Invalid token."
	}
	msg, err := messages.NewMessage(n.Codec, "", messages.MessageTypeServerLoginFailure, &messages.ServerLoginFailure{
		Reason: reason,
	})
	if err != nil {
		return err
	}

	if err := conn.WriteMessage(msg); err != nil {
		return fmt.Errorf("failed to send server login failure: %v", err)
	}

	return nil
}

// SendReliableMessageToClient sends msg to the client logged in as uid.
func (n *NetworkManager) SendReliableMessageToClient(ctx context.Context, uid string, msg *messages.Message) error {
	client, err := n.ClientManager.GetClient(uid)
	if err != nil {
		return fmt.Errorf("failed to get client %s: %w", uid, err)
	}

	if err := client.Write(msg); err != nil {
		return fmt.Errorf("failed to send reliable message to client %s: %v", uid, err)
	}

	return nil
}
