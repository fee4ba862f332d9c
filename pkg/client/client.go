package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cbodonnell/buddybeacon/pkg/log"
	"github.com/cbodonnell/buddybeacon/pkg/messages"
	"nhooyr.io/websocket"
)

var ErrLoginFailed = errors.New("login failed")

// MessageHandler is called for every message the cache does not consume.
type MessageHandler func(msg *messages.Message)

// Client is a websocket connection to the server that keeps a BuddyCache up
// to date.
type Client struct {
	conn      *websocket.Conn
	codec     messages.Codec
	cache     *BuddyCache
	onMessage MessageHandler

	uid       string
	sessionID string

	writeLock sync.Mutex
}

type DialOptions struct {
	URL   string
	Token string
	Name  string
	// Codec must match the server's payload codec. Defaults to JSON.
	Codec     messages.Codec
	OnMessage MessageHandler
}

// Dial connects and logs in. It returns once the server accepted or refused
// the login.
func Dial(ctx context.Context, opts DialOptions) (*Client, error) {
	conn, _, err := websocket.Dial(ctx, opts.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %v", opts.URL, err)
	}
	conn.SetReadLimit(2 * messages.MaxMessageSize)

	codec := opts.Codec
	if codec == nil {
		codec = messages.JSONCodec{}
	}
	c := &Client{
		conn:      conn,
		codec:     codec,
		cache:     NewBuddyCache(),
		onMessage: opts.OnMessage,
	}

	if err := c.Send(ctx, messages.MessageTypeClientLogin, &messages.ClientLogin{Token: opts.Token, Name: opts.Name}); err != nil {
		conn.Close(websocket.StatusInternalError, "login")
		return nil, err
	}

	for {
		msg, err := c.read(ctx)
		if err != nil {
			conn.Close(websocket.StatusInternalError, "login")
			return nil, fmt.Errorf("failed to read login response: %v", err)
		}
		switch msg.Type {
		case messages.MessageTypeServerLoginSuccess:
			success := &messages.ServerLoginSuccess{}
			if err := c.Decode(msg, success); err != nil {
				conn.Close(websocket.StatusInternalError, "login")
				return nil, err
			}
			c.uid = success.UID
			c.sessionID = success.SessionID
			log.Info("Logged in as %s (session %s)", c.uid, c.sessionID)
			return c, nil
		case messages.MessageTypeServerLoginFailure:
			failure := &messages.ServerLoginFailure{}
			if err := c.Decode(msg, failure); err != nil {
				failure.Reason = err.Error()
			}
			conn.Close(websocket.StatusNormalClosure, "login failed")
			return nil, fmt.Errorf("%s: %w", failure.Reason, ErrLoginFailed)
		default:
			log.Debug("Ignoring %s before login response", msg.Type)
		}
	}
}

func (c *Client) UID() string           { return c.uid }
func (c *Client) SessionID() string     { return c.sessionID }
func (c *Client) Cache() *BuddyCache    { return c.cache }
func (c *Client) Codec() messages.Codec { return c.codec }

// Send encodes payload and writes it as one binary frame.
func (c *Client) Send(ctx context.Context, t messages.MessageType, payload interface{}) error {
	msg, err := messages.NewMessage(c.codec, "", t, payload)
	if err != nil {
		return err
	}
	b, err := messages.SerializeMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to serialize message: %v", err)
	}

	c.writeLock.Lock()
	defer c.writeLock.Unlock()
	if err := c.conn.Write(ctx, websocket.MessageBinary, b); err != nil {
		return fmt.Errorf("failed to write %s: %v", t, err)
	}
	return nil
}

// Decode unmarshals the payload of msg into v.
func (c *Client) Decode(msg *messages.Message, v interface{}) error {
	if err := c.codec.Unmarshal(msg.Payload, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %v", msg.Type, err)
	}
	return nil
}

// Run reads messages until ctx is done or the connection closes. Beacon
// updates and map pings go to the cache, everything else to OnMessage.
func (c *Client) Run(ctx context.Context) error {
	for {
		msg, err := c.read(ctx)
		if err != nil {
			if ctx.Err() != nil || websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			return err
		}
		c.handle(msg)
	}
}

func (c *Client) handle(msg *messages.Message) {
	switch msg.Type {
	case messages.MessageTypeServerBeaconPosition:
		update := &messages.ServerBeaconPosition{}
		if err := c.Decode(msg, update); err != nil {
			log.Warn("%v", err)
			return
		}
		c.cache.ApplyBeacon(update)
	case messages.MessageTypeServerMapPing:
		ping := &messages.ServerMapPing{}
		if err := c.Decode(msg, ping); err != nil {
			log.Warn("%v", err)
			return
		}
		c.cache.ApplyMapPing(ping)
	default:
		if c.onMessage != nil {
			c.onMessage(msg)
		}
	}
}

func (c *Client) read(ctx context.Context) (*messages.Message, error) {
	for {
		typ, data, err := c.conn.Read(ctx)
		if err != nil {
			return nil, err
		}
		if typ != websocket.MessageBinary {
			log.Debug("Ignoring non-binary websocket frame")
			continue
		}
		msg, err := messages.DeserializeMessage(data)
		if err != nil {
			log.Warn("Dropping undecodable message: %v", err)
			continue
		}
		return msg, nil
	}
}

// Close closes the connection and clears the cache.
func (c *Client) Close() error {
	c.cache.Clear()
	return c.conn.Close(websocket.StatusNormalClosure, "bye")
}
