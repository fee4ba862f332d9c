package workers

import (
	"context"
	"errors"

	"github.com/cbodonnell/buddybeacon/pkg/log"
	"github.com/cbodonnell/buddybeacon/pkg/messages"
	"github.com/cbodonnell/buddybeacon/pkg/network"
)

// ServerMessageChannelSize is the number of outbound messages buffered
// between the game loop and the network.
const ServerMessageChannelSize = 4096

// MessageSender delivers an encoded message to one connected player.
type MessageSender interface {
	SendReliableMessageToClient(ctx context.Context, uid string, msg *messages.Message) error
}

// ServerMessageWorker encodes messages produced by the game loop and writes
// them to the network off the game loop.
type ServerMessageWorker struct {
	sender            MessageSender
	codec             messages.Codec
	serverMessageChan chan ServerMessage
}

type ServerMessage struct {
	UID     string
	Type    messages.MessageType
	Message interface{}
}

type NewServerMessageWorkerOptions struct {
	Sender MessageSender
	Codec  messages.Codec
	// BufferSize defaults to ServerMessageChannelSize.
	BufferSize int
}

func NewServerMessageWorker(opts NewServerMessageWorkerOptions) *ServerMessageWorker {
	size := opts.BufferSize
	if size <= 0 {
		size = ServerMessageChannelSize
	}
	codec := opts.Codec
	if codec == nil {
		codec = messages.JSONCodec{}
	}
	return &ServerMessageWorker{
		sender:            opts.Sender,
		codec:             codec,
		serverMessageChan: make(chan ServerMessage, size),
	}
}

// Send queues a message for uid. It never blocks: when the buffer is full
// the message is dropped.
func (w *ServerMessageWorker) Send(uid string, t messages.MessageType, payload interface{}) {
	select {
	case w.serverMessageChan <- ServerMessage{UID: uid, Type: t, Message: payload}:
	default:
		log.Warn("Dropped %s for %s, server message buffer full", t, uid)
	}
}

func (w *ServerMessageWorker) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-w.serverMessageChan:
			if err := w.handleServerMessage(ctx, msg); err != nil {
				log.Error("Failed to handle server message %s: %v", msg.Type, err)
			}
		}
	}
}

func (w *ServerMessageWorker) handleServerMessage(ctx context.Context, msg ServerMessage) error {
	m, err := messages.NewMessage(w.codec, "", msg.Type, msg.Message)
	if err != nil {
		return err
	}

	if err := w.sender.SendReliableMessageToClient(ctx, msg.UID, m); err != nil {
		if errors.Is(err, network.ErrClientNotFound) {
			log.Debug("Dropped %s for %s, client is gone", msg.Type, msg.UID)
			return nil
		}
		return err
	}

	log.Trace("Sent %s to %s", msg.Type, msg.UID)
	return nil
}
