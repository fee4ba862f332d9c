package network

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/cbodonnell/buddybeacon/pkg/log"
	"github.com/cbodonnell/buddybeacon/pkg/messages"
)

const (
	frameHeaderSize = 4
	// MaxFrameSize bounds a compressed envelope. zstd can grow incompressible
	// input slightly, so it is larger than messages.MaxMessageSize.
	MaxFrameSize = 2 * messages.MaxMessageSize
)

// TCPServer represents a TCP server.
type TCPServer struct {
	port int
}

type NewTCPServerOptions struct {
	Port int
}

// NewTCPServer creates a new TCP server.
func NewTCPServer(opts NewTCPServerOptions) *TCPServer {
	return &TCPServer{
		port: opts.Port,
	}
}

// Start starts the TCP server.
func (s *TCPServer) Start(ctx context.Context, handler ConnectionHandler) {
	addr := fmt.Sprintf(":%d", s.port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Error("Failed to listen on TCP address: %v", err)
		return
	}
	log.Info("TCP server listening on %s", listener.Addr().String())

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				log.Info("TCP server closed")
				return
			}
			log.Error("Failed to accept TCP connection: %v", err)
			continue
		}

		log.Debug("New TCP connection from %s", conn.RemoteAddr().String())
		go handler(ctx, NewTCPConn(conn))
	}
}

// TCPConn frames messages on a stream with a 4-byte big-endian length prefix.
type TCPConn struct {
	conn net.Conn
}

func NewTCPConn(conn net.Conn) *TCPConn {
	return &TCPConn{conn: conn}
}

func (c *TCPConn) ReadMessage() (*messages.Message, error) {
	return ReadMessageFromTCP(c.conn)
}

func (c *TCPConn) WriteMessage(msg *messages.Message) error {
	return WriteMessageToTCP(c.conn, msg)
}

func (c *TCPConn) Close() error {
	return c.conn.Close()
}

func (c *TCPConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

func (c *TCPConn) Type() ConnectionType {
	return ConnectionTypeTCP
}

// WriteMessageToTCP writes a length-prefixed Message to w
func WriteMessageToTCP(w io.Writer, msg *messages.Message) error {
	b, err := messages.SerializeMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to serialize message: %v", err)
	}
	if len(b) > MaxFrameSize {
		return fmt.Errorf("failed to write %s: %w", msg.Type, ErrFrameTooLarge)
	}

	frame := make([]byte, frameHeaderSize+len(b))
	binary.BigEndian.PutUint32(frame, uint32(len(b)))
	copy(frame[frameHeaderSize:], b)

	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("failed to write message to TCP connection: %v", err)
	}

	return nil
}

// ReadMessageFromTCP reads a length-prefixed Message from r
func ReadMessageFromTCP(r io.Reader) (*messages.Message, error) {
	var header [frameHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
			return nil, ErrConnectionClosed
		}
		return nil, fmt.Errorf("failed to read frame header: %v", err)
	}

	size := binary.BigEndian.Uint32(header[:])
	if size > MaxFrameSize {
		return nil, fmt.Errorf("frame of %d bytes: %w", size, ErrFrameTooLarge)
	}

	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
			return nil, ErrConnectionClosed
		}
		return nil, fmt.Errorf("failed to read frame body: %v", err)
	}

	msg, err := messages.DeserializeMessage(buf)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrInvalidMessage)
	}

	return msg, nil
}
