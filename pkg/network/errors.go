package network

import "errors"

var (
	// ErrConnectionClosed is returned when the peer closed the connection
	ErrConnectionClosed = errors.New("connection closed")
	// ErrInvalidMessage is returned for a well-framed message that could not
	// be decoded. The connection stays usable.
	ErrInvalidMessage = errors.New("invalid message")
	// ErrFrameTooLarge is returned when a TCP frame exceeds MaxFrameSize.
	ErrFrameTooLarge = errors.New("frame too large")
)
