package ws

import "errors"

var (
	ErrMalformed      = errors.New("malformed message")
	ErrUnknownMessage = errors.New("unknown message type")
	ErrUnauthorized   = errors.New("credential rejected")
	ErrUnknownSpace   = errors.New("space not found")
	ErrLookupFailed   = errors.New("join lookup failed")
	ErrAlreadyJoined  = errors.New("session already joined")
	ErrNotJoined      = errors.New("session not joined")
	ErrSessionClosed  = errors.New("session closed")
	ErrAlreadyMember  = errors.New("session already in a room")
	ErrSlowConsumer   = errors.New("send buffer full")
	ErrConnClosed     = errors.New("connection closed")
)

// isFatal reports whether err must end the connection without a reply.
func isFatal(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrUnknownSpace) ||
		errors.Is(err, ErrLookupFailed)
}
