package transport

import (
	"context"
	"io"

	"github.com/pkg/errors"
)

// Transport is an established duplex session: a framing-independent carrier
// of JSON-RPC messages between this endpoint and exactly one peer.
//
// Contracts: messages are delivered in the order the peer wrote them; the
// transport never interprets message content; Send after Close returns a
// transport error; Receive after Close (or after the peer's stream ends)
// returns io.EOF.
type Transport interface {
	// Send writes a single message and waits for it to be handed to the
	// underlying carrier. Implementations must serialize concurrent Sends so
	// that a single frame is never interleaved with another.
	Send(ctx context.Context, msg *Message) error

	// Receive blocks until the next inbound message is available, the
	// context is cancelled, or the peer's stream ends (io.EOF).
	Receive(ctx context.Context) (*Message, error)

	// Close tears down the transport. Close is idempotent.
	Close() error
}

// ServerTransport is a listener that accepts inbound sessions, each yielding
// a Transport. Stdio-based listeners support at most one concurrent Accept
// (a child process owns exactly one stdio pair); stream-based listeners
// (SSE, websocket) support an unbounded number of concurrent sessions.
type ServerTransport interface {
	Accept(ctx context.Context) (Transport, error)
}

// ErrClosed is returned by Send once a transport has been closed locally.
var ErrClosed = errors.New("transport: closed")

// EOF is returned by Receive once the peer's stream has ended, including
// after a local Close.
var EOF = io.EOF

// ParseError wraps a failure to decode a single inbound frame. It is
// non-fatal: per the stdio framing contract (and the transport contract in
// general), a malformed line is logged and discarded, and the read loop
// keeps going. Transports that can recognize a malformed-but-bounded frame
// (a single line, a single SSE event, a single websocket frame) should
// return *ParseError from Receive instead of treating it as a fatal read
// error.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return "transport: malformed message: " + e.Err.Error() }
func (e *ParseError) Unwrap() error { return e.Err }
