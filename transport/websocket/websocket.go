// Package websocket implements a duplex Transport over a single
// gorilla/websocket connection: every JSON-RPC message is sent as one text
// frame, giving natural message-at-a-time framing without a line delimiter.
package websocket

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/metoro-io/mcp-golang/transport"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Transport wraps a single websocket connection as a transport.Transport.
type Transport struct {
	conn *websocket.Conn

	writeMu sync.Mutex
	closeMu sync.Mutex
	closed  bool
}

// New wraps an already-established websocket connection (client or server
// side — gorilla/websocket connections are symmetric after the handshake).
func New(conn *websocket.Conn) *Transport {
	return &Transport{conn: conn}
}

// Dial opens a client-side websocket connection to url.
func Dial(ctx context.Context, url string) (*Transport, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "websocket: dial")
	}
	return New(conn), nil
}

// Send writes msg as a single text frame. Concurrent Sends are serialized,
// since a gorilla/websocket connection permits only one writer at a time.
func (t *Transport) Send(ctx context.Context, msg *transport.Message) error {
	t.closeMu.Lock()
	closed := t.closed
	t.closeMu.Unlock()
	if closed {
		return transport.ErrClosed
	}

	data, err := msg.MarshalJSON()
	if err != nil {
		return errors.Wrap(err, "websocket: marshal message")
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if err := t.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return errors.Wrap(err, "websocket: write")
	}
	return nil
}

// Receive reads the next text frame and decodes it. A malformed frame is
// reported as a *transport.ParseError so the endpoint can log and continue
// rather than tearing down the connection. After Close it returns
// transport.EOF. ctx is not observed: a call blocks until a frame arrives
// or the connection fails.
func (t *Transport) Receive(ctx context.Context) (*transport.Message, error) {
	t.closeMu.Lock()
	closed := t.closed
	t.closeMu.Unlock()
	if closed {
		return nil, transport.EOF
	}
	_, data, err := t.conn.ReadMessage()
	if err != nil {
		t.closeMu.Lock()
		closed = t.closed
		t.closeMu.Unlock()
		if closed || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return nil, transport.EOF
		}
		return nil, errors.Wrap(err, "websocket: read")
	}
	msg, err := transport.DecodeMessage(data)
	if err != nil {
		return nil, &transport.ParseError{Err: err}
	}
	return msg, nil
}

// Close closes the underlying connection. Idempotent.
func (t *Transport) Close() error {
	t.closeMu.Lock()
	defer t.closeMu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	return t.conn.Close()
}
