package websocket

import (
	"context"
	"net/http"

	"github.com/pkg/errors"

	"github.com/metoro-io/mcp-golang/transport"
)

// Listener implements transport.ServerTransport over an HTTP upgrade
// endpoint: each successful upgrade becomes a new session, and there is no
// bound on how many may be outstanding at once, matching the stream-based
// (unbounded-accept) transport shape in §4.1.
type Listener struct {
	path     string
	server   *http.Server
	accepted chan *Transport
}

// NewListener builds a websocket listener bound to addr, serving upgrades
// at path.
func NewListener(addr, path string) *Listener {
	l := &Listener{
		path:     path,
		accepted: make(chan *Transport, 16),
	}
	mux := http.NewServeMux()
	mux.HandleFunc(path, l.handleUpgrade)
	l.server = &http.Server{Addr: addr, Handler: mux}
	return l
}

func (l *Listener) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	select {
	case l.accepted <- New(conn):
	case <-r.Context().Done():
		_ = conn.Close()
	}
}

// Serve starts the HTTP server; it blocks until the server stops.
func (l *Listener) Serve() error {
	err := l.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops accepting new connections.
func (l *Listener) Shutdown(ctx context.Context) error {
	return l.server.Shutdown(ctx)
}

// Accept returns the next upgraded websocket session.
func (l *Listener) Accept(ctx context.Context) (transport.Transport, error) {
	select {
	case t, ok := <-l.accepted:
		if !ok {
			return nil, errors.New("websocket: listener closed")
		}
		return t, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
