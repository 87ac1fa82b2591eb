package sse

import (
	"context"
	"io"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/metoro-io/mcp-golang/transport"
)

// Listener implements transport.ServerTransport over HTTP: a GET on the SSE
// path opens a new session and streams responses; a POST on the message
// path (carrying ?sessionId=...) feeds that session's inbound queue.
//
// Listener owns an *http.Server; call Serve to start
// accepting TCP connections, and Accept to drain newly-established MCP
// sessions in the order their SSE stream opened.
type Listener struct {
	ssePath     string
	messagePath string

	router *mux.Router
	server *http.Server

	mu       sync.Mutex
	sessions map[string]*Session
	accepted chan *Session
}

// NewListener builds a Listener that serves the SSE stream at ssePath and
// accepts client POSTs at messagePath.
func NewListener(addr, ssePath, messagePath string) *Listener {
	l := &Listener{
		ssePath:     ssePath,
		messagePath: messagePath,
		router:      mux.NewRouter(),
		sessions:    make(map[string]*Session),
		accepted:    make(chan *Session, 16),
	}
	l.router.HandleFunc(ssePath, l.handleSSE).Methods(http.MethodGet)
	l.router.HandleFunc(messagePath, l.handlePost).Methods(http.MethodPost)
	l.server = &http.Server{Addr: addr, Handler: l.router}
	return l
}

// Router exposes the underlying mux.Router so callers can mount additional
// routes (health checks, metrics) alongside the MCP endpoints.
func (l *Listener) Router() *mux.Router { return l.router }

// Serve starts the HTTP server; it blocks until the server stops.
func (l *Listener) Serve() error {
	err := l.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the HTTP server and closes all open sessions.
func (l *Listener) Shutdown(ctx context.Context) error {
	l.mu.Lock()
	for _, s := range l.sessions {
		_ = s.Close()
	}
	l.mu.Unlock()
	return l.server.Shutdown(ctx)
}

func (l *Listener) handleSSE(w http.ResponseWriter, r *http.Request) {
	session, err := newSession(l.messagePath, w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := session.start(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	l.mu.Lock()
	l.sessions[session.ID()] = session
	l.mu.Unlock()

	select {
	case l.accepted <- session:
	case <-r.Context().Done():
	}

	<-r.Context().Done()

	l.mu.Lock()
	delete(l.sessions, session.ID())
	l.mu.Unlock()
	_ = session.Close()
}

func (l *Listener) handlePost(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	l.mu.Lock()
	session, ok := l.sessions[sessionID]
	l.mu.Unlock()
	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxMessageSize))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if err := session.deliver(body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// Accept returns the next session whose SSE stream has been established.
func (l *Listener) Accept(ctx context.Context) (transport.Transport, error) {
	select {
	case s, ok := <-l.accepted:
		if !ok {
			return nil, errors.New("sse: listener closed")
		}
		return s, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
