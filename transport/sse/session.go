// Package sse implements the HTTP+SSE duplex transport: the server streams
// messages to the client over a long-lived Server-Sent Events connection,
// and the client sends messages back as HTTP POST bodies against an
// endpoint URL the server hands out in its first SSE event. Routing for the
// server side is done with gorilla/mux, matching the rest of this module's
// HTTP-facing pieces.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/metoro-io/mcp-golang/transport"
)

const maxMessageSize = 4 * 1024 * 1024 // 4MB, guards against a runaway POST body

// Session is the server-side end of one client's SSE connection. It
// implements transport.Transport: Send streams an SSE "message" event,
// Receive drains POST bodies submitted against this session's message
// endpoint.
type Session struct {
	id          string
	messagePath string

	w       http.ResponseWriter
	flusher http.Flusher

	mu       sync.Mutex
	started  bool
	closed   bool
	inbound  chan *transport.Message
	closeErr error
}

// newSession wires an SSE response writer into a Session. messagePath is
// the URL path the client must POST to (without the sessionId query
// parameter, which the caller appends).
func newSession(messagePath string, w http.ResponseWriter) (*Session, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("sse: response writer does not support streaming")
	}
	return &Session{
		id:          uuid.New().String(),
		messagePath: messagePath,
		w:           w,
		flusher:     flusher,
		inbound:     make(chan *transport.Message, 64),
	}, nil
}

// ID returns the session identifier embedded in the endpoint URL.
func (s *Session) ID() string { return s.id }

// start sends the initial "endpoint" SSE event advertising where the client
// should POST subsequent messages.
func (s *Session) start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.New("sse: session already started")
	}
	h := s.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")

	endpointURL := fmt.Sprintf("%s?sessionId=%s", s.messagePath, s.id)
	if err := s.writeEvent("endpoint", endpointURL); err != nil {
		return err
	}
	s.started = true
	return nil
}

func (s *Session) writeEvent(event, data string) error {
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return errors.Wrap(err, "sse: write event")
	}
	s.flusher.Flush()
	return nil
}

// Send streams msg to the client as an SSE "message" event.
func (s *Session) Send(ctx context.Context, msg *transport.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return transport.ErrClosed
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "sse: marshal message")
	}
	return s.writeEvent("message", string(data))
}

// deliver is called by the mux POST handler for this session's message
// endpoint; it decodes the body and makes it available to Receive.
func (s *Session) deliver(body []byte) error {
	msg, err := transport.DecodeMessage(body)
	if err != nil {
		return &transport.ParseError{Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return transport.ErrClosed
	}
	s.inbound <- msg
	return nil
}

// Receive blocks for the next message POSTed to this session.
func (s *Session) Receive(ctx context.Context) (*transport.Message, error) {
	select {
	case msg, ok := <-s.inbound:
		if !ok {
			return nil, transport.EOF
		}
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close marks the session closed: Receive returns EOF once queued messages
// are drained, and Send and further POSTs fail with ErrClosed. It does not
// end the HTTP response; the SSE stream stays open until the client's
// request ends.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.inbound)
	return nil
}
