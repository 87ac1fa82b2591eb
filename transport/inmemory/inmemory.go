// Package inmemory provides a zero-network Transport pair: two ends of a
// pipe, each implementing transport.Transport, suitable for wiring a client
// and server together in one process (used by this module's own endpoint
// tests, and grounded in the stateless local transport pattern used to test
// MCP servers without a real process boundary).
package inmemory

import (
	"context"
	"sync"

	"github.com/metoro-io/mcp-golang/transport"
)

// Pair returns two linked Transports: messages sent on one arrive on the
// other's Receive, in send order.
func Pair() (a, b transport.Transport) {
	ab := make(chan *transport.Message, 64)
	ba := make(chan *transport.Message, 64)
	t1 := &pipeEnd{send: ab, recv: ba}
	t2 := &pipeEnd{send: ba, recv: ab}
	t1.peer, t2.peer = t2, t1
	return t1, t2
}

type pipeEnd struct {
	mu     sync.Mutex
	send   chan *transport.Message
	recv   chan *transport.Message
	peer   *pipeEnd
	closed bool
}

func (p *pipeEnd) Send(ctx context.Context, msg *transport.Message) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return transport.ErrClosed
	}
	select {
	case p.send <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *pipeEnd) Receive(ctx context.Context) (*transport.Message, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, transport.EOF
	}
	select {
	case msg, ok := <-p.recv:
		if !ok {
			return nil, transport.EOF
		}
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *pipeEnd) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	close(p.send)
	return nil
}
