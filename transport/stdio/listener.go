package stdio

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/metoro-io/mcp-golang/transport"
)

// Listener implements transport.ServerTransport over the process's own
// stdio pair. A child process speaks for exactly one session, so Accept may
// be called exactly once; a second call fails.
type Listener struct {
	mu       sync.Mutex
	accepted bool
}

// NewListener creates a stdio listener bound to the process's real stdin/
// stdout.
func NewListener() *Listener {
	return &Listener{}
}

// Accept returns the single stdio Transport for this process. Calling it
// again returns an error.
func (l *Listener) Accept(ctx context.Context) (transport.Transport, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.accepted {
		return nil, errors.New("stdio: listener already accepted its one session")
	}
	l.accepted = true
	return New(), nil
}
