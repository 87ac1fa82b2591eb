package sse

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/metoro-io/mcp-golang/transport"
)

// ClientTransport is the client-side end of the SSE duplex: it opens a
// long-lived GET to baseURL+ssePath, learns the POST endpoint from the
// server's first "endpoint" event, and thereafter sends by POSTing to that
// endpoint while reading the stream for "message" events.
type ClientTransport struct {
	httpClient *http.Client
	baseURL    string
	ssePath    string

	mu          sync.Mutex
	postURL     string
	endpointSet chan struct{}
	closed      bool
	cancel      context.CancelFunc

	inbound chan *transport.Message
	errs    chan error
}

// NewClientTransport creates an SSE client transport. Connect must be
// called before Send/Receive are usable.
func NewClientTransport(baseURL, ssePath string) *ClientTransport {
	return &ClientTransport{
		httpClient:  http.DefaultClient,
		baseURL:     baseURL,
		ssePath:     ssePath,
		endpointSet: make(chan struct{}),
		inbound:     make(chan *transport.Message, 64),
		errs:        make(chan error, 1),
	}
}

// Connect opens the SSE stream and starts the background reader. It blocks
// until the server's "endpoint" event has been received or ctx is done.
func (c *ClientTransport) Connect(ctx context.Context) error {
	streamCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, c.baseURL+c.ssePath, nil)
	if err != nil {
		cancel()
		return errors.Wrap(err, "sse: build GET request")
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		cancel()
		return errors.Wrap(err, "sse: connect")
	}

	go c.readLoop(resp.Body)

	select {
	case <-c.endpointSet:
		return nil
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	}
}

func (c *ClientTransport) readLoop(body io.ReadCloser) {
	scanner := bufio.NewScanner(body)
	var event, data string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "":
			c.handleEvent(event, data)
			event, data = "", ""
		}
	}
	_ = body.Close()
	close(c.inbound)
}

func (c *ClientTransport) handleEvent(event, data string) {
	switch event {
	case "endpoint":
		c.mu.Lock()
		if c.postURL == "" {
			c.postURL = data
			close(c.endpointSet)
		}
		c.mu.Unlock()
	case "message":
		msg, err := transport.DecodeMessage([]byte(data))
		if err != nil {
			select {
			case c.errs <- &transport.ParseError{Err: err}:
			default:
			}
			return
		}
		c.inbound <- msg
	}
}

// Send POSTs msg to the endpoint URL learned during Connect, resolved
// against baseURL.
func (c *ClientTransport) Send(ctx context.Context, msg *transport.Message) error {
	c.mu.Lock()
	closed := c.closed
	postURL := c.postURL
	c.mu.Unlock()
	if closed {
		return transport.ErrClosed
	}
	if postURL == "" {
		return errors.New("sse: not connected")
	}

	data, err := marshalMessage(msg)
	if err != nil {
		return err
	}
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return errors.Wrap(err, "sse: parse base URL")
	}
	ref, err := url.Parse(postURL)
	if err != nil {
		return errors.Wrap(err, "sse: parse endpoint URL")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base.ResolveReference(ref).String(), bytes.NewReader(data))
	if err != nil {
		return errors.Wrap(err, "sse: build POST request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "sse: send")
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return errors.Errorf("sse: server rejected message: %s", resp.Status)
	}
	return nil
}

// Receive returns the next message read off the SSE stream.
func (c *ClientTransport) Receive(ctx context.Context) (*transport.Message, error) {
	select {
	case msg, ok := <-c.inbound:
		if !ok {
			return nil, transport.EOF
		}
		return msg, nil
	case err := <-c.errs:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops the background reader and marks the transport closed.
func (c *ClientTransport) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}

func marshalMessage(msg *transport.Message) ([]byte, error) {
	data, err := msg.MarshalJSON()
	if err != nil {
		return nil, errors.Wrap(err, "sse: marshal message")
	}
	return data, nil
}
