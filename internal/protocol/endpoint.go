// Package protocol implements the core of an MCP endpoint: the
// request/response correlator, handler registries, background read loop,
// and cancellation propagation shared by both the client and server roles.
// It is the Go counterpart of this SDK lineage's internal/protocol.Protocol,
// generalized to a tagged RequestId, multi-handler notifications, and
// symmetric inbound cancellation.
package protocol

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/tidwall/sjson"

	"github.com/metoro-io/mcp-golang/transport"
)

// RequestHandler deserializes params, runs user code, and returns a result
// to be marshaled back to the caller. Returning an *RPCError (errors.go;
// the mcp package re-exports it) sends that error's code, message and
// data verbatim; any other error becomes InternalError.
type RequestHandler func(ctx context.Context, method string, params json.RawMessage) (interface{}, error)

// NotificationHandler reacts to a one-way message. Multiple handlers for
// the same method run in registration order; an error from one does not
// prevent the rest from running.
type NotificationHandler func(ctx context.Context, method string, params json.RawMessage) error

// Logger is the narrow logging surface the endpoint needs; mcplog.Logger
// satisfies it, and so does any *log.Logger-shaped adapter.
type Logger interface {
	Debugf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Debugf(string, ...interface{}) {}
func (noopLogger) Errorf(string, ...interface{}) {}

// Metrics is the narrow instrumentation surface the endpoint drives;
// mcpmetrics.Recorder satisfies it. A nil Metrics disables instrumentation
// entirely.
type Metrics interface {
	RequestStarted(method string) (done func())
	NotificationDispatched(method string)
	HandlerError(code int)
	PendingOutboundSet(n int)
}

type noopMetrics struct{}

func (noopMetrics) RequestStarted(string) func() { return func() {} }
func (noopMetrics) NotificationDispatched(string) {}
func (noopMetrics) HandlerError(int)              {}
func (noopMetrics) PendingOutboundSet(int)         {}

type responseEnvelope struct {
	result json.RawMessage
	err    error
}

// Endpoint is the shared JSON-RPC engine underlying both the client and
// server roles. A single Endpoint owns its transport for the endpoint's
// lifetime.
type Endpoint struct {
	tr      transport.Transport
	logger  Logger
	metrics Metrics

	writeMu sync.Mutex // serializes outbound frames, one per call to Send

	mu                   sync.RWMutex
	nextID               int64
	pending              map[transport.RequestId]chan responseEnvelope
	inboundCancel        map[transport.RequestId]context.CancelFunc
	requestHandlers      map[string]RequestHandler
	notificationHandlers map[string][]NotificationHandler

	wg     sync.WaitGroup // outstanding inbound handler goroutines
	closed bool
	readWG sync.WaitGroup // the read loop itself
}

// New creates an Endpoint bound to tr. Call Run (typically in its own
// goroutine) to start reading.
func New(tr transport.Transport, logger Logger) *Endpoint {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Endpoint{
		tr:                   tr,
		logger:               logger,
		metrics:              noopMetrics{},
		nextID:               1,
		pending:              make(map[transport.RequestId]chan responseEnvelope),
		inboundCancel:        make(map[transport.RequestId]context.CancelFunc),
		requestHandlers:      make(map[string]RequestHandler),
		notificationHandlers: make(map[string][]NotificationHandler),
	}
}

// SetMetrics installs m as the endpoint's instrumentation sink. It is not
// safe to call concurrently with traffic; set it right after New.
func (e *Endpoint) SetMetrics(m Metrics) {
	if m == nil {
		m = noopMetrics{}
	}
	e.metrics = m
}

// SetRequestHandler registers the handler for method, replacing any prior
// registration — last registration wins, per the data model's handler
// registry invariant.
func (e *Endpoint) SetRequestHandler(method string, h RequestHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.requestHandlers[method] = h
}

// RemoveRequestHandler drops the handler for method, if any.
func (e *Endpoint) RemoveRequestHandler(method string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.requestHandlers, method)
}

// AddNotificationHandler appends h to method's ordered handler list.
func (e *Endpoint) AddNotificationHandler(method string, h NotificationHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notificationHandlers[method] = append(e.notificationHandlers[method], h)
}

// Run drives the read loop until the transport's stream ends, Close is
// called, or ctx is cancelled. It returns nil on orderly end-of-stream.
func (e *Endpoint) Run(ctx context.Context) error {
	e.readWG.Add(1)
	defer e.readWG.Done()
	defer e.teardown()

	for {
		msg, err := e.tr.Receive(ctx)
		if err != nil {
			var parseErr *transport.ParseError
			if errors.As(err, &parseErr) {
				e.logger.Errorf("protocol: malformed inbound message: %v", err)
				continue
			}
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				return nil
			}
			e.logger.Errorf("protocol: read failed: %v", err)
			return err
		}

		switch msg.Kind {
		case transport.KindResponse:
			e.handleResponse(msg.Response)
		case transport.KindNotification:
			e.dispatchNotification(msg.Notification)
		case transport.KindRequest:
			e.dispatchRequest(msg.Request)
		}
	}
}

func (e *Endpoint) handleResponse(resp *transport.Response) {
	e.mu.Lock()
	ch, ok := e.pending[resp.ID]
	if ok {
		delete(e.pending, resp.ID)
	}
	e.mu.Unlock()

	if !ok {
		e.logger.Debugf("protocol: response for unknown request id %s dropped", resp.ID.String())
		return
	}

	if resp.Error != nil {
		ch <- responseEnvelope{err: resp.Error}
	} else {
		ch <- responseEnvelope{result: resp.Result}
	}
}

func (e *Endpoint) dispatchNotification(n *transport.Notification) {
	if n.Method == "notifications/cancelled" {
		e.handleCancelledNotification(n)
	}

	e.metrics.NotificationDispatched(n.Method)

	e.mu.RLock()
	handlers := append([]NotificationHandler(nil), e.notificationHandlers[n.Method]...)
	e.mu.RUnlock()
	if len(handlers) == 0 {
		return
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx := context.Background()
		for _, h := range handlers {
			if err := h(ctx, n.Method, n.Params); err != nil {
				e.logger.Errorf("protocol: notification handler for %s failed: %v", n.Method, err)
			}
		}
	}()
}

func (e *Endpoint) handleCancelledNotification(n *transport.Notification) {
	var params struct {
		RequestId transport.RequestId `json:"requestId"`
		Reason    string              `json:"reason"`
	}
	if err := json.Unmarshal(n.Params, &params); err != nil {
		e.logger.Errorf("protocol: malformed notifications/cancelled: %v", err)
		return
	}

	e.mu.Lock()
	cancel, ok := e.inboundCancel[params.RequestId]
	e.mu.Unlock()
	if ok {
		cancel()
	}
}

func (e *Endpoint) dispatchRequest(req *transport.Request) {
	e.mu.RLock()
	handler, ok := e.requestHandlers[req.Method]
	e.mu.RUnlock()

	ctx, cancel := context.WithCancel(context.Background())
	e.mu.Lock()
	e.inboundCancel[req.ID] = cancel
	e.mu.Unlock()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		metricsDone := e.metrics.RequestStarted(req.Method)
		defer func() {
			e.mu.Lock()
			delete(e.inboundCancel, req.ID)
			e.mu.Unlock()
			cancel()
			metricsDone()
		}()

		if !ok {
			e.writeErrorResponse(req.ID, MethodNotFoundCode, "method not found: "+req.Method, nil)
			return
		}

		result, err := handler(ctx, req.Method, req.Params)
		if err != nil {
			e.writeHandlerError(req.ID, err)
			return
		}

		resultJSON, err := json.Marshal(result)
		if err != nil {
			e.writeErrorResponse(req.ID, InternalErrorCode, "failed to marshal result: "+err.Error(), nil)
			return
		}
		e.writeResponse(req.ID, resultJSON)
	}()
}

// writeHandlerError converts a handler error into a wire response. A
// *RPCError carries its own code/data and is sent verbatim; anything else
// becomes InternalError with the original message.
func (e *Endpoint) writeHandlerError(id transport.RequestId, err error) {
	var coded *RPCError
	if errors.As(err, &coded) {
		e.metrics.HandlerError(coded.Code)
		e.writeErrorResponse(id, coded.Code, coded.Message, coded.Data)
		return
	}
	e.metrics.HandlerError(InternalErrorCode)
	e.writeErrorResponse(id, InternalErrorCode, err.Error(), nil)
}

func (e *Endpoint) writeResponse(id transport.RequestId, result json.RawMessage) {
	msg := transport.NewResponseMessage(&transport.Response{
		JSONRPC: transport.JSONRPCVersion,
		ID:      id,
		Result:  result,
	})
	if err := e.send(context.Background(), msg); err != nil {
		e.logger.Errorf("protocol: failed to send response: %v", err)
	}
}

func (e *Endpoint) writeErrorResponse(id transport.RequestId, code int, message string, data interface{}) {
	msg := transport.NewResponseMessage(&transport.Response{
		JSONRPC: transport.JSONRPCVersion,
		ID:      id,
		Error:   &transport.ErrorObject{Code: code, Message: message, Data: data},
	})
	if err := e.send(context.Background(), msg); err != nil {
		e.logger.Errorf("protocol: failed to send error response: %v", err)
	}
}

// SendRequest allocates a new, strictly increasing positive request id,
// writes the request, and waits for the matching response or for ctx to be
// cancelled. Cancellation sends notifications/cancelled and fails the
// caller with ctx.Err(), per §4.2/§5.
func (e *Endpoint) SendRequest(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrEndpointClosed
	}
	id := transport.NewRequestId(e.nextID)
	e.nextID++
	ch := make(chan responseEnvelope, 1)
	e.pending[id] = ch
	e.metrics.PendingOutboundSet(len(e.pending))
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		delete(e.pending, id)
		e.metrics.PendingOutboundSet(len(e.pending))
		e.mu.Unlock()
	}()

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, errors.Wrap(err, "protocol: marshal params")
	}

	req := transport.NewRequestMessage(&transport.Request{
		JSONRPC: transport.JSONRPCVersion,
		ID:      id,
		Method:  method,
		Params:  paramsJSON,
	})
	if err := e.send(ctx, req); err != nil {
		return nil, errors.Wrap(err, "protocol: send request")
	}

	select {
	case env := <-ch:
		return env.result, env.err
	case <-ctx.Done():
		e.sendCancelNotification(id, ctx.Err().Error())
		return nil, ctx.Err()
	}
}

func (e *Endpoint) sendCancelNotification(id transport.RequestId, reason string) {
	params, err := json.Marshal(struct {
		RequestId transport.RequestId `json:"requestId"`
		Reason    string              `json:"reason"`
	}{RequestId: id, Reason: reason})
	if err != nil {
		e.logger.Errorf("protocol: failed to marshal cancellation: %v", err)
		return
	}

	notif := transport.NewNotificationMessage(&transport.Notification{
		JSONRPC: transport.JSONRPCVersion,
		Method:  "notifications/cancelled",
		Params:  params,
	})
	if err := e.send(context.Background(), notif); err != nil {
		e.logger.Errorf("protocol: failed to send cancellation: %v", err)
	}
}

// SendNotification writes a one-way message; it does not expect a response.
func (e *Endpoint) SendNotification(ctx context.Context, method string, params interface{}) error {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return ErrEndpointClosed
	}

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return errors.Wrap(err, "protocol: marshal params")
	}
	notif := transport.NewNotificationMessage(&transport.Notification{
		JSONRPC: transport.JSONRPCVersion,
		Method:  method,
		Params:  paramsJSON,
	})
	return e.send(ctx, notif)
}

// send serializes writes through a single mutex so that byte-oriented
// transports never interleave two frames, per §5.
func (e *Endpoint) send(ctx context.Context, msg *transport.Message) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	return e.tr.Send(ctx, msg)
}

// WithProgressToken injects params["_meta"]["progressToken"] = token into an
// already-marshaled params payload, per the progress-token wire contract in
// §4.6/§9. Used by callers that want progress notifications tied to a
// specific outbound request.
func WithProgressToken(params json.RawMessage, token interface{}) (json.RawMessage, error) {
	if len(params) == 0 {
		params = []byte(`{}`)
	}
	tokenJSON, err := json.Marshal(token)
	if err != nil {
		return nil, errors.Wrap(err, "protocol: marshal progress token")
	}
	out, err := sjson.SetRawBytes(params, "_meta.progressToken", tokenJSON)
	if err != nil {
		return nil, errors.Wrap(err, "protocol: inject progress token")
	}
	return out, nil
}

// Close tears down the endpoint: it closes the transport, cancels every
// inbound handler's token, fails every pending outbound request with
// ErrEndpointClosed, and waits (bounded) for the read loop and any
// in-flight handlers to finish. Handler registries are left intact so the
// endpoint could in principle be reconnected.
func (e *Endpoint) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	closeErr := e.tr.Close()
	e.teardown()

	done := make(chan struct{})
	go func() {
		e.readWG.Wait()
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		e.logger.Errorf("protocol: timed out waiting for read loop to drain")
	}

	return closeErr
}

func (e *Endpoint) teardown() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, cancel := range e.inboundCancel {
		cancel()
	}
	e.inboundCancel = make(map[transport.RequestId]context.CancelFunc)

	for id, ch := range e.pending {
		ch <- responseEnvelope{err: ErrEndpointClosed}
		delete(e.pending, id)
	}
}
