package mcp

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/metoro-io/mcp-golang/internal/protocol"
	"github.com/metoro-io/mcp-golang/transport"
)

// ClientState is a position in the client's connection state machine:
// Idle → Connecting → Initializing → Ready → Closed.
type ClientState int32

const (
	ClientIdle ClientState = iota
	ClientConnecting
	ClientInitializing
	ClientReady
	ClientClosed
)

// SamplingHandler services sampling/createMessage on behalf of the
// server; required if ClientOptions.Capabilities.Sampling is set.
type SamplingHandler func(ctx context.Context, params CreateMessageParams) (CreateMessageResult, error)

// RootsHandler services roots/list on behalf of the server; required if
// ClientOptions.Capabilities.Roots is set.
type RootsHandler func(ctx context.Context) (RootsListResult, error)

// ClientOptions configures a Client at construction time.
type ClientOptions struct {
	ClientInfo        Implementation
	Capabilities      ClientCapabilities
	SamplingHandler    SamplingHandler
	RootsHandler       RootsHandler
	ProtocolVersion   string // defaults to ProtocolVersion if empty
	InitializeTimeout time.Duration // defaults to 60s if zero
	Logger            protocol.Logger
	Metrics           protocol.Metrics
}

// Client is the initiator half of an MCP session.
type Client struct {
	opts ClientOptions

	state      int32 // ClientState, accessed atomically
	connecting int32 // compare-and-swap guard for connect exclusivity

	endpoint *protocol.Endpoint

	mu           sync.Mutex
	serverInfo   Implementation
	serverCaps   ServerCapabilities
	instructions string
}

// NewClient validates opts — a declared sampling or roots capability
// without its handler is a construction-time error — and returns an idle
// Client.
func NewClient(opts ClientOptions) (*Client, error) {
	if opts.Capabilities.Sampling != nil && opts.SamplingHandler == nil {
		return nil, &CapabilityHandlerMissingError{Capability: "sampling", Method: "sampling/createMessage"}
	}
	if opts.Capabilities.Roots != nil && opts.RootsHandler == nil {
		return nil, &CapabilityHandlerMissingError{Capability: "roots", Method: "roots/list"}
	}
	if opts.ProtocolVersion == "" {
		opts.ProtocolVersion = ProtocolVersion
	}
	if opts.InitializeTimeout == 0 {
		opts.InitializeTimeout = 60 * time.Second
	}
	return &Client{opts: opts, state: int32(ClientIdle)}, nil
}

// State reports the client's current position in the connection state
// machine.
func (c *Client) State() ClientState {
	return ClientState(atomic.LoadInt32(&c.state))
}

// Connect performs the transport connect (already established by the
// caller via tr), starts the read loop, runs the initialize/initialized
// handshake, and verifies the protocol version. It may be called exactly
// once per Client; a concurrent or repeated call fails with
// ErrAlreadyConnected.
func (c *Client) Connect(ctx context.Context, tr transport.Transport) error {
	if !atomic.CompareAndSwapInt32(&c.connecting, 0, 1) {
		return ErrAlreadyConnected
	}
	atomic.StoreInt32(&c.state, int32(ClientConnecting))

	c.endpoint = protocol.New(tr, c.opts.Logger)
	if c.opts.Metrics != nil {
		c.endpoint.SetMetrics(c.opts.Metrics)
	}
	c.installHandlers()

	runCtx, cancelRun := context.WithCancel(context.Background())
	go func() {
		_ = c.endpoint.Run(runCtx)
	}()

	atomic.StoreInt32(&c.state, int32(ClientInitializing))

	initCtx, cancelInit := context.WithTimeout(ctx, c.opts.InitializeTimeout)
	defer cancelInit()

	result, err := c.sendInitialize(initCtx)
	if err != nil {
		cancelRun()
		_ = c.endpoint.Close()
		atomic.StoreInt32(&c.state, int32(ClientClosed))
		if initCtx.Err() != nil {
			return ErrInitializeTimeout
		}
		return err
	}

	if result.ProtocolVersion != c.opts.ProtocolVersion {
		cancelRun()
		_ = c.endpoint.Close()
		atomic.StoreInt32(&c.state, int32(ClientClosed))
		return &VersionMismatchError{Requested: c.opts.ProtocolVersion, Got: result.ProtocolVersion}
	}

	c.mu.Lock()
	c.serverInfo = result.ServerInfo
	c.serverCaps = result.Capabilities
	c.instructions = result.Instructions
	c.mu.Unlock()

	if err := c.endpoint.SendNotification(ctx, "notifications/initialized", struct{}{}); err != nil {
		cancelRun()
		_ = c.endpoint.Close()
		atomic.StoreInt32(&c.state, int32(ClientClosed))
		return err
	}

	atomic.StoreInt32(&c.state, int32(ClientReady))
	return nil
}

func (c *Client) sendInitialize(ctx context.Context) (InitializeResult, error) {
	raw, err := c.endpoint.SendRequest(ctx, "initialize", InitializeParams{
		ProtocolVersion: c.opts.ProtocolVersion,
		Capabilities:    c.opts.Capabilities,
		ClientInfo:      c.opts.ClientInfo,
	})
	if err != nil {
		return InitializeResult{}, err
	}
	var result InitializeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return InitializeResult{}, err
	}
	return result, nil
}

func (c *Client) installHandlers() {
	if c.opts.Capabilities.Sampling != nil {
		c.endpoint.SetRequestHandler("sampling/createMessage", func(ctx context.Context, method string, params json.RawMessage) (interface{}, error) {
			var p CreateMessageParams
			if err := json.Unmarshal(params, &p); err != nil {
				return nil, protocol.NewRPCError(protocol.InvalidParamsCode, err.Error())
			}
			return c.opts.SamplingHandler(ctx, p)
		})
	}
	if c.opts.Capabilities.Roots != nil {
		c.endpoint.SetRequestHandler("roots/list", func(ctx context.Context, method string, params json.RawMessage) (interface{}, error) {
			return c.opts.RootsHandler(ctx)
		})
	}
}

// ServerInfo, ServerCapabilities, and Instructions report what was
// recorded during the handshake; they are the zero value before Connect
// completes.
func (c *Client) ServerInfo() Implementation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serverInfo
}

func (c *Client) Capabilities() ServerCapabilities {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serverCaps
}

func (c *Client) Instructions() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.instructions
}

// Close tears down the client's endpoint and transport.
func (c *Client) Close() error {
	atomic.StoreInt32(&c.state, int32(ClientClosed))
	if c.endpoint == nil {
		return nil
	}
	return c.endpoint.Close()
}

// ListTools calls tools/list, draining pagination cursors until the
// server stops returning nextCursor.
func (c *Client) ListTools(ctx context.Context) ([]ToolDescriptor, error) {
	var out []ToolDescriptor
	cursor := ""
	for {
		raw, err := c.endpoint.SendRequest(ctx, "tools/list", ListToolsParams{Cursor: cursor})
		if err != nil {
			return nil, err
		}
		var page ListToolsResult
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, err
		}
		out = append(out, page.Tools...)
		if page.NextCursor == "" {
			return out, nil
		}
		cursor = page.NextCursor
	}
}

// CallTool calls tools/call for the named tool.
func (c *Client) CallTool(ctx context.Context, name string, arguments interface{}) (ToolCallResult, error) {
	argsJSON, err := json.Marshal(arguments)
	if err != nil {
		return ToolCallResult{}, err
	}
	raw, err := c.endpoint.SendRequest(ctx, "tools/call", CallToolParams{Name: name, Arguments: argsJSON})
	if err != nil {
		return ToolCallResult{}, err
	}
	var result ToolCallResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return ToolCallResult{}, err
	}
	return result, nil
}

// ListPrompts calls prompts/list, draining pagination cursors.
func (c *Client) ListPrompts(ctx context.Context) ([]PromptDescriptor, error) {
	var out []PromptDescriptor
	cursor := ""
	for {
		raw, err := c.endpoint.SendRequest(ctx, "prompts/list", ListPromptsParams{Cursor: cursor})
		if err != nil {
			return nil, err
		}
		var page ListPromptsResult
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, err
		}
		out = append(out, page.Prompts...)
		if page.NextCursor == "" {
			return out, nil
		}
		cursor = page.NextCursor
	}
}

// GetPrompt calls prompts/get for the named prompt.
func (c *Client) GetPrompt(ctx context.Context, name string, arguments map[string]string) (PromptGetResult, error) {
	raw, err := c.endpoint.SendRequest(ctx, "prompts/get", GetPromptParams{Name: name, Arguments: arguments})
	if err != nil {
		return PromptGetResult{}, err
	}
	var result PromptGetResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return PromptGetResult{}, err
	}
	return result, nil
}

// Ping calls the server's ping route.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.endpoint.SendRequest(ctx, "ping", struct{}{})
	return err
}
