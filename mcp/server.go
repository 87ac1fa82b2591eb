package mcp

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/metoro-io/mcp-golang/internal/protocol"
	"github.com/metoro-io/mcp-golang/transport"
)

// ToolsOptions configures the tools capability. The capability is
// declared whenever ServerOptions.Tools is non-nil; a nil Collection is
// replaced by an empty ToolSet.
type ToolsOptions struct {
	Collection   *ToolSet
	ListChanged  bool
	FallbackList ListToolsFallback
	FallbackCall CallToolFallback
}

// PromptsOptions configures the prompts capability.
type PromptsOptions struct {
	Collection  *PromptSet
	ListChanged bool
	FallbackList ListPromptsFallback
	FallbackGet  GetPromptFallback
}

// ResourcesOptions configures the resources capability. List and Read are
// required together; Subscribe gates the subscribe/unsubscribe routes and
// requires both SubscribeHandler and UnsubscribeHandler.
type ResourcesOptions struct {
	Subscribe   bool
	ListChanged bool

	List          func(ctx context.Context, cursor string) (ListResourcesResult, error)
	Read          func(ctx context.Context, uri string) (ReadResourceResult, error)
	TemplatesList func(ctx context.Context, cursor string) (ListResourceTemplatesResult, error)

	SubscribeHandler   func(ctx context.Context, uri string) error
	UnsubscribeHandler func(ctx context.Context, uri string) error
}

func (r *ResourcesOptions) declared() bool {
	return r != nil && (r.List != nil || r.Read != nil)
}

// CompletionHandler services completion/complete; if nil, the server
// responds with the empty default result.
type CompletionHandler func(ctx context.Context, ref string, argumentName, argumentValue string) (CompletionCompleteResult, error)

// ServerOptions configures a Server at construction time.
type ServerOptions struct {
	Instructions      string
	Tools             *ToolsOptions
	Prompts           *PromptsOptions
	Resources         *ResourcesOptions
	Logging           bool
	CompletionHandler CompletionHandler
	Experimental      map[string]interface{}
	Logger            protocol.Logger
	Metrics           protocol.Metrics
}

// Server is the responder half of an MCP session: it accepts (or is
// handed) a transport, installs inbound routes conditioned on its
// declared capabilities, and runs until the session ends.
type Server struct {
	info    Implementation
	opts    ServerOptions
	caps    ServerCapabilities
	tools   *composedTools
	prompts *composedPrompts

	endpoint *protocol.Endpoint

	mu                 sync.Mutex
	clientInfo         Implementation
	clientCapabilities ClientCapabilities
	initializeOnce     sync.Once
	toolsSub           func()
	promptsSub         func()
}

// NewServer validates opts against the pairing and presence rules in §4.4
// and builds a Server ready to Serve a transport. It fails synchronously
// if a declared capability is missing a required handler, or if a paired
// handler set is asymmetric.
func NewServer(info Implementation, opts ServerOptions) (*Server, error) {
	s := &Server{info: info, opts: opts}

	if opts.Tools != nil {
		t := opts.Tools
		if (t.FallbackList == nil) != (t.FallbackCall == nil) {
			return nil, &HandlerPairAsymmetryError{Pair: "tools list+call"}
		}
		collection := t.Collection
		if collection == nil {
			collection = NewToolSet()
		}
		s.tools = &composedTools{tools: collection, fallbackList: t.FallbackList, fallbackCall: t.FallbackCall}
		s.caps.Tools = &ToolsCapability{ListChanged: t.ListChanged}
	}

	if opts.Prompts != nil {
		p := opts.Prompts
		if (p.FallbackList == nil) != (p.FallbackGet == nil) {
			return nil, &HandlerPairAsymmetryError{Pair: "prompts list+get"}
		}
		collection := p.Collection
		if collection == nil {
			collection = NewPromptSet()
		}
		s.prompts = &composedPrompts{prompts: collection, fallbackList: p.FallbackList, fallbackGet: p.FallbackGet}
		s.caps.Prompts = &PromptsCapability{ListChanged: p.ListChanged}
	}

	if opts.Resources.declared() {
		r := opts.Resources
		if r.List == nil || r.Read == nil {
			return nil, &CapabilityHandlerMissingError{Capability: "resources", Method: "resources/list+resources/read"}
		}
		if r.Subscribe {
			if r.SubscribeHandler == nil || r.UnsubscribeHandler == nil {
				return nil, &HandlerPairAsymmetryError{Pair: "resources subscribe+unsubscribe"}
			}
		} else if (r.SubscribeHandler == nil) != (r.UnsubscribeHandler == nil) {
			return nil, &HandlerPairAsymmetryError{Pair: "resources subscribe+unsubscribe"}
		}
		s.caps.Resources = &ResourcesCapability{Subscribe: r.Subscribe, ListChanged: r.ListChanged}
	}

	if opts.Logging {
		s.caps.Logging = &LoggingCapability{}
	}
	if opts.Experimental != nil {
		s.caps.Experimental = opts.Experimental
	}

	return s, nil
}

// Serve takes ownership of tr, installs routes, and runs the read loop
// until the session ends. It blocks until the transport's stream ends or
// ctx is cancelled.
func (s *Server) Serve(ctx context.Context, tr transport.Transport) error {
	s.endpoint = protocol.New(tr, s.opts.Logger)
	if s.opts.Metrics != nil {
		s.endpoint.SetMetrics(s.opts.Metrics)
	}
	s.installRoutes()
	return s.endpoint.Run(ctx)
}

// Close tears down the server's endpoint and transport.
func (s *Server) Close() error {
	if s.endpoint == nil {
		return nil
	}
	return s.endpoint.Close()
}

func (s *Server) installRoutes() {
	e := s.endpoint

	e.SetRequestHandler("initialize", s.handleInitialize)
	e.SetRequestHandler("ping", func(ctx context.Context, method string, params json.RawMessage) (interface{}, error) {
		return struct{}{}, nil
	})
	e.SetRequestHandler("completion/complete", s.handleCompletionComplete)
	e.AddNotificationHandler("notifications/initialized", s.handleInitialized)

	if s.caps.Tools != nil {
		e.SetRequestHandler("tools/list", s.handleToolsList)
		e.SetRequestHandler("tools/call", s.handleToolsCall)
	}
	if s.caps.Prompts != nil {
		e.SetRequestHandler("prompts/list", s.handlePromptsList)
		e.SetRequestHandler("prompts/get", s.handlePromptsGet)
	}
	if s.caps.Resources != nil {
		r := s.opts.Resources
		e.SetRequestHandler("resources/list", s.handleResourcesList)
		e.SetRequestHandler("resources/read", s.handleResourcesRead)
		e.SetRequestHandler("resources/templates/list", s.handleResourceTemplatesList)
		if s.caps.Resources.Subscribe {
			e.SetRequestHandler("resources/subscribe", func(ctx context.Context, method string, params json.RawMessage) (interface{}, error) {
				var p ResourceSubscribeParams
				if err := json.Unmarshal(params, &p); err != nil {
					return nil, protocol.NewRPCError(protocol.InvalidParamsCode, err.Error())
				}
				return struct{}{}, r.SubscribeHandler(ctx, p.URI)
			})
			e.SetRequestHandler("resources/unsubscribe", func(ctx context.Context, method string, params json.RawMessage) (interface{}, error) {
				var p ResourceSubscribeParams
				if err := json.Unmarshal(params, &p); err != nil {
					return nil, protocol.NewRPCError(protocol.InvalidParamsCode, err.Error())
				}
				return struct{}{}, r.UnsubscribeHandler(ctx, p.URI)
			})
		}
	}
	if s.caps.Logging != nil {
		e.SetRequestHandler("logging/setLevel", func(ctx context.Context, method string, params json.RawMessage) (interface{}, error) {
			var p SetLevelParams
			if err := json.Unmarshal(params, &p); err != nil {
				return nil, protocol.NewRPCError(protocol.InvalidParamsCode, err.Error())
			}
			return struct{}{}, nil
		})
	}
}

func (s *Server) handleInitialize(ctx context.Context, method string, params json.RawMessage) (interface{}, error) {
	s.mu.Lock()
	alreadyInitialized := s.clientInfo.Name != ""
	s.mu.Unlock()
	if alreadyInitialized {
		return nil, protocol.NewRPCError(protocol.InvalidRequestCode, "initialize already completed for this session")
	}

	var p InitializeParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, protocol.NewRPCError(protocol.InvalidParamsCode, err.Error())
	}

	s.mu.Lock()
	s.clientInfo = p.ClientInfo
	s.clientCapabilities = p.Capabilities
	s.mu.Unlock()

	return InitializeResult{
		ProtocolVersion: ProtocolVersion,
		ServerInfo:      s.info,
		Capabilities:    s.caps,
		Instructions:    s.opts.Instructions,
	}, nil
}

// handleInitialized subscribes the server to its collections' Changed
// events exactly once, per the idempotent-subscription invariant in §4.4.
func (s *Server) handleInitialized(ctx context.Context, method string, params json.RawMessage) error {
	s.initializeOnce.Do(func() {
		if s.tools != nil {
			s.toolsSub = s.tools.tools.Subscribe(func() {
				_ = s.endpoint.SendNotification(context.Background(), "notifications/tools/list_changed", nil)
			})
		}
		if s.prompts != nil {
			s.promptsSub = s.prompts.prompts.Subscribe(func() {
				_ = s.endpoint.SendNotification(context.Background(), "notifications/prompts/list_changed", nil)
			})
		}
	})
	return nil
}

func (s *Server) handleToolsList(ctx context.Context, method string, params json.RawMessage) (interface{}, error) {
	descriptors, err := s.tools.listAll(ctx)
	if err != nil {
		return nil, err
	}
	return ListToolsResult{Tools: descriptors}, nil
}

func (s *Server) handleToolsCall(ctx context.Context, method string, params json.RawMessage) (interface{}, error) {
	var p CallToolParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, protocol.NewRPCError(protocol.InvalidParamsCode, err.Error())
	}
	progressToken := extractProgressToken(params)
	content, err := s.tools.call(ctx, p.Name, p.Arguments, progressToken)
	if err != nil {
		if _, ok := err.(*protocol.RPCError); ok {
			return nil, err
		}
		return ToolCallResult{Content: []Content{NewTextContent(err.Error())}, IsError: true}, nil
	}
	return ToolCallResult{Content: content}, nil
}

func (s *Server) handlePromptsList(ctx context.Context, method string, params json.RawMessage) (interface{}, error) {
	descriptors, err := s.prompts.listAll(ctx)
	if err != nil {
		return nil, err
	}
	return ListPromptsResult{Prompts: descriptors}, nil
}

func (s *Server) handlePromptsGet(ctx context.Context, method string, params json.RawMessage) (interface{}, error) {
	var p GetPromptParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, protocol.NewRPCError(protocol.InvalidParamsCode, err.Error())
	}
	return s.prompts.get(ctx, p.Name, p.Arguments)
}

func (s *Server) handleResourcesList(ctx context.Context, method string, params json.RawMessage) (interface{}, error) {
	var p ListResourcesParams
	_ = json.Unmarshal(params, &p)
	return s.opts.Resources.List(ctx, p.Cursor)
}

func (s *Server) handleResourcesRead(ctx context.Context, method string, params json.RawMessage) (interface{}, error) {
	var p ReadResourceParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, protocol.NewRPCError(protocol.InvalidParamsCode, err.Error())
	}
	return s.opts.Resources.Read(ctx, p.URI)
}

func (s *Server) handleResourceTemplatesList(ctx context.Context, method string, params json.RawMessage) (interface{}, error) {
	if s.opts.Resources.TemplatesList == nil {
		return ListResourceTemplatesResult{}, nil
	}
	var p ListResourceTemplatesParams
	_ = json.Unmarshal(params, &p)
	return s.opts.Resources.TemplatesList(ctx, p.Cursor)
}

func (s *Server) handleCompletionComplete(ctx context.Context, method string, params json.RawMessage) (interface{}, error) {
	if s.opts.CompletionHandler == nil {
		return CompletionCompleteResult{Values: []string{}, Total: 0, HasMore: false}, nil
	}
	var p struct {
		Ref      json.RawMessage `json:"ref"`
		Argument struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		} `json:"argument"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, protocol.NewRPCError(protocol.InvalidParamsCode, err.Error())
	}
	return s.opts.CompletionHandler(ctx, string(p.Ref), p.Argument.Name, p.Argument.Value)
}

// ClientInfo returns the peer's identity as recorded at handshake; it is
// the zero value until initialize completes.
func (s *Server) ClientInfo() Implementation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clientInfo
}

// extractProgressToken reads _meta.progressToken out of a request's raw
// params without requiring every params shape to declare the field.
func extractProgressToken(params json.RawMessage) interface{} {
	if len(params) == 0 {
		return nil
	}
	result := gjson.GetBytes(params, "_meta.progressToken")
	if !result.Exists() {
		return nil
	}
	return result.Value()
}
