// Package mcp implements the Model Context Protocol's typed session layer
// on top of internal/protocol's JSON-RPC engine: the initialize handshake,
// capability negotiation, and the tools/prompts/resources/sampling/roots/
// logging/progress method surface.
package mcp

import "encoding/json"

// ProtocolVersion is the version this module's Client requests by default
// and the version its Server answers every initialize with.
// ProtocolVersionLegacy names an older version a client may request via
// ClientOptions.ProtocolVersion; the Client requires an exact string match
// between what it sent and what the server returns, so against this
// module's Server such a client fails with a VersionMismatchError.
const (
	ProtocolVersion       = "2025-06-18"
	ProtocolVersionLegacy = "2024-11-05"
)

// Implementation identifies a session peer (client or server) by name and
// version, recorded by both sides after a successful handshake.
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ToolsCapability advertises the tools primitive; ListChanged indicates
// the server will emit notifications/tools/list_changed.
type ToolsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// PromptsCapability advertises the prompts primitive.
type PromptsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// ResourcesCapability advertises the resources primitive; Subscribe
// additionally gates resources/subscribe and resources/unsubscribe.
type ResourcesCapability struct {
	Subscribe   bool `json:"subscribe,omitempty"`
	ListChanged bool `json:"listChanged,omitempty"`
}

// LoggingCapability advertises logging/setLevel support. It carries no
// fields of its own; its presence alone gates the route.
type LoggingCapability struct{}

// ServerCapabilities is the product of optional sub-capability blocks a
// server advertises at handshake.
type ServerCapabilities struct {
	Tools        *ToolsCapability       `json:"tools,omitempty"`
	Prompts      *PromptsCapability     `json:"prompts,omitempty"`
	Resources    *ResourcesCapability   `json:"resources,omitempty"`
	Logging      *LoggingCapability     `json:"logging,omitempty"`
	Experimental map[string]interface{} `json:"experimental,omitempty"`
}

// SamplingCapability advertises that a client can service
// sampling/createMessage requests from the server.
type SamplingCapability struct{}

// RootsCapability advertises that a client can service roots/list
// requests, optionally notifying the server when the root set changes.
type RootsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// ClientCapabilities is the client-side symmetric counterpart of
// ServerCapabilities.
type ClientCapabilities struct {
	Sampling     *SamplingCapability    `json:"sampling,omitempty"`
	Roots        *RootsCapability       `json:"roots,omitempty"`
	Experimental map[string]interface{} `json:"experimental,omitempty"`
}

// InitializeParams is sent by the client as the first request on a
// session.
type InitializeParams struct {
	ProtocolVersion string              `json:"protocolVersion"`
	Capabilities    ClientCapabilities  `json:"capabilities"`
	ClientInfo      Implementation      `json:"clientInfo"`
}

// InitializeResult is the server's reply to initialize.
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	ServerInfo      Implementation     `json:"serverInfo"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	Instructions    string             `json:"instructions,omitempty"`
}

// Content is the tagged union carried in tool/prompt/sampling results:
// exactly one of Text, Data (with MimeType), or Resource is meaningful,
// selected by Type.
type Content struct {
	Type     string            `json:"type"`
	Text     string            `json:"text,omitempty"`
	Data     string            `json:"data,omitempty"`
	MimeType string            `json:"mimeType,omitempty"`
	Resource *EmbeddedResource `json:"resource,omitempty"`
}

// NewTextContent builds a text Content block.
func NewTextContent(text string) Content {
	return Content{Type: "text", Text: text}
}

// NewImageContent builds an image Content block; data is base64-encoded.
func NewImageContent(data, mimeType string) Content {
	return Content{Type: "image", Data: data, MimeType: mimeType}
}

// NewEmbeddedResourceContent builds a Content block wrapping a resource.
func NewEmbeddedResourceContent(resource EmbeddedResource) Content {
	return Content{Type: "resource", Resource: &resource}
}

// EmbeddedResource is a resource inlined directly into a result rather
// than referenced by URI alone.
type EmbeddedResource struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
	Blob     string `json:"blob,omitempty"`
}

// ToolDescriptor is the protocol-facing shape of a registered tool,
// returned from tools/list.
type ToolDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// ToolCallResult is the result of tools/call.
type ToolCallResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// PromptArgument describes one named argument a prompt accepts.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// PromptDescriptor is the protocol-facing shape of a registered prompt,
// returned from prompts/list.
type PromptDescriptor struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Arguments   []PromptArgument `json:"arguments,omitempty"`
}

// PromptMessage is one turn of a rendered prompt.
type PromptMessage struct {
	Role    string  `json:"role"`
	Content Content `json:"content"`
}

// PromptGetResult is the result of prompts/get.
type PromptGetResult struct {
	Description string          `json:"description,omitempty"`
	Messages    []PromptMessage `json:"messages"`
}

// ListToolsParams carries the pagination cursor for tools/list.
type ListToolsParams struct {
	Cursor string `json:"cursor,omitempty"`
}

// ListToolsResult is the paginated result of tools/list.
type ListToolsResult struct {
	Tools      []ToolDescriptor `json:"tools"`
	NextCursor string           `json:"nextCursor,omitempty"`
}

// CallToolParams is the params of tools/call.
type CallToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ListPromptsParams carries the pagination cursor for prompts/list.
type ListPromptsParams struct {
	Cursor string `json:"cursor,omitempty"`
}

// ListPromptsResult is the paginated result of prompts/list.
type ListPromptsResult struct {
	Prompts    []PromptDescriptor `json:"prompts"`
	NextCursor string             `json:"nextCursor,omitempty"`
}

// GetPromptParams is the params of prompts/get.
type GetPromptParams struct {
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments,omitempty"`
}

// CompletionCompleteResult is returned by completion/complete; the default
// handler returns an empty (non-nil) Values, Total 0 and HasMore false.
type CompletionCompleteResult struct {
	Values  []string `json:"values"`
	Total   int      `json:"total"`
	HasMore bool     `json:"hasMore"`
}

// SetLevelParams is the params of logging/setLevel.
type SetLevelParams struct {
	Level string `json:"level"`
}

// LogMessageParams is the payload of notifications/message.
type LogMessageParams struct {
	Level  string      `json:"level"`
	Logger string      `json:"logger,omitempty"`
	Data   interface{} `json:"data"`
}

// ProgressParams is the payload of notifications/progress.
type ProgressParams struct {
	ProgressToken interface{} `json:"progressToken"`
	Progress      float64     `json:"progress"`
	Total         float64     `json:"total,omitempty"`
	Message       string      `json:"message,omitempty"`
}

// Root is a filesystem-like anchor URI advertised by the client.
type Root struct {
	URI  string `json:"uri"`
	Name string `json:"name,omitempty"`
}

// RootsListResult is the result of roots/list.
type RootsListResult struct {
	Roots []Root `json:"roots"`
}

// ModelPreferences is an opaque hint block forwarded to the sampling
// backend; its fields are intentionally loose since they are backend
// specific.
type ModelPreferences struct {
	Hints                []map[string]string `json:"hints,omitempty"`
	CostPriority         float64             `json:"costPriority,omitempty"`
	SpeedPriority        float64             `json:"speedPriority,omitempty"`
	IntelligencePriority float64             `json:"intelligencePriority,omitempty"`
}

// SamplingMessage is one turn of input to sampling/createMessage.
type SamplingMessage struct {
	Role    string  `json:"role"`
	Content Content `json:"content"`
}

// CreateMessageParams is the params of sampling/createMessage.
type CreateMessageParams struct {
	Messages         []SamplingMessage      `json:"messages"`
	SystemPrompt     string                 `json:"systemPrompt,omitempty"`
	Temperature      float64                `json:"temperature,omitempty"`
	MaxTokens        int                    `json:"maxTokens,omitempty"`
	StopSequences    []string               `json:"stopSequences,omitempty"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
	ModelPreferences *ModelPreferences      `json:"modelPreferences,omitempty"`
}

// StopReasonEndTurn is the canonical stopReason for a successful, natural
// completion.
const StopReasonEndTurn = "endTurn"

// CreateMessageResult is the result of sampling/createMessage.
type CreateMessageResult struct {
	Role       string  `json:"role"`
	Model      string  `json:"model"`
	StopReason string  `json:"stopReason"`
	Content    Content `json:"content"`
}

// ResourceDescriptor is the protocol-facing shape of a resource, returned
// from resources/list.
type ResourceDescriptor struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// ResourceTemplate is a URI-templated resource family, returned from
// resources/templates/list.
type ResourceTemplate struct {
	URITemplate string `json:"uriTemplate"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// ListResourcesParams carries the pagination cursor for resources/list.
type ListResourcesParams struct {
	Cursor string `json:"cursor,omitempty"`
}

// ListResourcesResult is the paginated result of resources/list.
type ListResourcesResult struct {
	Resources  []ResourceDescriptor `json:"resources"`
	NextCursor string               `json:"nextCursor,omitempty"`
}

// ListResourceTemplatesParams carries the pagination cursor for
// resources/templates/list.
type ListResourceTemplatesParams struct {
	Cursor string `json:"cursor,omitempty"`
}

// ListResourceTemplatesResult is the paginated result of
// resources/templates/list.
type ListResourceTemplatesResult struct {
	ResourceTemplates []ResourceTemplate `json:"resourceTemplates"`
	NextCursor        string             `json:"nextCursor,omitempty"`
}

// ReadResourceParams is the params of resources/read.
type ReadResourceParams struct {
	URI string `json:"uri"`
}

// ReadResourceResult is the result of resources/read.
type ReadResourceResult struct {
	Contents []EmbeddedResource `json:"contents"`
}

// ResourceSubscribeParams is the params of resources/subscribe and
// resources/unsubscribe.
type ResourceSubscribeParams struct {
	URI string `json:"uri"`
}

// ResourceUpdatedParams is the payload of
// notifications/resources/updated.
type ResourceUpdatedParams struct {
	URI string `json:"uri"`
}
