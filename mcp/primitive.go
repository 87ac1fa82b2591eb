package mcp

import (
	"context"
	"encoding/json"
)

// ToolHandler invokes a tool given its raw JSON arguments and returns the
// content blocks to send back. ProgressToken is the opaque token from the
// inbound request's _meta.progressToken, if any, letting a long-running
// tool emit notifications/progress tied to this call.
type ToolHandler func(ctx context.Context, arguments json.RawMessage, progressToken interface{}) ([]Content, error)

// Tool is a named Primitive: a protocol descriptor plus the function that
// invokes it.
type Tool struct {
	Descriptor ToolDescriptor
	Invoke     ToolHandler
}

// Name returns the descriptor's name, the key ToolSet stores the Tool under.
func (t Tool) Name() string { return t.Descriptor.Name }

// PromptHandler renders a prompt given its string-valued arguments.
type PromptHandler func(ctx context.Context, arguments map[string]string) (PromptGetResult, error)

// Prompt is a named Primitive: a protocol descriptor plus the function
// that renders it.
type Prompt struct {
	Descriptor PromptDescriptor
	Invoke     PromptHandler
}

// Name returns the descriptor's name, the key PromptSet stores the Prompt
// under.
func (p Prompt) Name() string { return p.Descriptor.Name }
