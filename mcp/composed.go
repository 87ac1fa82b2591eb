package mcp

import (
	"context"
	"encoding/json"
	"fmt"
)

// ListToolsFallback is a user-supplied, paginated tools/list handler
// layered behind a ToolSet. CallToolFallback is its tools/call
// counterpart.
type ListToolsFallback func(ctx context.Context, cursor string) (ListToolsResult, error)
type CallToolFallback func(ctx context.Context, name string, arguments json.RawMessage, progressToken interface{}) ([]Content, error)

// composedTools glues a ToolSet to an optional fallback list/call pair,
// implementing the union-then-fallback rule in §4.5: the collection's
// items are listed first, then the fallback is drained across its
// pagination cursors and appended.
type composedTools struct {
	tools        *ToolSet
	fallbackList ListToolsFallback
	fallbackCall CallToolFallback
}

func (c *composedTools) listAll(ctx context.Context) ([]ToolDescriptor, error) {
	out := make([]ToolDescriptor, 0, len(c.tools.List()))
	for _, t := range c.tools.List() {
		out = append(out, t.Descriptor)
	}
	if c.fallbackList == nil {
		return out, nil
	}

	cursor := ""
	for {
		page, err := c.fallbackList(ctx, cursor)
		if err != nil {
			return nil, err
		}
		out = append(out, page.Tools...)
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	return out, nil
}

func (c *composedTools) call(ctx context.Context, name string, arguments json.RawMessage, progressToken interface{}) ([]Content, error) {
	if t, ok := c.tools.Get(name); ok {
		return t.Invoke(ctx, arguments, progressToken)
	}
	if c.fallbackCall != nil {
		return c.fallbackCall(ctx, name, arguments, progressToken)
	}
	return nil, NewRPCErrorWithData(MethodNotFoundCode, fmt.Sprintf("Unknown tool '%s'", name), map[string]interface{}{"kind": KindUnknownTool})
}

// ListPromptsFallback and GetPromptFallback are the prompts/list and
// prompts/get counterparts of the tools fallback pair.
type ListPromptsFallback func(ctx context.Context, cursor string) (ListPromptsResult, error)
type GetPromptFallback func(ctx context.Context, name string, arguments map[string]string) (PromptGetResult, error)

type composedPrompts struct {
	prompts      *PromptSet
	fallbackList ListPromptsFallback
	fallbackGet  GetPromptFallback
}

func (c *composedPrompts) listAll(ctx context.Context) ([]PromptDescriptor, error) {
	out := make([]PromptDescriptor, 0, len(c.prompts.List()))
	for _, p := range c.prompts.List() {
		out = append(out, p.Descriptor)
	}
	if c.fallbackList == nil {
		return out, nil
	}

	cursor := ""
	for {
		page, err := c.fallbackList(ctx, cursor)
		if err != nil {
			return nil, err
		}
		out = append(out, page.Prompts...)
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	return out, nil
}

func (c *composedPrompts) get(ctx context.Context, name string, arguments map[string]string) (PromptGetResult, error) {
	if p, ok := c.prompts.Get(name); ok {
		return p.Invoke(ctx, arguments)
	}
	if c.fallbackGet != nil {
		return c.fallbackGet(ctx, name, arguments)
	}
	return PromptGetResult{}, NewRPCErrorWithData(MethodNotFoundCode, fmt.Sprintf("Unknown prompt '%s'", name), map[string]interface{}{"kind": KindUnknownPrompt})
}
