// Package samplingbridge adapts the client-hosted sampling/createMessage
// handler described in the MCP sampling protocol to a real chat backend,
// grounded on the anthropic-sdk-go client used elsewhere in this SDK
// lineage for LLM calls.
package samplingbridge

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/pkg/errors"

	"github.com/metoro-io/mcp-golang/mcp"
)

// DefaultMaxTokens bounds a createMessage call when the caller does not
// specify one.
const DefaultMaxTokens = 1024

// AnthropicBridge implements mcp.SamplingHandler against a real Claude
// backend: it translates mcp.Content to and from anthropic-sdk-go message
// blocks and defaults StopReason to mcp.StopReasonEndTurn on a normal
// completion.
type AnthropicBridge struct {
	client anthropic.Client
	model  string
}

// NewAnthropicBridge builds a bridge using the given API key and model.
// Every call samples against model; CreateMessageParams.ModelPreferences
// is ignored.
func NewAnthropicBridge(apiKey, model string) *AnthropicBridge {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicBridge{client: client, model: model}
}

// Handle services sampling/createMessage.
func (b *AnthropicBridge) Handle(ctx context.Context, params mcp.CreateMessageParams) (mcp.CreateMessageResult, error) {
	sdkMessages := make([]anthropic.MessageParam, 0, len(params.Messages))
	for _, m := range params.Messages {
		block := contentToBlock(m.Content)
		switch m.Role {
		case "assistant":
			sdkMessages = append(sdkMessages, anthropic.NewAssistantMessage(block))
		default:
			sdkMessages = append(sdkMessages, anthropic.NewUserMessage(block))
		}
	}

	maxTokens := int64(params.MaxTokens)
	if maxTokens == 0 {
		maxTokens = DefaultMaxTokens
	}

	reqParams := anthropic.MessageNewParams{
		Model:     anthropic.Model(b.model),
		Messages:  sdkMessages,
		MaxTokens: maxTokens,
	}
	if params.SystemPrompt != "" {
		reqParams.System = []anthropic.TextBlockParam{{Text: params.SystemPrompt}}
	}
	if params.Temperature > 0 {
		reqParams.Temperature = anthropic.Float(params.Temperature)
	}
	if len(params.StopSequences) > 0 {
		reqParams.StopSequences = params.StopSequences
	}

	result, err := b.client.Messages.New(ctx, reqParams)
	if err != nil {
		return mcp.CreateMessageResult{}, errors.Wrap(err, "samplingbridge: create message")
	}

	return mcp.CreateMessageResult{
		Role:       "assistant",
		Model:      string(result.Model),
		StopReason: mapStopReason(string(result.StopReason)),
		Content:    blocksToContent(result.Content),
	}, nil
}

func contentToBlock(c mcp.Content) anthropic.ContentBlockParamUnion {
	switch c.Type {
	case "text":
		return anthropic.NewTextBlock(c.Text)
	case "image":
		return anthropic.NewImageBlockBase64(c.MimeType, c.Data)
	default:
		return anthropic.NewTextBlock("")
	}
}

// blocksToContent merges a response's content blocks into a single
// mcp.Content, concatenating any text blocks; unknown block types are
// passed through as text with an empty body, per the sampling bridge's
// unknown-content-type contract.
func blocksToContent(blocks []anthropic.ContentBlockUnion) mcp.Content {
	var text string
	for _, block := range blocks {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			text += b.Text
		default:
			// unknown block type: contributes no text
		}
	}
	return mcp.NewTextContent(text)
}

func mapStopReason(reason string) string {
	if reason == "end_turn" || reason == "" {
		return mcp.StopReasonEndTurn
	}
	return reason
}
