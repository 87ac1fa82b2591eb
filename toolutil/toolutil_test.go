package toolutil

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metoro-io/mcp-golang/mcp"
)

type greetArgs struct {
	Name string `json:"name" jsonschema:"description=who to greet"`
}

func TestNewBuildsInvokableTool(t *testing.T) {
	tool, err := New("greet", "greets someone", func(ctx context.Context, args greetArgs) ([]mcp.Content, error) {
		return []mcp.Content{mcp.NewTextContent("hello " + args.Name)}, nil
	})
	require.NoError(t, err)

	assert.Equal(t, "greet", tool.Descriptor.Name)
	assert.NotEmpty(t, tool.Descriptor.InputSchema)

	content, err := tool.Invoke(context.Background(), json.RawMessage(`{"name":"ada"}`), nil)
	require.NoError(t, err)
	require.Len(t, content, 1)
	assert.Equal(t, "hello ada", content[0].Text)
}

func TestNewRejectsWrongShapedHandler(t *testing.T) {
	_, err := New("bad", "bad handler", func(ctx context.Context) error { return nil })
	assert.Error(t, err)
}

func TestInvokeReturnsInvalidParamsOnBadJSON(t *testing.T) {
	tool, err := New("greet", "greets someone", func(ctx context.Context, args greetArgs) ([]mcp.Content, error) {
		return nil, nil
	})
	require.NoError(t, err)

	_, err = tool.Invoke(context.Background(), json.RawMessage(`not json`), nil)
	require.Error(t, err)
	var coded *mcp.RPCError
	require.ErrorAs(t, err, &coded)
	assert.Equal(t, mcp.InvalidParamsCode, coded.Code)
}
