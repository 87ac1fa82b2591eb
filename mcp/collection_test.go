package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolSetInsertGetRemove(t *testing.T) {
	s := NewToolSet()
	_, ok := s.Get("echo")
	assert.False(t, ok)

	s.Insert(echoTool())
	tool, ok := s.Get("echo")
	require.True(t, ok)
	assert.Equal(t, "echo", tool.Name())
	assert.Len(t, s.List(), 1)

	s.Remove("echo")
	_, ok = s.Get("echo")
	assert.False(t, ok)
	assert.Empty(t, s.List())
}

func TestToolSetSubscribeFiresOnInsertAndRemove(t *testing.T) {
	s := NewToolSet()
	changes := make(chan struct{}, 8)
	dispose := s.Subscribe(func() { changes <- struct{}{} })
	defer dispose()

	s.Insert(echoTool())
	s.Remove("echo")

	for i := 0; i < 2; i++ {
		select {
		case <-changes:
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for change %d", i)
		}
	}
}

func TestToolSetSubscribeDisposerStopsDelivery(t *testing.T) {
	s := NewToolSet()
	changes := make(chan struct{}, 8)
	dispose := s.Subscribe(func() { changes <- struct{}{} })
	dispose()

	s.Insert(echoTool())

	select {
	case <-changes:
		t.Fatal("received a change notification after disposing the subscription")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestComposedToolsListsCollectionThenDrainsFallback(t *testing.T) {
	tools := NewToolSet()
	tools.Insert(echoTool())

	pages := [][]ToolDescriptor{
		{{Name: "fallback-a"}},
		{{Name: "fallback-b"}},
	}
	c := &composedTools{
		tools: tools,
		fallbackList: func(ctx context.Context, cursor string) (ListToolsResult, error) {
			idx := 0
			if cursor != "" {
				idx = 1
			}
			next := ""
			if idx == 0 {
				next = "page-2"
			}
			return ListToolsResult{Tools: pages[idx], NextCursor: next}, nil
		},
	}

	all, err := c.listAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "echo", all[0].Name)
	assert.Equal(t, "fallback-a", all[1].Name)
	assert.Equal(t, "fallback-b", all[2].Name)
}

func TestComposedToolsCallFallsBackWhenNotInCollection(t *testing.T) {
	called := false
	c := &composedTools{
		tools: NewToolSet(),
		fallbackCall: func(ctx context.Context, name string, arguments json.RawMessage, progressToken interface{}) ([]Content, error) {
			called = true
			return []Content{NewTextContent("from fallback")}, nil
		},
	}

	content, err := c.call(context.Background(), "anything", nil, nil)
	require.NoError(t, err)
	assert.True(t, called)
	require.Len(t, content, 1)
	assert.Equal(t, "from fallback", content[0].Text)
}

func TestComposedToolsCallUnknownWithoutFallbackReturnsRPCError(t *testing.T) {
	c := &composedTools{tools: NewToolSet()}

	_, err := c.call(context.Background(), "ghost", nil, nil)
	require.Error(t, err)
	var coded *RPCError
	require.ErrorAs(t, err, &coded)
	assert.Equal(t, MethodNotFoundCode, coded.Code)
}
