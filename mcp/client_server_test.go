package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metoro-io/mcp-golang/transport/inmemory"
)

func echoTool() Tool {
	return Tool{
		Descriptor: ToolDescriptor{Name: "echo", Description: "echoes its input"},
		Invoke: func(ctx context.Context, arguments json.RawMessage, progressToken interface{}) ([]Content, error) {
			var args struct {
				Message string `json:"message"`
			}
			_ = json.Unmarshal(arguments, &args)
			return []Content{NewTextContent(args.Message)}, nil
		},
	}
}

func newLinkedClientServer(t *testing.T, opts ServerOptions) (*Client, *Server, func()) {
	t.Helper()
	clientTr, serverTr := inmemory.Pair()

	server, err := NewServer(Implementation{Name: "test-server", Version: "1.0.0"}, opts)
	require.NoError(t, err)

	client, err := NewClient(ClientOptions{ClientInfo: Implementation{Name: "test-client", Version: "1.0.0"}})
	require.NoError(t, err)

	serverDone := make(chan error, 1)
	go func() { serverDone <- server.Serve(context.Background(), serverTr) }()

	err = client.Connect(context.Background(), clientTr)
	require.NoError(t, err)

	stop := func() {
		_ = client.Close()
		_ = server.Close()
		<-serverDone
	}
	return client, server, stop
}

func TestHandshakeNegotiatesProtocolVersionAndCapabilities(t *testing.T) {
	tools := NewToolSet()
	tools.Insert(echoTool())

	client, _, stop := newLinkedClientServer(t, ServerOptions{
		Instructions: "test instructions",
		Tools:        &ToolsOptions{Collection: tools},
	})
	defer stop()

	assert.Equal(t, ClientReady, client.State())
	assert.Equal(t, "test instructions", client.Instructions())
	assert.NotNil(t, client.Capabilities().Tools)
}

func TestToolDispatchCallsRegisteredHandler(t *testing.T) {
	tools := NewToolSet()
	tools.Insert(echoTool())

	client, _, stop := newLinkedClientServer(t, ServerOptions{
		Tools: &ToolsOptions{Collection: tools},
	})
	defer stop()

	listed, err := client.ListTools(context.Background())
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "echo", listed[0].Name)

	result, err := client.CallTool(context.Background(), "echo", map[string]string{"message": "hi"})
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.Len(t, result.Content, 1)
	assert.Equal(t, "hi", result.Content[0].Text)
}

func TestUnknownToolReturnsMethodNotFound(t *testing.T) {
	client, _, stop := newLinkedClientServer(t, ServerOptions{
		Tools: &ToolsOptions{Collection: NewToolSet()},
	})
	defer stop()

	_, err := client.CallTool(context.Background(), "does-not-exist", map[string]string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unknown tool")
}

func TestUnknownMethodReturnsMethodNotFound(t *testing.T) {
	client, _, stop := newLinkedClientServer(t, ServerOptions{})
	defer stop()

	_, err := client.endpoint.SendRequest(context.Background(), "not/a/real/method", struct{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "method not found")
}

func TestListChangedNotificationFiresAfterInitialized(t *testing.T) {
	tools := NewToolSet()

	client, server, stop := newLinkedClientServer(t, ServerOptions{
		Tools: &ToolsOptions{Collection: tools, ListChanged: true},
	})
	defer stop()

	notified := make(chan struct{}, 1)
	client.endpoint.AddNotificationHandler("notifications/tools/list_changed", func(ctx context.Context, method string, params json.RawMessage) error {
		notified <- struct{}{}
		return nil
	})

	// notifications/initialized is processed asynchronously on the server
	// side; give its handler a moment to subscribe before publishing.
	time.Sleep(50 * time.Millisecond)
	server.tools.tools.Insert(echoTool())

	select {
	case <-notified:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for tools/list_changed")
	}
}

func TestCallToolHandlerErrorBecomesIsError(t *testing.T) {
	tools := NewToolSet()
	tools.Insert(Tool{
		Descriptor: ToolDescriptor{Name: "boom"},
		Invoke: func(ctx context.Context, arguments json.RawMessage, progressToken interface{}) ([]Content, error) {
			return nil, assertError("kaboom")
		},
	})

	client, _, stop := newLinkedClientServer(t, ServerOptions{
		Tools: &ToolsOptions{Collection: tools},
	})
	defer stop()

	result, err := client.CallTool(context.Background(), "boom", map[string]string{})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	require.Len(t, result.Content, 1)
	assert.Contains(t, result.Content[0].Text, "kaboom")
}

type assertError string

func (e assertError) Error() string { return string(e) }

func TestConnectFailsOnProtocolVersionMismatch(t *testing.T) {
	clientTr, serverTr := inmemory.Pair()

	server, err := NewServer(Implementation{Name: "test-server", Version: "1.0.0"}, ServerOptions{})
	require.NoError(t, err)

	client, err := NewClient(ClientOptions{
		ClientInfo:      Implementation{Name: "test-client", Version: "1.0.0"},
		ProtocolVersion: ProtocolVersionLegacy,
	})
	require.NoError(t, err)

	serverDone := make(chan error, 1)
	go func() { serverDone <- server.Serve(context.Background(), serverTr) }()
	defer func() {
		_ = server.Close()
		<-serverDone
	}()

	err = client.Connect(context.Background(), clientTr)
	require.Error(t, err)
	var mismatch *VersionMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, ProtocolVersionLegacy, mismatch.Requested)
	assert.Equal(t, ProtocolVersion, mismatch.Got)
}

func TestSecondInitializeIsRejected(t *testing.T) {
	clientTr, serverTr := inmemory.Pair()

	server, err := NewServer(Implementation{Name: "test-server", Version: "1.0.0"}, ServerOptions{})
	require.NoError(t, err)

	serverDone := make(chan error, 1)
	go func() { serverDone <- server.Serve(context.Background(), serverTr) }()
	defer func() {
		_ = server.Close()
		_ = clientTr.Close()
		<-serverDone
	}()

	client, err := NewClient(ClientOptions{ClientInfo: Implementation{Name: "test-client", Version: "1.0.0"}})
	require.NoError(t, err)
	require.NoError(t, client.Connect(context.Background(), clientTr))
	defer client.Close()

	_, err = client.endpoint.SendRequest(context.Background(), "initialize", InitializeParams{
		ProtocolVersion: ProtocolVersion,
		ClientInfo:      Implementation{Name: "test-client", Version: "1.0.0"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already completed")
}
