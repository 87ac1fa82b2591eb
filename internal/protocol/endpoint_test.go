package protocol

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metoro-io/mcp-golang/transport/inmemory"
)

func newLinkedEndpoints(t *testing.T) (client, server *Endpoint, stop func()) {
	t.Helper()
	a, b := inmemory.Pair()
	client = New(a, nil)
	server = New(b, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{}, 2)
	go func() { _ = client.Run(ctx); done <- struct{}{} }()
	go func() { _ = server.Run(ctx); done <- struct{}{} }()

	stop = func() {
		cancel()
		_ = client.Close()
		_ = server.Close()
	}
	return client, server, stop
}

func TestSendRequestRoundTrip(t *testing.T) {
	client, server, stop := newLinkedEndpoints(t)
	defer stop()

	server.SetRequestHandler("echo", func(ctx context.Context, method string, params json.RawMessage) (interface{}, error) {
		var in struct {
			Text string `json:"text"`
		}
		require.NoError(t, json.Unmarshal(params, &in))
		return map[string]string{"text": in.Text}, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	result, err := client.SendRequest(ctx, "echo", map[string]string{"text": "hi"})
	require.NoError(t, err)

	var out struct {
		Text string `json:"text"`
	}
	require.NoError(t, json.Unmarshal(result, &out))
	assert.Equal(t, "hi", out.Text)
}

func TestSendRequestMethodNotFound(t *testing.T) {
	client, _, stop := newLinkedEndpoints(t)
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := client.SendRequest(ctx, "nonexistent", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "method not found")
}

func TestSendRequestHandlerRPCError(t *testing.T) {
	client, server, stop := newLinkedEndpoints(t)
	defer stop()

	server.SetRequestHandler("boom", func(ctx context.Context, method string, params json.RawMessage) (interface{}, error) {
		return nil, NewRPCErrorWithData(InvalidParamsCode, "bad input", map[string]string{"field": "x"})
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := client.SendRequest(ctx, "boom", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad input")
}

func TestNotificationHandlersRunInOrder(t *testing.T) {
	client, server, stop := newLinkedEndpoints(t)
	defer stop()

	order := make(chan int, 2)
	server.AddNotificationHandler("tick", func(ctx context.Context, method string, params json.RawMessage) error {
		order <- 1
		return nil
	})
	server.AddNotificationHandler("tick", func(ctx context.Context, method string, params json.RawMessage) error {
		order <- 2
		return nil
	})

	require.NoError(t, client.SendNotification(context.Background(), "tick", nil))

	assert.Equal(t, 1, <-order)
	assert.Equal(t, 2, <-order)
}

func TestCancellationPropagatesToHandlerContext(t *testing.T) {
	client, server, stop := newLinkedEndpoints(t)
	defer stop()

	handlerCancelled := make(chan struct{})
	server.SetRequestHandler("slow", func(ctx context.Context, method string, params json.RawMessage) (interface{}, error) {
		<-ctx.Done()
		close(handlerCancelled)
		return nil, ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := client.SendRequest(ctx, "slow", nil)
		errCh <- err
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-handlerCancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("handler context was never cancelled")
	}

	err := <-errCh
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCloseFailsPendingRequests(t *testing.T) {
	client, server, _ := newLinkedEndpoints(t)

	blockForever := make(chan struct{})
	server.SetRequestHandler("block", func(ctx context.Context, method string, params json.RawMessage) (interface{}, error) {
		<-blockForever
		return nil, nil
	})

	errCh := make(chan error, 1)
	go func() {
		_, err := client.SendRequest(context.Background(), "block", nil)
		errCh <- err
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, client.Close())
	require.NoError(t, server.Close())
	close(blockForever)

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrEndpointClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("SendRequest never returned after Close")
	}
}
