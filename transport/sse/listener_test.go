package sse

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metoro-io/mcp-golang/transport"
)

func TestListenerAcceptAndRoundTripMessage(t *testing.T) {
	l := NewListener("", "/sse", "/message")
	server := httptest.NewServer(l.router)
	defer server.Close()

	client := NewClientTransport(server.URL, "/sse")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, client.Connect(ctx))
	defer client.Close()

	serverSide, err := l.Accept(ctx)
	require.NoError(t, err)
	defer serverSide.Close()

	notif := transport.NewNotificationMessage(&transport.Notification{
		JSONRPC: transport.JSONRPCVersion,
		Method:  "notifications/initialized",
	})
	require.NoError(t, serverSide.Send(ctx, notif))

	received, err := client.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "notifications/initialized", received.Notification.Method)

	req := transport.NewRequestMessage(&transport.Request{
		JSONRPC: transport.JSONRPCVersion,
		ID:      transport.NewRequestId(1),
		Method:  "ping",
	})
	require.NoError(t, client.Send(ctx, req))

	fromClient, err := serverSide.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ping", fromClient.Request.Method)
}
