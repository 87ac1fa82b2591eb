package websocket

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metoro-io/mcp-golang/transport"
)

func TestDialAndRoundTripMessage(t *testing.T) {
	l := NewListener("", "/ws")
	server := httptest.NewServer(l.server.Handler)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client, err := Dial(ctx, url)
	require.NoError(t, err)
	defer client.Close()

	serverSide, err := l.Accept(ctx)
	require.NoError(t, err)
	defer serverSide.Close()

	notif := transport.NewNotificationMessage(&transport.Notification{
		JSONRPC: transport.JSONRPCVersion,
		Method:  "notifications/progress",
	})
	require.NoError(t, client.Send(ctx, notif))

	received, err := serverSide.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, transport.KindNotification, received.Kind)
	assert.Equal(t, "notifications/progress", received.Notification.Method)
}

func TestSendAfterCloseFails(t *testing.T) {
	l := NewListener("", "/ws")
	server := httptest.NewServer(l.server.Handler)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client, err := Dial(ctx, url)
	require.NoError(t, err)
	require.NoError(t, client.Close())

	err = client.Send(ctx, transport.NewNotificationMessage(&transport.Notification{Method: "x"}))
	assert.ErrorIs(t, err, transport.ErrClosed)
}
