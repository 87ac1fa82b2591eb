package sse

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

func TestSessionStartWritesEndpointEvent(t *testing.T) {
	rec := httptest.NewRecorder()
	session, err := newSession("/message", rec)
	require.NoError(t, err)

	require.NoError(t, session.start())
	assert.Contains(t, rec.Body.String(), "event: endpoint\n")
	assert.Contains(t, rec.Body.String(), "data: /message?sessionId="+session.ID())
}

func TestSessionStartTwiceFails(t *testing.T) {
	rec := httptest.NewRecorder()
	session, err := newSession("/message", rec)
	require.NoError(t, err)

	require.NoError(t, session.start())
	assert.Error(t, session.start())
}

func TestSessionSendWritesMessageEvent(t *testing.T) {
	rec := httptest.NewRecorder()
	session, err := newSession("/message", rec)
	require.NoError(t, err)
	require.NoError(t, session.start())

	notif := transport.NewNotificationMessage(&transport.Notification{
		JSONRPC: transport.JSONRPCVersion,
		Method:  "notifications/progress",
	})
	require.NoError(t, session.Send(context.Background(), notif))
	assert.True(t, strings.Contains(rec.Body.String(), "event: message\n"))
	assert.Contains(t, rec.Body.String(), `"method":"notifications/progress"`)
}

func TestSessionDeliverThenReceive(t *testing.T) {
	rec := httptest.NewRecorder()
	session, err := newSession("/message", rec)
	require.NoError(t, err)
	require.NoError(t, session.start())

	require.NoError(t, session.deliver([]byte(`{"jsonrpc":"2.0","id":1,"method":"ping"}`)))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	msg, err := session.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, transport.KindRequest, msg.Kind)
	assert.Equal(t, "ping", msg.Request.Method)
}

func TestSessionDeliverMalformedReturnsParseError(t *testing.T) {
	rec := httptest.NewRecorder()
	session, err := newSession("/message", rec)
	require.NoError(t, err)
	require.NoError(t, session.start())

	err = session.deliver([]byte("not json"))
	var parseErr *transport.ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestSessionCloseStopsReceive(t *testing.T) {
	rec := httptest.NewRecorder()
	session, err := newSession("/message", rec)
	require.NoError(t, err)
	require.NoError(t, session.start())
	require.NoError(t, session.Close())

	_, err = session.Receive(context.Background())
	assert.ErrorIs(t, err, transport.EOF)

	err = session.Send(context.Background(), transport.NewNotificationMessage(&transport.Notification{Method: "x"}))
	assert.ErrorIs(t, err, transport.ErrClosed)
}
