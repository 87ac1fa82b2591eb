package stdio

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metoro-io/mcp-golang/transport"
)

func TestReceiveRequest(t *testing.T) {
	in := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping","params":{}}` + "\n")
	out := &bytes.Buffer{}
	tr := NewWithIO(in, out)

	msg, err := tr.Receive(context.Background())
	require.NoError(t, err)
	require.Equal(t, transport.KindRequest, msg.Kind)
	assert.Equal(t, "ping", msg.Request.Method)
	assert.Equal(t, transport.NewRequestId(1), msg.Request.ID)
}

func TestReceiveSkipsBlankLines(t *testing.T) {
	in := strings.NewReader("\n\n" + `{"jsonrpc":"2.0","method":"notifications/initialized"}` + "\n")
	tr := NewWithIO(in, &bytes.Buffer{})

	msg, err := tr.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, transport.KindNotification, msg.Kind)
}

func TestReceiveEOF(t *testing.T) {
	tr := NewWithIO(strings.NewReader(""), &bytes.Buffer{})
	_, err := tr.Receive(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestReceiveMalformedLineIsParseError(t *testing.T) {
	tr := NewWithIO(strings.NewReader("not json at all\n"), &bytes.Buffer{})
	_, err := tr.Receive(context.Background())
	var parseErr *transport.ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestSendWritesNewlineTerminatedCompactJSON(t *testing.T) {
	out := &bytes.Buffer{}
	tr := NewWithIO(strings.NewReader(""), out)

	notif := transport.NewNotificationMessage(&transport.Notification{
		JSONRPC: transport.JSONRPCVersion,
		Method:  "notifications/progress",
	})
	require.NoError(t, tr.Send(context.Background(), notif))

	line := out.String()
	assert.True(t, strings.HasSuffix(line, "\n"))
	assert.False(t, strings.Contains(strings.TrimSuffix(line, "\n"), "\n"))
	assert.Contains(t, line, `"method":"notifications/progress"`)
}

func TestSendAfterCloseFails(t *testing.T) {
	tr := NewWithIO(strings.NewReader(""), &bytes.Buffer{})
	require.NoError(t, tr.Close())

	err := tr.Send(context.Background(), transport.NewNotificationMessage(&transport.Notification{Method: "x"}))
	assert.ErrorIs(t, err, transport.ErrClosed)
}
