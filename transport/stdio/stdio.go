// Package stdio implements the line-delimited stdio Transport: one JSON
// message per line, LF-terminated, UTF-8 without BOM. It is the transport a
// child process speaks to its parent over, modelled on the original
// StdioTransport in this SDK's lineage but rebuilt against the
// transport.Transport contract so it can be driven by the shared endpoint
// core.
package stdio

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"

	"github.com/metoro-io/mcp-golang/transport"
)

// Transport speaks line-delimited JSON-RPC over an arbitrary reader/writer
// pair. NewTransport wires it to os.Stdin/os.Stdout.
type Transport struct {
	reader *bufio.Reader
	writer io.Writer

	writeMu sync.Mutex
	closeMu sync.Mutex
	closed  bool
}

// New creates a stdio Transport over the process's own stdin/stdout.
func New() *Transport {
	return NewWithIO(os.Stdin, os.Stdout)
}

// NewWithIO creates a stdio Transport over the given reader/writer, for
// tests and for child-process transports that don't own the real stdio
// pair.
func NewWithIO(r io.Reader, w io.Writer) *Transport {
	return &Transport{
		reader: bufio.NewReader(r),
		writer: w,
	}
}

// Send serializes msg compactly (no embedded newline can occur since
// encoding/json never emits one outside of a string it already escapes) and
// writes it followed by a single LF, flushing immediately.
func (t *Transport) Send(ctx context.Context, msg *transport.Message) error {
	t.closeMu.Lock()
	closed := t.closed
	t.closeMu.Unlock()
	if closed {
		return transport.ErrClosed
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "stdio: marshal message")
	}
	data = append(data, '\n')

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if _, err := t.writer.Write(data); err != nil {
		return errors.Wrap(err, "stdio: write")
	}
	if f, ok := t.writer.(flusher); ok {
		return f.Flush()
	}
	return nil
}

type flusher interface {
	Flush() error
}

// Receive reads the next non-blank line and decodes it. Blank lines are
// skipped, per the stdio framing contract. A malformed line does not
// terminate the stream: the caller is expected to log and keep reading.
// After Close it returns io.EOF. ctx is not observed: a call blocks until a
// line arrives or the reader fails.
func (t *Transport) Receive(ctx context.Context) (*transport.Message, error) {
	t.closeMu.Lock()
	closed := t.closed
	t.closeMu.Unlock()
	if closed {
		return nil, io.EOF
	}
	for {
		line, err := t.reader.ReadString('\n')
		if len(line) == 0 && err != nil {
			if err == io.EOF {
				return nil, io.EOF
			}
			return nil, errors.Wrap(err, "stdio: read")
		}

		trimmed := trimNewline(line)
		if len(trimmed) == 0 {
			if err == io.EOF {
				return nil, io.EOF
			}
			continue
		}

		msg, decodeErr := transport.DecodeMessage(trimmed)
		if decodeErr != nil {
			return nil, &transport.ParseError{Err: decodeErr}
		}
		return msg, nil
	}
}

func trimNewline(line string) []byte {
	b := []byte(line)
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}

// Close marks the transport closed. Idempotent.
func (t *Transport) Close() error {
	t.closeMu.Lock()
	defer t.closeMu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if c, ok := t.writer.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
