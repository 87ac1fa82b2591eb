// Package transport defines the framing-independent contract that the MCP
// endpoint is built on: a duplex carrier of JSON-RPC 2.0 messages plus the
// envelope types themselves. Concrete carriers (stdio, SSE, websocket,
// in-memory) live in sibling packages and depend on this one, never the
// other way around.
package transport

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

const JSONRPCVersion = "2.0"

// ErrorObject is the {code, message, data} triple carried by a JSON-RPC
// error response.
type ErrorObject struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *ErrorObject) Error() string {
	return e.Message
}

// Request is an outbound or inbound JSON-RPC request: it carries an id and
// expects exactly one matching Response.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      RequestId       `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Notification is a one-way JSON-RPC message: it carries no id and expects
// no response.
type Notification struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is a JSON-RPC response. Exactly one of Result or Error is set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      RequestId       `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorObject    `json:"error,omitempty"`
}

// Kind discriminates the variant carried by a Message.
type Kind int

const (
	KindRequest Kind = iota
	KindNotification
	KindResponse
)

// Message is a sum type over the three JSON-RPC message shapes a transport
// carries. Exactly one of the pointer fields matching Kind is non-nil.
type Message struct {
	Kind         Kind
	Request      *Request
	Notification *Notification
	Response     *Response
}

func NewRequestMessage(req *Request) *Message {
	return &Message{Kind: KindRequest, Request: req}
}

func NewNotificationMessage(n *Notification) *Message {
	return &Message{Kind: KindNotification, Notification: n}
}

func NewResponseMessage(r *Response) *Message {
	return &Message{Kind: KindResponse, Response: r}
}

// MarshalJSON renders the active variant directly, so a Message round-trips
// as a plain JSON-RPC envelope rather than a tagged wrapper object.
func (m *Message) MarshalJSON() ([]byte, error) {
	switch m.Kind {
	case KindRequest:
		return json.Marshal(m.Request)
	case KindNotification:
		return json.Marshal(m.Notification)
	case KindResponse:
		return json.Marshal(m.Response)
	default:
		return nil, errors.Errorf("transport: message has unknown kind %d", m.Kind)
	}
}

// DecodeMessage classifies and parses a single JSON-RPC envelope. Requests
// carry both "id" and "method"; notifications carry "method" without "id";
// responses carry "id" together with "result" or "error". Unknown fields on
// any variant are ignored, per the wire contract in §6.
func DecodeMessage(raw []byte) (*Message, error) {
	if !gjson.ValidBytes(raw) {
		return nil, errors.New("transport: invalid JSON")
	}
	parsed := gjson.ParseBytes(raw)
	hasID := parsed.Get("id").Exists()
	hasMethod := parsed.Get("method").Exists()

	switch {
	case hasMethod && hasID:
		var req Request
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, errors.Wrap(err, "transport: decode request")
		}
		return NewRequestMessage(&req), nil
	case hasMethod:
		var n Notification
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, errors.Wrap(err, "transport: decode notification")
		}
		return NewNotificationMessage(&n), nil
	case hasID:
		var resp Response
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, errors.Wrap(err, "transport: decode response")
		}
		return NewResponseMessage(&resp), nil
	default:
		return nil, errors.Errorf("transport: message has neither method nor id: %s", string(raw))
	}
}
