package protocol

import "github.com/pkg/errors"

// Standard JSON-RPC 2.0 error codes, plus the MCP-specific range reserved
// for request cancellation. See §7 of the protocol's error taxonomy.
const (
	ParseErrorCode     = -32700
	InvalidRequestCode = -32600
	MethodNotFoundCode = -32601
	InvalidParamsCode  = -32602
	InternalErrorCode  = -32603

	RequestCancelledCode = -32800
)

// ErrEndpointClosed is returned by SendRequest/SendNotification once the
// endpoint has begun or finished tearing down, and delivered to any
// request still awaiting a response at teardown time.
var ErrEndpointClosed = errors.New("protocol: endpoint closed")

// RPCError lets a RequestHandler specify the exact JSON-RPC error code and
// optional data sent back to the caller, instead of always collapsing to
// InternalError. Handlers that want InvalidParams, MethodNotFound, or an
// MCP-specific code (reserved range -32000 to -32099, surfaced to the
// caller as error.data.kind) should return one of these.
type RPCError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *RPCError) Error() string { return e.Message }

// NewRPCError builds an RPCError with no additional data.
func NewRPCError(code int, message string) *RPCError {
	return &RPCError{Code: code, Message: message}
}

// NewRPCErrorWithData builds an RPCError carrying structured data.
func NewRPCErrorWithData(code int, message string, data interface{}) *RPCError {
	return &RPCError{Code: code, Message: message, Data: data}
}

// MCP-specific error codes occupy this reserved range; Kind identifies
// which domain condition occurred and is carried in error.data.kind.
const MCPErrorCodeBase = -32000

// NewMCPError builds an RPCError in the MCP-specific reserved range, with
// kind surfaced at data.kind per §6's error.data.kind contract.
func NewMCPError(offset int, kind, message string) *RPCError {
	return &RPCError{
		Code:    MCPErrorCodeBase - offset,
		Message: message,
		Data:    map[string]interface{}{"kind": kind},
	}
}
