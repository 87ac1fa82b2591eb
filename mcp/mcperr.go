package mcp

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/metoro-io/mcp-golang/internal/protocol"
)

// RPCError is the structured {code, message, data} value a request
// handler returns to control exactly what is sent back over the wire; any
// other error collapses to InternalError. It is a thin alias over
// internal/protocol's RPCError so handler code in this package and
// user-supplied handlers share one type.
type RPCError = protocol.RPCError

// NewRPCError and NewRPCErrorWithData construct an RPCError.
var (
	NewRPCError         = protocol.NewRPCError
	NewRPCErrorWithData = protocol.NewRPCErrorWithData
)

// Standard JSON-RPC error codes, re-exported for handler code that wants
// to build an RPCError directly.
const (
	ParseErrorCode     = protocol.ParseErrorCode
	InvalidRequestCode = protocol.InvalidRequestCode
	MethodNotFoundCode = protocol.MethodNotFoundCode
	InvalidParamsCode  = protocol.InvalidParamsCode
	InternalErrorCode  = protocol.InternalErrorCode
)

// MCP-specific error kinds, surfaced at error.data.kind per §6.
const (
	KindUnknownTool      = "unknownTool"
	KindUnknownPrompt    = "unknownPrompt"
	KindCapabilityAbsent = "capabilityAbsent"
)

// Lifecycle errors (§7): already connected, not connected, initialization
// timeout, version mismatch, capability validation failures. These are
// plain sentinel-style errors returned from Client/Server construction and
// Connect, not sent over the wire.
var (
	// ErrAlreadyConnected is returned by a second call to Client.Connect on
	// the same client, per the connect-exclusivity invariant in §5.
	ErrAlreadyConnected = errors.New("mcp: client already connected or connecting")

	// ErrNotConnected is returned by operations that require an active
	// session before one has been established.
	ErrNotConnected = errors.New("mcp: client not connected")

	// ErrInitializeTimeout is returned when the server does not respond to
	// initialize within the configured timeout.
	ErrInitializeTimeout = errors.New("mcp: initialize timed out")
)

// VersionMismatchError reports that the server's echoed protocol version
// did not exactly match what the client requested.
type VersionMismatchError struct {
	Requested string
	Got       string
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("mcp: protocol version mismatch: requested %q, server returned %q", e.Requested, e.Got)
}

// CapabilityHandlerMissingError reports that a declared capability has no
// corresponding handler, a construction-time error for both Client and
// Server.
type CapabilityHandlerMissingError struct {
	Capability string
	Method     string
}

func (e *CapabilityHandlerMissingError) Error() string {
	return fmt.Sprintf("mcp: capability %q declared without a handler for %q", e.Capability, e.Method)
}

// HandlerPairAsymmetryError reports that only one half of a paired
// handler set (list+get, list+call, subscribe+unsubscribe) was supplied.
type HandlerPairAsymmetryError struct {
	Pair string
}

func (e *HandlerPairAsymmetryError) Error() string {
	return fmt.Sprintf("mcp: handler pair %q must be specified or omitted together", e.Pair)
}
