package message

import (
	"encoding/json"
	"fmt"

	"github.com/viant/jsonrpc"
)

// JSON-RPC error codes used by the bridge.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeInternalError  = -32603
)

// ParseError reports an inbound frame that could not be decoded.
type ParseError struct {
	// ID is the request id salvaged from the frame, nil when none was readable.
	ID     json.RawMessage
	Code   int
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// HasID reports whether a reply can be addressed to the sender.
func (e *ParseError) HasID() bool {
	return len(e.ID) > 0
}

// RPCError converts the failure into a JSON-RPC error object.
func (e *ParseError) RPCError() *jsonrpc.Error {
	if e.Code == CodeParseError {
		return jsonrpc.NewParsingError(e.Error(), nil)
	}
	return jsonrpc.NewInvalidRequest(e.Error(), nil)
}
