// Package message models JSON-RPC 2.0 frames exchanged by the bridge.
//
// A frame is kept together with its raw text so that forwarding never drops
// members this bridge does not understand. Request ids are kept as raw JSON
// text: they are opaque correlators and must round-trip exactly.
package message

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/viant/jsonrpc"

	"github.com/5dlabs/toolman-sub001/internal/jsonobj"
)

// Kind identifies the shape of a frame.
type Kind int

const (
	KindRequest Kind = iota + 1
	KindResponse
	KindNotification
)

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindResponse:
		return "response"
	case KindNotification:
		return "notification"
	}
	return "unknown"
}

// Message is one JSON-RPC frame.
type Message struct {
	Kind   Kind
	ID     json.RawMessage
	Method string
	Params json.RawMessage
	Result json.RawMessage
	Error  json.RawMessage
	// Raw is the compact frame text.
	Raw json.RawMessage
}

type notificationFrame struct {
	Jsonrpc string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type envelope struct {
	Jsonrpc string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	Result  json.RawMessage `json:"result"`
	Error   json.RawMessage `json:"error"`
}

// Parse decodes a single frame. Failures are returned as *ParseError carrying
// the request id when one could be recovered.
func Parse(data []byte) (*Message, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, &ParseError{Code: CodeParseError, Reason: "empty frame"}
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		ret := &ParseError{Code: CodeParseError, Reason: "invalid JSON", Err: err}
		if _, isSyntax := err.(*json.SyntaxError); !isSyntax {
			ret.Code = CodeInvalidRequest
			ret.Reason = "invalid message"
		}
		ret.ID = salvageID(data)
		return nil, ret
	}
	hasID := len(env.ID) > 0
	if hasID && !validID(env.ID) {
		return nil, &ParseError{Code: CodeInvalidRequest, Reason: fmt.Sprintf("invalid id %s", env.ID)}
	}
	compact := &bytes.Buffer{}
	if err := json.Compact(compact, data); err != nil {
		return nil, &ParseError{Code: CodeParseError, Reason: "invalid JSON", Err: err}
	}
	ret := &Message{
		ID:     env.ID,
		Method: env.Method,
		Params: env.Params,
		Result: env.Result,
		Error:  env.Error,
		Raw:    compact.Bytes(),
	}
	if env.Jsonrpc != jsonrpc.Version {
		return nil, &ParseError{ID: idOrNil(env.ID), Code: CodeInvalidRequest, Reason: fmt.Sprintf("unsupported jsonrpc version %q", env.Jsonrpc)}
	}
	switch {
	case env.Method != "" && hasID:
		ret.Kind = KindRequest
	case env.Method != "":
		ret.Kind = KindNotification
	case hasID && (len(env.Result) > 0 || len(env.Error) > 0):
		ret.Kind = KindResponse
	default:
		return nil, &ParseError{ID: idOrNil(env.ID), Code: CodeInvalidRequest, Reason: "frame is neither request, response nor notification"}
	}
	return ret, nil
}

// Key returns the correlation key of the frame id.
func (m *Message) Key() string {
	return Key(m.ID)
}

// HasID reports whether the frame carries a non-null id.
func (m *Message) HasID() bool {
	return validID(m.ID)
}

// WithResult returns a response frame for m with the result replaced.
func (m *Message) WithResult(result json.RawMessage) (*Message, error) {
	data, err := json.Marshal(&jsonrpc.Response{Id: m.ID, Jsonrpc: jsonrpc.Version, Result: result})
	if err != nil {
		return nil, err
	}
	return &Message{Kind: KindResponse, ID: m.ID, Result: result, Raw: data}, nil
}

// WithParam returns a copy of the frame with params[name] set to value. Other
// params and frame members keep their order.
func (m *Message) WithParam(name string, value any) (*Message, error) {
	frame, err := jsonobj.Parse(m.Raw)
	if err != nil {
		return nil, err
	}
	params := &jsonobj.Object{}
	if len(m.Params) > 0 && string(m.Params) != "null" {
		if params, err = jsonobj.Parse(m.Params); err != nil {
			return nil, fmt.Errorf("params: %w", err)
		}
	}
	if err = params.SetValue(name, value); err != nil {
		return nil, err
	}
	if err = frame.SetValue("params", params); err != nil {
		return nil, err
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Key normalizes a raw id into a correlation key; numbers and strings never collide.
func Key(id json.RawMessage) string {
	buf := &bytes.Buffer{}
	if err := json.Compact(buf, id); err != nil {
		return string(id)
	}
	return buf.String()
}

// NewRequest builds a request frame.
func NewRequest(id json.RawMessage, method string, params any) (*Message, error) {
	request := &jsonrpc.Request{Id: id, Jsonrpc: jsonrpc.Version, Method: method}
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, err
		}
		request.Params = data
	}
	raw, err := json.Marshal(request)
	if err != nil {
		return nil, err
	}
	return &Message{Kind: KindRequest, ID: id, Method: method, Params: request.Params, Raw: raw}, nil
}

// NewNotification builds a notification frame.
func NewNotification(method string, params any) (*Message, error) {
	notification := &notificationFrame{Jsonrpc: jsonrpc.Version, Method: method}
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, err
		}
		notification.Params = data
	}
	raw, err := json.Marshal(notification)
	if err != nil {
		return nil, err
	}
	return &Message{Kind: KindNotification, Method: method, Params: notification.Params, Raw: raw}, nil
}

// NewErrorResponse builds an error response frame for id; a nil id is encoded as null.
func NewErrorResponse(id json.RawMessage, rpcErr *jsonrpc.Error) *Message {
	if len(id) == 0 {
		id = json.RawMessage("null")
	}
	response := &jsonrpc.Response{Id: id, Jsonrpc: jsonrpc.Version, Error: rpcErr}
	raw, err := json.Marshal(response)
	if err != nil {
		raw = []byte(fmt.Sprintf(`{"jsonrpc":"2.0","id":%s,"error":{"code":%d,"message":"internal error"}}`, id, CodeInternalError))
	}
	errData, _ := json.Marshal(rpcErr)
	return &Message{Kind: KindResponse, ID: id, Error: errData, Raw: raw}
}

// salvageID scans top-level members up to the first decoding error, so an id
// placed before the damage is still recovered.
func salvageID(data []byte) json.RawMessage {
	decoder := json.NewDecoder(bytes.NewReader(data))
	if token, err := decoder.Token(); err != nil || token != json.Delim('{') {
		return nil
	}
	for decoder.More() {
		token, err := decoder.Token()
		if err != nil {
			return nil
		}
		key, ok := token.(string)
		if !ok {
			return nil
		}
		var value json.RawMessage
		if err = decoder.Decode(&value); err != nil {
			return nil
		}
		if key == "id" {
			return idOrNil(value)
		}
	}
	return nil
}

func idOrNil(id json.RawMessage) json.RawMessage {
	if validID(id) {
		return id
	}
	return nil
}

// validID accepts JSON strings and numbers.
func validID(id json.RawMessage) bool {
	id = bytes.TrimSpace(id)
	if len(id) == 0 {
		return false
	}
	switch c := id[0]; {
	case c == '"':
		return true
	case c == '-' || (c >= '0' && c <= '9'):
		return true
	}
	return false
}
