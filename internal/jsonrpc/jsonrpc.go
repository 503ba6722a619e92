// Package jsonrpc holds the JSON-RPC 2.0 wire types spoken to the
// local tool host.
package jsonrpc

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Version is the protocol identifier required in every envelope.
const Version = "2.0"

// Standard JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Request is a JSON-RPC 2.0 call envelope.
type Request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
	ID      string      `json:"id"`
}

// NewRequest builds a request with a fresh uuid id.
func NewRequest(method string, params interface{}) Request {
	return Request{
		JSONRPC: Version,
		Method:  method,
		Params:  params,
		ID:      uuid.New().String(),
	}
}

// Error is the error member of a response envelope.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// Response is a JSON-RPC 2.0 reply envelope. Exactly one of Result
// and Error is set on a conforming reply.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	ID      interface{}     `json:"id,omitempty"`
}

// ValidEnvelope reports whether the reply carries the protocol marker
// and at least one of result/error. Hosts that answer with plain JSON
// (or HTML) fail this check and are treated as non-JSON-RPC.
func (r Response) ValidEnvelope() bool {
	return r.JSONRPC == Version && (len(r.Result) > 0 || r.Error != nil)
}

// ParseResponse decodes a response body. A decode failure returns a
// nil response and the error; callers decide whether that is fatal.
func ParseResponse(body []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode jsonrpc response: %w", err)
	}
	return &resp, nil
}
