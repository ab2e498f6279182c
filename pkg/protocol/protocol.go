// Package protocol defines the line-delimited JSON request/response
// records exchanged with clients.
//
// One request per line, one response per line, in order. The framing is
// deliberately trivial: a newline terminates a record, and a record never
// contains a raw newline (encoding/json escapes them).
package protocol

import (
	"encoding/json"
	"errors"

	"github.com/filegate/filegate/pkg/operr"
)

// Request is one client request record.
//
// ID is echoed back verbatim on the response so callers can correlate.
// Args carries operation-specific fields and is decoded by the dispatcher.
type Request struct {
	ID   string         `json:"id"`
	Op   string         `json:"op"`
	Args map[string]any `json:"args,omitempty"`
}

// Response is one server response record. Exactly one of Result or Error
// is populated, selected by OK.
type Response struct {
	ID     string     `json:"id"`
	OK     bool       `json:"ok"`
	Result any        `json:"result,omitempty"`
	Error  *ErrorBody `json:"error,omitempty"`
}

// ErrorBody is the wire form of a failed operation.
type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Success builds a response carrying a result payload.
func Success(id string, result any) Response {
	return Response{ID: id, OK: true, Result: result}
}

// Failure builds a response from an operation error, mapping untyped
// errors through the same sanitization the gateway applies.
func Failure(id string, err error) Response {
	body := &ErrorBody{
		Kind:    string(operr.KindOf(err)),
		Message: err.Error(),
	}
	var oe *operr.Error
	if errors.As(err, &oe) {
		body.Message = oe.Message
		if oe.Category != "" {
			body.Kind = string(operr.KindIoFailure) + "(" + oe.Category + ")"
		}
	}
	return Response{ID: id, OK: false, Error: body}
}

// ParseRequest decodes one request line. The raw bytes must hold exactly
// one JSON object; trailing garbage is an error.
func ParseRequest(line []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return Request{}, operr.New(operr.KindInvalidArguments, "malformed request record")
	}
	return req, nil
}

// EncodeResponse renders one response as a single JSON line, without the
// trailing newline.
func EncodeResponse(resp Response) ([]byte, error) {
	return json.Marshal(resp)
}
