// Package protocol defines the line-delimited wire format spoken between the
// orchestrator and worker processes.
//
// Invariants:
// - Every message is one UTF-8 line of JSON, self-contained.
// - A response carries the id of the request it answers.
// - A response holds either a result or an error, never both.
package protocol

import (
	"encoding/json"
	"fmt"
)

// ErrorKind classifies a failed invocation.
type ErrorKind string

const (
	// ErrKindSpawn means the worker process failed to launch.
	ErrKindSpawn ErrorKind = "spawn_error"

	// ErrKindProtocol means a frame could not be parsed or violated the wire contract.
	ErrKindProtocol ErrorKind = "protocol_error"

	// ErrKindRemote means the worker executed the operation and reported failure.
	ErrKindRemote ErrorKind = "remote_error"

	// ErrKindTimeout means the call deadline expired.
	ErrKindTimeout ErrorKind = "timeout_error"

	// ErrKindRateLimit means the quota guard refused the call.
	ErrKindRateLimit ErrorKind = "rate_limit_exceeded"

	// ErrKindNotFound means the worker or operation name is unknown.
	ErrKindNotFound ErrorKind = "not_found"
)

// Request is one invocation sent to a worker.
type Request struct {
	ID        string                 `json:"id"`
	Operation string                 `json:"operation"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
}

// WireError is the error half of a response.
type WireError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// Response is one answer read back from a worker.
type Response struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *WireError      `json:"error,omitempty"`
}

// EncodeRequest marshals a request as a single newline-terminated frame.
func EncodeRequest(req Request) ([]byte, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request %s: %w", req.ID, err)
	}
	return append(data, '\n'), nil
}

// DecodeResponse parses one frame into a response. A frame that parses but
// carries no id is rejected, the client would have nothing to correlate it to.
func DecodeResponse(line []byte) (Response, error) {
	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return Response{}, fmt.Errorf("malformed frame: %w", err)
	}
	if resp.ID == "" {
		return Response{}, fmt.Errorf("frame missing id")
	}
	return resp, nil
}

// EncodeResponse marshals a response as a single newline-terminated frame.
// Test workers and fixtures use this to speak the server side of the protocol.
func EncodeResponse(resp Response) ([]byte, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("encode response %s: %w", resp.ID, err)
	}
	return append(data, '\n'), nil
}

// DecodeRequest parses one frame into a request, the server-side counterpart
// of DecodeResponse.
func DecodeRequest(line []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return Request{}, fmt.Errorf("malformed frame: %w", err)
	}
	if req.ID == "" {
		return Request{}, fmt.Errorf("frame missing id")
	}
	return req, nil
}
