// Package protocol defines the line-delimited JSON envelopes exchanged with
// clients: requests carry {type, data}, responses and pushed events carry
// {type, status, data}.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"ohtalk/errors"
)

type Status string

const (
	StatusOK   Status = "ok"
	StatusFail Status = "fail"
)

// Request is an inbound envelope. Data is kept raw until the dispatcher
// knows which typed payload the request type maps to.
type Request struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Envelope is an outbound response or event.
type Envelope struct {
	Type   string `json:"type"`
	Status Status `json:"status"`
	Data   any    `json:"data"`
}

// Failure is the data of every fail envelope.
type Failure struct {
	Reason string `json:"reason"`
}

type empty struct{}

// OK builds a success response. A nil payload is sent as an empty object.
func OK(requestType string, data any) Envelope {
	if data == nil {
		data = empty{}
	}
	return Envelope{Type: requestType, Status: StatusOK, Data: data}
}

// Fail builds a failure response carrying a human-readable reason.
func Fail(requestType, reason string) Envelope {
	return Envelope{Type: requestType, Status: StatusFail, Data: Failure{Reason: reason}}
}

// Event builds a server push. Events always carry status ok.
func Event(eventType string, data any) Envelope {
	return OK(eventType, data)
}

// Encode marshals one envelope without the frame terminator.
func Encode(env Envelope) ([]byte, error) {
	b, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode %s envelope: %w", env.Type, err)
	}
	return b, nil
}

// Decode parses one inbound line. On failure the returned Request still
// carries the type whenever it could be recovered, so that the error
// response can echo it.
func Decode(line []byte) (Request, error) {
	var raw struct {
		Type *string         `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(line, &raw); err != nil {
		return Request{}, err
	}
	if raw.Type == nil {
		return Request{}, errors.ErrMissingType
	}
	request := Request{Type: *raw.Type}
	data := bytes.TrimSpace(raw.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return request, errors.ErrMissingData
	}
	if data[0] != '{' {
		return request, fmt.Errorf("data must be an object")
	}
	request.Data = data
	return request, nil
}
