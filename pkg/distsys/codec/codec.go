// Package codec translates one line of the wire protocol into a
// types.Message[P] and back. A line is a JSON object
// {"src","dest","body":{"msg_id","in_reply_to","type",...payload fields}}.
// Marshal/Unmarshal are backed by goccy/go-json, a drop-in replacement for
// encoding/json that every struct tag in this module already satisfies.
package codec

import (
	"fmt"

	json "github.com/goccy/go-json"

	"distsys/pkg/distsys/types"
)

// envelope is the wire shape of a Message before the payload is known.
type envelope struct {
	Src  string          `json:"src"`
	Dst  string          `json:"dest"`
	Body json.RawMessage `json:"body"`
}

// BodyHeader is the part of the body every payload variant shares.
type BodyHeader struct {
	ID        *uint64 `json:"msg_id,omitempty"`
	InReplyTo *uint64 `json:"in_reply_to,omitempty"`
	Type      string  `json:"type"`
}

// Line is a parsed-but-not-yet-typed inbound record: the envelope fields
// plus the body header, with the raw body still available so the caller
// can decode the payload once it knows which union member applies.
type Line struct {
	Src  string
	Dst  string
	Body json.RawMessage
	BodyHeader
}

// DecodeLine parses one line into its envelope and header, without
// attempting to decode the payload. Callers use BodyHeader.Type to choose
// how to decode the rest of Body.
func DecodeLine(line []byte) (Line, error) {
	var env envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return Line{}, fmt.Errorf("decode envelope: %w", err)
	}
	var hdr BodyHeader
	if err := json.Unmarshal(env.Body, &hdr); err != nil {
		return Line{}, fmt.Errorf("decode body header: %w", err)
	}
	return Line{Src: env.Src, Dst: env.Dst, Body: env.Body, BodyHeader: hdr}, nil
}

// DecodePayload unmarshals the raw body into a concrete payload struct P.
// Fields reserved for the header (msg_id, in_reply_to, type) are ignored by
// P's own tags, matching the "flatten" semantics of the original protocol.
func DecodePayload[P any](body json.RawMessage) (P, error) {
	var payload P
	if err := json.Unmarshal(body, &payload); err != nil {
		return payload, fmt.Errorf("decode payload: %w", err)
	}
	return payload, nil
}

// EncodeMessage serializes msg as one wire line (without a trailing
// newline): the payload's own fields are flattened into the body alongside
// msg_id/in_reply_to/type.
func EncodeMessage[P types.Typed](msg types.Message[P]) ([]byte, error) {
	payloadBytes, err := json.Marshal(msg.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payloadBytes, &fields); err != nil {
		return nil, fmt.Errorf("flatten payload: %w", err)
	}
	if fields == nil {
		fields = map[string]json.RawMessage{}
	}

	typeBytes, err := json.Marshal(msg.Payload.Type())
	if err != nil {
		return nil, fmt.Errorf("marshal type tag: %w", err)
	}
	fields["type"] = typeBytes

	if msg.ID != nil {
		idBytes, err := json.Marshal(*msg.ID)
		if err != nil {
			return nil, fmt.Errorf("marshal msg_id: %w", err)
		}
		fields["msg_id"] = idBytes
	}
	if msg.InReplyTo != nil {
		irtBytes, err := json.Marshal(*msg.InReplyTo)
		if err != nil {
			return nil, fmt.Errorf("marshal in_reply_to: %w", err)
		}
		fields["in_reply_to"] = irtBytes
	}

	bodyBytes, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("marshal body: %w", err)
	}

	env := envelope{Src: msg.Src, Dst: msg.Dst, Body: bodyBytes}
	out, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return out, nil
}

// IsClientSrc is the dispatcher's classification heuristic (spec.md §4.3):
// a lowercase letter followed only by digits, e.g. "c1", "n3". It is a fast
// path, not a contract — correctness comes from which payload type parses.
func IsClientSrc(src string) bool {
	if len(src) < 2 {
		return false
	}
	if src[0] < 'a' || src[0] > 'z' {
		return false
	}
	for i := 1; i < len(src); i++ {
		if src[i] < '0' || src[i] > '9' {
			return false
		}
	}
	return true
}
