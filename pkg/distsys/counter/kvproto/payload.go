// Package kvproto defines the wire payloads exchanged with the external
// sequentially-consistent key-value service ("seq-kv"), per spec.md §4.5.
package kvproto

import (
	"fmt"

	"distsys/pkg/distsys/codec"
)

// Payload is the union of every KV request/response variant.
type Payload interface {
	Type() string
}

type Read struct {
	Key string `json:"key"`
}

func (Read) Type() string { return "read" }

type ReadOk struct {
	Value uint64 `json:"value"`
}

func (ReadOk) Type() string { return "read_ok" }

type Cas struct {
	Key  string `json:"key"`
	From uint64 `json:"from"`
	To   uint64 `json:"to"`
}

func (Cas) Type() string { return "cas" }

type CasOk struct{}

func (CasOk) Type() string { return "cas_ok" }

type Write struct {
	Key   string `json:"key"`
	Value uint64 `json:"value"`
}

func (Write) Type() string { return "write" }

type WriteOk struct{}

func (WriteOk) Type() string { return "write_ok" }

// Error is returned by the KV for a failed request. A Text containing
// "does not exist" indicates the key was never written.
type Error struct {
	Code uint32 `json:"code"`
	Text string `json:"text"`
}

func (Error) Type() string { return "error" }

// Decode dispatches on the body's "type" tag to the concrete KV payload.
func Decode(hdr codec.BodyHeader, body []byte) (Payload, error) {
	switch hdr.Type {
	case "read":
		return codec.DecodePayload[Read](body)
	case "read_ok":
		return codec.DecodePayload[ReadOk](body)
	case "cas":
		return codec.DecodePayload[Cas](body)
	case "cas_ok":
		return codec.DecodePayload[CasOk](body)
	case "write":
		return codec.DecodePayload[Write](body)
	case "write_ok":
		return codec.DecodePayload[WriteOk](body)
	case "error":
		return codec.DecodePayload[Error](body)
	default:
		return nil, fmt.Errorf("unknown kv payload type %q", hdr.Type)
	}
}
