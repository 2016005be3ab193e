// Package counter implements the replicated g-counter engine: each node
// shards the global value into its own key on the external seq-kv
// service and sums all shards on read, per spec.md §4.5.
package counter

import (
	"fmt"

	"distsys/pkg/distsys/codec"
)

// Payload is the union of client-facing counter requests/responses.
type Payload interface {
	Type() string
}

type Add struct {
	Delta uint64 `json:"delta"`
}

func (Add) Type() string { return "add" }

type AddOk struct{}

func (AddOk) Type() string { return "add_ok" }

type Read struct{}

func (Read) Type() string { return "read" }

type ReadOk struct {
	Value uint64 `json:"value"`
}

func (ReadOk) Type() string { return "read_ok" }

// Decode dispatches on the body's "type" tag to the concrete payload.
func Decode(hdr codec.BodyHeader, body []byte) (Payload, error) {
	switch hdr.Type {
	case "add":
		return codec.DecodePayload[Add](body)
	case "add_ok":
		return codec.DecodePayload[AddOk](body)
	case "read":
		return codec.DecodePayload[Read](body)
	case "read_ok":
		return codec.DecodePayload[ReadOk](body)
	default:
		return nil, fmt.Errorf("unknown counter payload type %q", hdr.Type)
	}
}
