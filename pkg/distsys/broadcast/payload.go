// Package broadcast implements the gossip-based broadcast engine: client
// protocol (broadcast/read/topology) plus the peer-facing gossip protocol,
// per spec.md §4.4.
package broadcast

import (
	"fmt"

	"distsys/pkg/distsys/codec"
)

// Payload is the union of every variant a broadcast node sends or
// receives, client- and peer-facing alike — both travel over the same
// classification path since peer ids (e.g. "n2") match the same src
// heuristic as client ids (spec.md §4.3, §9 Open Questions).
type Payload interface {
	Type() string
}

type Broadcast struct {
	Message uint64 `json:"message"`
}

func (Broadcast) Type() string { return "broadcast" }

type BroadcastOk struct{}

func (BroadcastOk) Type() string { return "broadcast_ok" }

type Read struct{}

func (Read) Type() string { return "read" }

type ReadOk struct {
	Messages []uint64 `json:"messages"`
}

func (ReadOk) Type() string { return "read_ok" }

type Topology struct {
	Topology map[string][]string `json:"topology"`
}

func (Topology) Type() string { return "topology" }

type TopologyOk struct{}

func (TopologyOk) Type() string { return "topology_ok" }

// Gossip carries the sender's view of a subset of messages to one peer. It
// is fire-and-forget: no reply is ever sent for it.
type Gossip struct {
	Seen []uint64 `json:"seen"`
}

func (Gossip) Type() string { return "gossip" }

// GossipTick is the injected signal produced by the anti-entropy ticker.
type GossipTick struct{}

// NoService is the (unused) service-payload type: broadcast has no
// external RPC collaborator.
type NoService struct{}

func (NoService) Type() string { return "" }

// Decode dispatches on the body's "type" tag to the concrete payload.
func Decode(hdr codec.BodyHeader, body []byte) (Payload, error) {
	switch hdr.Type {
	case "broadcast":
		return codec.DecodePayload[Broadcast](body)
	case "broadcast_ok":
		return codec.DecodePayload[BroadcastOk](body)
	case "read":
		return codec.DecodePayload[Read](body)
	case "read_ok":
		return codec.DecodePayload[ReadOk](body)
	case "topology":
		return codec.DecodePayload[Topology](body)
	case "topology_ok":
		return codec.DecodePayload[TopologyOk](body)
	case "gossip":
		return codec.DecodePayload[Gossip](body)
	default:
		return nil, fmt.Errorf("unknown broadcast payload type %q", hdr.Type)
	}
}

// DecodeService never succeeds: broadcast has no service namespace, so the
// dispatcher always falls back to Decode.
func DecodeService(_ codec.BodyHeader, _ []byte) (NoService, error) {
	return NoService{}, fmt.Errorf("broadcast has no service payloads")
}
