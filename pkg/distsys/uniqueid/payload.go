// Package uniqueid implements the globally-unique-ID workload: each node
// mints ids by pairing its own node id with a local monotonic sequence,
// which needs no coordination between nodes (spec.md §4.5 precedent for
// locally-derived identifiers).
package uniqueid

import (
	"fmt"

	"distsys/pkg/distsys/codec"
)

type Payload interface {
	Type() string
}

type Generate struct{}

func (Generate) Type() string { return "generate" }

type GenerateOk struct {
	ID string `json:"id"`
}

func (GenerateOk) Type() string { return "generate_ok" }

type NoService struct{}

func (NoService) Type() string { return "" }

func Decode(hdr codec.BodyHeader, body []byte) (Payload, error) {
	switch hdr.Type {
	case "generate":
		return codec.DecodePayload[Generate](body)
	case "generate_ok":
		return codec.DecodePayload[GenerateOk](body)
	default:
		return nil, fmt.Errorf("unknown uniqueid payload type %q", hdr.Type)
	}
}

func DecodeService(_ codec.BodyHeader, _ []byte) (NoService, error) {
	return NoService{}, fmt.Errorf("uniqueid has no service payloads")
}
