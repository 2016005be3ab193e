// Package echo implements the trivial echo workload, used mainly to
// exercise the runtime's init/dispatch/reply plumbing end to end.
package echo

import (
	"fmt"

	"distsys/pkg/distsys/codec"
)

// Payload is the union of echo requests/responses.
type Payload interface {
	Type() string
}

type Echo struct {
	Echo string `json:"echo"`
}

func (Echo) Type() string { return "echo" }

type EchoOk struct {
	Echo string `json:"echo"`
}

func (EchoOk) Type() string { return "echo_ok" }

// NoService is a placeholder: echo has no service-message namespace.
type NoService struct{}

func (NoService) Type() string { return "" }

// Decode dispatches on the body's "type" tag to the concrete payload.
func Decode(hdr codec.BodyHeader, body []byte) (Payload, error) {
	switch hdr.Type {
	case "echo":
		return codec.DecodePayload[Echo](body)
	case "echo_ok":
		return codec.DecodePayload[EchoOk](body)
	default:
		return nil, fmt.Errorf("unknown echo payload type %q", hdr.Type)
	}
}

// DecodeService always fails: echo never receives a service message, so
// the dispatcher's fallback path never matches.
func DecodeService(_ codec.BodyHeader, _ []byte) (NoService, error) {
	return NoService{}, fmt.Errorf("echo has no service payloads")
}
