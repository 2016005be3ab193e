// Package types holds the wire-level shapes shared by every workload: the
// message envelope, the body header, and the one-shot init record.
package types

// Typed is implemented by every payload variant. The returned string is the
// snake_case "type" discriminator written into the body.
type Typed interface {
	Type() string
}

// Message is one line on the wire: a src/dst pair plus a body carrying the
// workload-specific payload P. ID and InReplyTo come from Body in the JSON
// encoding (see codec.EncodeMessage/DecodeLine) but are hoisted here so
// engines never need to reach through a nested struct.
type Message[P any] struct {
	Src        string
	Dst        string
	ID         *uint64
	InReplyTo  *uint64
	Payload    P
}

// Reply builds the response to req: src/dst swapped, in_reply_to set to
// req's id, and a fresh id assigned from the caller's sequence.
func Reply[P, R any](req Message[P], id uint64, payload R) Message[R] {
	return Message[R]{
		Src:       req.Dst,
		Dst:       req.Src,
		ID:        &id,
		InReplyTo: req.ID,
		Payload:   payload,
	}
}

// Init is the one-shot initialization record delivered as the first inbound
// message of every run.
type Init struct {
	NodeID  string   `json:"node_id"`
	NodeIDs []string `json:"node_ids"`
}
