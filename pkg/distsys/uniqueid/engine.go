package uniqueid

import (
	"context"
	"fmt"
	"sync/atomic"

	"distsys/pkg/distsys/core"
	"distsys/pkg/distsys/definition"
	"distsys/pkg/distsys/types"
)

// Tick is the (unused) injected-event type: uniqueid has no background tasks.
type Tick struct{}

// Engine mints "<node_id>-<seq>" ids, unique across the cluster because
// node ids are themselves unique and each node's sequence only increases.
// Step is invoked concurrently by the runtime (spec.md §4.6), so seq and
// next are atomic counters: a plain field would let two in-flight
// generate requests read the same value and mint a duplicate id.
type Engine struct {
	node string
	log  definition.Logger
	seq  atomic.Uint64
	next atomic.Uint64
}

var _ core.Engine[Payload, NoService, Tick] = (*Engine)(nil)

func FromInit(log definition.Logger) core.Factory[Payload, NoService, Tick] {
	return func(_ context.Context, init types.Init, _ core.Inject[Tick], _ *core.Writer) (core.Engine[Payload, NoService, Tick], error) {
		return &Engine{node: init.NodeID, log: log.WithField("node", init.NodeID)}, nil
	}
}

func (e *Engine) Step(_ context.Context, ev types.Event[Payload, NoService, Tick], out *core.Writer) error {
	if ev.Kind != types.EventMessage {
		return nil
	}
	switch p := ev.Message.Payload.(type) {
	case Generate:
		seq := e.seq.Add(1)
		id := fmt.Sprintf("%s-%d", e.node, seq)
		replyID := e.next.Add(1)
		reply := types.Reply[Payload, Payload](ev.Message, replyID, GenerateOk{ID: id})
		if err := core.Send(out, reply); err != nil {
			return fmt.Errorf("reply to generate: %w", err)
		}
		return nil
	case GenerateOk:
		return nil
	default:
		e.log.Warnf("unhandled payload %#v", p)
		return nil
	}
}
