package echo

import (
	"context"
	"fmt"
	"sync/atomic"

	"distsys/pkg/distsys/core"
	"distsys/pkg/distsys/definition"
	"distsys/pkg/distsys/types"
)

// Tick is the (unused) injected-event type: echo has no background tasks.
type Tick struct{}

// Engine replies to every Echo with the same string. Step is invoked
// concurrently by the runtime (spec.md §4.6), so next is an atomic
// counter rather than a plain field.
type Engine struct {
	node string
	log  definition.Logger
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
	case Echo:
		id := e.next.Add(1)
		reply := types.Reply[Payload, Payload](ev.Message, id, EchoOk{Echo: p.Echo})
		if err := core.Send(out, reply); err != nil {
			return fmt.Errorf("reply to echo: %w", err)
		}
		return nil
	case EchoOk:
		return nil
	default:
		e.log.Warnf("unhandled payload %#v", p)
		return nil
	}
}
