package counter

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"distsys/pkg/distsys/core"
	"distsys/pkg/distsys/counter/kvproto"
	"distsys/pkg/distsys/definition"
	"distsys/pkg/distsys/types"
)

const (
	readSettleDelay      = 200 * time.Millisecond
	readSettleDelayFinal = 500 * time.Millisecond
)

// Tick is the (unused) injected-event type: the counter engine has no
// background timers.
type Tick struct{}

// Engine is the replicated g-counter Node engine.
type Engine struct {
	node    string
	nodeIDs []string
	table   *core.CorrelationTable
	kv      *kvClient
	addLock sync.Mutex
	log     definition.Logger
}

var _ core.Engine[Payload, kvproto.Payload, Tick] = (*Engine)(nil)

// FromInit writes this node's zero-valued shard synchronously (no response
// awaited, see kvClient.writeFireAndForget) and returns the engine.
func FromInit(log definition.Logger) core.Factory[Payload, kvproto.Payload, Tick] {
	return func(_ context.Context, init types.Init, _ core.Inject[Tick], out *core.Writer) (core.Engine[Payload, kvproto.Payload, Tick], error) {
		table := core.NewCorrelationTable(0)
		e := &Engine{
			node:    init.NodeID,
			nodeIDs: init.NodeIDs,
			table:   table,
			kv:      newKVClient(init.NodeID, table, out),
			log:     log.WithField("node", init.NodeID),
		}
		if err := e.kv.writeFireAndForget(init.NodeID, 0); err != nil {
			return nil, fmt.Errorf("initialize counter shard for node %s: %w", init.NodeID, err)
		}
		return e, nil
	}
}

// Step implements core.Engine.
func (e *Engine) Step(ctx context.Context, ev types.Event[Payload, kvproto.Payload, Tick], out *core.Writer) error {
	switch ev.Kind {
	case types.EventEOF, types.EventInjected:
		return nil
	case types.EventService:
		resolve(e.table, ev.Service)
		return nil
	case types.EventMessage:
		return e.handleMessage(ctx, ev.Message, out)
	default:
		return nil
	}
}

func (e *Engine) handleMessage(ctx context.Context, msg types.Message[Payload], out *core.Writer) error {
	switch p := msg.Payload.(type) {
	case Add:
		if p.Delta == 0 {
			return e.reply(msg, out, AddOk{}, "reply to add")
		}
		e.addLock.Lock()
		err := e.add(ctx, p.Delta)
		e.addLock.Unlock()
		if err != nil {
			return fmt.Errorf("add delta %d: %w", p.Delta, err)
		}
		return e.reply(msg, out, AddOk{}, "reply to add")
	case Read:
		if msg.ID != nil {
			time.Sleep(readSettleDelayFinal)
		} else {
			time.Sleep(readSettleDelay)
		}
		total := e.fanOutRead(ctx)
		return e.reply(msg, out, ReadOk{Value: total}, "reply to read")
	case AddOk, ReadOk:
		return nil
	default:
		e.log.Warnf("unhandled payload %#v", p)
		return nil
	}
}

// add runs the read-then-CAS loop under the add-serializer, making it
// racy only against other nodes' CAS attempts, never against itself
// (spec.md §4.5).
func (e *Engine) add(ctx context.Context, delta uint64) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		old, err := e.kv.read(ctx, e.node)
		if err != nil {
			if isDoesNotExist(err) {
				if werr := e.kv.write(ctx, e.node, delta); werr == nil {
					return nil
				}
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}

		if err := e.kv.cas(ctx, e.node, old, old+delta); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// fanOutRead issues one parallel kv read per cluster node and sums the
// results; an absent key or transient error contributes 0 (spec.md §4.5).
func (e *Engine) fanOutRead(ctx context.Context) uint64 {
	var mu sync.Mutex
	var total uint64

	g, gctx := errgroup.WithContext(ctx)
	for _, nodeID := range e.nodeIDs {
		nodeID := nodeID
		g.Go(func() error {
			value, err := e.kv.read(gctx, nodeID)
			if err != nil {
				e.log.Warnf("kv read error for node %s: %v", nodeID, err)
				return nil
			}
			mu.Lock()
			total += value
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return total
}

func (e *Engine) reply(req types.Message[Payload], out *core.Writer, payload Payload, context string) error {
	id := e.table.Next()
	reply := types.Reply[Payload, Payload](req, id, payload)
	if err := core.Send(out, reply); err != nil {
		return fmt.Errorf("%s: %w", context, err)
	}
	return nil
}

func isDoesNotExist(err error) bool {
	return err != nil && strings.Contains(err.Error(), "does not exist")
}
