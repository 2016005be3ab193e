package broadcast

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"distsys/pkg/distsys/core"
	"distsys/pkg/distsys/definition"
	"distsys/pkg/distsys/types"
)

// gossipInterval is the fixed cadence at which the anti-entropy ticker
// fires (spec.md §4.4).
const gossipInterval = 100 * time.Millisecond

// state is the per-node mutable broadcast state (spec.md §3). Every access
// is a short critical section; no await happens while mu is held.
type state struct {
	mu           sync.Mutex
	nextID       uint64
	messages     map[uint64]struct{}
	known        map[string]map[uint64]struct{}
	neighborhood []string
}

// Engine is the gossip broadcast Node engine.
type Engine struct {
	node  string
	st    *state
	log   definition.Logger
}

var _ core.Engine[Payload, NoService, GossipTick] = (*Engine)(nil)

// FromInit constructs the engine and spawns the gossip ticker.
func FromInit(log definition.Logger) core.Factory[Payload, NoService, GossipTick] {
	return func(ctx context.Context, init types.Init, inject core.Inject[GossipTick], out *core.Writer) (core.Engine[Payload, NoService, GossipTick], error) {
		known := make(map[string]map[uint64]struct{}, len(init.NodeIDs))
		for _, id := range init.NodeIDs {
			known[id] = make(map[uint64]struct{})
		}
		e := &Engine{
			node: init.NodeID,
			st: &state{
				nextID:   1,
				messages: make(map[uint64]struct{}),
				known:    known,
			},
			log: log.WithField("node", init.NodeID),
		}

		go func() {
			ticker := time.NewTicker(gossipInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					inject(GossipTick{})
				}
			}
		}()

		return e, nil
	}
}

// Step implements core.Engine.
func (e *Engine) Step(_ context.Context, ev types.Event[Payload, NoService, GossipTick], out *core.Writer) error {
	switch ev.Kind {
	case types.EventEOF, types.EventService:
		return nil
	case types.EventInjected:
		return e.gossip(out)
	case types.EventMessage:
		return e.handleMessage(ev.Message, out)
	default:
		return nil
	}
}

func (e *Engine) handleMessage(msg types.Message[Payload], out *core.Writer) error {
	switch p := msg.Payload.(type) {
	case Gossip:
		return e.handleGossip(msg.Src, p)
	case Broadcast:
		e.st.mu.Lock()
		e.st.messages[p.Message] = struct{}{}
		e.st.mu.Unlock()
		return e.reply(msg, out, BroadcastOk{}, "reply to broadcast")
	case Read:
		e.st.mu.Lock()
		snapshot := make([]uint64, 0, len(e.st.messages))
		for m := range e.st.messages {
			snapshot = append(snapshot, m)
		}
		e.st.mu.Unlock()
		return e.reply(msg, out, ReadOk{Messages: snapshot}, "reply to read")
	case Topology:
		neighbors, ok := p.Topology[e.node]
		if !ok {
			return fmt.Errorf("topology message has no entry for self %q", e.node)
		}
		e.st.mu.Lock()
		e.st.neighborhood = neighbors
		e.st.mu.Unlock()
		return e.reply(msg, out, TopologyOk{}, "reply to topology")
	case BroadcastOk, ReadOk, TopologyOk:
		return nil
	default:
		e.log.Warnf("unhandled payload %#v", p)
		return nil
	}
}

func (e *Engine) handleGossip(from string, g Gossip) error {
	e.st.mu.Lock()
	defer e.st.mu.Unlock()
	peerKnown, ok := e.st.known[from]
	if !ok {
		return fmt.Errorf("got gossip from unknown peer %q", from)
	}
	for _, m := range g.Seen {
		peerKnown[m] = struct{}{}
		e.st.messages[m] = struct{}{}
	}
	return nil
}

func (e *Engine) reply(req types.Message[Payload], out *core.Writer, payload Payload, context string) error {
	e.st.mu.Lock()
	id := e.st.nextID
	e.st.nextID++
	e.st.mu.Unlock()

	reply := types.Reply[Payload, Payload](req, id, payload)
	if err := core.Send(out, reply); err != nil {
		return fmt.Errorf("%s: %w", context, err)
	}
	return nil
}

// gossip fires on every anti-entropy tick: for each neighbor, send the
// messages it doesn't yet know about, plus a small bounded sample of
// messages it already knows about as redundancy against message loss
// (spec.md §4.4).
func (e *Engine) gossip(out *core.Writer) error {
	e.st.mu.Lock()
	neighborhood := append([]string(nil), e.st.neighborhood...)
	messages := make([]uint64, 0, len(e.st.messages))
	for m := range e.st.messages {
		messages = append(messages, m)
	}
	knownCopy := make(map[string]map[uint64]struct{}, len(e.st.known))
	for peer, set := range e.st.known {
		c := make(map[uint64]struct{}, len(set))
		for m := range set {
			c[m] = struct{}{}
		}
		knownCopy[peer] = c
	}
	e.st.mu.Unlock()

	for _, n := range neighborhood {
		knownToN := knownCopy[n]
		var notifyOf, alreadyKnown []uint64
		for _, m := range messages {
			if _, ok := knownToN[m]; ok {
				alreadyKnown = append(alreadyKnown, m)
			} else {
				notifyOf = append(notifyOf, m)
			}
		}

		redundancyCap := 10 * len(notifyOf) / 100
		if redundancyCap > len(alreadyKnown) {
			redundancyCap = len(alreadyKnown)
		}
		if redundancyCap > 0 && len(alreadyKnown) > 0 {
			probability := float64(redundancyCap) / float64(len(alreadyKnown))
			for _, m := range alreadyKnown {
				if rand.Float64() < probability {
					notifyOf = append(notifyOf, m)
				}
			}
		}

		// The sender never updates known[n] on send (spec.md §4.4
		// Rationale): peers are credited only once their own gossip
		// confirms they hold a value, so a lost outbound gossip never
		// falsely suppresses future transmissions.
		msg := types.Message[Payload]{Src: e.node, Dst: n, Payload: Gossip{Seen: notifyOf}}
		if err := core.Send(out, msg); err != nil {
			return fmt.Errorf("gossip to %s: %w", n, err)
		}
	}
	return nil
}
