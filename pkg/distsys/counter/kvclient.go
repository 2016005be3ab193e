package counter

import (
	"context"
	"fmt"

	"distsys/pkg/distsys/core"
	"distsys/pkg/distsys/counter/kvproto"
	"distsys/pkg/distsys/types"
)

const kvService = "seq-kv"

// kvClient issues correlated RPCs to seq-kv and decodes its responses back
// into RPCResult, per spec.md §4.2/§4.5.
type kvClient struct {
	node  string
	table *core.CorrelationTable
	out   *core.Writer
}

func newKVClient(node string, table *core.CorrelationTable, out *core.Writer) *kvClient {
	return &kvClient{node: node, table: table, out: out}
}

func (c *kvClient) send(msgID uint64, payload kvproto.Payload) error {
	msg := types.Message[kvproto.Payload]{Src: c.node, Dst: kvService, ID: &msgID, Payload: payload}
	return core.Send(c.out, msg)
}

// await blocks on slot until it resolves or ctx is done.
func await(ctx context.Context, slot <-chan core.RPCResult) (core.RPCResult, error) {
	select {
	case <-ctx.Done():
		return core.RPCResult{}, ctx.Err()
	case res := <-slot:
		return res, nil
	}
}

// read issues a read{key} RPC and awaits the response.
func (c *kvClient) read(ctx context.Context, key string) (uint64, error) {
	msgID, slot := c.table.Register()
	if err := c.send(msgID, kvproto.Read{Key: key}); err != nil {
		return 0, fmt.Errorf("send read for key %s: %w", key, err)
	}
	res, err := await(ctx, slot)
	if err != nil {
		return 0, err
	}
	return res.Value, res.Err
}

// cas issues a cas{key,from,to} RPC and awaits the response.
func (c *kvClient) cas(ctx context.Context, key string, from, to uint64) error {
	msgID, slot := c.table.Register()
	if err := c.send(msgID, kvproto.Cas{Key: key, From: from, To: to}); err != nil {
		return fmt.Errorf("send cas for key %s (from %d to %d): %w", key, from, to, err)
	}
	res, err := await(ctx, slot)
	if err != nil {
		return err
	}
	return res.Err
}

// write issues a write{key,value} RPC and awaits the response, used by the
// Add handler's "does not exist" recovery path.
func (c *kvClient) write(ctx context.Context, key string, value uint64) error {
	msgID, slot := c.table.Register()
	if err := c.send(msgID, kvproto.Write{Key: key, Value: value}); err != nil {
		return fmt.Errorf("send write for key %s with value %d: %w", key, value, err)
	}
	res, err := await(ctx, slot)
	if err != nil {
		return err
	}
	return res.Err
}

// writeFireAndForget issues a write{key,value} RPC without registering a
// slot: from_init runs before the dispatcher starts, so no one could await
// the response anyway (spec.md §4.5 Initialization). The eventual
// write_ok arrives with no pending entry and is dropped by the correlation
// table; nothing is logged for it.
func (c *kvClient) writeFireAndForget(key string, value uint64) error {
	msgID := c.table.Next()
	return c.send(msgID, kvproto.Write{Key: key, Value: value})
}

// resolve feeds one inbound service message into the correlation table.
func resolve(table *core.CorrelationTable, msg types.Message[kvproto.Payload]) {
	if msg.InReplyTo == nil {
		return
	}
	switch p := msg.Payload.(type) {
	case kvproto.ReadOk:
		table.Resolve(*msg.InReplyTo, core.RPCResult{Value: p.Value})
	case kvproto.CasOk:
		table.Resolve(*msg.InReplyTo, core.RPCResult{})
	case kvproto.WriteOk:
		table.Resolve(*msg.InReplyTo, core.RPCResult{})
	case kvproto.Error:
		table.Resolve(*msg.InReplyTo, core.RPCResult{Err: fmt.Errorf("%s", p.Text)})
	}
}
