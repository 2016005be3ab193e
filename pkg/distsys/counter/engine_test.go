package counter

import (
	"bufio"
	"context"
	"io"
	"testing"
	"time"

	"distsys/pkg/distsys/codec"
	"distsys/pkg/distsys/core"
	"distsys/pkg/distsys/counter/kvproto"
	"distsys/pkg/distsys/definition"
	"distsys/pkg/distsys/types"
)

// fakeKV drains everything written to a kvClient's underlying writer,
// decodes each request, and replies through onRequest. It lets engine tests
// drive the real read/cas/write RPC path without a live seq-kv.
type fakeKV struct {
	requests  chan kvproto.Payload
	table     *core.CorrelationTable
	onRequest func(line codec.Line, payload kvproto.Payload)
}

func newFakeKV(t *testing.T, table *core.CorrelationTable) (*fakeKV, *core.Writer) {
	t.Helper()
	pr, pw := io.Pipe()
	out := core.NewWriter(pw)
	f := &fakeKV{requests: make(chan kvproto.Payload, 16), table: table}

	go func() {
		scanner := bufio.NewScanner(pr)
		for scanner.Scan() {
			line, err := codec.DecodeLine(scanner.Bytes())
			if err != nil {
				continue
			}
			payload, err := kvproto.Decode(line.BodyHeader, line.Body)
			if err != nil {
				continue
			}
			f.requests <- payload
			f.autoRespond(line, payload)
		}
	}()

	t.Cleanup(func() { pw.Close() })
	return f, out
}

// autoRespond calls the per-test onRequest hook; with none set it is a no-op.
func (f *fakeKV) autoRespond(line codec.Line, payload kvproto.Payload) {
	if f.onRequest != nil {
		f.onRequest(line, payload)
	}
}

func TestKVClient_ReadThenCas(t *testing.T) {
	table := core.NewCorrelationTable(0)
	fake, out := newFakeKV(t, table)
	fake.onRequest = func(line codec.Line, payload kvproto.Payload) {
		switch p := payload.(type) {
		case kvproto.Read:
			resolve(table, types.Message[kvproto.Payload]{InReplyTo: line.ID, Payload: kvproto.ReadOk{Value: 5}})
		case kvproto.Cas:
			if p.From == 5 && p.To == 8 {
				resolve(table, types.Message[kvproto.Payload]{InReplyTo: line.ID, Payload: kvproto.CasOk{}})
			}
		}
	}

	kv := newKVClient("n0", table, out)
	e := &Engine{node: "n0", nodeIDs: []string{"n0"}, table: table, kv: kv, log: definition.NewDefaultLogger("test")}

	if err := e.add(context.Background(), 3); err != nil {
		t.Fatalf("add: %v", err)
	}

	read := <-fake.requests
	r, ok := read.(kvproto.Read)
	if !ok || r.Key != "n0" {
		t.Fatalf("expected a read for key n0, got %#v", read)
	}
	cas := <-fake.requests
	c, ok := cas.(kvproto.Cas)
	if !ok || c.From != 5 || c.To != 8 {
		t.Fatalf("expected cas 5->8, got %#v", cas)
	}
}

func TestKVClient_AddWritesWhenKeyMissing(t *testing.T) {
	table := core.NewCorrelationTable(0)
	fake, out := newFakeKV(t, table)
	fake.onRequest = func(line codec.Line, payload kvproto.Payload) {
		switch p := payload.(type) {
		case kvproto.Read:
			resolve(table, types.Message[kvproto.Payload]{InReplyTo: line.ID, Payload: kvproto.Error{Code: 20, Text: "key does not exist"}})
		case kvproto.Write:
			if p.Value == 4 {
				resolve(table, types.Message[kvproto.Payload]{InReplyTo: line.ID, Payload: kvproto.WriteOk{}})
			}
		}
	}

	kv := newKVClient("n0", table, out)
	e := &Engine{node: "n0", nodeIDs: []string{"n0"}, table: table, kv: kv, log: definition.NewDefaultLogger("test")}

	if err := e.add(context.Background(), 4); err != nil {
		t.Fatalf("add: %v", err)
	}

	read := <-fake.requests
	if _, ok := read.(kvproto.Read); !ok {
		t.Fatalf("expected a read first, got %#v", read)
	}
	write := <-fake.requests
	w, ok := write.(kvproto.Write)
	if !ok || w.Value != 4 {
		t.Fatalf("expected write of 4, got %#v", write)
	}
}

func TestEngine_FanOutReadSumsAllShardsTreatingErrorsAsZero(t *testing.T) {
	table := core.NewCorrelationTable(0)
	fake, out := newFakeKV(t, table)
	fake.onRequest = func(line codec.Line, payload kvproto.Payload) {
		r, ok := payload.(kvproto.Read)
		if !ok {
			return
		}
		switch r.Key {
		case "n0":
			resolve(table, types.Message[kvproto.Payload]{InReplyTo: line.ID, Payload: kvproto.ReadOk{Value: 10}})
		case "n1":
			resolve(table, types.Message[kvproto.Payload]{InReplyTo: line.ID, Payload: kvproto.ReadOk{Value: 7}})
		case "n2":
			resolve(table, types.Message[kvproto.Payload]{InReplyTo: line.ID, Payload: kvproto.Error{Code: 13, Text: "timeout"}})
		}
	}

	kv := newKVClient("n0", table, out)
	e := &Engine{node: "n0", nodeIDs: []string{"n0", "n1", "n2"}, table: table, kv: kv, log: definition.NewDefaultLogger("test")}

	total := e.fanOutRead(context.Background())
	if total != 17 {
		t.Fatalf("expected 10+7+0=17, got %d", total)
	}
}

func TestEngine_AddZeroDeltaRepliesWithoutTouchingKV(t *testing.T) {
	table := core.NewCorrelationTable(0)
	fake, out := newFakeKV(t, table)
	fake.onRequest = func(codec.Line, kvproto.Payload) {
		t.Fatal("zero-delta add must not issue any kv RPC")
	}

	e := &Engine{node: "n0", nodeIDs: []string{"n0"}, table: table, kv: newKVClient("n0", table, out), log: definition.NewDefaultLogger("test")}
	msg := types.Message[Payload]{Src: "c1", Dst: "n0", Payload: Add{Delta: 0}}
	if err := e.handleMessage(context.Background(), msg, out); err != nil {
		t.Fatalf("handleMessage: %v", err)
	}
	select {
	case <-fake.requests:
		t.Fatal("did not expect any kv request")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestIsDoesNotExist(t *testing.T) {
	if !isDoesNotExist(&kvError{"n not found: key does not exist"}) {
		t.Fatal("expected match on 'does not exist' substring")
	}
	if isDoesNotExist(&kvError{"cas mismatch"}) {
		t.Fatal("expected no match for an unrelated error")
	}
}

type kvError struct{ msg string }

func (e *kvError) Error() string { return e.msg }
