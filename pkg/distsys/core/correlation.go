package core

import "sync"

// RPCResult is what a correlation slot delivers: either the numeric value
// carried by read_ok/cas_ok/write_ok (0 for the latter two), or an error
// text from an error response.
type RPCResult struct {
	Value uint64
	Err   error
}

// CorrelationTable is the process-wide mapping from an outbound message's
// msg_id to a one-shot delivery slot, described in spec.md §3/§4.2. Each
// entry is consumed at most once; orphan entries (the response never
// arrives) are acceptable and never block other flows.
type CorrelationTable struct {
	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]chan RPCResult
}

// NewCorrelationTable returns an empty table with its send-sequence
// counter starting at start (useful so the RPC ids and the client-facing
// reply ids drawn from the same engine don't collide, when callers choose
// to share one sequence).
func NewCorrelationTable(start uint64) *CorrelationTable {
	return &CorrelationTable{nextID: start, pending: make(map[uint64]chan RPCResult)}
}

// Register allocates a fresh msg_id and a one-shot slot for it.
func (t *CorrelationTable) Register() (msgID uint64, slot <-chan RPCResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	msgID = t.nextID
	t.nextID++
	ch := make(chan RPCResult, 1)
	t.pending[msgID] = ch
	return msgID, ch
}

// Resolve signals the slot registered for inReplyTo, if any, and reports
// whether one was found. A response with no matching entry is dropped.
func (t *CorrelationTable) Resolve(inReplyTo uint64, result RPCResult) bool {
	t.mu.Lock()
	ch, ok := t.pending[inReplyTo]
	if ok {
		delete(t.pending, inReplyTo)
	}
	t.mu.Unlock()
	if !ok {
		return false
	}
	ch <- result
	return true
}

// Next allocates a fresh msg_id without registering a slot, for sends that
// don't await a response (e.g. client replies, or the one-shot init-time
// write).
func (t *CorrelationTable) Next() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextID
	t.nextID++
	return id
}
