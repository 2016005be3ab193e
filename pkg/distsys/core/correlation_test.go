package core

import (
	"testing"
	"time"
)

func TestCorrelationTable_RegisterResolve(t *testing.T) {
	table := NewCorrelationTable(0)
	id, slot := table.Register()

	if ok := table.Resolve(id, RPCResult{Value: 9}); !ok {
		t.Fatal("expected Resolve to find the registered slot")
	}

	select {
	case res := <-slot:
		if res.Value != 9 {
			t.Fatalf("expected value 9, got %d", res.Value)
		}
	case <-time.After(time.Second):
		t.Fatal("slot never delivered")
	}
}

func TestCorrelationTable_OrphanResolveIsDropped(t *testing.T) {
	table := NewCorrelationTable(0)
	if ok := table.Resolve(999, RPCResult{}); ok {
		t.Fatal("expected Resolve on an unregistered id to report false")
	}
}

func TestCorrelationTable_ResolveIsOneShot(t *testing.T) {
	table := NewCorrelationTable(0)
	id, _ := table.Register()
	table.Resolve(id, RPCResult{})
	if ok := table.Resolve(id, RPCResult{}); ok {
		t.Fatal("expected the second Resolve for the same id to find nothing")
	}
}

func TestCorrelationTable_NextDoesNotCollideWithRegister(t *testing.T) {
	table := NewCorrelationTable(0)
	seen := map[uint64]bool{}
	for i := 0; i < 5; i++ {
		id, _ := table.Register()
		if seen[id] {
			t.Fatalf("duplicate id %d from Register", id)
		}
		seen[id] = true
		next := table.Next()
		if seen[next] {
			t.Fatalf("duplicate id %d from Next", next)
		}
		seen[next] = true
	}
}
