package core

import (
	"bufio"
	"bytes"
	"strings"
	"sync"
	"testing"

	"distsys/pkg/distsys/types"
)

type writerTestPayload struct {
	Value int `json:"value"`
}

func (writerTestPayload) Type() string { return "value" }

func TestWriter_WriteLineAppendsNewline(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.WriteLine([]byte(`{"a":1}`)); err != nil {
		t.Fatalf("WriteLine: %v", err)
	}
	if buf.String() != "{\"a\":1}\n" {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestWriter_ConcurrentWritesDoNotInterleave(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	const n = 200
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			msg := types.Message[writerTestPayload]{Src: "n1", Dst: "n2", Payload: writerTestPayload{Value: i}}
			if err := Send(w, msg); err != nil {
				t.Errorf("Send: %v", err)
			}
		}(i)
	}
	wg.Wait()

	scanner := bufio.NewScanner(strings.NewReader(buf.String()))
	count := 0
	for scanner.Scan() {
		if !strings.HasPrefix(scanner.Text(), "{") || !strings.HasSuffix(scanner.Text(), "}") {
			t.Fatalf("line looks interleaved: %q", scanner.Text())
		}
		count++
	}
	if count != n {
		t.Fatalf("expected %d lines, got %d", n, count)
	}
}
