package echo_test

import (
	"bytes"
	"context"
	"testing"

	"distsys/pkg/distsys/codec"
	"distsys/pkg/distsys/core"
	"distsys/pkg/distsys/definition"
	"distsys/pkg/distsys/echo"
	"distsys/pkg/distsys/types"
)

func TestEngine_EchoesBackTheSameString(t *testing.T) {
	log := definition.NewDefaultLogger("test")
	factory := echo.FromInit(log)
	var out bytes.Buffer
	writer := core.NewWriter(&out)

	engine, err := factory(context.Background(), types.Init{NodeID: "n1", NodeIDs: []string{"n1"}}, func(echo.Tick) {}, writer)
	if err != nil {
		t.Fatalf("FromInit: %v", err)
	}

	msgID := uint64(4)
	req := types.Message[echo.Payload]{Src: "c1", Dst: "n1", ID: &msgID, Payload: echo.Echo{Echo: "salut"}}
	ev := types.Event[echo.Payload, echo.NoService, echo.Tick]{Kind: types.EventMessage, Message: req}
	if err := engine.Step(context.Background(), ev, writer); err != nil {
		t.Fatalf("Step: %v", err)
	}

	line, err := codec.DecodeLine(bytes.TrimRight(out.Bytes(), "\n"))
	if err != nil {
		t.Fatalf("decode reply line: %v", err)
	}
	if line.Type != "echo_ok" {
		t.Fatalf("expected echo_ok, got %q", line.Type)
	}
	if line.InReplyTo == nil || *line.InReplyTo != 4 {
		t.Fatalf("expected in_reply_to 4, got %v", line.InReplyTo)
	}
	payload, err := codec.DecodePayload[echo.EchoOk](line.Body)
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Echo != "salut" {
		t.Fatalf("expected echoed string 'salut', got %q", payload.Echo)
	}
}
