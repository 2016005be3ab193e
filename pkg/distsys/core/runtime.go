// Package core implements the node runtime: the writer, the event bus, the
// dispatcher, the RPC correlation table and the loop that drives a Node
// engine. See spec.md §2, §4.1-§4.3, §4.6, §5.
package core

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	"distsys/pkg/distsys/codec"
	"distsys/pkg/distsys/definition"
	"distsys/pkg/distsys/types"
)

// Engine is the per-event handler a workload supplies. It must be safe to
// invoke concurrently: multiple Step calls may be in flight at once, and
// the engine manages its own interior mutability (spec.md §4.6, §5).
type Engine[P, SP, IP any] interface {
	Step(ctx context.Context, ev types.Event[P, SP, IP], out *Writer) error
}

// Inject is the function a background task (e.g. a gossip ticker) calls
// to push a locally-generated event onto the bus.
type Inject[IP any] func(ip IP)

// Factory constructs the Engine from the init record. It may perform
// synchronous writes via out and may spawn background tasks that call
// inject; those tasks must stop when ctx is done.
type Factory[P, SP, IP any] func(ctx context.Context, init types.Init, inject Inject[IP], out *Writer) (Engine[P, SP, IP], error)

// DecodeClient and DecodeService turn a raw body into the concrete payload
// union member, based on its "type" tag. Returning an error means the type
// tag did not match any known variant.
type DecodeClient[P any] func(hdr codec.BodyHeader, body []byte) (P, error)
type DecodeService[SP any] func(hdr codec.BodyHeader, body []byte) (SP, error)

// Run drives one node's entire lifecycle: read the init record, reply
// init_ok, construct the engine, then dispatch every subsequent line to
// Message, Service or EOF events until stdin closes, draining the event
// queue before returning. The first non-nil error returned by Step (or any
// unrecoverable runtime error) terminates the loop.
func Run[P, SP, IP any](
	in io.Reader,
	out io.Writer,
	log definition.Logger,
	decodeClient DecodeClient[P],
	decodeService DecodeService[SP],
	factory Factory[P, SP, IP],
) error {
	reader := bufio.NewReaderSize(in, 1<<20)
	writer := NewWriter(out)

	initLine, err := reader.ReadBytes('\n')
	if err != nil && len(initLine) == 0 {
		return fmt.Errorf("read init message: %w", err)
	}
	line, err := codec.DecodeLine(initLine)
	if err != nil {
		return fmt.Errorf("parse init message: %w", err)
	}
	if line.Type != "init" {
		return fmt.Errorf("expected init message, got type %q", line.Type)
	}
	init, err := codec.DecodePayload[types.Init](line.Body)
	if err != nil {
		return fmt.Errorf("parse init payload: %w", err)
	}

	// Init reply is emitted strictly before any other output (spec.md §5).
	replyID := uint64(0)
	initOk := types.Message[initOkPayload]{
		Src:       line.Dst,
		Dst:       line.Src,
		ID:        &replyID,
		InReplyTo: line.ID,
		Payload:   initOkPayload{},
	}
	if err := Send(writer, initOk); err != nil {
		return fmt.Errorf("send init_ok: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queue := NewEventQueue[P, SP, IP]()
	inject := Inject[IP](func(ip IP) {
		queue.Push(types.Event[P, SP, IP]{Kind: types.EventInjected, Injected: ip})
	})

	engine, err := factory(ctx, init, inject, writer)
	if err != nil {
		return fmt.Errorf("construct engine from init: %w", err)
	}

	var wg sync.WaitGroup
	var stepErr error
	var stepErrOnce sync.Once
	recordErr := func(err error) {
		if err == nil {
			return
		}
		stepErrOnce.Do(func() {
			stepErr = err
			cancel()
		})
	}

	// Dispatcher: the dedicated stdin-reading task (spec.md §2, §4.3).
	go func() {
		defer queue.Close()
		for {
			raw, readErr := reader.ReadBytes('\n')
			if len(raw) > 0 {
				dispatchLine(raw, log, decodeClient, decodeService, queue)
			}
			if readErr != nil {
				if readErr != io.EOF {
					log.Errorf("stdin read error: %v", readErr)
				}
				queue.Push(types.Event[P, SP, IP]{Kind: types.EventEOF})
				return
			}
		}
	}()

	// A Step error cancels ctx; closing the queue then wakes the loop below
	// so it stops without waiting for stdin to close.
	go func() {
		<-ctx.Done()
		queue.Close()
	}()

	for {
		ev, ok := queue.Pop()
		if !ok || ctx.Err() != nil {
			break
		}
		if ev.Kind == types.EventEOF {
			continue
		}
		wg.Add(1)
		go func(ev types.Event[P, SP, IP]) {
			defer wg.Done()
			if err := engine.Step(ctx, ev, writer); err != nil {
				log.Errorf("step failed: %v", err)
				recordErr(err)
			}
		}(ev)
	}

	wg.Wait()
	return stepErr
}

func dispatchLine[P, SP, IP any](
	raw []byte,
	log definition.Logger,
	decodeClient DecodeClient[P],
	decodeService DecodeService[SP],
	queue *EventQueue[P, SP, IP],
) {
	line, err := codec.DecodeLine(raw)
	if err != nil {
		log.Errorf("dropping unparsable line: %v", err)
		return
	}

	tryClient := func() bool {
		payload, err := decodeClient(line.BodyHeader, line.Body)
		if err != nil {
			return false
		}
		queue.Push(types.Event[P, SP, IP]{
			Kind: types.EventMessage,
			Message: types.Message[P]{
				Src: line.Src, Dst: line.Dst,
				ID: line.BodyHeader.ID, InReplyTo: line.BodyHeader.InReplyTo,
				Payload: payload,
			},
		})
		return true
	}
	tryService := func() bool {
		payload, err := decodeService(line.BodyHeader, line.Body)
		if err != nil {
			return false
		}
		queue.Push(types.Event[P, SP, IP]{
			Kind: types.EventService,
			Service: types.Message[SP]{
				Src: line.Src, Dst: line.Dst,
				ID: line.BodyHeader.ID, InReplyTo: line.BodyHeader.InReplyTo,
				Payload: payload,
			},
		})
		return true
	}

	if codec.IsClientSrc(line.Src) {
		if tryClient() || tryService() {
			return
		}
	} else {
		if tryService() || tryClient() {
			return
		}
	}
	log.Errorf("no payload type matched body with type %q from %s, dropping", line.Type, line.Src)
}

// initOkPayload is the runtime's own reply to the init message; workloads
// never see it.
type initOkPayload struct{}

func (initOkPayload) Type() string { return "init_ok" }
