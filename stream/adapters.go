package stream

import (
	"context"

	"github.com/grpcweb-go/rpc/internal/rpcerr"
)

// Unary promotes a stream into a single-value result (spec §4.3
// "Unary adapter"): exactly one Message before Complete fulfills with
// that value; zero or more-than-one Message before Complete fails
// with a ProtocolError; an Error event fails with that error; a
// Canceled event fails with a Canceled kind error.
//
// If ctx is canceled before the stream reaches a terminal event,
// Unary requests cancellation of s and waits for the guaranteed
// Canceled event rather than returning early, so the stream's
// resources are always released deterministically.
func Unary(ctx context.Context, s Stream) (any, error) {
	s.Start()

	events := s.Events()
	done := ctx.Done()

	var (
		count int
		value any
	)

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil, rpcerr.NewProtocolError("stream closed without a terminal event")
			}

			switch ev.Kind {
			case EventReady:
				// no-op: ready precedes messages but carries no value
			case EventMessage:
				count++
				value = ev.Message
			case EventComplete:
				if count != 1 {
					return nil, rpcerr.NewProtocolError("expected exactly one message, got %d", count)
				}
				return value, nil
			case EventCanceled:
				return nil, rpcerr.ErrCanceled
			case EventError:
				return nil, ev.Err
			}

		case <-done:
			s.Cancel()
			done = nil // already requested; wait for the guaranteed terminal event without busy-looping
		}
	}
}

// Collect promotes a server stream into a slice of all message values
// (spec §4.3 "Stream-as-array adapter"): resolves with every Message
// value in order on Complete, rejects on Error or Canceled.
func Collect(ctx context.Context, s Stream) ([]any, error) {
	s.Start()

	events := s.Events()
	done := ctx.Done()

	var values []any

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil, rpcerr.NewProtocolError("stream closed without a terminal event")
			}

			switch ev.Kind {
			case EventReady:
			case EventMessage:
				values = append(values, ev.Message)
			case EventComplete:
				return values, nil
			case EventCanceled:
				return nil, rpcerr.ErrCanceled
			case EventError:
				return nil, ev.Err
			}

		case <-done:
			s.Cancel()
			done = nil
		}
	}
}

// transformStream is the Stream returned by Transform.
type transformStream struct {
	source Stream
	f      func(any) (any, error)
	core   *Core
}

// Transform returns a stream whose Message events carry f(m) for each
// message m from source. A thrown (returned) f error emits Error;
// an upstream Error propagates unchanged; Cancel cancels the source
// (spec §4.3 "Transform adapter").
func Transform(source Stream, f func(any) (any, error)) Stream {
	t := &transformStream{source: source, f: f, core: NewCore()}
	t.core.OnCancel(source.Cancel)
	return t
}

func (t *transformStream) Events() <-chan Event { return t.core.Events() }

func (t *transformStream) Cancel() { t.core.Cancel() }

func (t *transformStream) Start() {
	t.core.Start(func() {
		t.source.Start()

		for ev := range t.source.Events() {
			switch ev.Kind {
			case EventReady:
				t.core.Ready()
			case EventMessage:
				out, err := t.f(ev.Message)
				if err != nil {
					t.core.Error(err)
					return
				}
				t.core.Message(out)
			case EventComplete:
				t.core.Complete()
				return
			case EventCanceled:
				t.core.Cancel()
				return
			case EventError:
				t.core.Error(ev.Err)
				return
			}
		}
	})
}
