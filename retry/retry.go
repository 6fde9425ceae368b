// Package retry implements the retry-supervising Stream wrapper: a
// Stream that reopens a failed connection attempt through a
// stream.Producer up to a configured budget, with backoff between
// attempts (spec §4.6). Only connection-establishment failures are
// retried; once an attempt reaches Ready, its outcome is final.
package retry

import (
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/grpcweb-go/rpc/internal/backoff"
	"github.com/grpcweb-go/rpc/internal/rpcerr"
	"github.com/grpcweb-go/rpc/stream"
)

// Options configures a retrying Stream.
type Options struct {
	// MaxRetries caps how many times a failed attempt is reopened
	// before giving up. A negative value means unbounded.
	MaxRetries  int
	Schedule    backoff.Schedule
	IsRetryable func(err error) bool
	// Logger receives one debug-level entry per retried attempt and
	// per abandonment. A nil Logger is replaced with zap.NewNop().
	Logger *zap.Logger
}

// DefaultOptions retries everything except the handful of errors that
// mean retrying would just repeat the same failure (spec §4.6).
func DefaultOptions() Options {
	return Options{
		MaxRetries:  3,
		Schedule:    backoff.DefaultSchedule(),
		IsRetryable: DefaultIsRetryable,
		Logger:      zap.NewNop(),
	}
}

// nonRetryableKinds are the ClientError kinds that signal the request
// itself is the problem, not a transient condition: retrying them
// would only repeat the same failure.
var nonRetryableKinds = map[rpcerr.Kind]struct{}{
	rpcerr.InvalidArgument:  {},
	rpcerr.PermissionDenied: {},
	rpcerr.Unauthenticated:  {},
	rpcerr.NotFound:         {},
	rpcerr.Unimplemented:    {},
}

// DefaultIsRetryable reports false for a *rpcerr.ProtocolError (a
// stream/unary contract violation, not a transient condition) and for
// a *rpcerr.ClientError in nonRetryableKinds; everything else retries.
func DefaultIsRetryable(err error) bool {
	var pe *rpcerr.ProtocolError
	if errors.As(err, &pe) {
		return false
	}

	var ce *rpcerr.ClientError
	if errors.As(err, &ce) {
		_, nonRetryable := nonRetryableKinds[ce.Kind]
		return !nonRetryable
	}

	return true
}

// RetryingError is the terminal error a retrying Stream reports once
// it gives up: either the retry budget was exhausted (Abandoned) or a
// later attempt failed with a non-retryable error after at least one
// prior retry.
type RetryingError struct {
	Cause             error
	RetriesSinceReady int
	Abandoned         bool
}

func (e *RetryingError) Error() string {
	if e.Abandoned {
		return fmt.Sprintf("retry abandoned after %d retr(y/ies): %v", e.RetriesSinceReady, e.Cause)
	}
	return fmt.Sprintf("failed after %d retr(y/ies): %v", e.RetriesSinceReady, e.Cause)
}

func (e *RetryingError) Unwrap() error { return e.Cause }

// Stream wraps a stream.Producer with retry supervision. It implements
// stream.Stream itself, so it is interchangeable with any unsupervised
// stream at the adapter boundary (Unary/Collect/Transform).
type Stream struct {
	core    *stream.Core
	method  string
	req     any
	produce stream.Producer
	opts    Options

	retries atomic.Int32

	mu      sync.Mutex
	current stream.Stream

	stopCh   chan struct{}
	stopOnce sync.Once
}

// New returns a retrying Stream, dormant until Start is called.
func New(method string, req any, produce stream.Producer, opts Options) *Stream {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	s := &Stream{
		core:    stream.NewCore(),
		method:  method,
		req:     req,
		produce: produce,
		opts:    opts,
		stopCh:  make(chan struct{}),
	}
	s.core.OnCancel(s.onCancel)
	return s
}

// RetriesSoFar returns how many attempts have been retried so far,
// safe to call concurrently with Start/Events.
func (s *Stream) RetriesSoFar() int { return int(s.retries.Load()) }

func (s *Stream) Start() { s.core.Start(s.run) }

func (s *Stream) Cancel() { s.core.Cancel() }

func (s *Stream) Events() <-chan stream.Event { return s.core.Events() }

func (s *Stream) onCancel() {
	s.stopOnce.Do(func() { close(s.stopCh) })

	s.mu.Lock()
	cur := s.current
	s.mu.Unlock()

	if cur != nil {
		cur.Cancel()
	}
}

func (s *Stream) stopped() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

func (s *Stream) run() {
	for {
		if s.stopped() {
			return
		}

		attempt := s.produce(s.method, s.req)

		s.mu.Lock()
		s.current = attempt
		s.mu.Unlock()

		if s.stopped() {
			attempt.Cancel()
			return
		}

		attempt.Start()

		reachedReady, retry, lastErr := s.drain(attempt)
		if !retry {
			s.reportFinal(reachedReady, lastErr)
			return
		}

		n := s.retries.Inc()
		delay := s.opts.Schedule.Delay(int(n) - 1)
		s.opts.Logger.Debug("retrying rpc",
			zap.String("method", s.method), zap.Int32("attempt", n), zap.Duration("delay", delay))
		if !s.wait(delay) {
			return
		}
	}
}

// drain forwards one attempt's events to the supervising Core until it
// reaches a terminal event, reporting whether the retry loop should
// open another attempt.
func (s *Stream) drain(attempt stream.Stream) (reachedReady, retry bool, lastErr error) {
	for ev := range attempt.Events() {
		switch ev.Kind {
		case stream.EventReady:
			reachedReady = true
			s.core.Ready()
		case stream.EventMessage:
			s.core.Message(ev.Message)
		case stream.EventComplete:
			s.core.Complete()
			return reachedReady, false, nil
		case stream.EventCanceled:
			s.core.Cancel()
			return reachedReady, false, nil
		case stream.EventError:
			lastErr = ev.Err
			budgetLeft := s.opts.MaxRetries < 0 || int(s.retries.Load()) < s.opts.MaxRetries
			if !reachedReady && s.opts.IsRetryable(ev.Err) && budgetLeft {
				return reachedReady, true, lastErr
			}
		}
	}
	return reachedReady, false, lastErr
}

func (s *Stream) reportFinal(reachedReady bool, lastErr error) {
	if reachedReady || lastErr == nil {
		if lastErr != nil {
			s.core.Error(lastErr)
		}
		return
	}

	if s.retries.Load() > 0 {
		re := &RetryingError{
			Cause:             lastErr,
			RetriesSinceReady: int(s.retries.Load()),
			Abandoned:         s.opts.IsRetryable(lastErr),
		}
		s.opts.Logger.Debug("rpc retry gave up",
			zap.String("method", s.method), zap.Int("retries", re.RetriesSinceReady),
			zap.Bool("abandoned", re.Abandoned), zap.Error(lastErr))
		s.core.Error(re)
		return
	}

	s.core.Error(lastErr)
}

// wait blocks for d, or until Cancel fires. It reports whether the
// retry loop should continue into another attempt.
func (s *Stream) wait(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return !s.stopped()
	case <-s.stopCh:
		return false
	}
}
