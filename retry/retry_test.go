package retry_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grpcweb-go/rpc/internal/backoff"
	"github.com/grpcweb-go/rpc/internal/rpcerr"
	"github.com/grpcweb-go/rpc/retry"
	"github.com/grpcweb-go/rpc/stream"
)

func fastSchedule() backoff.Schedule {
	return backoff.Schedule{ConstantMs: 1, Base: 1, MaxMs: 1}
}

func unavailable() error {
	return rpcerr.NewClientError(rpcerr.Unavailable, "down", nil)
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	var attempts int

	producer := stream.Producer(func(method string, req any) stream.Stream {
		attempts++
		n := attempts
		return stream.NewFunc(func(c *stream.Core) {
			if n < 3 {
				c.Error(unavailable())
				return
			}
			c.Ready()
			c.Message("ok")
			c.Complete()
		})
	})

	opts := retry.DefaultOptions()
	opts.Schedule = fastSchedule()
	s := retry.New("m", "req", producer, opts)
	s.Start()

	var events []stream.Event
	for ev := range s.Events() {
		events = append(events, ev)
	}

	require.Equal(t, 3, attempts)
	require.Len(t, events, 3)
	assert.Equal(t, stream.EventReady, events[0].Kind)
	assert.Equal(t, stream.EventMessage, events[1].Kind)
	assert.Equal(t, stream.EventComplete, events[2].Kind)
	assert.Equal(t, 2, s.RetriesSoFar())
}

func TestRetryAbandonedAfterBudgetExhausted(t *testing.T) {
	var attempts int

	producer := stream.Producer(func(method string, req any) stream.Stream {
		attempts++
		return stream.NewFunc(func(c *stream.Core) {
			c.Error(unavailable())
		})
	})

	opts := retry.DefaultOptions()
	opts.Schedule = fastSchedule()
	opts.MaxRetries = 2
	s := retry.New("m", "req", producer, opts)
	s.Start()

	var last stream.Event
	for ev := range s.Events() {
		last = ev
	}

	assert.Equal(t, 3, attempts) // original + 2 retries
	require.Equal(t, stream.EventError, last.Kind)

	var re *retry.RetryingError
	require.ErrorAs(t, last.Err, &re)
	assert.True(t, re.Abandoned)
	assert.Equal(t, 2, re.RetriesSinceReady)
}

func TestRetryDoesNotRetryAfterReady(t *testing.T) {
	var attempts int

	producer := stream.Producer(func(method string, req any) stream.Stream {
		attempts++
		return stream.NewFunc(func(c *stream.Core) {
			c.Ready()
			c.Error(unavailable())
		})
	})

	opts := retry.DefaultOptions()
	opts.Schedule = fastSchedule()
	s := retry.New("m", "req", producer, opts)
	s.Start()

	var events []stream.Event
	for ev := range s.Events() {
		events = append(events, ev)
	}

	assert.Equal(t, 1, attempts)
	require.Len(t, events, 2)
	assert.Equal(t, stream.EventReady, events[0].Kind)
	assert.Equal(t, stream.EventError, events[1].Kind)
	assert.Equal(t, unavailable().Error(), events[1].Err.Error())
}

func TestRetryDoesNotRetryNonRetryableError(t *testing.T) {
	var attempts int

	producer := stream.Producer(func(method string, req any) stream.Stream {
		attempts++
		return stream.NewFunc(func(c *stream.Core) {
			c.Error(rpcerr.NewClientError(rpcerr.InvalidArgument, "bad request", nil))
		})
	})

	s := retry.New("m", "req", producer, retry.DefaultOptions())
	s.Start()

	var last stream.Event
	for ev := range s.Events() {
		last = ev
	}

	assert.Equal(t, 1, attempts)

	var ce *rpcerr.ClientError
	require.ErrorAs(t, last.Err, &ce)
	assert.Equal(t, rpcerr.InvalidArgument, ce.Kind)
}

func TestRetryUnboundedKeepsRetryingPastDefaultBudget(t *testing.T) {
	var attempts int

	producer := stream.Producer(func(method string, req any) stream.Stream {
		attempts++
		n := attempts
		return stream.NewFunc(func(c *stream.Core) {
			if n < 6 {
				c.Error(unavailable())
				return
			}
			c.Ready()
			c.Complete()
		})
	})

	opts := retry.DefaultOptions()
	opts.Schedule = fastSchedule()
	opts.MaxRetries = -1
	s := retry.New("m", "req", producer, opts)
	s.Start()

	var events []stream.Event
	for ev := range s.Events() {
		events = append(events, ev)
	}

	require.Equal(t, 6, attempts) // 5 retries, well past the default budget of 3
	require.Len(t, events, 2)
	assert.Equal(t, stream.EventReady, events[0].Kind)
	assert.Equal(t, stream.EventComplete, events[1].Kind)
	assert.Equal(t, 5, s.RetriesSoFar())
}

func TestCancelDuringBackoffStopsRetrying(t *testing.T) {
	var attempts int
	started := make(chan struct{}, 10)

	producer := stream.Producer(func(method string, req any) stream.Stream {
		attempts++
		started <- struct{}{}
		return stream.NewFunc(func(c *stream.Core) {
			c.Error(unavailable())
		})
	})

	opts := retry.DefaultOptions()
	opts.Schedule = backoff.Schedule{ConstantMs: 500, Base: 1, MaxMs: 500}
	s := retry.New("m", "req", producer, opts)
	s.Start()

	<-started
	time.Sleep(20 * time.Millisecond) // let the first attempt fail and enter backoff
	s.Cancel()

	var last stream.Event
	for ev := range s.Events() {
		last = ev
	}
	assert.Equal(t, stream.EventCanceled, last.Kind)
	assert.Equal(t, 1, attempts)
}
