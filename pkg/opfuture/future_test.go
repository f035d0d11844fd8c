package opfuture

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func newTestInvocation(t *testing.T) *Invocation {
	return &Invocation{ID: uuid.New(), Logger: zaptest.NewLogger(t)}
}

// Scenario 1: simple success.
func TestScenarioSimpleSuccess(t *testing.T) {
	fut := NewFuture(newTestInvocation(t))

	assert.True(t, fut.Complete("ok"))
	v, err := fut.Await(time.Second)
	assert.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.True(t, fut.IsDone())
}

// Scenario 2: null reply.
func TestScenarioNullReply(t *testing.T) {
	fut := NewFuture(newTestInvocation(t))

	assert.True(t, fut.Complete(nil))
	v, err := fut.AwaitUntimed()
	assert.NoError(t, err)
	assert.Nil(t, v)
	assert.True(t, fut.IsDone())
}

// Scenario 3 / P1: losing completer.
func TestScenarioLosingCompleter(t *testing.T) {
	fut := NewFuture(newTestInvocation(t))

	assert.True(t, fut.Complete("first"))
	assert.False(t, fut.Complete("second"))

	v, err := fut.AwaitUntimed()
	assert.NoError(t, err)
	assert.Equal(t, "first", v)
}

// P1, generalized: exactly one of N concurrent completions wins.
func TestP1ExactlyOneCompleterWins(t *testing.T) {
	fut := NewFuture(newTestInvocation(t))

	const n = 50
	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		i := i
		go func() {
			defer wg.Done()
			if fut.Complete(i) {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)
	assert.True(t, fut.IsDone())

	v, err := fut.AwaitUntimed()
	assert.NoError(t, err)

	v2, err2 := fut.AwaitUntimed()
	assert.NoError(t, err2)
	assert.Equal(t, v, v2, "every subsequent await must observe the winning value")
}

// Scenario 4 / P3: wait-again then value, never notifying in between.
func TestScenarioWaitAgainThenValue(t *testing.T) {
	fut := NewFuture(newTestInvocation(t))

	assert.True(t, fut.Complete(WaitAgain))
	assert.False(t, fut.IsDone())

	done := make(chan struct{})
	var v any
	var err error
	go func() {
		v, err = fut.Await(time.Second)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	assert.False(t, fut.IsDone())

	assert.True(t, fut.Complete(42))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("await never returned after the real completion")
	}
	assert.NoError(t, err)
	assert.Equal(t, 42, v)
}

// Scenario 5 / P4: await(t) with no completion returns deadline-exceeded
// after at least t.
func TestScenarioTimeout(t *testing.T) {
	inv := newTestInvocation(t)
	inv.CallTimeout = 10 * time.Millisecond
	fut := NewFuture(inv)

	start := time.Now()
	v, err := fut.Await(50 * time.Millisecond)
	elapsed := time.Since(start)

	assert.Nil(t, v)
	var timeoutErr *TimeoutError
	assert.ErrorAs(t, err, &timeoutErr)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	assert.False(t, fut.IsDone(), "a local await timeout must not itself write a terminal value to the slot")
}

// Scenario 6 / P2: continuation after completion runs via the executor, not
// inline on the attacher.
func TestScenarioContinuationAfterCompletion(t *testing.T) {
	fut := NewFuture(newTestInvocation(t))
	assert.True(t, fut.Complete("x"))

	type outcome struct {
		value       any
		err         error
		attachedYet bool
	}
	results := make(chan outcome, 1)
	var attachReturned atomic.Bool

	fut.Attach(func(value any, err error) {
		results <- outcome{value, err, attachReturned.Load()}
	}, NewPoolExecutor(1))
	attachReturned.Store(true)

	select {
	case o := <-results:
		assert.NoError(t, o.err)
		assert.Equal(t, "x", o.value)
		assert.True(t, o.attachedYet, "continuation must not run inline during Attach")
	case <-time.After(time.Second):
		t.Fatal("continuation never ran")
	}
}

// P2: every attached continuation is submitted exactly once, none dropped,
// none double-submitted — across continuations attached both before and
// after completion.
func TestP2EveryContinuationSubmittedExactlyOnce(t *testing.T) {
	fut := NewFuture(newTestInvocation(t))
	pool := NewPoolExecutor(8)
	defer pool.Close()

	const before = 10
	var calls int32
	var wg sync.WaitGroup
	wg.Add(before)
	for i := 0; i < before; i++ {
		fut.Attach(func(any, error) {
			atomic.AddInt32(&calls, 1)
			wg.Done()
		}, pool)
	}

	assert.True(t, fut.Complete("done"))

	const after = 10
	wg.Add(after)
	for i := 0; i < after; i++ {
		fut.Attach(func(any, error) {
			atomic.AddInt32(&calls, 1)
			wg.Done()
		}, pool)
	}

	doneCh := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneCh)
	}()
	select {
	case <-doneCh:
	case <-time.After(2 * time.Second):
		t.Fatal("not every continuation ran")
	}
	assert.Equal(t, int32(before+after), atomic.LoadInt32(&calls))
}

// P5: an interrupted awaiter that later sees a non-interrupt completion
// returns that value and records that an interrupt was observed.
func TestP5InterruptObservedThenResolved(t *testing.T) {
	fut := NewFuture(newTestInvocation(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var v any
	var err error
	go func() {
		v, err = fut.AwaitContext(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	time.Sleep(20 * time.Millisecond)
	assert.True(t, fut.Complete("value-after-interrupt"))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("await never returned")
	}
	assert.NoError(t, err)
	assert.Equal(t, "value-after-interrupt", v)
	assert.True(t, fut.InterruptObserved())
}

// External machinery can terminally interrupt a future the same way a
// transport completes one with a value or a failure (spec.md §7 category 3).
func TestCompleteWithInterrupted(t *testing.T) {
	fut := NewFuture(newTestInvocation(t))

	assert.True(t, fut.Complete(Interrupted))

	v, err := fut.Await(time.Second)
	assert.Nil(t, v)
	var interruptErr *InterruptedError
	assert.ErrorAs(t, err, &interruptErr)

	// Terminal: a second completion attempt is rejected.
	assert.False(t, fut.Complete("too-late"))
}

// P6: cancel always reports false and changes nothing.
func TestP6CancelIsNoOp(t *testing.T) {
	fut := NewFuture(newTestInvocation(t))

	assert.False(t, fut.Cancel(true))
	assert.False(t, fut.IsCancelled())
	assert.False(t, fut.IsDone())

	assert.True(t, fut.Complete("v"))
	assert.False(t, fut.Cancel(true))
	assert.True(t, fut.IsDone())
	v, err := fut.AwaitUntimed()
	assert.NoError(t, err)
	assert.Equal(t, "v", v)
}

// P7: long-poll synthesis escalates to a timeout once the liveness oracle
// reports the target as no longer executing, well before the caller's own
// (unbounded) budget would ever elapse.
func TestP7LongPollSynthesizesTimeout(t *testing.T) {
	inv := newTestInvocation(t)
	inv.CallTimeout = 30 * time.Millisecond
	fut := NewFuture(inv, WithLiveness(StaticLivenessOracle(false)))

	start := time.Now()
	v, err := fut.AwaitUntimed()
	elapsed := time.Since(start)

	assert.Nil(t, v)
	var timeoutErr *TimeoutError
	assert.ErrorAs(t, err, &timeoutErr)
	assert.Less(t, elapsed, 500*time.Millisecond, "escalation must fire on the order of the call timeout, not hang forever")
	assert.True(t, fut.IsDone(), "long-poll escalation completes the future for every waiter, unlike a local-only await timeout")
}

// Long-poll escalation does not fire while the oracle reports the target as
// still executing: the call keeps waiting past its own call timeout.
func TestLongPollKeepsWaitingWhileExecuting(t *testing.T) {
	inv := newTestInvocation(t)
	inv.CallTimeout = 20 * time.Millisecond
	fut := NewFuture(inv, WithLiveness(StaticLivenessOracle(true)))

	done := make(chan struct{})
	go func() {
		fut.AwaitUntimed() //nolint:errcheck
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("await returned while the liveness oracle still reports the target executing")
	case <-time.After(100 * time.Millisecond):
	}

	assert.True(t, fut.Complete("finally"))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("await never returned after completion")
	}
}

// P8: failure stitching preserves the original message and cause, and the
// delivered error also carries the awaiter's own stack frame.
func TestP8FailureStitching(t *testing.T) {
	fut := NewFuture(newTestInvocation(t))
	cause := errors.New("remote exploded")

	assert.True(t, fut.Complete(cause))
	_, err := fut.AwaitUntimed()

	var execErr *ExecutionError
	assert.ErrorAs(t, err, &execErr)
	assert.Contains(t, execErr.Error(), "remote exploded")
	assert.Contains(t, execErr.Cause.Error(), "awaited here")
	assert.True(t, errors.Is(execErr, cause))
}

func TestCompleteRejectsRawCarrier(t *testing.T) {
	fut := NewFuture(newTestInvocation(t))
	assert.Panics(t, func() {
		fut.Complete(rawCarrierStub{})
	})
}

type rawCarrierStub struct{}

func (rawCarrierStub) ProtocolCarrier() {}

func TestAttachPanicsOnNilArgs(t *testing.T) {
	fut := NewFuture(newTestInvocation(t))
	assert.Panics(t, func() { fut.Attach(nil, InlineRejectingExecutor{}) })
	assert.Panics(t, func() { fut.Attach(func(any, error) {}, nil) })
}

func TestRedundantCompletionDeregisters(t *testing.T) {
	reg := NewRegistry(zaptest.NewLogger(t), 4)
	inv := newTestInvocation(t)
	fut := NewFuture(inv, WithRegistry(reg))
	reg.Register(inv, fut)

	assert.True(t, fut.Complete("first"))
	assert.Equal(t, 0, reg.Len(), "a successful completion deregisters immediately")

	assert.False(t, fut.Complete("second"))
	assert.Equal(t, 0, reg.Len())
}

func TestJoinIsAliasForAwaitUntimed(t *testing.T) {
	fut := NewFuture(newTestInvocation(t))
	assert.True(t, fut.Complete("joined"))
	v, err := fut.Join()
	assert.NoError(t, err)
	assert.Equal(t, "joined", v)
}

func TestDeserializeModeDecodesStoredValue(t *testing.T) {
	inv := newTestInvocation(t)
	inv.Deserialize = func(v any) (any, error) {
		return v.(string) + "-decoded", nil
	}
	fut := NewFuture(inv, WithDeserialize(true))

	assert.True(t, fut.Complete("raw"))
	v, err := fut.AwaitUntimed()
	assert.NoError(t, err)
	assert.Equal(t, "raw-decoded", v)
}

func TestWaiterCountTracksParkedAwaiters(t *testing.T) {
	fut := NewFuture(newTestInvocation(t))
	assert.Equal(t, uint32(0), fut.WaiterCount())

	release := make(chan struct{})
	go func() {
		<-release
		fut.Complete("go")
	}()

	done := make(chan struct{})
	go func() {
		fut.AwaitUntimed() //nolint:errcheck
		close(done)
	}()

	assert.Eventually(t, func() bool { return fut.WaiterCount() == 1 }, time.Second, 2*time.Millisecond)
	close(release)
	<-done
	assert.Eventually(t, func() bool { return fut.WaiterCount() == 0 }, time.Second, 2*time.Millisecond)
}
