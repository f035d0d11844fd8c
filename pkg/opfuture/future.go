package opfuture

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// longPollCap bounds how much slack the max-single-poll window adds on top
// of the invocation's own call timeout (spec.md §4.5.1).
const longPollCap = 60 * time.Second

// infiniteBudget stands in for spec.md's distinguished "∞" wait budget. It
// saturates under subtraction: once a budget equals infiniteBudget it is
// never decremented, so an unbounded Await never falls off the main loop on
// its own; only completion or long-poll escalation can end it.
const infiniteBudget = time.Duration(math.MaxInt64)

// RawCarrier is implemented by protocol-level response envelopes that have
// not yet been decoded to a domain value. Offering one of these to Complete
// is a contract violation (spec.md §4.4, §7 category 4): transports must
// decode before completing the future.
type RawCarrier interface {
	ProtocolCarrier()
}

// failureCarrier wraps a throwable-like error offered to Complete, per the
// Response Slot's data model (spec.md §3): a terminal payload is either an
// opaque value or a failure carrier wrapping an error.
type failureCarrier struct {
	err error
}

// Future is the invocation future: the rendezvous between awaiters, the
// transport callback that completes it, and continuations attached from
// either side. The zero value is not usable; construct with NewFuture.
type Future struct {
	invocation *Invocation

	mu            sync.Mutex
	cond          *sync.Cond
	slot          *responseSlot
	continuations continuationList

	registry        *Registry
	liveness        LivenessOracle
	defaultExecutor Executor
	metrics         *Metrics
	deserializeMode bool

	createdAt time.Time

	waiters           atomic.Uint32
	interruptObserved atomic.Bool
}

// Option configures a Future at construction time.
type Option func(*Future)

// WithRegistry registers the future so Complete can deregister the
// invocation from it on terminal completion (spec.md §4.4 step 7).
func WithRegistry(r *Registry) Option {
	return func(f *Future) { f.registry = r }
}

// WithLiveness supplies the liveness oracle long-poll escalation consults
// (spec.md §4.5.2). Without one, long-poll escalation never fires and the
// future relies solely on the per-call budget.
func WithLiveness(l LivenessOracle) Option {
	return func(f *Future) { f.liveness = l }
}

// WithDefaultExecutor supplies the executor AttachDefault submits to.
func WithDefaultExecutor(e Executor) Option {
	return func(f *Future) { f.defaultExecutor = e }
}

// WithMetrics wires Prometheus observability (spec.md §6's observability
// surface). Without one, a no-op sink is used.
func WithMetrics(m *Metrics) Option {
	return func(f *Future) { f.metrics = m }
}

// WithDeserialize marks the future as constructed in "deserialize mode": a
// still-serialized terminal value is decoded through inv.Deserialize before
// being handed to an awaiter (spec.md §4.5.4).
func WithDeserialize(on bool) Option {
	return func(f *Future) { f.deserializeMode = on }
}

// NewFuture creates an empty future for the given invocation.
func NewFuture(inv *Invocation, opts ...Option) *Future {
	f := &Future{
		invocation: inv,
		slot:       newResponseSlot(),
		createdAt:  time.Now(),
		metrics:    nopMetrics,
	}
	f.cond = sync.NewCond(&f.mu)
	for _, opt := range opts {
		opt(f)
	}
	if f.defaultExecutor == nil {
		f.defaultExecutor = InlineRejectingExecutor{}
	}
	return f
}

// WaitAgain is the pseudo-response used to implement server-side blocking
// operations (spec.md §4.4 step 4): completing with it keeps the future
// open, notifying nobody by design (see the "never-notify" note below).
var WaitAgain any = waitAgain

// Interrupted is the pseudo-response external machinery completes a future
// with to terminate it along spec.md §7 category 3's interrupt path rather
// than with a value, a failure, or a synthesized timeout. A registry or
// supervisor that decides an invocation must be abandoned — the owning
// goroutine was cancelled, the node is shutting down — calls
// f.Complete(Interrupted) the same way a transport calls f.Complete(v) or
// f.Complete(err); resolve then reports an *InterruptedError to every
// waiter and attached continuation.
var Interrupted any = interrupted

// Attach registers a continuation to run on exec once the future reaches a
// terminal value. If the future is already terminal, the continuation is
// submitted immediately but never run inline on the calling goroutine
// (spec.md §4.2).
func (f *Future) Attach(cb func(value any, err error), exec Executor) {
	if cb == nil || exec == nil {
		panic("opfuture: Attach requires a non-nil callback and executor")
	}
	f.mu.Lock()
	s := f.slot.read()
	if isTerminal(s) {
		f.mu.Unlock()
		value, err := f.resolve(s)
		f.submitResolved(cb, exec, value, err)
		return
	}
	f.continuations.push(cb, exec)
	f.mu.Unlock()
}

// AttachDefault attaches cb to the executor supplied at construction time.
func (f *Future) AttachDefault(cb func(value any, err error)) {
	f.Attach(cb, f.defaultExecutor)
}

// Complete is the Completion Gate (spec.md §4.4). It returns true iff this
// call's write was the first terminal (or WAIT_AGAIN) write to take effect.
func (f *Future) Complete(offered any) bool {
	if offered == nil {
		offered = nullReply
	}
	if _, ok := offered.(RawCarrier); ok {
		panic("opfuture: Complete called with an undecoded protocol-level carrier")
	}
	if err, ok := offered.(error); ok {
		if _, already := offered.(*failureCarrier); !already {
			offered = &failureCarrier{err: errors.WithStack(err)}
		}
	}

	f.mu.Lock()
	if isTerminal(f.slot.read()) {
		f.mu.Unlock()
		f.invocation.logger().Debug("redundant completion, discarding",
			zap.Stringer("invocation", f.invocation.ID))
		if f.registry != nil {
			f.registry.Deregister(f.invocation)
		}
		f.metrics.recordCompletion("redundant")
		return false
	}

	f.slot.v.Store(offered)

	if offered == waitAgain {
		// Reference choice (spec.md §9 open question): never notify on
		// WAIT_AGAIN. Waiters drain naturally on the next real completion
		// or their own bounded poll windows. The future stays open: no
		// continuation detachment, no deregistration.
		f.mu.Unlock()
		return true
	}

	drained := f.continuations.detachAndDrain()
	f.cond.Broadcast()
	if f.registry != nil {
		f.registry.Deregister(f.invocation)
	}
	f.mu.Unlock()

	f.metrics.recordCompletion(outcomeLabel(offered))
	f.submitAll(drained, offered)
	return true
}

func outcomeLabel(offered any) string {
	switch offered {
	case nullReply:
		return "null"
	case deadlineExceeded:
		return "timeout"
	case interrupted:
		return "interrupted"
	}
	if _, ok := offered.(*failureCarrier); ok {
		return "failure"
	}
	return "value"
}

func (f *Future) submitAll(head *continuation, offered any) {
	value, err := f.resolve(offered)
	for n := head; n != nil; n = n.next {
		f.submitResolved(n.callback, n.executor, value, err)
	}
}

// submitResolved submits cb to exec with an already-resolved outcome.
// Rejection is logged and never propagated; a panic inside cb is recovered
// and logged, never affecting the future or other continuations (spec.md §7
// categories 5 and 6).
func (f *Future) submitResolved(cb func(value any, err error), exec Executor, value any, err error) {
	submitErr := exec.Submit(func() {
		defer func() {
			if r := recover(); r != nil {
				f.invocation.logger().Error("continuation panicked", zap.Any("panic", r))
			}
		}()
		cb(value, err)
	})
	if submitErr != nil {
		f.invocation.logger().Warn("continuation rejected by executor", zap.Error(submitErr))
		f.metrics.executorRejection()
	}
}

// IsDone reports whether the slot holds a terminal value.
func (f *Future) IsDone() bool {
	return isTerminal(f.slot.read())
}

// Cancel always reports failure: the future cannot be cancelled, only the
// surrounding invocation machinery can stop retrying (spec.md §5).
func (f *Future) Cancel(bool) bool { return false }

// IsCancelled always returns false.
func (f *Future) IsCancelled() bool { return false }

// WaiterCount exposes the number of goroutines currently parked in Await,
// for diagnostics (spec.md §3's await-counter).
func (f *Future) WaiterCount() uint32 { return f.waiters.Load() }

// InterruptObserved reports whether any awaiter observed a cancellation
// while parked and the future later completed with a non-interrupt value.
// This is the Go-idiomatic stand-in for restoring a Java thread's interrupt
// flag (spec.md §4.5.2, §5, P5): goroutines have no persistent interrupt
// status to set, so callers that care can poll this instead.
func (f *Future) InterruptObserved() bool { return f.interruptObserved.Load() }

// Await blocks until the future completes or timeout elapses, whichever
// comes first. A negative timeout is clamped to zero: a single
// non-blocking probe (spec.md §4.5.2).
func (f *Future) Await(timeout time.Duration) (any, error) {
	if timeout < 0 {
		timeout = 0
	}
	return f.awaitTracked(timeout, nil)
}

// AwaitContext blocks until the future completes or ctx is done, whichever
// comes first. ctx's deadline (if any) is used as the wait budget; ctx
// being done for any other reason (explicit cancellation) is treated as the
// await loop's interrupt path (spec.md §4.5.2's Interrupt catch clause) —
// the Go substitute for a Java thread interrupt, since goroutines have none
// of their own.
func (f *Future) AwaitContext(ctx context.Context) (any, error) {
	budget := infiniteBudget
	if dl, ok := ctx.Deadline(); ok {
		budget = time.Until(dl)
		if budget < 0 {
			budget = 0
		}
	}
	interrupt := make(chan struct{})
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			if ctx.Err() != context.DeadlineExceeded {
				close(interrupt)
			}
		case <-stop:
		}
	}()
	return f.awaitTracked(budget, interrupt)
}

// AwaitUntimed blocks indefinitely, equivalent to Await(∞).
func (f *Future) AwaitUntimed() (any, error) {
	return f.awaitTracked(infiniteBudget, nil)
}

// Join is AwaitUntimed under another name. spec.md's join() unwraps
// checked-style failures into unchecked ones; Go has no such distinction
// since every error is already a plain return value, so Join is a pure
// convenience alias kept for readers coming from the original surface.
func (f *Future) Join() (any, error) {
	return f.AwaitUntimed()
}

func (f *Future) awaitTracked(total time.Duration, cancel <-chan struct{}) (any, error) {
	f.waiters.Inc()
	f.metrics.setWaiters(float64(f.waiters.Load()))
	defer func() {
		f.waiters.Dec()
		f.metrics.setWaiters(float64(f.waiters.Load()))
	}()
	return f.awaitLoop(total, cancel)
}

// awaitLoop is the Await Engine's main loop (spec.md §4.5.2).
func (f *Future) awaitLoop(remaining time.Duration, cancel <-chan struct{}) (any, error) {
	m := f.maxSinglePoll()
	longPolling := remaining > m
	pollCount := 0
	interruptedFlag := false

	for remaining >= 0 {
		p := minDuration(m, remaining)
		start := time.Now()
		pollCount++

		canceled := f.parkFor(p, cancel)
		if canceled {
			interruptedFlag = true
		}

		elapsed := time.Since(start)
		remaining = saturatingSub(remaining, elapsed)

		s := f.slot.read()
		if s == waitAgain {
			f.slot.cas(waitAgain, empty)
			continue
		}
		if s != empty {
			if interruptedFlag && s != interrupted {
				f.interruptObserved.Store(true)
			}
			return f.resolve(s)
		}

		if !interruptedFlag && longPolling {
			if f.invocation.IsRemote && f.invocation.TargetAddr == f.invocation.LocalAddr {
				// Migration in progress: the invocation's target equals our
				// own address, so liveness is meaningless right now.
				continue
			}
			if f.liveness != nil && !f.liveness.IsExecuting(f.invocation) {
				syn := f.invocation.NewTimeout(time.Duration(pollCount) * p)
				if f.slot.read() != empty {
					continue
				}
				f.Complete(syn)
				f.metrics.longPollTimeout()
			}
		}
	}
	return f.resolve(deadlineExceeded)
}

// parkFor waits under the monitor for up to budget for the slot to become
// non-empty, or for cancel (if non-nil) to fire. It reports whether cancel
// fired. If budget is non-positive or the slot is already non-empty, it
// returns immediately without ever entering the condition wait (spec.md
// §4.5.3).
func (f *Future) parkFor(budget time.Duration, cancel <-chan struct{}) (canceledNow bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if budget <= 0 || f.slot.read() != empty {
		return false
	}

	var timedOut, wasCanceled bool
	timer := time.AfterFunc(budget, func() {
		f.mu.Lock()
		timedOut = true
		f.mu.Unlock()
		f.cond.Broadcast()
	})
	defer timer.Stop()

	if cancel != nil {
		done := make(chan struct{})
		defer close(done)
		go func() {
			select {
			case <-cancel:
				f.mu.Lock()
				wasCanceled = true
				f.mu.Unlock()
				f.cond.Broadcast()
			case <-done:
			}
		}()
	}

	for f.slot.read() == empty && !timedOut && !wasCanceled {
		f.cond.Wait()
	}
	return wasCanceled
}

// resolve maps a raw slot value (or the locally-synthesized deadlineExceeded
// sentinel the main loop falls through to) to the user-visible outcome
// (spec.md §4.5.4).
func (f *Future) resolve(s any) (any, error) {
	switch s {
	case nullReply:
		return nil, nil
	case deadlineExceeded:
		return nil, f.invocation.NewTimeout(time.Since(f.createdAt))
	case interrupted:
		return nil, &InterruptedError{Invocation: f.invocation}
	}
	if fc, ok := s.(*failureCarrier); ok {
		return nil, &ExecutionError{Invocation: f.invocation, Cause: stitch(fc.err)}
	}
	if f.deserializeMode && f.invocation.Deserialize != nil {
		decoded, err := f.invocation.Deserialize(s)
		if err != nil {
			return nil, &ExecutionError{Invocation: f.invocation, Cause: stitch(err)}
		}
		if decoded == nil {
			return nil, nil
		}
		return decoded, nil
	}
	return s, nil
}

func (f *Future) maxSinglePoll() time.Duration {
	c := f.invocation.CallTimeout
	if c <= 0 {
		return infiniteBudget
	}
	capped := c
	if capped > longPollCap {
		capped = longPollCap
	}
	return c + capped
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

func saturatingSub(remaining, elapsed time.Duration) time.Duration {
	if remaining == infiniteBudget {
		return infiniteBudget
	}
	return remaining - elapsed
}
