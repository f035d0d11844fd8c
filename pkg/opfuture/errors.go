package opfuture

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// TimeoutError is returned by Await/Join when the user's wait budget elapses,
// or when long-poll escalation decides the remote peer has gone quiet.
// It satisfies spec.md §7 category 2.
type TimeoutError struct {
	Invocation *Invocation
	Elapsed    time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("invocation %s timed out after %s", e.Invocation.ID, e.Elapsed)
}

// InterruptedError is installed only by external machinery as a terminal
// slot value; it is never synthesized by the await loop itself (spec.md §5,
// §7 category 3).
type InterruptedError struct {
	Invocation *Invocation
}

func (e *InterruptedError) Error() string {
	return fmt.Sprintf("invocation %s was interrupted", e.Invocation.ID)
}

// ExecutionError wraps the remote failure carrier delivered by Complete
// (spec.md §7 category 1). Cause carries a github.com/pkg/errors stack
// captured at the point the failure was offered to Complete; Await appends
// the awaiting goroutine's own stack as a second annotation so a printed
// error shows both the remote failure site and the local await site (async
// stack stitching, spec.md §4.5.4 and §9).
type ExecutionError struct {
	Invocation *Invocation
	Cause      error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("invocation %s failed: %s", e.Invocation.ID, e.Cause)
}

func (e *ExecutionError) Unwrap() error { return e.Cause }

// stitch wraps cause with a stack frame captured at the awaiter's call site,
// so that printing the returned error (with a %+v-aware formatter, as
// github.com/pkg/errors provides) shows both the originating stack attached
// by the Completion Gate and the awaiter's own frames beneath it.
func stitch(cause error) error {
	return errors.WithMessage(errors.WithStack(cause), "awaited here")
}
