package opfuture

import "sync/atomic"

// responseSlot is the write-once-with-sentinels cell described by the
// future's data model: it holds empty, one of the internal sentinels, or a
// terminal payload, and publishes whichever value wins the race to any
// thread that reads it afterward.
//
// sync/atomic.Value's CompareAndSwap (Go 1.17+) is the one piece of the slot
// built on the standard library rather than the teacher's go.uber.org/atomic:
// uber's wrapper types (Bool, Uint32, ...) used elsewhere in this package for
// the await-counter and interrupted-flag are scalar and have had CAS methods
// for years, but its interface{}-typed Value does not offer an equivalent
// compare-and-swap across the pinned version, and the slot must hold values
// of differing dynamic types (a sentinel pointer or an arbitrary payload)
// across its lifetime, which rules out the scalar wrappers entirely.
type responseSlot struct {
	v atomic.Value
}

func newResponseSlot() *responseSlot {
	s := &responseSlot{}
	s.v.Store(empty)
	return s
}

// read returns the current value of the slot without blocking.
func (s *responseSlot) read() any {
	return s.v.Load()
}

// cas attempts to move the slot from expected to next, returning whether it
// succeeded. Losers observe no side effect; the slot is left exactly as the
// winner set it.
func (s *responseSlot) cas(expected, next any) bool {
	return s.v.CompareAndSwap(expected, next)
}
