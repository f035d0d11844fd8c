package opfuture

// continuation is one node of the lock-protected LIFO stack of pending
// callbacks. Nodes are immutable once linked.
type continuation struct {
	callback func(value any, err error)
	executor Executor
	next     *continuation
}

// continuationList is the stack described by the future's data model. It
// exists only while the owning future is non-terminal; detachAndDrain empties
// it atomically under the caller-held monitor.
type continuationList struct {
	head *continuation
}

// push links a new node onto the head of the stack. Must be called with the
// future's monitor held.
func (l *continuationList) push(cb func(value any, err error), exec Executor) {
	l.head = &continuation{callback: cb, executor: exec, next: l.head}
}

// detachAndDrain exchanges the stack with empty and returns the old head, so
// the caller can submit it to executors outside the monitor. Must be called
// with the future's monitor held.
func (l *continuationList) detachAndDrain() *continuation {
	head := l.head
	l.head = nil
	return head
}
