// Package opfuture implements the invocation future: the rendezvous point
// between a goroutine awaiting the reply to a dispatched invocation, the
// transport callback that eventually delivers that reply, and any number of
// continuations attached before or after the outcome is known.
//
// A Future is created empty alongside a dispatched Invocation and is
// completed exactly once, either by a transport delivering a decoded reply
// or by the future's own await loop synthesizing a timeout. Everything after
// the first successful Complete is a no-op.
package opfuture
