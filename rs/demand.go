// Package rs is the reactive-streams commons layer: the demand-driven
// publish/subscribe protocol, its fusion extension, and the four operators
// (iterable source, observe-on boundary, replay processor, window operator)
// that exercise every corner of it. It has no dependency on the rest of this
// module; the root package bridges into it (see FromPublisher in bridge.go).
package rs

import (
	"math"
	"sync/atomic"
)

// Unbounded is the saturating value used to mean "no limit" on a demand
// counter. It is produced by AddCap once enough positive requests have
// accumulated, and consumed specially by every operator's fast path.
const Unbounded = math.MaxInt64

// AddCap adds n to current with saturating semantics: the result never
// exceeds math.MaxInt64 and never overflows into a negative number.
func AddCap(current, n int64) int64 {
	if current == Unbounded || n == Unbounded {
		return Unbounded
	}

	result := current + n
	if result < 0 { // overflow
		return Unbounded
	}

	return result
}

// MultiplyCap multiplies a by b with saturating semantics. Used by Window's
// credit formulas, where size/skip are multiplied by a downstream request
// count that may itself be Unbounded.
func MultiplyCap(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}

	if a == Unbounded || b == Unbounded {
		return Unbounded
	}

	result := a * b
	if result/b != a || result < 0 { // overflow
		return Unbounded
	}

	return result
}

// demand is the saturating, monotonically-increased-by-consumer /
// monotonically-decreased-by-producer counter backing every Subscription in
// this package. It is a thin wrapper over atomic.Int64 so call sites read
// like the algorithm description in the protocol rather than like raw
// atomic operations.
type demand struct {
	n atomic.Int64
}

// add performs a saturating add and returns the value before the add, which
// callers use to decide whether they are the first requester ("if it was
// zero, I own the drain").
func (d *demand) add(n int64) int64 {
	for {
		old := d.n.Load()
		next := AddCap(old, n)
		if d.n.CompareAndSwap(old, next) {
			return old
		}
	}
}

func (d *demand) get() int64 {
	return d.n.Load()
}

// sub decrements the counter by n, unless it is Unbounded, in which case it
// is left untouched (a saturated demand counter never needs replenishment
// bookkeeping).
func (d *demand) sub(n int64) {
	if n == 0 {
		return
	}

	for {
		old := d.n.Load()
		if old == Unbounded {
			return
		}

		next := old - n
		if next < 0 {
			next = 0
		}

		if d.n.CompareAndSwap(old, next) {
			return
		}
	}
}

// wip implements the serialized drain-loop idiom: a caller that wants to run
// the drain loop calls enter(); if it returns true, the caller owns the
// loop. The owner exits each pass with leave(missed), subtracting the amount
// it started the pass with; the returned value is the counter's new state,
// which is also how many additional signals arrived mid-pass. If that is
// zero the owner is done; otherwise it must run one more pass, using the
// returned value as the next missed.
type wip struct {
	n atomic.Int32
}

func (w *wip) enter() bool {
	return w.n.Add(1) == 1
}

func (w *wip) leave(missed int32) int32 {
	return w.n.Add(-missed)
}

func (w *wip) get() int32 {
	return w.n.Load()
}
