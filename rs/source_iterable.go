package rs

import (
	"reflect"
	"sync/atomic"
)

// isNullValue reports whether v is a Go encoding of the "null" the protocol
// forbids: a nil pointer, interface, slice, map, chan, or func. Values of
// kinds that have no nil representation (numbers, strings, structs, arrays)
// can never be null and always report false, whatever their zero value is —
// the zero int is a perfectly legal element, unlike a nil *int.
func isNullValue(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
		return rv.IsNil()
	default:
		return false
	}
}

// Iterator is pulled from by FromIterable, once per Subscribe. Unlike a Go
// range loop, HasNext and Next are kept as separate calls so a subscription
// can ask "is there more?" without consuming a value, matching the contract
// that backs the fused state machine below.
type Iterator[T any] interface {
	HasNext() (bool, error)
	Next() (T, error)
}

// SliceIterator adapts a plain slice to Iterator.
type SliceIterator[T any] struct {
	items []T
	index int
}

// NewSliceIterator returns an Iterator that yields items in order.
func NewSliceIterator[T any](items []T) *SliceIterator[T] {
	return &SliceIterator[T]{items: items}
}

func (it *SliceIterator[T]) HasNext() (bool, error) {
	return it.index < len(it.items), nil
}

func (it *SliceIterator[T]) Next() (T, error) {
	v := it.items[it.index]
	it.index++
	return v, nil
}

// iterableSource lazily builds one Iterator per Subscribe call, so the same
// Publisher can be subscribed to many times and each subscriber walks its
// own independent cursor.
type iterableSource[T any] struct {
	newIterator func() (Iterator[T], error)
}

// FromIterable returns a Publisher that, for each Subscriber, pulls
// elements one at a time from a fresh Iterator produced by newIterator,
// honoring the Subscriber's requested demand exactly.
func FromIterable[T any](newIterator func() (Iterator[T], error)) Publisher[T] {
	return &iterableSource[T]{newIterator: newIterator}
}

// FromSlice is the common case of FromIterable: publish the elements of a
// fixed slice, one per Subscribe call.
func FromSlice[T any](items []T) Publisher[T] {
	return FromIterable(func() (Iterator[T], error) {
		return NewSliceIterator(items), nil
	})
}

func (s *iterableSource[T]) Subscribe(subscriber Subscriber[T]) {
	it, err := s.newIterator()
	if err != nil {
		Error[T](subscriber, err)
		return
	}

	hasNext, err := it.HasNext()
	if err != nil {
		Error[T](subscriber, err)
		return
	}

	if !hasNext {
		Complete[T](subscriber)
		return
	}

	sub := &iterableSubscription[T]{
		iterator:   it,
		downstream: subscriber,
	}
	subscriber.OnSubscribe(sub)
}

// iterable state machine values, cached across HasNext/Next calls so a
// side-effecting Iterator is never probed twice for the same element.
// probeHasNext calls Next right after a true HasNext and caches the value,
// so IsEmpty already takes an element from the iterator;
// iterHasNextNoValue is declared but never entered.
const (
	iterNeedsHasNext int32 = iota
	iterHasNextNoValue
	iterHasNextHasValue
	iterNoNext
)

var _ QueueSubscription[int] = (*iterableSubscription[int])(nil)

type iterableSubscription[T any] struct {
	iterator   Iterator[T]
	downstream Subscriber[T]

	requested demand
	wip       wip
	cancelled atomic.Bool

	state      int32 // one of the iterNeedsHasNext family, shared by Poll/IsEmpty and drainOnce
	cachedNext T

	fusionMode FusionMode
}

func (s *iterableSubscription[T]) Request(n int64) {
	if !ValidateRequest(n) {
		if s.cancelled.CompareAndSwap(false, true) {
			s.downstream.OnError(ErrInvalidRequest)
		}
		return
	}

	s.requested.add(n)

	if s.fusionMode == FusionSync {
		// The downstream is pulling via Poll; Request only needs to wake a
		// drain loop if one isn't already marked, which matters only for
		// the conditional-subscriber notification path. Nothing to do.
		return
	}

	s.drain()
}

func (s *iterableSubscription[T]) Cancel() {
	s.cancelled.Store(true)
}

func (s *iterableSubscription[T]) RequestFusion(mode FusionMode) FusionMode {
	if mode == FusionSync || mode == FusionAny {
		s.fusionMode = FusionSync
		return FusionSync
	}

	return FusionNone
}

func (s *iterableSubscription[T]) Poll() (value T, ok bool) {
	hasNext, err := s.probeHasNext()
	if err != nil {
		s.downstream.OnError(err)
		return value, false
	}

	if !hasNext {
		return value, false
	}

	v, err := s.consumeNext()
	if err != nil {
		s.downstream.OnError(err)
		return value, false
	}

	return v, true
}

func (s *iterableSubscription[T]) IsEmpty() bool {
	hasNext, err := s.probeHasNext()
	return err != nil || !hasNext
}

func (s *iterableSubscription[T]) Clear() {
	for {
		state := atomic.LoadInt32(&s.state)
		if state == iterNoNext {
			return
		}

		atomic.StoreInt32(&s.state, iterNoNext)
		return
	}
}

func (s *iterableSubscription[T]) Size() int {
	if s.IsEmpty() {
		return 0
	}

	return 1
}

// probeHasNext calls the iterator's HasNext at most once per element,
// caching the produced value (if any) so a subsequent consumeNext does not
// call HasNext or Next again.
func (s *iterableSubscription[T]) probeHasNext() (bool, error) {
	switch atomic.LoadInt32(&s.state) {
	case iterHasNextHasValue:
		return true, nil
	case iterNoNext:
		return false, nil
	}

	hasNext, err := s.iterator.HasNext()
	if err != nil {
		atomic.StoreInt32(&s.state, iterNoNext)
		return false, err
	}

	if !hasNext {
		atomic.StoreInt32(&s.state, iterNoNext)
		return false, nil
	}

	v, err := s.iterator.Next()
	if err != nil {
		atomic.StoreInt32(&s.state, iterNoNext)
		return false, err
	}

	s.cachedNext = v
	atomic.StoreInt32(&s.state, iterHasNextHasValue)

	return true, nil
}

func (s *iterableSubscription[T]) consumeNext() (T, error) {
	// probeHasNext must have already populated cachedNext.
	v := s.cachedNext
	var zero T
	s.cachedNext = zero
	atomic.StoreInt32(&s.state, iterNeedsHasNext)

	return v, nil
}

func (s *iterableSubscription[T]) drain() {
	if !s.wip.enter() {
		return
	}

	missed := int32(1)
	for {
		s.drainOnce()

		missed = s.wip.leave(missed)
		if missed == 0 {
			return
		}
	}
}

func (s *iterableSubscription[T]) drainOnce() {
	emitted := int64(0)
	r := s.requested.get()

	for emitted != r {
		if s.cancelled.Load() {
			s.requested.sub(emitted)
			return
		}

		hasNext, err := s.probeHasNext()
		if err != nil {
			s.cancelled.Store(true)
			s.requested.sub(emitted)
			s.downstream.OnError(err)
			return
		}

		if !hasNext {
			s.cancelled.Store(true)
			s.requested.sub(emitted)
			s.downstream.OnComplete()
			return
		}

		v, _ := s.consumeNext()
		if isNullValue(v) {
			s.cancelled.Store(true)
			s.requested.sub(emitted)
			s.downstream.OnError(ErrNullValue)
			return
		}

		if !safeOnNext(s.downstream, v, func(err error) {
			s.cancelled.Store(true)
			s.requested.sub(emitted)
			s.downstream.OnError(err)
		}) {
			return
		}

		emitted++

		if r != Unbounded {
			r = s.requested.get()
		}
	}

	s.requested.sub(emitted)
}
