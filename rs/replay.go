package rs

import (
	"context"
	"sync"
	"sync/atomic"
)

// replayBuffer is the storage a ReplayProcessor appends to and every
// subscriber cursor replays from. NewReplayProcessor picks the unbounded or
// bounded shape at construction; both publish their terminal state the same
// way (terminate/isDone/terminalError) so ReplaySubscription's drain logic
// does not need to know which one it is walking.
type replayBuffer[T any] interface {
	push(v T)
	terminate(err error)
	isDone() bool
	terminalError() error
	newCursor() replayCursor[T]
}

// replayCursor is one subscriber's private walk over a shared replayBuffer.
type replayCursor[T any] interface {
	// replay emits up to limit values (stopping early if emit returns
	// false, e.g. because the subscriber cancelled mid-batch) and returns
	// how many were actually emitted.
	replay(limit int64, emit func(T) bool) int64
	// isEmpty reports whether the cursor has caught up to everything
	// currently published.
	isEmpty() bool
	poll() (T, bool)
}

const replayBatchSize = 128

// replayNode is one link of the unbounded buffer's array chain: a batch of
// values plus a pointer to the next batch, linked in once the batch fills.
type replayNode[T any] struct {
	values [replayBatchSize]T
	next   atomic.Pointer[replayNode[T]]
}

// unboundedReplayBuffer retains every value ever pushed, in a chain of
// fixed-size array nodes. size is published last (after the value is
// already written into its slot) so a concurrent reader that observes a
// new size always sees a fully written value underneath it.
type unboundedReplayBuffer[T any] struct {
	head *replayNode[T]

	mu        sync.Mutex
	tail      *replayNode[T]
	tailIndex int

	size atomic.Int64
	done atomic.Bool
	err  error
}

func newUnboundedReplayBuffer[T any]() *unboundedReplayBuffer[T] {
	root := &replayNode[T]{}
	return &unboundedReplayBuffer[T]{head: root, tail: root}
}

func (b *unboundedReplayBuffer[T]) push(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.tailIndex == replayBatchSize {
		next := &replayNode[T]{}
		b.tail.next.Store(next)
		b.tail = next
		b.tailIndex = 0
	}

	b.tail.values[b.tailIndex] = v
	b.tailIndex++
	b.size.Add(1)
}

func (b *unboundedReplayBuffer[T]) terminate(err error) {
	b.mu.Lock()
	b.err = err
	b.mu.Unlock()

	b.done.Store(true)
}

func (b *unboundedReplayBuffer[T]) isDone() bool      { return b.done.Load() }
func (b *unboundedReplayBuffer[T]) terminalError() error { return b.err }

func (b *unboundedReplayBuffer[T]) newCursor() replayCursor[T] {
	return &unboundedCursor[T]{buf: b, node: b.head}
}

type unboundedCursor[T any] struct {
	buf         *unboundedReplayBuffer[T]
	node        *replayNode[T]
	nodeIndex   int
	globalIndex int64
}

func (c *unboundedCursor[T]) replay(limit int64, emit func(T) bool) int64 {
	size := c.buf.size.Load()
	emitted := int64(0)

	for emitted < limit && c.globalIndex < size {
		if c.nodeIndex == replayBatchSize {
			c.node = c.node.next.Load()
			c.nodeIndex = 0
		}

		v := c.node.values[c.nodeIndex]
		if !emit(v) {
			break
		}

		c.nodeIndex++
		c.globalIndex++
		emitted++
	}

	return emitted
}

func (c *unboundedCursor[T]) isEmpty() bool {
	return c.globalIndex >= c.buf.size.Load()
}

func (c *unboundedCursor[T]) poll() (value T, ok bool) {
	if c.isEmpty() {
		return value, false
	}

	c.replay(1, func(v T) bool {
		value = v
		return true
	})

	return value, true
}

// replayListNode is one value of the bounded buffer's singly linked list.
// Nodes are never mutated after their next link is set, so a subscriber
// cursor that still holds a reference to a node the writer has since
// evicted from head keeps working correctly: it just follows next forward,
// same as any other cursor.
type replayListNode[T any] struct {
	value T
	next  atomic.Pointer[replayListNode[T]]
}

// boundedReplayBuffer retains at most limit values; pushing past the limit
// drops the oldest by advancing head, without touching any node a cursor
// might already be parked on.
type boundedReplayBuffer[T any] struct {
	limit int

	mu    sync.Mutex
	tail  *replayListNode[T]
	count int

	head atomic.Pointer[replayListNode[T]]
	size atomic.Int64
	done atomic.Bool
	err  error
}

func newBoundedReplayBuffer[T any](limit int) *boundedReplayBuffer[T] {
	if limit <= 0 {
		limit = 1
	}

	return &boundedReplayBuffer[T]{limit: limit}
}

func (b *boundedReplayBuffer[T]) push(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := &replayListNode[T]{value: v}

	if b.tail == nil {
		b.tail = n
		b.head.Store(n)
		b.count = 1
	} else {
		b.tail.next.Store(n)
		b.tail = n

		if b.count < b.limit {
			b.count++
		} else {
			b.head.Store(b.head.Load().next.Load())
		}
	}

	b.size.Add(1)
}

func (b *boundedReplayBuffer[T]) terminate(err error) {
	b.mu.Lock()
	b.err = err
	b.mu.Unlock()

	b.done.Store(true)
}

func (b *boundedReplayBuffer[T]) isDone() bool      { return b.done.Load() }
func (b *boundedReplayBuffer[T]) terminalError() error { return b.err }

func (b *boundedReplayBuffer[T]) newCursor() replayCursor[T] {
	return &boundedCursor[T]{buf: b}
}

// next returns the node following last, or the current head if last is
// nil (cursor has not emitted anything yet).
func (b *boundedReplayBuffer[T]) next(last *replayListNode[T]) *replayListNode[T] {
	if last == nil {
		return b.head.Load()
	}

	return last.next.Load()
}

type boundedCursor[T any] struct {
	buf  *boundedReplayBuffer[T]
	last *replayListNode[T]
}

func (c *boundedCursor[T]) replay(limit int64, emit func(T) bool) int64 {
	emitted := int64(0)

	for emitted < limit {
		next := c.buf.next(c.last)
		if next == nil {
			break
		}

		if !emit(next.value) {
			break
		}

		c.last = next
		emitted++
	}

	return emitted
}

func (c *boundedCursor[T]) isEmpty() bool {
	return c.buf.next(c.last) == nil
}

func (c *boundedCursor[T]) poll() (value T, ok bool) {
	emitted := c.replay(1, func(v T) bool {
		value = v
		return true
	})

	return value, emitted == 1
}

// replayHost is what a replaySubscription needs from whatever owns the
// buffer it is replaying: a way to read it and a way to drop out of
// whatever bookkeeping the host keeps of its live subscriptions. Both
// ReplayProcessor (multicast, many subscribers) and Window's unicast inner
// processors (one subscriber each) implement it, which is how the latter
// reuses replaySubscription's drain logic wholesale instead of duplicating
// it.
type replayHost[T any] interface {
	buffer() replayBuffer[T]
	remove(*replaySubscription[T])
}

// ReplayProcessor is both a Subscriber (it is usually subscribed to one
// upstream Publisher) and a Publisher (any number of downstream Subscribers
// may subscribe to it, each getting the full buffered history replayed
// before joining the live tail).
type ReplayProcessor[T any] struct {
	buf   replayBuffer[T]
	hooks Hooks

	subscribers atomic.Pointer[[]*replaySubscription[T]]
	terminated  atomic.Bool

	upstreamSub Subscription
}

func (p *ReplayProcessor[T]) buffer() replayBuffer[T] { return p.buf }

var (
	_ Subscriber[int] = (*ReplayProcessor[int])(nil)
	_ Publisher[int]  = (*ReplayProcessor[int])(nil)
)

// NewReplayProcessor returns a ReplayProcessor. A bufferSize <= 0 retains
// every value ever published (the unbounded linked-array buffer); a
// positive bufferSize retains only the last bufferSize values (the bounded
// linked-list buffer).
func NewReplayProcessor[T any](bufferSize int) *ReplayProcessor[T] {
	var buf replayBuffer[T]
	if bufferSize <= 0 {
		buf = newUnboundedReplayBuffer[T]()
	} else {
		buf = newBoundedReplayBuffer[T](bufferSize)
	}

	p := &ReplayProcessor[T]{buf: buf, hooks: DefaultHooks()}

	empty := make([]*replaySubscription[T], 0)
	p.subscribers.Store(&empty)

	return p
}

func (p *ReplayProcessor[T]) OnSubscribe(subscription Subscription) {
	if !ValidateSubscription(p.upstreamSub, subscription) {
		return
	}

	p.upstreamSub = subscription
	subscription.Request(Unbounded)
}

func (p *ReplayProcessor[T]) OnNext(v T) {
	if p.terminated.Load() {
		p.hooks.OnDroppedNotification(context.Background(), v)
		return
	}

	p.buf.push(v)

	for _, sub := range *p.subscribers.Load() {
		sub.drain()
	}
}

func (p *ReplayProcessor[T]) OnError(err error) {
	if !p.terminated.CompareAndSwap(false, true) {
		return
	}

	p.buf.terminate(err)

	for _, sub := range *p.subscribers.Swap(&[]*replaySubscription[T]{}) {
		sub.drain()
	}
}

func (p *ReplayProcessor[T]) OnComplete() {
	if !p.terminated.CompareAndSwap(false, true) {
		return
	}

	p.buf.terminate(nil)

	for _, sub := range *p.subscribers.Swap(&[]*replaySubscription[T]{}) {
		sub.drain()
	}
}

// Subscribe implements Publisher.
func (p *ReplayProcessor[T]) Subscribe(subscriber Subscriber[T]) {
	sub := &replaySubscription[T]{
		processor:  p,
		downstream: subscriber,
		cursor:     p.buf.newCursor(),
	}

	subscriber.OnSubscribe(sub)

	if !p.tryAdd(sub) {
		// The subscriber array is already TERMINATED: there will be no
		// further OnNext/OnError/OnComplete to trigger a drain, so this
		// subscription must run one itself against the now-frozen buffer.
		sub.drain()
		return
	}

	if sub.cancelled.Load() {
		p.remove(sub)
	}
}

func (p *ReplayProcessor[T]) tryAdd(sub *replaySubscription[T]) bool {
	if p.terminated.Load() {
		return false
	}

	for {
		cur := p.subscribers.Load()
		old := *cur
		next := make([]*replaySubscription[T], len(old)+1)
		copy(next, old)
		next[len(old)] = sub

		if p.subscribers.CompareAndSwap(cur, &next) {
			return true
		}

		if p.terminated.Load() {
			return false
		}
	}
}

func (p *ReplayProcessor[T]) remove(sub *replaySubscription[T]) {
	if p.terminated.Load() {
		return
	}

	for {
		cur := p.subscribers.Load()
		old := *cur

		idx := -1
		for i, s := range old {
			if s == sub {
				idx = i
				break
			}
		}

		if idx < 0 {
			return
		}

		next := make([]*replaySubscription[T], 0, len(old)-1)
		next = append(next, old[:idx]...)
		next = append(next, old[idx+1:]...)

		if p.subscribers.CompareAndSwap(cur, &next) {
			return
		}

		if p.terminated.Load() {
			return
		}
	}
}

var _ QueueSubscription[int] = (*replaySubscription[int])(nil)

// replaySubscription is the Subscription (and, once fusion is negotiated,
// QueueSubscription) handed to one downstream subscriber of a
// ReplayProcessor.
type replaySubscription[T any] struct {
	processor  replayHost[T]
	downstream Subscriber[T]
	cursor     replayCursor[T]

	requested demand
	wip       wip

	fusionMode FusionMode
	cancelled  atomic.Bool
	terminated atomic.Bool
}

func (rs *replaySubscription[T]) Request(n int64) {
	if !ValidateRequest(n) {
		if rs.cancelled.CompareAndSwap(false, true) {
			rs.processor.remove(rs)
			rs.downstream.OnError(ErrInvalidRequest)
		}
		return
	}

	rs.requested.add(n)
	rs.drain()
}

func (rs *replaySubscription[T]) Cancel() {
	if !rs.cancelled.CompareAndSwap(false, true) {
		return
	}

	rs.processor.remove(rs)

	if rs.wip.enter() {
		rs.cursor = nil
		rs.wip.leave(1)
	}
}

func (rs *replaySubscription[T]) RequestFusion(mode FusionMode) FusionMode {
	if mode == FusionAsync || mode == FusionAny {
		rs.fusionMode = FusionAsync
		return FusionAsync
	}

	return FusionNone
}

func (rs *replaySubscription[T]) Poll() (value T, ok bool) {
	if rs.cursor == nil {
		return value, false
	}

	return rs.cursor.poll()
}

func (rs *replaySubscription[T]) IsEmpty() bool {
	return rs.cursor == nil || rs.cursor.isEmpty()
}

func (rs *replaySubscription[T]) Clear() {
	rs.cursor = nil
}

func (rs *replaySubscription[T]) Size() int {
	return 0
}

func (rs *replaySubscription[T]) drain() {
	if !rs.wip.enter() {
		return
	}

	missed := int32(1)
	for {
		rs.drainOnce()

		missed = rs.wip.leave(missed)
		if missed == 0 {
			return
		}
	}
}

func (rs *replaySubscription[T]) drainOnce() {
	if rs.cancelled.Load() || rs.cursor == nil {
		return
	}

	if rs.fusionMode == FusionAsync {
		rs.drainFused()
		return
	}

	r := rs.requested.get()
	if r > 0 {
		emitted := rs.cursor.replay(r, func(v T) bool {
			if rs.cancelled.Load() {
				return false
			}

			return safeOnNext(rs.downstream, v, func(err error) {
				rs.cancelled.Store(true)
				rs.processor.remove(rs)
				rs.downstream.OnError(err)
			})
		})

		if emitted > 0 && r != Unbounded {
			rs.requested.sub(emitted)
		}
	}

	rs.checkTerminatedAndEmpty()
}

func (rs *replaySubscription[T]) drainFused() {
	if !rs.cursor.isEmpty() {
		var zero T
		rs.downstream.OnNext(zero) // fused wakeup: real value is pulled via Poll
	}

	rs.checkTerminatedAndEmpty()
}

func (rs *replaySubscription[T]) checkTerminatedAndEmpty() {
	if rs.cursor != nil && rs.processor.buffer().isDone() && rs.cursor.isEmpty() {
		rs.emitTerminal()
	}
}

func (rs *replaySubscription[T]) emitTerminal() {
	if !rs.terminated.CompareAndSwap(false, true) {
		return
	}

	if err := rs.processor.buffer().terminalError(); err != nil {
		rs.downstream.OnError(err)
	} else {
		rs.downstream.OnComplete()
	}
}
