package rs

import "sync/atomic"

// defaultQueueCapacity backs a queue allocated for a prefetch configured as
// unbounded (or left at zero); an actually unbounded slice cannot be
// materialized, so this is the practical ceiling chosen for that case.
const defaultQueueCapacity = 4096

type observeOnConfig[T any] struct {
	prefetch      int64
	delayError    bool
	queueSupplier QueueSupplier[T]
	hooks         Hooks
}

// ObserveOnOption configures an ObserveOn boundary.
type ObserveOnOption[T any] func(*observeOnConfig[T])

// WithPrefetch sets the size of the hand-off queue and the initial (and
// replenishment) upstream request window. Must be positive; non-positive
// values are treated as unbounded.
func WithPrefetch[T any](n int64) ObserveOnOption[T] {
	return func(cfg *observeOnConfig[T]) {
		cfg.prefetch = n
	}
}

// WithDelayError postpones an upstream error until every value already
// queued ahead of it has been delivered downstream.
func WithDelayError[T any](delay bool) ObserveOnOption[T] {
	return func(cfg *observeOnConfig[T]) {
		cfg.delayError = delay
	}
}

// WithQueueSupplier overrides the queue implementation used when fusion is
// not negotiated with upstream.
func WithQueueSupplier[T any](supplier QueueSupplier[T]) ObserveOnOption[T] {
	return func(cfg *observeOnConfig[T]) {
		cfg.queueSupplier = supplier
	}
}

// WithHooks overrides the unhandled-error/dropped-notification hooks.
func WithHooks[T any](hooks Hooks) ObserveOnOption[T] {
	return func(cfg *observeOnConfig[T]) {
		cfg.hooks = hooks
	}
}

// ObserveOn returns an operator that moves delivery of upstream's elements
// onto scheduler, handing off through a bounded queue (or, when upstream
// supports it, through fusion directly against upstream's own queue). If
// the Subscriber passed to Subscribe implements ConditionalSubscriber,
// OnNext is delivered through TryOnNext instead; rejected values do not
// count against downstream demand, but every polled value, accepted or
// not, counts toward the prefetch replenishment.
func ObserveOn[T any](scheduler Scheduler, opts ...ObserveOnOption[T]) func(Publisher[T]) Publisher[T] {
	cfg := observeOnConfig[T]{
		prefetch:      128,
		queueSupplier: NewChannelQueue[T],
		hooks:         DefaultHooks(),
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	cfg.hooks = cfg.hooks.withDefaults()

	return func(upstream Publisher[T]) Publisher[T] {
		return &observeOnOperator[T]{upstream: upstream, scheduler: scheduler, cfg: cfg}
	}
}

type observeOnOperator[T any] struct {
	upstream  Publisher[T]
	scheduler Scheduler
	cfg       observeOnConfig[T]
}

func (op *observeOnOperator[T]) Subscribe(subscriber Subscriber[T]) {
	s := &observeOnSubscriber[T]{
		downstream: subscriber,
		scheduler:  op.scheduler,
		cfg:        op.cfg,
		limit:      op.cfg.prefetch - op.cfg.prefetch/4,
	}

	if cs, ok := subscriber.(ConditionalSubscriber[T]); ok {
		s.conditional = cs
	}

	op.upstream.Subscribe(s)
}

// pollSource is the common face of Queue and QueueSubscription that the
// drain loop needs; it lets one drainOnce implementation serve the
// allocated-queue path and both fused paths.
type pollSource[T any] interface {
	Poll() (T, bool)
	IsEmpty() bool
	Clear()
}

var (
	_ Subscriber[int] = (*observeOnSubscriber[int])(nil)
	_ Subscription    = (*observeOnSubscriber[int])(nil)
)

type observeOnSubscriber[T any] struct {
	downstream  Subscriber[T]
	conditional ConditionalSubscriber[T]
	scheduler   Scheduler
	cfg         observeOnConfig[T]
	limit       int64

	upstreamSub Subscription
	fusionMode  FusionMode
	fused       QueueSubscription[T]
	queue       Queue[T]

	requested demand
	wip       wip

	// produced/consumed are only ever touched by the drain-loop owner
	// (see the wip idiom), so they need no synchronization of their own.
	produced int64
	consumed int64

	done       atomic.Bool
	cancelled  atomic.Bool
	terminated atomic.Bool
	err        error // written before done.Store(true); read only after done.Load() observes it
}

func (s *observeOnSubscriber[T]) OnSubscribe(subscription Subscription) {
	if !ValidateSubscription(s.upstreamSub, subscription) {
		return
	}

	s.upstreamSub = subscription

	if qs, ok := subscription.(QueueSubscription[T]); ok {
		switch qs.RequestFusion(FusionAny) {
		case FusionSync:
			s.fusionMode = FusionSync
			s.fused = qs
			s.done.Store(true)
		case FusionAsync:
			s.fusionMode = FusionAsync
			s.fused = qs
		}
	}

	if s.fusionMode == FusionNone {
		s.queue = s.cfg.queueSupplier(queueCapacity(s.cfg.prefetch))
	}

	s.downstream.OnSubscribe(s)

	if s.fusionMode != FusionSync {
		if s.cfg.prefetch <= 0 || s.cfg.prefetch == Unbounded {
			subscription.Request(Unbounded)
		} else {
			subscription.Request(s.cfg.prefetch)
		}
	}
}

func queueCapacity(prefetch int64) int {
	if prefetch <= 0 || prefetch == Unbounded || prefetch > defaultQueueCapacity {
		return defaultQueueCapacity
	}

	return int(prefetch)
}

func (s *observeOnSubscriber[T]) OnNext(v T) {
	switch s.fusionMode {
	case FusionSync:
		return // never pushed to in sync fusion; drain loop pulls directly
	case FusionAsync:
		s.scheduleDrain() // wakeup only: the real value already sits in the fused queue
		return
	}

	if s.done.Load() || s.cancelled.Load() {
		return
	}

	if !s.queue.Offer(v) {
		if s.upstreamSub != nil {
			s.upstreamSub.Cancel()
		}
		s.OnError(ErrQueueFull)
		return
	}

	s.scheduleDrain()
}

func (s *observeOnSubscriber[T]) OnError(err error) {
	if s.done.Load() {
		s.cfg.hooks.OnDroppedNotification(ContextOf(s.downstream), err)
		return
	}

	s.err = err
	s.done.Store(true)
	s.scheduleDrain()
}

func (s *observeOnSubscriber[T]) OnComplete() {
	if !s.done.CompareAndSwap(false, true) {
		return
	}

	s.scheduleDrain()
}

func (s *observeOnSubscriber[T]) Request(n int64) {
	if !ValidateRequest(n) {
		if s.upstreamSub != nil {
			s.upstreamSub.Cancel()
		}
		s.OnError(ErrInvalidRequest)
		return
	}

	s.requested.add(n)
	s.scheduleDrain()
}

func (s *observeOnSubscriber[T]) Cancel() {
	if !s.cancelled.CompareAndSwap(false, true) {
		return
	}

	if s.upstreamSub != nil {
		s.upstreamSub.Cancel()
	}

	s.scheduleDrain()
}

func (s *observeOnSubscriber[T]) scheduleDrain() {
	if s.wip.enter() {
		s.scheduler.Schedule(s.runDrainLoop)
	}
}

func (s *observeOnSubscriber[T]) runDrainLoop() {
	missed := int32(1)
	for {
		s.drainOnce()

		missed = s.wip.leave(missed)
		if missed == 0 {
			return
		}
	}
}

func (s *observeOnSubscriber[T]) source() pollSource[T] {
	if s.fusionMode == FusionNone {
		return s.queue
	}

	return s.fused
}

func (s *observeOnSubscriber[T]) drainOnce() {
	src := s.source()
	e := s.produced
	c := s.consumed
	r := s.requested.get()

	for e != r {
		if s.checkTerminated(src) {
			return
		}

		v, ok := src.Poll()
		if !ok {
			break
		}

		accepted := true
		if s.conditional != nil {
			accepted = s.conditional.TryOnNext(v)
		} else if !safeOnNext(s.downstream, v, func(err error) {
			s.cancelled.Store(true)
			if s.upstreamSub != nil {
				s.upstreamSub.Cancel()
			}
			src.Clear()
			s.downstream.OnError(err)
		}) {
			return
		}

		c++
		if accepted {
			e++
		}

		if s.fusionMode != FusionSync && s.limit > 0 && c == s.limit {
			c = 0
			s.upstreamSub.Request(s.limit)
		}
	}

	if e == r {
		s.checkTerminated(src)
	}

	s.produced = e
	s.consumed = c
}

// checkTerminated implements the terminal-check ladder: cancellation first,
// then an eager (non-delayed) error regardless of remaining queued items,
// then completion/error once the source has been fully drained.
func (s *observeOnSubscriber[T]) checkTerminated(src pollSource[T]) bool {
	if s.cancelled.Load() {
		if s.upstreamSub != nil {
			s.upstreamSub.Cancel()
		}

		if src != nil {
			src.Clear()
		}

		return true
	}

	if !s.done.Load() {
		return false
	}

	if !s.cfg.delayError && s.err != nil {
		if s.terminated.CompareAndSwap(false, true) {
			if src != nil {
				src.Clear()
			}

			s.downstream.OnError(s.err)
		}

		return true
	}

	if src == nil || src.IsEmpty() {
		if s.terminated.CompareAndSwap(false, true) {
			if s.err != nil {
				s.downstream.OnError(s.err)
			} else {
				s.downstream.OnComplete()
			}
		}

		return true
	}

	return false
}
