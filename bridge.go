package ro

import (
	"context"

	"github.com/zer0Id0l/reactive-streams-commons/rs"
)

// FromPublisher adapts a backpressured rs.Publisher into a push-based
// Observable. Subscribing issues an unbounded request immediately, so the
// publisher is free to emit as fast as it can; every value it produces is
// pushed to the destination Observer the same way any other Observable in
// this package does, through Next/Error/Complete.
func FromPublisher[T any](publisher rs.Publisher[T]) Observable[T] {
	return NewObservableWithContext(func(ctx context.Context, destination Observer[T]) Teardown {
		sink := &publisherSink[T]{ctx: ctx, destination: destination}
		publisher.Subscribe(sink)

		return func() {
			if sink.subscription != nil {
				sink.subscription.Cancel()
			}
		}
	})
}

// publisherSink is the rs.Subscriber that sits between an rs.Publisher and
// the Observer a caller passed to FromPublisher.
type publisherSink[T any] struct {
	ctx          context.Context
	destination  Observer[T]
	subscription rs.Subscription
}

func (s *publisherSink[T]) OnSubscribe(subscription rs.Subscription) {
	s.subscription = subscription
	subscription.Request(rs.Unbounded)
}

func (s *publisherSink[T]) OnNext(value T) {
	s.destination.NextWithContext(s.ctx, value)
}

func (s *publisherSink[T]) OnError(err error) {
	s.destination.ErrorWithContext(s.ctx, err)
}

func (s *publisherSink[T]) OnComplete() {
	s.destination.CompleteWithContext(s.ctx)
}

// MulticastPublisher subscribes to publisher exactly once, with unbounded
// demand, and republishes every signal it produces through a PublishSubject.
// Where FromPublisher gives each caller its own independent Observable
// subscription (and, for a cold rs.Publisher like an iterable source, its
// own independent walk from the start), MulticastPublisher shares a single
// upstream subscription across however many Observers subsequently
// subscribe to the returned Subject — late subscribers only see values
// published after they join, same as NewPublishSubject's own contract.
func MulticastPublisher[T any](publisher rs.Publisher[T]) Subject[T] {
	subject := NewPublishSubject[T]()
	publisher.Subscribe(&publisherSink[T]{ctx: context.Background(), destination: subject.AsObserver()})

	return subject
}

// RSHooks builds an rs.Hooks whose callbacks route to this package's own
// OnUnhandledError/OnDroppedNotification, so a dropped value or a late error
// surfaces through the same sideline as the rest of this package's
// operators. Nothing in this package installs it; among the rs operators
// only ObserveOn accepts Hooks (rs.WithHooks). A dropped value that is not
// of type T is discarded.
func RSHooks[T any]() rs.Hooks {
	return rs.Hooks{
		OnUnhandledError: func(ctx context.Context, err error) {
			OnUnhandledError(ctx, err)
		},
		OnDroppedNotification: func(ctx context.Context, value any) {
			v, ok := value.(T)
			if !ok {
				return
			}

			OnDroppedNotification(ctx, NewNotificationNext(v))
		},
	}
}
