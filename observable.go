// Copyright 2025 samber.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// https://github.com/samber/ro/blob/main/licenses/LICENSE.apache.md
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ro

import "context"

// Observable represents a push-based, lazy sequence of values. Nothing
// happens until Subscribe or SubscribeWithContext is called; each call
// starts an independent execution.
type Observable[T any] interface {
	Subscribe(destination Observer[T]) Subscription
	SubscribeWithContext(ctx context.Context, destination Observer[T]) Subscription
}

// Subject is both an Observer (values can be pushed into it) and an
// Observable (subscribers can be attached to it). PublishSubject is the
// concrete flavor in this package.
type Subject[T any] interface {
	Observable[T]
	Observer[T]

	AsObservable() Observable[T]
	AsObserver() Observer[T]
}

var _ Observable[int] = (*observableImpl[int])(nil)

type observableImpl[T any] struct {
	subscribeFunc func(ctx context.Context, destination Observer[T]) Teardown
	unsafe        bool
}

// NewObservable creates an Observable from a subscribe function that
// receives the final (possibly panic-capturing) Observer and returns a
// Teardown to run on unsubscription. No context is threaded through
// callbacks.
func NewObservable[T any](subscribeFunc func(destination Observer[T]) Teardown) Observable[T] {
	return NewObservableWithContext(func(_ context.Context, destination Observer[T]) Teardown {
		return subscribeFunc(destination)
	})
}

// NewObservableWithContext creates an Observable from a subscribe function
// that receives the subscription context and the final Observer.
func NewObservableWithContext[T any](subscribeFunc func(ctx context.Context, destination Observer[T]) Teardown) Observable[T] {
	return &observableImpl[T]{subscribeFunc: subscribeFunc}
}

// NewUnsafeObservableWithContext is identical to NewObservableWithContext
// except that the Subscriber wrapping the destination Observer does not
// synchronize concurrent producer calls. Use only when the subscribe
// function is known to call the destination from a single goroutine.
func NewUnsafeObservableWithContext[T any](subscribeFunc func(ctx context.Context, destination Observer[T]) Teardown) Observable[T] {
	return &observableImpl[T]{subscribeFunc: subscribeFunc, unsafe: true}
}

func (o *observableImpl[T]) Subscribe(destination Observer[T]) Subscription {
	return o.SubscribeWithContext(context.Background(), destination)
}

func (o *observableImpl[T]) SubscribeWithContext(ctx context.Context, destination Observer[T]) Subscription {
	var subscriber Subscriber[T]
	if o.unsafe {
		subscriber = NewUnsafeSubscriber(destination)
	} else {
		subscriber = NewSafeSubscriber(destination)
	}

	teardown := o.subscribeFunc(ctx, subscriber)
	subscriber.Add(teardown)

	return subscriber
}
