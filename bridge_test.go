package ro

import (
	"testing"

	"github.com/zer0Id0l/reactive-streams-commons/rs"
)

func TestFromPublisher_pushesEveryValueThenCompletes(t *testing.T) {
	t.Parallel()

	var values []int
	completed := false

	FromPublisher[int](rs.FromSlice([]int{1, 2, 3})).Subscribe(NewObserver[int](
		func(v int) { values = append(values, v) },
		func(err error) { t.Fatalf("unexpected error: %v", err) },
		func() { completed = true },
	))

	if len(values) != 3 || values[0] != 1 || values[1] != 2 || values[2] != 3 {
		t.Fatalf("expected [1 2 3], got %v", values)
	}

	if !completed {
		t.Fatalf("expected FromPublisher to complete once the rs.Publisher does")
	}
}

func TestMulticastPublisher_lateObserversSeeNoEarlierValues(t *testing.T) {
	t.Parallel()

	var a, b []int

	subject := MulticastPublisher[int](rs.FromSlice([]int{1, 2, 3}))

	subject.AsObservable().Subscribe(NewObserver[int](
		func(v int) { a = append(a, v) },
		func(err error) { t.Fatalf("unexpected error: %v", err) },
		func() {},
	))
	subject.AsObservable().Subscribe(NewObserver[int](
		func(v int) { b = append(b, v) },
		func(err error) { t.Fatalf("unexpected error: %v", err) },
		func() {},
	))

	if len(a) != 0 || len(b) != 0 {
		t.Fatalf("late subscribers to a PublishSubject must not see values published before they joined, got a=%v b=%v", a, b)
	}
}

func TestFromPublisher_intoPublishSubjectReachesEarlySubscriber(t *testing.T) {
	t.Parallel()

	var got []int
	completed := false

	// FromSlice drains synchronously on Subscribe (unbounded demand), so a
	// subscriber must already be attached to the subject before upstream is
	// subscribed. MulticastPublisher subscribes upstream before it returns
	// its subject, so this test wires FromPublisher into a PublishSubject by
	// hand instead.
	subject := NewPublishSubject[int]()
	subject.AsObservable().Subscribe(NewObserver[int](
		func(v int) { got = append(got, v) },
		func(err error) { t.Fatalf("unexpected error: %v", err) },
		func() { completed = true },
	))

	FromPublisher[int](rs.FromSlice([]int{1, 2, 3})).Subscribe(subject.AsObserver())

	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("expected [1 2 3], got %v", got)
	}

	if !completed {
		t.Fatalf("expected the subject to complete once upstream does")
	}
}
