package rs

// Scheduler moves a unit of work onto another goroutine. ObserveOn is the
// only operator in this package that needs one: it is the boundary where a
// fast producer thread hands elements to a consumer thread that drains them
// at its own pace.
type Scheduler interface {
	// Schedule runs task on a goroutine managed by the scheduler. It
	// returns immediately; task runs asynchronously.
	Schedule(task func())
}

var _ Scheduler = (*goroutineScheduler)(nil)

// goroutineScheduler schedules every task on a brand new goroutine. It
// holds no pool and no queue of its own: ObserveOn already serializes its
// drain loop with a wip counter, so a second layer of queueing here would
// just be redundant bookkeeping.
type goroutineScheduler struct{}

// NewGoroutineScheduler returns a Scheduler that runs every task on its own
// goroutine.
func NewGoroutineScheduler() Scheduler {
	return goroutineScheduler{}
}

func (goroutineScheduler) Schedule(task func()) {
	go task()
}
