package rs

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain verifies that none of this package's tests leak a goroutine.
// This package is the one place in the module that actually schedules work
// onto other goroutines (ObserveOn's Scheduler), so it is the place a leak
// would actually show up.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
