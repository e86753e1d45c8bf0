package rs

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddCap(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	is.Equal(int64(3), AddCap(1, 2))
	is.Equal(int64(Unbounded), AddCap(Unbounded, 1))
	is.Equal(int64(Unbounded), AddCap(1, Unbounded))
	is.Equal(int64(Unbounded), AddCap(math.MaxInt64-1, 2))
}

func TestMultiplyCap(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	is.Equal(int64(6), MultiplyCap(2, 3))
	is.Equal(int64(0), MultiplyCap(0, math.MaxInt64))
	is.Equal(int64(0), MultiplyCap(math.MaxInt64, 0))
	is.Equal(int64(Unbounded), MultiplyCap(Unbounded, 5))
	is.Equal(int64(Unbounded), MultiplyCap(math.MaxInt64/2, 3))
}

func TestDemandAddGetSub(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	var d demand

	prev := d.add(5)
	is.Equal(int64(0), prev)
	is.Equal(int64(5), d.get())

	prev = d.add(3)
	is.Equal(int64(5), prev)
	is.Equal(int64(8), d.get())

	d.sub(3)
	is.Equal(int64(5), d.get())

	d.sub(100)
	is.Equal(int64(0), d.get())
}

func TestDemandSubLeavesUnboundedAlone(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	var d demand
	d.add(Unbounded)
	d.sub(1000)

	is.Equal(int64(Unbounded), d.get())
}

func TestWipSingleEntrant(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	var w wip

	is.True(w.enter())

	missed := w.leave(1)
	is.Equal(int32(0), missed)
}

func TestWipReentrantMissCount(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	var w wip

	is.True(w.enter())
	// A second caller arrives mid-pass: it does not win ownership, but its
	// arrival is recorded so the owner knows to run another pass.
	is.False(w.enter())
	is.False(w.enter())

	// Owner's first pass accounted for 1; two more callers arrived, so
	// leave(1) should report 2 outstanding passes left to run.
	missed := w.leave(1)
	is.Equal(int32(2), missed)

	missed = w.leave(missed)
	is.Equal(int32(0), missed)
}
