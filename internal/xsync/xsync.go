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

// Package xsync provides the Mutex abstraction shared by the subscriber
// concurrency modes. A real implementation and a no-op implementation share
// the same interface so that call sites pay a uniform cost in shape (one
// Lock/Unlock pair per notification) regardless of whether synchronization
// is actually required.
package xsync

import "sync"

// Mutex is the minimal locking surface a Subscriber needs. TryLock is used
// by the "eventually safe" backpressure mode to drop a notification rather
// than block when the lock is already held.
type Mutex interface {
	Lock()
	Unlock()
	TryLock() bool
}

type realMutex struct {
	mu sync.Mutex
}

// NewMutexWithLock returns a Mutex backed by a real sync.Mutex.
func NewMutexWithLock() Mutex {
	return &realMutex{}
}

func (m *realMutex) Lock()         { m.mu.Lock() }
func (m *realMutex) Unlock()       { m.mu.Unlock() }
func (m *realMutex) TryLock() bool { return m.mu.TryLock() }

type noopMutex struct{}

// NewMutexWithoutLock returns a Mutex whose methods are no-ops. It exists so
// that unsafe, single-producer call sites keep the exact same call shape as
// the safe ones, which keeps the subscriber implementation branch-free at
// the call site and makes the cost of synchronization easy to benchmark.
func NewMutexWithoutLock() Mutex {
	return noopMutex{}
}

func (noopMutex) Lock()         {}
func (noopMutex) Unlock()       {}
func (noopMutex) TryLock() bool { return true }
