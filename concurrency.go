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

// ConcurrencyMode selects how a Subscriber synchronizes concurrent producer
// calls to Next/Error/Complete.
type ConcurrencyMode uint8

const (
	// ConcurrencyModeSafe serializes calls with a real mutex. This is the
	// default and the only mode that is safe with more than one concurrent
	// producer.
	ConcurrencyModeSafe ConcurrencyMode = iota
	// ConcurrencyModeUnsafe performs no synchronization. It is only safe
	// when the caller guarantees a single producer goroutine.
	ConcurrencyModeUnsafe
	// ConcurrencyModeEventuallySafe synchronizes with a real mutex but
	// drops a notification instead of blocking when the lock is held.
	ConcurrencyModeEventuallySafe
	// ConcurrencyModeSingleProducer is the lockless fast path: it trades
	// the mutex for a single atomic status check and is only correct when
	// exactly one goroutine ever calls Next/Error/Complete.
	ConcurrencyModeSingleProducer
)

// Backpressure selects what a Subscriber does when it cannot acquire its
// lock immediately.
type Backpressure uint8

const (
	// BackpressureBlock waits for the lock.
	BackpressureBlock Backpressure = iota
	// BackpressureDrop drops the notification and reports it through
	// OnDroppedNotification instead of waiting for the lock.
	BackpressureDrop
)
