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

import "fmt"

// ObserverError wraps a panic recovered from an Observer callback (Next,
// Error, or Complete). The recovered value is available through
// errors.Unwrap / errors.As; a value that is not already an error is
// converted to one with fmt.Errorf (see recoverValueToError).
type ObserverError struct {
	Cause error
}

func (e *ObserverError) Error() string {
	return fmt.Sprintf("ro: observer callback panicked: %s", e.Cause.Error())
}

func (e *ObserverError) Unwrap() error {
	return e.Cause
}

func newObserverError(cause error) error {
	return &ObserverError{Cause: cause}
}

// UnsubscriptionError wraps a panic recovered from a Teardown callback.
type UnsubscriptionError struct {
	Cause error
}

func (e *UnsubscriptionError) Error() string {
	return fmt.Sprintf("ro: teardown callback panicked: %s", e.Cause.Error())
}

func (e *UnsubscriptionError) Unwrap() error {
	return e.Cause
}

func newUnsubscriptionError(cause error) error {
	return &UnsubscriptionError{Cause: cause}
}

// recoverValueToError normalizes the value returned by recover() into an
// error, wrapping non-error panic values with fmt.Errorf.
func recoverValueToError(v any) error {
	if v == nil {
		return nil
	}

	if err, ok := v.(error); ok {
		return err
	}

	return fmt.Errorf("%v", v)
}
