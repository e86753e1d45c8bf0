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

// Package xerrors centralizes the error-combining helper used when more than
// one teardown finalizer panics during a single Unsubscribe call. It exists
// mostly so call sites do not import "errors" directly and so the join
// behavior can be tuned in one place later.
package xerrors

import "errors"

// Join combines zero or more non-nil errors into one. It is a thin wrapper
// over errors.Join, kept as an indirection point for the rest of the
// codebase.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
