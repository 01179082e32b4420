// Copyright 2025 UMH Systems GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package scheduler

import "errors"

var (
	// ErrAlreadyStarted is returned by Start when called more than once.
	ErrAlreadyStarted = errors.New("scheduler: loop already started")
	// ErrClosed is returned when the loop is shutting down or already stopped.
	ErrClosed = errors.New("scheduler: loop closed")
	// ErrNotRunning is returned when an operation requires a running loop.
	ErrNotRunning = errors.New("scheduler: loop not running")
	// ErrInvalidPeriod is returned by ScheduleRecurring for a period <= 0.
	ErrInvalidPeriod = errors.New("scheduler: invalid period")
	// ErrPanicked indicates a tick or cancel callback panicked (panic is recovered and reported).
	ErrPanicked = errors.New("scheduler: callback panicked")
)
