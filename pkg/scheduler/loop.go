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
// Package scheduler provides the execution context that drives report tasks: a Loop owning
// one goroutine per recurring timer.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/fleet-reporter/pkg/sentry"
)

// TimerHandle identifies a recurring timer registered on a Loop. The zero value is never issued.
type TimerHandle uint64

type loopState int

const (
	stateNotStarted loopState = iota
	stateRunning
	stateClosed
)

// Loop runs recurring timers. Ticks of one timer run serially on that timer's goroutine;
// different timers run concurrently.
type Loop struct {
	logger *zap.SugaredLogger

	mu     sync.Mutex
	state  loopState
	ctx    context.Context
	cancel context.CancelFunc
	timers map[TimerHandle]*timer
	nextID TimerHandle

	wg sync.WaitGroup
}

type timer struct {
	handle      TimerHandle
	period      time.Duration
	tick        func(ctx context.Context)
	onCancelled func()

	stop     chan struct{}
	stopOnce sync.Once
}

func (t *timer) requestStop() {
	t.stopOnce.Do(func() { close(t.stop) })
}

// NewLoop creates a loop that is not yet started.
func NewLoop(logger *zap.SugaredLogger) *Loop {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Loop{
		logger: logger,
		timers: make(map[TimerHandle]*timer),
	}
}

// Start makes the loop accept timers. It is not idempotent. Cancelling ctx stops every timer
// like Shutdown does, without waiting.
func (l *Loop) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case stateRunning:
		return ErrAlreadyStarted
	case stateClosed:
		return ErrClosed
	}

	l.ctx, l.cancel = context.WithCancel(ctx)
	l.state = stateRunning
	l.logger.Debugf("Scheduler loop started")

	return nil
}

// IsRunning reports whether the loop accepts new timers.
func (l *Loop) IsRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.state == stateRunning && l.ctx.Err() == nil
}

// ScheduleRecurring registers tick to run every period until the timer is cancelled or the loop
// shuts down. onCancelled (may be nil) runs exactly once on the timer goroutine after the last
// tick returned.
func (l *Loop) ScheduleRecurring(period time.Duration, tick func(ctx context.Context), onCancelled func()) (TimerHandle, error) {
	if period <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidPeriod, period)
	}
	if tick == nil {
		return 0, errors.New("scheduler: tick func is nil")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case stateNotStarted:
		return 0, ErrNotRunning
	case stateClosed:
		return 0, ErrClosed
	}
	if l.ctx.Err() != nil {
		return 0, ErrClosed
	}

	l.nextID++
	t := &timer{
		handle:      l.nextID,
		period:      period,
		tick:        tick,
		onCancelled: onCancelled,
		stop:        make(chan struct{}),
	}
	l.timers[t.handle] = t

	l.wg.Add(1)
	go l.run(t)

	return t.handle, nil
}

// Cancel stops the timer asynchronously. It is idempotent, unknown handles are ignored.
// A tick that is already running finishes before onCancelled is invoked.
func (l *Loop) Cancel(handle TimerHandle) {
	l.mu.Lock()
	t, ok := l.timers[handle]
	l.mu.Unlock()

	if !ok {
		return
	}
	t.requestStop()
}

// Shutdown stops every timer and waits for their goroutines (including onCancelled callbacks)
// to return, or for ctx to be done.
func (l *Loop) Shutdown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	l.mu.Lock()
	switch l.state {
	case stateNotStarted:
		l.state = stateClosed
		l.mu.Unlock()
		return nil
	case stateRunning:
		l.state = stateClosed
		l.cancel()
	}
	l.mu.Unlock()

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		l.logger.Debugf("Scheduler loop stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler: shutdown: %w", ctx.Err())
	}
}

func (l *Loop) run(t *timer) {
	defer l.wg.Done()
	defer l.finish(t)

	ticker := time.NewTicker(t.period)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-l.ctx.Done():
			return
		case <-ticker.C:
			// a stop requested while waiting wins over a tick that became ready at the same time
			select {
			case <-t.stop:
				return
			default:
			}
			l.safeCall(t.handle, "tick", func() { t.tick(l.ctx) })
		}
	}
}

func (l *Loop) finish(t *timer) {
	l.mu.Lock()
	delete(l.timers, t.handle)
	l.mu.Unlock()

	if t.onCancelled != nil {
		l.safeCall(t.handle, "cancel", t.onCancelled)
	}
}

func (l *Loop) safeCall(handle TimerHandle, what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Errorf("Recovered panic in timer %d %s: %v\n%s", handle, what, r, debug.Stack())
			sentry.ReportIssuef(sentry.IssueTypeError, l.logger, "%w: timer %d %s: %v", ErrPanicked, handle, what, r)
		}
	}()
	fn()
}
