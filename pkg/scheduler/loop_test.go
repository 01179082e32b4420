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
package scheduler_test

import (
	"context"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap/zaptest"

	"github.com/united-manufacturing-hub/fleet-reporter/pkg/scheduler"
	"github.com/united-manufacturing-hub/fleet-reporter/pkg/sentry"
)

var _ = Describe("Loop", func() {
	var loop *scheduler.Loop

	BeforeEach(func() {
		sentry.EnableTestMode()
		loop = scheduler.NewLoop(zaptest.NewLogger(GinkgoT()).Sugar())
	})

	AfterEach(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		Expect(loop.Shutdown(ctx)).To(Succeed())
		sentry.DisableTestMode()
	})

	Context("lifecycle", func() {
		It("should not be running before Start", func() {
			Expect(loop.IsRunning()).To(BeFalse())
			_, err := loop.ScheduleRecurring(time.Millisecond, func(context.Context) {}, nil)
			Expect(err).To(MatchError(scheduler.ErrNotRunning))
		})

		It("should reject a second Start", func() {
			Expect(loop.Start(context.Background())).To(Succeed())
			Expect(loop.IsRunning()).To(BeTrue())
			Expect(loop.Start(context.Background())).To(MatchError(scheduler.ErrAlreadyStarted))
		})

		It("should refuse timers after Shutdown", func() {
			Expect(loop.Start(context.Background())).To(Succeed())
			Expect(loop.Shutdown(context.Background())).To(Succeed())

			Expect(loop.IsRunning()).To(BeFalse())
			_, err := loop.ScheduleRecurring(time.Millisecond, func(context.Context) {}, nil)
			Expect(err).To(MatchError(scheduler.ErrClosed))
			Expect(loop.Start(context.Background())).To(MatchError(scheduler.ErrClosed))
		})

		It("should stop running when the parent context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			Expect(loop.Start(ctx)).To(Succeed())
			cancel()
			Expect(loop.IsRunning()).To(BeFalse())
		})

		It("should reject non-positive periods", func() {
			Expect(loop.Start(context.Background())).To(Succeed())
			_, err := loop.ScheduleRecurring(0, func(context.Context) {}, nil)
			Expect(err).To(MatchError(scheduler.ErrInvalidPeriod))
		})
	})

	Context("recurring timers", func() {
		BeforeEach(func() {
			Expect(loop.Start(context.Background())).To(Succeed())
		})

		It("should tick repeatedly until cancelled and then call onCancelled once", func() {
			var ticks, cancels atomic.Int32
			handle, err := loop.ScheduleRecurring(5*time.Millisecond,
				func(context.Context) { ticks.Add(1) },
				func() { cancels.Add(1) })
			Expect(err).NotTo(HaveOccurred())
			Expect(handle).NotTo(BeZero())

			Eventually(ticks.Load).Should(BeNumerically(">=", 3))

			loop.Cancel(handle)
			loop.Cancel(handle)
			Eventually(cancels.Load).Should(Equal(int32(1)))

			seen := ticks.Load()
			Consistently(ticks.Load, 50*time.Millisecond).Should(Equal(seen))
			Consistently(cancels.Load, 50*time.Millisecond).Should(Equal(int32(1)))
		})

		It("should let a running tick finish before onCancelled", func() {
			inTick := make(chan struct{})
			release := make(chan struct{})
			var tickDone, cancelledAfterTick atomic.Bool

			handle, err := loop.ScheduleRecurring(time.Millisecond, func(context.Context) {
				if tickDone.Load() {
					return
				}
				close(inTick)
				<-release
				tickDone.Store(true)
			}, func() {
				cancelledAfterTick.Store(tickDone.Load())
			})
			Expect(err).NotTo(HaveOccurred())

			Eventually(inTick).Should(BeClosed())
			loop.Cancel(handle)
			close(release)

			Eventually(cancelledAfterTick.Load).Should(BeTrue())
		})

		It("should allow cancelling a timer from its own tick", func() {
			var cancels atomic.Int32
			var handle atomic.Uint64
			h, err := loop.ScheduleRecurring(time.Millisecond, func(context.Context) {
				loop.Cancel(scheduler.TimerHandle(handle.Load()))
			}, func() { cancels.Add(1) })
			Expect(err).NotTo(HaveOccurred())
			handle.Store(uint64(h))

			Eventually(cancels.Load).Should(Equal(int32(1)))
		})

		It("should call onCancelled for every timer on Shutdown", func() {
			var cancels atomic.Int32
			for range 3 {
				_, err := loop.ScheduleRecurring(time.Hour, func(context.Context) {}, func() { cancels.Add(1) })
				Expect(err).NotTo(HaveOccurred())
			}

			Expect(loop.Shutdown(context.Background())).To(Succeed())
			Expect(cancels.Load()).To(Equal(int32(3)))
		})

		It("should recover panicking ticks and keep ticking", func() {
			var ticks atomic.Int32
			_, err := loop.ScheduleRecurring(2*time.Millisecond, func(context.Context) {
				if ticks.Add(1) == 1 {
					panic("boom")
				}
			}, nil)
			Expect(err).NotTo(HaveOccurred())

			Eventually(ticks.Load).Should(BeNumerically(">=", 3))
		})

		It("should ignore unknown handles", func() {
			Expect(func() { loop.Cancel(scheduler.TimerHandle(42)) }).NotTo(Panic())
		})
	})
})
