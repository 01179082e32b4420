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
package defender

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/united-manufacturing-hub/fleet-reporter/pkg/report"
)

// cycle holds the state shared by the sample timer and the report timer of one task.
// The two timers tick on different goroutines, mu serializes them.
type cycle struct {
	mu sync.Mutex

	samples []report.ConnectionSample

	baseline     report.NetworkStats
	haveBaseline bool

	lastReportID uint64
	now          func() time.Time
}

func newCycle() *cycle {
	return &cycle{now: time.Now}
}

// collect takes one sample. The first call also records the traffic counter baseline, so the
// first report covers the traffic since the first tick.
func (c *cycle) collect(ctx context.Context, s Sampler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.collectLocked(ctx, s)
}

func (c *cycle) collectLocked(ctx context.Context, s Sampler) error {
	if !c.haveBaseline {
		stats, err := s.NetworkStats(ctx)
		if err != nil {
			return fmt.Errorf("network stats: %w", err)
		}
		c.baseline = stats
		c.haveBaseline = true
	}

	sample, err := s.Sample(ctx)
	if err != nil {
		return fmt.Errorf("connections: %w", err)
	}

	c.samples = append(c.samples, sample)

	return nil
}

// assemble builds the next report from the samples collected since the previous one and resets
// them. When no sample was collected in between, one is taken first so a report always carries
// connection data. sampled reports whether assemble took that sample itself.
func (c *cycle) assemble(ctx context.Context, s Sampler) (r *report.Report, sampled bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.samples) == 0 {
		if err := c.collectLocked(ctx, s); err != nil {
			return nil, false, err
		}
		sampled = true
	}

	stats, err := s.NetworkStats(ctx)
	if err != nil {
		return nil, sampled, fmt.Errorf("network stats: %w", err)
	}

	r = report.Assemble(c.nextReportID(), c.samples, stats.Delta(c.baseline))

	c.baseline = stats
	c.samples = nil

	return r, sampled, nil
}

func (c *cycle) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.samples)
}

// nextReportID is the unix timestamp in seconds, bumped when two reports fall into the same second.
func (c *cycle) nextReportID() uint64 {
	id := uint64(c.now().Unix())
	if id <= c.lastReportID {
		id = c.lastReportID + 1
	}
	c.lastReportID = id
	return id
}
