// Licensed to LinDB under one or more contributor
// license agreements. See the NOTICE file distributed with
// this work for additional information regarding copyright
// ownership. LinDB licenses this file to you under
// the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConcurrentStatistics_Counters(t *testing.T) {
	stats := NewConcurrentStatistics("test")
	stats.WorkersAlive.Inc()
	stats.TasksConsumed.Add(3)

	assert.Equal(t, int64(1), stats.WorkersAlive.Load())
	assert.Equal(t, int64(3), stats.TasksConsumed.Load())
}

func TestHistogram_UpdateDuration(t *testing.T) {
	var h Histogram
	h.UpdateDuration(10 * time.Millisecond)
	h.UpdateDuration(20 * time.Millisecond)

	assert.Equal(t, int64(2), h.count.Load())
	assert.Equal(t, (10 * time.Millisecond).Nanoseconds()+(20*time.Millisecond).Nanoseconds(), h.sum.Load())
}

func TestNewControllerStatistics(t *testing.T) {
	stats := NewControllerStatistics()
	stats.Ticks.Inc()
	stats.ElectionWins.Inc()
	assert.Equal(t, int64(1), stats.Ticks.Load())
	assert.Equal(t, int64(1), stats.ElectionWins.Load())
	assert.Equal(t, int64(0), stats.CasConflicts.Load())
}
