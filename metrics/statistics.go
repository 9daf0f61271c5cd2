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

// Package metrics holds the controller's own operational counters, modeled
// on the teacher's metrics.MasterStatistics: plain atomic counters rather
// than a registry wrapper, so the rest of the code never pays for an
// interface indirection on the hot tick path.
package metrics

import (
	"time"

	"go.uber.org/atomic"
)

// ConcurrentStatistics tracks a worker pool's lifecycle, mirroring
// internal/concurrent's statistics in the teacher module.
type ConcurrentStatistics struct {
	WorkersAlive       atomic.Int64
	WorkersCreated     atomic.Int64
	WorkersKilled      atomic.Int64
	TasksConsumed      atomic.Int64
	TasksRejected      atomic.Int64
	TasksPanic         atomic.Int64
	TasksWaitingTime   Histogram
	TasksExecutingTime Histogram
}

// NewConcurrentStatistics creates a zero-valued ConcurrentStatistics for the
// named pool.
func NewConcurrentStatistics(_ string) *ConcurrentStatistics {
	return &ConcurrentStatistics{}
}

// Histogram is a minimal duration accumulator; a full deployment would wire
// this into a real histogram exporter, which sits outside this core's scope
// (see spec §1, "metrics sinks" is an external collaborator).
type Histogram struct {
	count atomic.Int64
	sum   atomic.Int64
}

// UpdateDuration records one observed duration.
func (h *Histogram) UpdateDuration(d time.Duration) {
	h.count.Inc()
	h.sum.Add(d.Nanoseconds())
}

// ControllerStatistics tracks the fleet controller loop, modeled on
// metrics.MasterStatistics in the teacher's coordinator package.
type ControllerStatistics struct {
	Ticks               atomic.Int64
	GenerationsChanged  atomic.Int64
	GenerationsNoChange atomic.Int64
	CasConflicts        atomic.Int64
	BundlesPublished    atomic.Int64
	ElectionWins        atomic.Int64
	ElectionLosses      atomic.Int64
	ActivationQuorums   atomic.Int64
	ActivationTimeouts  atomic.Int64
}

// NewControllerStatistics creates a zero-valued ControllerStatistics.
func NewControllerStatistics() *ControllerStatistics {
	return &ControllerStatistics{}
}
