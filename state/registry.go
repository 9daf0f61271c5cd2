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

package state

import (
	"github.com/lindb/common/pkg/logger"

	"github.com/lindb/clustercontroller/models"
)

//go:generate mockgen -source=./registry.go -destination=./registry_mock.go -package=state

// premature-crash window: an Up->Down transition inside this many millis of
// the node's StartTimestamp counts as a premature crash.
const prematureCrashWindowMillis = 30_000

// Registry is the single source of truth the generator reads: the set of
// known nodes and their reported/wanted state. It is owned exclusively by
// the controller thread; no method here takes a lock because nothing else
// is permitted to call it concurrently.
type Registry interface {
	// GetAll returns every NodeInfo in canonical (Type, Index) order.
	GetAll() []*models.NodeInfo
	// Get returns the NodeInfo for id, or nil if id is not in config.
	Get(id models.NodeID) *models.NodeInfo
	// Add registers a node first observed in configuration at nowMillis.
	Add(id models.NodeID, addr string, nowMillis uint64)
	// Remove drops a node, e.g. on configuration change.
	Remove(id models.NodeID)
	// SetWanted records operator intent for id.
	SetWanted(id models.NodeID, wanted models.NodeState)
	// RecordReport folds a probe outcome into id's NodeInfo: updates
	// ReportedState, LastProbeRTTMillis, and the premature-crash counter.
	RecordReport(id models.NodeID, reported models.NodeState, rttMillis int64, nowMillis uint64)
}

type registry struct {
	nodes map[models.NodeID]*models.NodeInfo
	log   logger.Logger
}

// NewRegistry creates an empty node registry.
func NewRegistry() Registry {
	return &registry{
		nodes: make(map[models.NodeID]*models.NodeInfo),
		log:   logger.GetLogger("State", "Registry"),
	}
}

func (r *registry) GetAll() []*models.NodeInfo {
	ids := make([]models.NodeID, 0, len(r.nodes))
	for id := range r.nodes {
		ids = append(ids, id)
	}
	out := make([]*models.NodeInfo, 0, len(ids))
	for _, id := range models.SortNodeIDs(ids) {
		out = append(out, r.nodes[id])
	}
	return out
}

func (r *registry) Get(id models.NodeID) *models.NodeInfo {
	return r.nodes[id]
}

func (r *registry) Add(id models.NodeID, addr string, nowMillis uint64) {
	if _, ok := r.nodes[id]; ok {
		r.log.Warn("node already registered, ignoring duplicate add", logger.String("node", id.String()))
		return
	}
	r.nodes[id] = models.NewNodeInfo(id, addr, nowMillis)
}

func (r *registry) Remove(id models.NodeID) {
	delete(r.nodes, id)
}

func (r *registry) SetWanted(id models.NodeID, wanted models.NodeState) {
	info := r.nodes[id]
	if info == nil {
		return
	}
	info.WantedState = wanted
}

func (r *registry) RecordReport(id models.NodeID, reported models.NodeState, rttMillis int64, nowMillis uint64) {
	info := r.nodes[id]
	if info == nil {
		return
	}

	wasUp := info.ReportedState.State == models.Up
	goingDown := reported.State == models.Down
	if wasUp && goingDown && nowMillis-info.StartTimestamp < prematureCrashWindowMillis {
		info.PrematureCrashCount++
		r.log.Warn("premature crash detected", logger.String("node", id.String()),
			logger.Int("count", int(info.PrematureCrashCount)))
	}
	if reported.State == models.Up && !wasUp {
		// a fresh start time for the next crash window.
		info.StartTimestamp = nowMillis
	}
	if reported.State == models.Up && wasUp && nowMillis-info.StartTimestamp >= prematureCrashWindowMillis {
		// Up for a whole crash window: the node is stable again, so the
		// flap counter resets.
		info.PrematureCrashCount = 0
	}

	info.ReportedState = reported
	info.LastProbeRTTMillis = rttMillis
}
