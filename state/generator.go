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

//go:generate mockgen -source=./generator.go -destination=./generator_mock.go -package=state

// Config holds the generator's tunables, sourced from the controller's
// loaded configuration (see config.Controller).
type Config struct {
	BucketSpaces       []string
	Deriver            Deriver
	DeferredActivation bool

	MinDistributorUpRatio float64
	MinStorageUpRatio     float64

	PrematureCrashLimit uint32

	MaxInitProgressFreezeMillis uint64

	// TreatMissingBucketSpaceAsUnchanged resolves the open question in
	// spec §9: whether a bucket space present on only one side of a
	// similarity comparison counts as changed. cmd/clusterctl always sets it
	// true, which preserves the source's current (possibly accidental)
	// behavior; false, the zero value, requires every configured space to be
	// present on both sides before declaring two bundles similar.
	TreatMissingBucketSpaceAsUnchanged bool
}

// Result is the outcome of one generation attempt: either NoChange, or a
// Candidate bundle at version = previous + 1.
type Result struct {
	Changed   bool
	Candidate models.ClusterStateBundle
}

// NoChange is the zero Result with Changed == false.
var NoChange = Result{}

// Generator merges wanted state, reported state, timestamps and the
// feed-block signal into a new baseline, deciding whether a new bundle
// version is warranted. It is pure with respect to its inputs: given the
// same registry contents, current bundle, clock reading and feed-block
// signal, it always returns the same Result.
type Generator struct {
	cfg Config
	log logger.Logger
}

// NewGenerator creates a Generator bound to cfg.
func NewGenerator(cfg Config) *Generator {
	return &Generator{cfg: cfg, log: logger.GetLogger("State", "Generator")}
}

// Generate runs one tick of the merge policy described in spec §4.4.
func (g *Generator) Generate(reg Registry, current models.ClusterStateBundle, nowMillis uint64,
	feedBlock *models.FeedBlock,
) Result {
	nodes := reg.GetAll()
	nodeStates := make(map[models.NodeID]models.NodeState, len(nodes))

	upDistributors, totalDistributors := 0, 0
	upStorage, totalStorage := 0, 0

	for _, info := range nodes {
		resolved, reason := g.resolveNodeState(info, nowMillis)
		if reason != "" {
			g.log.Info("node state resolved", logger.String("node", info.ID.String()), logger.String("reason", reason))
		}
		nodeStates[info.ID] = resolved

		switch info.ID.Type {
		case models.DistributorNode:
			totalDistributors++
			if resolved.State == models.Up {
				upDistributors++
			}
		case models.StorageNode:
			totalStorage++
			if resolved.State == models.Up {
				upStorage++
			}
		}
	}

	top := models.ClusterUp
	if belowRatio(upDistributors, totalDistributors, g.cfg.MinDistributorUpRatio) ||
		belowRatio(upStorage, totalStorage, g.cfg.MinStorageUpRatio) {
		top = models.ClusterDown
	}

	baselineState := models.NewClusterState(current.Version()+1, top, nodeStates)
	baseline := models.NewAnnotatedClusterState(baselineState, "generated from node reports", nil)

	var candidate models.ClusterStateBundle
	if len(g.cfg.BucketSpaces) == 0 {
		candidate = models.BuildDerived(baseline, nil, feedBlock, g.cfg.DeferredActivation)
	} else {
		candidate = models.BuildWithDeriver(baseline, g.cfg.BucketSpaces, g.cfg.Deriver.Func(), feedBlock, g.cfg.DeferredActivation)
	}

	if g.similar(candidate, current) {
		return NoChange
	}
	return Result{Changed: true, Candidate: candidate}
}

// resolveNodeState applies rules 1-4 of spec §4.4, in the order the spec
// lists them: operator override first, then premature-crash suppression,
// then the init-progress watchdog, then the reported state as a fallback.
// The init-progress bookkeeping on info is still refreshed unconditionally
// so a later tick's watchdog check has an accurate freeze window, even on a
// tick where an earlier rule wins.
func (g *Generator) resolveNodeState(info *models.NodeInfo, nowMillis uint64) (models.NodeState, string) {
	if info.ReportedState.State == models.Initializing {
		if info.ReportedState.InitProgress != info.LastInitProgress {
			info.LastInitProgress = info.ReportedState.InitProgress
			info.LastInitProgressAt = nowMillis
		}
	} else {
		info.LastInitProgress = 0
		info.LastInitProgressAt = nowMillis
	}

	// Rule 1: operator override.
	if info.WantedState.MoreRestrictiveThan(info.ReportedState) {
		return info.WantedState, "operator-override"
	}

	// Rule 2: premature crash suppression.
	if info.PrematureCrashCount > g.cfg.PrematureCrashLimit {
		return models.DownState("premature crash limit exceeded"), "premature-crash-suppression"
	}

	// Rule 3: init progress watchdog.
	if info.ReportedState.State == models.Initializing &&
		g.cfg.MaxInitProgressFreezeMillis > 0 &&
		nowMillis-info.LastInitProgressAt > g.cfg.MaxInitProgressFreezeMillis {
		return models.DownState("init progress frozen"), "init-progress-watchdog"
	}

	// Rule 4: reported state wins.
	return info.ReportedState, ""
}

func belowRatio(up, total int, minRatio float64) bool {
	if total == 0 {
		return false
	}
	return float64(up)/float64(total) < minRatio
}

// similar compares candidate to current honoring
// Config.TreatMissingBucketSpaceAsUnchanged.
func (g *Generator) similar(candidate, current models.ClusterStateBundle) bool {
	if g.cfg.TreatMissingBucketSpaceAsUnchanged {
		return candidate.SimilarTo(current)
	}
	if !candidate.Baseline.Similar(current.Baseline) {
		return false
	}
	if candidate.FeedBlock.Blocked() != current.FeedBlock.Blocked() {
		return false
	}
	if len(candidate.Derived) != len(current.Derived) {
		return false
	}
	for space, state := range candidate.Derived {
		ostate, ok := current.Derived[space]
		if !ok || !state.Similar(ostate) {
			return false
		}
	}
	return true
}
