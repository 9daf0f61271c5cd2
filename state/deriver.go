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

import "github.com/lindb/clustercontroller/models"

const (
	// DefaultBucketSpace is the space whose derived state equals the baseline.
	DefaultBucketSpace = "global"
	// DefaultSpace is the space where nodes with outstanding global-space
	// merges are downgraded to Maintenance.
	DefaultSpace = "default"
)

// Deriver is a pure function mapping a baseline ClusterState to the
// AnnotatedClusterState for one bucket space. It performs no I/O and must be
// deterministic: Derive(s, space).State.Version == s.Version, and
// s1.Similar(s2) implies Derive(s1, space).Similar(Derive(s2, space)) for
// every space.
type Deriver interface {
	Derive(baseline models.ClusterState, bucketSpace string) models.AnnotatedClusterState
	// Func adapts Derive to models.DeriveFunc, so it can be handed to
	// models.BuildWithDeriver without models depending on this package.
	Func() models.DeriveFunc
}

// PendingMergeSet reports, for a given node, whether it has outstanding
// global-space merges. The default deriver consults it to decide whether
// to downgrade a node to Maintenance in the "default" space.
type PendingMergeSet interface {
	HasPendingGlobalMerges(id models.NodeID) bool
}

// defaultDeriver implements the canonical transformation described in
// spec §4.3: the "global" space is the baseline unchanged; the "default"
// space downgrades any node with outstanding global-space merges to
// Maintenance.
type defaultDeriver struct {
	pending PendingMergeSet
}

// NewDeriver creates the canonical StateDeriver. pending may be nil, in
// which case no node is ever considered to have outstanding merges.
func NewDeriver(pending PendingMergeSet) Deriver {
	return &defaultDeriver{pending: pending}
}

func (d *defaultDeriver) Derive(baseline models.ClusterState, bucketSpace string) models.AnnotatedClusterState {
	switch bucketSpace {
	case DefaultBucketSpace:
		return models.NewAnnotatedClusterState(baseline, "global space mirrors baseline", nil)
	case DefaultSpace:
		return d.deriveDefault(baseline)
	default:
		// an unrecognized space falls back to mirroring the baseline;
		// configured bucket-space names are not checked against the known
		// spaces before they reach the deriver.
		return models.NewAnnotatedClusterState(baseline, "unrecognized bucket space mirrors baseline", nil)
	}
}

func (d *defaultDeriver) deriveDefault(baseline models.ClusterState) models.AnnotatedClusterState {
	reasons := map[models.NodeID]string{}
	derived := baseline
	if d.pending != nil {
		for _, id := range baseline.NodeIDs() {
			st, _ := baseline.Get(id)
			if st.State != models.Up {
				continue
			}
			if d.pending.HasPendingGlobalMerges(id) {
				derived = derived.WithNode(id, models.MaintenanceState("outstanding global-space merges"))
				reasons[id] = "outstanding global-space merges"
			}
		}
	}
	return models.NewAnnotatedClusterState(derived, "default space downgrades nodes with pending global merges", reasons)
}

func (d *defaultDeriver) Func() models.DeriveFunc {
	return d.Derive
}
