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

package models

import "errors"

// ErrInvalidBuilderUsage is returned by the low-level builder escape hatch
// when both an explicit derived-state map and a (bucket spaces, deriver)
// pair are supplied; the two idiomatic constructors below make this
// combination unreachable in normal use.
var ErrInvalidBuilderUsage = errors.New("clustercontroller: bundle builder given both explicit derived states and a deriver")

// DeriveFunc is a pure function mapping a baseline ClusterState to the
// AnnotatedClusterState for one bucket space. Implementations live in the
// state package; models only depends on the function shape, to keep the
// dependency pointing the natural direction (state depends on models, not
// the reverse).
type DeriveFunc func(baseline ClusterState, bucketSpace string) AnnotatedClusterState

// ClusterStateBundle is the immutable, published unit of cluster intent:
// a baseline view plus per-bucket-space derived views, a feed-block signal
// and the deferred-activation flag. Version is the version of
// Baseline.State.
type ClusterStateBundle struct {
	Baseline           AnnotatedClusterState
	Derived            map[string]AnnotatedClusterState
	FeedBlock          *FeedBlock
	DeferredActivation bool
}

// Version returns the version of the baseline ClusterState, which is the
// version of the whole bundle.
func (b ClusterStateBundle) Version() uint64 { return b.Baseline.State.Version }

// BuildDerived constructs a bundle from an explicit derived-state map. Pass
// a nil or empty map for a baseline-only bundle.
func BuildDerived(baseline AnnotatedClusterState, derived map[string]AnnotatedClusterState,
	feedBlock *FeedBlock, deferredActivation bool,
) ClusterStateBundle {
	bundle, err := newBundle(baseline, derived, nil, nil, feedBlock, deferredActivation)
	if err != nil {
		// unreachable: this constructor never sets bucketSpaces/deriver.
		panic(err)
	}
	return bundle
}

// BuildWithDeriver constructs a bundle by deriving one AnnotatedClusterState
// per bucket space from the baseline via deriver. An empty bucketSpaces
// yields a baseline-only bundle, same as BuildDerived with a nil map.
func BuildWithDeriver(baseline AnnotatedClusterState, bucketSpaces []string, deriver DeriveFunc,
	feedBlock *FeedBlock, deferredActivation bool,
) ClusterStateBundle {
	bundle, err := newBundle(baseline, nil, bucketSpaces, deriver, feedBlock, deferredActivation)
	if err != nil {
		panic(err)
	}
	return bundle
}

// newBundle is the shared constructor behind BuildDerived and
// BuildWithDeriver. It returns ErrInvalidBuilderUsage when given both an
// explicit derived map and bucket spaces or a deriver; neither exported
// constructor passes both. Stored envelopes are decoded through BuildDerived.
func newBundle(baseline AnnotatedClusterState, explicitDerived map[string]AnnotatedClusterState,
	bucketSpaces []string, deriver DeriveFunc, feedBlock *FeedBlock, deferredActivation bool,
) (ClusterStateBundle, error) {
	if explicitDerived != nil && (len(bucketSpaces) > 0 || deriver != nil) {
		return ClusterStateBundle{}, ErrInvalidBuilderUsage
	}

	derived := map[string]AnnotatedClusterState{}
	switch {
	case explicitDerived != nil:
		for space, state := range explicitDerived {
			derived[space] = state.WithVersion(baseline.State.Version)
		}
	case len(bucketSpaces) > 0 && deriver != nil:
		for _, space := range bucketSpaces {
			derived[space] = deriver(baseline.State, space).WithVersion(baseline.State.Version)
		}
	}

	return ClusterStateBundle{
		Baseline:           baseline,
		Derived:            derived,
		FeedBlock:          feedBlock,
		DeferredActivation: deferredActivation,
	}, nil
}

// CloneWithMapper deep-clones the bundle, applying f to the baseline and to
// every derived ClusterState. FeedBlock and DeferredActivation are preserved
// unchanged.
func (b ClusterStateBundle) CloneWithMapper(f func(ClusterState) ClusterState) ClusterStateBundle {
	clone := ClusterStateBundle{
		Baseline:           AnnotatedClusterState{State: f(b.Baseline.State), Reason: b.Baseline.Reason, NodeReasons: b.Baseline.NodeReasons},
		Derived:            make(map[string]AnnotatedClusterState, len(b.Derived)),
		FeedBlock:          b.FeedBlock,
		DeferredActivation: b.DeferredActivation,
	}
	for space, state := range b.Derived {
		clone.Derived[space] = AnnotatedClusterState{State: f(state.State), Reason: state.Reason, NodeReasons: state.NodeReasons}
	}
	return clone
}

// ClonedWithVersionSet returns a bundle equal in all fields except every
// contained ClusterState's version is set to v.
func (b ClusterStateBundle) ClonedWithVersionSet(v uint64) ClusterStateBundle {
	return b.CloneWithMapper(func(cs ClusterState) ClusterState { return cs.WithVersion(v) })
}

// SimilarTo holds iff baselines are similar, feed-block cluster flags match,
// and every derived entry present in both bundles is similar; a bucket space
// present in only one bundle is treated as unchanged (see
// Config.TreatMissingBucketSpaceAsUnchanged for the documented policy this
// encodes). SimilarTo true implies a new bundle version is not required.
func (b ClusterStateBundle) SimilarTo(other ClusterStateBundle) bool {
	if !b.Baseline.Similar(other.Baseline) {
		return false
	}
	if b.FeedBlock.Blocked() != other.FeedBlock.Blocked() {
		return false
	}
	for space, state := range b.Derived {
		if ostate, ok := other.Derived[space]; ok {
			if !state.Similar(ostate) {
				return false
			}
		}
	}
	for space, ostate := range other.Derived {
		if state, ok := b.Derived[space]; ok {
			if !state.Similar(ostate) {
				return false
			}
		}
	}
	return true
}
