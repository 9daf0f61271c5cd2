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

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func baselineState(version uint64) AnnotatedClusterState {
	cs := NewClusterState(version, ClusterUp, map[NodeID]NodeState{
		{Type: StorageNode, Index: 0}: {State: Up},
	})
	return NewAnnotatedClusterState(cs, "test baseline", nil)
}

func TestBuildDerived_BaselineOnly(t *testing.T) {
	b := BuildDerived(baselineState(3), nil, nil, false)
	assert.Equal(t, uint64(3), b.Version())
	assert.Empty(t, b.Derived)
	assert.False(t, b.FeedBlock.Blocked())
}

func TestBuildDerived_ExplicitDerivedGetsRebased(t *testing.T) {
	derived := map[string]AnnotatedClusterState{
		"global": baselineState(1), // stale version, must be rebased to baseline's version
	}
	b := BuildDerived(baselineState(5), derived, nil, true)
	assert.Equal(t, uint64(5), b.Derived["global"].State.Version)
	assert.True(t, b.DeferredActivation)
}

func TestBuildWithDeriver(t *testing.T) {
	deriver := func(baseline ClusterState, bucketSpace string) AnnotatedClusterState {
		return NewAnnotatedClusterState(baseline.WithCluster(ClusterDown), "derived:"+bucketSpace, nil)
	}
	b := BuildWithDeriver(baselineState(2), []string{"global", "default"}, deriver, nil, false)
	assert.Len(t, b.Derived, 2)
	assert.Equal(t, ClusterDown, b.Derived["global"].State.Cluster)
	assert.Equal(t, uint64(2), b.Derived["default"].State.Version)
}

func TestCloneWithMapper(t *testing.T) {
	b := BuildWithDeriver(baselineState(1), []string{"global"},
		func(baseline ClusterState, _ string) AnnotatedClusterState {
			return NewAnnotatedClusterState(baseline, "", nil)
		}, nil, false)

	clone := b.ClonedWithVersionSet(9)
	assert.Equal(t, uint64(9), clone.Version())
	assert.Equal(t, uint64(9), clone.Derived["global"].State.Version)
	// original must be unaffected.
	assert.Equal(t, uint64(1), b.Version())
}

func TestClusterStateBundle_SimilarTo(t *testing.T) {
	a := BuildWithDeriver(baselineState(1), []string{"global", "default"},
		func(baseline ClusterState, _ string) AnnotatedClusterState {
			return NewAnnotatedClusterState(baseline, "", nil)
		}, nil, false)
	b := a.ClonedWithVersionSet(2)
	assert.True(t, a.SimilarTo(b))

	// a space present on only one side is treated as unchanged.
	c := BuildWithDeriver(baselineState(1), []string{"global"},
		func(baseline ClusterState, _ string) AnnotatedClusterState {
			return NewAnnotatedClusterState(baseline, "", nil)
		}, nil, false)
	assert.True(t, a.SimilarTo(c))

	// differing feed-block status breaks similarity.
	d := BuildWithDeriver(baselineState(1), []string{"global", "default"},
		func(baseline ClusterState, _ string) AnnotatedClusterState {
			return NewAnnotatedClusterState(baseline, "", nil)
		}, &FeedBlock{BlockFeedInCluster: true}, false)
	assert.False(t, a.SimilarTo(d))
}
