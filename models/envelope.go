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

import "github.com/lindb/common/pkg/encoding"

// envelopeFeedBlock is the wire shape of FeedBlock; nil on the wire when
// the bundle carries no FeedBlock at all.
type envelopeFeedBlock struct {
	Blocked     bool   `json:"blocked"`
	Description string `json:"description"`
}

// Envelope is the compact self-describing payload of spec §6: the wire
// encoding of a published ClusterStateBundle. Baseline and Derived carry the
// canonical ClusterState text form, not a structural encoding, so that a
// recipient written against a different serializer can still parse them.
type Envelope struct {
	Version            uint32             `json:"version"`
	Baseline           string             `json:"baseline"`
	Derived            map[string]string  `json:"derived,omitempty"`
	FeedBlock          *envelopeFeedBlock `json:"feed_block,omitempty"`
	DeferredActivation bool               `json:"deferred_activation"`
}

// EncodeBundle renders bundle into its wire Envelope form.
func EncodeBundle(bundle ClusterStateBundle) ([]byte, error) {
	env := Envelope{
		Version:            uint32(bundle.Version()),
		Baseline:           bundle.Baseline.State.String(),
		DeferredActivation: bundle.DeferredActivation,
	}
	if len(bundle.Derived) > 0 {
		env.Derived = make(map[string]string, len(bundle.Derived))
		for space, st := range bundle.Derived {
			env.Derived[space] = st.State.String()
		}
	}
	if bundle.FeedBlock != nil {
		env.FeedBlock = &envelopeFeedBlock{
			Blocked:     bundle.FeedBlock.Blocked(),
			Description: bundle.FeedBlock.Description,
		}
	}
	return encoding.JSONMarshal(&env), nil
}

// DecodeBundle parses a wire Envelope back into a ClusterStateBundle. Per
// spec §4.8, a decode error is handled by the caller as an empty baseline;
// DecodeBundle itself just reports the error.
func DecodeBundle(data []byte) (ClusterStateBundle, error) {
	var env Envelope
	if err := encoding.JSONUnmarshal(data, &env); err != nil {
		return ClusterStateBundle{}, err
	}

	baseline, err := ParseClusterState(env.Baseline)
	if err != nil {
		return ClusterStateBundle{}, err
	}

	derived := make(map[string]AnnotatedClusterState, len(env.Derived))
	for space, text := range env.Derived {
		cs, err := ParseClusterState(text)
		if err != nil {
			return ClusterStateBundle{}, err
		}
		derived[space] = NewAnnotatedClusterState(cs, "", nil)
	}

	var feedBlock *FeedBlock
	if env.FeedBlock != nil {
		feedBlock = &FeedBlock{
			Description:        env.FeedBlock.Description,
			BlockFeedInCluster: env.FeedBlock.Blocked,
		}
	}

	return BuildDerived(NewAnnotatedClusterState(baseline, "", nil), derived, feedBlock, env.DeferredActivation), nil
}

// EmptyBaseline is the fallback bundle used when a stored envelope cannot be
// decoded: a version-0, cluster-up, empty-node baseline with no derived
// spaces.
func EmptyBaseline() ClusterStateBundle {
	baseline := NewAnnotatedClusterState(NewClusterState(0, ClusterUp, nil), "empty baseline after decode failure", nil)
	return BuildDerived(baseline, nil, nil, false)
}
