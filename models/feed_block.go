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

// FeedBlock is a cluster-wide signal instructing content nodes to refuse
// client writes while still allowing internal maintenance traffic. It is
// immutable; see Equal for how two values compare.
type FeedBlock struct {
	Description        string
	BlockFeedInCluster bool
}

// Equal compares two blocking values field-wise; any two non-blocking
// values, a nil feedBlock included, are equal whatever their descriptions.
func (f *FeedBlock) Equal(other *FeedBlock) bool {
	a := f.normalized()
	b := other.normalized()
	return a == b
}

// Blocked reports whether feed is cluster-blocked. A nil receiver (no signal
// has ever been raised) is never blocked.
func (f *FeedBlock) Blocked() bool {
	return f != nil && f.BlockFeedInCluster
}

func (f *FeedBlock) normalized() FeedBlock {
	if f == nil || !f.BlockFeedInCluster {
		return FeedBlock{}
	}
	return *f
}
