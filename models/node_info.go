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

// NodeInfo is the controller-thread-owned mutable record for one node: what
// the operator wants, what was last observed, and the bookkeeping needed for
// premature-crash and init-progress-freeze detection. It is never shared
// outside the controller thread; RPC workers only ever see copies.
type NodeInfo struct {
	ID    NodeID
	Addr  string // transport address of the content node

	WantedState   NodeState
	ReportedState NodeState

	// StartTimestamp is the monotonic timestamp of the last time this node
	// was observed starting (its reported state transitioning into Up from
	// any other state), or of its first registration. It feeds
	// premature-crash detection.
	StartTimestamp uint64

	PrematureCrashCount uint32

	LastProbeRTTMillis int64
	TransientFailures  uint32

	// LastInitProgress/LastInitProgressAt back the init-progress watchdog: a
	// node stuck in Initializing with unchanged progress for longer than
	// maxInitProgressFreeze is treated as Down.
	LastInitProgress   float32
	LastInitProgressAt uint64
}

// NewNodeInfo creates a NodeInfo for a node first observed at nowMillis,
// with wanted state defaulting to Up and reported state to Down until a
// report or operator command says otherwise.
func NewNodeInfo(id NodeID, addr string, nowMillis uint64) *NodeInfo {
	return &NodeInfo{
		ID:             id,
		Addr:           addr,
		WantedState:    UpState(),
		ReportedState:  DownState("not yet observed"),
		StartTimestamp: nowMillis,
	}
}
