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

// Package controller implements the per-replica leader election and
// state-generation loop of spec §4.6: the "controller thread" that owns the
// NodeInfo registry and StateGenerator, and is the only writer of the
// coordination log.
package controller

import "github.com/lindb/clustercontroller/models"

// WantedStateEdit is an operator-issued change to a node's wanted state,
// queued for the controller thread to fold into the registry.
type WantedStateEdit struct {
	NodeID models.NodeID
	Wanted models.NodeState
}

// ResourceBlockSignal carries a feed-block decision from an external
// resource monitor (e.g. disk usage) into the controller thread.
type ResourceBlockSignal struct {
	FeedBlock *models.FeedBlock
}
