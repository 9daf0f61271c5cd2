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

package coordination

import "fmt"

// Paths resolves the persistent layout under /{rootPrefix}/{clusterName}/
// described in spec §4.5.
type Paths struct {
	RootPrefix  string
	ClusterName string
}

func (p Paths) root() string {
	return fmt.Sprintf("/%s/%s", p.RootPrefix, p.ClusterName)
}

// Index is the ephemeral ballot path this replica publishes its vote to.
func (p Paths) Index(replicaIndex int) string {
	return fmt.Sprintf("%s/indexes/%d", p.root(), replicaIndex)
}

// IndexesDir is the directory of all replicas' ballots.
func (p Paths) IndexesDir() string {
	return fmt.Sprintf("%s/indexes", p.root())
}

// WantedStates is the newline-separated "nodeId:serializedState" document.
func (p Paths) WantedStates() string {
	return fmt.Sprintf("%s/wantedstates", p.root())
}

// StartTimestamps is the newline-separated "nodeId:uint64" document.
func (p Paths) StartTimestamps() string {
	return fmt.Sprintf("%s/starttimestamps", p.root())
}

// LatestVersion is the decimal integer, CAS-protected, last published
// baseline version.
func (p Paths) LatestVersion() string {
	return fmt.Sprintf("%s/latestversion", p.root())
}

// PublishedStateBundle is the serialized envelope of the last published
// bundle, CAS-protected.
func (p Paths) PublishedStateBundle() string {
	return fmt.Sprintf("%s/published_state_bundle", p.root())
}
