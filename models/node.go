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
	"fmt"
	"sort"
)

// NodeType identifies which fleet a node belongs to.
type NodeType int

const (
	StorageNode NodeType = iota
	DistributorNode
)

// String returns the wire-form short name of the node type.
func (t NodeType) String() string {
	switch t {
	case StorageNode:
		return "storage"
	case DistributorNode:
		return "distributor"
	default:
		return "unknown"
	}
}

// ParseNodeType parses the short wire-form name back into a NodeType.
func ParseNodeType(s string) (NodeType, bool) {
	switch s {
	case "storage":
		return StorageNode, true
	case "distributor":
		return DistributorNode, true
	default:
		return 0, false
	}
}

// NodeID identifies a node within the cluster. It is stable for the node's
// lifetime; Index is never reused while a node is a registry member.
type NodeID struct {
	Type  NodeType
	Index int
}

// String renders "<type>.<index>", the token prefix used in the canonical
// cluster state text form.
func (n NodeID) String() string {
	return fmt.Sprintf("%s.%d", n.Type, n.Index)
}

// Less orders node identifiers by (Type, Index), the total order the
// generator and the wire codec iterate nodes in.
func (n NodeID) Less(other NodeID) bool {
	if n.Type != other.Type {
		return n.Type < other.Type
	}
	return n.Index < other.Index
}

// SortNodeIDs returns ids sorted by the canonical (Type, Index) order.
func SortNodeIDs(ids []NodeID) []NodeID {
	sorted := make([]NodeID, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })
	return sorted
}
