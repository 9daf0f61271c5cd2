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

// Package rpc is the external interface to content nodes: setSystemState,
// activateSystemState and getNodeState, named in spec §6. The transport
// itself (gRPC, HTTP, whatever a deployment picks) is an external
// collaborator; this package only defines the contract the controller
// drives and a dissemination worker pool for calling it across many nodes
// without blocking the controller thread.
package rpc

import (
	"context"

	"github.com/lindb/clustercontroller/models"
)

//go:generate mockgen -source=./client.go -destination=./client_mock.go -package=rpc

// SetStateResult is the recipient's reply to setSystemState: the version it
// has staged (which may lag the requested version if it rejected the call).
type SetStateResult struct {
	StagedVersion uint64
}

// ContentNodeClient is the per-node RPC surface the controller drives.
type ContentNodeClient interface {
	// SetSystemState sends a serialized bundle; retried by the caller with
	// exponential backoff on transport failure.
	SetSystemState(ctx context.Context, bundle models.ClusterStateBundle) (SetStateResult, error)
	// ActivateSystemState instructs the recipient to activate a previously
	// staged version. Idempotent.
	ActivateSystemState(ctx context.Context, version uint64) error
	// GetNodeState is a long-poll probe used by the probe collaborator.
	GetNodeState(ctx context.Context, expected models.NodeState) (models.NodeState, error)
}

// ClientFactory resolves a ContentNodeClient for a node's transport address.
// Implementations own connection pooling/reuse.
type ClientFactory interface {
	ClientFor(addr string) ContentNodeClient
}
