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

package activation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lindb/clustercontroller/models"
	"github.com/lindb/clustercontroller/rpc"
)

type fakeActivator struct {
	calls []uint64
}

func (f *fakeActivator) Activate(_ context.Context, _ map[models.NodeID]string, version uint64) {
	f.calls = append(f.calls, version)
}

var (
	storage0      = models.NodeID{Type: models.StorageNode, Index: 0}
	storage1      = models.NodeID{Type: models.StorageNode, Index: 1}
	storage2      = models.NodeID{Type: models.StorageNode, Index: 2}
	trackedThree  = []models.NodeID{storage0, storage1, storage2}
)

func TestCoordinator_ReadyToActivate_QuorumAll(t *testing.T) {
	act := &fakeActivator{}
	c := NewCoordinator(Config{Quorum: QuorumAll}, act)

	c.OnStaged(storage0, 5)
	c.OnStaged(storage1, 5)
	assert.False(t, c.ReadyToActivate(5, trackedThree), "not all nodes have staged yet")

	c.OnStaged(storage2, 5)
	assert.True(t, c.ReadyToActivate(5, trackedThree))
}

func TestCoordinator_ReadyToActivate_QuorumMajority(t *testing.T) {
	act := &fakeActivator{}
	c := NewCoordinator(Config{Quorum: QuorumMajority}, act)

	c.OnStaged(storage0, 5)
	assert.False(t, c.ReadyToActivate(5, trackedThree))

	c.OnStaged(storage1, 5)
	assert.True(t, c.ReadyToActivate(5, trackedThree), "2 of 3 is a majority")
}

func TestCoordinator_ReadyToActivate_StaleStagedVersionDoesNotCount(t *testing.T) {
	act := &fakeActivator{}
	c := NewCoordinator(Config{Quorum: QuorumAll}, act)
	c.OnStaged(storage0, 4) // staged an older version
	c.OnStaged(storage1, 5)
	c.OnStaged(storage2, 5)

	assert.False(t, c.ReadyToActivate(5, trackedThree))
}

func TestCoordinator_ReadyToActivate_AlreadyActivatedVersionNeverReady(t *testing.T) {
	act := &fakeActivator{}
	c := NewCoordinator(Config{Quorum: QuorumMajority}, act)
	for _, id := range trackedThree {
		c.OnStaged(id, 5)
	}
	assert.True(t, c.ReadyToActivate(5, trackedThree))

	c.Activate(context.Background(), nil, 5)
	assert.False(t, c.ReadyToActivate(5, trackedThree), "a version already activated is never ready again")
}

func TestCoordinator_ReadyToActivate_EmptyTrackedSetNeverReady(t *testing.T) {
	act := &fakeActivator{}
	c := NewCoordinator(Config{Quorum: QuorumAll}, act)
	assert.False(t, c.ReadyToActivate(1, nil))
}

func TestCoordinator_Activate_InvokesActivatorAndMarksActivated(t *testing.T) {
	act := &fakeActivator{}
	c := NewCoordinator(Config{Quorum: QuorumAll}, act)

	targets := map[models.NodeID]string{storage0: "addr-0"}
	c.Activate(context.Background(), targets, 7)

	assert.Equal(t, []uint64{7}, act.calls)
	assert.True(t, c.Activated(7))
	assert.False(t, c.Activated(8))
}

func TestCoordinator_OnAck_DoesNotRevertActivation(t *testing.T) {
	act := &fakeActivator{}
	c := NewCoordinator(Config{Quorum: QuorumAll}, act)
	c.Activate(context.Background(), nil, 3)

	c.OnAck(rpc.ActivationAck{NodeID: storage0, Version: 3, Err: errors.New("timeout")})
	assert.True(t, c.Activated(3), "a failed ack is not this coordinator's job to react to")

	c.OnAck(rpc.ActivationAck{NodeID: storage1, Version: 3})
	assert.True(t, c.Activated(3))
}
