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

package rpc

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lindb/clustercontroller/internal/concurrent"
	"github.com/lindb/clustercontroller/models"
)

// fakeContentNodeClient records calls and can be configured to fail its
// first N attempts, to exercise the Disseminator's retry-with-backoff path.
type fakeContentNodeClient struct {
	mu          sync.Mutex
	failUntil   int
	setCalls    int
	activations []uint64
}

func (c *fakeContentNodeClient) SetSystemState(context.Context, models.ClusterStateBundle) (SetStateResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setCalls++
	if c.setCalls <= c.failUntil {
		return SetStateResult{}, assert.AnError
	}
	return SetStateResult{StagedVersion: 1}, nil
}

func (c *fakeContentNodeClient) ActivateSystemState(_ context.Context, version uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activations = append(c.activations, version)
	return nil
}

func (c *fakeContentNodeClient) GetNodeState(context.Context, models.NodeState) (models.NodeState, error) {
	return models.NodeState{}, nil
}

type fakeClientFactory struct {
	mu      sync.Mutex
	clients map[string]*fakeContentNodeClient
}

func newFakeClientFactory() *fakeClientFactory {
	return &fakeClientFactory{clients: map[string]*fakeContentNodeClient{}}
}

func (f *fakeClientFactory) ClientFor(addr string) ContentNodeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.clients[addr]
	if !ok {
		c = &fakeContentNodeClient{}
		f.clients[addr] = c
	}
	return c
}

func TestDisseminator_Disseminate_DeliversToEveryTarget(t *testing.T) {
	factory := newFakeClientFactory()
	pool := concurrent.NewPool("test", 4, time.Second, nil)
	defer pool.Stop()

	staged := make(chan StagedReport, 8)
	d := NewDisseminator(factory, pool, time.Second, make(chan ActivationAck, 8), staged)
	targets := map[models.NodeID]string{
		{Type: models.StorageNode, Index: 0}: "addr-0",
		{Type: models.StorageNode, Index: 1}: "addr-1",
	}
	d.Disseminate(context.Background(), targets, models.EmptyBaseline())

	assert.Eventually(t, func() bool {
		factory.mu.Lock()
		defer factory.mu.Unlock()
		for _, addr := range []string{"addr-0", "addr-1"} {
			c, ok := factory.clients[addr]
			if !ok {
				return false
			}
			c.mu.Lock()
			calls := c.setCalls
			c.mu.Unlock()
			if calls == 0 {
				return false
			}
		}
		return true
	}, time.Second, 10*time.Millisecond)
}

func TestDisseminator_Disseminate_EmitsStagedReportPerTarget(t *testing.T) {
	factory := newFakeClientFactory()
	pool := concurrent.NewPool("test", 4, time.Second, nil)
	defer pool.Stop()

	staged := make(chan StagedReport, 8)
	d := NewDisseminator(factory, pool, time.Second, make(chan ActivationAck, 8), staged)
	target := map[models.NodeID]string{
		{Type: models.StorageNode, Index: 0}: "addr-0",
	}
	d.Disseminate(context.Background(), target, models.EmptyBaseline())

	select {
	case report := <-staged:
		assert.Equal(t, models.NodeID{Type: models.StorageNode, Index: 0}, report.NodeID)
		assert.Equal(t, uint64(1), report.Version, "must carry the recipient's SetStateResult.StagedVersion")
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for staged report")
	}
}

func TestDisseminator_Activate_EmitsAcksForEveryTarget(t *testing.T) {
	factory := newFakeClientFactory()
	pool := concurrent.NewPool("test", 4, time.Second, nil)
	defer pool.Stop()

	acks := make(chan ActivationAck, 8)
	d := NewDisseminator(factory, pool, time.Second, acks, make(chan StagedReport, 8))
	targets := map[models.NodeID]string{
		{Type: models.StorageNode, Index: 0}: "addr-0",
	}
	d.Activate(context.Background(), targets, 7)

	select {
	case ack := <-acks:
		assert.Equal(t, uint64(7), ack.Version)
		assert.Equal(t, models.NodeID{Type: models.StorageNode, Index: 0}, ack.NodeID)
		assert.NoError(t, ack.Err)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for activation ack")
	}
}
