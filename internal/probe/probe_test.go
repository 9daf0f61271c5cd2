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

package probe

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lindb/clustercontroller/internal/concurrent"
	"github.com/lindb/clustercontroller/models"
	"github.com/lindb/clustercontroller/rpc"
)

type fakeProbeClient struct {
	state models.NodeState
	err   error
}

func (c *fakeProbeClient) SetSystemState(context.Context, models.ClusterStateBundle) (rpc.SetStateResult, error) {
	return rpc.SetStateResult{}, nil
}

func (c *fakeProbeClient) ActivateSystemState(context.Context, uint64) error { return nil }

func (c *fakeProbeClient) GetNodeState(context.Context, models.NodeState) (models.NodeState, error) {
	return c.state, c.err
}

type fakeProbeFactory struct{ client *fakeProbeClient }

func (f *fakeProbeFactory) ClientFor(string) rpc.ContentNodeClient { return f.client }

func TestProber_Probe_DeliversObservedState(t *testing.T) {
	factory := &fakeProbeFactory{client: &fakeProbeClient{state: models.UpState()}}
	pool := concurrent.NewPool("test", 2, time.Second, nil)
	defer pool.Stop()

	reports := make(chan Report, 1)
	p := NewProber(factory, pool, time.Second, reports)
	p.Probe(context.Background(), models.NodeID{Type: models.StorageNode, Index: 0}, "addr", models.UpState())

	select {
	case r := <-reports:
		assert.Equal(t, models.NodeID{Type: models.StorageNode, Index: 0}, r.NodeID)
		assert.Equal(t, models.Up, r.State.State)
		assert.NoError(t, r.Err)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for probe report")
	}
}

func TestProber_Probe_TransportFailureReportsDown(t *testing.T) {
	factory := &fakeProbeFactory{client: &fakeProbeClient{err: assert.AnError}}
	pool := concurrent.NewPool("test", 2, time.Second, nil)
	defer pool.Stop()

	reports := make(chan Report, 1)
	p := NewProber(factory, pool, time.Second, reports)
	p.Probe(context.Background(), models.NodeID{Type: models.StorageNode, Index: 0}, "addr", models.UpState())

	select {
	case r := <-reports:
		assert.Equal(t, models.Down, r.State.State)
		assert.Error(t, r.Err)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for probe report")
	}
}
