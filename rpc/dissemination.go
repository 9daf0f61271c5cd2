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
	"time"

	"github.com/jpillora/backoff"
	"github.com/lindb/common/pkg/logger"

	"github.com/lindb/clustercontroller/internal/concurrent"
	"github.com/lindb/clustercontroller/models"
)

// ActivationAck is queued back to the controller thread when a node
// answers an activateSystemState call, per spec §5's ActivationAck input
// queue.
type ActivationAck struct {
	NodeID  models.NodeID
	Version uint64
	Err     error
}

// StagedReport is queued back to the controller thread whenever a recipient
// replies to setSystemState, carrying the StagedVersion the activation
// coordinator tracks per spec §4.7/§6. Without this, deferred activation can
// never see a node as staged.
type StagedReport struct {
	NodeID  models.NodeID
	Version uint64
}

// Disseminator fans a published bundle out to every content node on the I/O
// pool, retrying each node independently with exponential backoff so one
// slow or unreachable node never blocks delivery to the rest.
type Disseminator struct {
	factory ClientFactory
	pool    concurrent.Pool
	timeout time.Duration
	acks    chan ActivationAck
	staged  chan StagedReport
	log     logger.Logger
}

// NewDisseminator creates a Disseminator. acks and staged should both be
// drained by the controller thread each tick.
func NewDisseminator(factory ClientFactory, pool concurrent.Pool, timeout time.Duration,
	acks chan ActivationAck, staged chan StagedReport,
) *Disseminator {
	return &Disseminator{
		factory: factory,
		pool:    pool,
		timeout: timeout,
		acks:    acks,
		staged:  staged,
		log:     logger.GetLogger("RPC", "Disseminator"),
	}
}

// Disseminate submits one setSystemState call per (nodeID, addr) pair to the
// pool; failures are retried on the pool's own goroutine with backoff
// between 1s and 10s until ctx is done.
func (d *Disseminator) Disseminate(ctx context.Context, targets map[models.NodeID]string, bundle models.ClusterStateBundle) {
	for id, addr := range targets {
		id, addr := id, addr
		client := d.factory.ClientFor(addr)
		task := concurrent.NewTask(func() {
			d.setStateWithRetry(ctx, id, client, bundle)
		}, func(err error) {
			d.log.Warn("dissemination task panicked", logger.String("node", id.String()), logger.Error(err))
		})
		d.pool.Submit(ctx, task)
	}
}

func (d *Disseminator) setStateWithRetry(ctx context.Context, id models.NodeID, client ContentNodeClient, bundle models.ClusterStateBundle) {
	b := &backoff.Backoff{Min: time.Second, Max: 10 * time.Second, Factor: 2, Jitter: true}
	for {
		callCtx, cancel := context.WithTimeout(ctx, d.timeout)
		result, err := client.SetSystemState(callCtx, bundle)
		cancel()
		if err == nil {
			d.staged <- StagedReport{NodeID: id, Version: result.StagedVersion}
			return
		}
		d.log.Warn("setSystemState failed, retrying", logger.String("node", id.String()), logger.Error(err))
		select {
		case <-ctx.Done():
			return
		case <-time.After(b.Duration()):
		}
	}
}

// Activate submits one activateSystemState(version) call per (nodeID, addr)
// pair; the reply (or failure) is delivered on the acks channel for the
// activation coordinator to fold in.
func (d *Disseminator) Activate(ctx context.Context, targets map[models.NodeID]string, version uint64) {
	for id, addr := range targets {
		id, addr := id, addr
		client := d.factory.ClientFor(addr)
		task := concurrent.NewTask(func() {
			err := client.ActivateSystemState(ctx, version)
			d.acks <- ActivationAck{NodeID: id, Version: version, Err: err}
		}, func(err error) {
			d.acks <- ActivationAck{NodeID: id, Version: version, Err: err}
		})
		d.pool.Submit(ctx, task)
	}
}
