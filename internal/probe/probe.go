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

// Package probe runs the long-poll getNodeState probe named in spec §6 on
// the I/O pool, off the controller thread, and feeds ProbeReport values into
// the controller's input queue described in spec §5.
package probe

import (
	"context"
	"time"

	"github.com/lindb/common/pkg/logger"

	"github.com/lindb/clustercontroller/internal/concurrent"
	"github.com/lindb/clustercontroller/models"
	"github.com/lindb/clustercontroller/rpc"
)

// Report is one probe outcome, queued for the controller thread to fold into
// its NodeInfo registry on the next tick.
type Report struct {
	NodeID    models.NodeID
	State     models.NodeState
	RTTMillis int64
	// Err is set on a hard probe failure; State is then DownState(Err).
	Err error
}

// Prober runs one getNodeState probe per node on a shared I/O pool and
// publishes Report values to a channel the controller thread drains each
// tick.
type Prober struct {
	factory rpc.ClientFactory
	pool    concurrent.Pool
	timeout time.Duration
	reports chan Report
	log     logger.Logger
}

// NewProber creates a Prober. reports should be read by the controller
// thread; the channel is never closed by the Prober, since node membership
// (and therefore the set of active probes) changes over the controller's
// lifetime.
func NewProber(factory rpc.ClientFactory, pool concurrent.Pool, timeout time.Duration, reports chan Report) *Prober {
	return &Prober{
		factory: factory,
		pool:    pool,
		timeout: timeout,
		reports: reports,
		log:     logger.GetLogger("Probe", "Prober"),
	}
}

// Probe submits one getNodeState call for id against addr, comparing the
// reply to expected; the result (or failure) is delivered asynchronously on
// the reports channel. Probe never blocks the caller beyond pool submission.
func (p *Prober) Probe(ctx context.Context, id models.NodeID, addr string, expected models.NodeState) {
	client := p.factory.ClientFor(addr)
	task := concurrent.NewTask(func() {
		p.doProbe(ctx, id, client, expected)
	}, func(err error) {
		p.log.Warn("probe task panicked", logger.String("node", id.String()), logger.Error(err))
		p.reports <- Report{NodeID: id, State: models.DownState("probe panic"), Err: err}
	})
	p.pool.Submit(ctx, task)
}

func (p *Prober) doProbe(ctx context.Context, id models.NodeID, client rpc.ContentNodeClient, expected models.NodeState) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	observed, err := client.GetNodeState(ctx, expected)
	rtt := time.Since(start).Milliseconds()

	if err != nil {
		p.reports <- Report{NodeID: id, State: models.DownState(err.Error()), RTTMillis: rtt, Err: err}
		return
	}
	p.reports <- Report{NodeID: id, State: observed, RTTMillis: rtt}
}
