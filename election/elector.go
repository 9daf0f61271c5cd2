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

// Package election implements the ballot-based leader election described in
// spec §4.6: each replica publishes an ephemeral vote, every replica reads
// the full ballot box and picks the same winner by the same deterministic
// policy, and only the winner proceeds to the leader role.
package election

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/lindb/common/pkg/logger"
	"go.uber.org/atomic"

	"github.com/lindb/clustercontroller/coordination"
)

//go:generate mockgen -source=./elector.go -destination=./elector_mock.go -package=election

// Callbacks are invoked on role transitions. OnElected corresponds to
// OnFailOver in the teacher's master controller: the replica has just become
// leader and should build its controller-thread context. OnResignation is
// invoked when this replica stops being leader, before any re-election.
type Callbacks interface {
	OnElected(ctx context.Context) error
	OnResignation()
}

// Elector runs the ballot protocol for one controller replica.
type Elector struct {
	client       coordination.Client
	paths        coordination.Paths
	selfIndex    int
	quorumSize   int
	cb           Callbacks
	log          logger.Logger

	mu       sync.Mutex
	isLeader atomic.Bool
	cancel   context.CancelFunc
}

// NewElector creates an Elector for selfIndex. quorumSize is the minimum
// number of distinct ballots that must be visible before a winner is
// declared, preventing a replica isolated from the rest of the ensemble from
// electing itself.
func NewElector(client coordination.Client, paths coordination.Paths, selfIndex, quorumSize int, cb Callbacks) *Elector {
	return &Elector{
		client:     client,
		paths:      paths,
		selfIndex:  selfIndex,
		quorumSize: quorumSize,
		cb:         cb,
		log:        logger.GetLogger("Election", "Elector"),
	}
}

// IsLeader reports whether this replica currently holds the leader role.
func (e *Elector) IsLeader() bool { return e.isLeader.Load() }

// Campaign publishes this replica's ephemeral vote (for itself) and starts
// watching the ballot box; it runs until ctx is cancelled or Close is
// called. Role transitions invoke Callbacks as the winner changes.
func (e *Elector) Campaign(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.cancel = cancel
	e.mu.Unlock()

	if err := e.client.CreateEphemeral(ctx, e.paths.Index(e.selfIndex), []byte(strconv.Itoa(e.selfIndex))); err != nil {
		return err
	}

	children, events, err := e.client.ListChildren(ctx, e.paths.IndexesDir(), true)
	if err != nil {
		return err
	}
	e.evaluate(ctx, children)

	go func() {
		for range events {
			children, _, err := e.client.ListChildren(ctx, e.paths.IndexesDir(), false)
			if err != nil {
				e.log.Warn("re-list ballot box failed", logger.Error(err))
				continue
			}
			e.evaluate(ctx, children)
		}
	}()
	return nil
}

// Close resigns (if leader) and stops watching the ballot box.
func (e *Elector) Close() {
	e.mu.Lock()
	cancel := e.cancel
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if e.isLeader.Swap(false) {
		e.cb.OnResignation()
	}
}

// evaluate recomputes the winner from the current ballot box and transitions
// role if it changed. Winner policy: the lowest replica index with a
// published ballot, once at least quorumSize ballots are visible; self-vote
// always counts, so a lone replica with quorumSize==1 elects itself.
func (e *Elector) evaluate(ctx context.Context, children []string) {
	indexes := parseBallotIndexes(children)
	if len(indexes) < e.quorumSize {
		e.demote()
		return
	}
	winner := indexes[0]
	if winner == e.selfIndex {
		e.promote(ctx)
	} else {
		e.demote()
	}
}

func (e *Elector) promote(ctx context.Context) {
	if e.isLeader.Swap(true) {
		return
	}
	e.log.Info("won leader election", logger.Int("index", e.selfIndex))
	if err := e.cb.OnElected(ctx); err != nil {
		e.log.Warn("leader fail-over hook failed, stepping back down", logger.Error(err))
		e.isLeader.Store(false)
	}
}

func (e *Elector) demote() {
	if e.isLeader.Swap(false) {
		e.log.Info("lost leader election", logger.Int("index", e.selfIndex))
		e.cb.OnResignation()
	}
}

// parseBallotIndexes extracts and sorts the replica indexes encoded in
// ballot znode paths of the form ".../indexes/{i}".
func parseBallotIndexes(children []string) []int {
	indexes := make([]int, 0, len(children))
	for _, child := range children {
		i := lastPathSegment(child)
		n, err := strconv.Atoi(i)
		if err != nil {
			continue
		}
		indexes = append(indexes, n)
	}
	sort.Ints(indexes)
	return indexes
}

func lastPathSegment(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}
