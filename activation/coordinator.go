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

// Package activation implements the two-phase prepare/activate protocol of
// spec §4.7: when a published bundle carries DeferredActivation, recipients
// stage it but do not take effect until they receive an explicit
// activate(version), issued once enough nodes have staged it.
package activation

import (
	"context"

	"github.com/lindb/common/pkg/logger"

	"github.com/lindb/clustercontroller/models"
	"github.com/lindb/clustercontroller/rpc"
)

//go:generate mockgen -source=./coordinator.go -destination=./coordinator_mock.go -package=activation

// Quorum decides whether enough nodes have staged a version to activate it.
type Quorum int

const (
	// QuorumAll requires every tracked node to have staged the version.
	QuorumAll Quorum = iota
	// QuorumMajority requires more than half of tracked nodes.
	QuorumMajority
)

// Config has no default: a deployment must state its activation quorum
// policy explicitly, per the open question resolved in SPEC_FULL.md.
type Config struct {
	Quorum Quorum
}

// activator is the narrow surface Coordinator needs to issue activate RPCs;
// satisfied by *rpc.Disseminator.
type activator interface {
	Activate(ctx context.Context, targets map[models.NodeID]string, version uint64)
}

// Coordinator tracks per-node staged versions and decides when a version is
// activation-ready.
type Coordinator struct {
	cfg       Config
	act       activator
	staged    map[models.NodeID]uint64
	activated map[uint64]bool
	log       logger.Logger
}

// NewCoordinator creates a Coordinator bound to act for issuing activate
// RPCs once quorum is reached.
func NewCoordinator(cfg Config, act activator) *Coordinator {
	return &Coordinator{
		cfg:       cfg,
		act:       act,
		staged:    map[models.NodeID]uint64{},
		activated: map[uint64]bool{},
		log:       logger.GetLogger("Activation", "Coordinator"),
	}
}

// OnStaged records that id has staged version, in response to a
// setSystemState reply's StagedVersion. Call ReadyToActivate afterward to
// check whether this crossed the quorum threshold.
func (c *Coordinator) OnStaged(id models.NodeID, version uint64) {
	c.staged[id] = version
}

// ReadyToActivate reports whether version has been staged by a quorum of the
// tracked nodeset, per Config.Quorum.
func (c *Coordinator) ReadyToActivate(version uint64, tracked []models.NodeID) bool {
	if c.activated[version] {
		return false
	}
	staged := 0
	for _, id := range tracked {
		if c.staged[id] >= version {
			staged++
		}
	}
	if len(tracked) == 0 {
		return false
	}
	switch c.cfg.Quorum {
	case QuorumAll:
		return staged == len(tracked)
	case QuorumMajority:
		return staged*2 > len(tracked)
	default:
		return false
	}
}

// Activate issues activate(version) to every node in targets and marks the
// version activated; a later timeout without full acknowledgement is handled
// by the caller re-evaluating on the next tick, not by this coordinator.
func (c *Coordinator) Activate(ctx context.Context, targets map[models.NodeID]string, version uint64) {
	c.activated[version] = true
	c.log.Info("activating version", logger.Int64("version", int64(version)), logger.Int("nodes", len(targets)))
	c.act.Activate(ctx, targets, version)
}

// OnAck folds one ActivationAck into the coordinator's bookkeeping. A
// failed ack does not revert Activated(version): the next tick's
// StateGenerator pass, not this coordinator, decides whether to supersede a
// stuck version.
func (c *Coordinator) OnAck(ack rpc.ActivationAck) {
	if ack.Err != nil {
		c.log.Warn("activation ack failed", logger.String("node", ack.NodeID.String()),
			logger.Int64("version", int64(ack.Version)), logger.Error(ack.Err))
		return
	}
	c.log.Info("activation acked", logger.String("node", ack.NodeID.String()), logger.Int64("version", int64(ack.Version)))
}

// Activated reports whether version has already had activate() issued.
func (c *Coordinator) Activated(version uint64) bool {
	return c.activated[version]
}
