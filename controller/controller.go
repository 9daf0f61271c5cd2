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

package controller

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/lindb/common/pkg/logger"
	"go.uber.org/atomic"

	"github.com/lindb/clustercontroller/activation"
	"github.com/lindb/clustercontroller/coordination"
	"github.com/lindb/clustercontroller/election"
	"github.com/lindb/clustercontroller/internal/probe"
	"github.com/lindb/clustercontroller/metrics"
	"github.com/lindb/clustercontroller/models"
	"github.com/lindb/clustercontroller/rpc"
	"github.com/lindb/clustercontroller/state"
)

//go:generate mockgen -source=./controller.go -destination=./controller_mock.go -package=controller

// Phase names the leader-role state machine of spec §4.6's diagram. It is
// tracked for observability only; the transitions themselves are driven by
// plain control flow in tick, the way the teacher's OnFailOver/OnResignation
// drive master role transitions.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseGenerating
	PhaseBumpingVersion
	PhasePublishingBundle
	PhaseAwaitingActivation
	PhaseActivating
)

func (p Phase) String() string {
	switch p {
	case PhaseGenerating:
		return "Generating"
	case PhaseBumpingVersion:
		return "BumpingVersion"
	case PhasePublishingBundle:
		return "PublishingBundle"
	case PhaseAwaitingActivation:
		return "AwaitingActivation"
	case PhaseActivating:
		return "Activating"
	default:
		return "Idle"
	}
}

// Disseminator is the narrow surface Controller needs for fan-out, satisfied
// by *rpc.Disseminator.
type Disseminator interface {
	Disseminate(ctx context.Context, targets map[models.NodeID]string, bundle models.ClusterStateBundle)
	Activate(ctx context.Context, targets map[models.NodeID]string, version uint64)
}

// ProbeTrigger is the narrow surface FleetController needs to kick off node
// probes, satisfied by *probe.Prober. Probing is always initiated from the
// controller thread (see issueProbes) so the registry is only ever read by
// its single owner, per spec §5.
type ProbeTrigger interface {
	Probe(ctx context.Context, id models.NodeID, addr string, expected models.NodeState)
}

// Config bundles everything one FleetController replica needs.
type Config struct {
	Paths      coordination.Paths
	SelfIndex  int
	QuorumSize int

	TickInterval time.Duration

	Generator state.Config
	Activation activation.Config
}

// FleetController is the controller-thread loop of spec §4.6: leader
// election plus the tick-based state generation, CAS publication and
// dissemination cycle. All state-mutating methods (tick, queue handlers)
// are only ever invoked from the goroutine running Run's tick loop,
// matching the "controller thread" scheduling model of spec §5.
type FleetController struct {
	cfg Config

	client       coordination.Client
	registry     state.Registry
	generator    *state.Generator
	disseminator Disseminator
	activation   *activation.Coordinator
	statistics   *metrics.ControllerStatistics

	elector *election.Elector
	prober  ProbeTrigger

	probeReports   chan probe.Report
	wantedEdits    chan WantedStateEdit
	resourceBlocks chan ResourceBlockSignal
	acks           chan rpc.ActivationAck
	staged         chan rpc.StagedReport
	probeTicks     chan struct{}

	current   models.ClusterStateBundle
	feedBlock *models.FeedBlock

	phase atomic.Int32

	mu     sync.Mutex
	cancel context.CancelFunc

	log logger.Logger
}

// New creates a FleetController. probeReports/acks/staged are typically
// created by the probe.Prober/rpc.Disseminator the caller also constructs,
// and wired here so tick() can drain them. prober is called only from the
// controller thread, by issueProbes, so that the registry it reads from is
// never touched off-thread (spec §5).
func New(cfg Config, client coordination.Client, registry state.Registry, disseminator Disseminator,
	probeReports chan probe.Report, acks chan rpc.ActivationAck, staged chan rpc.StagedReport, prober ProbeTrigger,
) *FleetController {
	fc := &FleetController{
		cfg:            cfg,
		client:         client,
		registry:       registry,
		generator:      state.NewGenerator(cfg.Generator),
		disseminator:   disseminator,
		activation:     activation.NewCoordinator(cfg.Activation, disseminator),
		statistics:     metrics.NewControllerStatistics(),
		prober:         prober,
		probeReports:   probeReports,
		wantedEdits:    make(chan WantedStateEdit, 64),
		resourceBlocks: make(chan ResourceBlockSignal, 8),
		acks:           acks,
		staged:         staged,
		probeTicks:     make(chan struct{}, 1),
		current:        models.EmptyBaseline(),
		log:            logger.GetLogger("Controller", "FleetController"),
	}
	fc.elector = election.NewElector(client, cfg.Paths, cfg.SelfIndex, cfg.QuorumSize, fc)
	return fc
}

// Statistics exposes the controller's operational counters for the admin
// status view.
func (fc *FleetController) Statistics() *metrics.ControllerStatistics { return fc.statistics }

// Phase reports the leader-role phase last observed by the tick loop. A
// follower (or a leader between ticks) reports PhaseIdle.
func (fc *FleetController) Phase() Phase { return Phase(fc.phase.Load()) }

// IsLeader reports whether this replica currently holds the leader role.
func (fc *FleetController) IsLeader() bool { return fc.elector.IsLeader() }

// SubmitWantedStateEdit queues an operator edit for the next tick.
func (fc *FleetController) SubmitWantedStateEdit(edit WantedStateEdit) {
	select {
	case fc.wantedEdits <- edit:
	default:
		fc.log.Warn("wanted state edit queue full, dropping", logger.String("node", edit.NodeID.String()))
	}
}

// SubmitResourceBlockSignal queues a feed-block decision for the next tick.
func (fc *FleetController) SubmitResourceBlockSignal(sig ResourceBlockSignal) {
	select {
	case fc.resourceBlocks <- sig:
	default:
		fc.log.Warn("resource block signal queue full, dropping")
	}
}

// SubmitProbeTick requests that the controller thread re-probe every known
// node on its next drain. Called from an external ticker goroutine so that
// the registry itself is read only by the controller thread, never by the
// caller of this method; a tick already pending coalesces with this one.
func (fc *FleetController) SubmitProbeTick() {
	select {
	case fc.probeTicks <- struct{}{}:
	default:
	}
}

// Run connects to the coordination log and starts campaigning for
// leadership; it blocks until ctx is cancelled.
func (fc *FleetController) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	fc.mu.Lock()
	fc.cancel = cancel
	fc.mu.Unlock()

	sessionEvents, err := fc.client.Connect(ctx)
	if err != nil {
		return err
	}
	if err := fc.client.CreatePersistent(ctx, fc.cfg.Paths.LatestVersion(), []byte("0")); err != nil {
		return err
	}
	if err := fc.client.CreatePersistent(ctx, fc.cfg.Paths.PublishedStateBundle(), nil); err != nil {
		return err
	}

	go fc.watchSession(sessionEvents)

	if err := fc.elector.Campaign(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(fc.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			fc.tickIfLeader(ctx)
		}
	}
}

// Stop ends the campaign and the tick loop and closes the coordination
// client's session.
func (fc *FleetController) Stop() {
	fc.mu.Lock()
	cancel := fc.cancel
	fc.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	fc.elector.Close()
	if err := fc.client.Close(); err != nil {
		fc.log.Warn("close coordination client failed", logger.Error(err))
	}
}

// watchSession drops the leader role (via Close, which invokes
// OnResignation if currently leader) on session expiry, per spec §4.8;
// rejoining election happens the next time Run is invoked by the caller.
func (fc *FleetController) watchSession(events <-chan coordination.SessionEvent) {
	for ev := range events {
		if ev.Type == coordination.Expired {
			fc.log.Info("coordination session expired, dropping leader role")
			fc.elector.Close()
			return
		}
	}
}

// OnElected implements election.Callbacks: this replica just won the
// ballot. The tick loop (already running in Run) will find IsLeader() true
// on its next iteration; nothing further to initialize here since the
// registry and generator are created once at FleetController construction,
// not per term.
func (fc *FleetController) OnElected(_ context.Context) error {
	fc.log.Info("elected leader", logger.Int("index", fc.cfg.SelfIndex))
	fc.statistics.ElectionWins.Inc()
	return nil
}

// OnResignation implements election.Callbacks.
func (fc *FleetController) OnResignation() {
	fc.log.Info("resigned leader role", logger.Int("index", fc.cfg.SelfIndex))
	fc.statistics.ElectionLosses.Inc()
	fc.phase.Store(int32(PhaseIdle))
}

func (fc *FleetController) tickIfLeader(ctx context.Context) {
	if !fc.elector.IsLeader() {
		return
	}
	fc.tick(ctx)
}

// tick runs one pass of the leader state machine described in spec §4.6.
func (fc *FleetController) tick(ctx context.Context) {
	fc.statistics.Ticks.Inc()
	fc.drainQueues(ctx)

	fc.phase.Store(int32(PhaseGenerating))
	result := fc.generator.Generate(fc.registry, fc.current, nowMillis(), fc.feedBlock)
	if !result.Changed {
		fc.statistics.GenerationsNoChange.Inc()
		// a deferred bundle published on an earlier tick is activated once
		// the staged reports drained since then reach quorum.
		if fc.current.DeferredActivation {
			targets := fc.targets()
			if fc.activation.ReadyToActivate(fc.current.Version(), trackedIDs(targets)) {
				fc.phase.Store(int32(PhaseActivating))
				fc.activation.Activate(ctx, targets, fc.current.Version())
				fc.statistics.ActivationQuorums.Inc()
			}
		}
		fc.phase.Store(int32(PhaseIdle))
		return
	}
	fc.statistics.GenerationsChanged.Inc()
	candidate := result.Candidate

	fc.phase.Store(int32(PhaseBumpingVersion))
	newVersion, ok := fc.bumpVersion(ctx)
	if !ok {
		fc.phase.Store(int32(PhaseIdle))
		return
	}
	candidate = candidate.ClonedWithVersionSet(newVersion)

	fc.phase.Store(int32(PhasePublishingBundle))
	if !fc.publishBundle(ctx, candidate) {
		fc.phase.Store(int32(PhaseIdle))
		return
	}
	fc.statistics.BundlesPublished.Inc()
	fc.current = candidate

	targets := fc.targets()
	fc.disseminator.Disseminate(ctx, targets, candidate)

	if !candidate.DeferredActivation {
		fc.phase.Store(int32(PhaseIdle))
		return
	}

	fc.phase.Store(int32(PhaseAwaitingActivation))
	if fc.activation.ReadyToActivate(candidate.Version(), trackedIDs(targets)) {
		fc.phase.Store(int32(PhaseActivating))
		fc.activation.Activate(ctx, targets, candidate.Version())
		fc.statistics.ActivationQuorums.Inc()
	}
	fc.phase.Store(int32(PhaseIdle))
}

// drainQueues folds every queued event into the registry/feed-block state
// before this tick's generation pass, per spec §5: queues are drained at
// the start of each tick.
func (fc *FleetController) drainQueues(ctx context.Context) {
	for {
		select {
		case report := <-fc.probeReports:
			fc.registry.RecordReport(report.NodeID, report.State, report.RTTMillis, nowMillis())
		case edit := <-fc.wantedEdits:
			fc.registry.SetWanted(edit.NodeID, edit.Wanted)
		case sig := <-fc.resourceBlocks:
			fc.feedBlock = sig.FeedBlock
		case ack := <-fc.acks:
			fc.activation.OnAck(ack)
		case report := <-fc.staged:
			fc.activation.OnStaged(report.NodeID, report.Version)
		case <-fc.probeTicks:
			fc.issueProbes(ctx)
		default:
			return
		}
	}
}

// issueProbes kicks off one getNodeState probe per registered node. It only
// ever runs on the controller thread (invoked from drainQueues), reading the
// registry the same way resolveNodeState does, so an external ticker never
// touches NodeInfo or the registry's map directly (spec §5).
func (fc *FleetController) issueProbes(ctx context.Context) {
	if fc.prober == nil {
		return
	}
	for _, info := range fc.registry.GetAll() {
		fc.prober.Probe(ctx, info.ID, info.Addr, info.ReportedState)
	}
}

// bumpVersion performs the CAS-protected version increment of spec §4.6
// step 4a. On conflict it returns false; the caller re-reads and restarts
// from Generating on the next tick.
func (fc *FleetController) bumpVersion(ctx context.Context) (uint64, bool) {
	data, zVersion, err := fc.client.GetData(ctx, fc.cfg.Paths.LatestVersion())
	if err != nil {
		fc.log.Warn("read latestversion failed", logger.Error(err))
		return 0, false
	}
	current, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		current = 0
	}
	next := current + 1
	if _, err := fc.client.SetData(ctx, fc.cfg.Paths.LatestVersion(), []byte(strconv.FormatUint(next, 10)), zVersion); err != nil {
		if err == coordination.ErrCasConflict {
			fc.statistics.CasConflicts.Inc()
			fc.log.Info("latestversion CAS conflict, retrying next tick")
			return 0, false
		}
		fc.log.Warn("bump latestversion failed", logger.Error(err))
		return 0, false
	}
	return next, true
}

// publishBundle performs the CAS-protected bundle write of spec §4.6 step 4b.
func (fc *FleetController) publishBundle(ctx context.Context, candidate models.ClusterStateBundle) bool {
	_, zVersion, err := fc.client.GetData(ctx, fc.cfg.Paths.PublishedStateBundle())
	if err != nil {
		fc.log.Warn("read published_state_bundle failed", logger.Error(err))
		return false
	}
	data, err := models.EncodeBundle(candidate)
	if err != nil {
		fc.log.Warn("encode bundle failed", logger.Error(err))
		return false
	}
	if _, err := fc.client.SetData(ctx, fc.cfg.Paths.PublishedStateBundle(), data, zVersion); err != nil {
		if err == coordination.ErrCasConflict {
			fc.statistics.CasConflicts.Inc()
			fc.log.Info("published_state_bundle CAS conflict, retrying next tick")
			return false
		}
		fc.log.Warn("publish bundle failed", logger.Error(err))
		return false
	}
	return true
}

// targets resolves the current node address map from the registry.
func (fc *FleetController) targets() map[models.NodeID]string {
	nodes := fc.registry.GetAll()
	out := make(map[models.NodeID]string, len(nodes))
	for _, n := range nodes {
		out[n.ID] = n.Addr
	}
	return out
}

func nowMillis() uint64 { return uint64(time.Now().UnixMilli()) }

func trackedIDs(targets map[models.NodeID]string) []models.NodeID {
	ids := make([]models.NodeID, 0, len(targets))
	for id := range targets {
		ids = append(ids, id)
	}
	return models.SortNodeIDs(ids)
}
