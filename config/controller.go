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

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/lindb/common/pkg/logger"
	"github.com/lindb/common/pkg/ltoml"
)

// Coordination configures the binding to the ordered log service backing
// leader election and bundle publication (spec §4.5).
type Coordination struct {
	Endpoints      []string       `env:"ENDPOINTS" toml:"endpoints"`
	SessionTimeout ltoml.Duration `env:"SESSION_TIMEOUT" toml:"session-timeout"`
	DialTimeout    ltoml.Duration `env:"DIAL_TIMEOUT" toml:"dial-timeout"`
}

// TOML returns Coordination's toml config string.
func (c *Coordination) TOML() string {
	return fmt.Sprintf(`
[controller.coordination]
## Endpoints of the ordered log service (etcd) backing leader election
## and cluster state publication.
## Default: %s
## Env: LINDB_CONTROLLER_COORDINATION_ENDPOINTS
endpoints = [%s]
## Session TTL; losing the session for this long drops the leader role.
## Default: %s
## Env: LINDB_CONTROLLER_COORDINATION_SESSION_TIMEOUT
session-timeout = "%s"
## Dial timeout when first connecting.
## Default: %s
## Env: LINDB_CONTROLLER_COORDINATION_DIAL_TIMEOUT
dial-timeout = "%s"`,
		quotedList(c.Endpoints), quotedList(c.Endpoints),
		c.SessionTimeout.String(), c.SessionTimeout.String(),
		c.DialTimeout.String(), c.DialTimeout.String(),
	)
}

func quotedList(items []string) string {
	quoted := make([]string, len(items))
	for i, it := range items {
		quoted[i] = fmt.Sprintf("%q", it)
	}
	return strings.Join(quoted, ", ")
}

// Reconfigure configures ensemble reconfiguration deadlines (spec §4.6).
type Reconfigure struct {
	PerNodeTimeout ltoml.Duration `env:"PER_NODE_TIMEOUT" toml:"per-node-timeout"`
	MinTimeout     ltoml.Duration `env:"MIN_TIMEOUT" toml:"min-timeout"`
}

// TOML returns Reconfigure's toml config string.
func (r *Reconfigure) TOML() string {
	return fmt.Sprintf(`
[controller.reconfigure]
## Per-joining-node budget used to compute the reconfiguration deadline.
## Default: %s
## Env: LINDB_CONTROLLER_RECONFIGURE_PER_NODE_TIMEOUT
per-node-timeout = "%s"
## Floor applied to the computed reconfiguration deadline.
## Default: %s
## Env: LINDB_CONTROLLER_RECONFIGURE_MIN_TIMEOUT
min-timeout = "%s"`,
		r.PerNodeTimeout.String(), r.PerNodeTimeout.String(),
		r.MinTimeout.String(), r.MinTimeout.String(),
	)
}

// Controller is the root configuration for one cluster controller replica,
// covering every key enumerated in spec §6.
type Controller struct {
	ClusterName string `env:"CLUSTER_NAME" toml:"cluster-name"`
	NodeIndex   int    `env:"NODE_INDEX" toml:"node-index"`

	TickInterval ltoml.Duration `env:"TICK_INTERVAL" toml:"tick-interval"`

	MinDistributorUpRatio float64 `env:"MIN_DISTRIBUTOR_UP_RATIO" toml:"min-distributor-up-ratio"`
	MinStorageUpRatio     float64 `env:"MIN_STORAGE_UP_RATIO" toml:"min-storage-up-ratio"`

	PrematureCrashLimit   uint32         `env:"PREMATURE_CRASH_LIMIT" toml:"premature-crash-limit"`
	MaxInitProgressFreeze ltoml.Duration `env:"MAX_INIT_PROGRESS_FREEZE" toml:"max-init-progress-freeze"`
	BucketSpaces          []string       `env:"BUCKET_SPACES" toml:"bucket-spaces"`
	DeferredActivation    bool           `env:"DEFERRED_ACTIVATION" toml:"deferred-activation"`

	// ActivationQuorum has no default: spec §9's open question requires a
	// deployment to state its deferred-activation quorum policy explicitly.
	// Accepted values: "all", "majority".
	ActivationQuorum string `env:"ACTIVATION_QUORUM" toml:"activation-quorum"`

	// ElectionQuorumSize is the number of ballots (including self) that must
	// agree on a winner before a replica enters the leader role.
	ElectionQuorumSize int `env:"ELECTION_QUORUM_SIZE" toml:"election-quorum-size"`

	Topology     Topology       `envPrefix:"TOPOLOGY_" toml:"topology"`
	Coordination Coordination   `envPrefix:"COORDINATION_" toml:"coordination"`
	Reconfigure  Reconfigure    `envPrefix:"RECONFIGURE_" toml:"reconfigure"`
	Monitor      Monitor        `envPrefix:"MONITOR_" toml:"monitor"`
	Logging      logger.Setting `envPrefix:"LOGGING_" toml:"logging"`
}

// Topology describes the static fleet this controller replica watches:
// spec §3 notes a NodeInfo is created on first observation of any node "in
// config" and removed only on configuration change, so the node set itself
// is config, not something discovered over the wire.
type Topology struct {
	StorageCount       int    `env:"STORAGE_COUNT" toml:"storage-count"`
	DistributorCount   int    `env:"DISTRIBUTOR_COUNT" toml:"distributor-count"`
	StorageAddrFmt     string `env:"STORAGE_ADDR_FMT" toml:"storage-addr-fmt"`
	DistributorAddrFmt string `env:"DISTRIBUTOR_ADDR_FMT" toml:"distributor-addr-fmt"`
}

// TOML returns Topology's toml config string.
func (t *Topology) TOML() string {
	return fmt.Sprintf(`
[controller.topology]
## Static fleet topology: how many storage/distributor nodes this
## controller replica watches, and the fmt.Sprintf pattern (taking the
## node index) used to reach each one's RPC address.
## Default: %d
## Env: LINDB_CONTROLLER_TOPOLOGY_STORAGE_COUNT
storage-count = %d
## Default: %d
## Env: LINDB_CONTROLLER_TOPOLOGY_DISTRIBUTOR_COUNT
distributor-count = %d
## Default: %q
## Env: LINDB_CONTROLLER_TOPOLOGY_STORAGE_ADDR_FMT
storage-addr-fmt = %q
## Default: %q
## Env: LINDB_CONTROLLER_TOPOLOGY_DISTRIBUTOR_ADDR_FMT
distributor-addr-fmt = %q`,
		t.StorageCount, t.StorageCount,
		t.DistributorCount, t.DistributorCount,
		t.StorageAddrFmt, t.StorageAddrFmt,
		t.DistributorAddrFmt, t.DistributorAddrFmt,
	)
}

// TOML returns Controller's toml config string.
func (c *Controller) TOML() string {
	return fmt.Sprintf(`## Cluster controller configuration.
[controller]
## Logical cluster name; used as a path segment in the coordination log.
## Default: %s
## Env: LINDB_CONTROLLER_CLUSTER_NAME
cluster-name = "%s"
## This replica's controller index, used as its ballot identity.
## Default: %d
## Env: LINDB_CONTROLLER_NODE_INDEX
node-index = %d
## How often the leader re-runs the state generator absent any event.
## Default: %s
## Env: LINDB_CONTROLLER_TICK_INTERVAL
tick-interval = "%s"
## If fewer than this fraction of distributor nodes are Up, the
## cluster-wide state is Down.
## Default: %.2f
## Env: LINDB_CONTROLLER_MIN_DISTRIBUTOR_UP_RATIO
min-distributor-up-ratio = %.2f
## If fewer than this fraction of storage nodes are Up, the
## cluster-wide state is Down.
## Default: %.2f
## Env: LINDB_CONTROLLER_MIN_STORAGE_UP_RATIO
min-storage-up-ratio = %.2f
## A node whose premature-crash count (Up->Down within the crash window)
## exceeds this limit is generated as Down whatever it reports.
## Default: %d
## Env: LINDB_CONTROLLER_PREMATURE_CRASH_LIMIT
premature-crash-limit = %d
## A node stuck Initializing with unchanged progress longer than this is
## treated as Down.
## Default: %s
## Env: LINDB_CONTROLLER_MAX_INIT_PROGRESS_FREEZE
max-init-progress-freeze = "%s"
## Bucket spaces to derive per-space cluster states for, in addition to
## the baseline.
## Default: %s
## Env: LINDB_CONTROLLER_BUCKET_SPACES
bucket-spaces = [%s]
## Whether published bundles require an explicit activate() before
## taking effect.
## Default: %v
## Env: LINDB_CONTROLLER_DEFERRED_ACTIVATION
deferred-activation = %v
## Deferred-activation quorum policy, required when deferred-activation is
## true. One of "all", "majority"; no default.
## Env: LINDB_CONTROLLER_ACTIVATION_QUORUM
activation-quorum = "%s"
## Ballots (including self) that must agree on a winner before a replica
## takes the leader role.
## Default: %d
## Env: LINDB_CONTROLLER_ELECTION_QUORUM_SIZE
election-quorum-size = %d
%s
%s
%s
%s
%s`,
		c.ClusterName, c.ClusterName,
		c.NodeIndex, c.NodeIndex,
		c.TickInterval.String(), c.TickInterval.String(),
		c.MinDistributorUpRatio, c.MinDistributorUpRatio,
		c.MinStorageUpRatio, c.MinStorageUpRatio,
		c.PrematureCrashLimit, c.PrematureCrashLimit,
		c.MaxInitProgressFreeze.String(), c.MaxInitProgressFreeze.String(),
		quotedList(c.BucketSpaces), quotedList(c.BucketSpaces),
		c.DeferredActivation, c.DeferredActivation,
		c.ActivationQuorum,
		c.ElectionQuorumSize, c.ElectionQuorumSize,
		c.Topology.TOML(),
		c.Coordination.TOML(),
		c.Reconfigure.TOML(),
		c.Monitor.TOML(),
		c.Logging.TOML("LINDB_CONTROLLER"),
	)
}

// NewDefaultController returns a new default Controller config.
func NewDefaultController() *Controller {
	return &Controller{
		ClusterName:            "default",
		NodeIndex:              0,
		TickInterval:           ltoml.Duration(time.Second),
		MinDistributorUpRatio:  0.5,
		MinStorageUpRatio:      0.5,
		PrematureCrashLimit:    3,
		MaxInitProgressFreeze:  ltoml.Duration(5 * time.Minute),
		BucketSpaces:           []string{"default", "global"},
		DeferredActivation:     false,
		ActivationQuorum:       "",
		ElectionQuorumSize:     1,
		Topology: Topology{
			StorageCount:       3,
			DistributorCount:   3,
			StorageAddrFmt:     "storage-%d.cluster.local:8080",
			DistributorAddrFmt: "distributor-%d.cluster.local:8080",
		},
		Coordination: Coordination{
			Endpoints:      []string{"127.0.0.1:2379"},
			SessionTimeout: ltoml.Duration(10 * time.Second),
			DialTimeout:    ltoml.Duration(5 * time.Second),
		},
		Reconfigure: Reconfigure{
			PerNodeTimeout: ltoml.Duration(30 * time.Second),
			MinTimeout:     ltoml.Duration(time.Minute),
		},
		Monitor: *NewDefaultMonitor(),
		Logging: *logger.NewDefaultSetting(),
	}
}

// NewDefaultControllerTOML creates the controller's default toml config.
func NewDefaultControllerTOML() string {
	return NewDefaultController().TOML()
}

// checkControllerCfg fills in zero-valued fields with defaults, mirroring
// the teacher's checkStorageBaseCfg validation pattern.
func checkControllerCfg(cfg *Controller) error {
	if cfg.ClusterName == "" {
		return fmt.Errorf("controller cluster-name cannot be empty")
	}
	defaults := NewDefaultController()
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = defaults.TickInterval
	}
	if cfg.MinDistributorUpRatio <= 0 {
		cfg.MinDistributorUpRatio = defaults.MinDistributorUpRatio
	}
	if cfg.MinStorageUpRatio <= 0 {
		cfg.MinStorageUpRatio = defaults.MinStorageUpRatio
	}
	if len(cfg.Coordination.Endpoints) == 0 {
		cfg.Coordination.Endpoints = defaults.Coordination.Endpoints
	}
	if cfg.Coordination.SessionTimeout <= 0 {
		cfg.Coordination.SessionTimeout = defaults.Coordination.SessionTimeout
	}
	if cfg.Reconfigure.PerNodeTimeout <= 0 {
		cfg.Reconfigure.PerNodeTimeout = defaults.Reconfigure.PerNodeTimeout
	}
	if cfg.Reconfigure.MinTimeout <= 0 {
		cfg.Reconfigure.MinTimeout = defaults.Reconfigure.MinTimeout
	}
	if cfg.ElectionQuorumSize <= 0 {
		cfg.ElectionQuorumSize = defaults.ElectionQuorumSize
	}
	if cfg.Topology.StorageAddrFmt == "" {
		cfg.Topology.StorageAddrFmt = defaults.Topology.StorageAddrFmt
	}
	if cfg.Topology.DistributorAddrFmt == "" {
		cfg.Topology.DistributorAddrFmt = defaults.Topology.DistributorAddrFmt
	}
	if cfg.DeferredActivation {
		switch cfg.ActivationQuorum {
		case "all", "majority":
		default:
			return fmt.Errorf("controller activation-quorum must be %q or %q when deferred-activation is set, got %q",
				"all", "majority", cfg.ActivationQuorum)
		}
	}
	return nil
}

// CheckControllerCfg validates and fills in defaults for cfg, matching the
// teacher's package-level Check*Cfg convention.
func CheckControllerCfg(cfg *Controller) error {
	return checkControllerCfg(cfg)
}
