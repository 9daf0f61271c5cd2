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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDefaultController(t *testing.T) {
	cfg := NewDefaultController()
	assert.NoError(t, CheckControllerCfg(cfg))
	assert.Equal(t, "default", cfg.ClusterName)
	assert.Equal(t, "", cfg.ActivationQuorum)
	assert.Equal(t, 1, cfg.ElectionQuorumSize)
	assert.Equal(t, 3, cfg.Topology.StorageCount)
}

func TestCheckControllerCfg_EmptyClusterNameRejected(t *testing.T) {
	cfg := NewDefaultController()
	cfg.ClusterName = ""
	assert.Error(t, CheckControllerCfg(cfg))
}

func TestCheckControllerCfg_FillsDefaultsForZeroFields(t *testing.T) {
	cfg := &Controller{ClusterName: "prod"}
	err := CheckControllerCfg(cfg)
	assert.NoError(t, err)

	defaults := NewDefaultController()
	assert.Equal(t, defaults.TickInterval, cfg.TickInterval)
	assert.Equal(t, defaults.MinDistributorUpRatio, cfg.MinDistributorUpRatio)
	assert.Equal(t, defaults.MinStorageUpRatio, cfg.MinStorageUpRatio)
	assert.Equal(t, defaults.Coordination.Endpoints, cfg.Coordination.Endpoints)
	assert.Equal(t, defaults.Coordination.SessionTimeout, cfg.Coordination.SessionTimeout)
	assert.Equal(t, defaults.Reconfigure.PerNodeTimeout, cfg.Reconfigure.PerNodeTimeout)
	assert.Equal(t, defaults.Reconfigure.MinTimeout, cfg.Reconfigure.MinTimeout)
	assert.Equal(t, defaults.ElectionQuorumSize, cfg.ElectionQuorumSize)
	assert.Equal(t, defaults.Topology.StorageAddrFmt, cfg.Topology.StorageAddrFmt)
	assert.Equal(t, defaults.Topology.DistributorAddrFmt, cfg.Topology.DistributorAddrFmt)
}

func TestCheckControllerCfg_ActivationQuorumRequiredWhenDeferred(t *testing.T) {
	cfg := NewDefaultController()
	cfg.DeferredActivation = true
	cfg.ActivationQuorum = ""
	assert.Error(t, CheckControllerCfg(cfg))

	cfg.ActivationQuorum = "bogus"
	assert.Error(t, CheckControllerCfg(cfg))

	cfg.ActivationQuorum = "all"
	assert.NoError(t, CheckControllerCfg(cfg))

	cfg.ActivationQuorum = "majority"
	assert.NoError(t, CheckControllerCfg(cfg))
}

func TestCheckControllerCfg_ActivationQuorumIgnoredWhenNotDeferred(t *testing.T) {
	cfg := NewDefaultController()
	cfg.DeferredActivation = false
	cfg.ActivationQuorum = ""
	assert.NoError(t, CheckControllerCfg(cfg))
}

func TestController_TOML_ContainsEveryKey(t *testing.T) {
	out := NewDefaultController().TOML()
	for _, key := range []string{
		"cluster-name", "node-index", "tick-interval",
		"min-distributor-up-ratio", "min-storage-up-ratio",
		"premature-crash-limit", "max-init-progress-freeze",
		"bucket-spaces", "deferred-activation", "activation-quorum",
		"election-quorum-size", "storage-count", "distributor-count",
		"endpoints", "session-timeout", "per-node-timeout",
	} {
		assert.True(t, strings.Contains(out, key), "TOML output missing key %q", key)
	}
}

func TestNewDefaultControllerTOML(t *testing.T) {
	out := NewDefaultControllerTOML()
	assert.Contains(t, out, "[controller]")
}
