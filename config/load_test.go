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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadAndSetControllerConfig_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg := NewDefaultController()
	err := LoadAndSetControllerConfig("", filepath.Join(t.TempDir(), "does-not-exist.toml"), cfg)
	assert.NoError(t, err)
	assert.Equal(t, "default", cfg.ClusterName)
}

func TestLoadAndSetControllerConfig_DecodesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "controller.toml")
	assert.NoError(t, os.WriteFile(path, []byte(`
[controller]
cluster-name = "from-file"
node-index = 2
`), 0o600))

	cfg := NewDefaultController()
	err := LoadAndSetControllerConfig(path, "", cfg)
	assert.NoError(t, err)
	assert.Equal(t, "from-file", cfg.ClusterName)
	assert.Equal(t, 2, cfg.NodeIndex)
}

func TestLoadAndSetControllerConfig_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "controller.toml")
	assert.NoError(t, os.WriteFile(path, []byte(`
[controller]
cluster-name = "from-file"
`), 0o600))

	t.Setenv("LINDB_CONTROLLER_CLUSTER_NAME", "from-env")

	cfg := NewDefaultController()
	err := LoadAndSetControllerConfig(path, "", cfg)
	assert.NoError(t, err)
	assert.Equal(t, "from-env", cfg.ClusterName)
}

func TestLoadAndSetControllerConfig_ValidatesAfterLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "controller.toml")
	assert.NoError(t, os.WriteFile(path, []byte(`
[controller]
cluster-name = ""
`), 0o600))

	cfg := NewDefaultController()
	err := LoadAndSetControllerConfig(path, "", cfg)
	assert.Error(t, err)
}
