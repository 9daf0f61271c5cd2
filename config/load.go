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
	"os"

	"github.com/BurntSushi/toml"
	env "github.com/caarlos0/env/v7"
	"github.com/lindb/common/pkg/logger"
)

// envPrefix is the shared prefix for every environment override, matching
// the LINDB_CONTROLLER_ prefix documented in Controller.TOML.
const envPrefix = "LINDB_CONTROLLER_"

// LoadAndSetControllerConfig decodes path (falling back to defaultPath if
// path is empty; a resolved file that does not exist is skipped) into cfg,
// then applies environment
// variable overrides on top, then fills in any still-zero fields with
// defaults. Environment variables always win over the file, matching the
// precedence documented for the storage/standalone loaders this is modeled
// on.
func LoadAndSetControllerConfig(path, defaultPath string, cfg *Controller) error {
	resolved := path
	if resolved == "" {
		resolved = defaultPath
	}
	if _, err := os.Stat(resolved); err == nil {
		// the file nests the controller's own keys under [controller], next
		// to the top-level [monitor] and [logging] tables.
		file := struct {
			Controller *Controller     `toml:"controller"`
			Monitor    *Monitor        `toml:"monitor"`
			Logging    *logger.Setting `toml:"logging"`
		}{Controller: cfg, Monitor: &cfg.Monitor, Logging: &cfg.Logging}
		if _, err := toml.DecodeFile(resolved, &file); err != nil {
			return fmt.Errorf("decode controller config %s: %w", resolved, err)
		}
	}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: envPrefix}); err != nil {
		return fmt.Errorf("parse controller config env overrides: %w", err)
	}
	return CheckControllerCfg(cfg)
}
