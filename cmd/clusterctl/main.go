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

// Command clusterctl runs one cluster controller replica: leader election,
// cluster state generation, CAS-protected publication and dissemination to
// content nodes.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

const (
	currentDir            = "./"
	defaultControllerFile = currentDir + "controller.toml"
	controllerLogFileName = "clusterctl.log"
)

var cfgPath string

func main() {
	root := &cobra.Command{
		Use:   "clusterctl",
		Short: "cluster controller core: leader election and cluster state generation",
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "",
		fmt.Sprintf("controller config file path, default is %s", defaultControllerFile))

	root.AddCommand(newRunCmd(), newInitConfigCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newCtxWithSignals returns a context cancelled on SIGINT/SIGTERM, the same
// shutdown trigger the teacher's runtime entrypoints use.
func newCtxWithSignals() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx
}

// checkExistenceOf refuses to overwrite an existing config file.
func checkExistenceOf(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	}
	return nil
}
