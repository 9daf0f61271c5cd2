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
	"github.com/jedib0t/go-pretty/v6/table"
)

// Status renders a human-readable snapshot of this replica for an admin CLI
// or HTTP handler.
func (fc *FleetController) Status() string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Field", "Value"})
	t.AppendRow(table.Row{"Leader", fc.IsLeader()})
	t.AppendRow(table.Row{"Phase", fc.Phase().String()})
	t.AppendRow(table.Row{"Current version", fc.current.Version()})
	t.AppendRow(table.Row{"Deferred activation", fc.current.DeferredActivation})
	t.AppendRow(table.Row{"Feed blocked", fc.feedBlock.Blocked()})

	stats := fc.statistics
	t.AppendSeparator()
	t.AppendRow(table.Row{"Ticks", stats.Ticks.Load()})
	t.AppendRow(table.Row{"Generations changed", stats.GenerationsChanged.Load()})
	t.AppendRow(table.Row{"Generations no-change", stats.GenerationsNoChange.Load()})
	t.AppendRow(table.Row{"CAS conflicts", stats.CasConflicts.Load()})
	t.AppendRow(table.Row{"Bundles published", stats.BundlesPublished.Load()})
	t.AppendRow(table.Row{"Election wins", stats.ElectionWins.Load()})
	t.AppendRow(table.Row{"Election losses", stats.ElectionLosses.Load()})
	t.AppendRow(table.Row{"Activation quorums", stats.ActivationQuorums.Load()})
	t.AppendRow(table.Row{"Activation timeouts", stats.ActivationTimeouts.Load()})

	return t.Render()
}

// NodesStatus renders the currently known nodes and their resolved state.
func (fc *FleetController) NodesStatus() string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Node", "Wanted", "Reported", "Premature crashes"})
	for _, info := range fc.registry.GetAll() {
		t.AppendRow(table.Row{info.ID.String(), info.WantedState.String(), info.ReportedState.String(), info.PrematureCrashCount})
	}
	return t.Render()
}
