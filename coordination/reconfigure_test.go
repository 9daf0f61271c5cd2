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

package coordination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReconfigurer_Deadline(t *testing.T) {
	r := NewReconfigurer(nil, 30*time.Second, 10*time.Second)

	// joining*perNodeTimeout below minTimeout: minTimeout wins.
	assert.Equal(t, 30*time.Second, r.Deadline(1))

	// joining*perNodeTimeout above minTimeout: that wins, rounded up to whole seconds.
	assert.Equal(t, 50*time.Second, r.Deadline(5))

	assert.Equal(t, 30*time.Second, r.Deadline(0))
}

func TestReconfigurer_DeadlineRoundsUp(t *testing.T) {
	r := NewReconfigurer(nil, time.Second, 1500*time.Millisecond)
	// 3 * 1.5s = 4.5s, ceil'd to 5s.
	assert.Equal(t, 5*time.Second, r.Deadline(3))
}
