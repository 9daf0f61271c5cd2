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

import "errors"

var (
	// ErrCasConflict is returned by SetData/Delete when the tracked expected
	// version no longer matches the stored znode version. It is an ordinary,
	// expected outcome of concurrent leaders racing to publish, not an
	// exceptional condition: callers re-read and regenerate.
	ErrCasConflict = errors.New("coordination: conditional write lost the race, expected version is stale")

	// ErrNotFound is returned by GetData for a path with no znode.
	ErrNotFound = errors.New("coordination: path does not exist")

	// ErrReconfigInProgress is what a failed MemberAdd/MemberRemove inside
	// Reconfigurer is mapped to; Reconfigure retries it with backoff until
	// its deadline.
	ErrReconfigInProgress = errors.New("coordination: ensemble reconfiguration already in progress")

	// ErrSessionClosed names a session that has expired or been closed. No
	// Client method returns it: a write after session loss fails with the
	// error etcd itself reports, or succeeds if etcd still accepts it.
	ErrSessionClosed = errors.New("coordination: session expired or closed")
)
