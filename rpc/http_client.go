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

package rpc

import (
	"context"
	"fmt"
	"strconv"

	resty "github.com/go-resty/resty/v2"
	"github.com/lindb/common/pkg/logger"

	"github.com/lindb/clustercontroller/models"
)

const (
	setSystemStatePath      = "/api/v1/cluster/state"
	activateSystemStatePath = "/api/v1/cluster/state/activate"
	getNodeStatePath        = "/api/v1/cluster/state/node"
)

// nodeStateResponse is the wire shape of a getNodeState reply: the node's
// reported fragment in the same "s:<c>[.b:<n>][.c:<n>]" form used by the
// bundle envelope, so a single parser serves both.
type nodeStateResponse struct {
	State string `json:"state"`
}

// httpClientFactory creates a new resty-backed ContentNodeClient on every
// ClientFor call, the way the teacher's internal/client package issues one resty request
// per target node rather than pooling connections itself.
type httpClientFactory struct{}

// NewHTTPClientFactory returns a ClientFactory whose clients speak the HTTP
// wire contract of spec §6 over resty.
func NewHTTPClientFactory() ClientFactory {
	return &httpClientFactory{}
}

func (f *httpClientFactory) ClientFor(addr string) ContentNodeClient {
	return &httpContentNodeClient{
		addr: addr,
		cli:  resty.New(),
		log:  logger.GetLogger("RPC", "HTTPClient"),
	}
}

type httpContentNodeClient struct {
	addr string
	cli  *resty.Client
	log  logger.Logger
}

func (c *httpContentNodeClient) SetSystemState(ctx context.Context, bundle models.ClusterStateBundle) (SetStateResult, error) {
	body, err := models.EncodeBundle(bundle)
	if err != nil {
		return SetStateResult{}, err
	}

	var result struct {
		StagedVersion uint64 `json:"staged_version"`
	}
	resp, err := c.cli.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&result).
		Post(c.addr + setSystemStatePath)
	if err != nil {
		c.log.Warn("setSystemState request failed", logger.String("addr", c.addr), logger.Error(err))
		return SetStateResult{}, err
	}
	if resp.IsError() {
		return SetStateResult{}, fmt.Errorf("setSystemState to %s: %s", c.addr, resp.Status())
	}
	return SetStateResult{StagedVersion: result.StagedVersion}, nil
}

func (c *httpContentNodeClient) ActivateSystemState(ctx context.Context, version uint64) error {
	resp, err := c.cli.R().
		SetContext(ctx).
		SetQueryParam("version", strconv.FormatUint(version, 10)).
		Post(c.addr + activateSystemStatePath)
	if err != nil {
		c.log.Warn("activateSystemState request failed", logger.String("addr", c.addr), logger.Error(err))
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("activateSystemState to %s: %s", c.addr, resp.Status())
	}
	return nil
}

func (c *httpContentNodeClient) GetNodeState(ctx context.Context, expected models.NodeState) (models.NodeState, error) {
	var result nodeStateResponse
	resp, err := c.cli.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParam("expected", expected.String()).
		SetResult(&result).
		Get(c.addr + getNodeStatePath)
	if err != nil {
		return models.NodeState{}, err
	}
	if resp.IsError() {
		return models.NodeState{}, fmt.Errorf("getNodeState from %s: %s", c.addr, resp.Status())
	}
	return models.ParseNodeStateFragment(result.State), nil
}
