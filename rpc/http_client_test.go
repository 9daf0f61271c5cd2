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
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lindb/clustercontroller/models"
)

func TestHTTPContentNodeClient_SetSystemState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, setSystemStatePath, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"staged_version":7}`))
	}))
	defer srv.Close()

	client := NewHTTPClientFactory().ClientFor(srv.URL)
	result, err := client.SetSystemState(context.Background(), models.EmptyBaseline())
	assert.NoError(t, err)
	assert.Equal(t, uint64(7), result.StagedVersion)
}

func TestHTTPContentNodeClient_SetSystemState_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewHTTPClientFactory().ClientFor(srv.URL)
	_, err := client.SetSystemState(context.Background(), models.EmptyBaseline())
	assert.Error(t, err)
}

func TestHTTPContentNodeClient_ActivateSystemState(t *testing.T) {
	var gotVersion string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, activateSystemStatePath, r.URL.Path)
		gotVersion = r.URL.Query().Get("version")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewHTTPClientFactory().ClientFor(srv.URL)
	err := client.ActivateSystemState(context.Background(), 42)
	assert.NoError(t, err)
	assert.Equal(t, "42", gotVersion)
}

func TestHTTPContentNodeClient_GetNodeState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, getNodeStatePath, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"state":"s:u.b:3.c:100"}`))
	}))
	defer srv.Close()

	client := NewHTTPClientFactory().ClientFor(srv.URL)
	st, err := client.GetNodeState(context.Background(), models.UpState())
	assert.NoError(t, err)
	assert.Equal(t, models.Up, st.State)
}

func TestHTTPContentNodeClient_GetNodeState_TransportError(t *testing.T) {
	client := NewHTTPClientFactory().ClientFor("http://127.0.0.1:0")
	_, err := client.GetNodeState(context.Background(), models.UpState())
	assert.Error(t, err)
}
