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

// Package coordination binds the cluster controller to an external ordered
// log service providing sessions, ephemeral nodes, persistent nodes with
// integer version stamps, watches and conditional writes. The binding here
// targets etcd, the ordered-log service the teacher module already depends
// on for its own coordinator package.
package coordination

import (
	"context"
	"time"

	"github.com/lindb/common/pkg/logger"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/concurrency"
)

//go:generate mockgen -source=./client.go -destination=./client_mock.go -package=coordination

// SessionEventType is the kind of session-lifecycle event delivered on the
// channel returned by Connect.
type SessionEventType int

const (
	SyncConnected SessionEventType = iota
	Disconnected
	Expired
)

// SessionEvent is one session-lifecycle transition.
type SessionEvent struct {
	Type SessionEventType
}

// WatchEvent is one change observed on a watched path.
type WatchEvent struct {
	Key     string
	Value   []byte
	Deleted bool
}

// Client is the small surface the cluster controller core needs from the
// ordered-log service, per spec §4.5.
type Client interface {
	// Connect establishes a session and returns a channel of session events.
	// The channel is closed when the client is closed.
	Connect(ctx context.Context) (<-chan SessionEvent, error)
	// CreateEphemeral creates a znode tied to the session; it is deleted on
	// session loss.
	CreateEphemeral(ctx context.Context, path string, data []byte) error
	// CreatePersistent creates a znode that outlives the session.
	// Idempotent: an existing znode at path is left untouched.
	CreatePersistent(ctx context.Context, path string, data []byte) error
	// SetData performs a conditional write: it succeeds only if the znode's
	// current version equals expectedVersion, else returns ErrCasConflict.
	SetData(ctx context.Context, path string, data []byte, expectedVersion int64) (newVersion int64, err error)
	// GetData returns the current value and version of path.
	GetData(ctx context.Context, path string) (data []byte, version int64, err error)
	// ListChildren returns path's children, optionally watching for
	// subsequent changes.
	ListChildren(ctx context.Context, path string, watch bool) (children []string, events <-chan WatchEvent, err error)
	// Delete performs a conditional delete.
	Delete(ctx context.Context, path string, expectedVersion int64) error
	// Close releases the session; any ephemeral znodes created by it vanish.
	Close() error
}

// Config configures the etcd-backed Client.
type Config struct {
	Endpoints      []string
	SessionTimeout time.Duration
	DialTimeout    time.Duration
}

type etcdClient struct {
	cfg     Config
	raw     *clientv3.Client
	session *concurrency.Session
	log     logger.Logger
	events  chan SessionEvent
}

// NewClient creates an etcd-backed Client. Connect must be called before any
// other method.
func NewClient(cfg Config) Client {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	return &etcdClient{cfg: cfg, log: logger.GetLogger("Coordination", "Client")}
}

func (c *etcdClient) Connect(ctx context.Context) (<-chan SessionEvent, error) {
	raw, err := clientv3.New(clientv3.Config{
		Endpoints:   c.cfg.Endpoints,
		DialTimeout: c.cfg.DialTimeout,
	})
	if err != nil {
		return nil, err
	}
	ttl := int(c.cfg.SessionTimeout / time.Second)
	if ttl <= 0 {
		ttl = 10
	}
	session, err := concurrency.NewSession(raw, concurrency.WithTTL(ttl), concurrency.WithContext(ctx))
	if err != nil {
		_ = raw.Close()
		return nil, err
	}
	c.raw = raw
	c.session = session
	c.events = make(chan SessionEvent, 8)
	c.events <- SessionEvent{Type: SyncConnected}

	go c.watchSession()

	return c.events, nil
}

// watchSession forwards session.Done() (which fires on lease expiry or
// session.Close) as an Expired event. etcd's lease keep-alive already
// retries transient disconnects internally; we surface only the terminal
// loss, matching the Disconnected/Expired split in spec §4.5.
func (c *etcdClient) watchSession() {
	<-c.session.Done()
	select {
	case c.events <- SessionEvent{Type: Expired}:
	default:
	}
	close(c.events)
}

func (c *etcdClient) CreateEphemeral(ctx context.Context, path string, data []byte) error {
	_, err := c.raw.Put(ctx, path, string(data), clientv3.WithLease(c.session.Lease()))
	return err
}

func (c *etcdClient) CreatePersistent(ctx context.Context, path string, data []byte) error {
	_, _, err := c.GetData(ctx, path)
	if err == nil {
		return nil // idempotent on already-exists
	}
	if err != ErrNotFound {
		return err
	}
	_, err = c.raw.Put(ctx, path, string(data))
	return err
}

func (c *etcdClient) SetData(ctx context.Context, path string, data []byte, expectedVersion int64) (int64, error) {
	txn := c.raw.Txn(ctx).
		If(clientv3.Compare(clientv3.ModRevision(path), "=", expectedVersion)).
		Then(clientv3.OpPut(path, string(data))).
		Else(clientv3.OpGet(path))
	resp, err := txn.Commit()
	if err != nil {
		return 0, err
	}
	if !resp.Succeeded {
		return 0, ErrCasConflict
	}
	return resp.Header.Revision, nil
}

func (c *etcdClient) GetData(ctx context.Context, path string) ([]byte, int64, error) {
	resp, err := c.raw.Get(ctx, path)
	if err != nil {
		return nil, 0, err
	}
	if len(resp.Kvs) == 0 {
		return nil, 0, ErrNotFound
	}
	kv := resp.Kvs[0]
	return kv.Value, kv.ModRevision, nil
}

func (c *etcdClient) ListChildren(ctx context.Context, path string, watch bool) ([]string, <-chan WatchEvent, error) {
	resp, err := c.raw.Get(ctx, path, clientv3.WithPrefix())
	if err != nil {
		return nil, nil, err
	}
	children := make([]string, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		children = append(children, string(kv.Key))
	}

	if !watch {
		return children, nil, nil
	}

	out := make(chan WatchEvent, 16)
	watchCh := c.raw.Watch(ctx, path, clientv3.WithPrefix())
	go func() {
		defer close(out)
		for resp := range watchCh {
			for _, ev := range resp.Events {
				out <- WatchEvent{
					Key:     string(ev.Kv.Key),
					Value:   ev.Kv.Value,
					Deleted: ev.Type == clientv3.EventTypeDelete,
				}
			}
		}
	}()
	return children, out, nil
}

func (c *etcdClient) Delete(ctx context.Context, path string, expectedVersion int64) error {
	txn := c.raw.Txn(ctx).
		If(clientv3.Compare(clientv3.ModRevision(path), "=", expectedVersion)).
		Then(clientv3.OpDelete(path))
	resp, err := txn.Commit()
	if err != nil {
		return err
	}
	if !resp.Succeeded {
		return ErrCasConflict
	}
	return nil
}

func (c *etcdClient) Close() error {
	if c.session != nil {
		_ = c.session.Close()
	}
	if c.raw != nil {
		return c.raw.Close()
	}
	return nil
}
