// Copyright 2026 Siya Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package backends

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/syia/fleetgate/pkg/config"
)

// mongoDialer creates and pings a driver client. Swapped in tests.
type mongoDialer func(ctx context.Context, cfg *config.MongoClusterConfig) (*mongo.Client, error)

func dialMongo(ctx context.Context, cfg *config.MongoClusterConfig) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(cfg.ConnectionString()).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetTimeout(cfg.SocketTimeout).
		SetMaxPoolSize(cfg.MaxPoolSize)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping failed: %w", err)
	}
	return client, nil
}

// MongoHandle is a lazily connected document-store connection.
type MongoHandle struct {
	connState

	key      Key
	cfg      *config.MongoClusterConfig
	attempts int
	delay    time.Duration
	sleep    SleepFunc
	dial     mongoDialer

	connectMu sync.Mutex
	client    *mongo.Client
}

// NewMongoHandle builds an unconnected handle for the named cluster.
func NewMongoHandle(name string, cfg *config.MongoClusterConfig) *MongoHandle {
	return &MongoHandle{
		key: Key{
			Endpoint:  cfg.ConnectionString(),
			Namespace: cfg.Database,
			Name:      name,
		},
		cfg:      cfg,
		attempts: DefaultConnectAttempts,
		delay:    DefaultConnectDelay,
		sleep:    realSleep,
		dial:     dialMongo,
	}
}

func (h *MongoHandle) Key() Key {
	return h.key
}

// Connect establishes the connection. Concurrent callers block on the same
// connect sequence; once connected it is a no-op.
func (h *MongoHandle) Connect(ctx context.Context) error {
	h.connectMu.Lock()
	defer h.connectMu.Unlock()

	if h.client != nil && h.State() == StateConnected {
		return nil
	}

	h.setState(StateConnecting)
	var client *mongo.Client
	err := connectWithRetry(ctx, h.key, h.attempts, h.delay, h.sleep, func(ctx context.Context) error {
		c, derr := h.dial(ctx, h.cfg)
		if derr != nil {
			return derr
		}
		client = c
		return nil
	})
	if err != nil {
		h.setState(StateFailed)
		return err
	}

	h.client = client
	h.setState(StateConnected)
	h.markChecked(time.Now())
	return nil
}

// Client returns the driver client, connecting on first use.
func (h *MongoHandle) Client(ctx context.Context) (*mongo.Client, error) {
	if err := h.Connect(ctx); err != nil {
		return nil, err
	}
	h.connectMu.Lock()
	defer h.connectMu.Unlock()
	return h.client, nil
}

// Database returns the named logical database, defaulting to the cluster's
// configured one when name is empty.
func (h *MongoHandle) Database(ctx context.Context, name string) (*mongo.Database, error) {
	client, err := h.Client(ctx)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = h.cfg.Database
	}
	return client.Database(name), nil
}

// Collection returns a collection in the cluster's default database.
func (h *MongoHandle) Collection(ctx context.Context, name string) (*mongo.Collection, error) {
	db, err := h.Database(ctx, "")
	if err != nil {
		return nil, err
	}
	return db.Collection(name), nil
}

// Ping probes the server. A failed probe marks the handle Failed but does
// not tear it down; the next probe may recover it.
func (h *MongoHandle) Ping(ctx context.Context) error {
	h.connectMu.Lock()
	client := h.client
	h.connectMu.Unlock()

	if client == nil {
		return fmt.Errorf("not connected")
	}

	h.markChecked(time.Now())
	if err := client.Ping(ctx, nil); err != nil {
		h.setState(StateFailed)
		return err
	}
	h.setState(StateConnected)
	return nil
}

func (h *MongoHandle) Close(ctx context.Context) error {
	h.connectMu.Lock()
	defer h.connectMu.Unlock()

	if h.client == nil {
		return nil
	}
	err := h.client.Disconnect(ctx)
	h.client = nil
	h.setState(StateDisconnected)
	return err
}
