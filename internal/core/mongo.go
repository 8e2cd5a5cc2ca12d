// AngelaMos | 2026
// mongo.go

package core

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"golang.org/x/sync/singleflight"

	"github.com/carterperez-dev/car-rental-backend/internal/config"
)

var ErrMongoDisabled = errors.New("mongo not configured")

// Mongo is the optional document store handle. The client is dialed on
// first use and cached only after a successful ping, so an unreachable
// server is retried on a later call instead of poisoning the process.
// Concurrent callers share one in-flight dial and none waits past its own
// ConnectTimeout.
type Mongo struct {
	cfg    config.MongoConfig
	mu     sync.RWMutex
	client *mongo.Client
	dial   singleflight.Group
}

func NewMongo(cfg config.MongoConfig) *Mongo {
	return &Mongo{cfg: cfg}
}

func (m *Mongo) Enabled() bool {
	return m != nil && m.cfg.Enabled()
}

func (m *Mongo) Database(ctx context.Context) (*mongo.Database, error) {
	client, err := m.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Database(m.cfg.Database), nil
}

func (m *Mongo) Client(ctx context.Context) (*mongo.Client, error) {
	if !m.Enabled() {
		return nil, ErrMongoDisabled
	}

	if client := m.cached(); client != nil {
		return client, nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, m.cfg.ConnectTimeout)
	defer cancel()

	ch := m.dial.DoChan("connect", func() (any, error) {
		return m.connect(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*mongo.Client), nil
	case <-waitCtx.Done():
		return nil, fmt.Errorf("connect to mongo: %w", waitCtx.Err())
	}
}

func (m *Mongo) cached() *mongo.Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client
}

func (m *Mongo) connect(ctx context.Context) (*mongo.Client, error) {
	if client := m.cached(); client != nil {
		return client, nil
	}

	opts := options.Client().
		ApplyURI(m.cfg.URL).
		SetConnectTimeout(m.cfg.ConnectTimeout).
		SetServerSelectionTimeout(m.cfg.ConnectTimeout)

	connectCtx, cancel := context.WithTimeout(ctx, m.cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		//nolint:errcheck // cleanup on connection failure
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client != nil {
		//nolint:errcheck // lost a race with Close and a redial
		_ = client.Disconnect(ctx)
		return m.client, nil
	}
	m.client = client
	return client, nil
}

func (m *Mongo) Ping(ctx context.Context) error {
	client, err := m.Client(ctx)
	if err != nil {
		return err
	}

	pingCtx, cancel := context.WithTimeout(ctx, m.cfg.ConnectTimeout)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongo ping failed: %w", err)
	}

	return nil
}

func (m *Mongo) Close(ctx context.Context) error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client == nil {
		return nil
	}

	err := m.client.Disconnect(ctx)
	m.client = nil
	if err != nil {
		return fmt.Errorf("disconnect mongo: %w", err)
	}
	return nil
}
