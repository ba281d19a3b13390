package database

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Options configures the datastore connection manager.
type Options struct {
	URI               string
	Database          string
	MaxStartupRetries int           // startup gives up after this many attempts
	RetryDelay        time.Duration // fixed delay between attempts, startup and steady-state
	OpTimeout         time.Duration // per connect/ping attempt
}

func (o *Options) applyDefaults() {
	if o.MaxStartupRetries <= 0 {
		o.MaxStartupRetries = 5
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = 3 * time.Second
	}
	if o.OpTimeout <= 0 {
		o.OpTimeout = 10 * time.Second
	}
}

// Manager owns the process-wide MongoDB client. It retries the initial
// connection a bounded number of times, watches server heartbeats to detect
// drops, and re-establishes connectivity in the background indefinitely. No
// other component may create or close the client, and only the manager
// toggles the connectivity flag.
type Manager struct {
	opts      Options
	logger    *zap.Logger
	client    *mongo.Client
	db        *mongo.Database
	connected atomic.Bool
	wake      chan struct{}
	cancel    context.CancelFunc
	done      chan struct{}

	// injectable for tests
	connectFn    func(ctx context.Context, monitor *event.ServerMonitor) (*mongo.Client, error)
	pingFn       func(ctx context.Context, client *mongo.Client) error
	disconnectFn func(ctx context.Context, client *mongo.Client) error
}

// NewManager builds a Manager; Start must be called before use.
func NewManager(opts Options, logger *zap.Logger) *Manager {
	opts.applyDefaults()
	m := &Manager{
		opts:   opts,
		logger: logger,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	m.connectFn = m.dialMongo
	m.pingFn = func(ctx context.Context, client *mongo.Client) error {
		return client.Ping(ctx, readpref.Primary())
	}
	m.disconnectFn = func(ctx context.Context, client *mongo.Client) error {
		return client.Disconnect(ctx)
	}
	return m
}

func (m *Manager) dialMongo(ctx context.Context, monitor *event.ServerMonitor) (*mongo.Client, error) {
	clientOpts := options.Client().
		ApplyURI(m.opts.URI).
		SetServerMonitor(monitor).
		SetServerSelectionTimeout(m.opts.OpTimeout)
	return mongo.Connect(ctx, clientOpts)
}

// Start connects with bounded retries. Exhausting the attempts is fatal for
// the caller; there is no degraded mode without a datastore.
func (m *Manager) Start(ctx context.Context) error {
	var lastErr error

	for attempt := 1; attempt <= m.opts.MaxStartupRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, m.opts.OpTimeout)
		client, err := m.connectFn(attemptCtx, m.serverMonitor())
		if err == nil {
			err = m.pingFn(attemptCtx, client)
			if err != nil {
				_ = m.disconnectFn(context.Background(), client)
			}
		}
		cancel()

		if err == nil {
			m.client = client
			if m.opts.Database != "" {
				m.db = client.Database(m.opts.Database)
			}
			m.connected.Store(true)
			m.logger.Info("Connected to MongoDB", zap.Int("attempt", attempt))

			loopCtx, loopCancel := context.WithCancel(context.Background())
			m.cancel = loopCancel
			go m.reconnectLoop(loopCtx)
			return nil
		}

		lastErr = err
		m.logger.Warn("MongoDB connection attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", m.opts.MaxStartupRetries),
			zap.Error(err))

		if attempt < m.opts.MaxStartupRetries {
			select {
			case <-time.After(m.opts.RetryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return fmt.Errorf("mongodb unreachable after %d attempts: %w", m.opts.MaxStartupRetries, lastErr)
}

func (m *Manager) serverMonitor() *event.ServerMonitor {
	return &event.ServerMonitor{
		ServerHeartbeatSucceeded: func(_ *event.ServerHeartbeatSucceededEvent) {
			if m.connected.CompareAndSwap(false, true) {
				m.logger.Info("MongoDB connectivity restored")
			}
		},
		ServerHeartbeatFailed: func(e *event.ServerHeartbeatFailedEvent) {
			if m.connected.CompareAndSwap(true, false) {
				m.logger.Warn("MongoDB heartbeat failed, scheduling reconnect", zap.Error(e.Failure))
				select {
				case m.wake <- struct{}{}:
				default:
				}
			}
		},
	}
}

// reconnectLoop pings at the fixed delay until connectivity returns. Unlike
// startup it never gives up; it only stops when the manager is closed.
func (m *Manager) reconnectLoop(ctx context.Context) {
	defer close(m.done)

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.wake:
		}

		for !m.Healthy() {
			select {
			case <-ctx.Done():
				return
			case <-time.After(m.opts.RetryDelay):
			}

			pingCtx, cancel := context.WithTimeout(ctx, m.opts.OpTimeout)
			err := m.pingFn(pingCtx, m.client)
			cancel()

			if err == nil {
				if m.connected.CompareAndSwap(false, true) {
					m.logger.Info("MongoDB connectivity restored")
				}
			} else {
				m.logger.Warn("MongoDB reconnect attempt failed", zap.Error(err))
			}
		}
	}
}

// Healthy reports current connectivity. All components other than the
// manager treat this as read-only state.
func (m *Manager) Healthy() bool {
	return m.connected.Load()
}

// Client returns the shared client.
func (m *Manager) Client() *mongo.Client {
	return m.client
}

// Database returns the configured database handle.
func (m *Manager) Database() *mongo.Database {
	return m.db
}

// Close stops the reconnect loop and releases the client.
func (m *Manager) Close(ctx context.Context) error {
	if m.cancel != nil {
		m.cancel()
		select {
		case <-m.done:
		case <-ctx.Done():
		}
	}
	if m.client == nil {
		return nil
	}
	if err := m.disconnectFn(ctx, m.client); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}
	m.logger.Info("Disconnected from MongoDB")
	return nil
}

// IsUnavailable reports whether err is a transient datastore failure that the
// caller may retry with backoff.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	return mongo.IsTimeout(err) ||
		mongo.IsNetworkError(err) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, mongo.ErrClientDisconnected)
}
