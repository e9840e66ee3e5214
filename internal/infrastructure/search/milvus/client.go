// Package milvus stores company graph embeddings and answers cosine
// nearest-neighbour queries over them.
package milvus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"

	"github.com/turtacn/TradeLink-Intelligence/internal/config"
	"github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TradeLink-Intelligence/pkg/errors"
)

// ClientFactory creates the SDK client; replaced in tests.
type ClientFactory func(ctx context.Context, conf client.Config) (client.Client, error)

var milvusNewClient ClientFactory = client.NewClient

var (
	ErrConnectionFailed = errors.New(errors.ErrCodeEmbeddingStoreError, "milvus connection failed")
	ErrUnhealthy        = errors.New(errors.ErrCodeServiceUnavailable, "milvus unhealthy")
)

// ClientConfig holds connection tunables.
type ClientConfig struct {
	Address             string
	Username            string
	Password            string
	DBName              string
	ConnectTimeout      time.Duration
	HealthCheckInterval time.Duration
	KeepAliveTime       time.Duration
	KeepAliveTimeout    time.Duration
}

// ClientConfigFrom maps the application config onto connection tunables.
func ClientConfigFrom(cfg config.MilvusConfig) ClientConfig {
	return ClientConfig{Address: cfg.Addr, DBName: cfg.DBName}
}

func (c *ClientConfig) applyDefaults() {
	if c.DBName == "" {
		c.DBName = "default"
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.HealthCheckInterval == 0 {
		c.HealthCheckInterval = 30 * time.Second
	}
	if c.KeepAliveTime == 0 {
		c.KeepAliveTime = 60 * time.Second
	}
	if c.KeepAliveTimeout == 0 {
		c.KeepAliveTimeout = 20 * time.Second
	}
}

// Client owns the SDK connection and reconnects after repeated failed
// health checks.
type Client struct {
	mu       sync.RWMutex
	milvus   client.Client
	config   ClientConfig
	logger   logging.Logger
	healthy  atomic.Bool
	cancel   context.CancelFunc
	stopOnce sync.Once
}

// NewClient dials Milvus, verifies health and starts the background probe.
func NewClient(cfg ClientConfig, log logging.Logger) (*Client, error) {
	if cfg.Address == "" {
		return nil, errors.New(errors.ErrCodeValidation, "milvus address is required")
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	cfg.applyDefaults()

	ctx, cancel := context.WithCancel(context.Background())
	mc, err := connect(ctx, cfg)
	if err != nil {
		cancel()
		return nil, errors.Wrap(err, errors.ErrCodeEmbeddingStoreError, "failed to create milvus client")
	}

	c := &Client{milvus: mc, config: cfg, logger: log.Named("milvus"), cancel: cancel}
	if err := c.CheckHealth(ctx); err != nil {
		c.Close()
		return nil, ErrConnectionFailed
	}

	go c.probe(ctx)

	c.logger.Info("milvus client connected", logging.String("address", cfg.Address))
	return c, nil
}

func connect(ctx context.Context, cfg ClientConfig) (client.Client, error) {
	conf := client.Config{
		Address:  cfg.Address,
		Username: cfg.Username,
		Password: cfg.Password,
		DBName:   cfg.DBName,
		DialOptions: []grpc.DialOption{
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpc.WithKeepaliveParams(keepalive.ClientParameters{
				Time:                cfg.KeepAliveTime,
				Timeout:             cfg.KeepAliveTimeout,
				PermitWithoutStream: true,
			}),
		},
	}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	return milvusNewClient(dialCtx, conf)
}

// CheckHealth records and returns the server health.
func (c *Client) CheckHealth(ctx context.Context) error {
	mc := c.SDK()
	if mc == nil {
		return ErrConnectionFailed
	}
	state, err := mc.CheckHealth(ctx)
	if err != nil || (state != nil && !state.IsHealthy) {
		c.healthy.Store(false)
		if err != nil {
			c.logger.Warn("milvus health check failed", logging.Err(err))
		}
		return ErrUnhealthy
	}
	c.healthy.Store(true)
	return nil
}

// IsHealthy reports the result of the last probe.
func (c *Client) IsHealthy() bool { return c.healthy.Load() }

// SDK returns the current SDK client.
func (c *Client) SDK() client.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.milvus
}

// Close stops probing and closes the connection.
func (c *Client) Close() error {
	var err error
	c.stopOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.milvus != nil {
			err = c.milvus.Close()
		}
		c.logger.Info("milvus client closed")
	})
	return err
}

func (c *Client) probe(ctx context.Context) {
	ticker := time.NewTicker(c.config.HealthCheckInterval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.CheckHealth(ctx); err == nil {
				if failures > 0 {
					c.logger.Info("milvus recovered")
				}
				failures = 0
				continue
			}
			failures++
			if failures >= 3 {
				c.logger.Warn("milvus unhealthy, reconnecting", logging.Int("failures", failures))
				if err := c.reconnect(ctx); err != nil {
					c.logger.Error("milvus reconnect failed", logging.Err(err))
					continue
				}
				failures = 0
			}
		}
	}
}

func (c *Client) reconnect(ctx context.Context) error {
	mc, err := connect(ctx, c.config)
	if err != nil {
		return err
	}
	c.mu.Lock()
	old := c.milvus
	c.milvus = mc
	c.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	return nil
}

//Personal.AI order the ending
