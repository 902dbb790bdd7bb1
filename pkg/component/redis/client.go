// Package redis wraps the go-redis client used by the embedding cache.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/kart-io/guidebot/pkg/component/storage"
	options "github.com/kart-io/guidebot/pkg/options/redis"
)

// Client wraps goredis.Client.
type Client struct {
	client *goredis.Client
	opts   *options.Options
}

var _ storage.Client = (*Client)(nil)

// New creates the client and pings the server.
func New(ctx context.Context, opts *options.Options) (*Client, error) {
	if opts == nil {
		return nil, fmt.Errorf("redis options cannot be nil")
	}
	if errs := opts.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid redis options: %w", utilerrors.NewAggregate(errs))
	}

	rdb := goredis.NewClient(newRedisOptions(opts))
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &Client{client: rdb, opts: opts}, nil
}

func newRedisOptions(opts *options.Options) *goredis.Options {
	return &goredis.Options{
		Addr:         opts.Addr(),
		Password:     opts.Password,
		DB:           opts.Database,
		MaxRetries:   opts.MaxRetries,
		PoolSize:     opts.PoolSize,
		MinIdleConns: opts.MinIdleConns,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		PoolTimeout:  opts.PoolTimeout,
	}
}

// Name implements storage.Client.
func (c *Client) Name() string {
	return "redis"
}

// Ping implements storage.Client.
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close implements storage.Client.
func (c *Client) Close() error {
	err := c.client.Close()
	if err == goredis.ErrClosed {
		return nil
	}
	return err
}

// Client returns the underlying go-redis client. It satisfies llm.RedisCmdable.
func (c *Client) Client() *goredis.Client {
	return c.client
}

// PoolStats reports connection pool counters.
func (c *Client) PoolStats() *goredis.PoolStats {
	return c.client.PoolStats()
}

// Latency measures one round trip.
func (c *Client) Latency(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	err := c.Ping(ctx)
	return time.Since(start), err
}
