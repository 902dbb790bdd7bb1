// Package mongodb wraps the MongoDB driver client used by the guide store.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	mongoopts "go.mongodb.org/mongo-driver/mongo/options"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/kart-io/guidebot/pkg/component/storage"
	options "github.com/kart-io/guidebot/pkg/options/mongodb"
)

// Client wraps mongo.Client bound to the configured database.
//
//	client, err := mongodb.New(ctx, opts)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	coll := client.Collection(opts.Collection)
type Client struct {
	client   *mongo.Client
	database *mongo.Database
	opts     *options.Options
}

var _ storage.Client = (*Client)(nil)

// New connects and pings. The context bounds connection establishment.
func New(ctx context.Context, opts *options.Options) (*Client, error) {
	if opts == nil {
		return nil, fmt.Errorf("mongodb options cannot be nil")
	}
	if errs := opts.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid mongodb options: %w", utilerrors.NewAggregate(errs))
	}

	clientOpts := mongoopts.Client().ApplyURI(opts.BuildURI())
	if opts.MaxPoolSize > 0 {
		clientOpts.SetMaxPoolSize(opts.MaxPoolSize)
	}
	if opts.MinPoolSize > 0 {
		clientOpts.SetMinPoolSize(opts.MinPoolSize)
	}
	if opts.MaxConnIdleTime > 0 {
		clientOpts.SetMaxConnIdleTime(opts.MaxConnIdleTime)
	}
	if opts.ConnectTimeout > 0 {
		clientOpts.SetConnectTimeout(opts.ConnectTimeout)
	}
	if opts.ServerSelectionTimeout > 0 {
		clientOpts.SetServerSelectionTimeout(opts.ServerSelectionTimeout)
	}
	if opts.Direct {
		clientOpts.SetDirect(true)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &Client{
		client:   client,
		database: client.Database(opts.Database),
		opts:     opts,
	}, nil
}

// Name implements storage.Client.
func (c *Client) Name() string {
	return "mongodb"
}

// Ping implements storage.Client.
func (c *Client) Ping(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("mongodb client is nil")
	}
	return c.client.Ping(ctx, nil)
}

// Close disconnects. Safe to call more than once.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := c.client.Disconnect(ctx)
	if err == mongo.ErrClientDisconnected {
		return nil
	}
	return err
}

// Database returns the configured database.
func (c *Client) Database() *mongo.Database {
	return c.database
}

// Collection returns a collection of the configured database.
func (c *Client) Collection(name string) *mongo.Collection {
	return c.database.Collection(name)
}
