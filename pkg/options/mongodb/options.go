// Package mongodb provides MongoDB connection options for the guide store.
//
// Configuration Example (YAML):
//
//	mongodb:
//	  uri: ""
//	  host: "127.0.0.1"
//	  port: 27017
//	  database: "guidebot"
//	  collection: "guides"
//
// Environment Variables:
//
//	GUIDEBOT_MONGODB_URI      - Full connection string, wins over host/port
//	GUIDEBOT_MONGODB_PASSWORD - Password
package mongodb

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/guidebot/pkg/options"
)

// redactedPassword is the placeholder used when printing passwords.
const redactedPassword = "[REDACTED]"

// DefaultCollection is the collection holding guide passages.
const DefaultCollection = "guides"

var _ options.IOptions = (*Options)(nil)

// Options defines configuration options for MongoDB.
type Options struct {
	// Connection
	URI        string `json:"uri" mapstructure:"uri"`
	Host       string `json:"host" mapstructure:"host"`
	Port       int    `json:"port" mapstructure:"port"`
	Username   string `json:"username" mapstructure:"username"`
	Password   string `json:"-" mapstructure:"password"`
	Database   string `json:"database" mapstructure:"database"`
	Collection string `json:"collection" mapstructure:"collection"`

	// Connection Pool
	MaxPoolSize     uint64        `json:"max-pool-size" mapstructure:"max-pool-size"`
	MinPoolSize     uint64        `json:"min-pool-size" mapstructure:"min-pool-size"`
	MaxConnIdleTime time.Duration `json:"max-conn-idle-time" mapstructure:"max-conn-idle-time"`

	// Timeouts
	ConnectTimeout         time.Duration `json:"connect-timeout" mapstructure:"connect-timeout"`
	ServerSelectionTimeout time.Duration `json:"server-selection-timeout" mapstructure:"server-selection-timeout"`

	// Other
	ReplicaSet string `json:"replica-set" mapstructure:"replica-set"`
	AuthSource string `json:"auth-source" mapstructure:"auth-source"`
	Direct     bool   `json:"direct" mapstructure:"direct"`
}

// NewOptions creates a new Options object with default values.
func NewOptions() *Options {
	return &Options{
		Host:                   "127.0.0.1",
		Port:                   27017,
		Database:               "guidebot",
		Collection:             DefaultCollection,
		MaxPoolSize:            50,
		MinPoolSize:            0,
		MaxConnIdleTime:        5 * time.Minute,
		ConnectTimeout:         10 * time.Second,
		ServerSelectionTimeout: 10 * time.Second,
		AuthSource:             "admin",
	}
}

// String returns a string representation with password redacted.
func (o *Options) String() string {
	password := redactedPassword
	if o.Password == "" {
		password = ""
	}
	return fmt.Sprintf("MongoDB{host=%s, port=%d, user=%s, password=%s, database=%s, collection=%s}",
		o.Host, o.Port, o.Username, password, o.Database, o.Collection)
}

// Complete fills in any fields not set that are required to have valid data.
func (o *Options) Complete() error {
	if o.Collection == "" {
		o.Collection = DefaultCollection
	}
	return nil
}

// Validate checks if the options are valid.
func (o *Options) Validate() []error {
	var errs []error

	if o.Database == "" {
		errs = append(errs, fmt.Errorf("mongodb.database is required"))
	}
	if o.URI != "" {
		if !strings.HasPrefix(o.URI, "mongodb://") && !strings.HasPrefix(o.URI, "mongodb+srv://") {
			errs = append(errs, fmt.Errorf("mongodb.uri must start with mongodb:// or mongodb+srv://"))
		}
		return errs
	}
	if o.Host == "" {
		errs = append(errs, fmt.Errorf("mongodb.host is required when uri is not provided"))
	}
	if o.Port <= 0 || o.Port > 65535 {
		errs = append(errs, fmt.Errorf("mongodb.port must be between 1 and 65535, got: %d", o.Port))
	}
	if o.MinPoolSize > o.MaxPoolSize && o.MaxPoolSize > 0 {
		errs = append(errs, fmt.Errorf("mongodb.min-pool-size (%d) exceeds max-pool-size (%d)", o.MinPoolSize, o.MaxPoolSize))
	}

	return errs
}

// AddFlags adds flags for MongoDB options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "mongodb."
	fs.StringVar(&o.URI, p+"uri", o.URI, "MongoDB URI (mongodb://...), overrides host and port")
	fs.StringVar(&o.Host, p+"host", o.Host, "MongoDB host")
	fs.IntVar(&o.Port, p+"port", o.Port, "MongoDB port")
	fs.StringVar(&o.Username, p+"username", o.Username, "MongoDB username")
	fs.StringVar(&o.Password, p+"password", o.Password, "MongoDB password (prefer GUIDEBOT_MONGODB_PASSWORD)")
	fs.StringVar(&o.Database, p+"database", o.Database, "MongoDB database")
	fs.StringVar(&o.Collection, p+"collection", o.Collection, "Collection holding guide passages")
	fs.Uint64Var(&o.MaxPoolSize, p+"max-pool-size", o.MaxPoolSize, "MongoDB max pool size")
	fs.Uint64Var(&o.MinPoolSize, p+"min-pool-size", o.MinPoolSize, "MongoDB min pool size")
	fs.DurationVar(&o.MaxConnIdleTime, p+"max-conn-idle-time", o.MaxConnIdleTime, "MongoDB max connection idle time")
	fs.DurationVar(&o.ConnectTimeout, p+"connect-timeout", o.ConnectTimeout, "MongoDB connect timeout")
	fs.DurationVar(&o.ServerSelectionTimeout, p+"server-selection-timeout", o.ServerSelectionTimeout, "MongoDB server selection timeout")
	fs.StringVar(&o.ReplicaSet, p+"replica-set", o.ReplicaSet, "MongoDB replica set")
	fs.StringVar(&o.AuthSource, p+"auth-source", o.AuthSource, "MongoDB auth source")
	fs.BoolVar(&o.Direct, p+"direct", o.Direct, "MongoDB direct connection")
}

// BuildURI returns URI when set, otherwise assembles one from the discrete fields.
func (o *Options) BuildURI() string {
	if o.URI != "" {
		return o.URI
	}

	var uri strings.Builder
	uri.WriteString("mongodb://")

	if o.Username != "" {
		uri.WriteString(url.QueryEscape(o.Username))
		if o.Password != "" {
			uri.WriteString(":")
			uri.WriteString(url.QueryEscape(o.Password))
		}
		uri.WriteString("@")
	}

	uri.WriteString(o.Host)
	if o.Port != 0 {
		fmt.Fprintf(&uri, ":%d", o.Port)
	}
	uri.WriteString("/")
	uri.WriteString(o.Database)

	params := url.Values{}
	if o.Username != "" && o.AuthSource != "" && o.AuthSource != "admin" {
		params.Add("authSource", o.AuthSource)
	}
	if o.ReplicaSet != "" {
		params.Add("replicaSet", o.ReplicaSet)
	}
	if o.Direct {
		params.Add("directConnection", "true")
	}
	if len(params) > 0 {
		uri.WriteString("?")
		uri.WriteString(params.Encode())
	}

	return uri.String()
}
