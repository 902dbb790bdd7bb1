// Package whatsapp sends relay messages through the Twilio WhatsApp API.
package whatsapp

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kart-io/guidebot/pkg/relay"
	"github.com/kart-io/guidebot/pkg/utils/httpclient"
)

const (
	// DefaultBaseURL is the Twilio REST API root.
	DefaultBaseURL = "https://api.twilio.com"
	// AddressPrefix marks a Twilio WhatsApp address.
	AddressPrefix = "whatsapp:"
)

// Config holds the Twilio credentials and sender.
type Config struct {
	BaseURL    string
	AccountSID string
	AuthToken  string
	From       string
	Timeout    time.Duration
	MaxRetries int
}

// Client is a Twilio WhatsApp relay.
type Client struct {
	config *Config
	client *httpclient.Client
}

// New creates a Client. Missing credentials are reported here rather than on first send.
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("whatsapp: config is required")
	}
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("whatsapp: account sid and auth token are required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		config: cfg,
		client: httpclient.NewClient(cfg.Timeout, cfg.MaxRetries),
	}, nil
}

// Address turns a phone number into a WhatsApp address. Already-prefixed
// values are returned unchanged; an empty number yields "".
func Address(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" || strings.HasPrefix(phone, AddressPrefix) {
		return phone
	}
	return AddressPrefix + phone
}

// Name implements relay.Relay.
func (c *Client) Name() string { return "whatsapp" }

// From returns the configured sender address.
func (c *Client) From() string { return Address(c.config.From) }

type messageResponse struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

// Send posts msg to the Twilio Messages endpoint. An empty msg.From uses the
// configured sender.
func (c *Client) Send(ctx context.Context, msg relay.Message) error {
	to := Address(msg.To)
	if to == "" {
		return relay.ErrNoDestination
	}
	from := Address(msg.From)
	if from == "" {
		from = c.From()
	}

	form := url.Values{}
	form.Set("From", from)
	form.Set("To", to)
	form.Set("Body", msg.Body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json",
		strings.TrimRight(c.config.BaseURL, "/"), url.PathEscape(c.config.AccountSID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("whatsapp: failed to create request: %w", err)
	}
	req.SetBasicAuth(c.config.AccountSID, c.config.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	var resp messageResponse
	if err := c.client.DoJSON(req, &resp); err != nil {
		return fmt.Errorf("whatsapp: send failed: %w", err)
	}
	return nil
}

var _ relay.Relay = (*Client)(nil)
