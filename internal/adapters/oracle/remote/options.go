package remote

import (
	"net/http"
	"time"

	"github.com/okian/fitbert/internal/domain/oracle"
	"github.com/okian/fitbert/pkg/logger"
)

const defaultTimeout = 30 * time.Second

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

// WithModel names the model the server should use.
func WithModel(model string) Option {
	return func(c *Client) {
		c.model = model
	}
}

// WithSpecials overrides the special tokens until Info reports the server's.
func WithSpecials(sp oracle.Specials) Option {
	return func(c *Client) {
		c.specials = sp
	}
}

// WithLogger sets the client logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}
