package upstream

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/5dlabs/toolman-sub001/message"
)

// Listener receives upstream messages not addressed to a pending call.
type Listener func(msg *message.Message) error

// Option configures a Client.
type Option func(c *Client)

// WithListener sets the receiver of notifications and server-initiated requests.
func WithListener(listener Listener) Option {
	return func(c *Client) {
		c.listener = listener
	}
}

// WithTimeout bounds every request; zero disables the bound.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithHTTPClient sets the HTTP client used for every upstream call.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}
