// Package upstream forwards JSON-RPC frames to the remote aggregation
// endpoint over plain HTTP or a server-sent event stream.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/5dlabs/toolman-sub001/internal/collection"
	"github.com/5dlabs/toolman-sub001/message"
	"github.com/5dlabs/toolman-sub001/session"
)

// DefaultTimeout bounds a request when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// Client correlates requests with responses across concurrent upstream calls.
type Client struct {
	session    *session.Context
	kind       Kind
	transport  transport
	httpClient *http.Client
	timeout    time.Duration
	listener   Listener
	logger     *zap.Logger
	pending    *collection.SyncMap[string, *Call]
	mcpSession atomic.Value
}

// Send forwards a request and returns its pending handle. A request whose id
// is already outstanding is rejected.
func (c *Client) Send(ctx context.Context, msg *message.Message) (*Call, error) {
	if msg.Kind != message.KindRequest {
		return nil, fmt.Errorf("upstream: cannot send %v as a request", msg.Kind)
	}
	call := newCall(msg)
	if !c.pending.PutIfAbsent(call.key, call) {
		return nil, &TransportError{ID: msg.ID, Op: "send", Err: ErrDuplicateID}
	}
	go c.run(ctx, call, msg)
	return call, nil
}

// Post forwards a frame that expects no response, such as a notification or
// the reply to a server-initiated request.
func (c *Client) Post(ctx context.Context, msg *message.Message) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	err := c.transport.post(ctx, msg)
	if err != nil {
		return c.transportError(ctx, msg, "post", err)
	}
	return nil
}

// Kind returns the transport in use.
func (c *Client) Kind() Kind {
	return c.kind
}

// Pending returns the number of outstanding requests.
func (c *Client) Pending() int {
	return c.pending.Len()
}

func (c *Client) run(ctx context.Context, call *Call, msg *message.Message) {
	started := time.Now()
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	err := c.transport.roundTrip(ctx, call, msg)
	if err != nil {
		c.finish(call, nil, c.transportError(ctx, msg, "request", err))
	} else if !call.isDone() {
		c.finish(call, nil, &TransportError{ID: msg.ID, Op: "request", Err: ErrStreamClosed})
	}
	_, result := call.Result()
	recordOutcome(c.kind, result)
	requestDuration.WithLabelValues(c.kind.String()).Observe(time.Since(started).Seconds())
	if result != nil {
		c.logger.Warn("upstream request failed", zap.String("method", msg.Method), zap.ByteString("id", msg.ID), zap.Error(result))
	}
}

// finish removes call from the in-flight table before fulfilling it, so the
// id can be reused as soon as the caller observes the outcome.
func (c *Client) finish(call *Call, response *message.Message, err error) bool {
	c.pending.DeleteIf(call.key, func(v *Call) bool { return v == call })
	return call.complete(response, err)
}

func (c *Client) transportError(ctx context.Context, msg *message.Message, op string, err error) error {
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		if transportErr.ID == nil && msg.HasID() {
			transportErr.ID = msg.ID
		}
		return transportErr
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	ret := &TransportError{Op: op, Err: err}
	if msg.HasID() {
		ret.ID = msg.ID
	}
	return ret
}

// deliver routes an upstream message: responses go to their pending call by
// id, everything else to the listener.
func (c *Client) deliver(msg *message.Message) {
	if msg.Kind == message.KindResponse {
		if call, ok := c.pending.Get(msg.Key()); ok && c.finish(call, msg, nil) {
			return
		}
		unsolicitedTotal.WithLabelValues(msg.Kind.String()).Inc()
		c.logger.Warn("dropping uncorrelated upstream response", zap.ByteString("id", msg.ID))
		return
	}
	unsolicitedTotal.WithLabelValues(msg.Kind.String()).Inc()
	if c.listener == nil {
		c.logger.Debug("no listener for upstream message", zap.String("method", msg.Method))
		return
	}
	if err := c.listener(msg); err != nil {
		c.logger.Warn("failed to deliver upstream message", zap.String("method", msg.Method), zap.Error(err))
	}
}

func (c *Client) decorate(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.session.WorkingDirectory != "" {
		req.Header.Set(session.HeaderWorkingDirectory, c.session.WorkingDirectory)
	}
	if c.session.SessionID != "" {
		req.Header.Set(session.HeaderSessionID, c.session.SessionID)
	}
	if id, _ := c.mcpSession.Load().(string); id != "" {
		req.Header.Set(session.HeaderMcpSessionID, id)
	}
}

func (c *Client) captureSession(resp *http.Response) {
	if id := resp.Header.Get(session.HeaderMcpSessionID); id != "" {
		c.mcpSession.Store(id)
	}
}

// New creates a client for the session endpoint.
func New(sess *session.Context, options ...Option) *Client {
	ret := &Client{
		session:    sess,
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		logger:     zap.NewNop(),
		pending:    collection.NewSyncMap[string, *Call](),
	}
	for _, opt := range options {
		opt(ret)
	}
	ret.kind = Classify(sess.URL)
	switch ret.kind {
	case EventStream:
		ret.transport = &streamTransport{client: ret}
	default:
		ret.transport = &directTransport{client: ret}
	}
	return ret
}
