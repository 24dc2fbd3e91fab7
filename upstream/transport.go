package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/5dlabs/toolman-sub001/message"
)

const (
	contentTypeJSON        = "application/json"
	contentTypeEventStream = "text/event-stream"
	maxBodySize            = 32 * 1024 * 1024
)

// transport is the wire behavior selected once per endpoint.
type transport interface {
	// roundTrip sends msg and fulfils call with the correlated response.
	roundTrip(ctx context.Context, call *Call, msg *message.Message) error
	// post sends a frame that expects no correlated response.
	post(ctx context.Context, msg *message.Message) error
}

// directTransport reads exactly one response per POST.
type directTransport struct {
	client *Client
}

func (t *directTransport) roundTrip(ctx context.Context, call *Call, msg *message.Message) error {
	resp, err := t.client.do(ctx, msg, contentTypeJSON+", "+contentTypeEventStream)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if isEventStream(resp) {
		return t.client.consumeStream(call, resp.Body)
	}
	return t.client.consumeResponse(call, resp.Body)
}

func (t *directTransport) post(ctx context.Context, msg *message.Message) error {
	return t.client.postOneWay(ctx, msg)
}

// streamTransport reads a server-sent event stream per POST until the
// response for the originating id arrives.
type streamTransport struct {
	client *Client
}

func (t *streamTransport) roundTrip(ctx context.Context, call *Call, msg *message.Message) error {
	resp, err := t.client.do(ctx, msg, contentTypeEventStream)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if hasMediaType(resp, contentTypeJSON) {
		return t.client.consumeResponse(call, resp.Body)
	}
	return t.client.consumeStream(call, resp.Body)
}

func (t *streamTransport) post(ctx context.Context, msg *message.Message) error {
	return t.client.postOneWay(ctx, msg)
}

// do posts msg and fails on a non-success status.
func (c *Client) do(ctx context.Context, msg *message.Message, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.session.URL, bytes.NewReader(msg.Raw))
	if err != nil {
		return nil, err
	}
	c.decorate(req)
	req.Header.Set("Accept", accept)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	c.captureSession(resp)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		ret := &TransportError{Op: "request", StatusCode: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
		if text := strings.TrimSpace(string(data)); text != "" {
			ret.Err = fmt.Errorf("%s: %s", http.StatusText(resp.StatusCode), text)
		}
		if msg.HasID() {
			ret.ID = msg.ID
		}
		return nil, ret
	}
	return resp, nil
}

// postOneWay sends a frame and delivers whatever the endpoint answers with.
func (c *Client) postOneWay(ctx context.Context, msg *message.Message) error {
	resp, err := c.do(ctx, msg, contentTypeJSON+", "+contentTypeEventStream)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if isEventStream(resp) {
		err = c.consumeStream(nil, resp.Body)
		if err == ErrStreamClosed {
			return nil
		}
		return err
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	reply, err := message.Parse(body)
	if err != nil {
		malformedTotal.Inc()
		c.logger.Debug("ignoring unparseable reply to one-way frame", zap.Error(err))
		return nil
	}
	c.deliver(reply)
	return nil
}

// consumeResponse reads a body holding exactly one response for call.
func (c *Client) consumeResponse(call *Call, body io.Reader) error {
	data, err := io.ReadAll(io.LimitReader(body, maxBodySize))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	reply, err := message.Parse(data)
	if err != nil {
		malformedTotal.Inc()
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if reply.Kind != message.KindResponse {
		return fmt.Errorf("expected response, got %v", reply.Kind)
	}
	if reply.Key() != call.key {
		return fmt.Errorf("%w: got %s", ErrIDMismatch, reply.ID)
	}
	c.finish(call, reply, nil)
	return nil
}

// consumeStream reads events until the response for call arrives. Every other
// message is routed through deliver. With a nil call the whole stream is read.
func (c *Client) consumeStream(call *Call, body io.Reader) error {
	reader := newEventReader(body)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			return ErrStreamClosed
		}
		if err != nil {
			return fmt.Errorf("failed to read event stream: %w", err)
		}
		if event.Type != "" && event.Type != "message" {
			c.logger.Debug("skipping event", zap.String("type", event.Type))
			continue
		}
		msg, err := message.Parse(event.Data)
		if err != nil {
			malformedTotal.Inc()
			c.logger.Warn("skipping malformed event", zap.Error(err))
			continue
		}
		if call != nil && msg.Kind == message.KindResponse && msg.Key() == call.key {
			c.finish(call, msg, nil)
			return nil
		}
		c.deliver(msg)
	}
}

func isEventStream(resp *http.Response) bool {
	return hasMediaType(resp, contentTypeEventStream)
}

func hasMediaType(resp *http.Response, expect string) bool {
	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	return err == nil && mediaType == expect
}
