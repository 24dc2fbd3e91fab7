package upstream

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/5dlabs/toolman-sub001/message"
)

// Call is the pending handle of one outstanding request. It is fulfilled
// exactly once, by a response or by an error.
type Call struct {
	ID       json.RawMessage
	key      string
	done     chan struct{}
	once     sync.Once
	response *message.Message
	err      error
}

func newCall(msg *message.Message) *Call {
	return &Call{ID: msg.ID, key: msg.Key(), done: make(chan struct{})}
}

// complete fulfils the call; it reports false when the call was already fulfilled.
func (c *Call) complete(response *message.Message, err error) bool {
	fulfilled := false
	c.once.Do(func() {
		c.response = response
		c.err = err
		fulfilled = true
		close(c.done)
	})
	return fulfilled
}

// Done is closed once the call is fulfilled.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Result returns the outcome; it must only be called after Done is closed.
func (c *Call) Result() (*message.Message, error) {
	return c.response, c.err
}

// Wait blocks until the call is fulfilled or ctx ends.
func (c *Call) Wait(ctx context.Context) (*message.Message, error) {
	select {
	case <-c.done:
		return c.Result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Call) isDone() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}
