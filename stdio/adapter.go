// Package stdio serves newline-delimited JSON-RPC on a local stream and
// forwards every frame upstream.
package stdio

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/viant/jsonrpc"
	"github.com/viant/mcp-protocol/schema"
	"go.uber.org/zap"

	"github.com/5dlabs/toolman-sub001/message"
	"github.com/5dlabs/toolman-sub001/upstream"
)

// Upstream forwards frames to the remote endpoint.
type Upstream interface {
	Send(ctx context.Context, msg *message.Message) (*upstream.Call, error)
	Post(ctx context.Context, msg *message.Message) error
}

const (
	methodToolsListChanged = "notifications/tools/list_changed"
	sessionConfigParam     = "sessionConfig"
	postQueueSize          = 64
)

// Adapter reads frames one line at a time and services each request
// concurrently. Every request id gets at most one response line.
type Adapter struct {
	upstream Upstream
	writer   *Writer
	logger   *zap.Logger
	drain    time.Duration
	filter   *Filter
	defaults bool
	announce bool
	session  any
	inflight atomic.Int64
}

// Serve runs until in is exhausted, then waits up to the drain window for
// outstanding requests. Requests still pending afterwards are abandoned and
// the writer is closed so no late line reaches the output.
func (a *Adapter) Serve(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if a.announce {
		a.announceTools()
	}
	wg := &sync.WaitGroup{}
	posts := make(chan *message.Message, postQueueSize)
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.forward(ctx, posts)
	}()
	reader := bufio.NewReaderSize(in, 1024*1024)
	var readErr error
	for {
		line, err := reader.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			a.dispatch(ctx, line, wg, posts)
		}
		if err != nil {
			if err != io.EOF {
				readErr = err
				a.logger.Error("failed to read input", zap.Error(err))
			}
			break
		}
		if ctx.Err() != nil {
			break
		}
	}
	close(posts)
	a.wait(wg)
	_ = a.writer.Close()
	cancel()
	return readErr
}

func (a *Adapter) wait(wg *sync.WaitGroup) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	if a.drain <= 0 {
		select {
		case <-done:
		default:
			a.logger.Warn("abandoning outstanding requests", zap.Int64("count", a.inflight.Load()))
		}
		return
	}
	timer := time.NewTimer(a.drain)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		a.logger.Warn("drain window elapsed, abandoning outstanding requests", zap.Int64("count", a.inflight.Load()))
	}
}

func (a *Adapter) dispatch(ctx context.Context, line []byte, wg *sync.WaitGroup, posts chan<- *message.Message) {
	msg, err := message.Parse(line)
	if err != nil {
		a.reject(err)
		return
	}
	switch msg.Kind {
	case message.KindRequest:
		wg.Add(1)
		a.inflight.Add(1)
		go func() {
			defer wg.Done()
			defer a.inflight.Add(-1)
			a.serveRequest(ctx, msg)
		}()
	default:
		select {
		case posts <- msg:
		case <-ctx.Done():
		}
	}
}

// forward posts one-way frames in arrival order, off the read loop.
func (a *Adapter) forward(ctx context.Context, posts <-chan *message.Message) {
	for msg := range posts {
		if err := a.upstream.Post(ctx, msg); err != nil {
			a.logger.Warn("failed to forward frame", zap.Stringer("kind", msg.Kind), zap.String("method", msg.Method), zap.Error(err))
		}
	}
}

func (a *Adapter) reject(err error) {
	var parseErr *message.ParseError
	if !errors.As(err, &parseErr) || !parseErr.HasID() {
		a.logger.Warn("dropping malformed input line", zap.Error(err))
		return
	}
	a.write(message.NewErrorResponse(parseErr.ID, parseErr.RPCError()))
}

func (a *Adapter) serveRequest(ctx context.Context, msg *message.Message) {
	outbound := msg
	if msg.Method == schema.MethodInitialize && a.session != nil {
		withSession, err := msg.WithParam(sessionConfigParam, a.session)
		if err != nil {
			a.logger.Warn("forwarding initialize without session config", zap.Error(err))
		} else {
			outbound = withSession
		}
	}
	call, err := a.upstream.Send(ctx, outbound)
	if err != nil {
		if errors.Is(err, upstream.ErrDuplicateID) {
			a.logger.Warn("dropping request reusing an outstanding id", zap.ByteString("id", msg.ID), zap.String("method", msg.Method))
			return
		}
		a.writeError(msg, err)
		return
	}
	response, err := call.Wait(ctx)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		a.writeError(msg, err)
		return
	}
	if msg.Method == schema.MethodToolsList {
		response = a.rewriteTools(response)
	}
	a.write(response)
}

func (a *Adapter) rewriteTools(response *message.Message) *message.Message {
	if a.filter != nil {
		filtered, removed, err := a.filter.Apply(response)
		if err != nil {
			a.logger.Warn("failed to filter tools", zap.Error(err))
			return response
		}
		if len(removed) > 0 {
			a.logger.Debug("filtered tools", zap.Strings("removed", removed))
		}
		response = filtered
	}
	if a.defaults {
		completed, names, err := completeTools(response)
		if err != nil {
			a.logger.Warn("failed to complete tools", zap.Error(err))
			return response
		}
		if len(names) > 0 {
			a.logger.Debug("completed tool definitions", zap.Strings("tools", names))
		}
		response = completed
	}
	return response
}

func (a *Adapter) writeError(msg *message.Message, err error) {
	a.write(message.NewErrorResponse(msg.ID, jsonrpc.NewInternalError(err.Error(), nil)))
}

func (a *Adapter) write(msg *message.Message) {
	if err := a.writer.WriteMessage(msg); err != nil {
		if errors.Is(err, ErrWriterClosed) {
			a.logger.Debug("output closed, discarding frame", zap.ByteString("id", msg.ID))
			return
		}
		a.logger.Error("failed to write frame", zap.Error(err))
	}
}

func (a *Adapter) announceTools() {
	notification, err := message.NewNotification(methodToolsListChanged, nil)
	if err != nil {
		return
	}
	a.write(notification)
}

// New creates an adapter forwarding to up and writing to writer.
func New(up Upstream, writer *Writer, options ...Option) *Adapter {
	ret := &Adapter{
		upstream: up,
		writer:   writer,
		logger:   zap.NewNop(),
		drain:    upstream.DefaultTimeout,
	}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}
