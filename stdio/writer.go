package stdio

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"sync"

	"github.com/5dlabs/toolman-sub001/message"
)

// ErrWriterClosed is returned for writes after Close.
var ErrWriterClosed = errors.New("stdio: writer closed")

// Writer emits one compact JSON frame per line. Writes are serialized, so
// frames never interleave.
type Writer struct {
	mux    sync.Mutex
	out    io.Writer
	closed bool
}

// WriteMessage writes msg as a single line.
func (w *Writer) WriteMessage(msg *message.Message) error {
	return w.WriteLine(msg.Raw)
}

// WriteLine writes a JSON frame followed by a newline.
func (w *Writer) WriteLine(frame json.RawMessage) error {
	buf := &bytes.Buffer{}
	if err := json.Compact(buf, frame); err != nil {
		return err
	}
	buf.WriteByte('\n')
	w.mux.Lock()
	defer w.mux.Unlock()
	if w.closed {
		return ErrWriterClosed
	}
	_, err := w.out.Write(buf.Bytes())
	return err
}

// Close rejects all later writes.
func (w *Writer) Close() error {
	w.mux.Lock()
	defer w.mux.Unlock()
	w.closed = true
	return nil
}

// NewWriter creates a writer emitting frames to out.
func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out}
}
