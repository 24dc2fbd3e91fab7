package upstream

import (
	"bufio"
	"bytes"
	"io"
)

// Event is one server-sent event.
type Event struct {
	Type string
	ID   string
	Data []byte
}

// eventReader splits a text/event-stream body into events.
type eventReader struct {
	reader *bufio.Reader
}

func newEventReader(r io.Reader) *eventReader {
	return &eventReader{reader: bufio.NewReaderSize(r, 64*1024)}
}

// Next returns the next event carrying data. A pending event is dispatched
// when the stream ends without a blank line; io.EOF is returned afterwards.
func (r *eventReader) Next() (*Event, error) {
	event := &Event{}
	var data [][]byte
	for {
		line, err := r.reader.ReadBytes('\n')
		if len(line) == 0 && err != nil {
			if err == io.EOF && len(data) > 0 {
				event.Data = bytes.Join(data, []byte("\n"))
				return event, nil
			}
			return nil, err
		}
		line = bytes.TrimRight(line, "\r\n")
		if len(line) == 0 {
			if len(data) == 0 {
				event = &Event{}
				continue
			}
			event.Data = bytes.Join(data, []byte("\n"))
			return event, nil
		}
		if line[0] == ':' {
			continue
		}
		field, value := line, []byte(nil)
		if idx := bytes.IndexByte(line, ':'); idx != -1 {
			field, value = line[:idx], line[idx+1:]
			value = bytes.TrimPrefix(value, []byte(" "))
		}
		switch string(field) {
		case "data":
			data = append(data, append([]byte(nil), value...))
		case "event":
			event.Type = string(value)
		case "id":
			event.ID = string(value)
		}
		if err == io.EOF && len(data) > 0 {
			event.Data = bytes.Join(data, []byte("\n"))
			return event, nil
		}
	}
}
