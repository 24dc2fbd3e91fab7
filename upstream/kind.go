package upstream

import (
	"net/url"
	"strings"
)

// Kind is the wire behavior of an upstream endpoint.
type Kind int

const (
	// Direct posts one request and reads one response body.
	Direct Kind = iota
	// EventStream posts one request and reads a text/event-stream body.
	EventStream
)

func (k Kind) String() string {
	if k == EventStream {
		return "sse"
	}
	return "http"
}

// Classify selects the wire behavior for endpoint. Only a URL whose last path
// segment is exactly "sse" and which carries no query is an EventStream.
func Classify(endpoint string) Kind {
	u, err := url.Parse(endpoint)
	if err != nil {
		return Direct
	}
	if u.RawQuery != "" || u.ForceQuery {
		return Direct
	}
	path := u.EscapedPath()
	idx := strings.LastIndex(path, "/")
	if idx == -1 {
		return Direct
	}
	if path[idx+1:] == "sse" {
		return EventStream
	}
	return Direct
}
