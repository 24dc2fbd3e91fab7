package config

import (
	"github.com/5dlabs/toolman-sub001/upstream"
)

// Declared transports.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
	TransportSSE   = "sse"
)

// ServerEntry is a read-only view of one configured backend server.
type ServerEntry struct {
	// Name is the registry key.
	Name             string
	DisplayName      string
	Description      string
	Transport        string
	Command          string
	Args             []string
	Env              map[string]string
	URL              string
	WorkingDirectory string
	Enabled          bool
	AlwaysActive     bool
	Tools            []ToolEntry
}

// ToolEntry is a read-only view of one tool under a server.
type ToolEntry struct {
	Name    string
	Enabled bool
}

// Tool returns the named tool.
func (s *ServerEntry) Tool(name string) (ToolEntry, bool) {
	for _, tool := range s.Tools {
		if tool.Name == name {
			return tool, true
		}
	}
	return ToolEntry{}, false
}

// EffectiveTransport returns the declared transport, or derives it from the URL or command.
func (s *ServerEntry) EffectiveTransport() string {
	if s.Transport != "" {
		return s.Transport
	}
	if s.URL != "" {
		if upstream.Classify(s.URL) == upstream.EventStream {
			return TransportSSE
		}
		return TransportHTTP
	}
	if s.Command != "" {
		return TransportStdio
	}
	return ""
}

// entryFields are the members this version understands; all others stay opaque.
type entryFields struct {
	Name             *string           `json:"name"`
	Description      *string           `json:"description"`
	Transport        *string           `json:"transport"`
	Command          *string           `json:"command"`
	Args             []string          `json:"args"`
	Env              map[string]string `json:"env"`
	URL              *string           `json:"url"`
	WorkingDirectory *string           `json:"workingDirectory"`
	Enabled          *bool             `json:"enabled"`
	AlwaysActive     *bool             `json:"always_active"`
}

func deref[T any](v *T) T {
	var zero T
	if v == nil {
		return zero
	}
	return *v
}

func flag(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}
