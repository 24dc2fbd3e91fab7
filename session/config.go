package session

import (
	"encoding/json"
	"time"
)

// Client identity announced in the session configuration.
const (
	ClientName    = "toolman"
	ClientVersion = "1.0.0"
)

const (
	defaultMaxConcurrent = 10
	defaultAutoStart     = true
)

// Config is the per-session configuration attached to an outbound initialize
// request so the server can resolve the project's backends.
type Config struct {
	ClientInfo ClientInfo      `json:"client_info"`
	Servers    json.RawMessage `json:"servers"`
	Settings   Settings        `json:"session_settings"`
}

// ClientInfo identifies the bridge process.
type ClientInfo struct {
	Name             string  `json:"name"`
	Version          string  `json:"version"`
	WorkingDirectory *string `json:"working_directory"`
	SessionID        *string `json:"session_id"`
}

// Settings tunes how the server handles the session.
type Settings struct {
	TimeoutMs     int64 `json:"timeout_ms"`
	MaxConcurrent int   `json:"max_concurrent"`
	AutoStart     bool  `json:"auto_start"`
}

// Config builds the session configuration for the servers document and the
// request timeout.
func (c *Context) Config(servers json.RawMessage, timeout time.Duration) *Config {
	if len(servers) == 0 {
		servers = json.RawMessage("{}")
	}
	ret := &Config{
		ClientInfo: ClientInfo{Name: ClientName, Version: ClientVersion},
		Servers:    servers,
		Settings: Settings{
			TimeoutMs:     timeout.Milliseconds(),
			MaxConcurrent: defaultMaxConcurrent,
			AutoStart:     defaultAutoStart,
		},
	}
	if c.WorkingDirectory != "" {
		ret.ClientInfo.WorkingDirectory = &c.WorkingDirectory
	}
	if c.SessionID != "" {
		ret.ClientInfo.SessionID = &c.SessionID
	}
	return ret
}
