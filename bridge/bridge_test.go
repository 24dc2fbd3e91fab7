package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/5dlabs/toolman-sub001/config"
	"github.com/5dlabs/toolman-sub001/message"
	"github.com/5dlabs/toolman-sub001/session"
)

type observed struct {
	method           string
	workingDirectory string
	sessionID        string
}

func newEchoServer(t *testing.T, seen chan<- observed) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		msg, err := message.Parse(data)
		require.NoError(t, err)
		seen <- observed{
			method:           msg.Method,
			workingDirectory: r.Header.Get(session.HeaderWorkingDirectory),
			sessionID:        r.Header.Get(session.HeaderSessionID),
		}
		if !msg.HasID() {
			w.WriteHeader(http.StatusAccepted)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"result":{"method":%q}}`, msg.ID, msg.Method)
	}))
}

func responses(t *testing.T, out string) []map[string]json.RawMessage {
	var ret []map[string]json.RawMessage
	for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		if line == "" {
			continue
		}
		item := map[string]json.RawMessage{}
		require.NoError(t, json.Unmarshal([]byte(line), &item), line)
		ret = append(ret, item)
	}
	return ret
}

func TestRun_Serve(t *testing.T) {
	seen := make(chan observed, 8)
	server := newEchoServer(t, seen)
	defer server.Close()

	dir := t.TempDir()
	input := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}` + "\n" +
		`{"jsonrpc":"2.0","method":"notifications/initialized"}` + "\n" +
		`{"jsonrpc":"2.0","id":"two","method":"tools/list"}` + "\n"
	out := &bytes.Buffer{}
	err := run(context.Background(), []string{"-u", server.URL + "/mcp", "-w", dir, "--timeout", "5s"}, strings.NewReader(input), out)
	require.NoError(t, err)

	frames := responses(t, out.String())
	require.Len(t, frames, 2)
	ids := []string{string(frames[0]["id"]), string(frames[1]["id"])}
	assert.ElementsMatch(t, []string{"1", `"two"`}, ids)

	close(seen)
	var calls []observed
	for item := range seen {
		calls = append(calls, item)
	}
	require.Len(t, calls, 3)
	for _, call := range calls {
		assert.Equal(t, session.Canonical(dir), call.workingDirectory)
		assert.NotEmpty(t, call.sessionID)
		assert.Equal(t, calls[0].sessionID, call.sessionID)
	}
}

func TestRun_ServeURL(t *testing.T) {
	var testCases = []struct {
		description string
		flag        bool
	}{
		{description: "url from environment"},
		{description: "flag wins over environment", flag: true},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			seen := make(chan observed, 1)
			server := newEchoServer(t, seen)
			defer server.Close()

			args := []string{"serve", "-w", t.TempDir()}
			if testCase.flag {
				t.Setenv("TOOLMAN_SERVER_URL", "http://127.0.0.1:1/unused")
				args = append(args, "--url", server.URL)
			} else {
				t.Setenv("TOOLMAN_SERVER_URL", server.URL)
			}
			out := &bytes.Buffer{}
			err := run(context.Background(), args, strings.NewReader(`{"jsonrpc":"2.0","id":7,"method":"ping"}`+"\n"), out)
			require.NoError(t, err)
			frames := responses(t, out.String())
			require.Len(t, frames, 1)
			assert.Equal(t, "7", string(frames[0]["id"]))
			assert.Nil(t, frames[0]["error"])
			assert.Equal(t, "ping", (<-seen).method)
		})
	}
}

func TestRun_ServeSessionConfig(t *testing.T) {
	var testCases = []struct {
		description string
		config      string
		args        []string
		expect      bool
	}{
		{description: "registry attached to initialize", config: `{"servers":{"memory":{"command":"npx","x-owner":"tools"}},"x-top":1}`, expect: true},
		{description: "opted out", config: `{"servers":{}}`, args: []string{"--no-session-config"}},
		{description: "no registry file"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			params := make(chan json.RawMessage, 1)
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				data, err := io.ReadAll(r.Body)
				require.NoError(t, err)
				msg, err := message.Parse(data)
				require.NoError(t, err)
				params <- msg.Params
				_, _ = fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"result":{}}`, msg.ID)
			}))
			defer server.Close()

			dir := t.TempDir()
			if testCase.config != "" {
				require.NoError(t, os.WriteFile(filepath.Join(dir, config.DefaultFile), []byte(testCase.config), 0o644))
			}
			args := append([]string{"-u", server.URL, "-w", dir, "--timeout", "5s"}, testCase.args...)
			input := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05"}}` + "\n"
			require.NoError(t, run(context.Background(), args, strings.NewReader(input), &bytes.Buffer{}))

			sent := map[string]json.RawMessage{}
			require.NoError(t, json.Unmarshal(<-params, &sent))
			assert.Equal(t, `"2024-11-05"`, string(sent["protocolVersion"]))
			if !testCase.expect {
				assert.NotContains(t, sent, "sessionConfig")
				return
			}
			var sessionConfig struct {
				ClientInfo struct {
					Name             string `json:"name"`
					WorkingDirectory string `json:"working_directory"`
					SessionID        string `json:"session_id"`
				} `json:"client_info"`
				Servers  json.RawMessage `json:"servers"`
				Settings struct {
					TimeoutMs int64 `json:"timeout_ms"`
				} `json:"session_settings"`
			}
			require.NoError(t, json.Unmarshal(sent["sessionConfig"], &sessionConfig))
			assert.Equal(t, "toolman", sessionConfig.ClientInfo.Name)
			assert.Equal(t, session.Canonical(dir), sessionConfig.ClientInfo.WorkingDirectory)
			assert.NotEmpty(t, sessionConfig.ClientInfo.SessionID)
			assert.JSONEq(t, `{"memory":{"command":"npx","x-owner":"tools"}}`, string(sessionConfig.Servers))
			assert.EqualValues(t, 5000, sessionConfig.Settings.TimeoutMs)
		})
	}
}

func TestRun_ServeInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.DefaultFile), []byte(`{"servers":[]}`), 0o644))
	err := run(context.Background(), []string{"-u", "http://127.0.0.1:1", "-w", dir}, strings.NewReader(""), &bytes.Buffer{})
	var configErr *config.ConfigError
	assert.ErrorAs(t, err, &configErr)
}

func TestRun_Config(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, config.DefaultFile)
	content := `{
  "servers": {
    "memory": {
      "command": "npx",
      "x-owner": "tools",
      "tools": {
        "read_graph": {"enabled": true}
      }
    }
  }
}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	ctx := context.Background()

	out := &bytes.Buffer{}
	require.NoError(t, run(ctx, []string{"config", "disable", "-w", dir, "memory", "read_graph"}, nil, out))
	assert.Equal(t, "memory/read_graph enabled=false\n", out.String())

	out.Reset()
	require.NoError(t, run(ctx, []string{"config", "disable-server", "-w", dir, "memory"}, nil, out))
	assert.Equal(t, "memory enabled=false\n", out.String())

	store, err := config.Load(ctx, dir)
	require.NoError(t, err)
	server, err := store.Server("memory")
	require.NoError(t, err)
	assert.False(t, server.Enabled)
	tool, ok := server.Tool("read_graph")
	require.True(t, ok)
	assert.False(t, tool.Enabled)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"x-owner": "tools"`)

	out.Reset()
	require.NoError(t, run(ctx, []string{"config", "list", "-w", dir}, nil, out))
	assert.Contains(t, out.String(), "memory")
	assert.Contains(t, out.String(), "-read_graph")

	err = run(ctx, []string{"config", "enable", "-w", dir, "memory", "missing"}, nil, &bytes.Buffer{})
	assert.ErrorIs(t, err, config.ErrNotFound)
}

func TestRun_Help(t *testing.T) {
	assert.NoError(t, run(context.Background(), []string{"--help"}, strings.NewReader(""), &bytes.Buffer{}))
}
