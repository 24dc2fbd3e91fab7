// Package session holds the per-process context the bridge attaches to every
// upstream call.
package session

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Header names carried on every upstream call.
const (
	HeaderWorkingDirectory = "X-Working-Directory"
	HeaderSessionID        = "X-Session-ID"
	HeaderMcpSessionID     = "Mcp-Session-Id"
)

// DefaultURL is the upstream endpoint used when none is configured.
const DefaultURL = "http://localhost:3000"

// WorkspaceEnv lists the IDE variables consulted, in order, when workspace detection is on.
var WorkspaceEnv = []string{
	"WORKSPACE_FOLDER_PATHS",
	"WORKSPACE_FOLDER",
	"TASK_MASTER_PROJECT_ROOT",
	"VSCODE_CWD",
	"PROJECT_ROOT",
}

// Context is immutable once created.
type Context struct {
	URL              string
	WorkingDirectory string
	SessionID        string
}

// New creates a context for url and an already resolved working directory.
func New(url, workingDirectory string) *Context {
	if url == "" {
		url = DefaultURL
	}
	return &Context{URL: url, WorkingDirectory: workingDirectory, SessionID: uuid.NewString()}
}

// Resolver resolves the working directory reported upstream.
type Resolver struct {
	// DetectWorkspace enables the IDE environment chain.
	DetectWorkspace bool
	// ProjectRoot climbs to the enclosing git worktree root.
	ProjectRoot bool
	lookupEnv   func(string) (string, bool)
	getwd       func() (string, error)
}

// Resolve returns the canonical working directory for hint.
func (r *Resolver) Resolve(hint string) string {
	dir := hint
	if dir == "" && r.DetectWorkspace {
		dir = r.fromEnv()
	}
	if dir == "" {
		getwd := r.getwd
		if getwd == nil {
			getwd = os.Getwd
		}
		if wd, err := getwd(); err == nil {
			dir = wd
		}
	}
	if dir == "" {
		return ""
	}
	dir = Canonical(dir)
	if r.ProjectRoot {
		if root, ok := GitRoot(dir); ok {
			dir = Canonical(root)
		}
	}
	return dir
}

func (r *Resolver) fromEnv() string {
	lookup := r.lookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	for _, name := range WorkspaceEnv {
		value, ok := lookup(name)
		if !ok {
			continue
		}
		if value = strings.TrimSpace(value); value != "" {
			return value
		}
	}
	return ""
}

// Canonical returns an absolute, symlink-free path, or dir itself when it cannot be resolved.
func Canonical(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return dir
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return dir
	}
	return resolved
}
