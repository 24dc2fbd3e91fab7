// Package config loads, queries and persists the server/tool registry.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/viant/afs"
	"go.uber.org/zap"
)

const (
	// DefaultFile is the registry file name looked up in a working directory.
	DefaultFile = "servers-config.json"
	// MaxBackups is the number of backups kept next to the registry file.
	MaxBackups      = 5
	backupInfix     = ".backup."
	tempInfix       = ".tmp."
	backupTimestamp = "20060102-150405.000000000"
	staleTempAge    = time.Hour
)

// Store guards the registry with a single-writer/many-reader lock. Mutations
// stay in memory until Save.
type Store struct {
	path     string
	fs       afs.Service
	logger   *zap.Logger
	now      func() time.Time
	mux      sync.RWMutex
	saveMux  sync.Mutex
	registry *Registry
	found    bool
}

// Path returns the resolved registry file.
func (s *Store) Path() string {
	return s.path
}

// Found reports whether the registry file existed when the store was loaded.
func (s *Store) Found() bool {
	return s.found
}

// ServersDocument returns the servers object as stored, unknown members included.
func (s *Store) ServersDocument() (json.RawMessage, error) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	servers, err := s.registry.serverObjects()
	if err != nil {
		return nil, err
	}
	return json.Marshal(servers)
}

// Servers returns a snapshot of every server in registry order.
func (s *Store) Servers() []ServerEntry {
	s.mux.RLock()
	defer s.mux.RUnlock()
	servers, err := s.registry.Servers()
	if err != nil {
		// the registry is validated on load and on every mutation
		s.logger.Error("registry became undecodable", zap.Error(err))
		return nil
	}
	return servers
}

// Server returns a snapshot of one server.
func (s *Store) Server(name string) (*ServerEntry, error) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.registry.server(name)
}

// UpdateToolEnabled flips the enabled flag of one tool in memory.
func (s *Store) UpdateToolEnabled(server, tool string, enabled bool) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.registry.setToolEnabled(server, tool, enabled)
}

// UpdateServerEnabled flips the enabled flag of one server in memory.
func (s *Store) UpdateServerEnabled(server string, enabled bool) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.registry.setServerEnabled(server, enabled)
}

// Save atomically replaces the registry file: the document is written to a
// temp file in the same directory, synced, then renamed over the target. An
// existing file is backed up first. On failure the previous file is intact.
func (s *Store) Save(ctx context.Context) error {
	s.saveMux.Lock()
	defer s.saveMux.Unlock()

	s.mux.RLock()
	data, err := s.registry.encode()
	s.mux.RUnlock()
	if err != nil {
		return &IOError{Op: "encode", Path: s.path, Err: err}
	}
	if err = s.backup(ctx); err != nil {
		return &IOError{Op: "backup", Path: s.path, Err: err}
	}
	if err = s.writeAtomic(data); err != nil {
		return err
	}
	s.pruneBackups(ctx)
	return nil
}

func (s *Store) writeAtomic(data []byte) error {
	dir, base := filepath.Split(s.path)
	if dir == "" {
		dir = "."
	}
	mode := os.FileMode(0o644)
	if info, err := os.Stat(s.path); err == nil {
		mode = info.Mode().Perm()
	}
	temp, err := os.CreateTemp(dir, base+tempInfix+"*")
	if err != nil {
		return &IOError{Op: "create temp file for", Path: s.path, Err: err}
	}
	tempPath := temp.Name()
	fail := func(op string, err error) error {
		_ = temp.Close()
		_ = os.Remove(tempPath)
		return &IOError{Op: op, Path: s.path, Err: err}
	}
	if _, err = temp.Write(data); err != nil {
		return fail("write", err)
	}
	if err = temp.Sync(); err != nil {
		return fail("sync", err)
	}
	if err = temp.Chmod(mode); err != nil {
		return fail("chmod", err)
	}
	if err = temp.Close(); err != nil {
		_ = os.Remove(tempPath)
		return &IOError{Op: "close", Path: s.path, Err: err}
	}
	if err = os.Rename(tempPath, s.path); err != nil {
		_ = os.Remove(tempPath)
		return &IOError{Op: "rename", Path: s.path, Err: err}
	}
	return nil
}

func (s *Store) backup(ctx context.Context) error {
	exists, err := s.fs.Exists(ctx, s.path)
	if err != nil || !exists {
		return err
	}
	target := s.path + backupInfix + s.now().UTC().Format(backupTimestamp)
	return s.fs.Copy(ctx, s.path, target)
}

// pruneBackups keeps the newest MaxBackups backups.
func (s *Store) pruneBackups(ctx context.Context) {
	backups, err := s.siblings(ctx, backupInfix)
	if err != nil {
		s.logger.Warn("failed to list backups", zap.String("path", s.path), zap.Error(err))
		return
	}
	if len(backups) <= MaxBackups {
		return
	}
	sort.Slice(backups, func(i, j int) bool { return backups[i].name > backups[j].name })
	for _, candidate := range backups[MaxBackups:] {
		if err = s.fs.Delete(ctx, candidate.url); err != nil {
			s.logger.Warn("failed to remove backup", zap.String("backup", candidate.name), zap.Error(err))
		}
	}
}

// removeStaleTemps deletes temp files left behind by interrupted saves.
func (s *Store) removeStaleTemps(ctx context.Context) {
	temps, err := s.siblings(ctx, tempInfix)
	if err != nil {
		s.logger.Debug("failed to list temp files", zap.String("path", s.path), zap.Error(err))
		return
	}
	cutoff := s.now().Add(-staleTempAge)
	for _, candidate := range temps {
		if !candidate.modified.Before(cutoff) {
			continue
		}
		if err = s.fs.Delete(ctx, candidate.url); err != nil {
			s.logger.Warn("failed to remove stale temp file", zap.String("file", candidate.name), zap.Error(err))
			continue
		}
		s.logger.Info("removed stale temp file", zap.String("file", candidate.name))
	}
}

type sibling struct {
	name     string
	url      string
	modified time.Time
}

// siblings lists files next to the registry named <file><infix>...
func (s *Store) siblings(ctx context.Context, infix string) ([]sibling, error) {
	dir, base := filepath.Split(s.path)
	if dir == "" {
		dir = "."
	}
	objects, err := s.fs.List(ctx, dir)
	if err != nil {
		return nil, err
	}
	prefix := base + infix
	var ret []sibling
	for _, object := range objects {
		if object.IsDir() || !strings.HasPrefix(object.Name(), prefix) {
			continue
		}
		ret = append(ret, sibling{name: object.Name(), url: object.URL(), modified: object.ModTime()})
	}
	return ret, nil
}

// ResolvePath maps a working-directory hint to the registry file: a .json
// hint is used as is, any other hint is a directory, and no hint means the
// current directory.
func ResolvePath(hint string) (string, error) {
	switch {
	case strings.HasSuffix(hint, ".json"):
	case hint != "":
		hint = filepath.Join(hint, DefaultFile)
	default:
		hint = DefaultFile
	}
	return filepath.Abs(hint)
}

// Load resolves the registry file from hint and reads it. A missing file
// yields an empty registry.
func Load(ctx context.Context, hint string, options ...Option) (*Store, error) {
	path, err := ResolvePath(hint)
	if err != nil {
		return nil, &ConfigError{Path: hint, Err: err}
	}
	ret := &Store{
		path:   path,
		fs:     afs.New(),
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range options {
		opt(ret)
	}
	ret.removeStaleTemps(ctx)
	exists, err := ret.fs.Exists(ctx, path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	if !exists {
		ret.logger.Info("no config file, starting with an empty registry", zap.String("path", path))
		ret.registry = newRegistry()
		return ret, nil
	}
	data, err := ret.fs.DownloadWithURL(ctx, path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: fmt.Errorf("failed to read: %w", err)}
	}
	if ret.registry, err = parseRegistry(data); err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	ret.found = true
	return ret, nil
}
