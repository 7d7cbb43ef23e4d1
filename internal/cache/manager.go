// Package cache keeps one record-store snapshot per configuration, keyed by
// a cheap fingerprint of the source file, and orchestrates asynchronous
// (re)parsing with observable per-configuration status. Parsed snapshots
// are persisted so an unchanged file never parses twice across restarts.
package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/rs/zerolog"

	"github.com/agentic-research/panlens/api"
	"github.com/agentic-research/panlens/internal/store"
)

// Fingerprint identifies one version of a source file. Size+mtime is cheap
// enough to check on every access.
type Fingerprint struct {
	Size  int64
	MTime int64
}

// ParseFunc is the parse+aggregate primitive the manager wraps.
type ParseFunc func(name string, r io.Reader) (*store.Snapshot, error)

// RehydrateFunc restores derived state (summaries) on a snapshot loaded
// from the persistence layer, which stores records only.
type RehydrateFunc func(snap *store.Snapshot)

// Config wires a Manager.
type Config struct {
	FS        billy.Filesystem // source files, paths relative to root
	DB        *sql.DB          // optional persistent snapshot cache
	Parse     ParseFunc
	Rehydrate RehydrateFunc
	Log       zerolog.Logger
}

type entry struct {
	status    api.Status
	err       error
	fp        Fingerprint
	container *store.Container
	inflight  bool
}

// Manager owns the per-configuration cache entries. The lock is held only
// around the check-and-possibly-start-parse decision, never around parsing.
type Manager struct {
	cfg     Config
	mu      sync.Mutex
	entries map[string]*entry

	// parses counts invocations of the parse primitive; persisted-cache
	// hits do not count. Exposed for tests.
	parses atomic.Int64
}

func NewManager(cfg Config) *Manager {
	return &Manager{cfg: cfg, entries: make(map[string]*entry)}
}

// Snapshot returns the current snapshot and status for a configuration,
// starting a background parse when none exists or the fingerprint moved.
// The returned snapshot may be a stale-but-servable predecessor while a
// refresh is in flight, and is nil while the first load runs. The error is
// non-nil only for a Failed entry (or an unreadable source file).
func (m *Manager) Snapshot(config string) (*store.Snapshot, api.Status, error) {
	fi, err := m.cfg.FS.Stat(config)
	if err != nil {
		return nil, "", fmt.Errorf("stat %s: %w", config, err)
	}
	fp := Fingerprint{Size: fi.Size(), MTime: fi.ModTime().UnixNano()}

	m.mu.Lock()
	e, ok := m.entries[config]
	if !ok {
		e = &entry{status: api.StatusLoading, container: store.NewContainer(), inflight: true, fp: fp}
		m.entries[config] = e
		go m.load(config, fp)
		m.mu.Unlock()
		return nil, api.StatusLoading, nil
	}
	if e.fp != fp && !e.inflight {
		// Stale entry: kick off a refresh. The old snapshot keeps serving
		// until the replacement completes.
		e.fp = fp
		e.status = api.StatusLoading
		e.err = nil
		e.inflight = true
		go m.load(config, fp)
	}
	snap := e.container.Load()
	status, loadErr := e.status, e.err
	m.mu.Unlock()
	return snap, status, loadErr
}

// Status reports the parse lifecycle stage for one configuration. ok is
// false when the configuration has never been requested.
func (m *Manager) Status(config string) (api.Status, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[config]
	if !ok {
		return "", false, nil
	}
	return e.status, true, e.err
}

// StatusAll returns the status of every known configuration.
func (m *Manager) StatusAll() map[string]api.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]api.Status, len(m.entries))
	for name, e := range m.entries {
		out[name] = e.status
	}
	return out
}

// Retry restarts a failed load without waiting for a fingerprint change.
func (m *Manager) Retry(config string) error {
	fi, err := m.cfg.FS.Stat(config)
	if err != nil {
		return fmt.Errorf("stat %s: %w", config, err)
	}
	fp := Fingerprint{Size: fi.Size(), MTime: fi.ModTime().UnixNano()}

	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[config]
	if !ok || e.inflight || e.status != api.StatusFailed {
		return nil
	}
	e.fp = fp
	e.status = api.StatusLoading
	e.err = nil
	e.inflight = true
	go m.load(config, fp)
	return nil
}

// ParseCount returns how many times the parse primitive has run.
func (m *Manager) ParseCount() int64 {
	return m.parses.Load()
}

// load runs off the request path: at most one per configuration at a time,
// guarded by the entry's inflight flag.
func (m *Manager) load(config string, fp Fingerprint) {
	snap, parseErr := m.build(config, fp)

	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.entries[config]
	e.inflight = false
	if parseErr != nil {
		// Failed entries retry only on fingerprint change or explicit
		// Retry, never in a loop.
		e.status = api.StatusFailed
		e.err = parseErr
		m.cfg.Log.Error().Err(parseErr).Str("config", config).Msg("configuration parse failed")
		return
	}
	e.container.Swap(snap)
	e.status = api.StatusReady
	e.err = nil
}

func (m *Manager) build(config string, fp Fingerprint) (*store.Snapshot, error) {
	if m.cfg.DB != nil {
		snap, err := store.Load(m.cfg.DB, config, fp.Size, fp.MTime)
		switch {
		case err == nil:
			if m.cfg.Rehydrate != nil {
				m.cfg.Rehydrate(snap)
			}
			m.cfg.Log.Debug().Str("config", config).Msg("serving persisted snapshot")
			return snap, nil
		case !errors.Is(err, store.ErrCacheMiss):
			// Corrupt persisted blob: fall back to a fresh parse.
			m.cfg.Log.Warn().Err(err).Str("config", config).Msg("persisted snapshot unreadable, reparsing")
		}
	}

	f, err := m.cfg.FS.Open(config)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", config, err)
	}
	defer func() { _ = f.Close() }()

	m.parses.Add(1)
	started := time.Now()
	snap, err := m.cfg.Parse(config, f)
	if err != nil {
		return nil, err
	}
	m.cfg.Log.Info().Str("config", config).Dur("elapsed", time.Since(started)).Msg("configuration parsed")

	if m.cfg.DB != nil {
		if err := store.Save(m.cfg.DB, config, fp.Size, fp.MTime, snap, time.Now().Unix()); err != nil {
			// Persistence is an optimization; a failed write never fails
			// the load.
			m.cfg.Log.Warn().Err(err).Str("config", config).Msg("snapshot persist failed")
		}
	}
	return snap, nil
}
