package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/abelbrown/narratives/internal/api"
	"github.com/abelbrown/narratives/internal/audit"
	"github.com/abelbrown/narratives/internal/config"
	"github.com/abelbrown/narratives/internal/coord"
	"github.com/abelbrown/narratives/internal/logging"
	"github.com/abelbrown/narratives/internal/state"
	"github.com/abelbrown/narratives/internal/store"
)

// staleSessionAge is how long abandoned session namespaces are kept.
const staleSessionAge = 7 * 24 * time.Hour

// env is everything a command needs, opened once per invocation.
type env struct {
	cfg       *config.Config
	store     *store.Store
	sessionID string
	// ownSession is true when the session was created for this run and is
	// dropped again on Close.
	ownSession bool

	auditFile *os.File
	audit     *audit.Logger
	ring      *audit.RingBuffer

	state  *state.State
	client *api.Client
	coord  *coord.Coordinator
}

// openEnv loads config, opens the store and builds the application state.
// The caller must Close the result.
func openEnv(opts *rootOptions) (*env, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	if opts.verbose {
		err = logging.InitWriter(os.Stderr, "debug")
	} else {
		err = logging.Init(cfg.DataDir, cfg.LogLevel)
	}
	if err != nil {
		return nil, err
	}

	e := &env{cfg: cfg, sessionID: opts.sessionID}
	if e.sessionID == "" {
		e.sessionID = store.NewSessionID()
		e.ownSession = true
	}

	e.store, err = store.Open(cfg.DBPath())
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}
	if n, err := e.store.PruneSessions(staleSessionAge); err != nil {
		logging.Warn("Prune sessions failed", "error", err)
	} else if n > 0 {
		logging.Debug("Pruned stale session slots", "count", n)
	}

	e.auditFile, err = os.OpenFile(cfg.AuditPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("open audit trail: %w", err)
	}
	e.audit = audit.NewLogger(e.auditFile, e.sessionID)
	e.ring = audit.NewRingBuffer(audit.DefaultRingSize)
	e.audit.SetRingBuffer(e.ring)
	e.audit.Info(audit.KindStartup, "main", filepath.Base(os.Args[0]))

	e.state, err = state.New(e.store.Durable(), e.store.Session(e.sessionID), state.Options{
		ServerURL: cfg.ServerURL,
		Relays:    cfg.Relays,
		Filters:   cfg.DefaultFilters,
		Audit:     e.audit,
	})
	if err != nil {
		e.Close()
		return nil, err
	}
	if opts.serverURL != "" {
		if err := e.state.ServerURL.Set(opts.serverURL); err != nil {
			e.Close()
			return nil, fmt.Errorf("set server url: %w", err)
		}
	}

	e.client = api.NewClient(e.state.ServerURL.Get, cfg.HTTPTimeout, cfg.RequestsPerSecond)
	e.coord = coord.New(e.state, e.client, e.audit, cfg.RefreshInterval)
	return e, nil
}

// Close releases everything openEnv acquired, in reverse order. Safe on a
// partially opened env.
func (e *env) Close() {
	if e.state != nil {
		e.state.Close()
	}
	if e.store != nil && e.ownSession {
		if _, err := e.store.EndSession(e.sessionID); err != nil {
			logging.Warn("End session failed", "error", err)
		}
	}
	if e.audit != nil {
		e.audit.Info(audit.KindShutdown, "main", "")
		e.audit.Close()
	}
	if e.auditFile != nil {
		e.auditFile.Close()
	}
	if e.store != nil {
		e.store.Close()
	}
	logging.Close()
}

// keepSession stops Close from dropping a session created for this run and
// returns a hint telling the user how to reuse it. Empty when the session
// was passed in.
func (e *env) keepSession() string {
	if !e.ownSession {
		return ""
	}
	e.ownSession = false
	return fmt.Sprintf("pass --session %s or export NARRATIVES_SESSION=%s to reuse this session", e.sessionID, e.sessionID)
}
