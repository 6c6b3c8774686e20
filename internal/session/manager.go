package session

import (
	"context"
	"log/slog"
	"sync"

	"portrelay/internal/rule"
	appErrors "portrelay/internal/shared/errors"
	"portrelay/internal/shared/goroutine"
	"portrelay/internal/strategy"
)

// result is what a session reports back to the manager when its loop ends.
type result struct {
	id  rule.ID
	err error
}

// Manager owns the rule store and the set of live sessions, matching
// _examples/original_source/src/session/mod.rs's Manager: a dynamically
// extensible task set (here, a map of cancel funcs plus a completion
// channel fed by every session goroutine) instead of a static errgroup,
// since rules can be added and removed while the manager runs.
type Manager struct {
	mu       sync.Mutex
	store    *rule.Store
	cancels  map[rule.ID]context.CancelFunc
	active   int
	done     chan result
	shutdown chan struct{}
	shutOnce sync.Once
	shutDone bool
	logger   *slog.Logger
}

// NewManager builds a manager over store. store may already contain rules
// (e.g. loaded from config); callers should spawn sessions for them with
// StartExisting before calling Start.
func NewManager(store *rule.Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:    store,
		cancels:  make(map[rule.ID]context.CancelFunc),
		done:     make(chan result, 64),
		shutdown: make(chan struct{}),
		logger:   logger,
	}
}

// AddRule validates r, enforces the (protocol, source) collision invariant,
// creates it in the store, and spawns its session. Returns the allocated id.
func (m *Manager) AddRule(r rule.Rule) (rule.ID, error) {
	r.Normalize()
	if err := r.Validate(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	if m.store.ActiveSourceCollision(r.Protocol, r.Source, 0, false) {
		m.mu.Unlock()
		return 0, appErrors.NewConflictError("an active rule already binds this (protocol, source)")
	}
	m.mu.Unlock()

	id, err := m.store.Create(r)
	if err != nil {
		return 0, err
	}

	m.spawn(id, r)
	return id, nil
}

// StartExisting spawns sessions for every rule already present in the
// store (e.g. rules loaded from config before Start is called).
func (m *Manager) StartExisting() {
	for _, entry := range m.store.List() {
		m.spawn(entry.ID, entry.Rule)
	}
}

func (m *Manager) spawn(id rule.ID, r rule.Rule) {
	ctx, cancel := context.WithCancel(context.Background())

	m.mu.Lock()
	m.cancels[id] = cancel
	m.active++
	m.mu.Unlock()

	strat := strategy.New(r)
	log := m.logger.With("rule_id", uint64(id))

	var s Session
	if r.Protocol == rule.ProtocolTCP {
		s = &TCP{Source: r.Source, Strategy: strat, Logger: log}
	} else {
		s = &UDP{Source: r.Source, Strategy: strat, Logger: log}
	}

	goroutine.SafeGo(log, "session-run", func() {
		err := s.Run(ctx)
		m.done <- result{id: id, err: err}
	})
}

// RemoveRule cancels the rule's session (if running) and tombstones it in
// the store. The session's own completion is observed asynchronously by
// Start's collection loop, not waited on here.
func (m *Manager) RemoveRule(id rule.ID) (rule.Rule, error) {
	removed, err := m.store.Delete(id)
	if err != nil {
		return rule.Rule{}, err
	}

	m.mu.Lock()
	if cancel, ok := m.cancels[id]; ok {
		cancel()
		delete(m.cancels, id)
	}
	m.mu.Unlock()

	return removed, nil
}

// UpdateRule replaces the store entry for id, rejecting the update with a
// conflict error if another active rule already binds the same (protocol,
// source). Per spec.md §3/§4.6, this
// intentionally does NOT restart the running session — a live session's
// socket and strategy are unaffected until the rule is deleted and
// recreated. See DESIGN.md for the open-question resolution.
func (m *Manager) UpdateRule(id rule.ID, r rule.Rule) (rule.Rule, error) {
	if m.store.ActiveSourceCollision(r.Protocol, r.Source, id, true) {
		return rule.Rule{}, appErrors.NewConflictError("an active rule already binds this (protocol, source)")
	}
	return m.store.Update(id, r)
}

// Store returns the underlying rule store, for HTTP handlers that only
// need to read (list/get).
func (m *Manager) Store() *rule.Store {
	return m.store
}

// Start blocks until every live session has terminated or Shutdown is
// called, whichever comes first. On shutdown it cancels every remaining
// session and waits for their completions to drain before returning.
func (m *Manager) Start() error {
	for {
		select {
		case <-m.shutdown:
			m.cancelAll()
			m.drainRemaining()
			return nil
		case res := <-m.done:
			m.onSessionDone(res)
			m.mu.Lock()
			remaining := m.active
			m.mu.Unlock()
			if remaining == 0 {
				return nil
			}
		}
	}
}

func (m *Manager) onSessionDone(res result) {
	m.mu.Lock()
	m.active--
	delete(m.cancels, res.id)
	m.mu.Unlock()

	if res.err != nil {
		m.logger.Error("session exited with error", "rule_id", uint64(res.id), "error", res.err)
	} else {
		m.logger.Info("session exited", "rule_id", uint64(res.id))
	}
}

func (m *Manager) cancelAll() {
	m.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(m.cancels))
	for _, cancel := range m.cancels {
		cancels = append(cancels, cancel)
	}
	m.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

func (m *Manager) drainRemaining() {
	for {
		m.mu.Lock()
		remaining := m.active
		m.mu.Unlock()
		if remaining == 0 {
			return
		}
		res := <-m.done
		m.onSessionDone(res)
	}
}

// Shutdown delivers a single shutdown event to Start. Idempotent: a second
// call returns an already-shutdown AppError to the caller but is not
// propagated further, per spec.md §4.5/§7.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	if m.shutDone {
		m.mu.Unlock()
		return appErrors.NewAlreadyShutdownError("manager already shut down")
	}
	m.shutDone = true
	m.mu.Unlock()

	m.shutOnce.Do(func() {
		close(m.shutdown)
	})
	return nil
}
