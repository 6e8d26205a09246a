package workspace

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Manager tracks open workspaces by id and reclaims ones their tab has
// abandoned. Browser tabs close without saying goodbye, so a TTL sweep is
// the only reliable teardown path.
type Manager struct {
	deps  Deps
	ttl   time.Duration
	log   zerolog.Logger
	clock func() time.Time

	mu         sync.Mutex
	workspaces map[string]*Workspace
	stop       chan struct{}
	stopOnce   sync.Once
}

func NewManager(deps Deps, ttl time.Duration) *Manager {
	m := &Manager{
		deps:       deps,
		ttl:        ttl,
		log:        deps.Logger.With().Str("component", "workspace").Logger(),
		clock:      time.Now,
		workspaces: make(map[string]*Workspace),
		stop:       make(chan struct{}),
	}
	go m.sweep()
	return m
}

// Open creates a workspace bound to the registration and returns it. A
// failed visit fetch leaves nothing behind.
func (m *Manager) Open(ctx context.Context, registrationID int64) (*Workspace, error) {
	w := newWorkspace(uuid.NewString(), m.deps)
	if err := w.open(ctx, registrationID, m.log); err != nil {
		return nil, fmt.Errorf("open workspace: %w", err)
	}

	m.mu.Lock()
	m.workspaces[w.ID] = w
	count := len(m.workspaces)
	m.mu.Unlock()

	if m.deps.Metrics != nil {
		m.deps.Metrics.WorkspacesTotal.Inc()
		m.deps.Metrics.WorkspacesActive.Set(float64(count))
	}
	m.log.Info().Str("workspace_id", w.ID).Int64("registration_id", registrationID).Msg("workspace opened")
	return w, nil
}

// Get returns the workspace and marks it as recently used.
func (m *Manager) Get(id string) (*Workspace, bool) {
	m.mu.Lock()
	w, ok := m.workspaces[id]
	m.mu.Unlock()
	if ok {
		w.touch()
	}
	return w, ok
}

// Close tears the workspace down and forgets it.
func (m *Manager) Close(id string) bool {
	m.mu.Lock()
	w, ok := m.workspaces[id]
	if ok {
		delete(m.workspaces, id)
	}
	count := len(m.workspaces)
	m.mu.Unlock()

	if !ok {
		return false
	}
	w.teardown()
	if m.deps.Metrics != nil {
		m.deps.Metrics.WorkspacesActive.Set(float64(count))
	}
	m.log.Info().Str("workspace_id", id).Msg("workspace closed")
	return true
}

// Len reports how many workspaces are open.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.workspaces)
}

// Shutdown stops the sweeper and tears down every open workspace.
func (m *Manager) Shutdown() {
	m.stopOnce.Do(func() { close(m.stop) })

	m.mu.Lock()
	open := make([]*Workspace, 0, len(m.workspaces))
	for _, w := range m.workspaces {
		open = append(open, w)
	}
	m.workspaces = make(map[string]*Workspace)
	m.mu.Unlock()

	for _, w := range open {
		w.teardown()
	}
	if m.deps.Metrics != nil {
		m.deps.Metrics.WorkspacesActive.Set(0)
	}
}

func (m *Manager) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.reapIdle()
		}
	}
}

func (m *Manager) reapIdle() {
	cutoff := m.clock().Add(-m.ttl)

	m.mu.Lock()
	var expired []*Workspace
	for id, w := range m.workspaces {
		if w.idleSince().Before(cutoff) {
			delete(m.workspaces, id)
			expired = append(expired, w)
		}
	}
	count := len(m.workspaces)
	m.mu.Unlock()

	for _, w := range expired {
		w.teardown()
		m.log.Info().Str("workspace_id", w.ID).Msg("idle workspace reclaimed")
	}
	if len(expired) > 0 && m.deps.Metrics != nil {
		m.deps.Metrics.WorkspacesActive.Set(float64(count))
	}
}
