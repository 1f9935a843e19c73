package session

import "sync"

// Manager tracks at most one live GMAT Focus run per user. Runs are
// in-memory; a completed run stays attached until the user starts a new one
// or abandons it, so the results screen can read it.
type Manager struct {
	mu   sync.RWMutex
	runs map[int]*FocusRun
}

// NewManager creates an empty run manager.
func NewManager() *Manager {
	return &Manager{runs: make(map[int]*FocusRun)}
}

// Attach registers a run for the user. An in-progress run is rejected; a
// finished one is closed and replaced.
func (m *Manager) Attach(userID int, run *FocusRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.runs[userID]; ok {
		if existing.CurrentPhase() != PhaseAllComplete {
			return ErrRunAlreadyActive
		}
		existing.Close()
	}
	m.runs[userID] = run
	return nil
}

// Get returns the user's run, if any.
func (m *Manager) Get(userID int) (*FocusRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[userID]
	if !ok {
		return nil, ErrNoActiveRun
	}
	return run, nil
}

// Remove detaches and closes the user's run.
func (m *Manager) Remove(userID int) {
	m.mu.Lock()
	run, ok := m.runs[userID]
	delete(m.runs, userID)
	m.mu.Unlock()

	if ok {
		run.Close()
	}
}
