// Package registry implements the connection registry (ClientManager): the
// shared, concurrency-safe bimap between transport ids and bound logical user
// identities.
//
// Grounded on the source's ClientManager (gate/src/client/mod.rs), which held
// three independent Mutex-guarded maps. This rewrite backs all three maps
// with a single sync.RWMutex so the bimap invariant is never observably
// violated, instead of the source's brief inconsistency windows.
package registry

import (
	"sync"

	"go.uber.org/zap"
)

// Session is the minimal surface the registry needs from a stored session.
// Kept as a narrow interface (rather than importing package session) so the
// two packages don't form an import cycle: the accept loop wires session
// instances into the registry from outside both packages.
type Session interface {
	ReceiveMsg(frame []byte)
}

// Manager is the id<->uid bimap backing connection lookup and user binding.
type Manager struct {
	mu        sync.RWMutex
	byID      map[uint64]Session
	byUID     map[string]uint64
	byIDToUID map[uint64]string
	log       *zap.Logger
}

// New creates an empty Manager.
func New(log *zap.Logger) *Manager {
	return &Manager{
		byID:      make(map[uint64]Session),
		byUID:     make(map[string]uint64),
		byIDToUID: make(map[uint64]string),
		log:       log,
	}
}

// Add inserts session under id. If id is already present, the operation is
// logged and is a no-op; binding is not implied by Add.
func (m *Manager) Add(id uint64, session Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byID[id]; exists {
		m.logf("add: id already registered", id)
		return
	}
	m.byID[id] = session
}

// Bind associates uid with the transport id, requiring id already be present
// in the registry. If uid was previously bound to a different id, that prior
// binding is removed first so the bimap invariant holds.
func (m *Manager) Bind(uid string, id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byID[id]; !exists {
		m.logf("bind: id not registered", id)
		return
	}
	if prevID, bound := m.byUID[uid]; bound {
		delete(m.byIDToUID, prevID)
	}
	if prevUID, hadUID := m.byIDToUID[id]; hadUID {
		delete(m.byUID, prevUID)
	}
	m.byUID[uid] = id
	m.byIDToUID[id] = uid
}

// Remove deletes id from the registry and, if bound, its reverse uid entries.
func (m *Manager) Remove(id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byID[id]; !exists {
		return
	}
	delete(m.byID, id)
	if uid, bound := m.byIDToUID[id]; bound {
		delete(m.byIDToUID, id)
		delete(m.byUID, uid)
	}
}

// Get returns the session registered under id, if any.
func (m *Manager) Get(id uint64) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.byID[id]
	return s, ok
}

// GetByUID returns the session bound to uid, if any.
func (m *Manager) GetByUID(uid string) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byUID[uid]
	if !ok {
		return nil, false
	}
	s, ok := m.byID[id]
	return s, ok
}

// Len returns the number of registered sessions, for metrics/tests.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}

func (m *Manager) logf(msg string, id uint64) {
	if m.log == nil {
		return
	}
	m.log.Info(msg, zap.Uint64("conn_id", id))
}
