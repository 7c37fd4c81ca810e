package assistant

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/DachengChen/askSQL/applog"
	"github.com/DachengChen/askSQL/conversation"
	"github.com/DachengChen/askSQL/db"
	"github.com/DachengChen/askSQL/metrics"
)

// Session is one user's conversation. It answers one question at a time;
// sessions share nothing mutable with each other.
type Session struct {
	ID        string
	CreatedAt time.Time
	History   *conversation.History

	turn sync.Mutex

	mu       sync.Mutex
	lastUsed time.Time
	last     *answer
}

// answer is the most recent successful result, kept for chart-only
// follow-ups.
type answer struct {
	question string
	sql      string
	result   *db.QueryResult
}

func NewSession() *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		History:   &conversation.History{},
		lastUsed:  now,
	}
}

// Reset clears the conversation. It waits for a running question.
func (s *Session) Reset() {
	s.turn.Lock()
	defer s.turn.Unlock()
	s.History.Reset()
	s.mu.Lock()
	s.last = nil
	s.mu.Unlock()
}

// LastResult is the result of the latest successful question.
func (s *Session) LastResult() (*db.QueryResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil, false
	}
	return s.last.result, true
}

// LastUsed is when the session last handled a request.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastUsed = time.Now().UTC()
	s.mu.Unlock()
}

func (s *Session) remember(a *answer) {
	s.mu.Lock()
	s.last = a
	s.mu.Unlock()
}

func (s *Session) previous() *answer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Manager tracks live sessions and expires idle ones.
type Manager struct {
	ttl time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewManager expires sessions idle for longer than ttl once cleanup is
// started. A ttl of zero keeps sessions until deleted.
func NewManager(ttl time.Duration) *Manager {
	return &Manager{ttl: ttl, sessions: map[string]*Session{}, stop: make(chan struct{})}
}

// Create starts a new session.
func (m *Manager) Create() *Session {
	s := NewSession()
	m.mu.Lock()
	m.sessions[s.ID] = s
	n := len(m.sessions)
	m.mu.Unlock()
	metrics.SetActiveSessions(n)
	applog.Event("session", "created", "session", s.ID)
	return s
}

// Get returns a live session.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		s.touch()
	}
	return s, ok
}

// Delete ends a session.
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()
	if ok {
		metrics.SetActiveSessions(n)
		applog.Event("session", "deleted", "session", id)
	}
	return ok
}

// List returns live sessions, oldest first.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Expire removes sessions idle since before now-ttl and returns how many
// were removed. Sessions busy with a question are kept.
func (m *Manager) Expire(now time.Time) int {
	if m.ttl <= 0 {
		return 0
	}
	cutoff := now.Add(-m.ttl)
	m.mu.Lock()
	removed := 0
	for id, s := range m.sessions {
		if !s.LastUsed().Before(cutoff) {
			continue
		}
		if !s.turn.TryLock() {
			continue
		}
		s.turn.Unlock()
		delete(m.sessions, id)
		removed++
	}
	n := len(m.sessions)
	m.mu.Unlock()
	if removed > 0 {
		metrics.SetActiveSessions(n)
		applog.Event("session", "expired idle sessions", "count", removed)
	}
	return removed
}

// StartCleanup expires idle sessions every interval until Close.
func (m *Manager) StartCleanup(interval time.Duration) {
	if m.ttl <= 0 || interval <= 0 {
		return
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-m.stop:
				return
			case now := <-ticker.C:
				m.Expire(now)
			}
		}
	}()
}

// Close stops the cleanup loop.
func (m *Manager) Close() {
	m.stopOnce.Do(func() { close(m.stop) })
	m.wg.Wait()
}
