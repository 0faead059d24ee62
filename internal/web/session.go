package web

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/agrovision/internal/models"
)

// Session is the per-browser state of the UI. It lives only in process memory.
type Session struct {
	ID            string
	CropRequest   models.CropRequest
	CropResult    *models.CropResponse
	CropError     string
	DiseaseResult *models.DiseaseResponse
	DiseaseFile   string
	DiseaseError  string
	Transcript    []models.ChatTurn
	lastSeen      time.Time
}

// DeleteMessage removes the user turn at idx and the assistant reply directly
// after it, if any. Only user turns can be deleted; it reports whether
// anything was removed.
func (s *Session) DeleteMessage(idx int) bool {
	if idx < 0 || idx >= len(s.Transcript) || s.Transcript[idx].Role != models.RoleUser {
		return false
	}
	end := idx + 1
	if end < len(s.Transcript) && s.Transcript[end].Role == models.RoleAssistant {
		end++
	}
	s.Transcript = append(s.Transcript[:idx], s.Transcript[end:]...)
	return true
}

// ClearTranscript starts a new chat, keeping the last prediction results.
func (s *Session) ClearTranscript() {
	s.Transcript = nil
}

func (s *Session) clone() *Session {
	c := *s
	c.Transcript = append([]models.ChatTurn(nil), s.Transcript...)
	return &c
}

// SessionStore keeps sessions keyed by ID, evicting the least recently seen
// once maxSessions is exceeded.
type SessionStore struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	maxSessions int
	now         func() time.Time
}

// NewSessionStore returns a store holding at most maxSessions sessions
// (unbounded when maxSessions <= 0).
func NewSessionStore(maxSessions int) *SessionStore {
	return &SessionStore{
		sessions:    make(map[string]*Session),
		maxSessions: maxSessions,
		now:         time.Now,
	}
}

// Get returns a snapshot of the session with id, creating a fresh one (with a
// new ID) when id is unknown.
func (st *SessionStore) Get(id string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.getLocked(id).clone()
}

// Update applies fn to the session with id under the store lock and returns a
// snapshot of the result. Unknown ids get a fresh session.
func (st *SessionStore) Update(id string, fn func(*Session)) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	s := st.getLocked(id)
	fn(s)
	return s.clone()
}

// Len returns the number of live sessions.
func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

func (st *SessionStore) getLocked(id string) *Session {
	if s, ok := st.sessions[id]; ok {
		s.lastSeen = st.now()
		return s
	}
	s := &Session{ID: uuid.New().String(), lastSeen: st.now()}
	st.sessions[s.ID] = s
	st.evictLocked(s.ID)
	return s
}

func (st *SessionStore) evictLocked(keep string) {
	for st.maxSessions > 0 && len(st.sessions) > st.maxSessions {
		var oldest *Session
		for _, s := range st.sessions {
			if s.ID == keep {
				continue
			}
			if oldest == nil || s.lastSeen.Before(oldest.lastSeen) {
				oldest = s
			}
		}
		delete(st.sessions, oldest.ID)
	}
}
