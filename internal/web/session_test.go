package web

import (
	"testing"
	"time"

	"github.com/hyperjump/agrovision/internal/models"
)

func turns(roles ...models.Role) []models.ChatTurn {
	out := make([]models.ChatTurn, len(roles))
	for i, r := range roles {
		out[i] = models.ChatTurn{Role: r, Content: string(r) + string(rune('0'+i))}
	}
	return out
}

func TestSession_DeleteMessage(t *testing.T) {
	u, a := models.RoleUser, models.RoleAssistant
	tests := []struct {
		name     string
		roles    []models.Role
		idx      int
		removed  bool
		contents []string
	}{
		{"user with reply", []models.Role{u, a, u, a}, 0, true, []string{"user2", "assistant3"}},
		{"last user with reply", []models.Role{u, a, u, a}, 2, true, []string{"user0", "assistant1"}},
		{"user without reply", []models.Role{u, a, u}, 2, true, []string{"user0", "assistant1"}},
		{"consecutive users", []models.Role{u, u, a}, 0, true, []string{"user1", "assistant2"}},
		{"assistant turn", []models.Role{u, a}, 1, false, []string{"user0", "assistant1"}},
		{"out of range", []models.Role{u, a}, 5, false, []string{"user0", "assistant1"}},
		{"negative", []models.Role{u, a}, -1, false, []string{"user0", "assistant1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Session{Transcript: turns(tt.roles...)}
			if got := s.DeleteMessage(tt.idx); got != tt.removed {
				t.Errorf("removed: got %v, want %v", got, tt.removed)
			}
			if len(s.Transcript) != len(tt.contents) {
				t.Fatalf("transcript: got %d turns, want %d", len(s.Transcript), len(tt.contents))
			}
			for i, c := range tt.contents {
				if s.Transcript[i].Content != c {
					t.Errorf("turn %d: got %q, want %q", i, s.Transcript[i].Content, c)
				}
			}
		})
	}
}

func TestSession_ClearKeepsResults(t *testing.T) {
	s := &Session{
		CropResult: &models.CropResponse{},
		Transcript: turns(models.RoleUser, models.RoleAssistant),
	}
	s.ClearTranscript()
	if len(s.Transcript) != 0 || s.CropResult == nil {
		t.Errorf("unexpected session after clear: %+v", s)
	}
}

func TestSessionStore_GetCreatesAndReuses(t *testing.T) {
	st := NewSessionStore(0)
	s := st.Get("unknown")
	if s.ID == "" || s.ID == "unknown" {
		t.Fatalf("expected fresh id, got %q", s.ID)
	}
	st.Update(s.ID, func(s *Session) { s.CropError = "x" })
	if got := st.Get(s.ID); got.CropError != "x" {
		t.Errorf("update not persisted: %+v", got)
	}
	if st.Len() != 1 {
		t.Errorf("len: got %d", st.Len())
	}
}

func TestSessionStore_SnapshotIsolation(t *testing.T) {
	st := NewSessionStore(0)
	s := st.Update("", func(s *Session) {
		s.Transcript = turns(models.RoleUser)
	})
	s.Transcript[0].Content = "mutated"
	if got := st.Get(s.ID); got.Transcript[0].Content != "user0" {
		t.Errorf("snapshot aliased store state: %q", got.Transcript[0].Content)
	}
}

func TestSessionStore_EvictsLeastRecentlySeen(t *testing.T) {
	st := NewSessionStore(2)
	clock := time.Unix(0, 0)
	st.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	first := st.Get("").ID
	second := st.Get("").ID
	st.Get(first)
	third := st.Get("").ID

	if st.Len() != 2 {
		t.Fatalf("len: got %d, want 2", st.Len())
	}
	if got := st.Get(first).ID; got != first {
		t.Error("recently seen session evicted")
	}
	if got := st.Get(third).ID; got != third {
		t.Error("new session evicted")
	}
	if got := st.Get(second).ID; got == second {
		t.Error("least recently seen session survived")
	}
}
