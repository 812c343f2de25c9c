package session

import "neurotutor-cli/internal/api"

// Snapshot is an immutable copy of the store's state.
type Snapshot struct {
	Version     uint64
	Sessions    []Session // most recent first
	ActiveID    string
	Loading     bool
	Awaiting    bool
	Preferences api.Preferences

	loaded map[string]bool
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		Version:     s.version,
		Sessions:    make([]Session, 0, len(s.order)),
		ActiveID:    s.activeID,
		Loading:     s.loading,
		Awaiting:    s.awaiting,
		Preferences: s.prefs,
		loaded:      make(map[string]bool, len(s.loaded)),
	}
	for _, id := range s.order {
		if sess, ok := s.sessions[id]; ok {
			snap.Sessions = append(snap.Sessions, sess.clone())
		}
	}
	for id, v := range s.loaded {
		snap.loaded[id] = v
	}
	return snap
}

// Active returns the active session, or nil when none is selected.
func (s Snapshot) Active() *Session {
	return s.Find(s.ActiveID)
}

// Find returns the session with id, or nil.
func (s Snapshot) Find(id string) *Session {
	if id == "" {
		return nil
	}
	for i := range s.Sessions {
		if s.Sessions[i].ID == id {
			return &s.Sessions[i]
		}
	}
	return nil
}

// Loaded reports whether the messages of id have been fetched (or were
// created locally).
func (s Snapshot) Loaded(id string) bool {
	return IsTemporary(id) || s.loaded[id]
}
