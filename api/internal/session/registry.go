package session

import "sync"

// Registry keeps one Session per chat.
type Registry struct {
	m sync.Map // chatID -> *Session
}

func NewRegistry() *Registry { return &Registry{} }

func (r *Registry) Get(chatID int64) *Session {
	if v, ok := r.m.Load(chatID); ok {
		return v.(*Session)
	}
	v, _ := r.m.LoadOrStore(chatID, New())
	return v.(*Session)
}

// Reset forgets the chat's session, as a process restart would.
func (r *Registry) Reset(chatID int64) {
	r.m.Delete(chatID)
}
