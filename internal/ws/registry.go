package ws

import (
	"sync"

	"github.com/samber/lo"
)

// Handle is the outbound side of one live connection. Send must not block on
// a slow peer; it reports failure instead.
type Handle interface {
	Send(payload []byte) error
	Close()
}

// Registry tracks which user is live-connected to which conversation. It is
// the sole owner of the live-connection set; one instance is created per
// process and passed to every connection task.
type Registry struct {
	mu    sync.RWMutex
	conns map[int]map[int]Handle // conversation id -> user id -> handle
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[int]map[int]Handle)}
}

// Admit registers handle as the live connection for the pair. A prior handle
// for the same pair is replaced and returned so the caller can close it;
// last writer wins.
func (r *Registry) Admit(conversationID, userID int, handle Handle) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, ok := r.conns[conversationID]
	if !ok {
		users = make(map[int]Handle)
		r.conns[conversationID] = users
	}
	prior := users[userID]
	users[userID] = handle
	return prior
}

// Evict removes the entry if present and reports whether removal occurred.
// Empty conversations are pruned. Idempotent.
func (r *Registry) Evict(conversationID, userID int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, ok := r.conns[conversationID]
	if !ok {
		return false
	}
	if _, ok := users[userID]; !ok {
		return false
	}
	delete(users, userID)
	if len(users) == 0 {
		delete(r.conns, conversationID)
	}
	return true
}

// evictIf removes the entry only while it still maps to handle, so a
// replacement admitted in the meantime is left alone.
func (r *Registry) evictIf(conversationID, userID int, handle Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, ok := r.conns[conversationID]
	if !ok || users[userID] != handle {
		return false
	}
	delete(users, userID)
	if len(users) == 0 {
		delete(r.conns, conversationID)
	}
	return true
}

// DeliverTo sends payload to the specific live connection. Returns false
// when the pair is not connected or the send failed; best effort, never an
// error.
func (r *Registry) DeliverTo(conversationID, userID int, payload []byte) bool {
	r.mu.RLock()
	handle, ok := r.conns[conversationID][userID]
	r.mu.RUnlock()

	if !ok {
		return false
	}
	return handle.Send(payload) == nil
}

// Broadcast sends payload to every live connection in the conversation
// except excludeUserID (0 excludes nobody). Each delivery is attempted
// independently; recipients whose handle fails are evicted and closed, and
// their user ids are returned so the caller can announce the departures.
func (r *Registry) Broadcast(conversationID int, payload []byte, excludeUserID int) []int {
	r.mu.RLock()
	recipients := make(map[int]Handle, len(r.conns[conversationID]))
	for userID, handle := range r.conns[conversationID] {
		if userID != excludeUserID {
			recipients[userID] = handle
		}
	}
	r.mu.RUnlock()

	var failed []int
	for userID, handle := range recipients {
		if err := handle.Send(payload); err != nil {
			if r.evictIf(conversationID, userID, handle) {
				handle.Close()
				failed = append(failed, userID)
			}
		}
	}
	return failed
}

// ListLive returns a snapshot of the user ids currently connected to the
// conversation. Diagnostics only; not an authorization source.
func (r *Registry) ListLive(conversationID int) []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Keys(r.conns[conversationID])
}
