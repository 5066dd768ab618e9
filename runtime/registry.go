package runtime

import (
	"sync"

	"ohtalk/contract"
	"ohtalk/domain"
	"ohtalk/protocol"

	"github.com/samber/lo"
)

// Registry maps every authenticated user to the connection that currently
// represents them. At most one sink is held per user, the latest login wins.
type Registry struct {
	mu       sync.RWMutex
	sessions map[domain.UserID]contract.EventSink
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[domain.UserID]contract.EventSink)}
}

// Register installs sink for userID, replacing any previous holder
// without notifying it.
func (r *Registry) Register(userID domain.UserID, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[userID] = sink
}

func (r *Registry) Unregister(userID domain.UserID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, userID)
}

// UnregisterSink removes the mapping only if it still points at sink, so a
// superseded connection going away never revokes the newer one.
func (r *Registry) UnregisterSink(userID domain.UserID, sink contract.EventSink) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.sessions[userID]; !ok || current != sink {
		return false
	}
	delete(r.sessions, userID)
	return true
}

func (r *Registry) IsOnline(userID domain.UserID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[userID]
	return ok
}

// Deliver pushes env to userID if online. The send happens outside the lock.
func (r *Registry) Deliver(userID domain.UserID, env protocol.Envelope) {
	r.mu.RLock()
	sink, ok := r.sessions[userID]
	r.mu.RUnlock()
	if ok {
		sink.Send(env)
	}
}

// DeliverMany resolves the online targets under the read lock, then sends
// to each of them once. Offline ids are skipped.
func (r *Registry) DeliverMany(userIDs []domain.UserID, env protocol.Envelope) {
	r.mu.RLock()
	sinks := make([]contract.EventSink, 0, len(userIDs))
	for _, userID := range lo.Uniq(userIDs) {
		if sink, ok := r.sessions[userID]; ok {
			sinks = append(sinks, sink)
		}
	}
	r.mu.RUnlock()

	for _, sink := range sinks {
		sink.Send(env)
	}
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
