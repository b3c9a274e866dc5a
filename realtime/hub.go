package realtime

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Broker relays events between processes so every instance's hub sees them.
type Broker interface {
	Publish(ctx context.Context, group string, ev Event) error
}

// Subscription is one connection's inbox. Events arrive on C until Close.
type Subscription struct {
	C      chan Event
	hub    *Hub
	groups map[string]struct{}
	closed bool
}

// Hub fans events out to the subscriptions joined to a group.
type Hub struct {
	mu     sync.RWMutex
	groups map[string]map[*Subscription]struct{}
	broker Broker
}

func NewHub() *Hub {
	return &Hub{groups: make(map[string]map[*Subscription]struct{})}
}

// Default is the process-wide hub used by services and the chat socket.
var Default = NewHub()

// SetBroker routes Publish through b. Pass nil for local-only delivery.
func (h *Hub) SetBroker(b Broker) {
	h.mu.Lock()
	h.broker = b
	h.mu.Unlock()
}

// Subscribe creates an inbox with the given buffer size.
func (h *Hub) Subscribe(buffer int) *Subscription {
	return &Subscription{
		C:      make(chan Event, buffer),
		hub:    h,
		groups: make(map[string]struct{}),
	}
}

// Join adds s to group.
func (h *Hub) Join(s *Subscription, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s.closed {
		return
	}
	members, ok := h.groups[group]
	if !ok {
		members = make(map[*Subscription]struct{})
		h.groups[group] = members
	}
	members[s] = struct{}{}
	s.groups[group] = struct{}{}
}

// Leave removes s from group.
func (h *Hub) Leave(s *Subscription, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(s, group)
}

func (h *Hub) leaveLocked(s *Subscription, group string) {
	if members, ok := h.groups[group]; ok {
		delete(members, s)
		if len(members) == 0 {
			delete(h.groups, group)
		}
	}
	delete(s.groups, group)
}

// Close removes s from every group and closes its channel.
func (h *Hub) Close(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s.closed {
		return
	}
	for group := range s.groups {
		h.leaveLocked(s, group)
	}
	s.closed = true
	close(s.C)
}

// Member reports whether s has joined group.
func (h *Hub) Member(s *Subscription, group string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := s.groups[group]
	return ok
}

// Publish sends ev to group, through the broker when one is set.
func (h *Hub) Publish(ctx context.Context, group string, ev Event) error {
	h.mu.RLock()
	b := h.broker
	h.mu.RUnlock()
	if b != nil {
		return b.Publish(ctx, group, ev)
	}
	h.Deliver(group, ev)
	return nil
}

// Deliver hands ev to local members of group. Full inboxes drop the event.
func (h *Hub) Deliver(group string, ev Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for s := range h.groups[group] {
		if s.offer(ev) {
			delivered++
		} else {
			zap.L().Warn("realtime inbox full, dropping event",
				zap.String("group", group), zap.String("action", ev.Action))
		}
	}
	return delivered
}

// Send queues ev for s alone. Caller must not hold the hub lock.
func (s *Subscription) Send(ev Event) bool {
	s.hub.mu.RLock()
	defer s.hub.mu.RUnlock()
	return s.offer(ev)
}

// offer requires the hub lock, which keeps C open for the duration.
func (s *Subscription) offer(ev Event) bool {
	if s.closed {
		return false
	}
	select {
	case s.C <- ev:
		return true
	default:
		return false
	}
}

// Publish sends ev on the default hub. Failures are logged, not returned.
func Publish(group string, ev Event) {
	if err := Default.Publish(context.Background(), group, ev); err != nil {
		zap.L().Warn("realtime publish failed",
			zap.String("group", group), zap.String("action", ev.Action), zap.Error(err))
	}
}
