package realtime

import (
	"context"
	"errors"
	"sync"

	ctxutil "github.com/Payphone-Digital/sprintdesk/pkg/context"
	"github.com/Payphone-Digital/sprintdesk/pkg/logger"
)

var ErrUnknownConnection = errors.New("realtime: connection is not registered")

// Subscriber is one live connection.
type Subscriber interface {
	ID() string
	UserID() uint
	// Send queues an event without blocking and reports whether it was
	// accepted.
	Send(event Event) bool
}

// Publisher relays events to every instance, this one included.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Hub is the connection registry. Every connection is registered on its
// user channel and may subscribe to any number of workspace channels.
type Hub struct {
	mu         sync.RWMutex
	conns      map[string]Subscriber
	users      map[uint]map[string]Subscriber
	workspaces map[uint]map[string]Subscriber
	joined     map[string]map[uint]struct{}
	publisher  Publisher
}

func NewHub() *Hub {
	return &Hub{
		conns:      make(map[string]Subscriber),
		users:      make(map[uint]map[string]Subscriber),
		workspaces: make(map[uint]map[string]Subscriber),
		joined:     make(map[string]map[uint]struct{}),
	}
}

// SetPublisher routes emitted events through p instead of delivering them
// locally. The publisher is expected to feed them back through Deliver.
func (h *Hub) SetPublisher(p Publisher) {
	h.mu.Lock()
	h.publisher = p
	h.mu.Unlock()
}

// Register adds a connection and subscribes it to its user channel.
func (h *Hub) Register(sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.conns[sub.ID()] = sub
	addTo(h.users, sub.UserID(), sub)
	h.joined[sub.ID()] = make(map[uint]struct{})
}

// Unregister removes a connection from every channel.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub, ok := h.conns[connID]
	if !ok {
		return
	}
	for workspaceID := range h.joined[connID] {
		removeFrom(h.workspaces, workspaceID, connID)
	}
	removeFrom(h.users, sub.UserID(), connID)
	delete(h.joined, connID)
	delete(h.conns, connID)
}

// SubscribeWorkspace adds a registered connection to a workspace channel.
// Membership is checked by the caller.
func (h *Hub) SubscribeWorkspace(connID string, workspaceID uint) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub, ok := h.conns[connID]
	if !ok {
		return ErrUnknownConnection
	}
	addTo(h.workspaces, workspaceID, sub)
	h.joined[connID][workspaceID] = struct{}{}
	return nil
}

func (h *Hub) UnsubscribeWorkspace(connID string, workspaceID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if joined, ok := h.joined[connID]; ok {
		delete(joined, workspaceID)
		removeFrom(h.workspaces, workspaceID, connID)
	}
}

// EmitWorkspaceEvent broadcasts to every connection subscribed to the
// workspace. Failures are logged, never returned.
func (h *Hub) EmitWorkspaceEvent(ctx context.Context, workspaceID uint, eventType EventType, payload Payload) {
	payload.WorkspaceID = workspaceID
	h.emit(ctx, Event{Type: eventType, Topic: WorkspaceTopic(workspaceID), Payload: payload})
}

// EmitUserEvent sends to every connection of one user.
func (h *Hub) EmitUserEvent(ctx context.Context, userID uint, eventType EventType, payload Payload) {
	h.emit(ctx, Event{Type: eventType, Topic: UserTopic(userID), Payload: payload})
}

func (h *Hub) emit(ctx context.Context, event Event) {
	ctx = ctxutil.WithOperation(ctx, "realtime", "Emit")

	h.mu.RLock()
	publisher := h.publisher
	h.mu.RUnlock()

	if publisher != nil {
		err := publisher.Publish(ctx, event)
		if err == nil {
			return
		}
		// the relay is down, local connections still get it
		logger.WarnWithContext(ctx, "Event relay failed, delivering locally").
			String("topic", event.Topic).
			Err(err).
			Log()
	}
	h.Deliver(ctx, event)
}

// Deliver fans an event out to the local connections of its topic and
// returns how many accepted it.
func (h *Hub) Deliver(ctx context.Context, event Event) int {
	scope, id, err := ParseTopic(event.Topic)
	if err != nil {
		logger.WarnWithContext(ctx, "Dropping event with bad topic").Err(err).Log()
		return 0
	}

	h.mu.RLock()
	var targets []Subscriber
	switch scope {
	case scopeWorkspace:
		targets = snapshot(h.workspaces[id])
	case scopeUser:
		targets = snapshot(h.users[id])
	}
	h.mu.RUnlock()

	delivered := 0
	for _, sub := range targets {
		if sub.Send(event) {
			delivered++
			continue
		}
		logger.WarnWithContext(ctx, "Subscriber buffer full, event dropped").
			String("connection_id", sub.ID()).
			String("topic", event.Topic).
			String("event_type", string(event.Type)).
			Log()
	}
	return delivered
}

// Stats returns the number of live connections and subscribed workspaces.
func (h *Hub) Stats() (connections, workspaces int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns), len(h.workspaces)
}

// Relayed reports whether emitted events currently go through a relay.
func (h *Hub) Relayed() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.publisher != nil
}

func addTo(index map[uint]map[string]Subscriber, key uint, sub Subscriber) {
	set, ok := index[key]
	if !ok {
		set = make(map[string]Subscriber)
		index[key] = set
	}
	set[sub.ID()] = sub
}

func removeFrom(index map[uint]map[string]Subscriber, key uint, connID string) {
	set, ok := index[key]
	if !ok {
		return
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(index, key)
	}
}

func snapshot(set map[string]Subscriber) []Subscriber {
	out := make([]Subscriber, 0, len(set))
	for _, sub := range set {
		out = append(out, sub)
	}
	return out
}
