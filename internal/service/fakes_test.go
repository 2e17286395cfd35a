package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Payphone-Digital/sprintdesk/internal/realtime"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type sentCode struct {
	email string
	code  string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentCode
	fail bool
}

func (m *fakeMailer) SendOTP(_ context.Context, email, code string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("smtp: connection refused")
	}
	m.sent = append(m.sent, sentCode{email: email, code: code})
	return nil
}

func (m *fakeMailer) lastCode() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return ""
	}
	return m.sent[len(m.sent)-1].code
}

// fakeVerifier maps raw tokens to identities.
type fakeVerifier map[string]*ExternalIdentity

func (v fakeVerifier) Verify(_ context.Context, token string) (*ExternalIdentity, error) {
	identity, ok := v[token]
	if !ok {
		return nil, errors.New("signature mismatch")
	}
	return identity, nil
}

type emitted struct {
	scope     string
	target    uint
	eventType realtime.EventType
	payload   realtime.Payload
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []emitted
}

func (e *recordingEmitter) EmitWorkspaceEvent(_ context.Context, workspaceID uint, eventType realtime.EventType, payload realtime.Payload) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, emitted{scope: "workspace", target: workspaceID, eventType: eventType, payload: payload})
}

func (e *recordingEmitter) EmitUserEvent(_ context.Context, userID uint, eventType realtime.EventType, payload realtime.Payload) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, emitted{scope: "user", target: userID, eventType: eventType, payload: payload})
}

func (e *recordingEmitter) userEvents(userID uint) []emitted {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []emitted
	for _, ev := range e.events {
		if ev.scope == "user" && ev.target == userID {
			out = append(out, ev)
		}
	}
	return out
}

func (e *recordingEmitter) workspaceEvents(workspaceID uint) []emitted {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []emitted
	for _, ev := range e.events {
		if ev.scope == "workspace" && ev.target == workspaceID {
			out = append(out, ev)
		}
	}
	return out
}
