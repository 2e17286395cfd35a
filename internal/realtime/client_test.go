package realtime

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Payphone-Digital/sprintdesk/internal/model"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memberOf admits a user to the listed workspaces only.
type memberOf map[uint]bool

func (m memberOf) RequireMember(_ context.Context, workspaceID, _ uint) (model.WorkspaceRole, error) {
	if m[workspaceID] {
		return model.RoleMember, nil
	}
	return "", errors.New("not a workspace member")
}

func dialTestClient(t *testing.T, hub *Hub, members MembershipChecker, userID uint) *websocket.Conn {
	t.Helper()

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		NewClient(conn, hub, members, userID, ClientConfig{SendBuffer: 8, PingInterval: time.Second}).
			Serve(context.Background())
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event Event
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

func TestClientSubscribeAndReceive(t *testing.T) {
	hub := NewHub()
	conn := dialTestClient(t, hub, memberOf{10: true}, 1)

	require.NoError(t, conn.WriteJSON(Frame{Op: "subscribe", WorkspaceID: 10}))
	ack := readEvent(t, conn)
	assert.Equal(t, EventSubscribed, ack.Type)
	assert.Equal(t, "workspace:10", ack.Topic)

	hub.EmitWorkspaceEvent(context.Background(), 10, EventIssueUpdated, Payload{IssueID: 3, Fields: []string{"status"}, ActorID: 2})
	event := readEvent(t, conn)
	assert.Equal(t, EventIssueUpdated, event.Type)
	assert.Equal(t, []string{"status"}, event.Payload.Fields)

	hub.EmitUserEvent(context.Background(), 1, EventNotificationCreated, Payload{NotificationID: 9})
	event = readEvent(t, conn)
	assert.Equal(t, EventNotificationCreated, event.Type)
	assert.Equal(t, "user:1", event.Topic)
}

func TestClientSubscribeRequiresMembership(t *testing.T) {
	hub := NewHub()
	conn := dialTestClient(t, hub, memberOf{}, 1)

	require.NoError(t, conn.WriteJSON(Frame{Op: "subscribe", WorkspaceID: 10}))
	event := readEvent(t, conn)
	assert.Equal(t, EventError, event.Type)
	assert.Equal(t, uint(10), event.Payload.WorkspaceID)

	assert.Zero(t, hub.Deliver(context.Background(), Event{Type: EventIssueCreated, Topic: WorkspaceTopic(10)}))
}

func TestClientDisconnectUnregisters(t *testing.T) {
	hub := NewHub()
	conn := dialTestClient(t, hub, memberOf{10: true}, 1)

	require.NoError(t, conn.WriteJSON(Frame{Op: "subscribe", WorkspaceID: 10}))
	readEvent(t, conn)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool {
		conns, _ := hub.Stats()
		return conns == 0
	}, 2*time.Second, 10*time.Millisecond)
}
