package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/Payphone-Digital/sprintdesk/internal/model"
	ctxutil "github.com/Payphone-Digital/sprintdesk/pkg/context"
	"github.com/Payphone-Digital/sprintdesk/pkg/logger"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	maxFrameSize   = 4096
	opSubscribe    = "subscribe"
	opUnsubscribe  = "unsubscribe"
	defaultBuffer  = 64
	defaultPingGap = 30 * time.Second
)

// MembershipChecker gates workspace subscriptions.
type MembershipChecker interface {
	RequireMember(ctx context.Context, workspaceID, userID uint) (model.WorkspaceRole, error)
}

type ClientConfig struct {
	SendBuffer   int
	PingInterval time.Duration
}

// Frame is a client to server message.
type Frame struct {
	Op          string `json:"op"`
	WorkspaceID uint   `json:"workspaceId"`
}

// Client is one websocket connection of an authenticated user.
type Client struct {
	id           string
	userID       uint
	conn         *websocket.Conn
	hub          *Hub
	members      MembershipChecker
	send         chan Event
	done         chan struct{}
	closeOnce    sync.Once
	pingInterval time.Duration
}

func NewClient(conn *websocket.Conn, hub *Hub, members MembershipChecker, userID uint, cfg ClientConfig) *Client {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = defaultBuffer
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaultPingGap
	}
	return &Client{
		id:           uuid.NewString(),
		userID:       userID,
		conn:         conn,
		hub:          hub,
		members:      members,
		send:         make(chan Event, cfg.SendBuffer),
		done:         make(chan struct{}),
		pingInterval: cfg.PingInterval,
	}
}

func (c *Client) ID() string   { return c.id }
func (c *Client) UserID() uint { return c.userID }

// Send never blocks. A full buffer or closed connection drops the event.
func (c *Client) Send(event Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- event:
		return true
	default:
		return false
	}
}

// Serve registers the connection and runs until the peer goes away or ctx
// is done.
func (c *Client) Serve(ctx context.Context) {
	ctx = ctxutil.WithConnectionID(ctxutil.WithUserID(ctx, c.userID), c.id)
	ctx = ctxutil.WithOperation(ctx, "realtime", "Serve")

	c.hub.Register(c)
	logger.InfoWithContext(ctx, "Live connection opened").Log()

	go c.writePump(ctx)
	c.readPump(ctx)

	c.hub.Unregister(c.id)
	c.close()
	logger.InfoWithContext(ctx, "Live connection closed").Log()
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *Client) readPump(ctx context.Context) {
	pongWait := c.pingInterval * 2
	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.WarnWithContext(ctx, "Live connection read failed").Err(err).Log()
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.Send(errorEvent(0, "malformed frame"))
			continue
		}
		c.handleFrame(ctx, frame)
	}
}

func (c *Client) handleFrame(ctx context.Context, frame Frame) {
	switch frame.Op {
	case opSubscribe:
		if frame.WorkspaceID == 0 {
			c.Send(errorEvent(0, "workspaceId is required"))
			return
		}
		if _, err := c.members.RequireMember(ctx, frame.WorkspaceID, c.userID); err != nil {
			c.Send(errorEvent(frame.WorkspaceID, err.Error()))
			return
		}
		if err := c.hub.SubscribeWorkspace(c.id, frame.WorkspaceID); err != nil {
			c.Send(errorEvent(frame.WorkspaceID, err.Error()))
			return
		}
		c.Send(Event{
			Type:    EventSubscribed,
			Topic:   WorkspaceTopic(frame.WorkspaceID),
			Payload: Payload{WorkspaceID: frame.WorkspaceID},
		})
	case opUnsubscribe:
		c.hub.UnsubscribeWorkspace(c.id, frame.WorkspaceID)
	default:
		c.Send(errorEvent(frame.WorkspaceID, "unknown op"))
	}
}

func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(c.pingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			return
		case <-ctx.Done():
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			return
		case event := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(event); err != nil {
				logger.DebugWithContext(ctx, "Live connection write failed").Err(err).Log()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func errorEvent(workspaceID uint, message string) Event {
	topic := ""
	if workspaceID != 0 {
		topic = WorkspaceTopic(workspaceID)
	}
	return Event{Type: EventError, Topic: topic, Payload: Payload{WorkspaceID: workspaceID, Message: message}}
}
