package handler

import (
	"net/http"
	"strings"

	"github.com/Payphone-Digital/sprintdesk/internal/constants"
	apperrors "github.com/Payphone-Digital/sprintdesk/internal/errors"
	"github.com/Payphone-Digital/sprintdesk/internal/middleware"
	"github.com/Payphone-Digital/sprintdesk/internal/realtime"
	ctxutil "github.com/Payphone-Digital/sprintdesk/pkg/context"
	"github.com/Payphone-Digital/sprintdesk/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type RealtimeHandler struct {
	auth     middleware.Authenticator
	hub      *realtime.Hub
	members  realtime.MembershipChecker
	cfg      realtime.ClientConfig
	upgrader websocket.Upgrader
}

// NewRealtimeHandler accepts upgrades from the comma-separated origins.
// Requests without an Origin header (non-browser clients) are allowed.
func NewRealtimeHandler(auth middleware.Authenticator, hub *realtime.Hub, members realtime.MembershipChecker, cfg realtime.ClientConfig, origins string) *RealtimeHandler {
	allowed := make(map[string]struct{})
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			allowed[o] = struct{}{}
		}
	}

	return &RealtimeHandler{
		auth:    auth,
		hub:     hub,
		members: members,
		cfg:     cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
	}
}

// Connect verifies ?token= and upgrades. Browsers cannot set headers on a
// websocket handshake, hence the query parameter.
func (h *RealtimeHandler) Connect(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "RealtimeConnect")

	userID, err := h.auth.Authenticate(c.Query("token"))
	if err != nil {
		respondError(c, ctx, constants.MsgUnauthorized, apperrors.ErrUnauthenticated)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader has already written the handshake error
		logger.WarnWithContext(ctx, "Websocket upgrade failed").Uint("user_id", userID).Err(err).Log()
		return
	}

	realtime.NewClient(conn, h.hub, h.members, userID, h.cfg).Serve(ctx)
}
