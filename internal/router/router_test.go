package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/Payphone-Digital/sprintdesk/config"
	"github.com/Payphone-Digital/sprintdesk/internal/handler"
	"github.com/Payphone-Digital/sprintdesk/internal/middleware"
	"github.com/Payphone-Digital/sprintdesk/internal/realtime"
	"github.com/Payphone-Digital/sprintdesk/internal/repository"
	"github.com/Payphone-Digital/sprintdesk/internal/service"
	"github.com/Payphone-Digital/sprintdesk/internal/testutil"
	"github.com/Payphone-Digital/sprintdesk/pkg/cache"
	"github.com/Payphone-Digital/sprintdesk/pkg/health"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type inbox struct {
	mu    sync.Mutex
	codes map[string]string
}

func (i *inbox) SendOTP(_ context.Context, email, code string, _ time.Duration) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.codes[email] = code
	return nil
}

func (i *inbox) code(email string) string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.codes[email]
}

type testServer struct {
	engine *gin.Engine
	inbox  *inbox
	cfg    *config.Config
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{}
	cfg.App.Version = "test"
	cfg.App.CORSOrigin = "http://localhost:5173"
	cfg.App.BaseURL = "http://localhost:5173"
	cfg.Auth.RefreshCookieName = "refresh_token"
	cfg.Auth.RefreshCookiePath = "/"
	cfg.Auth.RefreshTokenTTL = 7 * 24 * time.Hour
	cfg.RateLimit.AuthRequests = 100
	cfg.RateLimit.AuthWindow = time.Minute
	cfg.RateLimit.OTPRequests = 3
	cfg.RateLimit.OTPWindow = time.Minute

	db := testutil.NewTestDB(t)
	transactor := repository.NewTransactor(db)
	users := repository.NewUserRepository(db)
	memberships := repository.NewMembershipRepository(db)
	workspaceRepo := repository.NewWorkspaceRepository(db)
	issueRepo := repository.NewIssueRepository(db)

	box := &inbox{codes: map[string]string{}}
	hub := realtime.NewHub()

	tokens := service.NewTokenService(service.TokenConfig{
		Secret:     "router-test-secret",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: cfg.Auth.RefreshTokenTTL,
	}, repository.NewRefreshTokenRepository(db))
	otp := service.NewOTPService(repository.NewOtpRepository(db), box, service.OTPConfig{
		TTL: 10 * time.Minute, Length: 6, MaxAttempts: 5, BcryptCost: bcrypt.MinCost,
	})
	identity, err := service.NewIdentityService(users, nil, otp, service.DemoAccounts{}, bcrypt.MinCost)
	require.NoError(t, err)

	auth := service.NewAuthService(identity, tokens, otp, users)
	authz := service.NewAuthorizationService(memberships)
	notifications := service.NewNotificationService(repository.NewNotificationRepository(db), users, memberships, hub)
	workspaces := service.NewWorkspaceService(transactor, workspaceRepo, memberships, authz)
	issues := service.NewIssueService(transactor, issueRepo, workspaceRepo, memberships, authz, notifications, hub)
	comments := service.NewCommentService(transactor, issueRepo, authz, notifications, hub)
	articleRepo := repository.NewArticleRepository(db)
	articles := service.NewArticleService(transactor, articleRepo, workspaceRepo, issueRepo, authz, hub)

	monitor := health.NewMonitor(time.Second, nil)
	monitor.Register("database", health.DatabaseChecker(db), true)

	counters := cache.NewCache(0)
	t.Cleanup(counters.Close)

	engine := NewRouter(
		handler.NewAuthHandler(auth, handler.CookieConfig{Name: "refresh_token", Path: "/", MaxAge: cfg.Auth.RefreshTokenTTL}),
		handler.NewWorkspaceHandler(workspaces, cfg.App.BaseURL),
		handler.NewIssueHandler(issues, comments),
		handler.NewArticleHandler(articles),
		handler.NewActivityHandler(service.NewActivityService(issueRepo, articleRepo, users, memberships, authz)),
		handler.NewUserHandler(service.NewUserService(users)),
		handler.NewNotificationHandler(notifications),
		handler.NewRealtimeHandler(auth, hub, authz, realtime.ClientConfig{}, cfg.App.CORSOrigin),
		handler.NewHealthHandler(monitor, hub, cfg.App.Version),
		middleware.NewJWTMiddleware(auth),
		middleware.NewWorkspaceMiddleware(authz),
		middleware.NewMemoryCounterStore(counters),
		cfg,
	).SetupRoutes()

	return &testServer{engine: engine, inbox: box, cfg: cfg}
}

type call struct {
	method string
	path   string
	body   any
	token  string
	cookie *http.Cookie
}

func (s *testServer) do(t *testing.T, c call) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if c.body != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(c.body))
	}
	req := httptest.NewRequest(c.method, c.path, &body)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

type session struct {
	AccessToken string `json:"accessToken"`
	User        struct {
		ID    uint   `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

func refreshCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == "refresh_token" {
			return c
		}
	}
	t.Fatal("no refresh cookie set")
	return nil
}

func (s *testServer) register(t *testing.T, email string) (session, *http.Cookie) {
	t.Helper()
	w := s.do(t, call{method: http.MethodPost, path: "/api/v1/auth/register", body: map[string]string{
		"email": email, "password": "hunter22!", "name": "Test User",
	}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[session](t, w), refreshCookie(t, w)
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)

	sess, cookie := s.register(t, "dev@example.com")
	assert.NotEmpty(t, sess.AccessToken)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, int((7 * 24 * time.Hour).Seconds()), cookie.MaxAge)

	w := s.do(t, call{method: http.MethodGet, path: "/api/v1/auth/me", token: sess.AccessToken})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "dev@example.com")

	w = s.do(t, call{method: http.MethodGet, path: "/api/v1/auth/me"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, call{method: http.MethodPost, path: "/api/v1/auth/refresh", cookie: cookie})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rotated := refreshCookie(t, w)
	assert.NotEqual(t, cookie.Value, rotated.Value)

	w = s.do(t, call{method: http.MethodPost, path: "/api/v1/auth/refresh", cookie: cookie})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "REFRESH_INVALID", decode[map[string]any](t, w)["error"])

	w = s.do(t, call{method: http.MethodPost, path: "/api/v1/auth/logout", cookie: rotated})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, -1, refreshCookie(t, w).MaxAge)

	w = s.do(t, call{method: http.MethodPost, path: "/api/v1/auth/logout"})
	assert.Equal(t, http.StatusOK, w.Code, "logout without a cookie still succeeds")

	w = s.do(t, call{method: http.MethodPost, path: "/api/v1/auth/refresh", cookie: rotated})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, call{method: http.MethodPost, path: "/api/v1/auth/login", body: map[string]string{
		"email": "dev@example.com", "password": "wrong-password",
	}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", decode[map[string]any](t, w)["error"])
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, call{method: http.MethodPost, path: "/api/v1/auth/register", body: map[string]string{
		"email": "not-an-email", "password": "short",
	}})
	require.Equal(t, http.StatusBadRequest, w.Code)

	body := decode[map[string]any](t, w)
	details, ok := body["details"].(map[string]any)
	require.True(t, ok, w.Body.String())
	assert.Contains(t, details, "email")
	assert.Contains(t, details, "password")
	assert.Contains(t, details, "name")

	s.register(t, "taken@example.com")
	w = s.do(t, call{method: http.MethodPost, path: "/api/v1/auth/register", body: map[string]string{
		"email": "Taken@Example.com", "password": "hunter22!", "name": "Again",
	}})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestOTPFlowAndRateLimit(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, call{method: http.MethodPost, path: "/api/v1/auth/otp/request", body: map[string]string{"email": "new@example.com"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Code sent", decode[map[string]any](t, w)["message"])

	w = s.do(t, call{method: http.MethodPost, path: "/api/v1/auth/otp/verify", body: map[string]string{
		"email": "new@example.com", "code": s.inbox.code("new@example.com"),
	}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "new@example.com", decode[session](t, w).User.Email)

	// request and verify share the otp window of three
	w = s.do(t, call{method: http.MethodPost, path: "/api/v1/auth/otp/request", body: map[string]string{"email": "new@example.com"}})
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, call{method: http.MethodPost, path: "/api/v1/auth/otp/request", body: map[string]string{"email": "new@example.com"}})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestWorkspaceIssueNotificationFlow(t *testing.T) {
	s := newTestServer(t)
	owner, _ := s.register(t, "a@example.com")
	member, _ := s.register(t, "b@example.com")

	w := s.do(t, call{method: http.MethodPost, path: "/api/v1/workspaces", token: owner.AccessToken, body: map[string]string{
		"name": "Web", "key": "web",
	}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	ws := decode[struct {
		ID   uint   `json:"id"`
		Key  string `json:"key"`
		Role string `json:"role"`
	}](t, w)
	assert.Equal(t, "WEB", ws.Key)
	assert.Equal(t, "OWNER", ws.Role)
	base := "/api/v1/workspaces/" + itoa(ws.ID)

	w = s.do(t, call{method: http.MethodGet, path: base, token: member.AccessToken})
	assert.Equal(t, http.StatusForbidden, w.Code, "not a member yet")

	w = s.do(t, call{method: http.MethodPost, path: base + "/invites", token: owner.AccessToken})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	invite := decode[struct {
		Code string `json:"code"`
		URL  string `json:"url"`
	}](t, w)
	assert.Len(t, invite.Code, 8)
	assert.Equal(t, "http://localhost:5173/join/"+invite.Code, invite.URL)

	w = s.do(t, call{method: http.MethodPost, path: "/api/v1/workspaces/join", token: member.AccessToken, body: map[string]string{"code": invite.Code}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "MEMBER", decode[map[string]any](t, w)["role"])

	w = s.do(t, call{method: http.MethodPost, path: base + "/issues", token: owner.AccessToken, body: map[string]any{
		"title": "Broken login", "assigneeId": member.User.ID, "labels": []string{"bug"},
	}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	issue := decode[struct {
		ID       uint   `json:"id"`
		TicketID string `json:"ticketId"`
	}](t, w)
	assert.Equal(t, "WEB-1", issue.TicketID)

	w = s.do(t, call{method: http.MethodGet, path: "/api/v1/notifications?unread=true", token: member.AccessToken})
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Data []struct {
			ID      uint   `json:"id"`
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"data"`
	}](t, w)
	require.Len(t, list.Data, 1)
	assert.Equal(t, "assigned", list.Data[0].Type)
	assert.Equal(t, `You were assigned to issue "Broken login"`, list.Data[0].Message)

	w = s.do(t, call{method: http.MethodPatch, path: "/api/v1/notifications/" + itoa(list.Data[0].ID) + "/read", token: owner.AccessToken})
	assert.Equal(t, http.StatusNotFound, w.Code, "cannot read someone else's notification")

	w = s.do(t, call{method: http.MethodPatch, path: "/api/v1/notifications/read-all", token: member.AccessToken})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode[map[string]any](t, w)["updated"])

	issuePath := base + "/issues/" + itoa(issue.ID)
	w = s.do(t, call{method: http.MethodPatch, path: issuePath, token: member.AccessToken, body: map[string]any{
		"status": "DONE", "assigneeId": nil,
	}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[struct {
		Fields []string `json:"fields"`
		Issue  struct {
			AssigneeID *uint `json:"assigneeId"`
		} `json:"issue"`
	}](t, w)
	assert.Equal(t, []string{"status", "assigneeId"}, updated.Fields)
	assert.Nil(t, updated.Issue.AssigneeID)

	w = s.do(t, call{method: http.MethodPost, path: issuePath + "/comments", token: member.AccessToken, body: map[string]string{
		"body": "done, cc @a@example.com",
	}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, call{method: http.MethodGet, path: "/api/v1/notifications", token: owner.AccessToken})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `You were mentioned in issue \"Broken login\"`)

	w = s.do(t, call{method: http.MethodGet, path: issuePath + "/activity", token: owner.AccessToken})
	require.Equal(t, http.StatusOK, w.Code)
	activity := decode[struct {
		Data []struct {
			Action string `json:"action"`
		} `json:"data"`
	}](t, w)
	require.Len(t, activity.Data, 3)
	assert.Equal(t, "comment_added", activity.Data[0].Action)
	assert.Equal(t, "issue_resolved", activity.Data[1].Action)
	assert.Equal(t, "issue_created", activity.Data[2].Action)

	// demote the member to viewer; writes are refused, reads still work
	w = s.do(t, call{method: http.MethodPatch, path: base + "/members/" + itoa(member.User.ID) + "/role", token: owner.AccessToken, body: map[string]string{"role": "VIEWER"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, call{method: http.MethodPost, path: base + "/issues", token: member.AccessToken, body: map[string]string{"title": "nope"}})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "INSUFFICIENT_ROLE", decode[map[string]any](t, w)["error"])

	w = s.do(t, call{method: http.MethodGet, path: base + "/issues?status=DONE", token: member.AccessToken})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode[map[string]any](t, w)["total"])

	w = s.do(t, call{method: http.MethodPatch, path: base + "/members/" + itoa(owner.User.ID) + "/role", token: owner.AccessToken, body: map[string]string{"role": "ADMIN"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "CANNOT_DEMOTE_SELF", decode[map[string]any](t, w)["error"])
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, call{method: http.MethodGet, path: "/api/health"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "test", body["version"])
}

func TestRealtimeRejectsBadToken(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, call{method: http.MethodGet, path: "/api/v1/ws?token=garbage"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
