package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apperrors "github.com/Payphone-Digital/sprintdesk/internal/errors"
	"github.com/Payphone-Digital/sprintdesk/internal/model"
	"github.com/Payphone-Digital/sprintdesk/pkg/cache"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type tokenTable map[string]uint

func (t tokenTable) Authenticate(token string) (uint, error) {
	if id, ok := t[token]; ok {
		return id, nil
	}
	return 0, apperrors.ErrUnauthenticated
}

type roleTable map[uint]model.WorkspaceRole

func (r roleTable) RequireMember(_ context.Context, workspaceID, userID uint) (model.WorkspaceRole, error) {
	if workspaceID != 1 {
		return "", apperrors.ErrNotAMember
	}
	if role, ok := r[userID]; ok {
		return role, nil
	}
	return "", apperrors.ErrNotAMember
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestRequireAuth(t *testing.T) {
	r := gin.New()
	r.Use(NewJWTMiddleware(tokenTable{"good": 7}).RequireAuth())
	r.GET("/me", func(c *gin.Context) {
		id, _ := UserID(c)
		c.JSON(http.StatusOK, gin.H{"id": id})
	})

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"unknown token", "Bearer bad", http.StatusUnauthorized},
		{"valid", "Bearer good", http.StatusOK},
		{"scheme is case-insensitive", "bearer good", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusUnauthorized {
				assert.Equal(t, "UNAUTHENTICATED", decode(t, w)["error"])
			}
		})
	}
}

func TestRequireWorkspaceMember(t *testing.T) {
	r := gin.New()
	r.Use(NewJWTMiddleware(tokenTable{"owner": 1, "outsider": 2}).RequireAuth())
	r.GET("/workspaces/:workspaceId", NewWorkspaceMiddleware(roleTable{1: model.RoleOwner}).RequireMember(), func(c *gin.Context) {
		role, _ := c.Get("workspace_role")
		c.JSON(http.StatusOK, gin.H{"workspace": WorkspaceID(c), "role": role})
	})

	tests := []struct {
		name   string
		token  string
		path   string
		status int
	}{
		{"member", "owner", "/workspaces/1", http.StatusOK},
		{"non-member", "outsider", "/workspaces/1", http.StatusForbidden},
		{"other workspace", "owner", "/workspaces/2", http.StatusForbidden},
		{"bad id", "owner", "/workspaces/abc", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.Header.Set("Authorization", "Bearer "+tt.token)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestRateLimitMemoryStore(t *testing.T) {
	c := cache.NewCache(0)
	defer c.Close()

	r := gin.New()
	r.POST("/otp", RateLimit(NewMemoryCounterStore(c), "otp", 2, time.Minute), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/otp", nil))
		codes = append(codes, w.Code)
		if i == 2 {
			assert.Equal(t, "RATE_LIMITED", decode(t, w)["error"])
			assert.NotEmpty(t, w.Header().Get("Retry-After"))
		}
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
}

type brokenStore struct{}

func (brokenStore) Incr(context.Context, string, time.Duration) (int64, time.Duration, error) {
	return 0, 0, errors.New("redis: connection refused")
}

func TestRateLimitFailsOpen(t *testing.T) {
	r := gin.New()
	r.GET("/", RateLimit(brokenStore{}, "auth", 1, time.Minute), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS("http://localhost:5173, https://app.example.com"))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestContextMiddlewareRequestID(t *testing.T) {
	r := gin.New()
	r.Use(ContextMiddleware(time.Second))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Len(t, w.Header().Get("X-Request-ID"), 36)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

func TestBindErrorsUseJSONNames(t *testing.T) {
	RegisterJSONFieldNames()

	type body struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=8"`
	}
	r := gin.New()
	r.POST("/x", func(c *gin.Context) {
		var req body
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithBindError(c, err)
			return
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"email":"nope","password":"short"}`)))
	require.Equal(t, http.StatusBadRequest, w.Code)

	details, ok := decode(t, w)["details"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "email is not a valid address", details["email"])
	assert.Equal(t, "password must be at least 8 characters", details["password"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
