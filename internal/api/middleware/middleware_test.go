package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"team-sports/backend/config"
	"team-sports/backend/internal/model"
	"team-sports/backend/pkg/jwt"
	"team-sports/backend/pkg/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestJWT() *jwt.Manager {
	return jwt.NewManager(&config.AuthConfig{
		JWTSecret:               "test-secret-key-at-least-32-bytes!!",
		AccessTokenTTL:          15 * time.Minute,
		RefreshTokenTTLDefault:  24 * time.Hour,
		RefreshTokenTTLRemember: 7 * 24 * time.Hour,
	})
}

func protectedEngine(mgr *jwt.Manager, extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers := append([]gin.HandlerFunc{JWTAuth(mgr, nil, zap.NewNop())}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		auth := c.MustGet(CtxAuth).(model.AuthContext)
		c.JSON(http.StatusOK, gin.H{"user_id": auth.UserID, "role": auth.Role, "team_id": auth.TeamID})
	})
	r.GET("/protected", handlers...)
	return r
}

func get(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth_InjectsAuthContext(t *testing.T) {
	mgr := newTestJWT()
	token, err := mgr.GenerateAccessToken("coach-1", "coach", "team-a")
	require.NoError(t, err)

	w := get(protectedEngine(mgr), "/protected", token)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"team_id":"team-a"`)
	assert.Contains(t, w.Body.String(), `"role":"coach"`)
}

func TestJWTAuth_Rejects(t *testing.T) {
	mgr := newTestJWT()
	refresh, _ := mgr.GenerateRefreshToken("u", "player", "team-a", false)
	badRole, _ := mgr.GenerateAccessToken("u", "owner", "")

	tests := []struct {
		name   string
		header string
	}{
		{"缺少认证头", ""},
		{"格式错误", "Token abc"},
		{"无效 Token", "Bearer not-a-jwt"},
		{"Refresh Token 不能访问接口", "Bearer " + refresh},
		{"未知角色", "Bearer " + badRole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			protectedEngine(mgr).ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestRoleAuth(t *testing.T) {
	mgr := newTestJWT()
	r := protectedEngine(mgr, RoleAuth(model.RoleAdmin, model.RoleCoach))

	coach, _ := mgr.GenerateAccessToken("c", "coach", "team-a")
	player, _ := mgr.GenerateAccessToken("p", "player", "team-a")

	assert.Equal(t, http.StatusOK, get(r, "/protected", coach).Code)
	assert.Equal(t, http.StatusForbidden, get(r, "/protected", player).Code)
}

func TestRoleAuth_WithoutJWT(t *testing.T) {
	r := gin.New()
	r.GET("/x", RoleAuth(model.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusUnauthorized, get(r, "/x", "").Code)
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(requestIDKey)) })

	w := get(r, "/x", "")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, w.Header().Get("X-Request-ID"), w.Body.String())

	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("X-Request-ID", strings.Repeat("a", requestIDMaxLen+1))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Len(t, w.Header().Get("X-Request-ID"), 36, "过长的外部 ID 应被替换为 UUID")
}

func TestMetrics_UsesRouteTemplate(t *testing.T) {
	m := metrics.New()
	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/teams/:id/schedule", func(c *gin.Context) { c.Status(http.StatusOK) })

	get(r, "/teams/a/schedule", "")
	get(r, "/teams/b/schedule", "")

	count, err := testutil.GatherAndCount(m.Registry(), "http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count, "不同 id 应落在同一条路由模板序列上")
}

func TestRateLimit_NilRedisPassesThrough(t *testing.T) {
	r := gin.New()
	r.POST("/login", RateLimit(nil, 1, time.Minute, zap.NewNop()), func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("POST", "/login", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}
}
