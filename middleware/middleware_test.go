package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/gympoints/config"
	"github.com/cppla/gympoints/session"
	"github.com/cppla/gympoints/utils"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	config.Set(config.AppConfig{JWTSecret: "test-secret"})
	os.Exit(m.Run())
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.GET("/x", RateLimit(2), func(ctx *gin.Context) { ctx.Status(http.StatusNoContent) })

	// burst is perMinute/2 = 1
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func adminRouter() *gin.Engine {
	r := gin.New()
	r.GET("/admin", AdminRequired(), func(ctx *gin.Context) {
		ctx.String(http.StatusOK, ctx.GetString(ContextAdminKey))
	})
	return r
}

func TestAdminRequired(t *testing.T) {
	r := adminRouter()

	admin, err := utils.GenerateToken("desk", utils.RoleAdmin, time.Hour)
	require.NoError(t, err)
	member, err := utils.GenerateToken("desk", "member", time.Hour)
	require.NoError(t, err)

	cases := []struct {
		header string
		status int
	}{
		{"", http.StatusUnauthorized},
		{"Token abc", http.StatusUnauthorized},
		{"Bearer ", http.StatusUnauthorized},
		{"Bearer garbage", http.StatusUnauthorized},
		{"Bearer " + member, http.StatusForbidden},
		{"Bearer " + admin, http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, tc.status, w.Code, "header %q", tc.header)
		if tc.status == http.StatusOK {
			assert.Equal(t, "desk", w.Body.String())
		}
	}
}

func TestSessionCookie(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)
	r := gin.New()
	r.Use(Session(store, "gym_session", time.Hour))
	r.POST("/set", func(ctx *gin.Context) {
		_ = SessionAnchor(ctx).Save(ctx.Request.Context(), "42")
		ctx.Status(http.StatusNoContent)
	})
	r.GET("/get", func(ctx *gin.Context) {
		id, _ := SessionAnchor(ctx).Load(ctx.Request.Context())
		ctx.String(http.StatusOK, id)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/set", nil))
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "gym_session", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, validSessionID(cookies[0].Value))

	req := httptest.NewRequest(http.MethodGet, "/get", nil)
	req.AddCookie(cookies[0])
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "42", w.Body.String())

	// a forged cookie gets a fresh, empty session
	req = httptest.NewRequest(http.MethodGet, "/get", nil)
	req.AddCookie(&http.Cookie{Name: "gym_session", Value: "../../etc"})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Body.String())
}

func TestCookielessVisitorsAreNotRetained(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)
	r := gin.New()
	r.Use(Session(store, "gym_session", time.Hour))
	r.GET("/get", func(ctx *gin.Context) {
		id, _ := SessionAnchor(ctx).Load(ctx.Request.Context())
		ctx.String(http.StatusOK, id)
	})

	for i := 0; i < 500; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/get", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Body.String())
	}
	assert.Zero(t, store.Len())
}

func TestMetricsMiddlewarePassesThrough(t *testing.T) {
	r := gin.New()
	r.Use(Metrics())
	r.GET("/ping/:id", func(ctx *gin.Context) { ctx.String(http.StatusOK, "pong") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping/1", nil))
	assert.Equal(t, "pong", w.Body.String())
}
