package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailmark-ai/trailmark-go/internal/application/services"
	"github.com/trailmark-ai/trailmark-go/internal/infrastructure/observability/logging"
)

func authFixture(t *testing.T, disabled bool) (*gin.Engine, *services.AuthService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger, err := logging.NewChanneledLogger(&logging.LoggerConfig{
		DefaultLevel:  slog.LevelError + 4,
		ChannelLevels: make(map[logging.Channel]slog.Level),
	})
	require.NoError(t, err)

	authService := services.NewAuthService("test-secret", time.Hour, logger)
	r := gin.New()
	r.Use(AuthMiddleware(authService, disabled))
	r.GET("/guarded", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r, authService
}

func TestAuthMiddlewareRejectsMissingToken(t *testing.T) {
	r, _ := authFixture(t, false)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/guarded", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareRejectsBadToken(t *testing.T) {
	r, _ := authFixture(t, false)

	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareAcceptsValidToken(t *testing.T) {
	r, authService := authFixture(t, false)

	token, err := authService.GenerateToken()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthMiddlewareDisabled(t *testing.T) {
	r, _ := authFixture(t, true)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/guarded", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
