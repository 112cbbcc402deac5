package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRequestID(t *testing.T) {
	engine := gin.New()
	engine.Use(RequestID())
	engine.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, w.Body.String(), 36)
	assert.Equal(t, w.Body.String(), w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("x", 500))
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Len(t, w.Body.String(), MaxRequestIDLength)
}

func TestCORSWithConfig(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowOrigins = []string{"https://housing.example"}
	engine := gin.New()
	engine.Use(CORSWithConfig(cfg))
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(method, origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/", nil)
		req.Header.Set("Origin", origin)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		return w
	}

	w := send(http.MethodGet, "https://housing.example")
	assert.Equal(t, "https://housing.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), UserRoleHeader)

	w = send(http.MethodGet, "https://evil.example")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	w = send(http.MethodOptions, "https://evil.example")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSecure(t *testing.T) {
	engine := gin.New()
	engine.Use(SecureWithConfig(SecurityConfig{HSTSEnabled: true, HSTSMaxAge: 60, CSPDirective: "default-src 'none'"}))
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "max-age=60; includeSubDomains", w.Header().Get("Strict-Transport-Security"))
	assert.Equal(t, "default-src 'none'", w.Header().Get("Content-Security-Policy"))
}

func TestTimeout(t *testing.T) {
	engine := gin.New()
	engine.Use(RequestID(), Timeout(20*time.Millisecond))
	engine.GET("/slow", func(c *gin.Context) {
		<-c.Request.Context().Done()
	})
	engine.GET("/fast", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/slow", nil))
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_TIMEOUT")

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fast", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
