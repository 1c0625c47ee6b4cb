package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pos/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initJWTTestConfig() {
	InitJWT(&config.Config{
		Server: config.ServerConfig{Mode: "debug"},
		JWT:    config.JWTConfig{Secret: "test-jwt-secret-key"},
	})
}

func TestGenerateToken(t *testing.T) {
	initJWTTestConfig()

	token, err := GenerateToken(3, 12*time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(3), claims.PinID)
	assert.Equal(t, BackofficeSubject, claims.Subject)
}

func TestParseToken(t *testing.T) {
	initJWTTestConfig()

	_, err := ParseToken("")
	assert.Error(t, err)

	_, err = ParseToken("not.a.valid.jwt")
	assert.Error(t, err)

	// expired
	token, _ := GenerateToken(1, -time.Minute)
	_, err = ParseToken(token)
	assert.Error(t, err)

	// signed with another secret
	other := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		PinID:            1,
		RegisteredClaims: jwt.RegisteredClaims{Subject: BackofficeSubject, ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	signed, err := other.SignedString([]byte("another-secret"))
	require.NoError(t, err)
	_, err = ParseToken(signed)
	assert.Error(t, err)

	// wrong subject
	wrongSub := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "register", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	signed, err = wrongSub.SignedString([]byte("test-jwt-secret-key"))
	require.NoError(t, err)
	_, err = ParseToken(signed)
	assert.Error(t, err)
}

func newBackofficeRouter(required bool, lookup ...PinLookup) *gin.Engine {
	var currentPin PinLookup
	if len(lookup) > 0 {
		currentPin = lookup[0]
	}
	gin.SetMode(gin.TestMode)
	router := gin.New()
	bo := router.Group("/api/backoffice")
	bo.Use(BackofficeAuth(required, currentPin))
	bo.GET("/dashboard", func(c *gin.Context) {
		c.String(http.StatusOK, "pin:%d", GetBackofficePinID(c))
	})
	bo.POST("/verify-pin", func(c *gin.Context) {
		c.String(http.StatusOK, "open")
	})
	return router
}

func doGet(router *gin.Engine, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestBackofficeAuth_Required(t *testing.T) {
	initJWTTestConfig()
	router := newBackofficeRouter(true)

	w := doGet(router, "/api/backoffice/dashboard", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "token required")

	w = doGet(router, "/api/backoffice/dashboard", "Basic xyz")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doGet(router, "/api/backoffice/dashboard", "Bearer ")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doGet(router, "/api/backoffice/dashboard", "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, _ := GenerateToken(42, time.Hour)
	w = doGet(router, "/api/backoffice/dashboard", "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pin:42", w.Body.String())

	// PIN entry stays reachable
	req := httptest.NewRequest(http.MethodPost, "/api/backoffice/verify-pin", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBackofficeAuth_Optional(t *testing.T) {
	initJWTTestConfig()
	router := newBackofficeRouter(false)

	w := doGet(router, "/api/backoffice/dashboard", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pin:0", w.Body.String())

	w = doGet(router, "/api/backoffice/dashboard", "Bearer garbage")
	assert.Equal(t, http.StatusOK, w.Code)

	token, _ := GenerateToken(7, time.Hour)
	w = doGet(router, "/api/backoffice/dashboard", "Bearer "+token)
	assert.Equal(t, "pin:7", w.Body.String())
}

func TestBackofficeAuth_ReplacedPin(t *testing.T) {
	initJWTTestConfig()
	active := uint(5)
	router := newBackofficeRouter(true, func() (uint, error) { return active, nil })

	token, _ := GenerateToken(5, time.Hour)
	w := doGet(router, "/api/backoffice/dashboard", "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pin:5", w.Body.String())

	active = 6
	w = doGet(router, "/api/backoffice/dashboard", "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// lookup failures reject the token as well
	failing := newBackofficeRouter(true, func() (uint, error) { return 0, errors.New("db down") })
	w = doGet(failing, "/api/backoffice/dashboard", "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// optional mode ignores a stale token
	optional := newBackofficeRouter(false, func() (uint, error) { return 6, nil })
	w = doGet(optional, "/api/backoffice/dashboard", "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pin:0", w.Body.String())
}

func TestGetBackofficePinID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, uint(0), GetBackofficePinID(c))

	c.Set("pinID", uint(99))
	assert.Equal(t, uint(99), GetBackofficePinID(c))
}

func TestMatchPath(t *testing.T) {
	tests := []struct {
		actual   string
		pattern  string
		expected bool
	}{
		{"/api/backoffice/verify-pin", "/api/backoffice/verify-pin", true},
		{"/api/backoffice/verify-pin/", "/api/backoffice/verify-pin", true},
		{"/api/backoffice/pin", "/api/backoffice/pin-info", false},
		{"/api/items/5", "/api/items/:id", true},
		{"/api/items/", "/api/items/:id", false},
		{"/api/items/variants/5", "/api/items/:id", false},
	}
	for _, tt := range tests {
		got := matchPath(normalizePath(tt.actual), tt.pattern)
		assert.Equalf(t, tt.expected, got, "matchPath(%q, %q)", tt.actual, tt.pattern)
	}
}
