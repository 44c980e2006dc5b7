package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/skol/backend/internal/infrastructure/auth"
	"github.com/skol/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                "test-secret-for-middleware-tests-32ch",
		AccessTokenExpiration: time.Hour,
		Issuer:                "skol-test",
	})
}

func newJWTRouter(jwtService *auth.JWTService) *gin.Engine {
	router := gin.New()
	router.Use(JWTAuthMiddleware(jwtService))
	router.GET("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.GET("/protected", func(c *gin.Context) {
		c.String(http.StatusOK, GetJWTUserID(c))
	})
	return router
}

func TestJWTMiddlewareValidToken(t *testing.T) {
	jwtService := newTestJWTService()
	router := newJWTRouter(jwtService)

	userID := uuid.New()
	token, _, err := jwtService.GenerateToken(auth.GenerateTokenInput{
		UserID:   userID,
		Username: "qf.pharmacist",
		Role:     auth.RolePharmacist,
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID.String(), w.Body.String())
}

func TestJWTMiddlewareMissingHeader(t *testing.T) {
	router := newJWTRouter(newTestJWTService())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/protected", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTMiddlewareMalformedHeader(t *testing.T) {
	router := newJWTRouter(newTestJWTService())

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set(AuthHeaderKey, "Token abc")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTMiddlewareInvalidToken(t *testing.T) {
	router := newJWTRouter(newTestJWTService())

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+"not.a.token")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTMiddlewareWrongSecret(t *testing.T) {
	other := auth.NewJWTService(config.JWTConfig{
		Secret:                "another-secret-entirely-but-32-chars",
		AccessTokenExpiration: time.Hour,
		Issuer:                "skol-test",
	})
	token, _, err := other.GenerateToken(auth.GenerateTokenInput{
		UserID:   uuid.New(),
		Username: "intruder",
	})
	require.NoError(t, err)

	router := newJWTRouter(newTestJWTService())

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTMiddlewareSkipPaths(t *testing.T) {
	router := newJWTRouter(newTestJWTService())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestJWTMiddlewareStoresClaims(t *testing.T) {
	jwtService := newTestJWTService()

	router := gin.New()
	router.Use(JWTAuthMiddleware(jwtService))
	router.GET("/claims", func(c *gin.Context) {
		claims := GetJWTClaims(c)
		require.NotNil(t, claims)
		assert.Equal(t, "c.soto", claims.Username)
		assert.Equal(t, auth.RoleDispatcher, GetJWTRole(c))
		c.Status(http.StatusOK)
	})

	token, _, err := jwtService.GenerateToken(auth.GenerateTokenInput{
		UserID:   uuid.New(),
		Username: "c.soto",
		Role:     auth.RoleDispatcher,
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/claims", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
