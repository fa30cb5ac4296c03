package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Anshuhim02/student-result-api/internal/models"
	"github.com/Anshuhim02/student-result-api/internal/service"
)

func signToken(t *testing.T, secret string, claims *models.JWTClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestJWTMissingHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	authSvc := service.NewAuthService(nil, nil, nil, service.AuthConfig{AccessTokenSecret: "secret"})
	r := gin.New()
	r.GET("/protected", JWT(authSvc), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTMalformedHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	authSvc := service.NewAuthService(nil, nil, nil, service.AuthConfig{AccessTokenSecret: "secret"})
	r := gin.New()
	r.GET("/protected", JWT(authSvc), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Token abc")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTValidTokenStoresClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	authSvc := service.NewAuthService(nil, nil, nil, service.AuthConfig{AccessTokenSecret: "secret"})

	var captured *models.JWTClaims
	r := gin.New()
	r.GET("/protected", JWT(authSvc), func(c *gin.Context) {
		value, _ := c.Get(ContextUserKey)
		captured, _ = value.(*models.JWTClaims)
		c.Status(http.StatusOK)
	})

	token := signToken(t, "secret", &models.JWTClaims{
		UserID: "u1",
		Email:  "anshu@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, captured)
	assert.Equal(t, "u1", captured.UserID)
}

func TestJWTWrongSecretRejected(t *testing.T) {
	gin.SetMode(gin.TestMode)
	authSvc := service.NewAuthService(nil, nil, nil, service.AuthConfig{AccessTokenSecret: "secret"})
	r := gin.New()
	r.GET("/protected", JWT(authSvc), func(c *gin.Context) { c.Status(http.StatusOK) })

	token := signToken(t, "other-secret", &models.JWTClaims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
