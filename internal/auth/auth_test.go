package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTokens = TokenService{Secret: []byte("test-secret"), Issuer: "novelhub", Duration: time.Hour}

func TestSignAndParse(t *testing.T) {
	tok, exp, err := testTokens.Sign("operator")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, time.Minute)

	claims, err := testTokens.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "operator", claims.Subject)
	assert.Equal(t, RoleAdmin, claims.Role)
}

func TestParseRejects(t *testing.T) {
	other := TokenService{Secret: []byte("other"), Issuer: "novelhub", Duration: time.Hour}
	wrongKey, _, err := other.Sign("x")
	require.NoError(t, err)
	_, err = testTokens.Parse(wrongKey)
	assert.Error(t, err)

	foreign := TokenService{Secret: testTokens.Secret, Issuer: "elsewhere", Duration: time.Hour}
	wrongIssuer, _, err := foreign.Sign("x")
	require.NoError(t, err)
	_, err = testTokens.Parse(wrongIssuer)
	assert.Error(t, err)

	expired := TokenService{Secret: testTokens.Secret, Issuer: "novelhub", Duration: -time.Minute}
	old, _, err := expired.Sign("x")
	require.NoError(t, err)
	_, err = testTokens.Parse(old)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	_, _, err = TokenService{}.Sign("x")
	assert.Error(t, err)
}

func TestRequireAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin", RequireAdmin(testTokens), func(c *gin.Context) {
		c.String(http.StatusOK, MustGetClaims(c).Subject)
	})

	reader := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role:             "reader",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "novelhub", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	readerTok, err := reader.SignedString(testTokens.Secret)
	require.NoError(t, err)
	adminTok, _, err := testTokens.Sign("operator")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage", "Bearer nope", http.StatusUnauthorized},
		{"wrong role", "Bearer " + readerTok, http.StatusForbidden},
		{"admin", "Bearer " + adminTok, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusOK {
				assert.Equal(t, "operator", rec.Body.String())
			}
		})
	}
}
