package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ozodbek/chatline/internal/auth"
	"github.com/stretchr/testify/require"
)

func protected(t *testing.T, tokens *auth.TokenManager) (http.Handler, *int) {
	t.Helper()
	var seenUserID int
	handler := Auth(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenUserID = UserID(r)
		w.WriteHeader(http.StatusOK)
	}))
	return handler, &seenUserID
}

func TestAuthPassesValidToken(t *testing.T) {
	req := require.New(t)
	tokens := auth.NewTokenManager("secret", time.Hour)
	handler, seenUserID := protected(t, tokens)

	token, err := tokens.Generate(42, "alice@example.com")
	req.NoError(err)

	request := httptest.NewRequest("GET", "/chat/conversations", nil)
	request.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, request)

	req.Equal(http.StatusOK, rr.Code)
	req.Equal(42, *seenUserID)
}

func TestAuthRejectsMissingHeader(t *testing.T) {
	tokens := auth.NewTokenManager("secret", time.Hour)
	handler, _ := protected(t, tokens)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/chat/conversations", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuthRejectsBadToken(t *testing.T) {
	tokens := auth.NewTokenManager("secret", time.Hour)
	handler, _ := protected(t, tokens)

	request := httptest.NewRequest("GET", "/chat/conversations", nil)
	request.Header.Set("Authorization", "Bearer garbage")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, request)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuthRejectsExpiredToken(t *testing.T) {
	req := require.New(t)
	tokens := auth.NewTokenManager("secret", -time.Minute)
	handler, _ := protected(t, tokens)

	token, err := tokens.Generate(42, "alice@example.com")
	req.NoError(err)

	request := httptest.NewRequest("GET", "/chat/conversations", nil)
	request.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, request)
	req.Equal(http.StatusUnauthorized, rr.Code)
}

func TestUserIDDefaultsToZero(t *testing.T) {
	require.Zero(t, UserID(httptest.NewRequest("GET", "/", nil)))
}
