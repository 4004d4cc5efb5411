package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"vodgate/internal/core/domain"
	"vodgate/internal/core/services"
	"vodgate/internal/infrastructure/identity"
	"vodgate/internal/infrastructure/middleware"
	"vodgate/internal/infrastructure/repositories/memory"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const jwtSecret = "handler-test-secret"

var testNow = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type testServer struct {
	router *gin.Engine
	signer *services.CDNSigner
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zaptest.NewLogger(t).Sugar()
	ctx := context.Background()

	contents := memory.NewMemoryContentRepository()
	users := memory.NewMemoryUserRepository()

	gold, err := domain.NewExpirationMap(map[string]string{
		"gold": "2024-01-08T00:00", "platinum": "", "diamond": "",
	})
	require.NoError(t, err)
	open, err := domain.NewExpirationMap(map[string]string{
		"nonUser": "", "normal": "", "bronze": "", "silver": "", "gold": "", "platinum": "", "diamond": "",
	})
	require.NoError(t, err)

	require.NoError(t, contents.SaveContent(ctx, &domain.ContentItem{
		ID: "video-1", Kind: domain.KindVideo, Status: domain.StatusPublished,
		RequiredRole: domain.RoleGold, ExpiredAt: gold,
	}))
	require.NoError(t, contents.SaveContent(ctx, &domain.ContentItem{
		ID: "trailer", Kind: domain.KindVideo, Status: domain.StatusPublished,
		RequiredRole: domain.RoleNonUser, ExpiredAt: open,
	}))
	require.NoError(t, contents.SaveContent(ctx, &domain.ContentItem{
		ID: "live-1", Kind: domain.KindLivestreaming, Status: domain.StatusStreaming,
		RequiredRole: domain.RoleNonUser, ExpiredAt: open,
	}))
	for _, cred := range []*domain.DeliveryCredential{
		{ContentID: "video-1", Kind: domain.KindVideo, URL: "https://cdn.example.com/video-1/master.m3u8"},
		{ContentID: "trailer", Kind: domain.KindVideo, URL: "https://cdn.example.com/trailer/master.m3u8"},
		{ContentID: "live-1", Kind: domain.KindLivestreaming, URL: "https://cdn.example.com/live-1/index.m3u8"},
	} {
		require.NoError(t, contents.SaveCredential(ctx, cred))
	}
	require.NoError(t, users.SaveUser(ctx, &domain.User{ID: "user-1"}))

	signer, err := services.NewCDNSigner(services.CDNSignerConfig{
		KeyName:         "vod-key",
		SecretKey:       "nZtRohdNF9m3cKM24IcK4w==",
		Secure:          true,
		BaseURL:         "https://cdn.example.com",
		MaxUnboundedTTL: 24 * time.Hour,
	}, log)
	require.NoError(t, err)

	svc := services.NewAuthorizationService(
		contents, users,
		identity.NewJWTVerifier(jwtSecret, "", "", "role", log),
		signer, nil, log,
		services.WithClock(func() time.Time { return testNow }),
	)

	router := gin.New()
	router.Use(middleware.ErrorHandlerMiddleware(log))
	NewPlaybackHandler(svc).SetupRoutes(router)

	return &testServer{router: router, signer: signer}
}

func idToken(t *testing.T, uid, role string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  uid,
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(jwtSecret))
	require.NoError(t, err)
	return token
}

func (s *testServer) post(t *testing.T, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestAuthorizeVideo_Granted(t *testing.T) {
	s := newTestServer(t)

	w := s.post(t, "/api/v1/videos/authorize", AuthorizeRequest{
		UserID:  "user-1",
		VideoID: "video-1",
		IDToken: idToken(t, "user-1", "gold"),
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp AuthorizeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "https://cdn.example.com/video-1/master.m3u8", resp.SrcURL)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	cookie := cookies[0]
	assert.Equal(t, services.DefaultCookieName, cookie.Name)
	assert.Equal(t, "/video-1", cookie.Path)
	assert.True(t, cookie.Secure)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteNoneMode, cookie.SameSite)

	tok, err := s.signer.Verify(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), tok.ExpiresAt)
}

func TestAuthorizeVideo_PublicAccess(t *testing.T) {
	s := newTestServer(t)

	w := s.post(t, "/api/v1/videos/authorize", map[string]interface{}{
		"videoId":      "trailer",
		"publicAccess": true,
	})
	require.Equal(t, http.StatusOK, w.Code)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	tok, err := s.signer.Verify(cookies[0].Value)
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(24*time.Hour), tok.ExpiresAt)
}

func TestAuthorizeVideo_UIDMismatch(t *testing.T) {
	s := newTestServer(t)

	w := s.post(t, "/api/v1/videos/authorize", AuthorizeRequest{
		UserID:  "user-1",
		VideoID: "video-1",
		IDToken: idToken(t, "intruder", "diamond"),
	})

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Body.String())
	assert.Empty(t, w.Result().Cookies())
}

func TestAuthorizeVideo_EntryGate(t *testing.T) {
	s := newTestServer(t)

	w := s.post(t, "/api/v1/videos/authorize", AuthorizeRequest{
		UserID:  "user-1",
		VideoID: "video-1",
		IDToken: idToken(t, "user-1", "silver"),
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestAuthorizeVideo_PublicAccessBelowGate(t *testing.T) {
	s := newTestServer(t)

	w := s.post(t, "/api/v1/videos/authorize", map[string]interface{}{
		"videoId":      "video-1",
		"publicAccess": true,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuthorizeVideo_BadRequests(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		body   interface{}
		status int
	}{
		{"empty body", "", http.StatusNotFound},
		{"not json", "{videoId", http.StatusNotFound},
		{"no video id", map[string]interface{}{"userId": "user-1", "idToken": "a.b.c"}, http.StatusNotFound},
		{"traversal id", map[string]interface{}{"videoId": "../x", "publicAccess": true}, http.StatusNotFound},
		{"no user id", map[string]interface{}{"videoId": "video-1", "idToken": "a.b.c"}, http.StatusNotFound},
		{"no id token", map[string]interface{}{"videoId": "video-1", "userId": "user-1"}, http.StatusNotFound},
		{"malformed id token", map[string]interface{}{"videoId": "video-1", "userId": "user-1", "idToken": "opaque"}, http.StatusForbidden},
		{"unverifiable id token", map[string]interface{}{"videoId": "video-1", "userId": "user-1", "idToken": "a.b.c"}, http.StatusForbidden},
		{"unknown video", map[string]interface{}{"videoId": "ghost", "publicAccess": true}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.post(t, "/api/v1/videos/authorize", tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.Empty(t, w.Body.String())
			assert.Empty(t, w.Result().Cookies())
		})
	}
}

func TestAuthorizeLivestreaming(t *testing.T) {
	s := newTestServer(t)

	w := s.post(t, "/api/v1/livestreamings/authorize", map[string]interface{}{
		"livestreamingId": "live-1",
		"publicAccess":    true,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "https://cdn.example.com/live-1/index.m3u8")

	// a video id is not looked up in the livestreaming namespace
	w = s.post(t, "/api/v1/livestreamings/authorize", map[string]interface{}{
		"videoId":      "trailer",
		"publicAccess": true,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
