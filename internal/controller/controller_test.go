package controller

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"querymate-be/internal/dto"
	"querymate-be/internal/pkg/serverutils"
	"querymate-be/internal/service"
	"querymate-be/pkg/contextbuilder"
)

const testSecret = "controller-secret"

type stubSessions struct {
	lastUser    uuid.UUID
	lastMessage string
	lastFinal   string
	postErr     error
	completeErr error
}

func (s *stubSessions) GetSession(ctx context.Context, userId uuid.UUID) (*dto.ContextSessionResponse, error) {
	s.lastUser = userId
	return &dto.ContextSessionResponse{Stage: "collecting", InitialMessage: "hi", Messages: []dto.SessionMessage{}}, nil
}

func (s *stubSessions) PostMessage(ctx context.Context, userId uuid.UUID, message string) (*dto.PostMessageResponse, error) {
	s.lastUser, s.lastMessage = userId, message
	if s.postErr != nil {
		return nil, s.postErr
	}
	return &dto.PostMessageResponse{
		Reply:         "What do you do?",
		CollectedData: &contextbuilder.Fields{BusinessName: "Acme"},
	}, nil
}

func (s *stubSessions) CompleteSession(ctx context.Context, userId uuid.UUID, finalContext string) error {
	s.lastFinal = finalContext
	return s.completeErr
}

func (s *stubSessions) ResetSession(ctx context.Context, userId uuid.UUID) error { return nil }

func (s *stubSessions) UpdateSession(ctx context.Context, userId uuid.UUID) (*dto.ContextSessionResponse, error) {
	return nil, service.ErrSessionNotComplete
}

type stubWidget struct{ key string }

func (s *stubWidget) Chat(ctx context.Context, key, message string) (string, error) {
	s.key = key
	if key != "qm_good" {
		return "", service.ErrInvalidApiKey
	}
	return "We open at 8am.", nil
}

func (s *stubWidget) Settings(ctx context.Context, key string) (map[string]string, error) {
	return map[string]string{"header_title": "Acme"}, nil
}

func (s *stubWidget) InvalidateUser(userId string) {}

func newTestApp(sessions service.IContextSessionService, widget service.IWidgetChatService) *fiber.App {
	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	api := app.Group("/api")
	auth := serverutils.JwtMiddleware(testSecret)
	NewContextSessionController(sessions).RegisterRoutes(api, auth)
	NewWidgetController(widget).RegisterRoutes(app, api)
	return app
}

func bearer(t *testing.T, userId uuid.UUID) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userId.String(),
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func do(t *testing.T, app *fiber.App, method, path, auth string, body interface{}, headers ...string) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	res, err := app.Test(req, -1)
	require.NoError(t, err)
	defer res.Body.Close()

	var out map[string]interface{}
	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	if len(raw) > 0 && strings.HasPrefix(res.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return res, out
}

func TestContextSessionController_RequiresToken(t *testing.T) {
	app := newTestApp(&stubSessions{}, &stubWidget{})

	res, body := do(t, app, http.MethodGet, "/api/context-session", "", nil)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Missing token", body["error"])

	res, _ = do(t, app, http.MethodGet, "/api/context-session", "Bearer garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestContextSessionController_PostMessage(t *testing.T) {
	sessions := &stubSessions{}
	app := newTestApp(sessions, &stubWidget{})
	userId := uuid.New()

	res, body := do(t, app, http.MethodPost, "/api/context-session/message", bearer(t, userId), map[string]string{"message": "Acme"})
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "What do you do?", body["reply"])
	assert.Equal(t, false, body["done"])
	assert.Equal(t, map[string]interface{}{"business_name": "Acme"}, body["collectedData"])
	assert.Equal(t, userId, sessions.lastUser)
	assert.Equal(t, "Acme", sessions.lastMessage)
}

func TestContextSessionController_ValidationAndConflicts(t *testing.T) {
	sessions := &stubSessions{postErr: service.ErrSessionAlreadyComplete}
	app := newTestApp(sessions, &stubWidget{})
	auth := bearer(t, uuid.New())

	res, body := do(t, app, http.MethodPost, "/api/context-session/message", auth, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "message is required", body["error"])

	res, body = do(t, app, http.MethodPost, "/api/context-session/message", auth, map[string]string{"message": "more"})
	assert.Equal(t, http.StatusConflict, res.StatusCode)
	assert.Equal(t, float64(409), body["code"])

	res, _ = do(t, app, http.MethodPost, "/api/context-session/update", auth, nil)
	assert.Equal(t, http.StatusConflict, res.StatusCode)
}

func TestContextSessionController_Complete(t *testing.T) {
	sessions := &stubSessions{}
	app := newTestApp(sessions, &stubWidget{})
	auth := bearer(t, uuid.New())

	res, body := do(t, app, http.MethodPost, "/api/context-session/complete", auth, map[string]string{"finalContext": "Business Name: Acme"})
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "Business Name: Acme", sessions.lastFinal)

	sessions.completeErr = service.ErrSessionNotComplete
	res, _ = do(t, app, http.MethodPost, "/api/context-session/complete", auth, map[string]string{"finalContext": "x"})
	assert.Equal(t, http.StatusConflict, res.StatusCode)

	res, _ = do(t, app, http.MethodDelete, "/api/context-session", auth, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestWidgetController(t *testing.T) {
	widget := &stubWidget{}
	app := newTestApp(&stubSessions{}, widget)

	res, body := do(t, app, http.MethodPost, "/api/widget/chat", "", map[string]string{"message": "hours?"})
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, "Missing API key", body["error"])

	res, body = do(t, app, http.MethodPost, "/api/widget/chat", "", map[string]string{"message": "hours?"}, serverutils.ApiKeyHeader, "qm_good")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "We open at 8am.", body["reply"])

	res, _ = do(t, app, http.MethodPost, "/api/widget/chat", "", map[string]string{"message": "hours?"}, serverutils.ApiKeyHeader, "qm_bad")
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	res, body = do(t, app, http.MethodGet, "/api/widget/settings", "", nil, serverutils.ApiKeyHeader, "qm_good")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, map[string]interface{}{"header_title": "Acme"}, body["widgetSettings"])

	res, _ = do(t, app, http.MethodGet, "/widget.js", "", nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, res.Header.Get("Content-Type"), "javascript")
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{service.ErrSessionNotComplete, http.StatusConflict},
		{service.ErrSessionConflict, http.StatusConflict},
		{service.ErrEmailTaken, http.StatusConflict},
		{service.ErrEmptyContext, http.StatusBadRequest},
		{service.ErrInvalidCredentials, http.StatusUnauthorized},
		{service.ErrUserNotFound, http.StatusNotFound},
		{fiber.NewError(http.StatusTeapot, "x"), http.StatusTeapot},
		{io.EOF, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}
