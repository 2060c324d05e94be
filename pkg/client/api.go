package client

import (
	"context"
	"net/http"

	"querymate-be/pkg/contextbuilder"
)

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string `json:"token"`
	Email string `json:"email"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Session struct {
	Stage              string                 `json:"stage"`
	CollectedData      *contextbuilder.Fields `json:"collectedData,omitempty"`
	HasExistingContext bool                   `json:"hasExistingContext"`
	InitialMessage     string                 `json:"initialMessage,omitempty"`
	Messages           []Message              `json:"messages"`
	FormattedContext   string                 `json:"formattedContext,omitempty"`
}

type MessageReply struct {
	Reply            string                 `json:"reply"`
	Done             bool                   `json:"done"`
	CollectedData    *contextbuilder.Fields `json:"collectedData,omitempty"`
	FormattedContext string                 `json:"formattedContext,omitempty"`
}

type UserContext struct {
	ContextData string `json:"contextData"`
	ApiKey      string `json:"apiKey"`
}

type ApiKey struct {
	ApiKey    string `json:"apiKey"`
	EmbedCode string `json:"embedCode"`
}

type widgetSettings struct {
	WidgetSettings map[string]string `json:"widgetSettings"`
}

type okResponse struct {
	Ok bool `json:"ok"`
}

func (c *Client) Register(ctx context.Context, creds Credentials) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.once(ctx, call{method: http.MethodPost, path: "/api/register", body: creds, out: &out}); err != nil {
		return nil, err
	}
	c.token = out.Token
	return &out, nil
}

func (c *Client) Login(ctx context.Context, creds Credentials) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.once(ctx, call{method: http.MethodPost, path: "/api/login", body: creds, out: &out}); err != nil {
		return nil, err
	}
	c.token = out.Token
	return &out, nil
}

func (c *Client) GetSession(ctx context.Context) (*Session, error) {
	var out Session
	err := c.idempotent(ctx, call{method: http.MethodGet, path: "/api/context-session", out: &out, auth: true})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// PostMessage is sent once: a repeat would append the answer twice.
func (c *Client) PostMessage(ctx context.Context, message string) (*MessageReply, error) {
	var out MessageReply
	err := c.once(ctx, call{
		method:  http.MethodPost,
		path:    "/api/context-session/message",
		body:    map[string]string{"message": message},
		out:     &out,
		auth:    true,
		timeout: c.modelTimeout,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CompleteSession(ctx context.Context, finalContext string) error {
	return c.once(ctx, call{
		method: http.MethodPost,
		path:   "/api/context-session/complete",
		body:   map[string]string{"finalContext": finalContext},
		out:    &okResponse{},
		auth:   true,
	})
}

func (c *Client) UpdateSession(ctx context.Context) (*Session, error) {
	var out Session
	err := c.once(ctx, call{method: http.MethodPost, path: "/api/context-session/update", out: &out, auth: true})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ResetSession(ctx context.Context) error {
	return c.idempotent(ctx, call{method: http.MethodDelete, path: "/api/context-session", out: &okResponse{}, auth: true})
}

func (c *Client) GetContext(ctx context.Context) (*UserContext, error) {
	var out UserContext
	if err := c.idempotent(ctx, call{method: http.MethodGet, path: "/api/user/context", out: &out, auth: true}); err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveContext replaces the document, so repeating it is harmless.
func (c *Client) SaveContext(ctx context.Context, contextData string) (*UserContext, error) {
	var out UserContext
	err := c.idempotent(ctx, call{
		method: http.MethodPost,
		path:   "/api/user/context",
		body:   map[string]string{"contextData": contextData},
		out:    &out,
		auth:   true,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetApiKey(ctx context.Context) (*ApiKey, error) {
	var out ApiKey
	if err := c.idempotent(ctx, call{method: http.MethodGet, path: "/api/user/api-key", out: &out, auth: true}); err != nil {
		return nil, err
	}
	return &out, nil
}

// RotateApiKey is sent once; each call invalidates the previous key.
func (c *Client) RotateApiKey(ctx context.Context) (*ApiKey, error) {
	var out ApiKey
	if err := c.once(ctx, call{method: http.MethodPost, path: "/api/user/api-key", out: &out, auth: true}); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetWidgetSettings(ctx context.Context) (map[string]string, error) {
	var out widgetSettings
	if err := c.idempotent(ctx, call{method: http.MethodGet, path: "/api/user/widget-settings", out: &out, auth: true}); err != nil {
		return nil, err
	}
	return out.WidgetSettings, nil
}

func (c *Client) UpdateWidgetSettings(ctx context.Context, settings map[string]string) (map[string]string, error) {
	var out widgetSettings
	err := c.idempotent(ctx, call{
		method: http.MethodPut,
		path:   "/api/user/widget-settings",
		body:   widgetSettings{WidgetSettings: settings},
		out:    &out,
		auth:   true,
	})
	if err != nil {
		return nil, err
	}
	return out.WidgetSettings, nil
}

// WidgetChat asks a question the way an embedded widget would.
func (c *Client) WidgetChat(ctx context.Context, apiKey, message string) (string, error) {
	var out struct {
		Reply string `json:"reply"`
	}
	err := c.once(ctx, call{
		method:  http.MethodPost,
		path:    "/api/widget/chat",
		body:    map[string]string{"message": message},
		out:     &out,
		timeout: c.modelTimeout,
		header:  map[string]string{"X-API-Key": apiKey},
	})
	if err != nil {
		return "", err
	}
	return out.Reply, nil
}
