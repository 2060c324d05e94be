package dto

import (
	"time"

	"querymate-be/pkg/contextbuilder"
)

type SessionMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type ContextSessionResponse struct {
	Stage              string                 `json:"stage"`
	CollectedData      *contextbuilder.Fields `json:"collectedData,omitempty"`
	HasExistingContext bool                   `json:"hasExistingContext"`
	InitialMessage     string                 `json:"initialMessage,omitempty"`
	Messages           []SessionMessage       `json:"messages"`
	FormattedContext   string                 `json:"formattedContext,omitempty"`
}

type PostMessageRequest struct {
	Message string `json:"message" validate:"required,max=4000"`
}

type PostMessageResponse struct {
	Reply            string                 `json:"reply"`
	Done             bool                   `json:"done"`
	CollectedData    *contextbuilder.Fields `json:"collectedData,omitempty"`
	FormattedContext string                 `json:"formattedContext,omitempty"`
}

type CompleteSessionRequest struct {
	FinalContext string `json:"finalContext" validate:"required"`
}

type OkResponse struct {
	Ok bool `json:"ok"`
}

type UserContextRequest struct {
	ContextData string `json:"contextData" validate:"required"`
}

type UserContextResponse struct {
	ContextData string `json:"contextData"`
	ApiKey      string `json:"apiKey"`
}

type ApiKeyResponse struct {
	ApiKey    string `json:"apiKey"`
	EmbedCode string `json:"embedCode"`
}

type WidgetSettingsRequest struct {
	WidgetSettings map[string]string `json:"widgetSettings" validate:"required"`
}

type WidgetSettingsResponse struct {
	WidgetSettings map[string]string `json:"widgetSettings"`
}

type WidgetChatRequest struct {
	Message string `json:"message" validate:"required,max=2000"`
}

type WidgetChatResponse struct {
	Reply string `json:"reply"`
}
