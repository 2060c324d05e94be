package constant

// DefaultWidgetSettings fill in any key a user has not set.
var DefaultWidgetSettings = map[string]string{
	"primary_color":   "#4F46E5",
	"text_color":      "#FFFFFF",
	"header_title":    "QueryMate",
	"welcome_message": "Hello! How can I help you today?",
	"placeholder":     "Type your question...",
	"position":        "bottom-right",
}

const (
	ApiKeyPlaceholder = "YOUR_API_KEY_HERE"

	EmbedCodeTemplate = `<script src="%s/widget.js" data-api-key="%s"></script>`

	WidgetNoContextMessage = "No business information has been provided yet."
)
