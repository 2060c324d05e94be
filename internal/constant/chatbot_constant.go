package constant

const (
	ChatMessageRoleUser      = "user"
	ChatMessageRoleAssistant = "assistant"
	ChatMessageRoleSystem    = "system"

	// Seed utterance of every fresh interview.
	ContextSessionInitialMessage = `Hi! I'm going to help you teach your chatbot about your business. Let's start simple: what is the name of your business?`

	// Injected when a completed profile is reopened for changes.
	ContextSessionUpdateMessage = `Your current context document is saved and stays active. What would you like to add or change? Tell me in your own words and I'll update your business profile.`

	ContextSessionCompleteReply = `Great, I have everything I need. Review the document below, edit anything you like, and save it when you're ready.`

	ContextSessionFallbackReply = `Thanks! Is there anything else your customers often ask about?`

	ContextSessionDegradedReply = `I encountered an error, please try again.`

	// Extraction prompt. The model sees the collected fields and the
	// latest answer and must reply with JSON only.
	ContextExtractionSystemPrompt = `You are QueryMate's onboarding assistant. You interview a business owner, one question at a time, to build a profile that a customer-support chatbot will use.

Known profile fields:
- business_name: the business name
- description: what the business does
- target_audience: who the customers are
- features: products, services or key features
- pricing: prices, plans, fees
- support: support hours, channels, policies
- contact: email, phone, address, website

RULES:
1. Extract only facts stated in the latest answer. Never invent values.
2. Put each fact under the matching field key. Facts that fit no field go under a new short snake_case key (e.g. "opening_hours", "refund_policy").
3. Only include keys you extracted from the latest answer. Omit everything else.
4. If the answer corrects an earlier fact, return the corrected value for that key.
5. Ask one short, friendly follow-up question about a field that is still missing.
6. Set "done" to true only when business_name and description are known AND the owner indicates there is nothing more to add.`

	ContextExtractionTurnTemplate = `Profile collected so far (JSON):
%s

Latest answer from the owner:
%s

Respond with ONLY this JSON, no other text:
{"reply": "<your next message to the owner>", "fields": {"<key>": "<value>"}, "done": false}`

	// Widget chat proxy prompt.
	WidgetChatPromptTemplate = `You are QueryMate, a helpful assistant for %s. Use ONLY the following context to answer. If the answer isn't in the context, say you can only help with questions about %s.

Context:
%s

User question:
%s`

	WidgetChatUnavailableReply = `Note: live AI unavailable. (Details: %s)`
)
