package constant

// Log module tags.
const (
	LogModuleContextSession = "CONTEXT_SESSION"
	LogModuleUserContext    = "USER_CONTEXT"
	LogModuleApiKey         = "API_KEY"
	LogModuleWidget         = "WIDGET"
	LogModuleAuth           = "AUTH"
	LogModuleCache          = "CACHE"
	LogModuleServer         = "SERVER"
)
