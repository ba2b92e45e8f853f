package errx

// Canned replies used when the oracle is bypassed.
const (
	FallbackGreeting  = "greeting"
	FallbackGeneral   = "general"
	FallbackRateLimit = "rate_limit"
)

var fallbackResponses = map[string]string{
	FallbackGreeting: "Hello! I am the AutoImport Pro consultant. I am having technical difficulties right now but will be back soon. " +
		"Leave your question and we will definitely get in touch!",
	FallbackGeneral: "Sorry, a technical error occurred. Please try again in a few seconds. " +
		"If the problem persists, leave your phone number and a manager will contact you.",
	FallbackRateLimit: "The service is temporarily overloaded by a large number of requests. Please wait 10-15 seconds and try again.",
}

// Fallback returns the canned reply for key, or the general one for unknown keys.
func Fallback(key string) string {
	if r, ok := fallbackResponses[key]; ok {
		return r
	}
	return fallbackResponses[FallbackGeneral]
}
