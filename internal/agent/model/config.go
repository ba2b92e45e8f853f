package model

import "time"

// ================ Config ================
type ConversationConfig struct {
	MaxMessageLength int           `envconfig:"CONVERSATION_MAX_MESSAGE_LENGTH" default:"2000"`
	TTL              time.Duration `envconfig:"CONVERSATION_TTL" default:"720h"`
	PersistTimeout   time.Duration `envconfig:"CONVERSATION_PERSIST_TIMEOUT" default:"5s"`
	PhoneRegion      string        `envconfig:"CONVERSATION_PHONE_REGION" default:"RU"`
	History          struct {
		MaxTurns int `envconfig:"CONVERSATION_HISTORY_MAX_TURNS" default:"10"`
	}
	Tools struct {
		MaxCalls int `envconfig:"CONVERSATION_TOOL_MAX_CALLS" default:"5"`
	}
}

type ExtractionModelConfig struct {
	Model       string  `envconfig:"EXTRACTION_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens   int     `envconfig:"EXTRACTION_MAX_TOKENS" default:"1000"`
	Temperature float32 `envconfig:"EXTRACTION_TEMPERATURE" default:"0.1"`
}

type ResponseModelConfig struct {
	Model       string  `envconfig:"RESPONSE_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"RESPONSE_MAX_TOKENS" default:"2000"`
	Temperature float32 `envconfig:"RESPONSE_TEMPERATURE" default:"0.7"`
}

type ResponsePromptConfig struct {
	BusinessType string `envconfig:"PROMPT_BUSINESS_TYPE" default:"car import company"`
	BusinessName string `envconfig:"PROMPT_BUSINESS_NAME" default:"AutoImport Pro"`
}

// QualificationConfig holds the lead scoring policy.
type QualificationConfig struct {
	HighValue      int64    `envconfig:"QUALIFICATION_HIGH_VALUE" default:"3000000"`
	MidValue       int64    `envconfig:"QUALIFICATION_MID_VALUE" default:"1500000"`
	UrgencyMarkers []string `envconfig:"QUALIFICATION_URGENCY_MARKERS" default:"urgent,fast,asap,срочно,быстр"`
}

// DefaultQualificationConfig mirrors the envconfig defaults.
func DefaultQualificationConfig() QualificationConfig {
	return QualificationConfig{
		HighValue:      3_000_000,
		MidValue:       1_500_000,
		UrgencyMarkers: []string{"urgent", "fast", "asap", "срочно", "быстр"},
	}
}

// Failure tracking scopes.
const (
	ScopeSession = "session"
	ScopeProcess = "process"
)

type ResilienceConfig struct {
	MaxAttempts       int           `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`
	BaseDelay         time.Duration `envconfig:"RETRY_BASE_DELAY" default:"1s"`
	MaxDelay          time.Duration `envconfig:"RETRY_MAX_DELAY" default:"10s"`
	CallTimeout       time.Duration `envconfig:"ORACLE_CALL_TIMEOUT" default:"30s"`
	FallbackThreshold int           `envconfig:"FALLBACK_THRESHOLD" default:"3"`
	FallbackScope     string        `envconfig:"FALLBACK_SCOPE" default:"session"`
}
