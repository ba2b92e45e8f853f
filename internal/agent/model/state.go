package model

import "github.com/cloudwego/eino/schema"

// Stage is the sales funnel phase.
type Stage string

const (
	StageDiscovery     Stage = "discovery"
	StageQualification Stage = "qualification"
	StageClosing       Stage = "closing"
	StageCompleted     Stage = "completed"
)

// Qualification is the lead tier. The zero value means not yet qualified.
type Qualification string

const (
	QualificationNone Qualification = ""
	QualificationHot  Qualification = "hot"
	QualificationWarm Qualification = "warm"
	QualificationCold Qualification = "cold"
)

// LeadStatus is the stored lifecycle status of a lead.
type LeadStatus string

const (
	LeadStatusInProgress LeadStatus = "in_progress"
	LeadStatusQualified  LeadStatus = "qualified"
)

// LeadStatusFor maps a stage to the stored lead status.
func LeadStatusFor(stage Stage) LeadStatus {
	if stage == StageCompleted {
		return LeadStatusQualified
	}
	return LeadStatusInProgress
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversation turn as stored and exchanged with callers.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ConversationState is the per-turn working state. It is seeded from
// persisted slots, mutated by the pipeline, persisted and then discarded.
type ConversationState struct {
	SessionID         string
	Messages          []Message
	ExtractedData     Slots
	CurrentStage      Stage
	MissingSlots      []string
	LeadQualification Qualification

	// Error is the user-safe message of the last non-fatal failure this turn.
	Error       string
	ErrorKind   string
	Recoverable bool

	CostUSD float64
}

// SetError records a failure for the outcome. The first non-recoverable one wins.
func (s *ConversationState) SetError(kind, message string, recoverable bool) {
	if s.Error != "" && !s.Recoverable {
		return
	}
	s.Error = message
	s.ErrorKind = kind
	s.Recoverable = recoverable
}

// LastUserMessage returns the content of the most recent user turn.
func (s *ConversationState) LastUserMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleUser {
			return s.Messages[i].Content
		}
	}
	return ""
}

// LastAssistantMessage returns the content of the most recent assistant turn.
func (s *ConversationState) LastAssistantMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleAssistant {
			return s.Messages[i].Content
		}
	}
	return ""
}

// AppState stores per-invocation state for the Eino graph.
//   - Registered as graph local state via compose.WithGenLocalState.
//   - Read and written only inside state handlers or compose.ProcessState,
//     which eino serialises, so no extra locking is needed.
type AppState struct {
	Conversation *ConversationState
	// History is the oracle context of the response step (system prompt, turns, tool traffic).
	History []*schema.Message
	// ToolCallIDSeq synthesises ids when the provider omits them.
	ToolCallIDSeq int
	// Dropped holds tool calls beyond the per-turn limit.
	Dropped []schema.ToolCall
}

// QueryInput is one incoming customer message.
type QueryInput struct {
	SessionID string    `json:"session_id"`
	Message   string    `json:"message"`
	History   []Message `json:"history,omitempty"`
}

// TurnOutcome is what the caller receives for every turn, including failed ones.
type TurnOutcome struct {
	Response      string         `json:"response"`
	SessionID     string         `json:"session_id"`
	ExtractedData map[string]any `json:"extracted_data"`
	LeadStatus    Stage          `json:"lead_status"`
	Qualification *Qualification `json:"qualification"`
	Error         *string        `json:"error"`
	Recoverable   bool           `json:"recoverable"`
}
