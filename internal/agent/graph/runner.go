package graph

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"

	"github.com/autoimport-pro/server/internal/agent/graph/conversations"
	"github.com/autoimport-pro/server/internal/agent/graph/nodes"
	"github.com/autoimport-pro/server/internal/agent/graph/observers"
	"github.com/autoimport-pro/server/internal/agent/model"
	"github.com/autoimport-pro/server/internal/agent/resilience"
	errx "github.com/autoimport-pro/server/internal/core/error"
	logx "github.com/autoimport-pro/server/pkg/logger"
)

const (
	DefaultMaxMessageLength = 2000
	TruncationMarker        = "..."
	sessionIDLength         = 8
)

// Runner executes one conversation turn. It always returns an outcome.
type Runner interface {
	Invoke(ctx context.Context, in model.QueryInput) model.TurnOutcome
}

type graphRunner struct {
	runnable      compose.Runnable[*model.ConversationState, *model.ConversationState]
	leads         model.LeadRepository
	mm            *conversations.MessagesManager
	trackers      *resilience.TrackerSet
	qualification model.QualificationConfig
	maxLength     int
}

// NewRunner compiles the graph and wraps it with message intake and outcome assembly.
func NewRunner(ctx context.Context, config *GraphConfig) (Runner, error) {
	runnable, err := BuildGraph(ctx, config)
	if err != nil {
		return nil, err
	}
	maxLength := config.Conversation.MaxMessageLength
	if maxLength <= 0 {
		maxLength = DefaultMaxMessageLength
	}
	return &graphRunner{
		runnable:      runnable,
		leads:         config.LeadRepo,
		mm:            config.MessagesManager,
		trackers:      config.Trackers,
		qualification: config.Qualification,
		maxLength:     maxLength,
	}, nil
}

// NewSessionID returns a short random session identifier.
func NewSessionID() string {
	return uuid.NewString()[:sessionIDLength]
}

func (r *graphRunner) Invoke(ctx context.Context, in model.QueryInput) (out model.TurnOutcome) {
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		sessionID = NewSessionID()
	}
	logx.Info().Str("session_id", sessionID).Msg("Processing message")

	message := strings.TrimSpace(in.Message)
	if message == "" {
		return emptyMessageOutcome(sessionID)
	}
	if truncated, ok := truncate(message, r.maxLength); ok {
		logx.Warn().Str("session_id", sessionID).Int("max_length", r.maxLength).Msg("Message truncated")
		message = truncated
	}

	r.trackers.Acquire(sessionID)
	defer r.trackers.Release(sessionID)

	cs := &model.ConversationState{SessionID: sessionID}
	defer func() {
		if rec := recover(); rec != nil {
			logx.Error().Str("session_id", sessionID).Msgf("panic recovered in turn: %v", rec)
			out = r.degradedOutcome(cs, errx.New(errx.KindUnknown, fmt.Errorf("panic: %v", rec)))
		}
	}()

	cs = r.seed(ctx, sessionID, in.History, message)
	final, err := r.runnable.Invoke(ctx, cs, compose.WithCallbacks(observers.NewAllCallbacks()))
	if err != nil || final == nil {
		if err == nil {
			err = fmt.Errorf("graph returned no state")
		}
		logx.Error().Str("session_id", sessionID).Err(err).Msg("Turn pipeline failed")
		return r.degradedOutcome(cs, err)
	}
	return outcomeFrom(final)
}

// seed builds the turn state from persisted slots, prior turns and the new message.
// Store failures only cost context; the turn continues.
func (r *graphRunner) seed(ctx context.Context, sessionID string, history []model.Message, message string) *model.ConversationState {
	cs := &model.ConversationState{
		SessionID:    sessionID,
		CurrentStage: model.StageDiscovery,
		MissingSlots: model.Slots{}.Missing(),
		Recoverable:  true,
	}

	if r.leads != nil {
		slots, err := r.leads.LoadSlots(ctx, sessionID)
		if err != nil {
			logx.Error().Str("session_id", sessionID).Err(err).Msg("Error loading lead data")
		} else if slots != nil {
			cs.ExtractedData = *slots
		}
	}

	if history == nil {
		loaded, err := r.mm.LoadHistory(ctx, sessionID)
		if err != nil {
			logx.Error().Str("session_id", sessionID).Err(err).Msg("Error loading conversation history")
		}
		history = loaded
	}

	cs.Messages = make([]model.Message, 0, len(history)+1)
	cs.Messages = append(cs.Messages, history...)
	cs.Messages = append(cs.Messages, model.Message{Role: model.RoleUser, Content: message})
	return cs
}

// truncate cuts s to max runes plus the marker. ok reports whether it was cut.
func truncate(s string, max int) (string, bool) {
	if utf8.RuneCountInString(s) <= max {
		return s, false
	}
	runes := []rune(s)
	return string(runes[:max]) + TruncationMarker, true
}

func emptyMessageOutcome(sessionID string) model.TurnOutcome {
	return model.TurnOutcome{
		Response:      errx.UserMessage(errx.New(errx.KindValidation, nil)),
		SessionID:     sessionID,
		ExtractedData: map[string]any{},
		LeadStatus:    model.StageDiscovery,
		Recoverable:   true,
	}
}

func outcomeFrom(cs *model.ConversationState) model.TurnOutcome {
	out := model.TurnOutcome{
		Response:      cs.LastAssistantMessage(),
		SessionID:     cs.SessionID,
		ExtractedData: cs.ExtractedData.Map(),
		LeadStatus:    cs.CurrentStage,
		Recoverable:   true,
	}
	if cs.LeadQualification != model.QualificationNone {
		q := cs.LeadQualification
		out.Qualification = &q
	}
	if cs.Error != "" {
		e := cs.Error
		out.Error = &e
		out.Recoverable = cs.Recoverable
	}
	return out
}

// degradedOutcome answers with the canned reply; stage and tier come from the seeded slots.
func (r *graphRunner) degradedOutcome(cs *model.ConversationState, err error) model.TurnOutcome {
	stage, qualification := nodes.ClassifyStage(cs.ExtractedData, r.qualification)
	msg := errx.UserMessage(err)

	out := model.TurnOutcome{
		Response:      errx.Fallback(errx.FallbackGeneral),
		SessionID:     cs.SessionID,
		ExtractedData: cs.ExtractedData.Map(),
		LeadStatus:    stage,
		Error:         &msg,
		Recoverable:   errx.IsRecoverable(err),
	}
	if qualification != model.QualificationNone {
		out.Qualification = &qualification
	}
	return out
}
