package nodes

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/compose"

	"github.com/autoimport-pro/server/internal/agent/model"
	logx "github.com/autoimport-pro/server/pkg/logger"
)

// ClassifyStage derives the funnel stage and lead tier from the slots alone.
// The tier is QualificationNone until brand, budget, name and phone are all known.
func ClassifyStage(slots model.Slots, policy model.QualificationConfig) (model.Stage, model.Qualification) {
	hasBasicInfo := slots.HasBrand() || slots.HasBudgetMax() || slots.HasBodyType()
	hasQualificationInfo := slots.HasBrand() && slots.HasBudgetMax()
	hasContactInfo := slots.HasCustomerName() && slots.HasPhone()

	qualification := model.QualificationNone
	if hasContactInfo && hasQualificationInfo {
		budget := *slots.BudgetMax
		switch {
		case budget >= policy.HighValue || isUrgent(slots.TimelineText(), policy.UrgencyMarkers):
			qualification = model.QualificationHot
		case budget >= policy.MidValue || hasBasicInfo:
			qualification = model.QualificationWarm
		default:
			qualification = model.QualificationCold
		}
	}

	switch {
	case !hasBasicInfo:
		return model.StageDiscovery, qualification
	case !hasQualificationInfo:
		return model.StageQualification, qualification
	case !hasContactInfo:
		return model.StageClosing, qualification
	default:
		return model.StageCompleted, qualification
	}
}

func isUrgent(timeline string, markers []string) bool {
	if timeline == "" {
		return false
	}
	for _, m := range markers {
		m = strings.ToLower(strings.TrimSpace(m))
		if m != "" && strings.Contains(timeline, m) {
			return true
		}
	}
	return false
}

// NewStageClassifierNode creates the StageClassifier node.
func NewStageClassifierNode(policy model.QualificationConfig) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, cs *model.ConversationState) (*model.ConversationState, error) {
		stage, qualification := ClassifyStage(cs.ExtractedData, policy)
		cs.CurrentStage = stage
		if qualification != model.QualificationNone {
			cs.LeadQualification = qualification
		}
		logx.Debug().
			Str("session_id", cs.SessionID).
			Str("stage", string(stage)).
			Str("qualification", string(cs.LeadQualification)).
			Msg("Stage classified")
		return cs, nil
	})
}
