package item

import (
	"time"

	"github.com/google/uuid"
)

// Status is the review state of an extracted item. Items are created PENDING
// and move to exactly one of the other states via human review. Re-extraction
// creates new items rather than resurrecting resolved ones.
type Status string

const (
	StatusPending            Status = "PENDING"
	StatusApproved           Status = "APPROVED"
	StatusRejected           Status = "REJECTED"
	StatusNeedsClarification Status = "NEEDS_CLARIFICATION"
)

// ParseStatus converts an incoming status string to a Status.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusPending, StatusApproved, StatusRejected, StatusNeedsClarification:
		return Status(s), true
	}
	return "", false
}

// CanTransition reports whether a review transition from one status to
// another is legal. Transitioning to the current status is allowed so that
// re-running a partially failed batch is harmless.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	if from != StatusPending {
		return false
	}
	return to == StatusApproved || to == StatusRejected || to == StatusNeedsClarification
}

// Type tags one atomic fact pulled from a session. The set is closed but
// extensible: the profile mapper dispatches on it through a registry, so new
// tags can be added without touching existing handlers.
type Type string

const (
	TypeStakeholder      Type = "STAKEHOLDER"
	TypeGoal             Type = "GOAL"
	TypePainPoint        Type = "PAIN_POINT"
	TypePeakPeriod       Type = "PEAK_PERIOD"
	TypeMonthlyVolume    Type = "MONTHLY_VOLUME"
	TypeCostPerCase      Type = "COST_PER_CASE"
	TypeKPITarget        Type = "KPI_TARGET"
	TypeChannel          Type = "CHANNEL"
	TypeChannelSLA       Type = "CHANNEL_SLA"
	TypeChannelVolume    Type = "CHANNEL_VOLUME"
	TypeChannelRule      Type = "CHANNEL_RULE"
	TypeSkill            Type = "SKILL"
	TypeSkillCore        Type = "SKILL_CORE"
	TypeSkillFuture      Type = "SKILL_FUTURE"
	TypeCommunication    Type = "COMMUNICATION_STYLE"
	TypeKnowledgeSource  Type = "KNOWLEDGE_SOURCE"
	TypeHappyPathStep    Type = "HAPPY_PATH_STEP"
	TypeExceptionCase    Type = "EXCEPTION_CASE"
	TypeEscalationRule   Type = "ESCALATION_RULE"
	TypeCaseType         Type = "CASE_TYPE"
	TypeScopeIn          Type = "SCOPE_IN"
	TypeScopeOut         Type = "SCOPE_OUT"
	TypeGuardrailNever   Type = "GUARDRAIL_NEVER"
	TypeGuardrailAlways  Type = "GUARDRAIL_ALWAYS"
	TypeFinancialLimit   Type = "FINANCIAL_LIMIT"
	TypeLegalRestriction Type = "LEGAL_RESTRICTION"
)

// ExtractedItem is one atomic fact pulled from a session transcript.
//
// Type never changes after creation; only Status and the review fields mutate.
// StructuredData is deliberately loose: its shape drifts per type and per
// model response, so each mapper handler reads the keys it expects with
// explicit fallbacks to Content.
type ExtractedItem struct {
	ID        uuid.UUID `json:"id"`
	SessionID string    `json:"session_id"`
	// Seq is the item's position within its extraction batch. The mapper's
	// cursor rules depend on dialogue order, so stores sort by
	// (CreatedAt, Seq) and batch timestamps alone are not enough: every
	// item of a batch shares one CreatedAt.
	Seq             int            `json:"seq"`
	Type            Type           `json:"type"`
	Content         string         `json:"content"`
	StructuredData  map[string]any `json:"structured_data,omitempty"`
	Confidence      float64        `json:"confidence"`
	Status          Status         `json:"status"`
	SourceQuote     string         `json:"source_quote,omitempty"`
	SourceSpeaker   string         `json:"source_speaker,omitempty"`
	SourceTimestamp string         `json:"source_timestamp,omitempty"`
	ReviewedBy      string         `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time     `json:"reviewed_at,omitempty"`
	ReviewNotes     string         `json:"review_notes,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}
