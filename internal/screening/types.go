package screening

import (
	"time"
)

// Decision is the categorical outcome of a screening.
type Decision string

const (
	DecisionApproved Decision = "APPROVED"
	DecisionReview   Decision = "REVIEW"
	DecisionBlocked  Decision = "BLOCKED"
	DecisionError    Decision = "ERROR"
)

// Tier is a weighted keyword category of a role profile.
type Tier string

const (
	TierCritical Tier = "critical"
	TierHigh     Tier = "high"
	TierBonus    Tier = "bonus"
	TierBias     Tier = "bias"
)

// Tiers lists every tier in precedence order.
var Tiers = []Tier{TierCritical, TierHigh, TierBonus, TierBias}

// Label returns the human readable tier name used in profile listings.
func (t Tier) Label() string {
	switch t {
	case TierCritical:
		return "Critical"
	case TierHigh:
		return "High"
	case TierBonus:
		return "Bonus"
	case TierBias:
		return "Bias"
	default:
		return string(t)
	}
}

const (
	DefaultRequestedBy = "HR_ADMIN"
	DefaultAction      = "SCREENING"
	DefaultOrigin      = "HR_PORTAL_WEB"
)

// Request is the standardized screening packet. It is built once by the
// orchestrator and never modified afterwards.
type Request struct {
	TraceID       string    `json:"trace_id"`
	CandidateID   string    `json:"candidate_id"`
	CandidateName string    `json:"candidate_name,omitempty"`
	Role          string    `json:"role"`
	RequestedBy   string    `json:"requested_by"`
	Action        string    `json:"action"`
	Origin        string    `json:"origin"`
	Description   string    `json:"description"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// Factor is a phrase counted towards the score together with its tier.
type Factor struct {
	Phrase string `json:"phrase"`
	Tier   Tier   `json:"tier"`
}

// ScoringResult is the output of the scoring stage.
type ScoringResult struct {
	RiskScore      int      `json:"risk_score"`
	Profile        string   `json:"profile"`
	MatchedFactors []Factor `json:"matched_factors"`
	NegatedSkips   []string `json:"negated_skips"`
}

// HasSignal reports whether at least one profile phrase was counted.
func (r *ScoringResult) HasSignal() bool {
	return r != nil && len(r.MatchedFactors) > 0
}

// Verdict is the final decision for one request.
type Verdict struct {
	TraceID             string   `json:"trace_id"`
	Decision            Decision `json:"decision"`
	RiskScore           int      `json:"risk_score"`
	Factors             []Factor `json:"matched_factors"`
	NegatedSkips        []string `json:"negated_skips,omitempty"`
	Profile             string   `json:"profile,omitempty"`
	RationaleMessage    string   `json:"rationale_message"`
	RedactedDescription string   `json:"redacted_description"`
}

// Response is the egress shape returned to callers of the orchestrator.
type Response struct {
	TraceID          string   `json:"trace_id"`
	Decision         Decision `json:"decision"`
	RiskScore        int      `json:"risk_score"`
	RationaleMessage string   `json:"rationale_message"`
	MatchedFactors   []Factor `json:"matched_factors"`
}

// Response converts the verdict into the egress shape.
func (v *Verdict) Response() Response {
	factors := v.Factors
	if factors == nil {
		factors = []Factor{}
	}
	return Response{
		TraceID:          v.TraceID,
		Decision:         v.Decision,
		RiskScore:        v.RiskScore,
		RationaleMessage: v.RationaleMessage,
		MatchedFactors:   factors,
	}
}

// Inspection is the content inspection outcome.
type Inspection struct {
	Safe   bool   `json:"safe"`
	Reason string `json:"reason,omitempty"`
	Rule   string `json:"rule,omitempty"`
}
