// Package auditlog keeps the append-only trail of enforced screening verdicts.
package auditlog

import (
	"context"
	"time"

	"github.com/spigell/hr-screener/internal/enforcer"
	"github.com/spigell/hr-screener/internal/screening"
)

const idPrefix = "AUD-"

// Record is one durable audit entry. Only the redacted description is ever
// stored.
type Record struct {
	AuditID             string             `json:"audit_id"`
	Timestamp           time.Time          `json:"timestamp"`
	TraceID             string             `json:"trace_id"`
	CandidateID         string             `json:"candidate_id"`
	CandidateName       string             `json:"candidate_name"`
	AppliedRole         string             `json:"applied_role"`
	RequestedBy         string             `json:"requested_by"`
	FinalVerdict        screening.Decision `json:"final_verdict"`
	RiskScore           int                `json:"risk_score"`
	Rationale           string             `json:"rationale"`
	MatchedFactors      []screening.Factor `json:"matched_factors"`
	RedactedDescription string             `json:"redacted_description"`
}

// NewRecord builds the entry for a verdict and the request it answers. The
// candidate name is masked.
func NewRecord(id string, at time.Time, v *screening.Verdict, req *screening.Request) Record {
	rec := Record{
		AuditID:             id,
		Timestamp:           at.UTC(),
		TraceID:             v.TraceID,
		FinalVerdict:        v.Decision,
		RiskScore:           v.RiskScore,
		Rationale:           v.RationaleMessage,
		MatchedFactors:      v.Factors,
		RedactedDescription: v.RedactedDescription,
		CandidateName:       enforcer.MaskName(""),
	}

	if rec.MatchedFactors == nil {
		rec.MatchedFactors = []screening.Factor{}
	}

	if req != nil {
		rec.CandidateID = req.CandidateID
		rec.CandidateName = enforcer.MaskName(req.CandidateName)
		rec.AppliedRole = req.Role
		rec.RequestedBy = req.RequestedBy
	}

	return rec
}

// Store persists records in append order.
type Store interface {
	Append(ctx context.Context, rec Record) error
	List(ctx context.Context) ([]Record, error)
	Close() error
}
