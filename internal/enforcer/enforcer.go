// Package enforcer turns a scoring result into the final verdict: it applies
// the decision thresholds, builds the rationale and redacts contact details.
package enforcer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/spigell/hr-screener/internal/inspector"
	"github.com/spigell/hr-screener/internal/screening"
)

const (
	BlockThreshold   = 80
	ApproveThreshold = 20

	RedactedPhone = "[REDACTED PHONE]"
	RedactedID    = "[REDACTED ID]"

	NoSignalRationale = "no relevant signal for role"
)

var phonePattern = regexp.MustCompile(`\(?\b\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`)

// Enforcer is stateless and safe for concurrent use.
type Enforcer struct{}

// New creates an enforcer.
func New() *Enforcer {
	return &Enforcer{}
}

// Enforce builds the verdict for the scored request.
func (e *Enforcer) Enforce(traceID, description string, result *screening.ScoringResult) *screening.Verdict {
	verdict := &screening.Verdict{
		TraceID:             traceID,
		Factors:             []screening.Factor{},
		RedactedDescription: Redact(description),
	}

	if result == nil {
		verdict.Decision = screening.DecisionBlocked
		verdict.RiskScore = 100
		verdict.RationaleMessage = NoSignalRationale
		return verdict
	}

	verdict.RiskScore = result.RiskScore
	verdict.Profile = result.Profile
	verdict.NegatedSkips = result.NegatedSkips
	if result.MatchedFactors != nil {
		verdict.Factors = result.MatchedFactors
	}

	// Nothing relevant was said: the baseline score alone must not approve.
	if !result.HasSignal() {
		verdict.Decision = screening.DecisionBlocked
		verdict.RationaleMessage = NoSignalRationale
		return verdict
	}

	verdict.Decision = Classify(result.RiskScore)
	verdict.RationaleMessage = Rationale(verdict.Decision, result.RiskScore)

	return verdict
}

// Classify maps a risk score to a decision.
func Classify(score int) screening.Decision {
	switch {
	case score >= BlockThreshold:
		return screening.DecisionBlocked
	case score > ApproveThreshold:
		return screening.DecisionReview
	default:
		return screening.DecisionApproved
	}
}

// Rationale renders the fixed message template for a scored decision.
func Rationale(decision screening.Decision, score int) string {
	switch decision {
	case screening.DecisionBlocked:
		return fmt.Sprintf("High Risk (%d/100). Ethical markers or skill gap detected.", score)
	case screening.DecisionReview:
		return fmt.Sprintf("Moderate Risk (%d/100). Requires manual HR validation.", score)
	default:
		return fmt.Sprintf("Low Risk (%d/100). Candidate meets all critical criteria.", score)
	}
}

// Redact masks national identifiers and phone numbers. Identifiers go first so
// that their digits are not taken for a phone number.
func Redact(text string) string {
	text = inspector.NationalIDPattern.ReplaceAllString(text, RedactedID)
	return phonePattern.ReplaceAllString(text, RedactedPhone)
}

// MaskName keeps the first letter of every word: "Jane Doe" becomes
// "J*** D***".
func MaskName(name string) string {
	words := strings.Fields(name)
	if len(words) == 0 {
		return "Unknown"
	}

	masked := make([]string, 0, len(words))
	for _, w := range words {
		r := []rune(w)
		masked = append(masked, string(r[0])+"***")
	}

	return strings.Join(masked, " ")
}
