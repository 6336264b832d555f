package transport

import (
	"github.com/spigell/hr-screener/internal/screening"
)

const (
	TraceHeader = "X-Trace-ID"

	PathSubmit    = "/orchestrate/screening"
	PathInspect   = "/inspect"
	PathScore     = "/score"
	PathEnforce   = "/enforce"
	PathLog       = "/log_decision"
	PathRecords   = "/records"
	PathHealth    = "/healthz"
	maxBodyLength = 1 << 20
)

type inspectRequest struct {
	TraceID string `json:"trace_id"`
	Text    string `json:"text"`
}

type enforceRequest struct {
	Request *screening.Request       `json:"request"`
	Result  *screening.ScoringResult `json:"result"`
}

type logRequest struct {
	Verdict *screening.Verdict `json:"verdict"`
	Request *screening.Request `json:"request"`
}

type logResponse struct {
	AuditID string `json:"audit_id"`
}

type errorBody struct {
	Error string `json:"error"`
}

// Health is the body of every health endpoint.
type Health struct {
	Status     string            `json:"status"`
	Service    string            `json:"service"`
	Downstream map[string]string `json:"downstream,omitempty"`
}
