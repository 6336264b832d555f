package screening

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// RawRequest is the ingress payload as submitted by the caller.
type RawRequest struct {
	CandidateID   string `json:"candidate_id" validate:"required"`
	CandidateName string `json:"candidate_name,omitempty"`
	Role          string `json:"role" validate:"required"`
	RequestedBy   string `json:"requested_by,omitempty"`
	Description   string `json:"description" validate:"max=65536"`
	Action        string `json:"action,omitempty"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Normalize trims surrounding whitespace from identifying fields.
func (r RawRequest) Normalize() RawRequest {
	r.CandidateID = strings.TrimSpace(r.CandidateID)
	r.CandidateName = strings.TrimSpace(r.CandidateName)
	r.Role = strings.TrimSpace(r.Role)
	r.RequestedBy = strings.TrimSpace(r.RequestedBy)
	r.Action = strings.ToUpper(strings.TrimSpace(r.Action))
	return r
}

// Validate checks the ingress constraints. Whitespace-only values count as absent.
func (r RawRequest) Validate() error {
	n := r.Normalize()
	err := validate.Struct(n)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ValidationError{Fields: []string{err.Error()}}
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, jsonName(fe.Field()))
	}
	return &ValidationError{Fields: fields}
}

func jsonName(field string) string {
	switch field {
	case "CandidateID":
		return "candidate_id"
	case "Role":
		return "role"
	case "Description":
		return "description"
	default:
		return strings.ToLower(field)
	}
}
