// Package transport exposes the pipeline stages over HTTP and provides the
// client the orchestrator uses to reach remote stages.
package transport

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spigell/hr-screener/internal/screening"
)

// BadRequest is a body that could not be decoded.
type BadRequest struct {
	Err error
}

func (e *BadRequest) Error() string {
	return fmt.Sprintf("bad request: %v", e.Err)
}

func (e *BadRequest) Unwrap() error { return e.Err }

// StatusError is a non successful answer from a remote stage.
type StatusError struct {
	Code    int
	Status  string
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("bad status: %s", e.Status)
	}
	return fmt.Sprintf("bad status: %s: %s", e.Status, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error.
func HTTPStatus(err error) int {
	var (
		validation  *screening.ValidationError
		badRequest  *BadRequest
		unavailable *screening.StageUnavailable
		corruption  *screening.StorageCorruption
		status      *StatusError
	)

	switch {
	case errors.As(err, &validation), errors.As(err, &badRequest):
		return http.StatusBadRequest
	case errors.As(err, &unavailable):
		return http.StatusServiceUnavailable
	case errors.As(err, &corruption):
		return http.StatusInternalServerError
	case errors.As(err, &status):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
