package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/hr-screener/internal/auditlog"
	"github.com/spigell/hr-screener/internal/pipeline"
	"github.com/spigell/hr-screener/internal/screening"
	"github.com/spigell/hr-screener/internal/utils"
)

const (
	contentType  = "application/json"
	userAgent    = "spigell/hr-screener"
	maxErrorBody = 512
)

var (
	_ pipeline.Inspector = (*Client)(nil)
	_ pipeline.Scorer    = (*Client)(nil)
	_ pipeline.Enforcer  = (*Client)(nil)
	_ pipeline.Auditor   = (*Client)(nil)
	_ HealthChecker      = (*Client)(nil)
)

// Client talks to one remote stage. It satisfies every stage contract, so
// the same type serves as inspector, scorer, enforcer or auditor depending on
// the base URL it points at.
type Client struct {
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	BaseURL    string
}

// NewClient creates a client for the stage served at baseURL.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		logger:    logger,
		UserAgent: userAgent,
	}
}

func (c *Client) Inspect(ctx context.Context, text string) (*screening.Inspection, error) {
	var out screening.Inspection
	in := inspectRequest{TraceID: screening.TraceID(ctx), Text: text}
	if err := c.postJSON(ctx, PathInspect, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Score(ctx context.Context, req *screening.Request) (*screening.ScoringResult, error) {
	var out screening.ScoringResult
	if err := c.postJSON(ctx, PathScore, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Enforce(ctx context.Context, req *screening.Request, result *screening.ScoringResult) (*screening.Verdict, error) {
	var out screening.Verdict
	if err := c.postJSON(ctx, PathEnforce, enforceRequest{Request: req, Result: result}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Append(ctx context.Context, v *screening.Verdict, req *screening.Request) (string, error) {
	var out logResponse
	if err := c.postJSON(ctx, PathLog, logRequest{Verdict: v, Request: req}, &out); err != nil {
		return "", err
	}
	return out.AuditID, nil
}

// Records reads the audit trail from a remote audit service.
func (c *Client) Records(ctx context.Context) ([]auditlog.Record, error) {
	var out []auditlog.Record
	if err := c.getJSON(ctx, PathRecords, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Submit sends a screening request to a remote orchestrator.
func (c *Client) Submit(ctx context.Context, raw screening.RawRequest) (*screening.Response, error) {
	var out screening.Response
	if err := c.postJSON(ctx, PathSubmit, raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health checks the remote health endpoint.
func (c *Client) Health(ctx context.Context) error {
	var out Health
	return c.getJSON(ctx, PathHealth, &out)
}

func (c *Client) postJSON(ctx context.Context, path string, in, target any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}

	req = c.setHeaders(ctx, req)
	req.Header.Set("Content-Type", contentType)

	return c.do(req, target)
}

func (c *Client) getJSON(ctx context.Context, path string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}

	return c.do(c.setHeaders(ctx, req), target)
}

func (c *Client) do(req *http.Request, target any) error {
	c.logger.Debug("make request",
		zap.String("url", req.URL.String()),
		zap.String("trace_id", req.Header.Get(TraceHeader)),
	)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return statusError(resp, data)
	}

	if target == nil {
		return nil
	}

	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("decoding %s response: %w", req.URL.Path, err)
	}

	return nil
}

func (c *Client) setHeaders(ctx context.Context, req *http.Request) *http.Request {
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", contentType)
	if id := screening.TraceID(ctx); id != "" {
		req.Header.Set(TraceHeader, id)
	}

	return req
}

func statusError(resp *http.Response, data []byte) error {
	var body errorBody
	message := ""
	if err := json.Unmarshal(data, &body); err == nil {
		message = body.Error
	} else {
		message = utils.TruncateForLog(string(data), maxErrorBody)
	}

	return &StatusError{Code: resp.StatusCode, Status: resp.Status, Message: message}
}
