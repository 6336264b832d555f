// Package pipeline drives a screening request through inspection, scoring,
// enforcement and audit.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/hr-screener/internal/enforcer"
	"github.com/spigell/hr-screener/internal/logger"
	"github.com/spigell/hr-screener/internal/screening"
	"github.com/spigell/hr-screener/internal/utils"
)

const (
	DefaultStageTimeout = 5 * time.Second
	DefaultRetryDelay   = 200 * time.Millisecond
	DefaultAuditQueue   = 256

	// MaxRetries caps the extra attempts made against a failing stage.
	MaxRetries = 1
)

// Config controls stage calls and audit dispatch.
type Config struct {
	StageTimeout time.Duration `mapstructure:"stage-timeout"`
	Retries      int           `mapstructure:"retries"`
	RetryDelay   time.Duration `mapstructure:"retry-delay"`
	AuditQueue   int           `mapstructure:"audit-queue"`
}

func (c Config) withDefaults() Config {
	if c.StageTimeout <= 0 {
		c.StageTimeout = DefaultStageTimeout
	}
	if c.Retries < 0 {
		c.Retries = 0
	}
	if c.Retries > MaxRetries {
		c.Retries = MaxRetries
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = 0
	}
	if c.AuditQueue <= 0 {
		c.AuditQueue = DefaultAuditQueue
	}
	return c
}

type auditJob struct {
	verdict *screening.Verdict
	request *screening.Request
	ctx     context.Context
	logger  *zap.Logger
}

// Orchestrator is the single entry point of the screening pipeline. Submit is
// safe for concurrent use.
type Orchestrator struct {
	stages Stages
	cfg    Config
	logger *zap.Logger

	now        func() time.Time
	newTraceID func() string

	mu      sync.RWMutex
	closed  bool
	audits  chan auditJob
	pending sync.WaitGroup
}

// New creates an orchestrator and starts its audit worker.
func New(stages Stages, cfg Config, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}

	cfg = cfg.withDefaults()
	o := &Orchestrator{
		stages:     stages,
		cfg:        cfg,
		logger:     log,
		now:        time.Now,
		newTraceID: uuid.NewString,
		audits:     make(chan auditJob, cfg.AuditQueue),
	}

	go o.auditWorker()

	return o
}

// Config returns the effective configuration.
func (o *Orchestrator) Config() Config {
	return o.cfg
}

// Submit screens one request. Only a malformed request yields an error; every
// accepted request resolves to a verdict and is audited exactly once.
func (o *Orchestrator) Submit(ctx context.Context, raw screening.RawRequest) (*screening.Verdict, error) {
	if err := raw.Validate(); err != nil {
		o.logger.Info("rejecting screening request", zap.Error(err))
		return nil, err
	}

	req := o.standardize(raw)
	ctx = screening.WithTraceID(ctx, req.TraceID)
	log := logger.WithTrace(o.logger, req.TraceID, req.CandidateID)

	log.Info("screening accepted",
		zap.String("role", req.Role),
		zap.String("requested_by", req.RequestedBy),
		zap.String("action", req.Action),
		zap.Int("description_length", len(req.Description)),
	)

	verdict := o.run(ctx, req, log)
	verdict.TraceID = req.TraceID

	o.dispatch(auditJob{
		verdict: verdict,
		request: req,
		ctx:     context.WithoutCancel(ctx),
		logger:  log,
	})

	log.Info("screening decided",
		zap.String(logger.FieldDecision, string(verdict.Decision)),
		zap.Int("risk_score", verdict.RiskScore),
		zap.String("profile", verdict.Profile),
	)

	return verdict, nil
}

// standardize builds the immutable request packet.
func (o *Orchestrator) standardize(raw screening.RawRequest) *screening.Request {
	raw = raw.Normalize()

	req := &screening.Request{
		TraceID:       o.newTraceID(),
		CandidateID:   raw.CandidateID,
		CandidateName: raw.CandidateName,
		Role:          raw.Role,
		RequestedBy:   raw.RequestedBy,
		Action:        raw.Action,
		Origin:        screening.DefaultOrigin,
		Description:   raw.Description,
		SubmittedAt:   o.now().UTC(),
	}

	if req.RequestedBy == "" {
		req.RequestedBy = screening.DefaultRequestedBy
	}
	if req.Action == "" {
		req.Action = screening.DefaultAction
	}

	return req
}

type state struct {
	req     *screening.Request
	result  *screening.ScoringResult
	verdict *screening.Verdict
}

type step struct {
	name string
	run  func(ctx context.Context, s *state) error
}

// run executes the stages in their fixed order. A step may end the pipeline
// early by setting the verdict.
func (o *Orchestrator) run(ctx context.Context, req *screening.Request, log *zap.Logger) *screening.Verdict {
	steps := []step{
		{name: StageInspector, run: o.inspect},
		{name: StageScoring, run: o.score},
		{name: StageEnforcer, run: o.enforce},
	}

	s := &state{req: req}
	for _, st := range steps {
		started := time.Now()
		err := st.run(ctx, s)
		elapsed := time.Since(started)

		if err != nil {
			log.Error("pipeline step failed",
				logger.Stage(st.name),
				zap.Duration("elapsed", elapsed),
				zap.Error(err),
			)
			return errorVerdict(req, err)
		}

		log.Debug("pipeline step", logger.Stage(st.name), zap.Duration("elapsed", elapsed))

		if s.verdict != nil {
			return s.verdict
		}
	}

	// Unreachable with the fixed steps above; never approve by default.
	return errorVerdict(req, errors.New("pipeline finished without a verdict"))
}

// inspectionText is everything the caller controls.
func inspectionText(req *screening.Request) string {
	return strings.Join([]string{req.Description, req.CandidateID, req.Role}, " ")
}

func (o *Orchestrator) inspect(ctx context.Context, s *state) error {
	inspection, err := call(ctx, o, StageInspector, o.cfg.Retries, func(ctx context.Context) (*screening.Inspection, error) {
		return o.stages.Inspector.Inspect(ctx, inspectionText(s.req))
	})
	if err != nil {
		return err
	}

	if !inspection.Safe {
		o.logger.Warn("request blocked by inspection",
			zap.String(logger.FieldTraceID, s.req.TraceID),
			zap.String("rule", inspection.Rule),
			zap.String("reason", inspection.Reason),
		)
		violation := &screening.SecurityViolation{Reason: inspection.Reason}
		s.verdict = &screening.Verdict{
			TraceID:             s.req.TraceID,
			Decision:            screening.DecisionBlocked,
			RiskScore:           100,
			Factors:             []screening.Factor{},
			RationaleMessage:    violation.Error(),
			RedactedDescription: enforcer.Redact(s.req.Description),
		}
	}

	return nil
}

func (o *Orchestrator) score(ctx context.Context, s *state) error {
	result, err := call(ctx, o, StageScoring, o.cfg.Retries, func(ctx context.Context) (*screening.ScoringResult, error) {
		return o.stages.Scorer.Score(ctx, s.req)
	})
	if err != nil {
		return err
	}

	s.result = result
	return nil
}

func (o *Orchestrator) enforce(ctx context.Context, s *state) error {
	verdict, err := call(ctx, o, StageEnforcer, o.cfg.Retries, func(ctx context.Context) (*screening.Verdict, error) {
		return o.stages.Enforcer.Enforce(ctx, s.req, s.result)
	})
	if err != nil {
		return err
	}

	s.verdict = verdict
	return nil
}

// call invokes a stage with a bounded timeout and at most retries extra
// attempts. Any failure is reported as StageUnavailable.
func call[T any](ctx context.Context, o *Orchestrator, stage string, retries int, fn func(context.Context) (*T, error)) (*T, error) {
	attempts := 0
	var lastErr error

	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			if err := utils.WaitFor(ctx, utils.Backoff(o.cfg.RetryDelay, attempt)); err != nil {
				lastErr = err
				break
			}
		}

		attempts++
		stageCtx, cancel := context.WithTimeout(ctx, o.cfg.StageTimeout)
		out, err := fn(stageCtx)
		cancel()

		if err == nil && out == nil {
			err = errors.New("empty response")
		}
		if err == nil {
			return out, nil
		}

		lastErr = err
		o.logger.Warn("stage call failed",
			zap.String(logger.FieldTraceID, screening.TraceID(ctx)),
			logger.Stage(stage),
			zap.Int("attempt", attempts),
			zap.Error(err),
		)

		if ctx.Err() != nil {
			break
		}
	}

	return nil, &screening.StageUnavailable{Stage: stage, Attempts: attempts, Err: lastErr}
}

// errorVerdict is the fail-closed outcome of an infrastructure failure.
func errorVerdict(req *screening.Request, err error) *screening.Verdict {
	return &screening.Verdict{
		TraceID:             req.TraceID,
		Decision:            screening.DecisionError,
		RiskScore:           100,
		Factors:             []screening.Factor{},
		RationaleMessage:    fmt.Sprintf("screening could not be completed: %v", err),
		RedactedDescription: enforcer.Redact(req.Description),
	}
}

// dispatch hands the verdict to the audit worker without waiting for the
// append. When the queue is full the append runs on its own goroutine.
func (o *Orchestrator) dispatch(job auditJob) {
	o.pending.Add(1)

	o.mu.RLock()
	defer o.mu.RUnlock()

	if !o.closed {
		select {
		case o.audits <- job:
			return
		default:
			job.logger.Warn("audit queue is full, appending out of order", zap.Int("queue", cap(o.audits)))
		}
	}

	go o.record(job)
}

func (o *Orchestrator) auditWorker() {
	for job := range o.audits {
		o.record(job)
	}
}

func (o *Orchestrator) record(job auditJob) {
	defer o.pending.Done()

	// Appends are not idempotent: a timed out attempt may already be committed,
	// so the audit stage gets exactly one attempt.
	auditID, err := call(job.ctx, o, StageAudit, 0, func(ctx context.Context) (*string, error) {
		id, err := o.stages.Auditor.Append(ctx, job.verdict, job.request)
		if err != nil {
			return nil, err
		}
		return &id, nil
	})
	if err != nil {
		job.logger.Error("audit append failed",
			zap.String(logger.FieldDecision, string(job.verdict.Decision)),
			zap.Error(err),
		)
		return
	}

	job.logger.Debug("audit append done", zap.String(logger.FieldAuditID, *auditID))
}

// Wait blocks until every dispatched audit append has finished.
func (o *Orchestrator) Wait() {
	o.pending.Wait()
}

// Close stops the audit worker after draining the queue. Verdicts submitted
// afterwards are still audited, each on its own goroutine.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if !o.closed {
		o.closed = true
		close(o.audits)
	}
	o.mu.Unlock()

	o.pending.Wait()
}
