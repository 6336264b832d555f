package pipeline

import (
	"context"

	"github.com/spigell/hr-screener/internal/auditlog"
	"github.com/spigell/hr-screener/internal/enforcer"
	"github.com/spigell/hr-screener/internal/inspector"
	"github.com/spigell/hr-screener/internal/scoring"
	"github.com/spigell/hr-screener/internal/screening"
)

const (
	StageInspector = "inspector"
	StageScoring   = "scoring"
	StageEnforcer  = "enforcer"
	StageAudit     = "audit"
)

// Inspector checks inbound text before it is scored.
type Inspector interface {
	Inspect(ctx context.Context, text string) (*screening.Inspection, error)
}

// Scorer scores the description of a request against the role profile.
type Scorer interface {
	Score(ctx context.Context, req *screening.Request) (*screening.ScoringResult, error)
}

// Enforcer turns a scoring result into a verdict.
type Enforcer interface {
	Enforce(ctx context.Context, req *screening.Request, result *screening.ScoringResult) (*screening.Verdict, error)
}

// Auditor persists a verdict and returns its audit id.
type Auditor interface {
	Append(ctx context.Context, v *screening.Verdict, req *screening.Request) (string, error)
}

// Stages are the downstream contracts the orchestrator drives. Each one may
// live in process or behind the network.
type Stages struct {
	Inspector Inspector
	Scorer    Scorer
	Enforcer  Enforcer
	Auditor   Auditor
}

type localInspector struct {
	inspector *inspector.Inspector
}

// NewLocalInspector exposes an in-process inspector as a stage.
func NewLocalInspector(i *inspector.Inspector) Inspector {
	return &localInspector{inspector: i}
}

func (l *localInspector) Inspect(ctx context.Context, text string) (*screening.Inspection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	safe, reason := l.inspector.Inspect(text)
	inspection := &screening.Inspection{Safe: safe, Reason: reason}
	if !safe {
		inspection.Rule = l.inspector.Rule(text)
	}
	return inspection, nil
}

type localScorer struct {
	engine *scoring.Engine
}

// NewLocalScorer exposes an in-process scoring engine as a stage.
func NewLocalScorer(e *scoring.Engine) Scorer {
	return &localScorer{engine: e}
}

func (l *localScorer) Score(ctx context.Context, req *screening.Request) (*screening.ScoringResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.engine.Score(req.Description, req.Role), nil
}

type localEnforcer struct {
	enforcer *enforcer.Enforcer
}

// NewLocalEnforcer exposes an in-process enforcer as a stage.
func NewLocalEnforcer(e *enforcer.Enforcer) Enforcer {
	return &localEnforcer{enforcer: e}
}

func (l *localEnforcer) Enforce(ctx context.Context, req *screening.Request, result *screening.ScoringResult) (*screening.Verdict, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.enforcer.Enforce(req.TraceID, req.Description, result), nil
}

// Local wires every stage in process.
func Local(engine *scoring.Engine, log *auditlog.Log) Stages {
	return Stages{
		Inspector: NewLocalInspector(inspector.New()),
		Scorer:    NewLocalScorer(engine),
		Enforcer:  NewLocalEnforcer(enforcer.New()),
		Auditor:   log,
	}
}
