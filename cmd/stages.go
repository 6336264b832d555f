package cmd

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/hr-screener/internal/auditlog"
	"github.com/spigell/hr-screener/internal/pipeline"
	"github.com/spigell/hr-screener/internal/scoring"
	"github.com/spigell/hr-screener/internal/transport"
)

const stageOrchestrator = "orchestrator"

var allStages = []string{
	stageOrchestrator,
	pipeline.StageInspector,
	pipeline.StageScoring,
	pipeline.StageEnforcer,
	pipeline.StageAudit,
}

// deployment holds what the orchestrator needs to reach its stages.
type deployment struct {
	stages     pipeline.Stages
	downstream map[string]transport.HealthChecker
	audit      *auditlog.Log
}

func (d *deployment) Close() error {
	if d.audit == nil {
		return nil
	}
	return d.audit.Close()
}

// buildDeployment wires the stages in process for the local mode and as HTTP
// clients for the remote one.
func buildDeployment(config *Config, log *zap.Logger) (*deployment, error) {
	switch mode := strings.ToLower(config.Pipeline.Mode); mode {
	case "", modeLocal:
		store, err := loadProfiles(config.Profiles)
		if err != nil {
			return nil, err
		}

		audit, err := auditlog.Open(config.Audit, log.Named(pipeline.StageAudit))
		if err != nil {
			return nil, err
		}

		return &deployment{
			stages: pipeline.Local(scoring.New(store), audit),
			audit:  audit,
		}, nil

	case modeRemote:
		clients := make(map[string]*transport.Client, len(allStages))
		downstream := make(map[string]transport.HealthChecker, len(allStages)-1)
		for _, name := range allStages[1:] {
			url := config.Stages[name].URL
			if url == "" {
				return nil, fmt.Errorf("stages.%s.url is required in remote mode", name)
			}
			clients[name] = transport.NewClient(url, stageTimeout(config.Pipeline), log.Named(name))
			downstream[name] = clients[name]
		}

		return &deployment{
			stages: pipeline.Stages{
				Inspector: clients[pipeline.StageInspector],
				Scorer:    clients[pipeline.StageScoring],
				Enforcer:  clients[pipeline.StageEnforcer],
				Auditor:   clients[pipeline.StageAudit],
			},
			downstream: downstream,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported pipeline mode: %s", config.Pipeline.Mode)
	}
}

// stageTimeout bounds a single call to a remote stage.
func stageTimeout(cfg *PipelineConfig) time.Duration {
	if cfg == nil || cfg.StageTimeout <= 0 {
		return pipeline.DefaultStageTimeout
	}
	return cfg.StageTimeout
}

// submitTimeout bounds a remote submission. The orchestrator may spend a full
// stage timeout on every attempt of every stage it calls.
func submitTimeout(cfg *PipelineConfig) time.Duration {
	retries := 0
	if cfg != nil {
		retries = min(max(cfg.Retries, 0), pipeline.MaxRetries)
	}
	return stageTimeout(cfg) * time.Duration(len(allStages)*(retries+1))
}
