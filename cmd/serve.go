package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/hr-screener/internal/auditlog"
	"github.com/spigell/hr-screener/internal/enforcer"
	"github.com/spigell/hr-screener/internal/inspector"
	"github.com/spigell/hr-screener/internal/pipeline"
	"github.com/spigell/hr-screener/internal/scoring"
	"github.com/spigell/hr-screener/internal/transport"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the screening pipeline over HTTP",
	Long: `Serve starts the HTTP servers of the selected stages in one process.
In local mode the orchestrator runs every stage in process. In remote mode it
calls the stages at stages.<name>.url.`,
	Run: func(cmd *cobra.Command, _ []string) {
		serve(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringSlice("stages", nil,
		fmt.Sprintf("stages to serve, any of %s (default: orchestrator in local mode, all in remote mode)", strings.Join(allStages, ",")))
}

func serve(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger()
	defer func() { _ = logger.Sync() }()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	requested, _ := cmd.Flags().GetStringSlice("stages")
	selected, err := selectStages(requested, config.Pipeline.Mode)
	if err != nil {
		logger.Fatal("selecting stages", zap.Error(err))
	}

	logger.Info("starting the hr-screener",
		zap.String("version", version),
		zap.String("mode", config.Pipeline.Mode),
		zap.Strings("stages", selected),
	)

	var (
		servers  []*transport.Server
		dep      *deployment
		audit    *auditlog.Log
		orch     *pipeline.Orchestrator
		ownAudit bool
	)

	if slices.Contains(selected, stageOrchestrator) {
		dep, err = buildDeployment(config, logger)
		if err != nil {
			logger.Fatal("building the pipeline", zap.Error(err))
		}
		audit = dep.audit

		orch = pipeline.New(dep.stages, config.Pipeline.Config, logger.Named(stageOrchestrator))
		servers = append(servers, transport.NewOrchestratorServer(orch, dep.downstream, logger))
	}

	for _, name := range selected {
		switch name {
		case pipeline.StageInspector:
			servers = append(servers, transport.NewInspectorServer(pipeline.NewLocalInspector(inspector.New()), logger))
		case pipeline.StageScoring:
			store, err := loadProfiles(config.Profiles)
			if err != nil {
				logger.Fatal("loading role profiles", zap.Error(err))
			}
			servers = append(servers, transport.NewScoringServer(pipeline.NewLocalScorer(scoring.New(store)), logger))
		case pipeline.StageEnforcer:
			servers = append(servers, transport.NewEnforcerServer(pipeline.NewLocalEnforcer(enforcer.New()), logger))
		case pipeline.StageAudit:
			if audit == nil {
				audit, err = auditlog.Open(config.Audit, logger.Named(pipeline.StageAudit))
				if err != nil {
					logger.Fatal("opening the audit log", zap.Error(err))
				}
				ownAudit = true
			}
			servers = append(servers, transport.NewAuditServer(audit, logger))
		}
	}

	g, gCtx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		addr := config.Stages[srv.Name()].Listen
		g.Go(func() error {
			return srv.ListenAndServe(gCtx, addr)
		})
	}

	err = g.Wait()

	// Drain pending audit appends before the store goes away.
	if orch != nil {
		orch.Close()
	}
	if dep != nil {
		if cerr := dep.Close(); cerr != nil {
			logger.Warn("closing the audit log", zap.Error(cerr))
		}
	}
	if ownAudit {
		if cerr := audit.Close(); cerr != nil {
			logger.Warn("closing the audit log", zap.Error(cerr))
		}
	}

	if err != nil {
		logger.Fatal("serving", zap.Error(err))
	}

	logger.Info("stopped")
}

func selectStages(requested []string, mode string) ([]string, error) {
	if len(requested) == 0 {
		if strings.EqualFold(mode, modeRemote) {
			return allStages, nil
		}
		return []string{stageOrchestrator}, nil
	}

	selected := make([]string, 0, len(requested))
	for _, name := range requested {
		name = strings.ToLower(strings.TrimSpace(name))
		if !slices.Contains(allStages, name) {
			return nil, fmt.Errorf("unknown stage %q", name)
		}
		if !slices.Contains(selected, name) {
			selected = append(selected, name)
		}
	}

	return selected, nil
}
