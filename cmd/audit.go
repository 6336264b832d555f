package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/hr-screener/internal/auditlog"
	"github.com/spigell/hr-screener/internal/pipeline"
	"github.com/spigell/hr-screener/internal/transport"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the audit trail",
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print every audit record as JSON",
	Run: func(cmd *cobra.Command, _ []string) {
		auditList(cmd)
	},
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the audit trail against the record schema",
	Run: func(_ *cobra.Command, _ []string) {
		auditVerify()
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditListCmd, auditVerifyCmd)

	auditListCmd.Flags().Bool("remote", false, "read the records from the audit service at stages.audit.url")
}

func auditList(cmd *cobra.Command) {
	ctx := context.Background()
	logger := newLogger()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	var records []auditlog.Record
	if remote, _ := cmd.Flags().GetBool("remote"); remote {
		records, err = transport.NewClient(config.Stages[pipeline.StageAudit].URL, stageTimeout(config.Pipeline), logger).Records(ctx)
	} else {
		records, err = readRecords(ctx, config.Audit, logger)
	}
	if err != nil {
		logger.Fatal("reading the audit trail", zap.Error(err))
	}

	pretty, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		logger.Fatal("encoding the audit trail", zap.Error(err))
	}

	fmt.Println(string(pretty))
}

func auditVerify() {
	ctx := context.Background()
	logger := newLogger()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	data, count, err := exportTrail(ctx, config.Audit, logger)
	if err != nil {
		logger.Fatal("reading the audit trail", zap.Error(err))
	}

	if err := auditlog.ValidateRecords(data); err != nil {
		var schemaErr *auditlog.SchemaError
		if errors.As(err, &schemaErr) {
			for _, fe := range schemaErr.Errors {
				logger.Error("invalid audit record", zap.String("field", fe.Field), zap.String("reason", fe.Message))
			}
		}
		logger.Fatal("verifying the audit trail", zap.Error(err))
	}

	fmt.Printf("audit trail is valid: %d record(s)\n", count)
}

func readRecords(ctx context.Context, cfg auditlog.Config, logger *zap.Logger) ([]auditlog.Record, error) {
	log, err := auditlog.Open(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer log.Close()

	return log.Records(ctx)
}

// exportTrail returns the trail as stored for the file backend so that
// hand-edited records are caught, and as exported records otherwise.
func exportTrail(ctx context.Context, cfg auditlog.Config, logger *zap.Logger) ([]byte, int, error) {
	if backend := strings.ToLower(strings.TrimSpace(cfg.Backend)); backend == "" || backend == auditlog.BackendFile {
		path := cfg.Path
		if path == "" {
			path = auditlog.DefaultFilePath
		}

		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			return []byte("[]"), 0, nil
		case err != nil:
			return nil, 0, err
		}

		var entries []json.RawMessage
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, 0, fmt.Errorf("audit file %s is not a JSON array: %w", path, err)
		}
		return data, len(entries), nil
	}

	records, err := readRecords(ctx, cfg, logger)
	if err != nil {
		return nil, 0, err
	}

	data, err := json.Marshal(records)
	return data, len(records), err
}
