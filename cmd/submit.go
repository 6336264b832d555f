package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/hr-screener/internal/pipeline"
	"github.com/spigell/hr-screener/internal/profiles"
	"github.com/spigell/hr-screener/internal/screening"
	"github.com/spigell/hr-screener/internal/transport"
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Screen one candidate and print the verdict",
	Run: func(cmd *cobra.Command, _ []string) {
		submit(cmd)
	},
}

func init() {
	rootCmd.AddCommand(submitCmd)
	addSubmitFlags(submitCmd)
}

func addSubmitFlags(cmd *cobra.Command) {
	cmd.Flags().String("candidate-id", "", "candidate identifier")
	cmd.Flags().String("candidate-name", "", "candidate name, stored masked in the audit trail")
	cmd.Flags().StringP("role", "r", "", "applied role title. Asked interactively if empty.")
	cmd.Flags().String("requested-by", "", "who asked for the screening")
	cmd.Flags().String("description", "", "candidate description to screen")
	cmd.Flags().StringP("description-file", "f", "", "read the candidate description from a file")
	cmd.Flags().Bool("remote", false, "send the request to the orchestrator at stages.orchestrator.url")
}

func submit(cmd *cobra.Command) {
	ctx := context.Background()

	logger := newLogger()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	raw, err := requestFromFlags(cmd)
	if err != nil {
		logger.Fatal("reading the request", zap.Error(err))
	}

	if raw.Role == "" && isTerminal(os.Stdin) {
		store, err := loadProfiles(config.Profiles)
		if err != nil {
			logger.Fatal("loading role profiles", zap.Error(err))
		}

		raw.Role, err = promptRole(store)
		if err != nil {
			logger.Fatal("choosing a role", zap.Error(err))
		}
	}

	var resp *screening.Response
	if remote, _ := cmd.Flags().GetBool("remote"); remote {
		client := transport.NewClient(config.Stages[stageOrchestrator].URL, submitTimeout(config.Pipeline), logger)
		resp, err = client.Submit(ctx, raw)
	} else {
		resp, err = submitLocal(ctx, config, raw, logger)
	}
	if err != nil {
		logger.Fatal("screening", zap.Error(err))
	}

	pretty, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		logger.Fatal("encoding the verdict", zap.Error(err))
	}

	fmt.Println(string(pretty))
}

func submitLocal(ctx context.Context, config *Config, raw screening.RawRequest, logger *zap.Logger) (*screening.Response, error) {
	dep, err := buildDeployment(config, logger)
	if err != nil {
		return nil, err
	}
	defer dep.Close()

	o := pipeline.New(dep.stages, config.Pipeline.Config, logger.Named(stageOrchestrator))
	// Close waits for the audit append of this verdict.
	defer o.Close()

	verdict, err := o.Submit(ctx, raw)
	if err != nil {
		return nil, err
	}

	resp := verdict.Response()
	return &resp, nil
}

func requestFromFlags(cmd *cobra.Command) (screening.RawRequest, error) {
	flags := cmd.Flags()

	candidateID, _ := flags.GetString("candidate-id")
	candidateName, _ := flags.GetString("candidate-name")
	role, _ := flags.GetString("role")
	requestedBy, _ := flags.GetString("requested-by")
	description, _ := flags.GetString("description")
	descriptionFile, _ := flags.GetString("description-file")

	if descriptionFile != "" {
		if description != "" {
			return screening.RawRequest{}, fmt.Errorf("--description and --description-file are mutually exclusive")
		}

		data, err := os.ReadFile(descriptionFile)
		if err != nil {
			return screening.RawRequest{}, fmt.Errorf("reading description file: %w", err)
		}
		description = string(data)
	}

	return screening.RawRequest{
		CandidateID:   candidateID,
		CandidateName: candidateName,
		Role:          role,
		RequestedBy:   requestedBy,
		Description:   description,
	}, nil
}

func promptRole(store *profiles.Store) (string, error) {
	titles := make([]string, 0, len(store.Profiles()))
	for _, p := range store.Profiles() {
		titles = append(titles, p.Title)
	}

	prompt := promptui.Select{
		Label: "Applied role",
		Items: titles,
	}

	_, role, err := prompt.Run()
	return role, err
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
