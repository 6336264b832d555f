package cmd

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/hr-screener/internal/auditlog"
	"github.com/spigell/hr-screener/internal/logger"
	"github.com/spigell/hr-screener/internal/pipeline"
	"github.com/spigell/hr-screener/internal/profiles"
)

const (
	app       = "hr-screener"
	envPrefix = "HR_SCREENER"

	modeLocal  = "local"
	modeRemote = "remote"
)

type Config struct {
	Pipeline *PipelineConfig        `mapstructure:"pipeline"`
	Stages   map[string]StageConfig `mapstructure:"stages"`
	Audit    auditlog.Config        `mapstructure:"audit"`
	Profiles *ProfilesConfig        `mapstructure:"profiles"`
}

type PipelineConfig struct {
	Mode            string `mapstructure:"mode"`
	pipeline.Config `mapstructure:",squash"`
}

type StageConfig struct {
	Listen string `mapstructure:"listen"`
	URL    string `mapstructure:"url"`
}

type ProfilesConfig struct {
	File  string `mapstructure:"file"`
	Roles any    `mapstructure:"roles"`
}

var defaultStages = map[string]StageConfig{
	stageOrchestrator:       {Listen: ":8080", URL: "http://localhost:8080"},
	pipeline.StageInspector: {Listen: ":8081", URL: "http://localhost:8081"},
	pipeline.StageScoring:   {Listen: ":8082", URL: "http://localhost:8082"},
	pipeline.StageEnforcer:  {Listen: ":8083", URL: "http://localhost:8083"},
	pipeline.StageAudit:     {Listen: ":8084", URL: "http://localhost:8084"},
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:           app,
		Short:         "hr-screener screens candidate descriptions against role profiles and keeps an audit trail of every decision",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is hr-screener.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	setDefaults()
}

func setDefaults() {
	viper.SetDefault("pipeline.mode", modeLocal)
	viper.SetDefault("pipeline.stage-timeout", pipeline.DefaultStageTimeout)
	viper.SetDefault("pipeline.retries", 0)
	viper.SetDefault("pipeline.retry-delay", pipeline.DefaultRetryDelay)
	viper.SetDefault("pipeline.audit-queue", pipeline.DefaultAuditQueue)
	viper.SetDefault("audit.backend", auditlog.BackendFile)
	viper.SetDefault("audit.path", auditlog.DefaultFilePath)

	for name, stage := range defaultStages {
		viper.SetDefault("stages."+name+".listen", stage.Listen)
		viper.SetDefault("stages."+name+".url", stage.URL)
	}
}

func initConfig() {
	// Variables from .env must be visible before viper reads the environment.
	_ = godotenv.Load()

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// Without a config file the defaults apply. An explicit one must exist.
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config.Pipeline == nil {
		config.Pipeline = &PipelineConfig{Mode: modeLocal}
	}
	if config.Profiles == nil {
		config.Profiles = &ProfilesConfig{}
	}

	for name, def := range defaultStages {
		stage := config.Stages[name]
		if stage.Listen == "" {
			stage.Listen = def.Listen
		}
		if stage.URL == "" {
			stage.URL = def.URL
		}
		if config.Stages == nil {
			config.Stages = make(map[string]StageConfig)
		}
		config.Stages[name] = stage
	}

	return config, nil
}

func newLogger() *zap.Logger {
	l, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	return l
}

// loadProfiles prefers a profiles file, then inline roles, then the built-in set.
func loadProfiles(cfg *ProfilesConfig) (*profiles.Store, error) {
	switch {
	case cfg != nil && cfg.File != "":
		return profiles.LoadFile(cfg.File)
	case cfg != nil && cfg.Roles != nil:
		store, err := profiles.FromMap(cfg.Roles)
		if err != nil {
			return nil, fmt.Errorf("profiles.roles: %w", err)
		}
		return store, nil
	default:
		return profiles.Default()
	}
}
