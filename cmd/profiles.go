package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/hr-screener/internal/profiles"
	"github.com/spigell/hr-screener/internal/scoring"
	"github.com/spigell/hr-screener/internal/screening"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Print the role profiles, or the profile a role resolves to",
	Run: func(cmd *cobra.Command, _ []string) {
		showProfiles(cmd)
	},
}

func init() {
	rootCmd.AddCommand(profilesCmd)

	profilesCmd.Flags().StringP("role", "r", "", "show only the profile this role title resolves to")
	profilesCmd.Flags().StringP("name", "n", "", "show only the profile with this name")
}

func showProfiles(cmd *cobra.Command) {
	logger := newLogger()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	store, err := loadProfiles(config.Profiles)
	if err != nil {
		logger.Fatal("loading role profiles", zap.Error(err))
	}

	if name, _ := cmd.Flags().GetString("name"); name != "" {
		p, ok := store.Get(name)
		if !ok {
			logger.Fatal("unknown profile", zap.String("name", name))
		}
		printProfile(p)
		return
	}

	if role, _ := cmd.Flags().GetString("role"); role != "" {
		p := store.Resolve(role)
		fmt.Printf("%q resolves to %s\n\n", role, p.Name)
		printProfile(p)
		return
	}

	for i, p := range store.Profiles() {
		if i > 0 {
			fmt.Println()
		}
		printProfile(p)
	}
}

func printProfile(p *profiles.Profile) {
	fmt.Printf("%s (%s)\n", p.Name, p.Title)
	for _, tier := range screening.Tiers {
		phrases := p.Phrases(tier)
		if len(phrases) == 0 {
			continue
		}
		fmt.Printf("  %-8s %+4d  %s\n", tier.Label(), scoring.Delta(tier), strings.Join(phrases, ", "))
	}
}
