// Package cli implements the command line interface. Commands talk to
// the core through the driving ports; wiring happens once per
// invocation from the loaded configuration.
package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	configfile "github.com/dhluong90/presale-assistance-backend/internal/adapters/driven/config/file"
	"github.com/dhluong90/presale-assistance-backend/internal/core/ports/driven"
	"github.com/dhluong90/presale-assistance-backend/internal/core/ports/driving"
	"github.com/dhluong90/presale-assistance-backend/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	configPath string
	verbose    bool
)

// Services the commands run against. Tests replace these; production
// wiring fills them in ensureServices.
var (
	agentService     driving.AgentService
	knowledgeService driving.KnowledgeService
	watchSource      driven.DocumentSource
	closeServices    func()
)

var rootCmd = &cobra.Command{
	Use:   "presale",
	Short: "Retrieval-augmented assistant for presale questions",
	Long: `presale indexes company documents, embeds them and answers
questions grounded in the most relevant material.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the CLI.
func Execute() error {
	defer func() {
		if closeServices != nil {
			closeServices()
		}
	}()
	return rootCmd.Execute()
}

// ensureServices wires the agent and index from configuration. Safe to
// call from several commands; only the first call builds anything.
func ensureServices(cmd *cobra.Command) error {
	if agentService != nil && knowledgeService != nil {
		return nil
	}

	cfg, err := configfile.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	wired, err := buildServices(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	agentService = wired.agent
	knowledgeService = wired.index
	watchSource = wired.source
	closeServices = wired.close
	return nil
}

// errNotConfigured is returned when a command runs without wiring.
var errNotConfigured = errors.New("services not configured")
