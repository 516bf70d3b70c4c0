package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/weavecode/weave/config"
	"github.com/weavecode/weave/constants/lipgloss"
	"github.com/weavecode/weave/token_management"
	"github.com/weavecode/weave/token_management/contracts"
)

var version = "dev"

var cfgFile string

// RootDependencies holds the collaborators every subcommand starts from.
type RootDependencies struct {
	Cwd             string
	Loader          *config.Loader
	Settings        *config.Settings
	TokenManagement contracts.ITokenManagement
}

var rootCmd = &cobra.Command{
	Use:   "weave",
	Short: "Weave forwards selected code to a language model and shows the answer in your editor.",
	Long: `Weave is a language server that gives editors AI-assisted prompt generation, code analysis,
optimization suggestions and completions. Run 'weave serve' from an editor client, or use the one-shot
commands to run the same operations from a terminal.`,
	Version:      version,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, _ := cmd.Flags().GetString("log_level")
		// stdout carries the protocol in serve mode
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: config.ParseLogLevel(level),
		})))
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	config.InitFlags(rootCmd, &cfgFile)
}

func handleRootCommand(cmd *cobra.Command) (*RootDependencies, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("error getting current working directory: %w", err)
	}

	loader := config.NewLoader(cwd, cfgFile)
	settings, err := loader.Load(cmd.Root())
	if err != nil {
		fmt.Fprintln(os.Stderr, lipgloss.Red.Render(err.Error()))
		return nil, err
	}

	return &RootDependencies{
		Cwd:             cwd,
		Loader:          loader,
		Settings:        settings,
		TokenManagement: token_management.NewTokenManager(),
	}, nil
}
