package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/weavecode/weave/constants/lipgloss"
	"github.com/weavecode/weave/utils"
)

var setAPIKeyCmd = &cobra.Command{
	Use:   "set-api-key [key]",
	Short: "Store the API key used to authenticate with the provider.",
	Long: `The 'set-api-key' command writes weave.apiKey into the configuration file that was loaded, or creates
weave-config.yaml in the current directory. The key is read from stdin when it is not passed as an argument.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rootDependencies, err := handleRootCommand(cmd)
		if err != nil {
			return err
		}
		return handleSetAPIKeyCommand(rootDependencies, args)
	},
}

func init() {
	rootCmd.AddCommand(setAPIKeyCmd)
}

func handleSetAPIKeyCommand(rootDependencies *RootDependencies, args []string) error {
	var key string
	if len(args) == 1 {
		key = strings.TrimSpace(args[0])
	} else {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		input, err := utils.InputPromptWithContext(ctx, bufio.NewReader(os.Stdin), "API key:")
		if err != nil {
			return err
		}
		key = input
	}

	if key == "" {
		fmt.Println(lipgloss.Yellow.Render("No API key entered."))
		return fmt.Errorf("api key is empty")
	}

	path, err := rootDependencies.Loader.SaveAPIKey(key)
	if err != nil {
		fmt.Println(lipgloss.Red.Render(fmt.Sprintf("Error saving API key: %v", err)))
		return err
	}
	fmt.Println(lipgloss.Green.Render(fmt.Sprintf("✓ API key saved to %s", path)))
	return nil
}
