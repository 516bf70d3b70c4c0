package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/weavecode/weave/constants/lipgloss"
	"github.com/weavecode/weave/extension"
	"github.com/weavecode/weave/models"
	"github.com/weavecode/weave/prompt_composer"
	"github.com/weavecode/weave/providers"
	"github.com/weavecode/weave/utils"
)

var analyzeCmd = newOperationCommand("analyze <file>", "Review code for bugs, risks and readability issues.", models.OperationAnalyze)

var suggestCmd = newOperationCommand("suggest <file>", "Suggest faster or cleaner versions of the code.", models.OperationSuggestOptimization)

var promptCmd = newOperationCommand("prompt <file>", "Write a reusable prompt that would reproduce the code.", models.OperationGeneratePrompt)

var completeCmd = &cobra.Command{
	Use:   "complete <file>",
	Short: "Continue the code at a cursor position.",
	Long: `The 'complete' subcommand sends the text before the cursor and prints the model's continuation.
Lines and columns are 1-based.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		line, _ := cmd.Flags().GetInt("line")
		column, _ := cmd.Flags().GetInt("column")
		if line < 1 || column < 1 {
			return fmt.Errorf("--line and --column must be positive")
		}
		return runOperation(cmd, models.OperationComplete, args[0], func(doc *models.Document) (models.CodeContext, error) {
			return models.CodeContext{
				Code:         doc.Text,
				Language:     doc.LanguageID,
				FileIdentity: doc.URI,
				Line:         line - 1,
				Column:       column - 1,
			}, nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{analyzeCmd, suggestCmd, promptCmd} {
		c.Flags().String("lines", "", "Restrict the selection to a 1-based inclusive line range such as '10:42'.")
		c.Flags().String("theme", "dracula", "Chroma theme used to render the answer.")
		rootCmd.AddCommand(c)
	}
	completeCmd.Flags().Int("line", 0, "Cursor line (1-based).")
	completeCmd.Flags().Int("column", 0, "Cursor column (1-based).")
	completeCmd.Flags().String("theme", "dracula", "Chroma theme used to render the answer.")
	rootCmd.AddCommand(completeCmd)
}

func newOperationCommand(use string, short string, op models.Operation) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lines, _ := cmd.Flags().GetString("lines")
			return runOperation(cmd, op, args[0], func(doc *models.Document) (models.CodeContext, error) {
				selection, err := parseLineRange(lines, doc)
				if err != nil {
					return models.CodeContext{}, err
				}
				code := doc.TextInRange(selection)
				if strings.TrimSpace(code) == "" {
					return models.CodeContext{}, extension.ErrEmptySelection
				}
				return models.CodeContext{
					Code:         code,
					Language:     doc.LanguageID,
					FileIdentity: doc.URI,
					Line:         selection.Start.Line,
					Column:       selection.Start.Column,
				}, nil
			})
		},
	}
}

func runOperation(cmd *cobra.Command, op models.Operation, path string, capture func(*models.Document) (models.CodeContext, error)) error {
	rootDependencies, err := handleRootCommand(cmd)
	if err != nil {
		return err
	}
	settings := rootDependencies.Settings
	if err := settings.Validate(); err != nil {
		fmt.Println(lipgloss.Red.Render(fmt.Sprintf("Configuration error: %v", err)))
		return err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading %s: %w", path, err)
	}
	doc := &models.Document{URI: path, LanguageID: utils.LanguageFromPath(path), Text: string(content)}

	codeContext, err := capture(doc)
	if err != nil {
		fmt.Println(lipgloss.Yellow.Render(err.Error()))
		return err
	}

	provider, err := providers.ProviderFactory(settings, rootDependencies.TokenManagement)
	if err != nil {
		fmt.Println(lipgloss.Red.Render(err.Error()))
		return err
	}
	assistant := extension.NewAssistant(prompt_composer.NewComposer(), provider)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	spinner := pterm.DefaultSpinner.WithStyle(pterm.NewStyle(pterm.FgCyan)).
		WithSequence("⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏").
		WithDelay(100).WithRemoveWhenDone(true)
	spinnerInstance, _ := spinner.Start(fmt.Sprintf("Weave is running %s on %s...", op, path))

	result, err := assistant.Run(ctx, op, codeContext, settings)
	spinnerInstance.Stop()
	fmt.Print("\r")
	if err != nil {
		fmt.Println(lipgloss.Red.Render(fmt.Sprintf("Weave %s failed: %v", op, err)))
		return err
	}

	theme, _ := cmd.Flags().GetString("theme")
	fmt.Println(lipgloss.BoxStyle.Render(resultTitle(op)))
	if err := utils.RenderMarkdown(ctx, os.Stdout, result.Content, doc.LanguageID, theme); err != nil {
		return fmt.Errorf("error rendering result: %w", err)
	}

	tokens, cost := rootDependencies.TokenManagement.GetCurrentTokenUsage()
	if tokens > 0 {
		fmt.Println(lipgloss.Gray.Render(fmt.Sprintf("\nTokens: %d  Cost: $%.6f  Model: %s", tokens, cost, settings.Model)))
	}
	return nil
}

func resultTitle(op models.Operation) string {
	switch op {
	case models.OperationAnalyze:
		return "Code analysis"
	case models.OperationSuggestOptimization:
		return "Optimization suggestions"
	case models.OperationGeneratePrompt:
		return "Generated prompt"
	default:
		return "Completion"
	}
}

// parseLineRange turns "a:b" (1-based, inclusive) into a document range. Empty means the whole document.
func parseLineRange(lines string, doc *models.Document) (models.Range, error) {
	if lines == "" {
		return doc.FullRange(), nil
	}
	from, to, ok := strings.Cut(lines, ":")
	if !ok {
		to = from
	}
	start, err := strconv.Atoi(strings.TrimSpace(from))
	if err != nil || start < 1 {
		return models.Range{}, fmt.Errorf("invalid --lines value '%s'", lines)
	}
	end, err := strconv.Atoi(strings.TrimSpace(to))
	if err != nil || end < start {
		return models.Range{}, fmt.Errorf("invalid --lines value '%s'", lines)
	}
	return models.Range{
		Start: models.Position{Line: start - 1},
		End:   models.Position{Line: end},
	}, nil
}
