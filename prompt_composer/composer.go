package prompt_composer

import (
	"fmt"
	"strings"

	"github.com/weavecode/weave/embed_data"
	"github.com/weavecode/weave/models"
)

// Composer fills the fixed prompt templates with a captured code context.
type Composer struct {
	systemPrompts map[models.Operation]string
}

// NewComposer creates a composer backed by the embedded system prompts.
func NewComposer() *Composer {
	return &Composer{
		systemPrompts: map[models.Operation]string{
			models.OperationGeneratePrompt:      strings.TrimSpace(string(embed_data.GeneratePromptSystemPrompt)),
			models.OperationAnalyze:             strings.TrimSpace(string(embed_data.AnalyzeSystemPrompt)),
			models.OperationSuggestOptimization: strings.TrimSpace(string(embed_data.SuggestOptimizationSystemPrompt)),
			models.OperationComplete:            strings.TrimSpace(string(embed_data.CompleteSystemPrompt)),
		},
	}
}

// Compose returns the system and user prompt for an operation.
// The code is embedded verbatim; no size limit is applied.
func (c *Composer) Compose(op models.Operation, codeContext models.CodeContext) (string, string, error) {
	systemPrompt, ok := c.systemPrompts[op]
	if !ok {
		return "", "", fmt.Errorf("no prompt template for operation '%s'", op)
	}

	var userPrompt string
	switch op {
	case models.OperationGeneratePrompt:
		userPrompt = fmt.Sprintf("## Write a prompt for this %s code from %s\n\n%s",
			codeContext.Language, codeContext.FileIdentity, fence(codeContext.Language, codeContext.Code))
	case models.OperationAnalyze:
		userPrompt = fmt.Sprintf("## Analyze this %s code from %s (line %d)\n\n%s",
			codeContext.Language, codeContext.FileIdentity, codeContext.Line+1, fence(codeContext.Language, codeContext.Code))
	case models.OperationSuggestOptimization:
		userPrompt = fmt.Sprintf("## Suggest optimizations for this %s code from %s (line %d)\n\n%s",
			codeContext.Language, codeContext.FileIdentity, codeContext.Line+1, fence(codeContext.Language, codeContext.Code))
	case models.OperationComplete:
		prefix := TextBeforeCursor(codeContext.Code, codeContext.Line, codeContext.Column)
		userPrompt = fmt.Sprintf("## Continue this %s code from %s at line %d, column %d\n\n%s\nReply with the continuation only.",
			codeContext.Language, codeContext.FileIdentity, codeContext.Line+1, codeContext.Column+1, fence(codeContext.Language, prefix))
	}

	return systemPrompt, userPrompt, nil
}

// TextBeforeCursor keeps the lines before the cursor line plus the cursor line up to column (UTF-16 units).
func TextBeforeCursor(code string, line int, column int) string {
	lines := strings.Split(code, "\n")
	if line < 0 {
		return ""
	}
	if line >= len(lines) {
		return code
	}
	current := lines[line]
	current = current[:models.ByteOffset(current, column)]
	return strings.Join(append(lines[:line:line], current), "\n")
}

func fence(language string, code string) string {
	return fmt.Sprintf("```%s\n%s\n```", language, code)
}
