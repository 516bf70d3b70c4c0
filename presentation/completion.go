package presentation

import (
	"strings"

	"github.com/weavecode/weave/models"
)

// MinCompletionWordLength is the shortest word under the cursor that triggers a completion request.
const MinCompletionWordLength = 3

// previewLength bounds the completion label.
const previewLength = 40

// fallbackLabel labels a candidate whose text has no visible characters.
const fallbackLabel = "Weave suggestion"

// TriggerKind mirrors how the editor asked for completions.
type TriggerKind int

const (
	TriggerInvoked TriggerKind = iota + 1
	TriggerCharacter
	TriggerForIncompleteCompletions
)

// CompletionTrigger describes one completion request from the editor.
type CompletionTrigger struct {
	Kind      TriggerKind
	Character string
}

// CompletionItem is a single completion candidate.
type CompletionItem struct {
	Label         string
	InsertText    string
	Detail        string
	Documentation string
}

// SuppressCompletion reports whether a completion request must return no candidates.
func SuppressCompletion(word string, trigger CompletionTrigger, cancelled bool) bool {
	if cancelled {
		return true
	}
	if trigger.Kind == TriggerCharacter && trigger.Character == "" {
		return true
	}
	return models.RuneCount(word) < MinCompletionWordLength
}

// NewCompletionItems wraps the raw result text as exactly one candidate.
func NewCompletionItems(result *models.OperationResult) []CompletionItem {
	return []CompletionItem{{
		Label:         Preview(result.Content),
		InsertText:    result.Content,
		Detail:        fallbackLabel,
		Documentation: result.Content,
	}}
}

// Preview returns the first non-blank line of text, truncated to a short label.
// Blank text gets a fixed label since editors reject empty ones.
func Preview(text string) string {
	line := ""
	for _, l := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(l); trimmed != "" {
			line = trimmed
			break
		}
	}
	if line == "" {
		return fallbackLabel
	}
	runes := []rune(line)
	if len(runes) <= previewLength {
		return line
	}
	return string(runes[:previewLength]) + "..."
}
