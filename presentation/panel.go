package presentation

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"strings"

	"github.com/google/uuid"
	"github.com/weavecode/weave/models"
)

// Panel is a side-by-side display surface. Every invocation gets a fresh one.
type Panel struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Operation models.Operation `json:"operation"`
	Content   string           `json:"content"`
	HTML      string           `json:"html"`
}

var panelTemplate = template.Must(template.New("panel").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>{{.Title}}</title>
<style>
body { font-family: var(--vscode-font-family, sans-serif); padding: 0 1rem; }
.result { font-family: var(--vscode-editor-font-family, monospace); white-space: normal; }
.copy { margin: 1rem 0; }
</style>
</head>
<body>
<h2>{{.Title}}</h2>
<button class="copy" id="copy">Copy to clipboard</button>
<div class="result" id="result">{{.Body}}</div>
<script>
const content = {{.Content}};
document.getElementById("copy").addEventListener("click", () => navigator.clipboard.writeText(content));
</script>
</body>
</html>
`))

// NewPanel renders a result into a new panel.
func NewPanel(op models.Operation, result *models.OperationResult) (*Panel, error) {
	title := PanelTitle(op)

	var buf bytes.Buffer
	err := panelTemplate.Execute(&buf, struct {
		Title   string
		Body    template.HTML
		Content string
	}{
		Title:   title,
		Body:    template.HTML(EscapeNewlines(result.Content)),
		Content: result.Content,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render panel: %w", err)
	}

	return &Panel{
		ID:        uuid.NewString(),
		Title:     title,
		Operation: op,
		Content:   result.Content,
		HTML:      buf.String(),
	}, nil
}

// NewDocumentationPanel wraps static text in a panel.
func NewDocumentationPanel(text string) (*Panel, error) {
	return NewPanel(models.Operation("documentation"), &models.OperationResult{Content: text})
}

// EscapeNewlines HTML-escapes text and turns newlines into line breaks.
func EscapeNewlines(text string) string {
	escaped := html.EscapeString(text)
	escaped = strings.ReplaceAll(escaped, "\r\n", "\n")
	return strings.ReplaceAll(escaped, "\n", "<br>")
}

// PanelTitle names the panel opened for an operation.
func PanelTitle(op models.Operation) string {
	switch op {
	case models.OperationGeneratePrompt:
		return "Weave: Generated Prompt"
	case models.OperationAnalyze:
		return "Weave: Code Analysis"
	case models.OperationSuggestOptimization:
		return "Weave: Optimization Suggestions"
	case models.OperationComplete:
		return "Weave: Completion"
	default:
		return "Weave: Documentation"
	}
}
