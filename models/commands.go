package models

// Command identifiers registered with the editor.
const (
	CommandGeneratePrompt      = "weave.generatePrompt"
	CommandAnalyzeCode         = "weave.analyzeCode"
	CommandSuggestOptimization = "weave.suggestOptimization"
	CommandShowDocumentation   = "weave.showDocumentation"
	CommandInsertTemplate      = "weave.insertTemplate"
	CommandToggleInlineHints   = "weave.toggleInlineHints"
	CommandSetAPIKey           = "weave.setApiKey"
)

// Commands lists every command in registration order.
var Commands = []string{
	CommandGeneratePrompt,
	CommandAnalyzeCode,
	CommandSuggestOptimization,
	CommandShowDocumentation,
	CommandInsertTemplate,
	CommandToggleInlineHints,
	CommandSetAPIKey,
}

// CommandArgs is the editor state a command runs against: the active document and its selection.
type CommandArgs struct {
	URI       string   `json:"uri" mapstructure:"uri"`
	Selection Range    `json:"selection" mapstructure:"selection"`
	Position  Position `json:"position" mapstructure:"position"`
	// APIKey is only read by weave.setApiKey.
	APIKey string `json:"apiKey,omitempty" mapstructure:"apiKey"`
}
