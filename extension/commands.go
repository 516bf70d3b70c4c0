package extension

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/weavecode/weave/config"
	"github.com/weavecode/weave/embed_data"
	"github.com/weavecode/weave/models"
	"github.com/weavecode/weave/presentation"
)

var (
	// ErrNoActiveEditor is returned when a command needs a document and none is open.
	ErrNoActiveEditor = errors.New("no active editor")
	// ErrEmptySelection is returned when a command needs selected code and the selection is empty.
	ErrEmptySelection = errors.New("selection is empty")
	// ErrNotActive is returned when a command needs the assistant while the extension is inert.
	ErrNotActive = errors.New("weave is not active")
	// ErrUnknownCommand is returned for command identifiers that are not registered.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrNoTemplate is returned when no template exists for the document language.
	ErrNoTemplate = errors.New("no template for language")
	// ErrEmptyAPIKey is returned when weave.setApiKey receives no key.
	ErrEmptyAPIKey = errors.New("api key is empty")
)

var loadTemplates = sync.OnceValues(func() (map[string]string, error) {
	templates := make(map[string]string)
	if err := json.Unmarshal(embed_data.Templates, &templates); err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return templates, nil
})

// ExecuteCommand runs one registered command. Every failure has already been shown to the user
// when the error is returned.
func (e *Extension) ExecuteCommand(ctx context.Context, command string, arguments []any) (any, error) {
	args, err := DecodeCommandArgs(arguments)
	if err != nil {
		e.host.ShowError(ctx, fmt.Sprintf("Weave: invalid arguments for %s: %v", command, err))
		return nil, err
	}

	slog.Debug("executing command", "command", command, "uri", args.URI)

	switch command {
	case models.CommandGeneratePrompt:
		return nil, e.runPanelOperation(ctx, models.OperationGeneratePrompt, args)
	case models.CommandAnalyzeCode:
		return nil, e.runPanelOperation(ctx, models.OperationAnalyze, args)
	case models.CommandSuggestOptimization:
		return nil, e.runPanelOperation(ctx, models.OperationSuggestOptimization, args)
	case models.CommandShowDocumentation:
		return nil, e.showDocumentation(ctx)
	case models.CommandInsertTemplate:
		return nil, e.insertTemplate(ctx, args)
	case models.CommandToggleInlineHints:
		return e.toggleInlineHints(ctx), nil
	case models.CommandSetAPIKey:
		return nil, e.setAPIKey(ctx, args)
	default:
		e.host.ShowError(ctx, fmt.Sprintf("Weave: unknown command '%s'", command))
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, command)
	}
}

// DecodeCommandArgs reads the editor state from the first command argument.
func DecodeCommandArgs(arguments []any) (models.CommandArgs, error) {
	var args models.CommandArgs
	if len(arguments) == 0 || arguments[0] == nil {
		return args, nil
	}
	switch v := arguments[0].(type) {
	case models.CommandArgs:
		return v, nil
	case *models.CommandArgs:
		return *v, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &args,
	})
	if err != nil {
		return args, err
	}
	if err := decoder.Decode(arguments[0]); err != nil {
		return args, err
	}
	return args, nil
}

func (e *Extension) activeDocument(ctx context.Context, args models.CommandArgs) (*models.Document, error) {
	if args.URI == "" {
		e.host.ShowInformation(ctx, "Weave: open a file first.")
		return nil, ErrNoActiveEditor
	}
	doc, ok := e.documents.Get(args.URI)
	if !ok {
		e.host.ShowInformation(ctx, "Weave: open a file first.")
		return nil, fmt.Errorf("%w: %s", ErrNoActiveEditor, args.URI)
	}
	return doc, nil
}

func (e *Extension) activeAssistant(ctx context.Context) (*Assistant, error) {
	assistant, _ := e.current()
	if assistant != nil {
		return assistant, nil
	}
	e.mu.RLock()
	reason := e.lastError
	e.mu.RUnlock()
	if reason == nil {
		reason = errors.New("extension has not been activated")
	}
	e.host.ShowError(ctx, fmt.Sprintf("Weave is not configured: %v", reason))
	return nil, fmt.Errorf("%w: %v", ErrNotActive, reason)
}

// runPanelOperation captures the selection, sends it and opens a fresh panel with the answer.
func (e *Extension) runPanelOperation(ctx context.Context, op models.Operation, args models.CommandArgs) error {
	doc, err := e.activeDocument(ctx, args)
	if err != nil {
		return err
	}
	code := doc.TextInRange(args.Selection)
	if args.Selection.IsEmpty() || strings.TrimSpace(code) == "" {
		e.host.ShowInformation(ctx, "Weave: select some code first.")
		return ErrEmptySelection
	}

	assistant, err := e.activeAssistant(ctx)
	if err != nil {
		return err
	}

	settings := e.store.Current()
	codeContext := models.CodeContext{
		Code:         code,
		Language:     doc.LanguageID,
		FileIdentity: doc.URI,
		Line:         args.Selection.Start.Line,
		Column:       args.Selection.Start.Column,
	}

	start := time.Now()
	result, err := assistant.Run(ctx, op, codeContext, settings)
	e.recordRequest(string(op), err, start)
	if err != nil {
		slog.Error("operation failed", "operation", op, "uri", doc.URI, "error", err)
		e.host.ShowError(ctx, fmt.Sprintf("Weave %s failed: %v", op, err))
		return err
	}

	panel, err := presentation.NewPanel(op, result)
	if err != nil {
		e.host.ShowError(ctx, fmt.Sprintf("Weave: %v", err))
		return err
	}
	if err := e.host.OpenPanel(ctx, panel); err != nil {
		slog.Error("failed to open panel", "panel", panel.ID, "error", err)
		return err
	}
	return nil
}

func (e *Extension) showDocumentation(ctx context.Context) error {
	panel, err := presentation.NewDocumentationPanel(string(embed_data.Documentation))
	if err != nil {
		e.host.ShowError(ctx, fmt.Sprintf("Weave: %v", err))
		return err
	}
	return e.host.OpenPanel(ctx, panel)
}

func (e *Extension) insertTemplate(ctx context.Context, args models.CommandArgs) error {
	doc, err := e.activeDocument(ctx, args)
	if err != nil {
		return err
	}

	templates, err := loadTemplates()
	if err != nil {
		e.host.ShowError(ctx, fmt.Sprintf("Weave: %v", err))
		return err
	}
	template, ok := templates[doc.LanguageID]
	if !ok {
		e.host.ShowInformation(ctx, fmt.Sprintf("Weave: no template for %s.", doc.LanguageID))
		return fmt.Errorf("%w: %s", ErrNoTemplate, doc.LanguageID)
	}

	name := doc.WordAt(args.Position)
	if name == "" {
		name = "example"
	}
	text := strings.NewReplacer("${name}", name, "${params}", "").Replace(template)

	if err := e.host.InsertText(ctx, doc.URI, args.Position, text); err != nil {
		e.host.ShowError(ctx, fmt.Sprintf("Weave: failed to insert template: %v", err))
		return err
	}
	return nil
}

func (e *Extension) toggleInlineHints(ctx context.Context) bool {
	enabled := !e.store.Current().InlineHints
	next, err := e.layers.Edit(func(settings *config.Settings) {
		settings.InlineHints = enabled
	})
	if err != nil {
		e.host.ShowError(ctx, fmt.Sprintf("Weave: %v", err))
		return e.store.Current().InlineHints
	}
	state := "disabled"
	if next.InlineHints {
		state = "enabled"
	}
	e.host.ShowInformation(ctx, fmt.Sprintf("Weave inline hints %s.", state))
	return next.InlineHints
}

func (e *Extension) setAPIKey(ctx context.Context, args models.CommandArgs) error {
	key := strings.TrimSpace(args.APIKey)
	if key == "" {
		e.host.ShowInformation(ctx, "Weave: no API key entered.")
		return ErrEmptyAPIKey
	}

	if e.saveAPIKey != nil {
		path, err := e.saveAPIKey(key)
		if err != nil {
			e.host.ShowError(ctx, fmt.Sprintf("Weave: failed to save API key: %v", err))
			return err
		}
		slog.Info("api key saved", "file", path)
	}

	if _, err := e.layers.Edit(func(settings *config.Settings) {
		settings.APIKey = key
	}); err != nil {
		e.host.ShowError(ctx, fmt.Sprintf("Weave: %v", err))
		return err
	}
	e.host.ShowInformation(ctx, "Weave API key saved.")
	return nil
}
