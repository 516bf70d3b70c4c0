package extension

import (
	"context"
	"log/slog"
	"time"

	"github.com/weavecode/weave/config"
	"github.com/weavecode/weave/models"
	"github.com/weavecode/weave/presentation"
)

func languageEnabled(settings *config.Settings, doc *models.Document, feature func(*config.Settings) bool) bool {
	return settings.Enabled && feature(settings) && settings.InScope(doc.LanguageID)
}

// Completion returns at most one candidate for the cursor position. Failures yield no candidates.
// One settings snapshot serves both gating and the request.
func (e *Extension) Completion(ctx context.Context, uri string, position models.Position, trigger presentation.CompletionTrigger) []presentation.CompletionItem {
	doc, ok := e.documents.Get(uri)
	if !ok {
		return nil
	}
	settings := e.store.Current()
	if !languageEnabled(settings, doc, func(s *config.Settings) bool { return s.EnableCodeCompletion }) {
		return nil
	}
	assistant, cache := e.current()
	if assistant == nil {
		return nil
	}

	word := doc.WordAt(position)
	if presentation.SuppressCompletion(word, trigger, ctx.Err() != nil) {
		return nil
	}

	request, err := assistant.Request(models.OperationComplete, models.CodeContext{
		Code:         doc.Text,
		Language:     doc.LanguageID,
		FileIdentity: doc.URI,
		Line:         position.Line,
		Column:       position.Column,
	})
	if err != nil {
		slog.Debug("completion compose failed", "error", err)
		return nil
	}

	if cache != nil {
		if result := cache.Get(request); result != nil {
			slog.Debug("completion cache hit", "uri", uri)
			return presentation.NewCompletionItems(result)
		}
	}

	start := time.Now()
	result, err := assistant.Send(ctx, request, settings)
	e.recordRequest(string(models.OperationComplete), err, start)
	if err != nil {
		slog.Debug("completion request failed", "uri", uri, "error", err)
		return nil
	}
	if ctx.Err() != nil {
		return nil
	}
	if cache != nil {
		cache.Set(request, result)
	}
	return presentation.NewCompletionItems(result)
}

// CodeLenses returns the analyze lens plus one optimize lens per detected symbol.
// Lenses are offered while the assistant is inert; running one reports the configuration problem.
func (e *Extension) CodeLenses(ctx context.Context, uri string) []presentation.CodeLens {
	doc, ok := e.documents.Get(uri)
	if !ok {
		return nil
	}
	settings := e.store.Current()
	if !languageEnabled(settings, doc, func(s *config.Settings) bool { return s.EnableCodeLens }) {
		return nil
	}
	if ctx.Err() != nil {
		return nil
	}

	scanner := e.scanner(settings.CodeLensScanner)
	symbols, err := scanner.Scan(ctx, doc.LanguageID, doc.Text)
	if err != nil {
		slog.Debug("symbol scan failed", "uri", uri, "scanner", scanner.Name(), "error", err)
		return nil
	}
	if ctx.Err() != nil {
		return nil
	}
	return presentation.NewCodeLenses(uri, doc, symbols)
}
