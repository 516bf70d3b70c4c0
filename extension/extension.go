package extension

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/weavecode/weave/code_analyzer"
	"github.com/weavecode/weave/config"
	"github.com/weavecode/weave/presentation"
	"github.com/weavecode/weave/prompt_composer"
	"github.com/weavecode/weave/providers"
	"github.com/weavecode/weave/providers/contracts"
	"github.com/weavecode/weave/token_management"
	tokencontracts "github.com/weavecode/weave/token_management/contracts"
)

// ProviderFactoryFunc builds the transport for a settings snapshot.
type ProviderFactoryFunc func(settings *config.Settings, tokenManagement tokencontracts.ITokenManagement) (contracts.IAssistantProvider, error)

// Deps are the collaborators owned by the composition root.
type Deps struct {
	Store *config.Store
	// Layers composes Store from file, session and editor settings. Built over Store when nil.
	Layers          *config.Layers
	Host            presentation.Host
	TokenManagement tokencontracts.ITokenManagement
	// ProviderFactory defaults to providers.ProviderFactory.
	ProviderFactory ProviderFactoryFunc
	// SaveAPIKey persists a key entered through weave.setApiKey. Optional.
	SaveAPIKey func(key string) (string, error)
	// ScanCacheSize bounds the symbol scan cache.
	ScanCacheSize int
}

// Extension wires commands, the completion provider and the code-lens provider to the assistant.
type Extension struct {
	store           *config.Store
	layers          *config.Layers
	host            presentation.Host
	tokenManagement tokencontracts.ITokenManagement
	newProvider     ProviderFactoryFunc
	saveAPIKey      func(key string) (string, error)
	composer        *prompt_composer.Composer
	documents       *DocumentStore
	scanners        map[string]*code_analyzer.CachedScanner

	mu        sync.RWMutex
	assistant *Assistant
	cache     *completionCache
	lastError error

	deactivated atomic.Bool
}

// New builds an inert extension. Activate must be called before commands do any work.
func New(deps Deps) (*Extension, error) {
	if deps.Store == nil && deps.Layers != nil {
		deps.Store = deps.Layers.Store()
	}
	if deps.Store == nil || deps.Host == nil {
		return nil, errors.New("extension requires a settings store and a host")
	}
	if deps.Layers == nil {
		deps.Layers = config.NewLayers(deps.Store)
	}
	if deps.TokenManagement == nil {
		deps.TokenManagement = token_management.NewTokenManager()
	}
	if deps.ProviderFactory == nil {
		deps.ProviderFactory = providers.ProviderFactory
	}

	regex := code_analyzer.NewRegexScanner()
	regexCached, err := code_analyzer.NewCachedScanner(regex, deps.ScanCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create scan cache: %w", err)
	}
	syntaxCached, err := code_analyzer.NewCachedScanner(code_analyzer.NewSyntaxScanner(regex), deps.ScanCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create scan cache: %w", err)
	}

	e := &Extension{
		store:           deps.Store,
		layers:          deps.Layers,
		host:            deps.Host,
		tokenManagement: deps.TokenManagement,
		newProvider:     deps.ProviderFactory,
		saveAPIKey:      deps.SaveAPIKey,
		composer:        prompt_composer.NewComposer(),
		documents:       NewDocumentStore(),
		scanners: map[string]*code_analyzer.CachedScanner{
			config.ScannerRegex:  regexCached,
			config.ScannerSyntax: syntaxCached,
		},
	}
	e.store.OnChange(func(settings *config.Settings) {
		if e.deactivated.Load() {
			return
		}
		_ = e.activate(context.Background(), settings)
	})
	return e, nil
}

// Activate validates the current settings and builds the assistant.
// A configuration error is shown once and leaves the extension inert.
func (e *Extension) Activate(ctx context.Context) error {
	e.deactivated.Store(false)
	return e.activate(ctx, e.store.Current())
}

func (e *Extension) activate(ctx context.Context, settings *config.Settings) error {
	assistant, cache, err := e.build(settings)

	e.mu.Lock()
	previous := e.lastError
	e.lastError = err
	oldCache := e.cache
	e.assistant = assistant
	e.cache = cache
	e.mu.Unlock()

	if oldCache != nil {
		oldCache.Close()
	}

	if err != nil {
		// report a configuration error once until it changes
		if previous == nil || previous.Error() != err.Error() {
			e.host.ShowError(ctx, fmt.Sprintf("Weave configuration error: %v", err))
		}
		slog.Warn("extension inactive", "error", err)
		return err
	}
	slog.Info("extension activated",
		"provider", settings.Provider, "model", settings.Model, "transport", settings.Transport)
	return nil
}

func (e *Extension) build(settings *config.Settings) (*Assistant, *completionCache, error) {
	if err := settings.Validate(); err != nil {
		return nil, nil, err
	}
	provider, err := e.newProvider(settings, e.tokenManagement)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", config.ErrInvalidSettings, err)
	}
	var cache *completionCache
	if settings.CompletionCacheTTL > 0 {
		cache = newCompletionCache(time.Duration(settings.CompletionCacheTTL) * time.Second)
	}
	return NewAssistant(e.composer, provider), cache, nil
}

// Reload replaces the file/env settings layer and re-activates.
// Editor settings and session edits are layered on top again.
func (e *Extension) Reload(settings *config.Settings) {
	if err := e.layers.SetBase(settings); err != nil {
		slog.Error("failed to apply settings", "error", err)
	}
}

// Configure replaces the editor settings payload and re-activates.
// A payload that fails to decode is rejected and the current settings stay live.
func (e *Extension) Configure(raw any) error {
	return e.layers.SetOverlay(raw)
}

// Deactivate drops the assistant and releases caches.
func (e *Extension) Deactivate() {
	e.deactivated.Store(true)

	e.mu.Lock()
	cache := e.cache
	e.assistant = nil
	e.cache = nil
	e.mu.Unlock()

	if cache != nil {
		cache.Close()
	}
	for _, scanner := range e.scanners {
		scanner.Purge()
	}
	slog.Info("extension deactivated")
}

// Active reports whether the assistant is ready.
func (e *Extension) Active() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.assistant != nil
}

// Documents exposes the open document store.
func (e *Extension) Documents() *DocumentStore {
	return e.documents
}

// Settings returns the live settings snapshot.
func (e *Extension) Settings() *config.Settings {
	return e.store.Current()
}

func (e *Extension) current() (*Assistant, *completionCache) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.assistant, e.cache
}

func (e *Extension) scanner(name string) code_analyzer.SymbolScanner {
	if scanner, ok := e.scanners[name]; ok {
		return scanner
	}
	return e.scanners[config.ScannerRegex]
}

func (e *Extension) recordRequest(op string, err error, start time.Time) {
	outcome := token_management.OutcomeSuccess
	if err != nil {
		outcome = token_management.OutcomeError
	}
	e.tokenManagement.RequestFinished(op, outcome, time.Since(start))
}
