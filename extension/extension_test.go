package extension

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weavecode/weave/config"
	"github.com/weavecode/weave/models"
	"github.com/weavecode/weave/presentation"
	"github.com/weavecode/weave/providers"
	"github.com/weavecode/weave/providers/contracts"
	provider_models "github.com/weavecode/weave/providers/models"
	"github.com/weavecode/weave/token_management"
	tokencontracts "github.com/weavecode/weave/token_management/contracts"
)

type fakeHost struct {
	mu      sync.Mutex
	infos   []string
	errors  []string
	panels  []*presentation.Panel
	inserts []string
}

func (h *fakeHost) ShowInformation(_ context.Context, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.infos = append(h.infos, message)
}

func (h *fakeHost) ShowError(_ context.Context, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errors = append(h.errors, message)
}

func (h *fakeHost) OpenPanel(_ context.Context, panel *presentation.Panel) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.panels = append(h.panels, panel)
	return nil
}

func (h *fakeHost) InsertText(_ context.Context, _ string, _ models.Position, text string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.inserts = append(h.inserts, text)
	return nil
}

func (h *fakeHost) messages() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.infos) + len(h.errors)
}

type stubProvider struct {
	mu      sync.Mutex
	calls   int
	content string
	err     error
}

func (p *stubProvider) Send(ctx context.Context, request *contracts.Request, _ *config.Settings) (*models.OperationResult, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	return &models.OperationResult{Kind: request.Operation.ResultKind(), Content: p.content}, nil
}

func (p *stubProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func testSettings() *config.Settings {
	settings := config.Defaults()
	settings.APIKey = "test-key"
	return settings
}

func newTestExtension(t *testing.T, settings *config.Settings, provider contracts.IAssistantProvider) (*Extension, *fakeHost) {
	t.Helper()
	host := &fakeHost{}
	ext, err := New(Deps{
		Store:           config.NewStore(settings),
		Host:            host,
		TokenManagement: token_management.NewTokenManager(),
		ProviderFactory: func(*config.Settings, tokencontracts.ITokenManagement) (contracts.IAssistantProvider, error) {
			return provider, nil
		},
	})
	require.NoError(t, err)
	t.Cleanup(ext.Deactivate)
	return ext, host
}

func openDocument(ext *Extension, uri string, language string, text string) {
	ext.Documents().Open(&models.Document{URI: uri, LanguageID: language, Version: 1, Text: text})
}

func TestPanelCommands_EmptySelectionMakesNoRequest(t *testing.T) {
	provider := &stubProvider{content: "unused"}
	ext, host := newTestExtension(t, testSettings(), provider)
	require.NoError(t, ext.Activate(context.Background()))
	openDocument(ext, "file:///a.js", "javascript", "function add(a,b){return a+b;}")

	for _, command := range []string{models.CommandGeneratePrompt, models.CommandAnalyzeCode, models.CommandSuggestOptimization} {
		t.Run(command, func(t *testing.T) {
			before := host.messages()
			cursor := models.Position{Line: 0, Column: 3}
			_, err := ext.ExecuteCommand(context.Background(), command, []any{
				models.CommandArgs{URI: "file:///a.js", Selection: models.Range{Start: cursor, End: cursor}},
			})
			assert.ErrorIs(t, err, ErrEmptySelection)
			assert.Equal(t, before+1, host.messages())
		})
	}
	assert.Zero(t, provider.Calls())
	assert.Empty(t, host.panels)
}

func TestPanelCommands_NoActiveEditor(t *testing.T) {
	provider := &stubProvider{content: "unused"}
	ext, host := newTestExtension(t, testSettings(), provider)
	require.NoError(t, ext.Activate(context.Background()))

	_, err := ext.ExecuteCommand(context.Background(), models.CommandAnalyzeCode, nil)
	assert.ErrorIs(t, err, ErrNoActiveEditor)

	_, err = ext.ExecuteCommand(context.Background(), models.CommandAnalyzeCode, []any{map[string]any{"uri": "file:///closed.js"}})
	assert.ErrorIs(t, err, ErrNoActiveEditor)

	assert.Equal(t, 2, host.messages())
	assert.Zero(t, provider.Calls())
}

func TestAnalyze_EndToEndThroughGateway(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":"looks fine"}`))
	}))
	defer server.Close()

	settings := testSettings()
	settings.Endpoint = server.URL
	host := &fakeHost{}
	ext, err := New(Deps{Store: config.NewStore(settings), Host: host, ProviderFactory: providers.ProviderFactory})
	require.NoError(t, err)
	defer ext.Deactivate()
	require.NoError(t, ext.Activate(context.Background()))

	code := "function add(a,b){return a+b;}"
	openDocument(ext, "file:///add.js", "javascript", code)

	_, err = ext.ExecuteCommand(context.Background(), models.CommandAnalyzeCode, []any{map[string]any{
		"uri": "file:///add.js",
		"selection": map[string]any{
			"start": map[string]any{"line": 0.0, "column": 0.0},
			"end":   map[string]any{"line": 0.0, "column": float64(len(code))},
		},
	}})
	require.NoError(t, err)

	require.Len(t, host.panels, 1)
	assert.Contains(t, host.panels[0].HTML, "looks fine")
	assert.Empty(t, host.errors)
}

func TestAnalyze_TransportFailureShowsOneError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":{"message":"upstream model unavailable"}}`))
	}))
	defer server.Close()

	settings := testSettings()
	settings.Endpoint = server.URL
	host := &fakeHost{}
	ext, err := New(Deps{Store: config.NewStore(settings), Host: host})
	require.NoError(t, err)
	defer ext.Deactivate()
	require.NoError(t, ext.Activate(context.Background()))

	openDocument(ext, "file:///add.js", "javascript", "function add(a,b){return a+b;}")
	_, err = ext.ExecuteCommand(context.Background(), models.CommandAnalyzeCode, []any{models.CommandArgs{
		URI:       "file:///add.js",
		Selection: models.Range{End: models.Position{Column: 10}},
	}})

	assert.ErrorIs(t, err, provider_models.ErrTransport)
	assert.Empty(t, host.panels)
	require.Len(t, host.errors, 1)
	assert.Contains(t, host.errors[0], "upstream model unavailable")
}

func TestActivate_MissingAPIKeyLeavesExtensionInert(t *testing.T) {
	settings := config.Defaults()
	provider := &stubProvider{content: "ok"}
	ext, host := newTestExtension(t, settings, provider)

	err := ext.Activate(context.Background())
	assert.ErrorIs(t, err, config.ErrMissingAPIKey)
	assert.False(t, ext.Active())
	require.Len(t, host.errors, 1)

	openDocument(ext, "file:///a.js", "javascript", "function a() {}")
	_, err = ext.ExecuteCommand(context.Background(), models.CommandAnalyzeCode, []any{models.CommandArgs{
		URI:       "file:///a.js",
		Selection: models.Range{End: models.Position{Column: 15}},
	}})
	assert.ErrorIs(t, err, ErrNotActive)
	assert.Zero(t, provider.Calls())

	next := settings.Clone()
	next.APIKey = "late-key"
	ext.Reload(next)
	assert.True(t, ext.Active())
	assert.Equal(t, "late-key", ext.Settings().APIKey)
}

func TestActivate_ConfigurationErrorReportedOnce(t *testing.T) {
	ext, host := newTestExtension(t, config.Defaults(), &stubProvider{})

	_ = ext.Activate(context.Background())
	ext.Reload(config.Defaults())

	assert.Len(t, host.errors, 1)
}

func TestToggleInlineHints_RoundTrip(t *testing.T) {
	ext, host := newTestExtension(t, testSettings(), &stubProvider{})
	original := ext.Settings().InlineHints

	first, err := ext.ExecuteCommand(context.Background(), models.CommandToggleInlineHints, nil)
	require.NoError(t, err)
	assert.Equal(t, !original, first)

	second, err := ext.ExecuteCommand(context.Background(), models.CommandToggleInlineHints, nil)
	require.NoError(t, err)
	assert.Equal(t, original, second)
	assert.Equal(t, original, ext.Settings().InlineHints)
	assert.Len(t, host.infos, 2)
}

func TestCompletion_WordLengthGate(t *testing.T) {
	provider := &stubProvider{content: "total += item.price;\nreturn total;"}
	ext, _ := newTestExtension(t, testSettings(), provider)
	require.NoError(t, ext.Activate(context.Background()))
	openDocument(ext, "file:///sum.js", "javascript", "let to\nlet total\n")

	short := ext.Completion(context.Background(), "file:///sum.js", models.Position{Line: 0, Column: 6}, presentation.CompletionTrigger{Kind: presentation.TriggerInvoked})
	assert.Empty(t, short)
	assert.Zero(t, provider.Calls())

	items := ext.Completion(context.Background(), "file:///sum.js", models.Position{Line: 1, Column: 9}, presentation.CompletionTrigger{Kind: presentation.TriggerInvoked})
	require.Len(t, items, 1)
	assert.Equal(t, "total += item.price;", items[0].Label)
	assert.Equal(t, provider.content, items[0].InsertText)
	assert.Equal(t, 1, provider.Calls())
}

func TestCompletion_CancelledAndGated(t *testing.T) {
	provider := &stubProvider{content: "value"}
	settings := testSettings()
	ext, _ := newTestExtension(t, settings, provider)
	require.NoError(t, ext.Activate(context.Background()))
	openDocument(ext, "file:///a.js", "javascript", "let total")
	openDocument(ext, "file:///a.rb", "ruby", "total")
	pos := models.Position{Column: 9}
	invoked := presentation.CompletionTrigger{Kind: presentation.TriggerInvoked}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Empty(t, ext.Completion(ctx, "file:///a.js", pos, invoked))
	assert.Empty(t, ext.Completion(context.Background(), "file:///a.js", pos, presentation.CompletionTrigger{Kind: presentation.TriggerCharacter}))
	assert.Empty(t, ext.Completion(context.Background(), "file:///a.rb", models.Position{Column: 5}, invoked))

	disabled := settings.Clone()
	disabled.EnableCodeCompletion = false
	ext.Reload(disabled)
	assert.Empty(t, ext.Completion(context.Background(), "file:///a.js", pos, invoked))

	assert.Zero(t, provider.Calls())
}

func TestCompletion_TransportErrorIsSilent(t *testing.T) {
	provider := &stubProvider{err: errors.New("boom")}
	ext, host := newTestExtension(t, testSettings(), provider)
	require.NoError(t, ext.Activate(context.Background()))
	openDocument(ext, "file:///a.js", "javascript", "let total")

	items := ext.Completion(context.Background(), "file:///a.js", models.Position{Column: 9}, presentation.CompletionTrigger{Kind: presentation.TriggerInvoked})
	assert.Empty(t, items)
	assert.Zero(t, host.messages())
}

func TestCompletion_CacheServesRepeatedPrompt(t *testing.T) {
	provider := &stubProvider{content: "cached"}
	settings := testSettings()
	settings.CompletionCacheTTL = 60
	ext, _ := newTestExtension(t, settings, provider)
	require.NoError(t, ext.Activate(context.Background()))
	openDocument(ext, "file:///a.js", "javascript", "let total")

	for i := 0; i < 3; i++ {
		items := ext.Completion(context.Background(), "file:///a.js", models.Position{Column: 9}, presentation.CompletionTrigger{Kind: presentation.TriggerInvoked})
		require.Len(t, items, 1)
	}
	assert.Equal(t, 1, provider.Calls())
}

func TestCodeLenses(t *testing.T) {
	ext, _ := newTestExtension(t, testSettings(), &stubProvider{})
	require.NoError(t, ext.Activate(context.Background()))

	openDocument(ext, "file:///none.js", "javascript", "const f = () => 1;\n")
	openDocument(ext, "file:///two.js", "javascript", "async function load() {}\nclass Cache {}\n")

	assert.Len(t, ext.CodeLenses(context.Background(), "file:///none.js"), 1)

	lenses := ext.CodeLenses(context.Background(), "file:///two.js")
	require.Len(t, lenses, 3)
	assert.Equal(t, models.CommandAnalyzeCode, lenses[0].Command)
	assert.Equal(t, models.Position{}, lenses[0].Range.Start)
	assert.Equal(t, "Optimize load", lenses[1].Title)
	assert.Equal(t, "Optimize Cache", lenses[2].Title)

	disabled := ext.Settings().Clone()
	disabled.EnableCodeLens = false
	ext.Reload(disabled)
	assert.Empty(t, ext.CodeLenses(context.Background(), "file:///two.js"))
}

func TestInsertTemplate(t *testing.T) {
	ext, host := newTestExtension(t, testSettings(), &stubProvider{})
	openDocument(ext, "file:///a.js", "javascript", "compute\n")
	openDocument(ext, "file:///a.txt", "plaintext", "")

	_, err := ext.ExecuteCommand(context.Background(), models.CommandInsertTemplate, []any{models.CommandArgs{
		URI: "file:///a.js", Position: models.Position{Column: 3},
	}})
	require.NoError(t, err)
	require.Len(t, host.inserts, 1)
	assert.Contains(t, host.inserts[0], "function compute() {")

	_, err = ext.ExecuteCommand(context.Background(), models.CommandInsertTemplate, []any{models.CommandArgs{URI: "file:///a.txt"}})
	assert.ErrorIs(t, err, ErrNoTemplate)
	assert.Len(t, host.inserts, 1)
}

func TestShowDocumentation(t *testing.T) {
	ext, host := newTestExtension(t, testSettings(), &stubProvider{})

	_, err := ext.ExecuteCommand(context.Background(), models.CommandShowDocumentation, nil)
	require.NoError(t, err)
	require.Len(t, host.panels, 1)
	assert.Contains(t, host.panels[0].HTML, "weave.apiKey")
}

func TestSetAPIKey_PersistsAndActivates(t *testing.T) {
	host := &fakeHost{}
	var saved string
	ext, err := New(Deps{
		Store: config.NewStore(config.Defaults()),
		Host:  host,
		ProviderFactory: func(*config.Settings, tokencontracts.ITokenManagement) (contracts.IAssistantProvider, error) {
			return &stubProvider{}, nil
		},
		SaveAPIKey: func(key string) (string, error) {
			saved = key
			return "/tmp/weave-config.yaml", nil
		},
	})
	require.NoError(t, err)
	defer ext.Deactivate()

	_, err = ext.ExecuteCommand(context.Background(), models.CommandSetAPIKey, []any{map[string]any{"apiKey": "  sk-new  "}})
	require.NoError(t, err)
	assert.Equal(t, "sk-new", saved)
	assert.Equal(t, "sk-new", ext.Settings().APIKey)
	assert.True(t, ext.Active())

	_, err = ext.ExecuteCommand(context.Background(), models.CommandSetAPIKey, nil)
	assert.ErrorIs(t, err, ErrEmptyAPIKey)
}

func TestUnknownCommand(t *testing.T) {
	ext, host := newTestExtension(t, testSettings(), &stubProvider{})

	_, err := ext.ExecuteCommand(context.Background(), "weave.nope", nil)
	assert.ErrorIs(t, err, ErrUnknownCommand)
	assert.Len(t, host.errors, 1)
}

func TestAssistant_PanicsBeforeActivation(t *testing.T) {
	var assistant *Assistant
	assert.Panics(t, func() {
		_, _ = assistant.Run(context.Background(), models.OperationAnalyze, models.CodeContext{}, config.Defaults())
	})
}

func TestDeactivate_StopsReacting(t *testing.T) {
	ext, _ := newTestExtension(t, testSettings(), &stubProvider{})
	require.NoError(t, ext.Activate(context.Background()))

	ext.Deactivate()
	assert.False(t, ext.Active())

	ext.Reload(testSettings())
	assert.False(t, ext.Active())
}

func TestDecodeCommandArgs(t *testing.T) {
	args, err := DecodeCommandArgs([]any{map[string]any{
		"uri":       "file:///a.go",
		"selection": map[string]any{"start": map[string]any{"line": 2.0, "column": 1.0}, "end": map[string]any{"line": 4.0, "column": 0.0}},
	}})
	require.NoError(t, err)
	assert.Equal(t, "file:///a.go", args.URI)
	assert.Equal(t, models.Position{Line: 2, Column: 1}, args.Selection.Start)
	assert.Equal(t, models.Position{Line: 4}, args.Selection.End)

	empty, err := DecodeCommandArgs(nil)
	require.NoError(t, err)
	assert.Empty(t, empty.URI)
}

type recordingProvider struct {
	mu       sync.Mutex
	content  string
	requests []*contracts.Request
	settings []*config.Settings
}

func (p *recordingProvider) Send(_ context.Context, request *contracts.Request, settings *config.Settings) (*models.OperationResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, request)
	p.settings = append(p.settings, settings)
	return &models.OperationResult{Kind: request.Operation.ResultKind(), Content: p.content}, nil
}

func (p *recordingProvider) recorded() ([]*contracts.Request, []*config.Settings) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*contracts.Request{}, p.requests...), append([]*config.Settings{}, p.settings...)
}

func TestAnalyze_NonASCIISelectionIsCapturedVerbatim(t *testing.T) {
	provider := &recordingProvider{content: "fine"}
	ext, host := newTestExtension(t, testSettings(), provider)
	require.NoError(t, ext.Activate(context.Background()))
	openDocument(ext, "file:///a.js", "javascript", "const naïve = '😀';\nnext();")

	_, err := ext.ExecuteCommand(context.Background(), models.CommandAnalyzeCode, []any{models.CommandArgs{
		URI:       "file:///a.js",
		Selection: models.Range{Start: models.Position{Column: 6}, End: models.Position{Column: 18}},
	}})
	require.NoError(t, err)
	require.Len(t, host.panels, 1)

	requests, _ := provider.recorded()
	require.Len(t, requests, 1)
	assert.Equal(t, "naïve = '😀'", requests[0].CodeContext.Code)
	assert.Contains(t, requests[0].UserPrompt, "naïve = '😀'")
}

func TestCompletion_NonASCIIWordUsesUTF16Column(t *testing.T) {
	provider := &recordingProvider{content: " * 2;"}
	ext, _ := newTestExtension(t, testSettings(), provider)
	require.NoError(t, ext.Activate(context.Background()))
	openDocument(ext, "file:///a.js", "javascript", "let größe = 1;\nlet éé")
	invoked := presentation.CompletionTrigger{Kind: presentation.TriggerInvoked}

	items := ext.Completion(context.Background(), "file:///a.js", models.Position{Line: 0, Column: 9}, invoked)
	require.Len(t, items, 1)

	requests, _ := provider.recorded()
	require.Len(t, requests, 1)
	assert.Contains(t, requests[0].UserPrompt, "let größe\n```")
	assert.NotContains(t, requests[0].UserPrompt, "= 1;")

	assert.Empty(t, ext.Completion(context.Background(), "file:///a.js", models.Position{Line: 1, Column: 6}, invoked))
	requests, _ = provider.recorded()
	assert.Len(t, requests, 1, "two-letter word stays below the gate")
}

func TestCodeLenses_PositionsUseUTF16Columns(t *testing.T) {
	ext, _ := newTestExtension(t, testSettings(), &stubProvider{})
	require.NoError(t, ext.Activate(context.Background()))
	openDocument(ext, "file:///a.js", "javascript", "/* 😀 é */ function brew() {}\n")

	lenses := ext.CodeLenses(context.Background(), "file:///a.js")
	require.Len(t, lenses, 2)
	assert.Equal(t, "Optimize brew", lenses[1].Title)
	assert.Equal(t, models.Position{Line: 0, Column: 11}, lenses[1].Range.Start)
}

func TestCodeLenses_OfferedWhileInert(t *testing.T) {
	provider := &stubProvider{content: "unused"}
	ext, _ := newTestExtension(t, config.Defaults(), provider)
	require.Error(t, ext.Activate(context.Background()))
	require.False(t, ext.Active())
	openDocument(ext, "file:///a.js", "javascript", "function a() {}\n")

	lenses := ext.CodeLenses(context.Background(), "file:///a.js")
	require.NotEmpty(t, lenses)
	assert.Equal(t, models.CommandAnalyzeCode, lenses[0].Command)

	_, err := ext.ExecuteCommand(context.Background(), lenses[0].Command, []any{lenses[0].Arguments[0]})
	assert.ErrorIs(t, err, ErrNotActive)
	assert.Zero(t, provider.Calls())
}

func TestCompletion_GatesAndSendsWithOneSnapshot(t *testing.T) {
	provider := &recordingProvider{content: "value"}
	settings := testSettings()
	ext, _ := newTestExtension(t, settings, provider)
	require.NoError(t, ext.Activate(context.Background()))
	openDocument(ext, "file:///a.js", "javascript", "let total")

	disabled := settings.Clone()
	disabled.EnableCodeCompletion = false

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			if i%2 == 0 {
				ext.Reload(disabled)
			} else {
				ext.Reload(settings)
			}
		}
	}()
	go func() {
		defer wg.Done()
		invoked := presentation.CompletionTrigger{Kind: presentation.TriggerInvoked}
		for i := 0; i < 200; i++ {
			ext.Completion(context.Background(), "file:///a.js", models.Position{Column: 9}, invoked)
		}
	}()
	wg.Wait()

	_, sent := provider.recorded()
	for _, s := range sent {
		assert.True(t, s.EnableCodeCompletion, "request sent with settings that gate completion off")
	}
}

func TestSetAPIKey_SurvivesLaterConfiguration(t *testing.T) {
	provider := &stubProvider{content: "ok"}
	ext, _ := newTestExtension(t, config.Defaults(), provider)
	require.Error(t, ext.Activate(context.Background()))

	_, err := ext.ExecuteCommand(context.Background(), models.CommandSetAPIKey, []any{models.CommandArgs{APIKey: "sk-session"}})
	require.NoError(t, err)

	require.NoError(t, ext.Configure(map[string]any{"weave": map[string]any{"temperature": 0.5}}))
	assert.Equal(t, "sk-session", ext.Settings().APIKey)
	assert.InDelta(t, 0.5, ext.Settings().Temperature, 1e-9)
	assert.True(t, ext.Active())

	ext.Reload(config.Defaults())
	assert.Equal(t, "sk-session", ext.Settings().APIKey, "file reload keeps the session key")
	assert.InDelta(t, 0.5, ext.Settings().Temperature, 1e-9, "file reload keeps editor settings")
	assert.True(t, ext.Active())

	openDocument(ext, "file:///a.js", "javascript", "function a() {}")
	_, err = ext.ExecuteCommand(context.Background(), models.CommandAnalyzeCode, []any{models.CommandArgs{
		URI:       "file:///a.js",
		Selection: models.Range{End: models.Position{Column: 15}},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, provider.Calls())
}
