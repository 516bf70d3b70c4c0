package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/weavecode/weave/config"
	"github.com/weavecode/weave/extension"
	"github.com/weavecode/weave/models"
	"github.com/weavecode/weave/presentation"
	tokencontracts "github.com/weavecode/weave/token_management/contracts"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
)

// Methods handled or sent by the server.
const (
	MethodInitialize             = "initialize"
	MethodInitialized            = "initialized"
	MethodShutdown               = "shutdown"
	MethodExit                   = "exit"
	MethodDidOpen                = "textDocument/didOpen"
	MethodDidChange              = "textDocument/didChange"
	MethodDidClose               = "textDocument/didClose"
	MethodCompletion             = "textDocument/completion"
	MethodCodeLens               = "textDocument/codeLens"
	MethodExecuteCommand         = "workspace/executeCommand"
	MethodDidChangeConfiguration = "workspace/didChangeConfiguration"
	MethodCancelRequest          = "$/cancelRequest"

	MethodShowMessage = "window/showMessage"
	MethodApplyEdit   = "workspace/applyEdit"
	MethodOpenPanel   = "weave/openPanel"
)

// Options configures a language server session.
type Options struct {
	// Layers carries the file/env settings; editor settings are layered on top. Defaults apply when nil.
	Layers          *config.Layers
	TokenManagement tokencontracts.ITokenManagement
	ProviderFactory extension.ProviderFactoryFunc
	SaveAPIKey      func(key string) (string, error)
	Version         string
}

// Server adapts JSON-RPC requests onto the extension.
type Server struct {
	conn    jsonrpc2.Conn
	ext     *extension.Extension
	version string

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	inflight map[jsonrpc2.ID]context.CancelFunc
	// pending holds initializationOptions until the client reports initialized
	pending any
	wg      sync.WaitGroup

	shutdown atomic.Bool
	exit     chan struct{}
	exitOnce sync.Once
}

// Serve runs one session over rwc until the client exits, the stream closes or ctx is cancelled.
func Serve(ctx context.Context, rwc io.ReadWriteCloser, opts Options) error {
	if opts.Layers == nil {
		opts.Layers = config.NewLayers(config.NewStore(nil))
	}

	conn := jsonrpc2.NewConn(jsonrpc2.NewStream(rwc))
	ext, err := extension.New(extension.Deps{
		Layers:          opts.Layers,
		Host:            NewClient(conn),
		TokenManagement: opts.TokenManagement,
		ProviderFactory: opts.ProviderFactory,
		SaveAPIKey:      opts.SaveAPIKey,
	})
	if err != nil {
		_ = conn.Close()
		return err
	}

	srvCtx, cancel := context.WithCancel(ctx)
	srv := &Server{
		conn:     conn,
		ext:      ext,
		version:  opts.Version,
		ctx:      srvCtx,
		cancel:   cancel,
		inflight: make(map[jsonrpc2.ID]context.CancelFunc),
		exit:     make(chan struct{}),
	}

	conn.Go(srvCtx, srv.handle)
	slog.Info("language server started")

	select {
	case <-ctx.Done():
	case <-conn.Done():
	case <-srv.exit:
	}

	srv.cancelAll()
	cancel()
	srv.wg.Wait()
	ext.Deactivate()
	_ = conn.Close()
	<-conn.Done()

	slog.Info("language server stopped")
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

func (s *Server) handle(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	method := req.Method()
	if s.shutdown.Load() && method != MethodExit {
		return reply(ctx, nil, jsonrpc2.NewError(jsonrpc2.InvalidRequest, "server is shutting down"))
	}

	switch method {
	case MethodInitialize:
		return s.initialize(ctx, reply, req)
	case MethodInitialized:
		s.activate(ctx)
		return reply(ctx, nil, nil)
	case MethodShutdown:
		s.shutdown.Store(true)
		s.cancelAll()
		return reply(ctx, nil, nil)
	case MethodExit:
		err := reply(ctx, nil, nil)
		s.exitOnce.Do(func() { close(s.exit) })
		return err
	case MethodDidOpen:
		var params protocol.DidOpenTextDocumentParams
		if err := decodeParams(req, &params); err != nil {
			return reply(ctx, nil, err)
		}
		s.ext.Documents().Open(&models.Document{
			URI:        string(params.TextDocument.URI),
			LanguageID: string(params.TextDocument.LanguageID),
			Version:    int(params.TextDocument.Version),
			Text:       params.TextDocument.Text,
		})
		return reply(ctx, nil, nil)
	case MethodDidChange:
		var params protocol.DidChangeTextDocumentParams
		if err := decodeParams(req, &params); err != nil {
			return reply(ctx, nil, err)
		}
		if n := len(params.ContentChanges); n > 0 {
			// full sync: the last change carries the whole text
			s.ext.Documents().Change(string(params.TextDocument.URI), int(params.TextDocument.Version), params.ContentChanges[n-1].Text)
		}
		return reply(ctx, nil, nil)
	case MethodDidClose:
		var params protocol.DidCloseTextDocumentParams
		if err := decodeParams(req, &params); err != nil {
			return reply(ctx, nil, err)
		}
		s.ext.Documents().Close(string(params.TextDocument.URI))
		return reply(ctx, nil, nil)
	case MethodCompletion:
		var params protocol.CompletionParams
		if err := decodeParams(req, &params); err != nil {
			return reply(ctx, nil, err)
		}
		s.async(reply, req, func(ctx context.Context) (any, error) {
			return s.completion(ctx, &params), nil
		})
		return nil
	case MethodCodeLens:
		var params protocol.CodeLensParams
		if err := decodeParams(req, &params); err != nil {
			return reply(ctx, nil, err)
		}
		s.async(reply, req, func(ctx context.Context) (any, error) {
			return s.codeLens(ctx, &params), nil
		})
		return nil
	case MethodExecuteCommand:
		var params protocol.ExecuteCommandParams
		if err := decodeParams(req, &params); err != nil {
			return reply(ctx, nil, err)
		}
		s.command(reply, &params)
		return nil
	case MethodDidChangeConfiguration:
		var params protocol.DidChangeConfigurationParams
		if err := decodeParams(req, &params); err != nil {
			return reply(ctx, nil, err)
		}
		s.reload(params.Settings)
		return reply(ctx, nil, nil)
	case MethodCancelRequest:
		var params protocol.CancelParams
		if err := decodeParams(req, &params); err != nil {
			return reply(ctx, nil, err)
		}
		s.cancelRequest(params.ID)
		return reply(ctx, nil, nil)
	default:
		if _, ok := req.(*jsonrpc2.Call); !ok {
			// unknown notifications are ignored
			return reply(ctx, nil, nil)
		}
		return jsonrpc2.MethodNotFoundHandler(ctx, reply, req)
	}
}

func (s *Server) initialize(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.InitializeParams
	if err := decodeParams(req, &params); err != nil {
		return reply(ctx, nil, err)
	}
	if params.InitializationOptions != nil {
		s.mu.Lock()
		s.pending = params.InitializationOptions
		s.mu.Unlock()
	}

	return reply(ctx, &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindFull,
			},
			CompletionProvider: &protocol.CompletionOptions{
				TriggerCharacters: []string{"."},
			},
			CodeLensProvider: &protocol.CodeLensOptions{},
			ExecuteCommandProvider: &protocol.ExecuteCommandOptions{
				Commands: models.Commands,
			},
		},
		ServerInfo: &protocol.ServerInfo{
			Name:    "weave",
			Version: s.version,
		},
	}, nil)
}

func (s *Server) activate(ctx context.Context) {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	if pending != nil {
		err := s.ext.Configure(pending)
		if err == nil {
			return
		}
		slog.Warn("ignoring initialization options", "error", err)
	}
	_ = s.ext.Activate(ctx)
}

func (s *Server) reload(raw any) {
	if err := s.ext.Configure(raw); err != nil {
		slog.Error("invalid settings from client", "error", err)
		return
	}
	slog.Info("configuration changed by client")
}

func (s *Server) completion(ctx context.Context, params *protocol.CompletionParams) *protocol.CompletionList {
	trigger := presentation.CompletionTrigger{Kind: presentation.TriggerInvoked}
	if params.Context != nil {
		trigger = presentation.CompletionTrigger{
			Kind:      presentation.TriggerKind(params.Context.TriggerKind),
			Character: params.Context.TriggerCharacter,
		}
	}

	items := s.ext.Completion(ctx, string(params.TextDocument.URI), fromProtocolPosition(params.Position), trigger)
	list := &protocol.CompletionList{Items: make([]protocol.CompletionItem, 0, len(items))}
	for _, item := range items {
		list.Items = append(list.Items, protocol.CompletionItem{
			Label:         item.Label,
			Kind:          protocol.CompletionItemKindText,
			Detail:        item.Detail,
			Documentation: item.Documentation,
			InsertText:    item.InsertText,
		})
	}
	return list
}

func (s *Server) codeLens(ctx context.Context, params *protocol.CodeLensParams) []protocol.CodeLens {
	lenses := s.ext.CodeLenses(ctx, string(params.TextDocument.URI))
	result := make([]protocol.CodeLens, 0, len(lenses))
	for _, lens := range lenses {
		arguments := make([]interface{}, 0, len(lens.Arguments))
		for _, arg := range lens.Arguments {
			arguments = append(arguments, arg)
		}
		result = append(result, protocol.CodeLens{
			Range: toProtocolRange(lens.Range),
			Command: &protocol.Command{
				Title:     lens.Title,
				Command:   lens.Command,
				Arguments: arguments,
			},
		})
	}
	return result
}

// command runs to completion on the server context; $/cancelRequest does not reach it.
func (s *Server) command(reply jsonrpc2.Replier, params *protocol.ExecuteCommandParams) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		result, err := s.ext.ExecuteCommand(s.ctx, params.Command, params.Arguments)
		if err != nil {
			// already shown to the user
			slog.Debug("command failed", "command", params.Command, "error", err)
		}
		if err := reply(s.ctx, result, nil); err != nil {
			slog.Error("failed to reply", "method", MethodExecuteCommand, "error", err)
		}
	}()
}

// async handles a request on its own goroutine with a context cancelled by $/cancelRequest.
func (s *Server) async(reply jsonrpc2.Replier, req jsonrpc2.Request, fn func(context.Context) (any, error)) {
	ctx, cancel := context.WithCancel(s.ctx)
	call, isCall := req.(*jsonrpc2.Call)
	if isCall {
		s.mu.Lock()
		s.inflight[call.ID()] = cancel
		s.mu.Unlock()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		if isCall {
			defer func() {
				s.mu.Lock()
				delete(s.inflight, call.ID())
				s.mu.Unlock()
			}()
		}

		result, err := fn(ctx)
		if err := reply(s.ctx, result, err); err != nil {
			slog.Error("failed to reply", "method", req.Method(), "error", err)
		}
	}()
}

func (s *Server) cancelRequest(raw interface{}) {
	var id jsonrpc2.ID
	switch v := raw.(type) {
	case float64:
		id = jsonrpc2.NewNumberID(int32(v))
	case string:
		id = jsonrpc2.NewStringID(v)
	default:
		return
	}

	s.mu.Lock()
	cancel, ok := s.inflight[id]
	s.mu.Unlock()
	if ok {
		slog.Debug("request cancelled", "id", raw)
		cancel()
	}
}

func (s *Server) cancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cancel := range s.inflight {
		cancel()
	}
}

func decodeParams(req jsonrpc2.Request, v any) error {
	params := req.Params()
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, v); err != nil {
		return jsonrpc2.NewError(jsonrpc2.InvalidParams, fmt.Sprintf("invalid %s params: %v", req.Method(), err))
	}
	return nil
}
