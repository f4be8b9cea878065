package lsp

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"
	"go.uber.org/zap"

	"github.com/sketchlint/sketchlint/internal/analyzer"
	"github.com/sketchlint/sketchlint/internal/rules"
	"github.com/sketchlint/sketchlint/internal/source"
)

const setBoardCommand = "sketchlint.setBoard"

// Handler adapts the analysis session to the language server protocol:
// full-sync document tracking, debounced re-analysis on change, and
// versioned publishDiagnostics back to the editor.
type Handler struct {
	session  *analyzer.Session
	log      *zap.SugaredLogger
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
}

func NewHandler(session *analyzer.Session, log *zap.SugaredLogger, debounce time.Duration) *Handler {
	return &Handler{
		session:  session,
		log:      log,
		debounce: debounce,
		pending:  make(map[string]*time.Timer),
	}
}

// RunStdio serves the protocol over stdin/stdout until the client
// disconnects.
func (h *Handler) RunStdio(name, version string) error {
	ph := h.protocolHandler(name, version)
	srv := glspserver.NewServer(&ph, name, false)
	return srv.RunStdio()
}

func (h *Handler) protocolHandler(name, version string) protocol.Handler {
	initialize := func(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
		h.log.Infow("client initializing", "client", params.ClientInfo)
		return protocol.InitializeResult{
			Capabilities: protocol.ServerCapabilities{
				TextDocumentSync: &protocol.TextDocumentSyncOptions{
					OpenClose: boolPtr(true),
					Change:    textDocSyncPtr(protocol.TextDocumentSyncKindFull),
				},
				ExecuteCommandProvider: &protocol.ExecuteCommandOptions{
					Commands: []string{setBoardCommand},
				},
			},
			ServerInfo: &protocol.InitializeResultServerInfo{
				Name:    name,
				Version: stringPtr(version),
			},
		}, nil
	}

	return protocol.Handler{
		Initialize:  initialize,
		Initialized: func(*glsp.Context, *protocol.InitializedParams) error { return nil },
		Shutdown: func(*glsp.Context) error {
			h.log.Infow("client shutting down")
			return nil
		},
		TextDocumentDidOpen:     h.didOpen,
		TextDocumentDidChange:   h.didChange,
		TextDocumentDidClose:    h.didClose,
		WorkspaceExecuteCommand: h.executeCommand,
	}
}

func (h *Handler) didOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	snap := source.Snapshot{
		URI:     string(params.TextDocument.URI),
		Version: int(params.TextDocument.Version),
		Text:    params.TextDocument.Text,
	}
	// First pass runs immediately; debounce is for typing, not opening.
	h.analyzeAndPublish(ctx, snap)
	return nil
}

func (h *Handler) didChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := string(params.TextDocument.URI)
	text, ok := wholeText(params.ContentChanges)
	if !ok {
		h.log.Debugw("no full-sync change payload", "uri", uri)
		return nil
	}
	snap := source.Snapshot{
		URI:     uri,
		Version: int(params.TextDocument.Version),
		Text:    text,
	}

	h.mu.Lock()
	if t, exists := h.pending[uri]; exists {
		t.Stop()
	}
	h.pending[uri] = time.AfterFunc(h.debounce, func() {
		h.analyzeAndPublish(ctx, snap)
	})
	h.mu.Unlock()
	return nil
}

func (h *Handler) didClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := string(params.TextDocument.URI)
	h.mu.Lock()
	if t, exists := h.pending[uri]; exists {
		t.Stop()
		delete(h.pending, uri)
	}
	h.mu.Unlock()

	h.session.Close(uri)
	// Clear stale squiggles in the editor.
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         protocol.DocumentUri(uri),
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (h *Handler) executeCommand(ctx *glsp.Context, params *protocol.ExecuteCommandParams) (any, error) {
	if params.Command != setBoardCommand {
		return nil, errors.Newf("unknown command %q", params.Command)
	}
	boardID := ""
	if len(params.Arguments) > 0 {
		s, ok := params.Arguments[0].(string)
		if !ok {
			return nil, errors.Newf("%s: board id must be a string", setBoardCommand)
		}
		boardID = s
	}

	results, err := h.session.SetBoard(context.Background(), boardID)
	if err != nil {
		return nil, err
	}
	h.log.Infow("board switched", "board", boardID, "documents", len(results))
	for _, r := range results {
		h.publish(ctx, r)
	}
	return nil, nil
}

// analyzeAndPublish runs one pass and pushes the diagnostics. A panic
// anywhere below is logged and dropped; the editor keeps its previous
// diagnostics rather than losing the server.
func (h *Handler) analyzeAndPublish(ctx *glsp.Context, snap source.Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Errorw("panic during analysis", "uri", snap.URI, "panic", r)
		}
	}()

	result, err := h.session.Change(context.Background(), snap)
	if err != nil {
		h.log.Errorw("analysis failed", "uri", snap.URI, "error", err)
		return
	}
	h.publish(ctx, result)
}

func (h *Handler) publish(ctx *glsp.Context, result *analyzer.Result) {
	version := protocol.UInteger(result.Version)
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         protocol.DocumentUri(result.URI),
		Version:     &version,
		Diagnostics: toProtocolDiagnostics(result.Diagnostics),
	})
}

func toProtocolDiagnostics(ds []rules.Diagnostic) []protocol.Diagnostic {
	out := make([]protocol.Diagnostic, 0, len(ds))
	for _, d := range ds {
		severity := protocol.DiagnosticSeverity(d.Severity)
		src := d.Source
		code := protocol.IntegerOrString{Value: d.Code}
		out = append(out, protocol.Diagnostic{
			Range: protocol.Range{
				Start: protocol.Position{
					Line:      protocol.UInteger(d.Range.Start.Line),
					Character: protocol.UInteger(d.Range.Start.Character),
				},
				End: protocol.Position{
					Line:      protocol.UInteger(d.Range.End.Line),
					Character: protocol.UInteger(d.Range.End.Character),
				},
			},
			Severity: &severity,
			Code:     &code,
			Source:   &src,
			Message:  d.Message,
		})
	}
	return out
}

func wholeText(changes []interface{}) (string, bool) {
	for _, change := range changes {
		if whole, ok := change.(protocol.TextDocumentContentChangeEventWhole); ok {
			return whole.Text, true
		}
	}
	return "", false
}

func boolPtr(b bool) *bool {
	return &b
}

func stringPtr(s string) *string {
	return &s
}

func textDocSyncPtr(kind protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind {
	return &kind
}
