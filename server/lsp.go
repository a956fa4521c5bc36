// Package server is a language server for block-text documents.
package server

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/scratchkit/blocks"
	"github.com/chazu/scratchkit/blocktext"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "scratchkit-lsp"

var log = commonlog.GetLogger("scratchkit.server")

// LspServer checks and completes block text against a catalog.
type LspServer struct {
	cat *blocks.Catalog

	mu   sync.Mutex
	docs map[string]string // URI → full document content

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a server over cat; nil means the built-in catalog.
func NewLSP(cat *blocks.Catalog) *LspServer {
	if cat == nil {
		cat = blocks.Default()
	}
	s := &LspServer{
		cat:     cat,
		docs:    make(map[string]string),
		version: "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion: s.textDocumentCompletion,
		TextDocumentHover:      s.textDocumentHover,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Info("block text LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: []string{" "},
	}

	capabilities.HoverProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	text := params.TextDocument.Text

	s.mu.Lock()
	s.docs[string(uri)] = text
	s.mu.Unlock()

	s.publishDiagnostics(ctx, uri, text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.mu.Lock()
			s.docs[string(uri)] = whole.Text
			s.mu.Unlock()

			s.publishDiagnostics(ctx, uri, whole.Text)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	// Clear diagnostics for the closed document
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (s *LspServer) document(uri protocol.DocumentUri) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.docs[string(uri)]
	return text, ok
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	start, prefix := linePrefix(text, params.Position)
	if prefix == "" {
		return nil, nil
	}
	return s.complete(params.Position, start, prefix), nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	return s.hover(lineAt(text, params.Position.Line)), nil
}

// --- Catalog-backed logic ---

// complete offers every selectable block whose text starts with prefix,
// rendered with its default arguments. The edit replaces the typed prefix.
func (s *LspServer) complete(pos protocol.Position, start int, prefix string) []protocol.CompletionItem {
	key := blocks.Normalize(prefix)
	em := &blocktext.Emitter{Options: blocktext.Options{Catalog: s.cat}}

	var items []protocol.CompletionItem
	for _, bt := range s.cat.Types() {
		if bt.Obsolete || bt.Key() == "" || !strings.HasPrefix(bt.Key(), key) {
			continue
		}
		label, err := em.EmitBlock(bt.New())
		if err != nil {
			label = bt.Text
		}
		kind := completionKind(bt.Shape)
		detail := fmt.Sprintf("%s %s", bt.Category, bt.Shape)
		items = append(items, protocol.CompletionItem{
			Label:  label,
			Kind:   &kind,
			Detail: &detail,
			TextEdit: protocol.TextEdit{
				Range: protocol.Range{
					Start: protocol.Position{Line: pos.Line, Character: protocol.UInteger(start)},
					End:   pos,
				},
				NewText: label,
			},
		})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Label < items[j].Label })
	return items
}

func completionKind(shape blocks.Shape) protocol.CompletionItemKind {
	switch shape {
	case blocks.ShapeReporter, blocks.ShapeBoolean:
		return protocol.CompletionItemKindFunction
	case blocks.ShapeHat:
		return protocol.CompletionItemKindEvent
	}
	return protocol.CompletionItemKindKeyword
}

// hover describes the block a line starts. C-block openers are closed
// with a synthetic "end" so they parse on their own.
func (s *LspServer) hover(line string) *protocol.Hover {
	line = strings.TrimSpace(line)
	if line == "" || line == "end" || line == "else" {
		return nil
	}
	opts := blocktext.Options{Catalog: s.cat}
	scripts, err := blocktext.Parse(line, opts)
	if err != nil {
		scripts, err = blocktext.Parse(line+"\nend", opts)
	}
	if err != nil || len(scripts) == 0 || len(scripts[0].Blocks) == 0 {
		return nil
	}
	bt := scripts[0].Blocks[0].Type
	if bt == nil {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%s**\n\n", bt.Text)
	fmt.Fprintf(&b, "- command: `%s`\n", bt.Command)
	fmt.Fprintf(&b, "- category: %s\n", bt.Category)
	fmt.Fprintf(&b, "- shape: %s\n", bt.Shape)
	if bt.Mouths > 0 {
		fmt.Fprintf(&b, "- mouths: %d\n", bt.Mouths)
	}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: b.String(),
		},
	}
}

// --- Diagnostics ---

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: s.diagnose(text),
	})
}

// diagnose parses text and reports the first error at its position. The
// parser stops at the first error, so there is at most one diagnostic.
func (s *LspServer) diagnose(text string) []protocol.Diagnostic {
	_, err := blocktext.Parse(text, blocktext.Options{Catalog: s.cat})
	if err == nil {
		return []protocol.Diagnostic{}
	}

	severity := protocol.DiagnosticSeverityError
	source := lspName
	d := protocol.Diagnostic{Severity: &severity, Source: &source, Message: err.Error()}

	var perr *blocktext.Error
	if errors.As(err, &perr) {
		line := protocol.UInteger(max(perr.Line-1, 0))
		col := utf16Column(lineAt(text, line), max(perr.Column-1, 0))
		d.Range = protocol.Range{
			Start: protocol.Position{Line: line, Character: col},
			End:   protocol.Position{Line: line, Character: col + 1},
		}
		d.Message = perr.Msg
		if len(perr.Expected) > 0 {
			d.Message += " (expected " + strings.Join(perr.Expected, ", ") + ")"
		}
	}
	log.Debugf("diagnostic: %s", d.Message)
	return []protocol.Diagnostic{d}
}

// --- Text extraction helpers ---

func lineAt(text string, line protocol.UInteger) string {
	lines := strings.Split(text, "\n")
	if int(line) >= len(lines) {
		return ""
	}
	return strings.TrimSuffix(lines[line], "\r")
}

// linePrefix returns the text between the line's first non-blank character
// and the cursor, and where it starts in UTF-16 units. Block texts span
// several words, so the whole run before the cursor is the prefix.
func linePrefix(text string, pos protocol.Position) (int, string) {
	line := lineAt(text, pos.Line)
	end := byteOffset(line, int(pos.Character))
	head := line[:end]
	trimmed := strings.TrimLeft(head, " \t")
	start := len(head) - len(trimmed)
	return int(utf16Column(line, utf8.RuneCountInString(line[:start]))), strings.TrimRight(trimmed, " \t")
}

// byteOffset converts a UTF-16 column to a byte offset in line.
func byteOffset(line string, col int) int {
	units := 0
	for i, r := range line {
		if units >= col {
			return i
		}
		units++
		if r >= 0x10000 {
			units++
		}
	}
	return len(line)
}

// utf16Column converts a rune column to UTF-16 units.
func utf16Column(line string, runes int) protocol.UInteger {
	units := 0
	for _, r := range line {
		if runes == 0 {
			break
		}
		runes--
		units++
		if r >= 0x10000 {
			units++
		}
	}
	return protocol.UInteger(units + runes)
}

func boolPtr(b bool) *bool {
	return &b
}
