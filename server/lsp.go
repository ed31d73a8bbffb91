// Package server implements the Yaprak language server.
package server

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/yaprak-lang/yaprak/compiler"
	"github.com/yaprak-lang/yaprak/vm"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "yaprak-lsp"

var log = commonlog.GetLogger("yaprak.server")

var errStopped = errors.New("server: worker stopped")

// LspServer publishes compiler diagnostics and answers completion and
// hover requests for .yap documents.
type LspServer struct {
	worker      *Worker
	searchPaths []string

	mu   sync.Mutex
	docs map[string]string // by URI

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a language server. searchPaths are passed to the compiler
// for `yükle` lookups.
func NewLSP(reg *vm.Registry, searchPaths []string) *LspServer {
	s := &LspServer{
		worker:      NewWorker(reg),
		searchPaths: searchPaths,
		docs:        make(map[string]string),
		version:     "0.1.0",
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

// Run serves on stdio until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- Lifecycle ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Infof("%s initializing", lspName)

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: []string{":"},
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
	s.worker.Stop()
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Open documents ---

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

	// Full sync: the last event carries the whole document.
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

	// Drop stale markers.
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

// --- Completion and hover ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	prefix := extractPrefix(text, params.Position)
	if prefix == "" {
		return nil, nil
	}

	result, err := s.worker.Do(func(reg *vm.Registry) any {
		return complete(reg, text, prefix)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}

	result, err := s.worker.Do(func(reg *vm.Registry) any {
		return hover(reg, text, word)
	})
	if err != nil || result == nil {
		return nil, nil
	}
	return result.(*protocol.Hover), nil
}

// --- Analysis (called on the worker goroutine) ---

// symbol is a completion or hover candidate.
type symbol struct {
	label  string
	kind   protocol.CompletionItemKind
	detail string
}

// symbols lists keywords, native functions and the functions the document
// defines.
func symbols(reg *vm.Registry, text string) []symbol {
	var out []symbol
	for _, kw := range compiler.Keywords() {
		out = append(out, symbol{kw, protocol.CompletionItemKindKeyword, "anahtar sözcük"})
	}
	for _, name := range reg.BaseFunctions() {
		fn, _ := reg.Base(name)
		out = append(out, symbol{name, protocol.CompletionItemKindFunction, fn.Signature()})
	}
	for _, mod := range reg.Modules() {
		out = append(out, symbol{mod, protocol.CompletionItemKindModule, "modül"})
		c, _ := reg.Module(mod)
		for _, name := range c.Methods() {
			fn, _ := c.Method(name)
			out = append(out, symbol{fn.QualifiedName(), protocol.CompletionItemKindFunction, fn.Signature()})
		}
	}

	file := compiler.NewParser(text, "").ParseFile()
	for _, def := range documentFunctions(file.Body) {
		sig := fmt.Sprintf("fonk %s(%s)", def.Name, strings.Join(def.Params, ", "))
		out = append(out, symbol{def.Name, protocol.CompletionItemKindFunction, sig})
	}
	return out
}

// documentFunctions collects function definitions at any depth.
func documentFunctions(b *compiler.Block) []*compiler.FunctionDefinition {
	if b == nil {
		return nil
	}
	var defs []*compiler.FunctionDefinition
	for _, stmt := range b.Statements {
		switch n := stmt.(type) {
		case *compiler.FunctionDefinition:
			defs = append(defs, n)
			defs = append(defs, documentFunctions(n.Body)...)
		case *compiler.IfStatement:
			for _, br := range n.Branches {
				defs = append(defs, documentFunctions(br.Body)...)
			}
			defs = append(defs, documentFunctions(n.Else)...)
		case *compiler.WhileLoop:
			defs = append(defs, documentFunctions(n.Body)...)
		case *compiler.EndlessLoop:
			defs = append(defs, documentFunctions(n.Body)...)
		}
	}
	return defs
}

func complete(reg *vm.Registry, text, prefix string) []protocol.CompletionItem {
	seen := make(map[string]bool)
	var items []protocol.CompletionItem
	for _, sym := range symbols(reg, text) {
		if !strings.HasPrefix(sym.label, prefix) || seen[sym.label] {
			continue
		}
		seen[sym.label] = true
		sym := sym
		items = append(items, protocol.CompletionItem{
			Label:      sym.label,
			Kind:       &sym.kind,
			Detail:     &sym.detail,
			InsertText: &sym.label,
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Label < items[j].Label })

	// Keep the popup short.
	const maxItems = 100
	if len(items) > maxItems {
		items = items[:maxItems]
	}
	return items
}

func hover(reg *vm.Registry, text, word string) *protocol.Hover {
	for _, sym := range symbols(reg, text) {
		if sym.label != word {
			continue
		}
		var value string
		if sym.kind == protocol.CompletionItemKindKeyword || sym.kind == protocol.CompletionItemKindModule {
			value = fmt.Sprintf("**%s** (%s)", sym.label, sym.detail)
		} else {
			value = "```yaprak\n" + sym.detail + "\n```"
		}
		return &protocol.Hover{
			Contents: protocol.MarkupContent{
				Kind:  protocol.MarkupKindMarkdown,
				Value: value,
			},
		}
	}
	return nil
}

// --- Compiler feedback ---

// diagnose compiles text and reports the first error plus any semantic
// warnings.
func diagnose(reg *vm.Registry, text, path string, searchPaths []string) []protocol.Diagnostic {
	diagnostics := []protocol.Diagnostic{}

	p := compiler.NewParser(text, path)
	file := p.ParseFile()
	if errs := p.Errors(); len(errs) > 0 {
		return append(diagnostics, diagnostic(text, errs[0].Pos, errs[0].Message, protocol.DiagnosticSeverityError))
	}

	for _, w := range compiler.Analyze(file) {
		diagnostics = append(diagnostics, diagnostic(text, w.Pos, w.Message, protocol.DiagnosticSeverityWarning))
	}

	prog, err := compiler.Compile(file, compiler.Options{Registry: reg, SearchPaths: searchPaths})
	if err == nil {
		prog.Release()
		return diagnostics
	}

	var cerr *compiler.Error
	switch {
	case errors.As(err, &cerr) && (cerr.File == "" || cerr.File == path):
		diagnostics = append(diagnostics, diagnostic(text, cerr.Pos, cerr.Message, protocol.DiagnosticSeverityError))
	default:
		// Errors inside loaded modules are reported at the top of the file.
		diagnostics = append(diagnostics, diagnostic(text, compiler.Position{Line: 1, Column: 1}, err.Error(), protocol.DiagnosticSeverityError))
	}
	return diagnostics
}

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	path := uriPath(uri)
	result, err := s.worker.Do(func(reg *vm.Registry) any {
		return diagnose(reg, text, path, s.searchPaths)
	})
	if err != nil {
		log.Warningf("diagnostics for %s: %v", uri, err)
		return
	}

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: result.([]protocol.Diagnostic),
	})
}

// diagnostic builds a diagnostic spanning the identifier at pos, or one
// character when there is none.
func diagnostic(text string, pos compiler.Position, message string, severity protocol.DiagnosticSeverity) protocol.Diagnostic {
	line := max(pos.Line-1, 0)
	col := max(pos.Column-1, 0)

	width := 1
	if runes := lineRunes(text, line); col < len(runes) {
		end := col
		for end < len(runes) && isIdentRune(runes[end]) {
			end++
		}
		width = max(end-col, 1)
	}

	source := lspName
	return protocol.Diagnostic{
		Range: protocol.Range{
			Start: protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(col)},
			End:   protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(col + width)},
		},
		Severity: &severity,
		Source:   &source,
		Message:  message,
	}
}

// uriPath turns a file URI into a filesystem path. Other schemes have no
// path, so relative `yükle` lookups start from the working directory.
func uriPath(uri protocol.DocumentUri) string {
	u, err := url.Parse(string(uri))
	if err != nil || u.Scheme != "file" {
		return ""
	}
	return filepath.FromSlash(u.Path)
}

// --- Cursor helpers ---

// Positions count runes. Every Turkish letter is in the Basic Multilingual
// Plane, where runes and UTF-16 code units agree.

func lineRunes(text string, line int) []rune {
	lines := strings.Split(text, "\n")
	if line >= len(lines) {
		return nil
	}
	return []rune(strings.TrimSuffix(lines[line], "\r"))
}

func isIdentRune(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_'
}

// extractPrefix returns the fragment before the cursor for completion,
// including a module qualifier such as `gç::`.
func extractPrefix(text string, pos protocol.Position) string {
	line := lineRunes(text, int(pos.Line))
	col := min(int(pos.Character), len(line))

	// Back up over identifier runes and `::`.
	start := col
	for start > 0 && (isIdentRune(line[start-1]) || line[start-1] == ':') {
		start--
	}
	return string(line[start:col])
}

// extractWord returns the identifier under the cursor, with its module
// qualifier.
func extractWord(text string, pos protocol.Position) string {
	line := lineRunes(text, int(pos.Line))
	col := min(int(pos.Character), len(line))

	start := col
	for start > 0 && (isIdentRune(line[start-1]) || line[start-1] == ':') {
		start--
	}
	end := col
	for end < len(line) && isIdentRune(line[end]) {
		end++
	}
	return strings.TrimLeft(string(line[start:end]), ":")
}

func boolPtr(b bool) *bool {
	return &b
}
