// Package lsp exposes a minimal "stack walk on hover" development aid
// over the Language Server Protocol, adapted from the teacher's
// server/lsp.go LspServer: the same docs-map-plus-glsp-handler shape,
// wrapping an interp.Thread (via the Processor Facade's WalkStack) in
// place of the teacher's VMWorker-wrapped Smalltalk VM. Hovering over a
// method name shows the live call depth and instruction pointer of any
// frame currently executing that method on the watched thread, rather
// than the teacher's class/selector documentation lookup.
package lsp

import (
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/classvm/interp"
)

const serverName = "classvm-lsp"

// Server bridges LSP editor hover requests to a running interpreter
// thread's call stack.
type Server struct {
	thread *interp.Thread

	mu   sync.Mutex
	docs map[string]string // URI -> full document content

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewServer creates an LSP server watching t's call stack. t may still
// be running on another goroutine; WalkStack is read-only and safe to
// call between the watched thread's own dispatch steps, but the caller
// is responsible for not invoking it concurrently with a live Run on t
// (the same single-writer-thread discipline interp.Thread assumes
// throughout).
func NewServer(t *interp.Thread) *Server {
	s := &Server{
		thread:  t,
		docs:    make(map[string]string),
		version: "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,
		TextDocumentHover:     s.textDocumentHover,
	}

	s.server = glspserver.NewServer(&s.handler, serverName, false)
	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *Server) Run() error {
	return s.server.RunStdio()
}

func (s *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	commonlog.NewInfoMessage(0, "classvm LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()
	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}
	capabilities.HoverProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    serverName,
			Version: &s.version,
		},
	}, nil
}

func (s *Server) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *Server) shutdown(ctx *glsp.Context) error {
	return nil
}

func (s *Server) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	s.mu.Lock()
	s.docs[string(params.TextDocument.URI)] = params.TextDocument.Text
	s.mu.Unlock()
	return nil
}

func (s *Server) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	uri := string(params.TextDocument.URI)
	for _, change := range params.ContentChanges {
		if full, ok := change.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.docs[uri] = full.Text
		}
	}
	return nil
}

func (s *Server) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	s.mu.Lock()
	delete(s.docs, string(params.TextDocument.URI))
	s.mu.Unlock()
	return nil
}

// textDocumentHover reports the deepest live frame whose method name
// matches the word under the cursor, walking the watched thread's stack
// via the Processor Facade (§4.6).
func (s *Server) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	s.mu.Lock()
	text, ok := s.docs[string(params.TextDocument.URI)]
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}

	word := extractWord(text, params.Position)
	if word == "" || s.thread == nil {
		return nil, nil
	}

	var found string
	s.thread.WalkStack(func(depth int, m *interp.Method, ip int) bool {
		if m == nil || m.Name != word {
			return true
		}
		class := "?"
		if m.Class != nil {
			class = m.Class.Name
		}
		found = fmt.Sprintf("%s.%s%s — frame depth %d, ip %d", class, m.Name, m.Spec, depth, ip)
		return false
	})
	if found == "" {
		return nil, nil
	}

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindPlainText,
			Value: found,
		},
	}, nil
}

// extractWord finds the identifier touching pos in text, the same
// scan-left-then-right-from-the-cursor rule the teacher's LSP hover/
// definition/references handlers all share.
func extractWord(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	start := col
	for start > 0 {
		ch := rune(line[start-1])
		if unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_' {
			start--
		} else {
			break
		}
	}
	end := col
	for end < len(line) {
		ch := rune(line[end])
		if unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_' {
			end++
		} else {
			break
		}
	}
	if start == end {
		return ""
	}
	return line[start:end]
}

func boolPtr(b bool) *bool { return &b }
