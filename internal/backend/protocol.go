package backend

import "encoding/json"

// The structs in this file mirror the subset of the LSP wire protocol
// this server actually consumes (textDocument/didOpen, didChange,
// didClose, initialize, workspace/didChangeConfiguration). They are
// plain local types decoded straight from JSON-RPC params rather than
// sourcegraph/go-lsp's request/response wrappers, since this server's
// wire surface is a small, fixed subset (spec.md §6) and go-lsp is used
// for the one thing the pack actually grounds it on: diagnostic types
// (see diagnostics.go).

type initializeParams struct {
	ProcessID *int            `json:"processId,omitempty"`
	RootURI   string          `json:"rootUri,omitempty"`
	InitOpts  json.RawMessage `json:"initializationOptions,omitempty"`
}

type serverCapabilities struct {
	TextDocumentSync textDocumentSyncOptions `json:"textDocumentSync"`
}

type textDocumentSyncOptions struct {
	OpenClose bool `json:"openClose"`
	Change    int  `json:"change"`
}

const textDocumentSyncKindFull = 1

type initializeResult struct {
	Capabilities serverCapabilities `json:"capabilities"`
}

type textDocumentIdentifier struct {
	URI string `json:"uri"`
}

type textDocumentItem struct {
	URI        string `json:"uri"`
	LanguageID string `json:"languageId"`
	Version    int    `json:"version"`
	Text       string `json:"text"`
}

type didOpenTextDocumentParams struct {
	TextDocument textDocumentItem `json:"textDocument"`
}

type contentChangeEvent struct {
	Text string `json:"text"`
}

type didChangeTextDocumentParams struct {
	TextDocument   textDocumentIdentifier `json:"textDocument"`
	ContentChanges []contentChangeEvent   `json:"contentChanges"`
}

type didCloseTextDocumentParams struct {
	TextDocument textDocumentIdentifier `json:"textDocument"`
}

type didChangeConfigurationParams struct {
	Settings json.RawMessage `json:"settings"`
}

// configurationItem/configurationParams model workspace/configuration,
// the request this server sends to the client right after
// `initialized` to seed its settings (spec.md §6).
type configurationItem struct {
	Section string `json:"section"`
}

type configurationParams struct {
	Items []configurationItem `json:"items"`
}
