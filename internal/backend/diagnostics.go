package backend

import (
	"fmt"

	lsp "github.com/sourcegraph/go-lsp"

	"github.com/git-pkgs/version-lsp/internal/core"
)

// sourceName is the "source" field spec.md §7 requires on every
// diagnostic this server publishes.
const sourceName = "version-lsp"

// lspDiagnostic aliases the pack's grounded LSP diagnostic type
// (github.com/sourcegraph/go-lsp).
type lspDiagnostic = lsp.Diagnostic

// publishDiagnosticsParams is the wire shape of
// textDocument/publishDiagnostics, kept local (plain string URI) rather
// than lsp.PublishDiagnosticsParams since this server never round-trips
// a lsp.DocumentURI value anywhere else.
type publishDiagnosticsParams struct {
	URI         string         `json:"uri"`
	Diagnostics []lspDiagnostic `json:"diagnostics"`
}

// diagnosticFor maps one entry's CompareResult to a diagnostic per
// spec.md §7's severity table, or nil when the result carries no
// diagnostic (Latest, Newer).
func diagnosticFor(entry core.PackageEntry, result core.CompareResult) *lsp.Diagnostic {
	var severity lsp.DiagnosticSeverity
	var message string

	switch result.Status {
	case core.StatusOutdated:
		severity = lsp.Warning
		message = fmt.Sprintf("Latest version %s available (current: %s)", result.Latest, entry.EffectiveVersionSpec())
	case core.StatusNotFound:
		severity = lsp.Error
		message = fmt.Sprintf("Version %s does not exist", entry.EffectiveVersionSpec())
	case core.StatusInvalid:
		severity = lsp.Error
		message = fmt.Sprintf("Invalid version: %s", entry.EffectiveVersionSpec())
	default: // Latest, Newer
		return nil
	}

	return &lsp.Diagnostic{
		Range:    toLSPRange(entry.Range),
		Severity: severity,
		Source:   sourceName,
		Message:  message,
	}
}

func toLSPRange(r core.Range) lsp.Range {
	return lsp.Range{
		Start: lsp.Position{Line: r.Start.Line, Character: r.Start.Character},
		End:   lsp.Position{Line: r.End.Line, Character: r.End.Character},
	}
}
