package report

import (
	"fmt"

	"github.com/grokify/forwardport/internal/forwardport"
)

// Formatter defines the interface for formatting analysis results.
type Formatter interface {
	// Format renders results, which are expected in ascending PR order.
	Format(results []forwardport.Result) (string, error)
}

// Formats lists the accepted output formats.
var Formats = []string{"text", "json", "markdown", "csv"}

// New returns the formatter for format. verbose adds per-release detail
// where the format supports it.
func New(format string, verbose bool) (Formatter, error) {
	switch format {
	case "", "text":
		return NewTextFormatter(), nil
	case "json":
		f := NewJSONFormatter()
		f.Verbose = verbose
		return f, nil
	case "markdown", "md":
		f := NewMarkdownFormatter()
		f.Verbose = verbose
		return f, nil
	case "csv":
		return NewCSVFormatter(), nil
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
}
