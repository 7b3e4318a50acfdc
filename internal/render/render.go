// Package render writes comparison results for people and for scripts.
package render

import (
	"fmt"
	"io"

	"github.com/ivoronin/dirdiff/internal/compare"
)

// Supported output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Options configures text output.
type Options struct {
	Color bool // Style placeholders and mismatches with terminal colors
	Width int  // Terminal width for side-by-side columns (0 = unlimited)
}

// Write renders res in the given format.
func Write(w io.Writer, res *compare.Result, format string, opts Options) error {
	switch format {
	case FormatJSON:
		return JSON(w, res)
	case FormatText, "":
		return Text(w, res, opts)
	default:
		return fmt.Errorf("unknown output format %q (use text or json)", format)
	}
}
