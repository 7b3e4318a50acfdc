package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/ivoronin/dirdiff/internal/compare"
	"github.com/ivoronin/dirdiff/internal/types"
	"github.com/mattn/go-runewidth"
)

const (
	gutter      = " │ "
	placeholder = "·"
	ellipsis    = "…"
	minColumn   = 16
)

// Row markers between the two columns.
const (
	markSame     = "="
	markDiffer   = "≠"
	markLeftOnly = "<"
	markRight    = ">"
)

var (
	faintStyle    = lipgloss.NewStyle().Faint(true)
	mismatchStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	headerStyle   = lipgloss.NewStyle().Bold(true)
)

type textWriter struct {
	w    io.Writer
	opts Options
	err  error
}

func (t *textWriter) printf(format string, args ...any) {
	if t.err == nil {
		_, t.err = fmt.Fprintf(t.w, format, args...)
	}
}

func (t *textWriter) style(s lipgloss.Style, text string) string {
	if !t.opts.Color {
		return text
	}
	return s.Render(text)
}

// Text writes res as a listing (one root) or as side-by-side rows (two roots).
func Text(w io.Writer, res *compare.Result, opts Options) error {
	t := &textWriter{w: w, opts: opts}

	if res.TwoSided() {
		t.printf("%s\n", t.style(headerStyle, fmt.Sprintf("%s %s %s", res.LeftRoot, gutter, res.RightRoot)))
	} else {
		t.printf("%s\n", t.style(headerStyle, res.LeftRoot))
	}
	t.printf("mode: %s, show: %s", res.Mode, res.Show)
	if res.GroupByPath {
		t.printf(", grouped by path")
	}
	t.printf("\n\n")

	switch {
	case res.Empty():
		t.printf("No files to display\n")
	case res.TwoSided():
		t.rows(res.Left, res.Right)
	default:
		t.single(res.Single)
	}

	t.printf("\n%s files compared", humanize.Comma(int64(res.Files)))
	if res.Skipped > 0 {
		t.printf(", %s skipped", humanize.Comma(int64(res.Skipped)))
	}
	t.printf("\n")
	return t.err
}

func (t *textWriter) single(list types.EntryList) {
	idWidth := len(groupLabel(maxID(list)))
	for _, e := range list {
		t.printf("%*s  %9s  %s\n", idWidth, groupLabel(e.ID), humanize.IBytes(uint64(e.Size)), escapePath(e.RelPath()))
	}
}

func (t *textWriter) rows(left, right types.EntryList) {
	width := 0
	for _, e := range left {
		width = max(width, runewidth.StringWidth(cell(e)))
	}
	if t.opts.Width > 0 {
		// Two columns, the marker and the gutter must fit
		avail := (t.opts.Width - runewidth.StringWidth(gutter) - 2) / 2
		width = min(width, max(avail, minColumn))
	}

	for i := range left {
		l, r := left[i], right[i]
		mark := marker(l, r)

		lt := fit(cell(l), width)
		rt := cell(r)
		if t.opts.Width > 0 {
			rt = runewidth.Truncate(rt, width, ellipsis)
		}

		switch {
		case l.Fake:
			lt = t.style(faintStyle, lt)
		case mark == markDiffer:
			lt = t.style(mismatchStyle, lt)
		}
		switch {
		case r.Fake:
			rt = t.style(faintStyle, rt)
		case mark == markDiffer:
			rt = t.style(mismatchStyle, rt)
		}

		t.printf("%s %s%s%s\n", lt, mark, gutter, rt)
	}
}

// fit truncates or pads s to exactly width display columns.
func fit(s string, width int) string {
	s = runewidth.Truncate(s, width, ellipsis)
	return runewidth.FillRight(s, width)
}

func cell(e *types.Entry) string {
	if e.Fake {
		return placeholder
	}
	return fmt.Sprintf("%s (%s)", escapePath(e.RelPath()), humanize.IBytes(uint64(e.Size)))
}

func marker(l, r *types.Entry) string {
	switch {
	case l.Fake:
		return markRight
	case r.Fake:
		return markLeftOnly
	case l.ID != types.NoID && l.ID == r.ID:
		return markSame
	default:
		return markDiffer
	}
}

func groupLabel(id int) string {
	if id == types.NoID {
		return "-"
	}
	return fmt.Sprintf("#%d", id)
}

func maxID(list types.EntryList) int {
	m := types.NoID
	for _, e := range list {
		m = max(m, e.ID)
	}
	return m
}

// escapePath escapes special characters in paths for safe terminal output.
func escapePath(path string) string {
	r := strings.NewReplacer(
		"\t", "\\t",
		"\n", "\\n",
		"\r", "\\r",
	)
	return r.Replace(path)
}
