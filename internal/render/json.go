package render

import (
	"encoding/json"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/ivoronin/dirdiff/internal/compare"
	"github.com/ivoronin/dirdiff/internal/types"
)

// JSONReport is the machine-readable form of a comparison.
type JSONReport struct {
	ID          string         `json:"id"` // Unique per report
	Mode        types.Mode     `json:"mode"`
	Show        compare.Show   `json:"show"`
	GroupByPath bool           `json:"group_by_path"`
	Roots       []string       `json:"roots"`
	Files       []JSONFileData `json:"files,omitempty"`
	Rows        []JSONRowData  `json:"rows,omitempty"`
	Stats       JSONStatsData  `json:"stats"`
}

// JSONFileData represents one file.
type JSONFileData struct {
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
	Group   int       `json:"group,omitempty"` // Equivalence group, omitted when ungrouped
}

// JSONRowData represents one aligned row. A nil side is a placeholder.
type JSONRowData struct {
	Left       *JSONFileData `json:"left"`
	Right      *JSONFileData `json:"right"`
	Equivalent bool          `json:"equivalent"`
}

// JSONStatsData holds run counters.
type JSONStatsData struct {
	Files   int `json:"files"`
	Skipped int `json:"skipped"`
}

// NewJSONReport converts a result into its JSON form.
func NewJSONReport(res *compare.Result) *JSONReport {
	report := &JSONReport{
		ID:          uuid.New().String(),
		Mode:        res.Mode,
		Show:        res.Show,
		GroupByPath: res.GroupByPath,
		Roots:       []string{res.LeftRoot},
		Stats:       JSONStatsData{Files: res.Files, Skipped: res.Skipped},
	}

	if !res.TwoSided() {
		report.Files = make([]JSONFileData, 0, len(res.Single))
		for _, e := range res.Single {
			report.Files = append(report.Files, *fileData(e))
		}
		return report
	}

	report.Roots = append(report.Roots, res.RightRoot)
	report.Rows = make([]JSONRowData, 0, len(res.Left))
	for i := range res.Left {
		l, r := res.Left[i], res.Right[i]
		report.Rows = append(report.Rows, JSONRowData{
			Left:       fileData(l),
			Right:      fileData(r),
			Equivalent: marker(l, r) == markSame,
		})
	}
	return report
}

func fileData(e *types.Entry) *JSONFileData {
	if e.Fake {
		return nil
	}
	d := &JSONFileData{Path: e.RelPath(), Size: e.Size, ModTime: e.ModTime}
	if e.ID != types.NoID {
		d.Group = e.ID
	}
	return d
}

// JSON writes res as an indented JSON document.
func JSON(w io.Writer, res *compare.Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(NewJSONReport(res))
}
