package types

import (
	"runtime"

	"golang.org/x/text/cases"
)

// CaseInsensitivePaths reports whether paths on this platform compare
// case-insensitively. Default filesystems on Windows and macOS do.
var CaseInsensitivePaths = runtime.GOOS == "windows" || runtime.GOOS == "darwin"

// FoldPath returns the form of p used for path comparison on this platform.
func FoldPath(p string) string {
	if CaseInsensitivePaths {
		return cases.Fold().String(p)
	}
	return p
}

// PathsEqual compares two paths under the platform's comparison rules.
func PathsEqual(a, b string) bool {
	return FoldPath(a) == FoldPath(b)
}
