package resolver

import (
	"fmt"
	"strings"
)

// Direction selects which side of a row is made to match the other.
type Direction int

const (
	LeftToRight Direction = iota // Right side is changed to match the left
	RightToLeft                  // Left side is changed to match the right
)

func (d Direction) String() string {
	if d == RightToLeft {
		return "right-to-left"
	}
	return "left-to-right"
}

// ParseDirection parses a direction name produced by Direction.String.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "left-to-right":
		return LeftToRight, nil
	case "right-to-left":
		return RightToLeft, nil
	}
	return 0, fmt.Errorf("unknown direction %q (use left-to-right or right-to-left)", s)
}

// ActionType describes the action taken to resolve a row.
type ActionType int

const (
	ActionNone     ActionType = iota // Already equivalent
	ActionCopied                     // Source copied to a new destination file
	ActionReplaced                   // Destination content replaced
	ActionDeleted                    // Destination removed (no source file)
	ActionSkipped                    // Skipped due to error
)

// Result describes the outcome of resolving a single row.
type Result struct {
	Source string     // Path read from ("" when deleting)
	Target string     // Path written or removed
	Action ActionType // What was (or, in dry-run, would be) done
	DryRun bool       // Nothing was changed on disk
	Bytes  int64      // Bytes written
	Err    error      // Non-nil if skipped
}

// String formats the result for display.
func (r *Result) String() string {
	prefix := ""
	if r.DryRun {
		prefix = "Would have "
	}
	switch r.Action {
	case ActionNone:
		return fmt.Sprintf("Unchanged %s", escapePath(r.Target))
	case ActionCopied:
		return fmt.Sprintf("%s%s %s to %s", prefix, verb(prefix, "Copied", "copied"), escapePath(r.Source), escapePath(r.Target))
	case ActionReplaced:
		return fmt.Sprintf("%s%s %s with %s", prefix, verb(prefix, "Replaced", "replaced"), escapePath(r.Target), escapePath(r.Source))
	case ActionDeleted:
		return fmt.Sprintf("%s%s %s", prefix, verb(prefix, "Deleted", "deleted"), escapePath(r.Target))
	case ActionSkipped:
		return fmt.Sprintf("skipped %s: %v", escapePath(r.Target), r.Err)
	default:
		return fmt.Sprintf("Unknown action for %s", escapePath(r.Target))
	}
}

func verb(prefix, capitalized, lower string) string {
	if prefix != "" {
		return lower
	}
	return capitalized
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
