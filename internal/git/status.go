package git

import (
	"os"
	"strings"
)

// StatusKind is the normalised category of a porcelain status code.
type StatusKind string

// Status kinds reported to the UI.
const (
	StatusModified  StatusKind = "modified"
	StatusAdded     StatusKind = "added"
	StatusDeleted   StatusKind = "deleted"
	StatusRenamed   StatusKind = "renamed"
	StatusCopied    StatusKind = "copied"
	StatusUntracked StatusKind = "untracked"
	StatusUnknown   StatusKind = "unknown"
)

// KindForCode maps a two-character porcelain code to its StatusKind.
// Conflict codes (UU, AA, ...) and mixed codes not listed fall to unknown.
func KindForCode(code string) StatusKind {
	switch strings.TrimSpace(code) {
	case "M", " M", "MM":
		return StatusModified
	case "A", "AM":
		return StatusAdded
	case "D", " D":
		return StatusDeleted
	case "R":
		return StatusRenamed
	case "C":
		return StatusCopied
	case "??":
		return StatusUntracked
	default:
		return StatusUnknown
	}
}

// ParseStatus parses `git status --short --porcelain` output into a map
// keyed by absolute path. A later line for the same path replaces an
// earlier one.
func ParseStatus(workingDir, output string) map[string]StatusKind {
	status := make(map[string]StatusKind)
	for _, line := range splitLines(output) {
		if len(line) < 4 {
			continue
		}
		code := line[:2]
		rel := strings.TrimSpace(line[3:])
		status[joinPath(workingDir, rel)] = KindForCode(code)
	}
	return status
}

// joinPath appends rel to dir, adding a separator only when dir lacks one.
// Git always reports forward slashes, so that is the separator inserted.
func joinPath(dir, rel string) string {
	if strings.HasSuffix(dir, "/") || strings.HasSuffix(dir, string(os.PathSeparator)) {
		return dir + rel
	}
	return dir + "/" + rel
}
