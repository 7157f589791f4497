package git

import "strings"

const currentBranchMarker = "* "

// ParseBranches parses `git branch --list` output, keeping git's order and
// dropping the current-branch marker.
func ParseBranches(output string) []string {
	branches := []string{}
	for _, line := range splitLines(output) {
		for strings.HasPrefix(line, currentBranchMarker) {
			line = line[len(currentBranchMarker):]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		branches = append(branches, line)
	}
	return branches
}
