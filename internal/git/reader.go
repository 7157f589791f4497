package git

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Reader answers branch and status queries for a working directory. It
// holds no state beyond its Runner and is safe for concurrent use.
type Reader struct {
	runner Runner
}

// NewReader creates a Reader that runs git through runner.
func NewReader(runner Runner) *Reader {
	return &Reader{runner: runner}
}

// run executes one git command and returns its stdout as text.
func (r *Reader) run(ctx context.Context, workingDir string, args ...string) (string, error) {
	res, err := r.runner.Run(ctx, workingDir, args...)
	if err != nil {
		return "", &ProcessLaunchError{Err: err}
	}
	if res.ExitCode != 0 {
		return "", &CommandError{
			Args:     args,
			ExitCode: res.ExitCode,
			Stderr:   lossyString(res.Stderr),
		}
	}
	return lossyString(res.Stdout), nil
}

// CurrentBranch returns the checked-out branch name. It is empty on a
// detached HEAD.
func (r *Reader) CurrentBranch(ctx context.Context, workingDir string) (string, error) {
	out, err := r.run(ctx, workingDir, "branch", "--show-current")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Branches lists local branch names in git's order.
func (r *Reader) Branches(ctx context.Context, workingDir string) ([]string, error) {
	out, err := r.run(ctx, workingDir, "branch", "--list")
	if err != nil {
		return nil, err
	}
	return ParseBranches(out), nil
}

// SwitchBranch checks out branch and returns a confirmation message.
func (r *Reader) SwitchBranch(ctx context.Context, workingDir, branch string) (string, error) {
	if _, err := r.run(ctx, workingDir, "checkout", branch); err != nil {
		return "", err
	}
	return fmt.Sprintf("Switched to branch '%s'", branch), nil
}

// Status returns the working tree status keyed by absolute path.
func (r *Reader) Status(ctx context.Context, workingDir string) (map[string]StatusKind, error) {
	out, err := r.run(ctx, workingDir, "status", "--short", "--porcelain")
	if err != nil {
		return nil, err
	}
	return ParseStatus(workingDir, out), nil
}

// IsRepo reports whether workingDir is inside a work tree. Outside any
// repository git exits non-zero, which surfaces as a CommandError.
func (r *Reader) IsRepo(ctx context.Context, workingDir string) (bool, error) {
	out, err := r.run(ctx, workingDir, "rev-parse", "--is-inside-work-tree")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) == "true", nil
}

// Init runs git init in workingDir.
func (r *Reader) Init(ctx context.Context, workingDir string) (bool, error) {
	if _, err := r.run(ctx, workingDir, "init"); err != nil {
		return false, err
	}
	return true, nil
}

// lossyString decodes b as UTF-8, writing one U+FFFD for each ill-formed
// sequence: a lone bad byte, or a lead byte with as many of its
// continuation bytes as were valid before the sequence broke off.
func lossyString(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}

	var sb strings.Builder
	sb.Grow(len(b) + 8)
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r != utf8.RuneError || size > 1 {
			sb.Write(b[:size])
			b = b[size:]
			continue
		}
		sb.WriteRune(utf8.RuneError)
		b = b[invalidLen(b):]
	}
	return sb.String()
}

// invalidLen returns the length of the ill-formed sequence at the start of b.
func invalidLen(b []byte) int {
	lo, hi, need := byte(0x80), byte(0xBF), 0
	switch c := b[0]; {
	case c >= 0xC2 && c <= 0xDF:
		need = 1
	case c == 0xE0:
		lo, need = 0xA0, 2
	case c == 0xED:
		hi, need = 0x9F, 2
	case c >= 0xE1 && c <= 0xEF:
		need = 2
	case c == 0xF0:
		lo, need = 0x90, 3
	case c == 0xF4:
		hi, need = 0x8F, 3
	case c >= 0xF1 && c <= 0xF3:
		need = 3
	default:
		return 1
	}

	n := 1
	for n <= need && n < len(b) && b[n] >= lo && b[n] <= hi {
		lo, hi = 0x80, 0xBF
		n++
	}
	return n
}

// splitLines splits on newlines, dropping a trailing carriage return from
// each line and the empty remainder after a final newline.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
