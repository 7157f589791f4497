package fs

import (
	"errors"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"
)

// LocalFS implements FileSystem on the local disk. Relative paths resolve
// against the process working directory.
type LocalFS struct{}

var _ FileSystem = (*LocalFS)(nil)

// NewLocalFS creates a LocalFS.
func NewLocalFS() *LocalFS {
	return &LocalFS{}
}

// ListDir returns the immediate, non-hidden children of path, directories
// first, each group ordered by name.
func (l *LocalFS) ListDir(path string) ([]TreeEntry, error) {
	dir, err := filepath.Abs(path)
	if err != nil {
		return nil, newIOError("list", path, err)
	}

	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil, &IOError{Op: "list", Path: path, Kind: KindNotFound, Err: errPathNotExist}
		}
		return nil, newIOError("list", path, err)
	}

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, newIOError("list", path, err)
	}

	entries := make([]TreeEntry, 0, len(dirEntries))
	for _, e := range dirEntries {
		name := displayName(e.Name())
		if strings.HasPrefix(name, ".") {
			continue
		}

		childPath := filepath.Join(dir, e.Name())
		isDir, err := statIsDir(childPath)
		if err != nil {
			return nil, newIOError("stat", childPath, err)
		}

		entries = append(entries, TreeEntry{
			Name:  name,
			Path:  childPath,
			IsDir: isDir,
		})
	}

	sortEntries(entries)
	return entries, nil
}

// displayName drops names that are not valid UTF-8 rather than failing the
// listing over them.
func displayName(name string) string {
	if !utf8.ValidString(name) {
		return ""
	}
	return name
}

// statIsDir follows symlinks. A dangling link is reported as a file.
func statIsDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if err == nil {
		return info.IsDir(), nil
	}
	if errors.Is(err, iofs.ErrNotExist) {
		if _, lerr := os.Lstat(path); lerr == nil {
			return false, nil
		}
	}
	return false, err
}

// sortEntries orders directories before files, then by name.
func sortEntries(entries []TreeEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return entries[i].Name < entries[j].Name
	})
}

// ReadFileContent returns the whole file as text.
func (l *LocalFS) ReadFileContent(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", newIOError("read", path, err)
	}
	if !utf8.Valid(data) {
		return "", newIOError("read", path, errInvalidUTF8)
	}
	return string(data), nil
}

// WriteFileContent creates or truncates path and writes content to it.
func (l *LocalFS) WriteFileContent(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return newIOError("write", path, err)
	}
	return nil
}

// CreateDirectory creates path along with any missing parents.
func (l *LocalFS) CreateDirectory(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return newIOError("mkdir", path, err)
	}
	return nil
}

// CreateFile creates an empty file, truncating an existing one.
func (l *LocalFS) CreateFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return newIOError("create", path, err)
	}
	if err := f.Close(); err != nil {
		return newIOError("create", path, err)
	}
	return nil
}

// DeleteNode removes a file, or a directory and everything below it.
// A symlink is removed itself, never its target.
func (l *LocalFS) DeleteNode(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return newIOError("delete", path, err)
	}
	if info.IsDir() {
		err = os.RemoveAll(path)
	} else {
		err = os.Remove(path)
	}
	if err != nil {
		return newIOError("delete", path, err)
	}
	return nil
}

// RenameNode moves oldPath to newPath.
func (l *LocalFS) RenameNode(oldPath, newPath string) error {
	if err := os.Rename(oldPath, newPath); err != nil {
		return newIOError("rename", oldPath, err)
	}
	return nil
}
