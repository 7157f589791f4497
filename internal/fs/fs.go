// Package fs lists directories for the explorer tree and wraps the plain
// file operations the UI issues against the local disk.
package fs

import (
	"errors"
	iofs "io/fs"
)

// TreeEntry is one node of the explorer tree. Children is never populated by
// ListDir; the UI expands a directory by listing its Path again.
type TreeEntry struct {
	Name     string      `json:"name"`
	Path     string      `json:"path"`
	IsDir    bool        `json:"is_dir"`
	Children []TreeEntry `json:"children"`
}

// FileSystem is the call surface the handlers depend on.
type FileSystem interface {
	ListDir(path string) ([]TreeEntry, error)
	ReadFileContent(path string) (string, error)
	WriteFileContent(path, content string) error
	CreateDirectory(path string) error
	CreateFile(path string) error
	DeleteNode(path string) error
	RenameNode(oldPath, newPath string) error
}

// Kind classifies an IOError.
type Kind int

// IOError kinds.
const (
	KindOther Kind = iota
	KindNotFound
	KindPermissionDenied
	KindAlreadyExists
	KindInvalidData
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindPermissionDenied:
		return "permission_denied"
	case KindAlreadyExists:
		return "already_exists"
	case KindInvalidData:
		return "invalid_data"
	default:
		return "other"
	}
}

var (
	errPathNotExist = errors.New("Path does not exist") //nolint:stylecheck
	errInvalidUTF8  = errors.New("stream did not contain valid UTF-8")
)

// IOError reports a failed filesystem operation. Its message is the
// underlying error's message, passed to the UI unchanged.
type IOError struct {
	Op   string
	Path string
	Kind Kind
	Err  error
}

func (e *IOError) Error() string {
	return e.Err.Error()
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match the io/fs sentinels by kind, so errors created
// here without an underlying *PathError still compare as expected.
func (e *IOError) Is(target error) bool {
	switch target {
	case iofs.ErrNotExist:
		return e.Kind == KindNotFound
	case iofs.ErrPermission:
		return e.Kind == KindPermissionDenied
	case iofs.ErrExist:
		return e.Kind == KindAlreadyExists
	}
	return false
}

func newIOError(op, path string, err error) *IOError {
	return &IOError{Op: op, Path: path, Kind: kindOf(err), Err: err}
}

func kindOf(err error) Kind {
	switch {
	case errors.Is(err, iofs.ErrNotExist):
		return KindNotFound
	case errors.Is(err, iofs.ErrPermission):
		return KindPermissionDenied
	case errors.Is(err, iofs.ErrExist):
		return KindAlreadyExists
	case errors.Is(err, errInvalidUTF8):
		return KindInvalidData
	default:
		return KindOther
	}
}
