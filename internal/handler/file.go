// Package handler serves the explorer's filesystem and git calls over HTTP
// and WebSocket.
package handler

import (
	"context"

	mfs "github.com/CageChen/filehub/internal/fs"
	"github.com/gin-gonic/gin"
)

// FileHandler handles the filesystem calls
type FileHandler struct {
	fs mfs.FileSystem
}

// NewFileHandler creates a new file handler
func NewFileHandler(fs mfs.FileSystem) *FileHandler {
	return &FileHandler{fs: fs}
}

func (h *FileHandler) commands() map[string]command {
	return map[string]command{
		"list_dir":           h.listDir,
		"read_file_content":  h.readFileContent,
		"write_file_content": h.writeFileContent,
		"create_directory":   h.createDirectory,
		"create_file":        h.createFile,
		"delete_node":        h.deleteNode,
		"rename_node":        h.renameNode,
	}
}

func (h *FileHandler) listDir(_ context.Context, args Args) (any, error) {
	if err := required("path", args.Path); err != nil {
		return nil, err
	}
	return h.fs.ListDir(args.Path)
}

func (h *FileHandler) readFileContent(_ context.Context, args Args) (any, error) {
	if err := required("path", args.Path); err != nil {
		return nil, err
	}
	return h.fs.ReadFileContent(args.Path)
}

func (h *FileHandler) writeFileContent(_ context.Context, args Args) (any, error) {
	if err := required("path", args.Path); err != nil {
		return nil, err
	}
	return nil, h.fs.WriteFileContent(args.Path, args.Content)
}

func (h *FileHandler) createDirectory(_ context.Context, args Args) (any, error) {
	if err := required("path", args.Path); err != nil {
		return nil, err
	}
	return nil, h.fs.CreateDirectory(args.Path)
}

func (h *FileHandler) createFile(_ context.Context, args Args) (any, error) {
	if err := required("path", args.Path); err != nil {
		return nil, err
	}
	return nil, h.fs.CreateFile(args.Path)
}

func (h *FileHandler) deleteNode(_ context.Context, args Args) (any, error) {
	if err := required("path", args.Path); err != nil {
		return nil, err
	}
	return nil, h.fs.DeleteNode(args.Path)
}

func (h *FileHandler) renameNode(_ context.Context, args Args) (any, error) {
	if err := required("oldPath", args.OldPath); err != nil {
		return nil, err
	}
	if err := required("newPath", args.NewPath); err != nil {
		return nil, err
	}
	return nil, h.fs.RenameNode(args.OldPath, args.NewPath)
}

// ListDir returns one level of the tree below ?path=
func (h *FileHandler) ListDir(c *gin.Context) {
	respondQuery(c, "list_dir", h.listDir)
}

// GetFile returns a file's text content
func (h *FileHandler) GetFile(c *gin.Context) {
	respondQuery(c, "read_file_content", h.readFileContent)
}

// PutFile writes a file's text content
func (h *FileHandler) PutFile(c *gin.Context) {
	respondJSON(c, "write_file_content", h.writeFileContent)
}

// CreateDirectory creates a directory and its parents
func (h *FileHandler) CreateDirectory(c *gin.Context) {
	respondJSON(c, "create_directory", h.createDirectory)
}

// CreateFile creates an empty file
func (h *FileHandler) CreateFile(c *gin.Context) {
	respondJSON(c, "create_file", h.createFile)
}

// DeleteNode removes a file or directory tree
func (h *FileHandler) DeleteNode(c *gin.Context) {
	respondQuery(c, "delete_node", h.deleteNode)
}

// RenameNode moves a file or directory
func (h *FileHandler) RenameNode(c *gin.Context) {
	respondJSON(c, "rename_node", h.renameNode)
}
