package handler

import (
	"context"
	"strings"

	"github.com/CageChen/filehub/internal/git"
	"github.com/gin-gonic/gin"
)

// GitService is the git call surface, satisfied by *git.Reader.
type GitService interface {
	CurrentBranch(ctx context.Context, workingDir string) (string, error)
	Branches(ctx context.Context, workingDir string) ([]string, error)
	SwitchBranch(ctx context.Context, workingDir, branch string) (string, error)
	Status(ctx context.Context, workingDir string) (map[string]git.StatusKind, error)
	IsRepo(ctx context.Context, workingDir string) (bool, error)
	Init(ctx context.Context, workingDir string) (bool, error)
}

// GitHandler handles the git calls
type GitHandler struct {
	git GitService
}

// NewGitHandler creates a new git handler
func NewGitHandler(svc GitService) *GitHandler {
	return &GitHandler{git: svc}
}

func (h *GitHandler) commands() map[string]command {
	return map[string]command{
		"get_current_branch": h.currentBranch,
		"get_all_branches":   h.allBranches,
		"switch_branch":      h.switchBranch,
		"get_git_status":     h.status,
		"is_git_repo":        h.isRepo,
		"init_git_repo":      h.initRepo,
	}
}

func (h *GitHandler) currentBranch(ctx context.Context, args Args) (any, error) {
	if err := required("workingDir", args.WorkingDir); err != nil {
		return nil, err
	}
	return h.git.CurrentBranch(ctx, args.WorkingDir)
}

func (h *GitHandler) allBranches(ctx context.Context, args Args) (any, error) {
	if err := required("workingDir", args.WorkingDir); err != nil {
		return nil, err
	}
	return h.git.Branches(ctx, args.WorkingDir)
}

func (h *GitHandler) switchBranch(ctx context.Context, args Args) (any, error) {
	if err := required("workingDir", args.WorkingDir); err != nil {
		return nil, err
	}
	if err := required("branch", args.Branch); err != nil {
		return nil, err
	}
	// git would read a leading dash as an option
	if strings.HasPrefix(args.Branch, "-") {
		return nil, badRequest("invalid branch name: " + args.Branch)
	}
	return h.git.SwitchBranch(ctx, args.WorkingDir, args.Branch)
}

func (h *GitHandler) status(ctx context.Context, args Args) (any, error) {
	if err := required("workingDir", args.WorkingDir); err != nil {
		return nil, err
	}
	return h.git.Status(ctx, args.WorkingDir)
}

func (h *GitHandler) isRepo(ctx context.Context, args Args) (any, error) {
	if err := required("workingDir", args.WorkingDir); err != nil {
		return nil, err
	}
	return h.git.IsRepo(ctx, args.WorkingDir)
}

func (h *GitHandler) initRepo(ctx context.Context, args Args) (any, error) {
	if err := required("workingDir", args.WorkingDir); err != nil {
		return nil, err
	}
	return h.git.Init(ctx, args.WorkingDir)
}

// GetBranch returns the current branch of ?workingDir=
func (h *GitHandler) GetBranch(c *gin.Context) {
	respondQuery(c, "get_current_branch", h.currentBranch)
}

// GetBranches returns all local branches
func (h *GitHandler) GetBranches(c *gin.Context) {
	respondQuery(c, "get_all_branches", h.allBranches)
}

// Checkout switches to another branch
func (h *GitHandler) Checkout(c *gin.Context) {
	respondJSON(c, "switch_branch", h.switchBranch)
}

// GetStatus returns the path to status map of the working tree
func (h *GitHandler) GetStatus(c *gin.Context) {
	respondQuery(c, "get_git_status", h.status)
}

// GetRepo reports whether ?workingDir= is inside a git work tree
func (h *GitHandler) GetRepo(c *gin.Context) {
	respondQuery(c, "is_git_repo", h.isRepo)
}

// InitRepo runs git init
func (h *GitHandler) InitRepo(c *gin.Context) {
	respondJSON(c, "init_git_repo", h.initRepo)
}
