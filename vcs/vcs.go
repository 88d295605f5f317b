// Package vcs abstracts version control systems. Currently just git, either
// through the git command (vcs/gitcli) or in-process (vcs/gogit).
package vcs

import (
	"context"
	"errors"
	"fmt"

	"github.com/jeffrom/git-release/model"
)

// ErrNotRepository is returned when the working directory isn't inside a
// repository.
var ErrNotRepository = errors.New("vcs: not a repository")

type NotFoundError struct {
	Ref string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("vcs: ref %q not found", e.Ref)
}

type Interface interface {
	// RepoRoot returns the top-level directory of the working tree.
	RepoRoot(ctx context.Context) (string, error)
	CurrentBranch(ctx context.Context) (string, error)
	CurrentCommit(ctx context.Context) (string, error)
	ReadTags(ctx context.Context) ([]*model.Tag, error)
	// MergedTags returns the tags whose commit is reachable from HEAD. It
	// returns no tags when HEAD has no commits yet.
	MergedTags(ctx context.Context) ([]*model.Tag, error)
	// ReadCommits returns the commits reachable from HEAD but not from ref,
	// newest first. If ref is empty, all commits reachable from HEAD are
	// returned. A repository without commits has none.
	ReadCommits(ctx context.Context, ref string) ([]*model.Commit, error)
	CreateTag(ctx context.Context, commit, tag string, opts TagOpts) error
	Remotes(ctx context.Context) ([]string, error)
	Fetch(ctx context.Context, upstream string) error
	// Behind counts the commits on upstream's tracking ref for branch that
	// are not on the local branch. It returns a NotFoundError when the
	// remote has no such ref.
	Behind(ctx context.Context, upstream, branch string) (int, error)
	Pull(ctx context.Context, upstream, branch string) error
}

type TagOpts struct {
	Message string
}
