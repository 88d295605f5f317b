// Package gogit implements vcs.Interface in-process using go-git, for hosts
// without a git binary.
package gogit

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"

	"github.com/jeffrom/git-release/config"
	"github.com/jeffrom/git-release/model"
	"github.com/jeffrom/git-release/vcs"
)

const (
	defaultTagger      = "git-release"
	defaultTaggerEmail = "git-release@localhost"
)

// Git implements vcs.Interface on top of a go-git repository.
type Git struct {
	cfg  config.Config
	repo *git.Repository
}

// New opens the repository containing wd.
func New(cfg config.Config, wd string) (*Git, error) {
	repo, err := git.PlainOpenWithOptions(wd, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, vcs.ErrNotRepository
		}
		return nil, err
	}
	return FromRepository(cfg, repo), nil
}

func FromRepository(cfg config.Config, repo *git.Repository) *Git {
	return &Git{cfg: cfg, repo: repo}
}

func (g *Git) RepoRoot(ctx context.Context) (string, error) {
	wt, err := g.repo.Worktree()
	if err != nil {
		return "", err
	}
	return wt.Filesystem.Root(), nil
}

func (g *Git) CurrentBranch(ctx context.Context) (string, error) {
	ref, err := g.repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		// no commits yet; HEAD still names the branch.
		sym, serr := g.repo.Reference(plumbing.HEAD, false)
		if serr != nil || sym.Type() != plumbing.SymbolicReference {
			return "", err
		}
		return sym.Target().Short(), nil
	}
	if err != nil {
		return "", err
	}
	if !ref.Name().IsBranch() {
		return "HEAD", nil
	}
	return ref.Name().Short(), nil
}

func (g *Git) CurrentCommit(ctx context.Context) (string, error) {
	ref, err := g.repo.Head()
	if err != nil {
		return "", vcs.NotFoundError{Ref: "HEAD"}
	}
	return ref.Hash().String(), nil
}

func (g *Git) ReadTags(ctx context.Context) ([]*model.Tag, error) {
	iter, err := g.repo.Tags()
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var tags []*model.Tag
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		c, err := g.tagCommit(ref.Hash())
		if err != nil {
			return err
		}
		if c == nil {
			return nil
		}
		tags = append(tags, &model.Tag{
			Name:   ref.Name().Short(),
			Commit: c.Hash.String(),
			Date:   c.Committer.When,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tags, nil
}

func (g *Git) MergedTags(ctx context.Context) ([]*model.Tag, error) {
	head, err := g.repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	reachable, err := g.ancestors(ctx, head.Hash())
	if err != nil {
		return nil, err
	}

	tags, err := g.ReadTags(ctx)
	if err != nil {
		return nil, err
	}
	var merged []*model.Tag
	for _, tag := range tags {
		if reachable[plumbing.NewHash(tag.Commit)] {
			merged = append(merged, tag)
		}
	}
	return merged, nil
}

// tagCommit peels an annotated or lightweight tag to its commit. It returns
// nil for tags of trees and blobs.
func (g *Git) tagCommit(h plumbing.Hash) (*object.Commit, error) {
	tag, err := g.repo.TagObject(h)
	switch {
	case err == nil:
		c, err := tag.Commit()
		if errors.Is(err, object.ErrUnsupportedObject) {
			return nil, nil
		}
		return c, err
	case errors.Is(err, plumbing.ErrObjectNotFound):
		c, err := g.repo.CommitObject(h)
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			return nil, nil
		}
		return c, err
	default:
		return nil, err
	}
}

func (g *Git) ReadCommits(ctx context.Context, ref string) ([]*model.Commit, error) {
	head, err := g.repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var seen map[plumbing.Hash]bool
	if ref != "" {
		h, err := g.repo.ResolveRevision(plumbing.Revision(ref))
		if err != nil {
			return nil, vcs.NotFoundError{Ref: ref}
		}
		seen, err = g.ancestors(ctx, *h)
		if err != nil {
			return nil, err
		}
	}

	iter, err := g.repo.Log(&git.LogOptions{From: head.Hash(), Order: git.LogOrderCommitterTime})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var commits []*model.Commit
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if seen[c.Hash] {
			return nil
		}
		commits = append(commits, toModel(c))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return commits, nil
}

// ancestors returns the set of commits reachable from h, including h.
func (g *Git) ancestors(ctx context.Context, h plumbing.Hash) (map[plumbing.Hash]bool, error) {
	iter, err := g.repo.Log(&git.LogOptions{From: h})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	seen := make(map[plumbing.Hash]bool)
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		seen[c.Hash] = true
		return nil
	})
	if err != nil && !errors.Is(err, storer.ErrStop) {
		return nil, err
	}
	return seen, nil
}

func toModel(c *object.Commit) *model.Commit {
	subject, body, _ := strings.Cut(strings.TrimSpace(c.Message), "\n")
	return &model.Commit{
		ID:             c.Hash.String(),
		Author:         c.Author.Name,
		AuthorEmail:    c.Author.Email,
		AuthorDate:     c.Author.When,
		Committer:      c.Committer.Name,
		CommitterEmail: c.Committer.Email,
		CommitterDate:  c.Committer.When,
		Subject:        strings.TrimSpace(subject),
		Body:           strings.TrimSpace(body),
	}
}

func (g *Git) CreateTag(ctx context.Context, commit, tag string, opts vcs.TagOpts) error {
	if opts.Message == "" {
		return errors.New("gogit: message is required")
	}

	var h plumbing.Hash
	if commit == "" {
		head, err := g.repo.Head()
		if err != nil {
			return err
		}
		h = head.Hash()
	} else {
		resolved, err := g.repo.ResolveRevision(plumbing.Revision(commit))
		if err != nil {
			return vcs.NotFoundError{Ref: commit}
		}
		h = *resolved
	}

	if g.cfg.Dryrun {
		g.cfg.Printf("+ create tag %s at %s (dryrun)", tag, h.String())
		return nil
	}

	_, err := g.repo.CreateTag(tag, h, &git.CreateTagOptions{
		Tagger:  g.tagger(),
		Message: opts.Message,
	})
	if err != nil {
		return fmt.Errorf("gogit: create tag %q: %w", tag, err)
	}
	return nil
}

// tagger is the user from the global git config, with defaults for whatever
// is missing.
func (g *Git) tagger() *object.Signature {
	sig := &object.Signature{When: time.Now()}
	if cfg, err := g.repo.ConfigScoped(gitconfig.GlobalScope); err == nil {
		sig.Name = cfg.User.Name
		sig.Email = cfg.User.Email
	}
	if sig.Name == "" {
		sig.Name = defaultTagger
	}
	if sig.Email == "" {
		sig.Email = defaultTaggerEmail
	}
	return sig
}

func (g *Git) Remotes(ctx context.Context) ([]string, error) {
	remotes, err := g.repo.Remotes()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(remotes))
	for _, r := range remotes {
		names = append(names, r.Config().Name)
	}
	sort.Strings(names)
	return names, nil
}

func (g *Git) Fetch(ctx context.Context, upstream string) error {
	err := g.repo.FetchContext(ctx, &git.FetchOptions{RemoteName: upstream})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	return err
}

func (g *Git) Behind(ctx context.Context, upstream, branch string) (int, error) {
	remoteRef, err := g.repo.Reference(plumbing.NewRemoteReferenceName(upstream, branch), true)
	if err != nil {
		return 0, vcs.NotFoundError{Ref: upstream + "/" + branch}
	}
	head, err := g.repo.Head()
	if err != nil {
		return 0, err
	}

	local, err := g.ancestors(ctx, head.Hash())
	if err != nil {
		return 0, err
	}
	remote, err := g.ancestors(ctx, remoteRef.Hash())
	if err != nil {
		return 0, err
	}

	n := 0
	for h := range remote {
		if !local[h] {
			n++
		}
	}
	return n, nil
}

func (g *Git) Pull(ctx context.Context, upstream, branch string) error {
	if g.cfg.Dryrun {
		g.cfg.Printf("+ pull --ff-only %s %s (dryrun)", upstream, branch)
		return nil
	}
	wt, err := g.repo.Worktree()
	if err != nil {
		return err
	}

	err = wt.PullContext(ctx, &git.PullOptions{
		RemoteName:    upstream,
		ReferenceName: plumbing.NewBranchReferenceName(branch),
		SingleBranch:  true,
	})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	return err
}
