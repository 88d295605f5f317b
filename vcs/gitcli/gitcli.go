// Package gitcli implements vcs.Interface using the git commandline tool.
package gitcli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jeffrom/git-release/config"
	"github.com/jeffrom/git-release/model"
	"github.com/jeffrom/git-release/vcs"
)

// Git implements vcs.Interface using the git commandline tool.
type Git struct {
	cfg config.Config
	wd  string
}

func New(cfg config.Config, wd string) *Git {
	return &Git{
		cfg: cfg,
		wd:  wd,
	}
}

func (g *Git) RepoRoot(ctx context.Context) (string, error) {
	b, err := g.call(ctx, []string{"rev-parse", "--show-toplevel"})
	if err != nil {
		var eerr *ExecError
		if errors.As(err, &eerr) && strings.Contains(eerr.Stderr, "not a git repository") {
			return "", vcs.ErrNotRepository
		}
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// CurrentBranch returns the checked out branch, or "HEAD" when detached. The
// branch of a repository without commits is still reported.
func (g *Git) CurrentBranch(ctx context.Context) (string, error) {
	if b, err := g.call(ctx, []string{"symbolic-ref", "--quiet", "--short", "HEAD"}); err == nil {
		return strings.TrimSpace(string(b)), nil
	}
	b, err := g.call(ctx, []string{"rev-parse", "--abbrev-ref", "HEAD"})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// hasHead reports whether HEAD points at a commit.
func (g *Git) hasHead(ctx context.Context) bool {
	_, err := g.call(ctx, []string{"rev-parse", "--verify", "--quiet", "HEAD"})
	return err == nil
}

func (g *Git) CurrentCommit(ctx context.Context) (string, error) {
	b, err := g.call(ctx, []string{"rev-parse", "--verify", "HEAD"})
	if err != nil {
		return "", vcs.NotFoundError{Ref: "HEAD"}
	}
	return strings.TrimSpace(string(b)), nil
}

const EXPECTED_LOG_PARTS = 9

func (g *Git) ReadCommits(ctx context.Context, ref string) ([]*model.Commit, error) {
	if !g.hasHead(ctx) {
		return nil, nil
	}
	query := "HEAD"
	if ref != "" {
		query = ref + "..HEAD"
	}
	args := []string{
		"log", "--pretty=tformat:_START_%H_SEP_%aN_SEP_%ae_SEP_%ai_SEP_%cN_SEP_%ce_SEP_%ci_SEP_%s_SEP_%b_END_", query, "--",
	}
	b, err := g.call(ctx, args)
	if err != nil {
		return nil, err
	}
	return parseLog(b)
}

func parseLog(b []byte) ([]*model.Commit, error) {
	var commits []*model.Commit
	scanner := bufio.NewScanner(bytes.NewBuffer(b))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		s := scanner.Text()
		if s == "" {
			continue
		}
		parts := strings.Split(s, "_SEP_")
		if len(parts) != EXPECTED_LOG_PARTS {
			return nil, fmt.Errorf("gitcli: expected %d parts from git log, got %d", EXPECTED_LOG_PARTS, len(parts))
		}

		commitID := parts[0]
		if !strings.HasPrefix(commitID, "_START_") {
			return nil, fmt.Errorf("gitcli: unexpected git log line: %q", s)
		}
		commitID = strings.TrimPrefix(commitID, "_START_")

		// body can be multiple lines.
		var body string
		bodypart := parts[len(parts)-1]
		if strings.HasSuffix(bodypart, "_END_") {
			body = strings.TrimSuffix(bodypart, "_END_")
		} else {
			var bodyb strings.Builder
			bodyb.WriteString(bodypart)
			bodyb.WriteString("\n")
			for scanner.Scan() {
				bodyline := scanner.Text()
				if strings.HasSuffix(bodyline, "_END_") {
					bodyb.WriteString(strings.TrimSuffix(bodyline, "_END_"))
					break
				}
				bodyb.WriteString(bodyline)
				bodyb.WriteString("\n")
			}
			body = strings.TrimSpace(bodyb.String())
		}

		authorDate, err := ParseGitISO8601(parts[3])
		if err != nil {
			return nil, err
		}
		committerDate, err := ParseGitISO8601(parts[6])
		if err != nil {
			return nil, err
		}

		commits = append(commits, &model.Commit{
			ID:             commitID,
			Author:         parts[1],
			AuthorEmail:    parts[2],
			AuthorDate:     authorDate,
			Committer:      parts[4],
			CommitterEmail: parts[5],
			CommitterDate:  committerDate,
			Subject:        parts[7],
			Body:           body,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return commits, nil
}

const tagFormat = "%(refname:strip=2)_SEP_%(objectname)_SEP_%(*objectname)_SEP_%(committerdate:iso)_SEP_%(*committerdate:iso)"

func (g *Git) ReadTags(ctx context.Context) ([]*model.Tag, error) {
	b, err := g.call(ctx, []string{"for-each-ref", "--format=" + tagFormat, "refs/tags"})
	if err != nil {
		return nil, err
	}
	return parseTags(b)
}

func (g *Git) MergedTags(ctx context.Context) ([]*model.Tag, error) {
	if !g.hasHead(ctx) {
		return nil, nil
	}
	b, err := g.call(ctx, []string{"for-each-ref", "--merged=HEAD", "--format=" + tagFormat, "refs/tags"})
	if err != nil {
		return nil, err
	}
	return parseTags(b)
}

func parseTags(b []byte) ([]*model.Tag, error) {
	var tags []*model.Tag
	scanner := bufio.NewScanner(bytes.NewBuffer(b))
	for scanner.Scan() {
		s := scanner.Text()
		if s == "" {
			continue
		}
		parts := strings.Split(s, "_SEP_")
		if len(parts) != 5 {
			return nil, fmt.Errorf("gitcli: unexpected for-each-ref line: %q", s)
		}

		// annotated tags peel to the tagged commit.
		commit, date := parts[1], parts[3]
		if parts[2] != "" {
			commit, date = parts[2], parts[4]
		}
		if date == "" {
			// tags of trees and blobs.
			continue
		}
		t, err := ParseGitISO8601(date)
		if err != nil {
			return nil, err
		}
		tags = append(tags, &model.Tag{Name: parts[0], Commit: commit, Date: t})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return tags, nil
}

func (g *Git) CreateTag(ctx context.Context, commit, tag string, opts vcs.TagOpts) error {
	if opts.Message == "" {
		return errors.New("gitcli: message is required")
	}

	// markdown headings would otherwise be stripped as comments.
	args := []string{"tag", "-a", "--cleanup=whitespace", tag}
	if commit != "" {
		args = append(args, commit)
	}
	args = append(args, "-m", opts.Message)

	if g.cfg.Dryrun {
		g.cfg.Printf("+ git %s (dryrun)", ArgsString(args))
		return nil
	}
	_, err := g.call(ctx, args)
	return err
}

func (g *Git) Remotes(ctx context.Context) ([]string, error) {
	b, err := g.call(ctx, []string{"remote"})
	if err != nil {
		return nil, err
	}
	var remotes []string
	for _, line := range strings.Split(string(b), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			remotes = append(remotes, line)
		}
	}
	return remotes, nil
}

// fetchEnv keeps fetch from waiting on a credentials prompt.
var fetchEnv = []string{"GIT_TERMINAL_PROMPT=0"}

func (g *Git) Fetch(ctx context.Context, upstream string) error {
	_, err := g.callEnv(ctx, fetchEnv, []string{"fetch", "--quiet", upstream})
	return err
}

func (g *Git) Behind(ctx context.Context, upstream, branch string) (int, error) {
	ref := "refs/remotes/" + upstream + "/" + branch
	if _, err := g.call(ctx, []string{"rev-parse", "--verify", "--quiet", ref}); err != nil {
		return 0, vcs.NotFoundError{Ref: upstream + "/" + branch}
	}

	b, err := g.call(ctx, []string{"rev-list", "--count", "HEAD.." + ref})
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0, fmt.Errorf("gitcli: parse rev-list count: %w", err)
	}
	return n, nil
}

func (g *Git) Pull(ctx context.Context, upstream, branch string) error {
	args := []string{"pull", "--ff-only", upstream, branch}
	if g.cfg.Dryrun {
		g.cfg.Printf("+ git %s (dryrun)", ArgsString(args))
		return nil
	}
	_, err := g.call(ctx, args)
	return err
}
