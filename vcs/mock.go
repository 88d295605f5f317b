package vcs

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/jeffrom/git-release/model"
)

// Mock is an in-memory repository with a single linear history.
type Mock struct {
	t       time.Time
	root    string
	branch  string
	tags    []*model.Tag
	commits []*model.Commit
	remotes map[string]*mockRemote

	// CreatedTags records the tags created through CreateTag.
	CreatedTags []MockTag
	// Fetches records calls to Fetch.
	Fetches []MockFetch
	// Pulls counts calls to Pull.
	Pulls int

	NotRepo   bool
	PullErr   error
	FetchErr  error
	CommitErr error
}

// MockTag is a tag created on a Mock.
type MockTag struct {
	Commit string
	Tag    string
	Opts   TagOpts
}

// MockFetch is a call to Fetch. Deadline is the context's deadline, zero if
// it had none.
type MockFetch struct {
	Upstream string
	Deadline time.Time
}

type mockRemote struct {
	behind int
	noRef  bool
}

func NewMock() *Mock {
	return &Mock{
		t:      time.Now(),
		root:   "/src/mock-project",
		branch: "main",
	}
}

func (m *Mock) SetRoot(root string) *Mock {
	m.root = root
	return m
}

func (m *Mock) SetBranch(branch string) *Mock {
	m.branch = branch
	return m
}

// SetCommits sets the history, newest first. Commits without a date get one,
// each a minute older than the previous.
func (m *Mock) SetCommits(commits ...*model.Commit) *Mock {
	finalCommits := make([]*model.Commit, len(commits))
	for i, commit := range commits {
		c := *commit
		if c.CommitterDate.IsZero() {
			c.CommitterDate = m.t
			m.t = m.t.Add(-time.Minute)
		}
		finalCommits[i] = &c
	}
	m.commits = finalCommits
	return m
}

// SetTag tags the commit with the given id.
func (m *Mock) SetTag(name, commitID string) *Mock {
	tag := &model.Tag{Name: name, Commit: commitID}
	if c := m.findCommit(commitID); c != nil {
		tag.Date = c.CommitterDate
	}
	m.tags = append(m.tags, tag)
	return m
}

// SetBranchTag adds a tag dated date on a commit that isn't reachable from
// HEAD, as if it were made on another branch.
func (m *Mock) SetBranchTag(name string, date time.Time) *Mock {
	m.tags = append(m.tags, &model.Tag{Name: name, Commit: "branch-" + name, Date: date})
	return m
}

// SetRemote adds a remote whose tracking ref for the current branch is
// behind commits ahead of the local branch. If noRef is set the remote has
// no tracking ref at all.
func (m *Mock) SetRemote(name string, behind int, noRef bool) *Mock {
	if m.remotes == nil {
		m.remotes = make(map[string]*mockRemote)
	}
	m.remotes[name] = &mockRemote{behind: behind, noRef: noRef}
	return m
}

func (m *Mock) findCommit(id string) *model.Commit {
	for _, c := range m.commits {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (m *Mock) RepoRoot(ctx context.Context) (string, error) {
	if m.NotRepo {
		return "", ErrNotRepository
	}
	return m.root, nil
}

func (m *Mock) CurrentBranch(ctx context.Context) (string, error) {
	return m.branch, nil
}

func (m *Mock) CurrentCommit(ctx context.Context) (string, error) {
	if len(m.commits) == 0 {
		return "", NotFoundError{Ref: "HEAD"}
	}
	return m.commits[0].ID, nil
}

func (m *Mock) ReadTags(ctx context.Context) ([]*model.Tag, error) {
	return m.tags, nil
}

func (m *Mock) MergedTags(ctx context.Context) ([]*model.Tag, error) {
	var tags []*model.Tag
	for _, tag := range m.tags {
		if m.findCommit(tag.Commit) != nil {
			tags = append(tags, tag)
		}
	}
	return tags, nil
}

func (m *Mock) ReadCommits(ctx context.Context, ref string) ([]*model.Commit, error) {
	if m.CommitErr != nil {
		return nil, m.CommitErr
	}
	if ref == "" {
		return m.commits, nil
	}

	var target string
	for _, tag := range m.tags {
		if tag.Name == ref {
			target = tag.Commit
		}
	}
	if target == "" && m.findCommit(ref) != nil {
		target = ref
	}
	if target == "" {
		return nil, NotFoundError{Ref: ref}
	}

	var commits []*model.Commit
	for _, c := range m.commits {
		if c.ID == target {
			break
		}
		commits = append(commits, c)
	}
	return commits, nil
}

func (m *Mock) CreateTag(ctx context.Context, commit, tag string, opts TagOpts) error {
	if opts.Message == "" {
		return errors.New("mock: message is required")
	}
	for _, t := range m.tags {
		if t.Name == tag {
			return errors.New("mock: tag already exists")
		}
	}
	m.CreatedTags = append(m.CreatedTags, MockTag{Commit: commit, Tag: tag, Opts: opts})
	m.SetTag(tag, commit)
	return nil
}

func (m *Mock) Remotes(ctx context.Context) ([]string, error) {
	var names []string
	for name := range m.remotes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *Mock) Fetch(ctx context.Context, upstream string) error {
	deadline, _ := ctx.Deadline()
	m.Fetches = append(m.Fetches, MockFetch{Upstream: upstream, Deadline: deadline})
	return m.FetchErr
}

func (m *Mock) Behind(ctx context.Context, upstream, branch string) (int, error) {
	r, ok := m.remotes[upstream]
	if !ok || r.noRef {
		return 0, NotFoundError{Ref: upstream + "/" + branch}
	}
	return r.behind, nil
}

func (m *Mock) Pull(ctx context.Context, upstream, branch string) error {
	m.Pulls++
	if m.PullErr != nil {
		return m.PullErr
	}
	if r, ok := m.remotes[upstream]; ok {
		r.behind = 0
	}
	return nil
}
