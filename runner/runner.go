// Package runner sequences a release: it checks the branch, names the tag,
// scans commits for tickets, renders the release message and creates the
// tag.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeffrom/git-release/commit"
	"github.com/jeffrom/git-release/config"
	"github.com/jeffrom/git-release/connector"
	"github.com/jeffrom/git-release/model"
	"github.com/jeffrom/git-release/render"
	"github.com/jeffrom/git-release/summary"
	"github.com/jeffrom/git-release/vcs"
)

// UnknownProject is used when no project name can be determined.
const UnknownProject = "Unknown Project"

const ruler = "=========================="

// FetchTimeout bounds fetching each remote before checking if the branch is
// behind it.
const FetchTimeout = 10 * time.Second

type Runner struct {
	cfg        config.Config
	vcs        vcs.Interface
	scanner    *commit.Scanner
	connector  connector.Connector
	summarizer summary.Summarizer
	now        func() time.Time
	state      State
}

type Option func(r *Runner)

// WithConnector overrides the connector built from settings. A nil
// connector disables enrichment.
func WithConnector(c connector.Connector) Option {
	return func(r *Runner) { r.connector = c }
}

// WithSummarizer overrides the summarizer built from settings.
func WithSummarizer(s summary.Summarizer) Option {
	return func(r *Runner) { r.summarizer = s }
}

// WithClock sets the function used to read the current time.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

func New(cfg config.Config, vcs vcs.Interface, opts ...Option) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := &Runner{
		cfg:     cfg,
		vcs:     vcs,
		scanner: commit.NewScanner(cfg, vcs),
		now:     time.Now,
	}

	conn, err := connector.New(cfg.Settings.Connectors.Type, cfg.Settings.Connectors.Options(cfg.Settings.Connectors.Type))
	if err != nil {
		return nil, err
	}
	r.connector = conn

	sum, err := summary.New(cfg.Settings.AI.Provider, cfg.Settings.AI.Options(cfg.Settings.AI.Provider))
	if errors.Is(err, summary.ErrNoAPIKey) {
		cfg.Warnf("Warning: %v. AI summary generation will be skipped.", err)
	} else if err != nil {
		return nil, err
	}
	r.summarizer = sum

	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// State is the step the last run reached.
func (r *Runner) State() State { return r.state }

// release collects what each step learns about the release being made.
type release struct {
	root    string
	project string
	branch  string
	tag     string
	latest  *model.Tag
	head    string
	commits []*model.Commit
	tickets []string
	details map[string]model.Ticket
	summary string
	message string
	skipTag bool
}

type step struct {
	state State
	fn    func(ctx context.Context, rel *release) error
}

// Run performs a release. It returns nil once the tag is created (or would
// have been, in dry-run mode), an *AbortedError when the run stopped early
// on purpose, and any other error when something went wrong.
func (r *Runner) Run(ctx context.Context) error {
	rel := &release{}
	steps := []step{
		{Start, r.start},
		{BranchCheck, r.checkBranch},
		{TagResolve, r.resolveTag},
		{RemoteFreshnessCheck, r.checkRemotes},
		{CommitScan, r.scanCommits},
		{Enrichment, r.enrich},
		{Render, r.render},
		{Confirm, r.confirm},
		{TagCommit, r.createTag},
	}

	for _, s := range steps {
		r.state = s.state
		r.cfg.Debugf("-> %s", s.state)
		if err := s.fn(ctx, rel); err != nil {
			if IsAborted(err) {
				r.state = Aborted
			}
			return err
		}
	}
	r.state = Done
	return nil
}

func (r *Runner) abort(format string, args ...interface{}) error {
	return &AbortedError{State: r.state, Reason: fmt.Sprintf(format, args...)}
}

func (r *Runner) start(ctx context.Context, rel *release) error {
	root, err := r.vcs.RepoRoot(ctx)
	if err != nil {
		return err
	}
	rel.root = root
	rel.project = ProjectName(r.cfg.Settings, root)
	r.cfg.Debugf("repository %s (project %q)", root, rel.project)
	return nil
}

func (r *Runner) checkBranch(ctx context.Context, rel *release) error {
	branch, err := r.vcs.CurrentBranch(ctx)
	if err != nil {
		return fmt.Errorf("read current branch: %w", err)
	}
	rel.branch = branch

	if r.cfg.Settings.IsDefaultBranch(branch) {
		r.cfg.Debugf("on default branch %s", branch)
		return nil
	}
	if r.cfg.Force {
		r.cfg.Debugf("not on a default branch (%s), continuing because of --force", branch)
		return nil
	}

	r.cfg.Warnf("Warning: You are not on a default branch. Current branch: %s", branch)
	r.cfg.Printf("Default branches: %s", strings.Join(r.cfg.Settings.DefaultBranches, ", "))
	ok, err := r.cfg.Confirm("Do you want to proceed anyway?")
	if err != nil {
		return err
	}
	if !ok {
		return r.abort("Operation cancelled.")
	}
	return nil
}

func (r *Runner) resolveTag(ctx context.Context, rel *release) error {
	tags, err := r.vcs.ReadTags(ctx)
	if err != nil {
		return fmt.Errorf("read tags: %w", err)
	}

	// the reference point must be an ancestor of HEAD.
	merged, err := r.vcs.MergedTags(ctx)
	if err != nil {
		return fmt.Errorf("read tags: %w", err)
	}
	rel.latest = commit.LatestTag(merged)
	if rel.latest == nil {
		r.cfg.Printf("No previous tags found.")
	} else {
		r.cfg.Printf("Previous release: %s", rel.latest.Name)
	}

	names := make([]string, len(tags))
	exists := make(map[string]bool, len(tags))
	for i, t := range tags {
		names[i] = t.Name
		exists[t.Name] = true
	}

	tag := r.cfg.Tag
	if tag == "" {
		tag, err = commit.NextTag(names, r.cfg.Settings.TagFormat, r.now())
		if err != nil {
			return err
		}
	}
	if exists[tag] {
		return r.abort("Tag %q already exists.", tag)
	}
	rel.tag = tag
	r.cfg.Printf("Next tag: %s", tag)
	return nil
}

func (r *Runner) checkRemotes(ctx context.Context, rel *release) error {
	if rel.branch == "" || rel.branch == "HEAD" {
		r.cfg.Debugf("detached HEAD, skipping remote check")
		return nil
	}
	remotes, err := r.vcs.Remotes(ctx)
	if err != nil {
		r.cfg.Debugf("list remotes: %v", err)
		return nil
	}

	for _, remote := range remotes {
		fctx, cancel := context.WithTimeout(ctx, FetchTimeout)
		err := r.vcs.Fetch(fctx, remote)
		cancel()
		if err != nil {
			r.cfg.Debugf("fetch %s: %v", remote, err)
		}

		behind, err := r.vcs.Behind(ctx, remote, rel.branch)
		if err != nil {
			var nferr vcs.NotFoundError
			if !errors.As(err, &nferr) {
				r.cfg.Debugf("compare with %s/%s: %v", remote, rel.branch, err)
			}
			continue
		}
		if behind == 0 {
			continue
		}

		plural := ""
		if behind > 1 {
			plural = "s"
		}
		r.cfg.Printf("\nYour local branch is %d commit%s behind %s/%s.", behind, plural, remote, rel.branch)
		r.cfg.Printf("Updating your branch is recommended to ensure you have the latest changes.")
		if r.cfg.Force {
			r.cfg.Printf("Continuing with local branch state.")
			continue
		}
		ok, err := r.cfg.Confirm("Would you like to update your local branch now?")
		if err != nil {
			return err
		}
		if !ok {
			r.cfg.Printf("Continuing with local branch state.")
			continue
		}

		r.cfg.Printf("Pulling latest changes...")
		if err := r.vcs.Pull(ctx, remote, rel.branch); err != nil {
			r.cfg.Warnf("Failed to update branch: %v", err)
			r.cfg.Printf("Continuing with local branch state.")
			continue
		}
		r.cfg.Printf("Branch updated successfully.")
	}
	return nil
}

func (r *Runner) scanCommits(ctx context.Context, rel *release) error {
	from := ""
	if rel.latest != nil {
		from = rel.latest.Name
	}

	commits, tickets, err := r.scanner.Tickets(ctx, from)
	if err != nil {
		return fmt.Errorf("scan commits: %w", err)
	}
	if len(commits) == 0 {
		if from == "" {
			return r.abort("No commits found. There's nothing to release.")
		}
		return r.abort("No commits found after tag %q. There's nothing to release.", from)
	}
	rel.commits = commits
	rel.tickets = tickets

	head, err := r.vcs.CurrentCommit(ctx)
	if err != nil {
		return err
	}
	rel.head = head

	r.cfg.Printf("\nPreparing release for tag: %s", rel.tag)
	r.cfg.Printf("Commit: %s", head)
	r.cfg.Printf("Commit message: %s", commits[0].Subject)

	if len(tickets) > 0 {
		r.cfg.Printf("\nHere is the list of tickets that were merged after last release:")
		for _, t := range tickets {
			r.cfg.Printf("- %s", t)
		}
	} else {
		r.cfg.Printf("\nNo tickets found in commits after the last release.")
	}

	if r.cfg.Verbose {
		re, err := r.cfg.Settings.TicketRE()
		if err != nil {
			return err
		}
		b := &bytes.Buffer{}
		if err := ReleaseStats(commits, re).TextSummary(b); err != nil {
			return err
		}
		r.cfg.Debugf("\n%s", strings.TrimRight(b.String(), "\n"))
	}
	return nil
}

func (r *Runner) enrich(ctx context.Context, rel *release) error {
	if r.connector != nil && len(rel.tickets) > 0 {
		r.cfg.Printf("\nFetching ticket details from %s...", r.connector.Name())
		rel.details = r.connector.TicketDetails(ctx, rel.tickets)
		if len(rel.details) == 0 {
			r.cfg.Warnf("Could not connect to %s, using ticket identifiers only.", r.connector.Name())
		}
	}

	if r.summarizer != nil {
		lines := summaryLines(rel)
		if len(lines) > 0 {
			r.cfg.Printf("Generating summary...")
			s, err := r.summarizer.Summarize(ctx, lines)
			if err != nil {
				r.cfg.Warnf("Error generating summary: %v", err)
			} else {
				rel.summary = s
			}
		}
	}
	return nil
}

// summaryLines are the ticket titles, or the commit subjects when no ticket
// has a usable title.
func summaryLines(rel *release) []string {
	var lines []string
	for _, id := range rel.tickets {
		t, ok := rel.details[id]
		if !ok || t.Title == "" || t.Status == connector.StatusError || t.Title == connector.StatusUnknown {
			continue
		}
		lines = append(lines, t.Title)
	}
	if len(lines) > 0 {
		return lines
	}
	for _, c := range rel.commits {
		lines = append(lines, c.Subject)
	}
	return lines
}

func (r *Runner) render(ctx context.Context, rel *release) error {
	format := r.cfg.MessageFormat()
	tmpl, err := render.LoadTemplate(config.ExpandHome(r.cfg.Settings.TemplatesDir), format)
	if err != nil {
		r.cfg.Warnf("Warning: could not read %s template, using the built-in one: %v", format, err)
	}

	rel.message = render.Render(tmpl, render.Data{
		ProjectName: rel.project,
		TagName:     rel.tag,
		Tickets:     rel.tickets,
		Details:     rel.details,
		Summary:     rel.summary,
	})

	r.cfg.Printf("\nGenerated Release Message:")
	r.cfg.Printf(ruler)
	r.cfg.Printf("%s", rel.message)
	r.cfg.Printf(ruler)
	return nil
}

func (r *Runner) confirm(ctx context.Context, rel *release) error {
	if r.cfg.Dryrun {
		r.cfg.Printf("\nDry run: would create tag %s at %s", rel.tag, model.ShortID(rel.head))
		rel.skipTag = true
		return nil
	}
	if r.cfg.Force {
		return nil
	}

	ok, err := r.cfg.Confirm(fmt.Sprintf("Create tag %s at %s?", rel.tag, model.ShortID(rel.head)))
	if err != nil {
		return err
	}
	if !ok {
		return r.abort("Tag creation cancelled.")
	}
	return nil
}

func (r *Runner) createTag(ctx context.Context, rel *release) error {
	if rel.skipTag {
		return nil
	}

	b := &bytes.Buffer{}
	if err := annotation(b, rel.tag, rel.message); err != nil {
		return err
	}
	msg := b.String()
	r.cfg.Debugf("annotation:\n\n---\n%s", msg)

	r.cfg.Printf("\nCreating new tag: %s", rel.tag)
	if err := r.vcs.CreateTag(ctx, rel.head, rel.tag, vcs.TagOpts{Message: msg}); err != nil {
		return fmt.Errorf("create tag %s: %w", rel.tag, err)
	}
	r.cfg.Headerf("Tag %s created successfully", rel.tag)

	r.cfg.Printf("\nTo create a GitHub release, use the following information:")
	r.cfg.Printf("Tag: %s", rel.tag)
	r.cfg.Printf("Title: Release %s", rel.tag)
	r.cfg.Printf("Description: Use the generated release message above")
	return nil
}

// ProjectName is the configured project name, or else the repository
// directory's name, replaced by its alias if it has one.
func ProjectName(s config.Settings, root string) string {
	if s.ProjectName != "" {
		return s.ProjectName
	}
	name := filepath.Base(filepath.Clean(root))
	if root == "" || name == "." || name == string(filepath.Separator) {
		return UnknownProject
	}
	if alias, ok := s.ProjectAliases[name]; ok && alias != "" {
		return alias
	}
	return name
}
