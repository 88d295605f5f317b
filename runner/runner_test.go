package runner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jeffrom/git-release/config"
	"github.com/jeffrom/git-release/model"
	"github.com/jeffrom/git-release/vcs"
)

var newYears = time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)

var testCommits = []*model.Commit{
	{ID: "cccccccccccc", Author: "ann", Subject: "ALLI-7 and ALLI-12 duplicate"},
	{ID: "bbbbbbbbbbbb", Author: "bob", Subject: "unrelated change"},
	{ID: "aaaaaaaaaaaa", Author: "ann", Subject: "ALLI-12: fix bug"},
	{ID: "000000000000", Author: "ann", Subject: "initial commit"},
}

type fakeConnector struct {
	details map[string]model.Ticket
	calls   [][]string
}

func (f *fakeConnector) Name() string { return "fake" }

func (f *fakeConnector) ValidateConnection(ctx context.Context) bool { return f.details != nil }

func (f *fakeConnector) TicketDetails(ctx context.Context, ids []string) map[string]model.Ticket {
	f.calls = append(f.calls, ids)
	res := make(map[string]model.Ticket)
	if f.details == nil {
		return res
	}
	for _, id := range ids {
		if t, ok := f.details[id]; ok {
			res[id] = t
		}
	}
	return res
}

type fakeSummarizer struct {
	out   string
	err   error
	lines []string
}

func (f *fakeSummarizer) Summarize(ctx context.Context, lines []string) (string, error) {
	f.lines = lines
	return f.out, f.err
}

type testRun struct {
	cfg    config.Config
	mock   *vcs.Mock
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	runner *Runner
}

func newTestRun(t *testing.T, overrides *config.Config, stdin string, m *vcs.Mock, opts ...Option) *testRun {
	t.Helper()
	if overrides == nil {
		overrides = &config.Config{}
	}
	if overrides.Settings.TemplatesDir == "" {
		overrides.Settings.TemplatesDir = t.TempDir()
	}

	var in io.Reader = strings.NewReader(stdin)
	ob := &bytes.Buffer{}
	eb := &bytes.Buffer{}
	tio := config.TerminalIO{Stdin: in, Stdout: ob, Stderr: eb}
	cfg := config.NewWithTerminalIO(overrides, &tio)

	opts = append([]Option{WithClock(func() time.Time { return newYears })}, opts...)
	rnr, err := New(cfg, m, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return &testRun{cfg: cfg, mock: m, stdout: ob, stderr: eb, runner: rnr}
}

func (tr *testRun) expectOutput(t *testing.T, parts ...string) {
	t.Helper()
	for _, part := range parts {
		if !strings.Contains(tr.stdout.String(), part) {
			t.Errorf("expected output to contain %q, got:\n%s", part, tr.stdout.String())
		}
	}
}

func expectAborted(t *testing.T, err error, state State) {
	t.Helper()
	var aerr *AbortedError
	if !errors.As(err, &aerr) {
		t.Fatalf("expected AbortedError, got %v", err)
	}
	if aerr.State != state {
		t.Fatalf("expected abort at %s, got %s (%s)", state, aerr.State, aerr.Reason)
	}
}

func taggedMock() *vcs.Mock {
	return vcs.NewMock().SetCommits(testCommits...).
		SetTag("20240101.1", "000000000000").
		SetTag("20240101.2", "000000000000")
}

func TestRun(t *testing.T) {
	tr := newTestRun(t, &config.Config{Force: true}, "", taggedMock())

	if err := tr.runner.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if tr.runner.State() != Done {
		t.Errorf("expected state %s, got %s", Done, tr.runner.State())
	}
	if len(tr.mock.CreatedTags) != 1 {
		t.Fatalf("expected 1 tag to be created, got %d", len(tr.mock.CreatedTags))
	}

	created := tr.mock.CreatedTags[0]
	if created.Tag != "20240101.3" {
		t.Errorf("expected tag 20240101.3, got %q", created.Tag)
	}
	if created.Commit != "cccccccccccc" {
		t.Errorf("expected tag at HEAD, got %q", created.Commit)
	}
	expectMsg := "Release 20240101.3\n\n# Deploying mock-project `20240101.3`\n\n## Tickets:\n- ALLI-12\n- ALLI-7\n"
	if created.Opts.Message != expectMsg {
		t.Errorf("expected annotation:\n%q\ngot:\n%q", expectMsg, created.Opts.Message)
	}

	tr.expectOutput(t,
		"Previous release: 20240101.2",
		"Next tag: 20240101.3",
		"Here is the list of tickets that were merged after last release:\n- ALLI-12\n- ALLI-7\n",
		"Generated Release Message:\n==========================\n# Deploying mock-project `20240101.3`",
		"Tag 20240101.3 created successfully",
		"Title: Release 20240101.3",
	)
}

func TestRunNoTags(t *testing.T) {
	m := vcs.NewMock().SetCommits(testCommits[:3]...)
	tr := newTestRun(t, &config.Config{Force: true}, "", m)

	if err := tr.runner.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	tr.expectOutput(t, "No previous tags found.", "Next tag: 20240101.1")
	if len(m.CreatedTags) != 1 || m.CreatedTags[0].Tag != "20240101.1" {
		t.Fatalf("expected tag 20240101.1, got %+v", m.CreatedTags)
	}
	if !strings.Contains(m.CreatedTags[0].Opts.Message, "- ALLI-12\n- ALLI-7") {
		t.Errorf("expected all commits to be scanned, got %q", m.CreatedTags[0].Opts.Message)
	}
}

func TestRunConfirm(t *testing.T) {
	tr := newTestRun(t, nil, "y\n", taggedMock())

	if err := tr.runner.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	tr.expectOutput(t, "Create tag 20240101.3 at cccccccc? [y/N]: ")
	if len(tr.mock.CreatedTags) != 1 {
		t.Fatalf("expected tag to be created, got %+v", tr.mock.CreatedTags)
	}
}

func TestRunConfirmDeclined(t *testing.T) {
	tr := newTestRun(t, nil, "n\n", taggedMock())

	err := tr.runner.Run(context.Background())
	expectAborted(t, err, Confirm)
	if tr.runner.State() != Aborted {
		t.Errorf("expected state %s, got %s", Aborted, tr.runner.State())
	}
	if len(tr.mock.CreatedTags) != 0 {
		t.Fatalf("expected no tags, got %+v", tr.mock.CreatedTags)
	}
	tr.expectOutput(t, "Generated Release Message:")
}

func TestRunBranchCheck(t *testing.T) {
	tcs := []struct {
		name    string
		stdin   string
		force   bool
		aborted bool
	}{
		{name: "declined", stdin: "n\n", aborted: true},
		{name: "default-no", stdin: "\n", aborted: true},
		{name: "accepted", stdin: "y\ny\n"},
		{name: "retry", stdin: "maybe\nyes\ny\n"},
		{name: "force", force: true},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			m := taggedMock().SetBranch("feature")
			tr := newTestRun(t, &config.Config{Force: tc.force}, tc.stdin, m)

			err := tr.runner.Run(context.Background())
			if tc.aborted {
				expectAborted(t, err, BranchCheck)
				if len(m.CreatedTags) != 0 {
					t.Fatalf("expected no tags, got %+v", m.CreatedTags)
				}
				tr.expectOutput(t, "Current branch: feature", "Default branches: main, master")
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if len(m.CreatedTags) != 1 {
				t.Fatalf("expected tag to be created, got %+v", m.CreatedTags)
			}
			if tc.force && strings.Contains(tr.stdout.String(), "Do you want to proceed anyway?") {
				t.Error("expected no branch prompt with --force")
			}
		})
	}
}

func TestRunTagExists(t *testing.T) {
	tr := newTestRun(t, &config.Config{Force: true, Tag: "20240101.2"}, "", taggedMock())

	err := tr.runner.Run(context.Background())
	expectAborted(t, err, TagResolve)
	if len(tr.mock.CreatedTags) != 0 {
		t.Fatalf("expected no tags, got %+v", tr.mock.CreatedTags)
	}
}

func TestRunTagOverride(t *testing.T) {
	tr := newTestRun(t, &config.Config{Force: true, Tag: "hotfix-1"}, "", taggedMock())

	if err := tr.runner.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(tr.mock.CreatedTags) != 1 || tr.mock.CreatedTags[0].Tag != "hotfix-1" {
		t.Fatalf("expected tag hotfix-1, got %+v", tr.mock.CreatedTags)
	}
}

func TestRunTagFormatWithoutSequence(t *testing.T) {
	m := vcs.NewMock().SetCommits(testCommits...).SetTag("2024-01-01", "000000000000")
	tr := newTestRun(t, &config.Config{Force: true, Settings: config.Settings{TagFormat: "YYYY-MM-DD"}}, "", m)

	err := tr.runner.Run(context.Background())
	expectAborted(t, err, TagResolve)
}

func TestRunNoCommits(t *testing.T) {
	m := vcs.NewMock().SetCommits(testCommits...).SetTag("20240101.1", "cccccccccccc")
	tr := newTestRun(t, &config.Config{Force: true}, "", m)

	err := tr.runner.Run(context.Background())
	expectAborted(t, err, CommitScan)
	if !strings.Contains(err.Error(), `No commits found after tag "20240101.1"`) {
		t.Errorf("unexpected abort reason: %v", err)
	}
}

func TestRunScanError(t *testing.T) {
	m := taggedMock()
	m.CommitErr = errors.New("boom")
	tr := newTestRun(t, &config.Config{Force: true}, "", m)

	err := tr.runner.Run(context.Background())
	if err == nil || IsAborted(err) {
		t.Fatalf("expected scan error, got %v", err)
	}
}

func TestRunNotRepository(t *testing.T) {
	m := taggedMock()
	m.NotRepo = true
	tr := newTestRun(t, &config.Config{Force: true}, "", m)

	err := tr.runner.Run(context.Background())
	if !errors.Is(err, vcs.ErrNotRepository) {
		t.Fatalf("expected ErrNotRepository, got %v", err)
	}
}

func TestRunDryrun(t *testing.T) {
	tr := newTestRun(t, &config.Config{Dryrun: true}, "", taggedMock())

	if err := tr.runner.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(tr.mock.CreatedTags) != 0 {
		t.Fatalf("expected no tags in dry run, got %+v", tr.mock.CreatedTags)
	}
	tr.expectOutput(t, "Dry run: would create tag 20240101.3 at cccccccc")
	if tr.runner.State() != Done {
		t.Errorf("expected state %s, got %s", Done, tr.runner.State())
	}
}

func TestRunRemote(t *testing.T) {
	tcs := []struct {
		name      string
		behind    int
		noRef     bool
		stdin     string
		force     bool
		pullErr   error
		expectOut []string
		pulls     int
	}{
		{
			name:      "behind-pull",
			behind:    2,
			stdin:     "y\ny\n",
			expectOut: []string{"Your local branch is 2 commits behind origin/main.", "Pulling latest changes...", "Branch updated successfully."},
			pulls:     1,
		},
		{
			name:      "behind-one-declined",
			behind:    1,
			stdin:     "n\ny\n",
			expectOut: []string{"Your local branch is 1 commit behind origin/main.", "Continuing with local branch state."},
		},
		{
			name:      "pull-fails",
			behind:    3,
			stdin:     "y\ny\n",
			pullErr:   errors.New("not possible to fast-forward"),
			expectOut: []string{"Failed to update branch: not possible to fast-forward", "Continuing with local branch state."},
			pulls:     1,
		},
		{
			name:      "force",
			behind:    1,
			force:     true,
			expectOut: []string{"Continuing with local branch state."},
		},
		{
			name:  "no-ref",
			noRef: true,
			stdin: "y\n",
		},
		{
			name:  "up-to-date",
			stdin: "y\n",
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			m := taggedMock().SetRemote("origin", tc.behind, tc.noRef)
			m.PullErr = tc.pullErr
			m.FetchErr = errors.New("offline")
			tr := newTestRun(t, &config.Config{Force: tc.force}, tc.stdin, m)

			if err := tr.runner.Run(context.Background()); err != nil {
				t.Fatal(err)
			}
			tr.expectOutput(t, tc.expectOut...)
			if m.Pulls != tc.pulls {
				t.Errorf("expected %d pulls, got %d", tc.pulls, m.Pulls)
			}
			if tc.behind == 0 && strings.Contains(tr.stdout.String(), "behind") {
				t.Errorf("expected no freshness prompt, got:\n%s", tr.stdout.String())
			}
			if len(m.CreatedTags) != 1 {
				t.Fatalf("expected the release to continue, got %+v", m.CreatedTags)
			}
		})
	}
}

func TestRunEnrichment(t *testing.T) {
	conn := &fakeConnector{details: map[string]model.Ticket{
		"ALLI-7":  {ID: "ALLI-7", Title: "Fix login", Status: "Done"},
		"ALLI-12": {ID: "ALLI-12", Title: "Add menu"},
	}}
	tr := newTestRun(t, &config.Config{Force: true}, "", taggedMock(), WithConnector(conn))

	if err := tr.runner.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(conn.calls) != 1 {
		t.Fatalf("expected one lookup, got %d", len(conn.calls))
	}
	msg := tr.mock.CreatedTags[0].Opts.Message
	if !strings.Contains(msg, "- ALLI-12: Add menu\n- ALLI-7: Fix login (Done)") {
		t.Errorf("expected enriched tickets, got %q", msg)
	}
	tr.expectOutput(t, "Fetching ticket details from fake...")
}

func TestRunEnrichmentFailure(t *testing.T) {
	plain := newTestRun(t, &config.Config{Force: true}, "", taggedMock(), WithConnector(nil))
	if err := plain.runner.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	failing := newTestRun(t, &config.Config{Force: true}, "", taggedMock(), WithConnector(&fakeConnector{}))
	if err := failing.runner.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	expect := plain.mock.CreatedTags[0].Opts.Message
	got := failing.mock.CreatedTags[0].Opts.Message
	if got == "" || got != expect {
		t.Fatalf("expected failed enrichment to render bare identifiers:\n%q\ngot:\n%q", expect, got)
	}
	failing.expectOutput(t, "Could not connect to fake, using ticket identifiers only.")
}

func TestRunSummary(t *testing.T) {
	dir := t.TempDir()
	tmpl := "[PROJECT_NAME] [TAG_NAME]\n[SUMMARY]\n[TICKETS_LIST]"
	if err := os.WriteFile(filepath.Join(dir, "plain.template"), []byte(tmpl), 0644); err != nil {
		t.Fatal(err)
	}

	conn := &fakeConnector{details: map[string]model.Ticket{
		"ALLI-7":  {ID: "ALLI-7", Title: "Fix login", Status: "Done"},
		"ALLI-12": {ID: "ALLI-12", Title: "Error fetching ticket: boom", Status: "Error"},
	}}
	sum := &fakeSummarizer{out: "Login works again."}
	overrides := &config.Config{
		Force:    true,
		Format:   "plain",
		Settings: config.Settings{TemplatesDir: dir, ProjectName: "Cool Project"},
	}
	tr := newTestRun(t, overrides, "", taggedMock(), WithConnector(conn), WithSummarizer(sum))

	if err := tr.runner.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(sum.lines) != 1 || sum.lines[0] != "Fix login" {
		t.Errorf("expected usable ticket titles to be summarized, got %v", sum.lines)
	}
	expect := "Release 20240101.3\n\nCool Project 20240101.3\nLogin works again.\n- ALLI-12: Error fetching ticket: boom (Error)\n- ALLI-7: Fix login (Done)\n"
	if got := tr.mock.CreatedTags[0].Opts.Message; got != expect {
		t.Errorf("expected:\n%q\ngot:\n%q", expect, got)
	}
}

func TestRunSummaryFailure(t *testing.T) {
	sum := &fakeSummarizer{err: errors.New("rate limited")}
	tr := newTestRun(t, &config.Config{Force: true}, "", taggedMock(), WithSummarizer(sum))

	if err := tr.runner.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(sum.lines) != 3 || sum.lines[0] != "ALLI-7 and ALLI-12 duplicate" {
		t.Errorf("expected commit subjects without ticket titles, got %v", sum.lines)
	}
	tr.expectOutput(t, "Error generating summary: rate limited")
	if len(tr.mock.CreatedTags) != 1 {
		t.Fatal("expected release to continue after summary failure")
	}
}

func TestRunVerbose(t *testing.T) {
	tr := newTestRun(t, &config.Config{Force: true, Verbose: true}, "", taggedMock())

	if err := tr.runner.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	tr.expectOutput(t, "-> branch-check", "-> tag-commit", "3 commits", "annotation:")
}

func TestNewUnknownConnector(t *testing.T) {
	cfg := config.New(&config.Config{Settings: config.Settings{
		Connectors: config.ConnectorSettings{Type: "nope"},
	}})
	if _, err := New(cfg, vcs.NewMock()); err == nil {
		t.Fatal("expected unknown connector error")
	}
}

func TestProjectName(t *testing.T) {
	tcs := []struct {
		name     string
		settings config.Settings
		root     string
		expect   string
	}{
		{name: "basename", root: "/src/cool-project", expect: "cool-project"},
		{name: "trailing-slash", root: "/src/cool-project/", expect: "cool-project"},
		{name: "override", root: "/src/cool-project", settings: config.Settings{ProjectName: "Cool"}, expect: "Cool"},
		{
			name:     "alias",
			root:     "/src/cool-project",
			settings: config.Settings{ProjectAliases: map[string]string{"cool-project": "Cool Project"}},
			expect:   "Cool Project",
		},
		{name: "empty", root: "", expect: UnknownProject},
		{name: "root", root: "/", expect: UnknownProject},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			if got := ProjectName(tc.settings, tc.root); got != tc.expect {
				t.Errorf("expected %q, got %q", tc.expect, got)
			}
		})
	}
}

func TestStateString(t *testing.T) {
	for s := Start; s <= Aborted; s++ {
		if str := s.String(); str == "" || str == "<UNKNOWN>" {
			t.Errorf("state %d has no name", s)
		}
	}
}

func TestRunReferenceTagReachable(t *testing.T) {
	m := vcs.NewMock().SetCommits(
		&model.Commit{ID: "dddddddddddd", Subject: "ALLI-3: newest"},
		&model.Commit{ID: "cccccccccccc", Subject: "ALLI-2: second"},
		&model.Commit{ID: "bbbbbbbbbbbb", Subject: "ALLI-1: first"},
		&model.Commit{ID: "aaaaaaaaaaaa", Subject: "initial commit"},
	).
		SetTag("20240101.1", "aaaaaaaaaaaa").
		SetTag("20240101.2", "cccccccccccc").
		SetBranchTag("hotfix-1", time.Now().Add(time.Hour))
	tr := newTestRun(t, &config.Config{Force: true}, "", m)

	if err := tr.runner.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	tr.expectOutput(t, "Previous release: 20240101.2", "Next tag: 20240101.3")
	msg := tr.mock.CreatedTags[0].Opts.Message
	if !strings.Contains(msg, "- ALLI-3") {
		t.Errorf("expected ALLI-3 in release message, got %q", msg)
	}
	for _, released := range []string{"ALLI-1", "ALLI-2"} {
		if strings.Contains(msg, released) {
			t.Errorf("expected %s from the previous release to be left out, got %q", released, msg)
		}
	}
}

func TestRunSummaryDefaultTemplate(t *testing.T) {
	sum := &fakeSummarizer{out: "Login works again."}
	tr := newTestRun(t, &config.Config{Force: true, Format: "plain"}, "", taggedMock(), WithSummarizer(sum))

	if err := tr.runner.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(sum.lines) == 0 {
		t.Fatal("expected the summarizer to be called")
	}
	msg := tr.mock.CreatedTags[0].Opts.Message
	if !strings.Contains(msg, "- ALLI-7\n\nSummary:\nLogin works again.") {
		t.Errorf("expected summary after the ticket list, got %q", msg)
	}
	tr.expectOutput(t, "Summary:\nLogin works again.")
}

func TestRunFetchTimeout(t *testing.T) {
	m := taggedMock().SetRemote("origin", 0, false).SetRemote("upstream", 0, true)
	tr := newTestRun(t, &config.Config{Force: true}, "", m)

	start := time.Now()
	if err := tr.runner.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(m.Fetches) != 2 {
		t.Fatalf("expected 2 fetches, got %+v", m.Fetches)
	}
	for _, f := range m.Fetches {
		if f.Deadline.IsZero() {
			t.Fatalf("expected fetch of %s to have a deadline", f.Upstream)
		}
		if f.Deadline.Before(start) || f.Deadline.After(time.Now().Add(FetchTimeout)) {
			t.Errorf("expected fetch of %s to time out within %s, got deadline %s", f.Upstream, FetchTimeout, f.Deadline)
		}
	}
}

func TestRunProjectFromRoot(t *testing.T) {
	m := taggedMock().SetRoot("/src/cool-project")
	overrides := &config.Config{
		Force:    true,
		Format:   "plain",
		Settings: config.Settings{ProjectAliases: map[string]string{"cool-project": "Cool Project"}},
	}
	tr := newTestRun(t, overrides, "", m)

	if err := tr.runner.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	msg := tr.mock.CreatedTags[0].Opts.Message
	if !strings.Contains(msg, "Deploying Cool Project 20240101.3") {
		t.Errorf("expected aliased project name, got %q", msg)
	}
}

func TestRunEmptyRepository(t *testing.T) {
	tr := newTestRun(t, &config.Config{Force: true}, "", vcs.NewMock())

	err := tr.runner.Run(context.Background())
	expectAborted(t, err, CommitScan)
	tr.expectOutput(t, "No previous tags found.")
}
