package commit

import (
	"context"

	"github.com/jeffrom/git-release/config"
	"github.com/jeffrom/git-release/model"
	"github.com/jeffrom/git-release/vcs"
)

// Scanner reads the commits that make up a release.
type Scanner struct {
	cfg config.Config
	vcs vcs.Interface
}

func NewScanner(cfg config.Config, vcs vcs.Interface) *Scanner {
	return &Scanner{
		cfg: cfg,
		vcs: vcs,
	}
}

// CommitsSince returns the commits reachable from HEAD but not from the
// reference from, newest first. An empty from returns every commit reachable
// from HEAD.
func (s *Scanner) CommitsSince(ctx context.Context, from string) ([]*model.Commit, error) {
	commits, err := s.vcs.ReadCommits(ctx, from)
	if err != nil {
		return nil, err
	}
	if from == "" {
		s.cfg.Debugf("read %d commits", len(commits))
	} else {
		s.cfg.Debugf("read %d commits since %s", len(commits), from)
	}
	return commits, nil
}

// Tickets scans the commits since from for ticket references.
func (s *Scanner) Tickets(ctx context.Context, from string) ([]*model.Commit, []string, error) {
	re, err := s.cfg.Settings.TicketRE()
	if err != nil {
		return nil, nil, err
	}
	commits, err := s.CommitsSince(ctx, from)
	if err != nil {
		return nil, nil, err
	}
	return commits, ExtractTickets(commits, re), nil
}
