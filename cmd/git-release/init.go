package main

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"

	"github.com/jeffrom/git-release/config"
	"github.com/jeffrom/git-release/runner"
	"github.com/jeffrom/git-release/vcs"
)

// runInit writes the local settings file with the detected project name.
// An existing file is left alone.
func runInit(ctx context.Context, o *options, tio config.TerminalIO) error {
	cfg, _ := loadConfig(o, tio)

	root := o.wd
	backend, err := newVCS(cfg, o.wd)
	if err == nil {
		if r, rerr := backend.RepoRoot(ctx); rerr == nil {
			root = r
		} else if !errors.Is(rerr, vcs.ErrNotRepository) {
			return rerr
		}
	} else if !errors.Is(err, vcs.ErrNotRepository) {
		return err
	}

	settings := cfg.Settings
	settings.ProjectName = ""
	name := runner.ProjectName(settings, root)

	p := filepath.Join(o.wd, config.LocalFile)
	if err := config.WriteLocal(p, name); err != nil {
		if errors.Is(err, fs.ErrExist) {
			cfg.Printf("%s already exists, leaving it unchanged.", p)
			return nil
		}
		return err
	}
	cfg.Printf("Created %s for project %q.", p, name)
	cfg.Printf("Set connectors.type to enable ticket details.")
	return nil
}
