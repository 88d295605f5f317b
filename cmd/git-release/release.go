package main

import (
	"context"
	"os/exec"
	"path/filepath"

	"github.com/jeffrom/git-release/config"
	"github.com/jeffrom/git-release/runner"
	"github.com/jeffrom/git-release/vcs"
	"github.com/jeffrom/git-release/vcs/gitcli"
	"github.com/jeffrom/git-release/vcs/gogit"
)

func runRelease(ctx context.Context, o *options, tio config.TerminalIO) error {
	if o.version {
		printVersion(tio)
		return nil
	}

	cfg, rep := loadConfig(o, tio)
	if o.showConfig {
		return showConfig(cfg, rep)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	backend, err := newVCS(cfg, o.wd)
	if err != nil {
		return err
	}
	r, err := runner.New(cfg, backend)
	if err != nil {
		return err
	}
	return r.Run(ctx)
}

// loadConfig resolves the settings files and applies the command-line
// switches over them. Problems with the files are printed as warnings.
func loadConfig(o *options, tio config.TerminalIO) (config.Config, *config.Report) {
	paths := config.DefaultPaths()
	if o.configFile != "" {
		paths.Global = config.ExpandHome(o.configFile)
	}
	paths.Local = filepath.Join(o.wd, config.LocalFile)

	settings, rep := config.Resolve(paths)
	overrides := o.cfg
	overrides.Settings = settings
	cfg := config.NewWithTerminalIO(&overrides, &tio)

	for _, w := range rep.Warnings {
		cfg.Warnf("Warning: %v", w)
	}
	if rep.GlobalCreated {
		cfg.Printf("Created default settings at %s", paths.Global)
	}
	for _, p := range rep.Templates {
		cfg.Debugf("created template %s", p)
	}
	if trackers := config.VariantNames(cfg.Settings.Connectors.Trackers); len(trackers) > 0 {
		cfg.Debugf("configured trackers: %v (using %q)", trackers, cfg.Settings.Connectors.Type)
	}
	return cfg, rep
}

func showConfig(cfg config.Config, rep *config.Report) error {
	global := string(rep.GlobalContent)
	if rep.GlobalContent == nil {
		defaults, err := config.GetDefault().YAML()
		if err != nil {
			return err
		}
		global = defaults
	}

	cfg.Headerf("Global settings: %s", rep.Paths.Global)
	cfg.Term.Printf("%s\n", trimNewline(global))
	if rep.LocalFound {
		cfg.Headerf("\nLocal settings: %s", rep.Paths.Local)
		cfg.Term.Printf("%s\n", trimNewline(string(rep.LocalContent)))
	}

	effective, err := cfg.Settings.YAML()
	if err != nil {
		return err
	}
	cfg.Headerf("\nEffective settings:")
	cfg.Term.Printf("%s\n", trimNewline(effective))
	return nil
}

// newVCS picks the repository backend. The git command is preferred unless
// go-git is configured or git isn't installed.
func newVCS(cfg config.Config, wd string) (vcs.Interface, error) {
	if cfg.Settings.VCS != config.VCSGoGit {
		if _, err := exec.LookPath("git"); err == nil {
			return gitcli.New(cfg, wd), nil
		}
		cfg.Debugf("git not found in PATH, using go-git")
	}
	g, err := gogit.New(cfg, wd)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func trimNewline(s string) string {
	for len(s) > 0 && s[len(s)-1] == '\n' {
		s = s[:len(s)-1]
	}
	return s
}
