package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

const (
	// AppName names the per-user settings directory.
	AppName = "git-release"

	// LocalFile is the optional per-repository settings file, relative to the
	// working directory.
	LocalFile = ".git-release.yml"

	globalFile = "config.yml"
)

// GlobalDir is the per-user settings directory.
func GlobalDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

func GetDefault() Settings {
	return Settings{
		DefaultBranches:     []string{"main", "master"},
		CommitMessageFormat: "TICKET_NAME: Commit message",
		TicketPattern:       "ALLI-[0-9]+",
		TagFormat:           "YYYYMMDD.N",
		ProjectAliases:      map[string]string{},
		MessageFormat:       FormatMarkdown,
		TemplatesDir:        filepath.Join(GlobalDir(), "templates"),
		VCS:                 VCSCLI,
	}
}
