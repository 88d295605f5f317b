// Package gitrelease creates date-based release tags annotated with the
// tickets referenced by commits since the previous release.
//
// Related packages: config, commit, connector, render, runner, model, vcs,
// vcs/gitcli, vcs/gogit, summary
package gitrelease

import (
	"github.com/blang/semver/v4"

	"github.com/jeffrom/git-release/config"
)

// Version is overridden by go build -X.
var Version string

// Settings holds the merged contents of the global and local settings files.
//
// See "go doc github.com/jeffrom/git-release/config Settings" for more
// information.
type Settings = config.Settings

// VersionString returns Version normalized as a semantic version, or "dev"
// for builds that weren't stamped with one.
func VersionString() string {
	v, err := semver.ParseTolerant(Version)
	if err != nil {
		return "dev"
	}
	return v.String()
}
