// Command git-release creates date-based release tags annotated with a
// message listing the tickets merged since the previous release.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	gitrelease "github.com/jeffrom/git-release"
	"github.com/jeffrom/git-release/config"
	"github.com/jeffrom/git-release/runner"
	"github.com/jeffrom/git-release/vcs"
)

func main() {
	wd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	tio := config.DefaultTermIO
	os.Exit(report(run(context.Background(), os.Args[1:], wd, tio), tio))
}

// options are the command-line switches shared by every command.
type options struct {
	cfg        config.Config
	wd         string
	configFile string
	showConfig bool
	version    bool
}

func run(ctx context.Context, args []string, wd string, tio config.TerminalIO) error {
	if args == nil {
		args = []string{}
	}
	cmd := newRootCmd(wd, tio)
	cmd.SetArgs(args)
	cmd.SetIn(tio.Stdin)
	cmd.SetOut(tio.Stdout)
	cmd.SetErr(tio.Stderr)
	return cmd.ExecuteContext(ctx)
}

func newRootCmd(wd string, tio config.TerminalIO) *cobra.Command {
	o := &options{wd: wd}

	root := &cobra.Command{
		Use:   "git-release",
		Short: "Create release tags with a message listing the tickets since the last release",
		Long: `git-release names the next release tag from a date-based format, collects
the ticket references from the commits since the previous tag, optionally
looks them up in a ticket tracker, and creates an annotated tag carrying the
rendered release message.

Running git-release without a command is the same as "git-release release".`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelease(cmd.Context(), o, tio)
		},
	}
	pflags := root.PersistentFlags()
	pflags.BoolVarP(&o.cfg.Verbose, "verbose", "v", false, "print additional debugging info")
	pflags.BoolVarP(&o.cfg.Quiet, "quiet", "q", false, "print as little as necessary")
	pflags.StringVarP(&o.configFile, "config", "c", "", "use global settings `file`")
	root.Flags().BoolVarP(&o.version, "version", "V", false, "print version and exit")
	addReleaseFlags(root.Flags(), o)

	release := &cobra.Command{
		Use:   "release",
		Short: "Tag a release (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelease(cmd.Context(), o, tio)
		},
	}
	addReleaseFlags(release.Flags(), o)

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write " + config.LocalFile + " for the current project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd.Context(), o, tio)
		},
	}

	root.AddCommand(release, initCmd)
	return root
}

func addReleaseFlags(flags *pflag.FlagSet, o *options) {
	flags.StringVar(&o.cfg.Tag, "tag", "", "create the tag `name` instead of generating one")
	flags.BoolVarP(&o.cfg.Force, "force", "f", false, "skip branch validation and confirmation")
	flags.BoolVar(&o.showConfig, "show-config", false, "print settings files and the effective settings, then exit")
	flags.StringVar(&o.cfg.Format, "format", "", "release message `format` (markdown or plain), overrides message_format")
	flags.BoolVarP(&o.cfg.Dryrun, "dry-run", "n", false, "don't create the tag")
}

// report prints the outcome of a run and returns the process exit code.
func report(err error, tio config.TerminalIO) int {
	if err == nil {
		return 0
	}

	var aerr *runner.AbortedError
	switch {
	case errors.As(err, &aerr):
		tio.Printf("%s\n", aerr.Reason)
		return 0
	case errors.Is(err, vcs.ErrNotRepository):
		tio.Eprintf("Current directory is not a git repository.\n")
		return 1
	default:
		tio.Eprintf("Error: %v\n", err)
		return 1
	}
}

func printVersion(tio config.TerminalIO) {
	tio.Printf("%s\n", gitrelease.VersionString())
}
