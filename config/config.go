package config

import (
	"github.com/imdario/mergo"
)

// Config holds the settings for a single run along with the command-line
// switches that apply to it.
type Config struct {
	Verbose  bool       `json:"verbose,omitempty"`
	Quiet    bool       `json:"quiet,omitempty"`
	Dryrun   bool       `json:"dryrun,omitempty"`
	Force    bool       `json:"force,omitempty"`
	Tag      string     `json:"tag,omitempty"`
	Format   string     `json:"format,omitempty"`
	Settings Settings   `json:"settings"`
	Term     TerminalIO `json:"-"`
}

func New(overrides *Config) Config {
	return NewWithTerminalIO(overrides, nil)
}

func NewWithTerminalIO(overrides *Config, termio *TerminalIO) Config {
	cfg := Config{Settings: GetDefault()}
	if overrides != nil {
		o := *overrides
		settings, err := Merge(cfg.Settings, o.Settings)
		if err != nil {
			panic(err)
		}
		o.Settings = Settings{}
		if err := mergo.Merge(&cfg, o, mergo.WithOverride); err != nil {
			panic(err)
		}
		cfg.Settings = settings
	}

	if termio == nil {
		termio = &DefaultTermIO
	}
	cfg.Term = *termio
	return cfg
}

// MessageFormat is the --format override if given, otherwise the configured
// message_format.
func (c Config) MessageFormat() string {
	if c.Format != "" {
		return c.Format
	}
	return c.Settings.MessageFormat
}

func (c Config) Validate() error {
	if c.Format != "" {
		if err := ValidateFormat(c.Format); err != nil {
			return err
		}
	}
	return c.Settings.Validate()
}

func (c Config) Printf(msg string, args ...interface{}) {
	if c.Quiet {
		return
	}
	c.Term.Printf(msg+"\n", args...)
}

func (c Config) Errorf(msg string, args ...interface{}) {
	c.Term.Eprintf(msg+"\n", args...)
}

func (c Config) Debugf(msg string, args ...interface{}) {
	if !c.Verbose {
		return
	}
	c.Printf(msg, args...)
}

// Headerf prints a section heading, bold when writing to a terminal.
func (c Config) Headerf(msg string, args ...interface{}) {
	if c.Quiet {
		return
	}
	c.Term.Printf("%s\n", c.Term.header(msg, args...))
}

// Warnf prints a warning. Warnings are shown even in quiet mode.
func (c Config) Warnf(msg string, args ...interface{}) {
	c.Term.Printf("%s\n", c.Term.warning(msg, args...))
}

// Confirm asks a yes/no question on the terminal. The default answer is no.
func (c Config) Confirm(question string) (bool, error) {
	return c.Term.Confirm(question, false)
}
