package config

import (
	"bytes"
	"strings"
	"testing"
)

func TestConfig(t *testing.T) {
	cfg := New(nil)
	if len(cfg.Settings.DefaultBranches) != 2 {
		t.Fatalf("expected %d default branches, got %d", 2, len(cfg.Settings.DefaultBranches))
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestConfigOverrides(t *testing.T) {
	cfg := New(&Config{
		Force:  true,
		Format: FormatPlain,
		Settings: Settings{
			TagFormat: "vYY.MM.N",
		},
	})
	if !cfg.Force {
		t.Fatal("expected force to be set")
	}
	if cfg.Settings.TagFormat != "vYY.MM.N" {
		t.Fatalf("expected tag format override, got %q", cfg.Settings.TagFormat)
	}
	if cfg.Settings.TicketPattern != GetDefault().TicketPattern {
		t.Fatalf("expected default ticket pattern, got %q", cfg.Settings.TicketPattern)
	}
	if f := cfg.MessageFormat(); f != FormatPlain {
		t.Fatalf("expected --format to win, got %q", f)
	}
}

func TestConfigInvalidFormat(t *testing.T) {
	cfg := New(&Config{Format: "html"})
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected invalid format to fail validation")
	}
}

func TestConfigOutput(t *testing.T) {
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	term := &TerminalIO{Stdout: stdout, Stderr: stderr}

	cfg := NewWithTerminalIO(&Config{Quiet: true}, term)
	cfg.Printf("hidden")
	cfg.Debugf("hidden")
	cfg.Warnf("careful")
	cfg.Errorf("broken")
	if out := stdout.String(); out != "careful\n" {
		t.Fatalf("expected only the warning on stdout, got %q", out)
	}
	if out := stderr.String(); out != "broken\n" {
		t.Fatalf("expected error on stderr, got %q", out)
	}

	stdout.Reset()
	cfg = NewWithTerminalIO(&Config{Verbose: true}, term)
	cfg.Headerf("Heading %d", 1)
	cfg.Debugf("debug")
	if out := stdout.String(); out != "Heading 1\ndebug\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestConfirm(t *testing.T) {
	tcs := []struct {
		name   string
		input  string
		def    bool
		expect bool
	}{
		{name: "yes", input: "y\n", expect: true},
		{name: "yes-word", input: "YES\n", expect: true},
		{name: "no", input: "n\n", def: true, expect: false},
		{name: "empty-default-no", input: "\n", expect: false},
		{name: "empty-default-yes", input: "\n", def: true, expect: true},
		{name: "eof", input: "", def: true, expect: true},
		{name: "retry", input: "maybe\ny\n", expect: true},
		{name: "no-newline", input: "y", expect: true},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			out := &bytes.Buffer{}
			term := &TerminalIO{Stdin: strings.NewReader(tc.input), Stdout: out}
			res, err := term.Confirm("Proceed?", tc.def)
			if err != nil {
				t.Fatal(err)
			}
			if res != tc.expect {
				t.Fatalf("expected %v, got %v (output: %q)", tc.expect, res, out.String())
			}
		})
	}
}

func TestConfirmLeavesRemainingInput(t *testing.T) {
	in := strings.NewReader("y\nn\n")
	term := &TerminalIO{Stdin: in, Stdout: &bytes.Buffer{}}

	first, _ := term.Confirm("first?", false)
	second, _ := term.Confirm("second?", true)
	if !first || second {
		t.Fatalf("expected answers true, false; got %v, %v", first, second)
	}
}
