package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

type TerminalIO struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Styled enables bold headings and colored warnings.
	Styled bool
}

var DefaultTermIO = TerminalIO{
	Stdin:  os.Stdin,
	Stdout: os.Stdout,
	Stderr: os.Stderr,
	Styled: isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()),
}

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

func (t *TerminalIO) Printf(msg string, args ...interface{}) {
	fmt.Fprintf(t.Stdout, msg, args...)
}

func (t *TerminalIO) Eprintf(msg string, args ...interface{}) {
	fmt.Fprintf(t.Stderr, msg, args...)
}

func (t *TerminalIO) header(msg string, args ...interface{}) string {
	s := fmt.Sprintf(msg, args...)
	if !t.Styled {
		return s
	}
	return headerStyle.Render(s)
}

func (t *TerminalIO) warning(msg string, args ...interface{}) string {
	s := fmt.Sprintf(msg, args...)
	if !t.Styled {
		return s
	}
	return warningStyle.Render(s)
}

// Confirm prints question and reads a yes/no answer from Stdin, asking again
// until the answer is recognized. An empty answer, or end of input, picks
// def.
func (t *TerminalIO) Confirm(question string, def bool) (bool, error) {
	choices := "[y/N]"
	if def {
		choices = "[Y/n]"
	}
	for {
		t.Printf("%s %s: ", question, choices)
		line, err := readLine(t.Stdin)
		if err != nil && !errors.Is(err, io.EOF) {
			return false, err
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		case "":
			if err != nil {
				t.Printf("\n")
			}
			return def, nil
		}
		if err != nil {
			return def, nil
		}
		t.Printf("Error: invalid input\n")
	}
}

// readLine reads up to and excluding the next newline one byte at a time, so
// that nothing past the answer is consumed from r.
func readLine(r io.Reader) (string, error) {
	if r == nil {
		return "", io.EOF
	}
	var sb strings.Builder
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if buf[0] == '\n' {
				return sb.String(), nil
			}
			sb.WriteByte(buf[0])
		}
		if err != nil {
			return sb.String(), err
		}
	}
}
