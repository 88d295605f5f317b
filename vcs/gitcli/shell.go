package gitcli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

var CommandContext = exec.CommandContext

// ExecError is returned when a git command exits unsuccessfully.
type ExecError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("exec: git %s failed: %s (%v)", ArgsString(e.Args), strings.TrimSpace(e.Stderr), e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }

func (g *Git) call(ctx context.Context, args []string) ([]byte, error) {
	return g.callEnv(ctx, nil, args)
}

// callEnv runs git with env added to the current environment.
func (g *Git) callEnv(ctx context.Context, env []string, args []string) ([]byte, error) {
	cmd := CommandContext(ctx, "git", args...)
	cmd.Dir = g.wd
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}

	eb := &bytes.Buffer{}
	ob := &bytes.Buffer{}
	cmd.Stderr = eb
	cmd.Stdout = ob

	g.cfg.Debugf("+ git %s", ArgsString(args))
	if err := cmd.Run(); err != nil {
		return nil, &ExecError{Args: args, Stderr: eb.String(), Err: err}
	}
	return ob.Bytes(), nil
}

// ArgsString returns a string suitable for copy/paste into the terminal.
func ArgsString(args []string) string {
	b := &bytes.Buffer{}

	for i, arg := range args {
		if strings.Contains(arg, " ") {
			b.WriteString(`"`)
			b.WriteString(arg)
			b.WriteString(`"`)
		} else {
			b.WriteString(arg)
		}

		if i < len(args)-1 {
			b.WriteString(" ")
		}
	}

	return b.String()
}
