package vcs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strings"
)

var (
	safeArgPattern   = regexp.MustCompile(`^[a-z][a-z-]*$`)
	credentialURL    = regexp.MustCompile(`https?://[^\s@]+@`)
	credentialParams = regexp.MustCompile(`(?i)(token|secret|password|passwd|bearer)=[^\s]+`)
)

// Runner abstracts executing git commands
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) (string, error)
	Stream(ctx context.Context, dir string, w io.Writer, args ...string) error
}

// ExecRunner executes the configured git binary
type ExecRunner struct {
	GitBin string
}

// NewExecRunner falls back to "git" on $PATH when gitBin is empty
func NewExecRunner(gitBin string) *ExecRunner {
	if strings.TrimSpace(gitBin) == "" {
		gitBin = "git"
	}
	return &ExecRunner{GitBin: gitBin}
}

// Run executes git and returns its stdout
func (e *ExecRunner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	var out bytes.Buffer
	if err := e.Stream(ctx, dir, &out, args...); err != nil {
		return "", err
	}
	return out.String(), nil
}

// Stream executes git writing stdout to w
func (e *ExecRunner) Stream(ctx context.Context, dir string, w io.Writer, args ...string) error {
	cmd := exec.CommandContext(ctx, e.GitBin, args...)
	if strings.TrimSpace(dir) != "" {
		cmd.Dir = dir
	}
	var errb bytes.Buffer
	cmd.Stdout = w
	cmd.Stderr = &errb
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(errb.String())
		if msg == "" {
			msg = err.Error()
		}
		return &CommandError{Op: sanitizeArgs(args), Stderr: redactTokens(msg)}
	}
	return nil
}

// CommandError is a failed git invocation
type CommandError struct {
	Op     string
	Stderr string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("git %s: %s", e.Op, e.Stderr)
}

// sanitizeArgs keeps at most the first two subcommand tokens that look like
// plain words, so paths and URLs never reach error messages.
func sanitizeArgs(args []string) string {
	if len(args) == 0 {
		return "<no-args>"
	}
	safe := make([]string, 0, 2)
	for _, a := range args {
		if !safeArgPattern.MatchString(a) {
			break
		}
		safe = append(safe, a)
		if len(safe) == 2 {
			break
		}
	}
	if len(safe) == 0 {
		return "<redacted>"
	}
	return strings.Join(safe, " ")
}

// redactTokens removes obvious credential substrings from messages
func redactTokens(s string) string {
	s = credentialURL.ReplaceAllString(s, "https://<redacted>@")
	s = credentialParams.ReplaceAllString(s, "$1=<redacted>")
	return s
}
