package cups

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CommandRunner executes one spooler command and returns its combined
// stdout/stderr output. Arguments are passed as an argv list, never
// interpolated into a shell string, so printer names containing quotes
// or spaces cannot break out of the command.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// ExecRunner runs spooler commands via os/exec.
type ExecRunner struct{}

// NewExecRunner creates the default CommandRunner.
func NewExecRunner() *ExecRunner { return &ExecRunner{} }

// Run executes name with args and returns combined output. A non-zero
// exit still returns whatever the tool printed, so callers can inspect
// status text the spooler writes before failing.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		return out.String(), fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return out.String(), nil
}
