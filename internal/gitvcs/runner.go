package gitvcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/starford/othala/internal/apperr"
)

// Result carries the outcome of one git invocation. A nonzero exit code
// is reported through Code, not through an error; errors are reserved for
// infrastructure failures (missing binary, timeout).
type Result struct {
	Stdout string
	Stderr string
	Code   int
}

// Runner executes the external git tool. The subprocess boundary is an
// interface so tests can stub invocations without git on PATH.
type Runner interface {
	Run(ctx context.Context, timeout time.Duration, args ...string) (Result, error)
}

// execRunner invokes git as a subprocess in the vault directory.
type execRunner struct {
	dir string
}

// NewRunner creates the subprocess Runner rooted at dir.
func NewRunner(dir string) Runner {
	return &execRunner{dir: dir}
}

func (r *execRunner) Run(ctx context.Context, timeout time.Duration, args ...string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return Result{}, fmt.Errorf("gitvcs: git %s: %w", args[0], apperr.ErrTimeout)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Result{
				Stdout: stdout.String(),
				Stderr: stderr.String(),
				Code:   exitErr.ExitCode(),
			}, nil
		}
		if errors.Is(err, exec.ErrNotFound) {
			return Result{}, fmt.Errorf("gitvcs: git not found: %w", apperr.ErrToolUnavailable)
		}
		return Result{}, fmt.Errorf("gitvcs: git %s: %w", args[0], err)
	}
	return Result{Stdout: stdout.String(), Stderr: stderr.String()}, nil
}
