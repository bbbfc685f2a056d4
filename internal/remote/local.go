package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// LocalExecutor runs commands through the local shell. Used for
// self-hosted rigs where the AP daemons run on the same machine, and by
// tests.
type LocalExecutor struct {
	// Shell defaults to /bin/sh.
	Shell string
}

func (e *LocalExecutor) shell() string {
	if e.Shell != "" {
		return e.Shell
	}
	return "/bin/sh"
}

// Run executes cmd via `sh -c`.
func (e *LocalExecutor) Run(ctx context.Context, cmd string, opts ...RunOption) (Result, error) {
	o := applyOptions(opts)
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	c := exec.CommandContext(ctx, e.shell(), "-c", cmd)
	// Cancellation kills only the shell; a forked child keeps the output
	// pipes open and would block Run past the deadline without this.
	c.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr
	err := c.Run()

	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		if ctx.Err() != nil {
			return res, fmt.Errorf("command %q: %w", cmd, ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitStatus = exitErr.ExitCode()
			if o.ignoreStatus {
				return res, nil
			}
			return res, fmt.Errorf("command %q exited %d: %s", cmd, res.ExitStatus, stderr.String())
		}
		return res, fmt.Errorf("command %q: %w", cmd, err)
	}
	return res, nil
}

func (e *LocalExecutor) Close() error { return nil }
