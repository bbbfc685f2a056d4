// Package remote provides synchronous command execution on the router host.
// The whole management protocol is a single blocking channel: run a shell
// command, get back its exit status and captured output. Any transport that
// can do that (SSH, local subprocess) satisfies Executor.
package remote

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Result is the outcome of one remote command.
type Result struct {
	ExitStatus int
	Stdout     string
	Stderr     string
}

// runOptions collects per-command settings.
type runOptions struct {
	timeout      time.Duration
	ignoreStatus bool
}

// RunOption customizes a single Run call.
type RunOption func(*runOptions)

// WithTimeout bounds the command; on expiry Run returns an error.
func WithTimeout(d time.Duration) RunOption {
	return func(o *runOptions) { o.timeout = d }
}

// IgnoreStatus makes a non-zero exit status a normal Result instead of an
// error. Transport failures still error.
func IgnoreStatus() RunOption {
	return func(o *runOptions) { o.ignoreStatus = true }
}

// Executor runs shell commands on the router host.
type Executor interface {
	Run(ctx context.Context, cmd string, opts ...RunOption) (Result, error)
	Close() error
}

// applyOptions folds opts into a runOptions with defaults.
func applyOptions(opts []RunOption) runOptions {
	var o runOptions
	for _, op := range opts {
		op(&o)
	}
	return o
}

// WriteFile writes content to a remote path through the command channel,
// using the same heredoc form the daemon config files are written with.
func WriteFile(ctx context.Context, ex Executor, path, content string) error {
	cmd := fmt.Sprintf("cat <<EOF >%s\n%s\nEOF\n", path, strings.TrimRight(content, "\n"))
	if _, err := ex.Run(ctx, cmd); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadFile fetches a remote file's contents.
func ReadFile(ctx context.Context, ex Executor, path string) (string, error) {
	res, err := ex.Run(ctx, "cat "+path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return res.Stdout, nil
}

// FileExists reports whether a remote path exists.
func FileExists(ctx context.Context, ex Executor, path string) bool {
	res, err := ex.Run(ctx, "test -e "+path, IgnoreStatus())
	return err == nil && res.ExitStatus == 0
}
