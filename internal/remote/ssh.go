package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/crypto/ssh"
)

// SSHConfig describes how to reach the router host.
type SSHConfig struct {
	Addr           string // host:port
	User           string
	Password       string
	KeyFile        string
	ConnectTimeout time.Duration
}

// SSHExecutor runs commands over one SSH connection, one session per
// command.
type SSHExecutor struct {
	client *ssh.Client
}

// DialSSH connects to the router host.
func DialSSH(cfg SSHConfig) (*SSHExecutor, error) {
	var auth []ssh.AuthMethod
	if cfg.KeyFile != "" {
		key, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("read key file: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("parse key file: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if cfg.Password != "" {
		auth = append(auth, ssh.Password(cfg.Password))
	}
	timeout := cfg.ConnectTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	clientCfg := &ssh.ClientConfig{
		User: cfg.User,
		Auth: auth,
		// Lab router hosts are reinstalled often; their host keys churn.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         timeout,
	}
	client, err := ssh.Dial("tcp", cfg.Addr, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.Addr, err)
	}
	return &SSHExecutor{client: client}, nil
}

// Run executes cmd in a fresh session and captures its output.
func (e *SSHExecutor) Run(ctx context.Context, cmd string, opts ...RunOption) (Result, error) {
	o := applyOptions(opts)
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	sess, err := e.client.NewSession()
	if err != nil {
		return Result{}, fmt.Errorf("new session: %w", err)
	}
	defer sess.Close()

	var stdout, stderr bytes.Buffer
	sess.Stdout = &stdout
	sess.Stderr = &stderr

	done := make(chan error, 1)
	go func() { done <- sess.Run(cmd) }()

	select {
	case <-ctx.Done():
		// Closing the session unblocks the Run goroutine.
		sess.Close()
		<-done
		return Result{}, fmt.Errorf("command %q: %w", cmd, ctx.Err())
	case err = <-done:
	}

	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			res.ExitStatus = exitErr.ExitStatus()
			if o.ignoreStatus {
				return res, nil
			}
			return res, fmt.Errorf("command %q exited %d: %s", cmd, res.ExitStatus, stderr.String())
		}
		return res, fmt.Errorf("command %q: %w", cmd, err)
	}
	return res, nil
}

// Close tears down the SSH connection.
func (e *SSHExecutor) Close() error {
	return e.client.Close()
}
