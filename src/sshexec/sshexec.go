package sshexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/melbahja/goph"
	"golang.org/x/crypto/ssh"
)

// Runner executes shell commands on a remote host. Keep it narrow so the
// LVM client stays mockable without a real SSH server.
type Runner interface {
	// Run executes command and returns its combined output. A command that
	// reached the host and exited non-zero is reported as *ExitError.
	Run(ctx context.Context, command string) ([]byte, error)
	// Stream executes command, copying its stdout into out as it is
	// produced. The returned error reflects the remote exit status or a
	// local write failure.
	Stream(ctx context.Context, command string, out io.Writer) error
	Close() error
}

// ExitError reports a command that was dispatched and exited non-zero on
// the remote host, as opposed to one that could not be dispatched at all.
type ExitError struct {
	Status int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("remote command exited with status %d", e.Status)
}

// wrapExit converts the underlying ssh exit error so callers can tell a
// non-zero exit from a transport failure without depending on x/crypto.
func wrapExit(err error) error {
	var ee *ssh.ExitError
	if errors.As(err, &ee) {
		return &ExitError{Status: ee.ExitStatus()}
	}
	return err
}

// Options configure an SSH connection.
type Options struct {
	Host    string
	Port    uint
	User    string
	KeyPath string        // private key; SSH agent is tried when empty or missing
	Timeout time.Duration // dial and per-command timeout; zero means none
}

// Client is the goph-backed Runner. Host keys are deliberately not
// verified: the tool targets hosts named explicitly on the command line
// and must never block on an interactive known-hosts prompt.
type Client struct {
	ssh     *goph.Client
	timeout time.Duration
}

// Connect dials the remote host.
func Connect(opts Options) (*Client, error) {
	auth, err := resolveAuth(opts.KeyPath)
	if err != nil {
		return nil, err
	}
	cl, err := goph.NewConn(&goph.Config{
		User:     opts.User,
		Addr:     opts.Host,
		Port:     opts.Port,
		Auth:     auth,
		Timeout:  opts.Timeout,
		Callback: ssh.InsecureIgnoreHostKey(),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to %s@%s:%d: %w", opts.User, opts.Host, opts.Port, err)
	}
	return &Client{ssh: cl, timeout: opts.Timeout}, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return ctx, func() {}
}

func resolveAuth(keyPath string) (goph.Auth, error) {
	if keyPath != "" {
		if _, err := os.Stat(keyPath); err == nil {
			auth, err := goph.Key(keyPath, "")
			if err != nil {
				return nil, fmt.Errorf("load ssh key %s: %w", keyPath, err)
			}
			return auth, nil
		}
	}
	if goph.HasAgent() {
		return goph.UseAgent()
	}
	return nil, errors.New("no usable ssh key and no ssh agent available")
}

func (c *Client) Run(ctx context.Context, command string) ([]byte, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	cmd, err := c.ssh.CommandContext(ctx, command)
	if err != nil {
		return nil, err
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return out, wrapExit(err)
	}
	return out, nil
}

func (c *Client) Stream(ctx context.Context, command string, out io.Writer) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	cmd, err := c.ssh.CommandContext(ctx, command)
	if err != nil {
		return err
	}
	var stderr bytes.Buffer
	cmd.Stdout = out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		err = wrapExit(err)
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}

func (c *Client) Close() error {
	return c.ssh.Close()
}
