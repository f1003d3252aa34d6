package console

import (
	"fmt"
	"io"
)

// Console writes the tool's tagged user-facing output. Commands are echoed
// before execution, outcomes after; everything goes to injected writers so
// tests can capture it.
type Console struct {
	out io.Writer
	err io.Writer
}

func New(out, err io.Writer) *Console {
	return &Console{out: out, err: err}
}

// Writer exposes the output writer for helpers that render their own
// output, like the transfer progress meter.
func (c *Console) Writer() io.Writer {
	if c == nil {
		return nil
	}
	return c.out
}

// Cmd echoes a command about to be executed.
func (c *Console) Cmd(command string) {
	if c != nil && c.out != nil {
		fmt.Fprintf(c.out, "[CMD] %s\n", command)
	}
}

// DryRun echoes a command that would have been executed.
func (c *Console) DryRun(command string) {
	if c != nil && c.out != nil {
		fmt.Fprintf(c.out, "[DRY-RUN] %s\n", command)
	}
}

func (c *Console) Infof(format string, args ...any) {
	if c != nil && c.out != nil {
		fmt.Fprintf(c.out, "[INFO] "+format+"\n", args...)
	}
}

func (c *Console) Errorf(format string, args ...any) {
	if c != nil && c.err != nil {
		fmt.Fprintf(c.err, "[ERROR] "+format+"\n", args...)
	}
}

// Failf reports an unrecoverable condition.
func (c *Console) Failf(format string, args ...any) {
	if c != nil && c.err != nil {
		fmt.Fprintf(c.err, "[FAIL] "+format+"\n", args...)
	}
}
