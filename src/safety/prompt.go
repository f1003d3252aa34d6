package safety

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Options mirror the global safety flags.
type Options struct {
	DryRun bool
	Yes    bool
	Force  bool
}

// ErrDeclined is returned by callers when the user answers anything other
// than yes. It marks a deliberate abort, not a failure; the CLI maps it to
// its own exit code.
var ErrDeclined = errors.New("aborted by user")

// Confirm prompts the user to confirm a potentially destructive action.
// - If opts.Yes or opts.Force is set, it returns true without prompting.
// - If opts.DryRun is set, it returns false but no error (no action should
//   be taken).
// The caller decides what to do with the result.
func Confirm(opts Options, in io.Reader, out io.Writer, question string) (bool, error) {
	if opts.DryRun {
		// No changes in dry-run mode; treat as declined.
		return false, nil
	}
	if opts.Yes || opts.Force {
		return true, nil
	}
	if out != nil {
		fmt.Fprintf(out, "%s [y/N]: ", strings.TrimSpace(question))
	}
	reader := bufio.NewReader(in)
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	ans := strings.TrimSpace(strings.ToLower(line))
	return ans == "y" || ans == "yes", nil
}
