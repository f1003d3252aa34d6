package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"lvm-backup/src/safety"
)

// NewRootCmd returns the root cobra command for the lvm-backup CLI.
func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lvm-backup",
		Short: "Snapshot-based backups of remote LVM logical volumes over SSH",

		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	addGlobalFlags(cmd)

	cmd.AddCommand(newBackupCmd(stdout, stderr))
	cmd.AddCommand(newListCmd(stdout, stderr))
	cmd.AddCommand(newPruneCmd(stdout, stderr))
	cmd.AddCommand(newVerifyCmd(stdout, stderr))
	cmd.AddCommand(newVersionCmd(stdout))

	return cmd
}

// Exit codes. A declined confirmation is a deliberate abort, not an error,
// and gets its own code.
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitDeclined = 3
)

// Execute runs the CLI with the process stdio and maps errors to exit codes.
func Execute() int {
	root := NewRootCmd(os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		if errors.Is(err, safety.ErrDeclined) {
			return ExitDeclined
		}
		fmt.Fprintln(os.Stderr, err)
		return ExitFailure
	}
	return ExitOK
}
