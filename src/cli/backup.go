package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"lvm-backup/src/backend"
	"lvm-backup/src/backend/directory"
	"lvm-backup/src/backup"
	"lvm-backup/src/config"
	"lvm-backup/src/lvm"
	"lvm-backup/src/rotation"
	"lvm-backup/src/safety"
	"lvm-backup/src/sshexec"
	"lvm-backup/src/util/console"
)

// dialLVM is the SSH dial seam; tests swap it for a fake client.
var dialLVM = func(opts sshexec.Options) (lvm.Client, func() error, error) {
	cl, err := sshexec.Connect(opts)
	if err != nil {
		return nil, nil, err
	}
	return lvm.NewRemote(cl), cl.Close, nil
}

// SetDialLVMForTest replaces the SSH dialer and returns a restore func.
func SetDialLVMForTest(fn func(sshexec.Options) (lvm.Client, func() error, error)) func() {
	prev := dialLVM
	dialLVM = fn
	return func() { dialLVM = prev }
}

func newBackupCmd(stdout, stderr io.Writer) *cobra.Command {
	var (
		dest         string
		host         string
		port         uint
		user         string
		keyPath      string
		vg           string
		lv           string
		snapSize     string
		rotationName string
		timeout      time.Duration
		cfgPath      string
	)
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Snapshot a remote logical volume and stream it into the destination directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := getSafetyOptions(cmd)

			defaults, err := config.LoadDefaults(cfgPath)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if !flags.Changed("dest") && defaults.Dest != "" {
				dest = defaults.Dest
			}
			if !flags.Changed("ssh_port") && defaults.SSHPort != 0 {
				port = defaults.SSHPort
			}
			if !flags.Changed("ssh_user") && defaults.SSHUser != "" {
				user = defaults.SSHUser
			}
			if !flags.Changed("ssh_key") && defaults.SSHKey != "" {
				keyPath = defaults.SSHKey
			}
			if !flags.Changed("snap_size") && defaults.SnapSize != "" {
				snapSize = defaults.SnapSize
			}
			if !flags.Changed("rotation") && defaults.Rotation != "" {
				rotationName = defaults.Rotation
			}

			policy, err := rotation.Parse(rotationName)
			if err != nil {
				return err
			}
			req := config.BackupRequest{
				Dest:     dest,
				Host:     host,
				Port:     port,
				User:     user,
				KeyPath:  keyPath,
				VG:       vg,
				LV:       lv,
				SnapSize: snapSize,
				Rotation: policy,
				Timeout:  timeout,
				DryRun:   opts.DryRun,
				Force:    opts.Force,
			}
			if err := req.Validate(); err != nil {
				if errors.Is(err, config.ErrMissingParameter) {
					_ = cmd.Usage()
				}
				return err
			}

			con := console.New(stdout, stderr)

			if !opts.Yes && !opts.Force && !opts.DryRun {
				fmt.Fprintln(stdout, "About to back up with this configuration:")
				fmt.Fprint(stdout, req.Summary())
				ok, err := safety.Confirm(opts, cmd.InOrStdin(), stdout, "Proceed?")
				if err != nil {
					return err
				}
				if !ok {
					con.Infof("aborted by user")
					return safety.ErrDeclined
				}
			}

			// The destination must exist before the first remote command is
			// issued; nothing remote is attempted otherwise.
			store, err := directory.New(req.Dest)
			if err != nil {
				return &backup.PreconditionError{Reason: err.Error()}
			}

			client, closeConn, err := dialLVM(sshexec.Options{
				Host:    req.Host,
				Port:    req.Port,
				User:    req.User,
				KeyPath: req.KeyPath,
				Timeout: req.Timeout,
			})
			if err != nil {
				return &backup.PreconditionError{Reason: err.Error()}
			}
			defer closeConn()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			eng := &backup.Engine{Req: req, LVM: client, Store: store, Console: con}
			if err := eng.Run(ctx); err != nil {
				return err
			}

			if !opts.DryRun && req.Rotation != rotation.Disabled {
				return applyRotation(store, req, con)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dest, "dest", "", "Local destination directory (required)")
	cmd.Flags().StringVar(&host, "ssh", "", "Remote host to back up from (required)")
	cmd.Flags().UintVar(&port, "ssh_port", 22, "Remote SSH port")
	cmd.Flags().StringVar(&user, "ssh_user", "root", "Remote SSH user")
	cmd.Flags().StringVar(&keyPath, "ssh_key", config.DefaultKeyPath(), "SSH private key (falls back to the agent)")
	cmd.Flags().StringVar(&vg, "vg", "", "Volume group name (required)")
	cmd.Flags().StringVar(&lv, "lv", "", "Logical volume name (required)")
	cmd.Flags().StringVar(&snapSize, "snap_size", "1G", "Copy-on-write headroom for the snapshot")
	cmd.Flags().StringVar(&rotationName, "rotation", rotation.Current.String(), "Rotation policy: current|day|month|year|disabled")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Per-command SSH timeout (0 = wait forever)")
	cmd.Flags().StringVar(&cfgPath, "config", "", "Defaults file (default ~/.config/lvm-backup/config.yml)")

	return cmd
}

// applyRotation prunes this run's host/vg/lv subtree per the selected
// policy. Runs only after a fully successful backup.
func applyRotation(store backend.Store, req config.BackupRequest, con *console.Console) error {
	entries, err := store.List(backend.Filter{Host: req.Host, VG: req.VG, LV: req.LV})
	if err != nil {
		return fmt.Errorf("rotation: list artifacts: %w", err)
	}
	del := rotation.Plan(req.Rotation, entries)
	for _, e := range del {
		con.Infof("rotation(%s): removing %s", req.Rotation, e.Path)
		if err := store.Delete(e); err != nil {
			return fmt.Errorf("rotation: delete %s: %w", e.Path, err)
		}
	}
	if len(del) == 0 {
		con.Infof("rotation(%s): nothing to remove", req.Rotation)
	}
	return nil
}
