package cli

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"lvm-backup/src/backend"
	dir "lvm-backup/src/backend/directory"
	"lvm-backup/src/rotation"
	"lvm-backup/src/safety"
)

func newPruneCmd(stdout, stderr io.Writer) *cobra.Command {
	var policyName string
	var filter backend.Filter
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Apply a rotation policy to stored artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			destDir, _ := cmd.Flags().GetString("dest")
			if destDir == "" {
				return errors.New("--dest is required")
			}
			policy, err := rotation.Parse(policyName)
			if err != nil {
				return err
			}
			b, err := dir.New(destDir)
			if err != nil {
				return err
			}
			entries, err := b.List(filter)
			if err != nil {
				return err
			}

			// Each host/vg/lv subtree is rotated independently.
			toDelete := planRotation(policy, entries)

			tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "HOST\tVG\tLV\tTIMESTAMP\tACTION")
			for _, e := range toDelete {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\tdelete\n", e.Host, e.VG, e.LV, e.Timestamp)
			}
			_ = tw.Flush()

			opts := getSafetyOptions(cmd)
			if opts.DryRun || len(toDelete) == 0 {
				return nil
			}
			ok, err := safety.Confirm(opts, cmd.InOrStdin(), stdout, fmt.Sprintf("Delete %d artifacts?", len(toDelete)))
			if err != nil {
				return err
			}
			if !ok {
				return safety.ErrDeclined
			}
			for _, e := range toDelete {
				if err := b.Delete(e); err != nil {
					return fmt.Errorf("delete %s: %w", e.Path, err)
				}
			}
			fmt.Fprintf(stdout, "Deleted %d artifacts\n", len(toDelete))
			return nil
		},
	}
	cmd.Flags().String("dest", "", "Local destination directory")
	cmd.Flags().StringVar(&policyName, "rotation", rotation.Current.String(), "Rotation policy: current|day|month|year|disabled")
	cmd.Flags().StringVar(&filter.Host, "host", "", "Only artifacts of this host")
	cmd.Flags().StringVar(&filter.VG, "vg", "", "Only artifacts of this volume group")
	cmd.Flags().StringVar(&filter.LV, "lv", "", "Only artifacts of this logical volume")
	return cmd
}

// planRotation groups entries per host/vg/lv subtree and plans each group
// under the policy.
func planRotation(policy rotation.Policy, entries []backend.Entry) []backend.Entry {
	groups := map[[3]string][]backend.Entry{}
	var order [][3]string
	for _, e := range entries {
		key := [3]string{e.Host, e.VG, e.LV}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], e)
	}
	var del []backend.Entry
	for _, key := range order {
		del = append(del, rotation.Plan(policy, groups[key])...)
	}
	return del
}
