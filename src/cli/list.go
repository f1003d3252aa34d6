package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"lvm-backup/src/backend"
	dir "lvm-backup/src/backend/directory"
)

func newListCmd(stdout, stderr io.Writer) *cobra.Command {
	var output string
	var filter backend.Filter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored backup artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			destDir, _ := cmd.Flags().GetString("dest")
			if destDir == "" {
				return errors.New("--dest is required")
			}
			b, err := dir.New(destDir)
			if err != nil {
				return err
			}
			entries, err := b.List(filter)
			if err != nil {
				return err
			}
			switch output {
			case "json":
				enc := json.NewEncoder(stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			case "table", "":
				return renderTable(stdout, entries)
			default:
				return fmt.Errorf("unsupported --output: %s", output)
			}
		},
	}
	cmd.Flags().String("dest", "", "Local destination directory")
	cmd.Flags().StringVar(&filter.Host, "host", "", "Only artifacts of this host")
	cmd.Flags().StringVar(&filter.VG, "vg", "", "Only artifacts of this volume group")
	cmd.Flags().StringVar(&filter.LV, "lv", "", "Only artifacts of this logical volume")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table|json")
	return cmd
}

func renderTable(w io.Writer, entries []backend.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "HOST\tVG\tLV\tTIMESTAMP\tSIZE")
	for _, e := range entries {
		size := ""
		if e.Size > 0 {
			size = humanize.Bytes(uint64(e.Size))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.Host, e.VG, e.LV, e.Timestamp, size)
	}
	return tw.Flush()
}
