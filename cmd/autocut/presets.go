package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/maauso/autocut/internal/preset"
)

func newPresetsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the detection presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table := a.presets.All()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tTHRESHOLD\tMIN\tPRE\tPOST\tMERGE\tKEEP")
			for _, name := range preset.Names() {
				c := table[name]
				fmt.Fprintf(w, "%s\t%gdB\t%dms\t%dms\t%dms\t%dms\t%dms\n",
					name, c.ThresholdDb, c.MinDurationMs, c.PrePaddingMs, c.PostPaddingMs, c.MergeGapMs, c.KeepShortPauseMs)
			}
			return w.Flush()
		},
	}
}
