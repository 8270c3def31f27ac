package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/id-scanner/internal/entitlement"
)

func newPlansCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plans",
		Short: "Prints the subscription plan catalog.",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "PLAN\tNAME\tPRICE\tPERIOD\tDAILY SCANS\tFEATURES")
			for _, p := range entitlement.Catalog() {
				limits := entitlement.LimitsFor(p.Plan)
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					p.Plan, p.Name, p.Price, p.Period,
					entitlement.FormatRemaining(limits.DailyScans),
					strings.Join(p.Features, "; "))
			}
			return w.Flush()
		},
	}
}
