package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/flightlog/fmsave/pkg/dateinfo"
	"github.com/flightlog/fmsave/pkg/reconcile"
)

// validateCmd compares logged distances and durations with computed ones.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "List stored flights whose distance or duration looks wrong",
	RunE: func(cmd *cobra.Command, _ []string) error {
		maxErr, _ := cmd.Flags().GetFloat64("max-err")
		showAll, _ := cmd.Flags().GetBool("all")

		db, err := openStore(cmd, false)
		if err != nil {
			return err
		}
		defer db.Close()

		legs, err := db.LoadLegs(context.Background())
		if err != nil {
			return err
		}

		checks := reconcile.Validate(legs)
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "#\tDATE\tROUTE\tDIST\tCALC KM\tERR %\tDURATION\tCALC\tERR %\t")

		flagged := 0
		for i, c := range checks {
			if !showAll && !c.Exceeds(maxErr) {
				continue
			}
			flagged++
			l := legs[i]
			dist, distErr := "-", "-"
			if c.HasDist {
				dist = fmt.Sprintf("%.0f", c.DistValidated)
				distErr = fmt.Sprintf("%.1f", c.DistPctErr)
			}
			dur, durErr := "-", "-"
			if c.HasDur {
				dur = dateinfo.FormatDuration(c.DurationValidated)
				durErr = fmt.Sprintf("%.1f", c.DurPctErr)
			}
			fmt.Fprintf(w, "%d\t%s\t%s-%s\t%.0f %s\t%s\t%s\t%s\t%s\t%s\t\n",
				c.Index, l.When.Date, l.Dep.IATA, l.Arr.IATA, l.Distance, l.DistanceUnit,
				dist, distErr, dateinfo.FormatDuration(l.Duration), dur, durErr)
		}
		w.Flush()

		fmt.Printf("\n%d of %d flights above %.1f%% error\n", flagged, len(checks), maxErr)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().Float64("max-err", 10, "Percent error above which a flight is listed")
	validateCmd.Flags().Bool("all", false, "List every flight")
}
