package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/flightlog/fmsave/internal/utils"
	"github.com/flightlog/fmsave/pkg/reconcile"
)

// timezonesCmd fills in missing time zones of the stored flights.
var timezonesCmd = &cobra.Command{
	Use:   "timezones",
	Short: "Add missing time zones to stored flights",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := context.Background()
		numFlights, _ := cmd.Flags().GetInt("num-flights")
		all, _ := cmd.Flags().GetBool("all")

		client, err := newTimezoneClient()
		if err != nil {
			return err
		}
		engine := reconcile.New(reconcile.Config{Timezone: client, Log: utils.Log})

		db, err := openStore(cmd, true)
		if err != nil {
			return err
		}
		defer db.Close()

		legs, err := db.LoadLegs(ctx)
		if err != nil {
			return err
		}

		rep, tzErr := engine.AddTimezones(ctx, legs, reconcile.TimezoneOptions{UpdateBlanksOnly: !all, NumFlights: numFlights})
		if errors.Is(tzErr, reconcile.ErrNoTimezoneClient) {
			return tzErr
		}
		utils.Log.Infof("Looked up %d of %d flights: %d endpoints resolved, %d empty, %d failed",
			rep.Updated, rep.Candidates, rep.Resolved, rep.Empty, rep.Failed)

		// Rows finished before a fatal stop are kept.
		changes, err := db.ReplaceLegs(ctx, legs)
		if err != nil {
			return err
		}
		printChanges(changes)
		return tzErr
	},
}

func init() {
	rootCmd.AddCommand(timezonesCmd)
	timezonesCmd.Flags().Int("num-flights", 0, "Maximum number of flights to look up (0 = all)")
	timezonesCmd.Flags().Bool("all", false, "Look up flights that already have time zones too")
}
