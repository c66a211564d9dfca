package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/flightlog/fmsave/internal/utils"
	"github.com/flightlog/fmsave/pkg/flightmemory"
	"github.com/flightlog/fmsave/pkg/fuzzy"
	"github.com/flightlog/fmsave/pkg/geonames"
	"github.com/flightlog/fmsave/pkg/reconcile"
)

// updateCmd represents the update command
var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Merge saved flightmemory.com pages into the local flight log",
	Long: `Reads every saved flight list page (*.html) in --pages, resolves airports, airlines
and aircraft, adds time zones and merges the result into the store.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := context.Background()

		pages, _ := cmd.Flags().GetString("pages")
		numFlights, _ := cmd.Flags().GetInt("num-flights")
		noInteractive, _ := cmd.Flags().GetBool("no-interactive")
		skipTimezones, _ := cmd.Flags().GetBool("skip-timezones")
		replaceWindow, _ := cmd.Flags().GetBool("replace-window")
		persistPartial, _ := cmd.Flags().GetBool("persist-partial")
		allTimezones, _ := cmd.Flags().GetBool("all-timezones")

		after, err := dateFlag(cmd, "after")
		if err != nil {
			return err
		}
		before, err := dateFlag(cmd, "before")
		if err != nil {
			return err
		}

		rows, err := flightmemory.ReadPages(pages)
		if err != nil {
			return err
		}
		schema, err := flightmemory.V1()
		if err != nil {
			return err
		}
		updates, err := flightmemory.Decode(schema, rows, time.Now())
		if err != nil {
			return err
		}
		utils.Log.Infof("Decoded %d flights from %s", len(updates), pages)

		tables, err := loadTables(ctx)
		if err != nil {
			return err
		}

		cfg := reconcile.Config{Tables: tables, Log: utils.Log}
		if !noInteractive {
			cfg.Chooser = fuzzy.TerminalChooser()
		}
		if !skipTimezones {
			client, err := newTimezoneClient()
			if err != nil {
				return err
			}
			cfg.Timezone = client
		}
		engine := reconcile.New(cfg)

		db, err := openStore(cmd, true)
		if err != nil {
			return err
		}
		defer db.Close()

		existing, err := db.LoadLegs(ctx)
		if err != nil {
			return err
		}

		res, err := engine.Run(ctx, reconcile.Batch{
			Existing:       existing,
			Updates:        updates,
			Window:         reconcile.Window{After: after, Before: before},
			ReplaceWindow:  replaceWindow,
			SkipTimezones:  skipTimezones,
			Timezones:      reconcile.TimezoneOptions{UpdateBlanksOnly: !allTimezones, NumFlights: numFlights},
			PersistPartial: persistPartial,
		}, db)
		if res != nil {
			utils.Log.Debugf("Batch reached stage %s", res.Stage)
			rep := res.Timezones
			if rep.Candidates > 0 {
				utils.Log.Infof("Time zones: %s of %s flights looked up, %d endpoints resolved, %d empty, %d failed",
					humanize.Comma(int64(rep.Updated)), humanize.Comma(int64(rep.Candidates)), rep.Resolved, rep.Empty, rep.Failed)
			}
			if res.Stage == reconcile.Persisted {
				printChanges(res.Changes)
				utils.Log.Infof("Store now holds %s flights", humanize.Comma(int64(len(res.Legs))))
			}
		}
		if err != nil {
			if geonames.IsFatal(err) && !persistPartial {
				return fmt.Errorf("%w (nothing was stored; rerun with --persist-partial to keep partial progress)", err)
			}
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(updateCmd)
	updateCmd.Flags().String("pages", "", "Directory holding the saved flight list pages")
	updateCmd.Flags().String("after", "", "Only process flights on or after this date (YYYY-MM-DD)")
	updateCmd.Flags().String("before", "", "Only process flights on or before this date (YYYY-MM-DD)")
	updateCmd.Flags().Int("num-flights", 0, "Maximum number of flights to look up time zones for (0 = all)")
	updateCmd.Flags().Bool("no-interactive", false, "Never prompt for airport or aircraft matches")
	updateCmd.Flags().Bool("skip-timezones", false, "Do not look up time zones")
	updateCmd.Flags().Bool("all-timezones", false, "Look up time zones again for flights that already have them")
	updateCmd.Flags().Bool("replace-window", false, "Drop stored flights inside the date window before merging")
	updateCmd.Flags().Bool("persist-partial", false, "Store the batch even if time zone lookups were stopped early")
	_ = updateCmd.MarkFlagRequired("pages")
}
