package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flightlog/fmsave/internal/utils"
	"github.com/flightlog/fmsave/pkg/export"
)

// exportCmd writes the stored flights as an import file for another site.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored flights as CSV (" + strings.Join(export.Formats(), ", ") + ")",
	RunE: func(cmd *cobra.Command, _ []string) error {
		name, _ := cmd.Flags().GetString("format")
		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			out = name + ".csv"
		}

		format, err := export.Load(name)
		if err != nil {
			return err
		}

		db, err := openStore(cmd, false)
		if err != nil {
			return err
		}
		defer db.Close()

		legs, err := db.LoadLegs(context.Background())
		if err != nil {
			return err
		}

		f, err := os.Create(out)
		if err != nil {
			return err
		}
		if err := format.Write(f, legs); err != nil {
			f.Close()
			return fmt.Errorf("writing %s: %w", out, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		utils.Log.Infof("Wrote %d flights to %s", len(legs), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().String("format", "openflights", "Export format: "+strings.Join(export.Formats(), ", "))
	exportCmd.Flags().String("out", "", "Output file (default: <format>.csv)")
}
