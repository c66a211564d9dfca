package cmd

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/flightlog/fmsave/internal/utils"
	"github.com/flightlog/fmsave/pkg/reference"
)

// dataCmd represents the data command
var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Manage the airport, airline and aircraft reference tables",
}

var dataUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Download fresh airport, airline and aircraft tables",
	RunE: func(cmd *cobra.Command, _ []string) error {
		timeout, _ := cmd.Flags().GetDuration("timeout")
		dir := dataPath()
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		written, err := reference.Download(context.Background(), reference.NewDownloadClient(timeout), dir, reference.DefaultSources)
		for _, p := range written {
			utils.Log.Infof("Updated %s", p)
		}
		return err
	},
}

var dataCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Load the reference tables and print their sizes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		t, err := loadTables(context.Background())
		if err != nil {
			return err
		}
		utils.Log.Infof("%s: %d airports, %d airlines, %d aircraft types", dataPath(), len(t.Airports), len(t.Airlines), len(t.Aircraft))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dataCmd)
	dataCmd.AddCommand(dataUpdateCmd)
	dataCmd.AddCommand(dataCheckCmd)
	dataUpdateCmd.Flags().Duration("timeout", 60*time.Second, "Per-download timeout")
}
