package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/flightlog/fmsave/internal/utils"
	"github.com/flightlog/fmsave/pkg/geonames"
	"github.com/flightlog/fmsave/pkg/reference"
	"github.com/flightlog/fmsave/pkg/storage"
)

const dateFlagLayout = "2006-01-02"

// store is an open canonical store plus the writer lock when one was taken.
type store struct {
	*storage.DB
	lock *utils.StoreLock
}

func (s *store) Close() {
	if s.DB != nil {
		s.DB.Close()
	}
	if s.lock != nil {
		if err := s.lock.Unlock(); err != nil {
			utils.Log.Warn(err)
		}
	}
}

// openStore opens the store from --dbpath. Writers take the file lock first.
func openStore(cmd *cobra.Command, write bool) (*store, error) {
	dbPath, _ := cmd.Flags().GetString("dbpath")
	absPath, err := utils.GetAbsStorePath(dbPath)
	if err != nil {
		return nil, err
	}

	s := &store{}
	if write {
		if s.lock, err = utils.NewStoreLock(absPath); err != nil {
			return nil, err
		}
		if err := s.lock.Lock(context.Background()); err != nil {
			s.lock = nil
			return nil, err
		}
	} else if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database file not found: %s", absPath)
	}

	utils.Log.Debugf("Using store %s", absPath)
	if s.DB, err = storage.Open(absPath); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func dataPath() string {
	p, err := homedir.Expand(viper.GetString("data.path"))
	if err != nil {
		return viper.GetString("data.path")
	}
	return p
}

func loadTables(ctx context.Context) (*reference.Tables, error) {
	dir := dataPath()
	t, err := reference.LoadDir(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("loading reference data from %s (run 'fmsave data update' first): %w", dir, err)
	}
	utils.Log.Debugf("Loaded %d airports, %d airlines, %d aircraft types", len(t.Airports), len(t.Airlines), len(t.Aircraft))
	if len(t.Aircraft) == 0 {
		utils.Log.Warnf("No aircraft types in %s; aircraft will stay unresolved", dir)
	}
	return t, nil
}

func newTimezoneClient() (*geonames.Client, error) {
	return geonames.NewClient(geonames.Config{Username: viper.GetString("geonames.username")})
}

// dateFlag parses an optional YYYY-MM-DD flag; blank gives the zero time.
func dateFlag(cmd *cobra.Command, name string) (time.Time, error) {
	v, _ := cmd.Flags().GetString(name)
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateFlagLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: want YYYY-MM-DD: %w", name, err)
	}
	return t, nil
}

func printChanges(changes []storage.Change) {
	counts := map[string]int{}
	for _, c := range changes {
		counts[c.ChangeType]++
		utils.Log.Debugf("%-7s %s %s %s", c.ChangeType, c.Date, c.Route, c.FlightNum)
	}
	utils.Log.Infof("Store updated: %d added, %d updated, %d removed", counts["added"], counts["updated"], counts["removed"])
}
