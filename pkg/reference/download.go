package reference

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const userAgent = "fmsave/1 (flight log reference data)"

// Source is one downloadable snapshot.
type Source struct {
	URL  string
	Path string // relative to the data directory
	// Convert rewrites the response body into the stored layout; nil stores
	// it as is.
	Convert func(io.Reader, io.Writer) error
}

// DefaultSources are the upstream locations of the airport, airline and
// aircraft tables. The supplemental aircraft file is curated locally.
var DefaultSources = []Source{
	{URL: "https://davidmegginson.github.io/ourairports-data/airports.csv", Path: AirportsFile},
	{URL: "https://raw.githubusercontent.com/jpatokal/openflights/master/data/airlines.dat", Path: AirlinesFile},
	{URL: AircraftDesignatorsURL, Path: AircraftFile, Convert: ConvertAircraftTable},
}

// NewDownloadClient returns a retrying HTTP client for snapshot downloads.
func NewDownloadClient(timeout time.Duration) *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.Logger = log.New(io.Discard, "", 0)
	c.RetryMax = 5
	c.HTTPClient.Timeout = timeout
	return c
}

// Download fetches every source into dir, replacing each file only after
// the new copy was written completely.
func Download(ctx context.Context, client *retryablehttp.Client, dir string, sources []Source) ([]string, error) {
	var written []string
	for _, s := range sources {
		dest := filepath.Join(dir, s.Path)
		if err := downloadOne(ctx, client, s, dest); err != nil {
			return written, fmt.Errorf("downloading %s: %w", s.URL, err)
		}
		written = append(written, dest)
	}
	return written, nil
}

func downloadOne(ctx context.Context, client *retryablehttp.Client, s Source, dest string) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if s.Convert != nil {
		err = s.Convert(resp.Body, tmp)
	} else {
		_, err = io.Copy(tmp, resp.Body)
	}
	if err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}
