// Package transparencia pulls parliamentary amendment data from the
// federal transparency portal: the yearly bulk ZIP as the primary path
// and the keyed REST API as fallback.
package transparencia

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/antoniotavarescjr/kritikos-sub000/internal/fetcher"
	"github.com/antoniotavarescjr/kritikos-sub000/internal/resilience"
)

// Config configures the transparency portal client.
type Config struct {
	// DownloadURL is the bulk file host root.
	DownloadURL string `mapstructure:"download_url"`
	// APIURL is the REST API root.
	APIURL string `mapstructure:"api_url"`
	// APIKey authenticates REST API calls; the bulk host needs none.
	APIKey string `mapstructure:"api_key"`
	// BulkTTL is how long a downloaded bulk file stays reusable on disk
	// before it is fetched again.
	BulkTTL time.Duration `mapstructure:"bulk_ttl"`
}

// Client wraps the shared fetcher with portal knowledge.
type Client struct {
	fetcher fetcher.Fetcher
	cfg     Config
}

func New(f fetcher.Fetcher, cfg Config) *Client {
	return &Client{fetcher: f, cfg: cfg}
}

// BulkURL is the yearly amendments ZIP location.
func (c *Client) BulkURL(year int) string {
	return fmt.Sprintf("%s/%d", c.cfg.DownloadURL, year)
}

// DownloadAmendmentsCSV downloads the yearly bulk ZIP into tempDir and
// returns the extracted CSV bytes. The portal fronts bulk files with a
// CDN that rejects non-browser clients, hence the browser profile.
func (c *Client) DownloadAmendmentsCSV(ctx context.Context, year int, tempDir string) ([]byte, error) {
	url := c.BulkURL(year)
	zipPath := filepath.Join(tempDir, fmt.Sprintf("emendas-%d.zip", year))

	n, err := c.fetcher.DownloadToFile(ctx, url, zipPath, fetcher.FetchOptions{
		BrowserProfile: true,
		ReuseTTL:       c.cfg.BulkTTL,
	})
	if err != nil {
		return nil, &resilience.SourceUnavailableError{Source: "transparencia-bulk", Err: err}
	}

	zap.L().Debug("bulk file downloaded",
		zap.String("url", url),
		zap.Int64("bytes", n),
	)

	csvPath, err := fetcher.ExtractZIPFirstCSV(zipPath, tempDir)
	if err != nil {
		return nil, eris.Wrapf(err, "transparencia: extract bulk csv for %d", year)
	}
	defer os.Remove(csvPath) //nolint:errcheck

	csvData, err := os.ReadFile(csvPath)
	if err != nil {
		return nil, eris.Wrapf(err, "transparencia: read bulk csv for %d", year)
	}
	zap.L().Debug("bulk csv extracted", zap.String("entry", csvPath), zap.Int("bytes", len(csvData)))
	return csvData, nil
}

// ListAmendments walks the REST API for a year. Items arrive as untyped
// records; field names differ from the bulk CSV and are mapped by the
// caller.
func (c *Client) ListAmendments(ctx context.Context, year int, opts fetcher.PaginateOptions) ([]map[string]any, error) {
	if c.cfg.APIKey == "" {
		return nil, &resilience.SourceUnavailableError{
			Source: "transparencia-api",
			Err:    eris.New("transparencia: api key not configured"),
		}
	}

	opts.Params = map[string]string{"ano": fmt.Sprintf("%d", year)}
	opts.APIKey = c.cfg.APIKey
	items, err := c.fetcher.Paginate(ctx, c.cfg.APIURL+"/emendas", opts)
	if err != nil {
		return nil, eris.Wrapf(err, "transparencia: list amendments %d", year)
	}
	return items, nil
}
