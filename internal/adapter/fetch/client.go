// Package fetch downloads source exports to a local, date-stamped cache.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
)

// Client downloads at most one copy of each export per calendar day.
type Client struct {
	httpClient *http.Client
	dir        string
	clock      clockwork.Clock
	logger     *slog.Logger
}

// NewClient creates a client that stores files under dir.
func NewClient(dir string, timeout time.Duration, clock clockwork.Clock, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		dir:    dir,
		clock:  clock,
		logger: logger,
	}
}

// Filename returns the local name used for name's export on the current
// day, for example "2020-12-14-ECDC-db.csv".
func (c *Client) Filename(name, rawURL string) string {
	ext := ".csv"
	if u, err := url.Parse(rawURL); err == nil {
		if e := path.Ext(u.Path); e == ".xlsx" || e == ".csv" {
			ext = e
		}
	}
	return fmt.Sprintf("%s-%s-db%s", c.clock.Now().UTC().Format("2006-01-02"), strings.ToUpper(name), ext)
}

// Fetch returns the path of today's copy of rawURL, downloading it only if
// it is not already present. cached reports whether an existing file was reused.
func (c *Client) Fetch(ctx context.Context, name, rawURL string) (local string, cached bool, err error) {
	target := filepath.Join(c.dir, c.Filename(name, rawURL))

	if _, err := os.Stat(target); err == nil {
		c.logger.Info("using existing download", "source", name, "path", target)
		return target, true, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", false, fmt.Errorf("stat %s: %w", target, err)
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return "", false, fmt.Errorf("create download dir: %w", err)
	}

	start := c.clock.Now()
	n, err := c.download(ctx, rawURL, target)
	if err != nil {
		return "", false, fmt.Errorf("download %s: %w", name, err)
	}
	c.logger.Info("downloaded source", "source", name, "path", target, "bytes", n, "duration", c.clock.Since(start))
	return target, false, nil
}

// download streams rawURL into a temporary file next to target and renames
// it into place once complete.
func (c *Client) download(ctx context.Context, rawURL, target string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("status %d: %s", resp.StatusCode, body)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".download-*")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op once renamed

	n, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, err
	}
	return n, os.Rename(tmp.Name(), target)
}
