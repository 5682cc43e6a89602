package fetcher

import (
	"compress/gzip"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const (
	// DefaultArchiveBaseURL is the base URL for the kernel-team monthly
	// archives. ACLs prevent direct access to the list's mbox file, but the
	// periodic text file parses as mbox just fine.
	DefaultArchiveBaseURL = "https://lists.ubuntu.com/archives/kernel-team"
	// UserAgent identifies the client to the archive server.
	UserAgent = "kteam-analyzer/1.0"
	// cachePattern names monthly cache files so they sort like ISO 8601.
	cachePattern = "%04d-%02d.mail_cache"
)

// YearMonth is a (year, month) pair in the sync range.
type YearMonth struct {
	Year  int
	Month int
}

// Name returns the month's full name, as used in archive URLs.
func (ym YearMonth) Name() string {
	return time.Month(ym.Month).String()
}

// String formats the pair as YYYY-MM.
func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, ym.Month)
}

// MonthsBetween returns (year, month) from start through end inclusive,
// month-by-month.
func MonthsBetween(start, end time.Time) []YearMonth {
	var out []YearMonth
	for y, m := start.Year(), int(start.Month()); !(y > end.Year() || (y == end.Year() && m > int(end.Month()))); {
		out = append(out, YearMonth{Year: y, Month: m})
		m++
		if m > 12 {
			m = 1
			y++
		}
	}
	return out
}

// CachePath returns the local cache file path for a month.
func CachePath(dataDir string, ym YearMonth) string {
	return filepath.Join(dataDir, fmt.Sprintf(cachePattern, ym.Year, ym.Month))
}

// ClearCache deletes all cached monthly archive files, forcing the next
// sync to download everything again.
func ClearCache(dataDir string) error {
	pattern := filepath.Join(dataDir, "*.mail_cache")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return err
	}
	for _, file := range files {
		if err := os.Remove(file); err != nil {
			return fmt.Errorf("remove %s: %w", file, err)
		}
	}
	return nil
}

// DownloadMonth downloads one monthly gzipped archive and stores the
// inflated mbox text in dataDir. Returns the local file path.
func DownloadMonth(dataDir, baseURL string, ym YearMonth) (string, error) {
	url := fmt.Sprintf("%s/%d-%s.txt.gz", baseURL, ym.Year, ym.Name())
	destPath := CachePath(dataDir, ym)

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	client := &http.Client{Timeout: 5 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download %s: status %s", url, resp.Status)
	}

	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("inflate %s: %w", url, err)
	}
	defer gz.Close()

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}

	f, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("create file %s: %w", destPath, err)
	}
	defer f.Close()

	n, err := io.Copy(f, gz)
	if err != nil {
		os.Remove(destPath)
		return "", fmt.Errorf("write %s: %w", destPath, err)
	}

	log.Printf("Downloaded %d-%s (%d bytes) to %s", ym.Year, ym.Name(), n, destPath)
	return destPath, nil
}

// EnsureMonth makes sure one month's archive is cached locally and returns
// its path. Bygone months already cached are not re-downloaded; their
// archive files never change. The current month is always refreshed because
// it is still being appended to.
func EnsureMonth(dataDir, baseURL string, ym YearMonth, now time.Time) (string, error) {
	path := CachePath(dataDir, ym)
	bygone := ym.Year < now.Year() || (ym.Year == now.Year() && ym.Month < int(now.Month()))
	if bygone {
		if _, err := os.Stat(path); err == nil {
			log.Printf("skipping %s, already cached", ym)
			return path, nil
		}
	}

	log.Printf("downloading %d-%s...", ym.Year, ym.Name())
	return DownloadMonth(dataDir, baseURL, ym)
}
