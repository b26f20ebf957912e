package downloader

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/dnscache"
)

const userAgent = "cratefix/1.0"

// Job describes one file to fetch.
type Job struct {
	URL      string
	DestPath string
}

// Downloader fetches files over HTTP into a local cache. It does not retry:
// a failed download is reported to the caller as is.
type Downloader struct {
	client *http.Client
}

// NewDownloader creates a downloader whose dialer caches DNS lookups.
func NewDownloader() *Downloader {
	resolver := &dnscache.Resolver{}
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	return &Downloader{
		client: &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
					host, port, err := net.SplitHostPort(addr)
					if err != nil {
						return nil, err
					}
					ips, err := resolver.LookupHost(ctx, host)
					if err != nil {
						return nil, err
					}
					for _, ip := range ips {
						conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
						if err == nil {
							return conn, nil
						}
					}
					return nil, fmt.Errorf("failed to dial any resolved IP for %s", host)
				},
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 60 * time.Second,
			},
		},
	}
}

// NewDownloaderWithClient creates a downloader using client as is.
func NewDownloaderWithClient(client *http.Client) *Downloader {
	return &Downloader{client: client}
}

// Download fetches job.URL to job.DestPath. An existing destination file is
// treated as cached and left untouched.
func (d *Downloader) Download(ctx context.Context, job Job) error {
	if _, err := os.Stat(job.DestPath); err == nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(job.DestPath), 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, job.URL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", job.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("downloading %s: HTTP %d", job.URL, resp.StatusCode)
	}

	// Write to temp file first, then rename
	tmpPath := job.DestPath + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}

	_, err = io.Copy(out, resp.Body)
	out.Close()
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing file: %w", err)
	}

	if err := os.Rename(tmpPath, job.DestPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming file: %w", err)
	}

	return nil
}
