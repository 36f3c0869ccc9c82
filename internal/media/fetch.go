// Package media implements the audio collaborators: source fetching,
// ffmpeg normalization, and the external encoder and TTS binaries.
package media

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"
)

// DefaultFetchTimeout bounds a single source download.
const DefaultFetchTimeout = 2 * time.Minute

// Fetcher downloads source audio over HTTP.
type Fetcher struct {
	Client *http.Client // defaults to a client with DefaultFetchTimeout
}

// Fetch downloads each URL into dir and returns the local paths.
// Individually failed URLs are logged and skipped; an empty result is the
// caller's decision to treat as fatal.
func (f *Fetcher) Fetch(ctx context.Context, urls []string, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("media: fetch: %w", err)
	}

	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultFetchTimeout}
	}

	var paths []string
	for i, rawURL := range urls {
		p, err := fetchOne(ctx, client, rawURL, dir, i)
		if err != nil {
			log.Printf("media: fetch %s: %v", rawURL, err)
			continue
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func fetchOne(ctx context.Context, client *http.Client, rawURL, dir string, seq int) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	dst := filepath.Join(dir, downloadName(rawURL, seq))
	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(dst)
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return dst, nil
}

// downloadName derives a local filename from the URL path, falling back
// to a sequence-numbered default when the path carries no usable name.
func downloadName(rawURL string, seq int) string {
	u, err := url.Parse(rawURL)
	if err == nil {
		if name := path.Base(u.Path); name != "" && name != "/" && name != "." {
			return name
		}
	}
	return fmt.Sprintf("audio_%03d.wav", seq)
}
