package infra

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

// IconDownloader handles downloading and caching coin icons
type IconDownloader struct {
	basePath string
	size     int
	client   *http.Client
}

// NewIconDownloader creates a new IconDownloader caching into dir (DefaultAssetsDir when empty).
func NewIconDownloader(dir string, size int) (*IconDownloader, error) {
	if dir == "" {
		dir = DefaultAssetsDir()
	}
	if size <= 0 {
		size = 24
	}

	// Ensure directory exists
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create assets directory: %w", err)
	}

	// Optimize HTTP Transport to prevent connection leaks
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = 100
	transport.MaxConnsPerHost = 10
	transport.IdleConnTimeout = 30 * time.Second

	return &IconDownloader{
		basePath: dir,
		size:     size,
		client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: transport,
		},
	}, nil
}

// DownloadIcon fetches imageURL for coin id unless it is already cached.
// Returns the local file path on success.
// Images are resized to size x size pixels for consistent UI display
func (d *IconDownloader) DownloadIcon(ctx context.Context, id, imageURL string) (string, error) {
	// Security: Sanitize id to prevent path traversal
	safeID := sanitizeID(id)
	if safeID == "" {
		return "", fmt.Errorf("invalid coin id: %q", id)
	}
	if imageURL == "" {
		return "", fmt.Errorf("no image for %s", id)
	}

	filePath := d.GetIconPath(safeID)

	// Check if exists
	if _, err := os.Stat(filePath); err == nil {
		return filePath, nil // Already exists (Cache Hit)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", DefaultUserAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("bad status: %s", resp.Status)
	}

	// Decode the image
	srcImg, err := imaging.Decode(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	// Resize with high-quality Lanczos filter
	resizedImg := imaging.Resize(srcImg, d.size, d.size, imaging.Lanczos)

	// Save the resized image
	if err := imaging.Save(resizedImg, filePath); err != nil {
		return "", fmt.Errorf("failed to save resized image: %w", err)
	}

	return filePath, nil
}

// GetIconPath returns the local path for a coin's icon
func (d *IconDownloader) GetIconPath(id string) string {
	return filepath.Join(d.basePath, strings.ToLower(sanitizeID(id))+".png")
}

// sanitizeID keeps the characters CoinGecko ids are made of.
func sanitizeID(id string) string {
	res := make([]rune, 0, len(id))
	for _, r := range id {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			res = append(res, r)
		}
	}
	return strings.Trim(string(res), "-_")
}
