package mirror

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/BadgerOps/bestmirror/internal/safety"
)

// DefaultMirrorsURL is Fedora's MirrorManager mirrorlist endpoint.
const DefaultMirrorsURL = "https://mirrors.fedoraproject.org/mirrorlist"

const (
	maxMirrorListBytes int64 = 16 * 1024 * 1024
	userAgent                = "bestmirror/1.0"
)

// Discovery looks up the mirrors serving a Fedora release.
type Discovery struct {
	client     *http.Client
	logger     *slog.Logger
	mirrorsURL string
}

// NewDiscovery creates a Discovery that queries mirrorsURL, or
// DefaultMirrorsURL when mirrorsURL is empty. timeout bounds the whole
// mirror list request; zero selects DefaultConnectTimeout.
func NewDiscovery(mirrorsURL string, timeout time.Duration, logger *slog.Logger) *Discovery {
	if mirrorsURL == "" {
		mirrorsURL = DefaultMirrorsURL
	}
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	return &Discovery{
		client: &http.Client{
			Timeout: timeout,
		},
		logger:     logger,
		mirrorsURL: mirrorsURL,
	}
}

// MirrorList returns the base URLs of the mirrors carrying the Everything
// repository for the given Fedora version and architecture, in the order
// the service listed them.
func (d *Discovery) MirrorList(ctx context.Context, version, arch string) ([]string, error) {
	u, err := safety.ValidateHTTPURL(d.mirrorsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid mirror list URL: %w", err)
	}
	q := u.Query()
	q.Set("repo", "fedora-"+version)
	q.Set("arch", arch)
	u.RawQuery = q.Encode()

	data, err := d.fetch(ctx, u.String())
	if err != nil {
		return nil, fmt.Errorf("fetching mirror list for Fedora %s %s: %w", version, arch, err)
	}

	mirrors := parseMirrorList(data)
	d.logger.Debug("mirror list fetched", "version", version, "arch", arch, "mirrors", len(mirrors))
	return mirrors, nil
}

// fetch performs an HTTP GET request with the given context and returns the response body.
func (d *Discovery) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := safety.ReadAllWithLimit(resp.Body, maxMirrorListBytes)
	if err != nil {
		if errors.Is(err, safety.ErrBodyTooLarge) {
			return nil, fmt.Errorf("response exceeded %d bytes for %s: %w", maxMirrorListBytes, url, err)
		}
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return body, nil
}
