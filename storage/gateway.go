package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ruteri/lighthouse-toolkit/interfaces"
)

// HTTPGateway fetches content from an IPFS HTTP gateway at <base>/ipfs/<cid>.
type HTTPGateway struct {
	baseURL string
	client  *http.Client
	log     *slog.Logger
}

// NewHTTPGateway creates a gateway rooted at baseURL.
func NewHTTPGateway(baseURL string, client *http.Client, log *slog.Logger) *HTTPGateway {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPGateway{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
		log:     log,
	}
}

// ViewURL returns the public URL of id on this gateway.
func (g *HTTPGateway) ViewURL(id interfaces.ContentID) string {
	return fmt.Sprintf("%s/ipfs/%s", g.baseURL, id)
}

// Fetch downloads the plain content for id. A 404 is reported as
// ErrContentNotFound, other non-200 responses as *interfaces.RemoteError.
func (g *HTTPGateway) Fetch(ctx context.Context, id interfaces.ContentID) (*interfaces.Download, error) {
	start := time.Now()
	url := g.ViewURL(id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("could not initialize request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read gateway response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		remote := &interfaces.RemoteError{Endpoint: "gateway", StatusCode: resp.StatusCode, Body: string(body)}
		if resp.StatusCode == http.StatusNotFound {
			return nil, errors.Join(interfaces.ErrContentNotFound, remote)
		}
		return nil, remote
	}

	g.log.Debug("Fetched content from gateway",
		slog.String("url", url),
		slog.String("content_type", resp.Header.Get("Content-Type")),
		slog.Int("size", len(body)),
		slog.Duration("duration", time.Since(start)))

	return &interfaces.Download{
		Data:        body,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

// Available always reports true; HTTP gateways are probed by the fetch itself.
func (g *HTTPGateway) Available(ctx context.Context) bool {
	return true
}

// Name returns a unique identifier for this gateway.
func (g *HTTPGateway) Name() string {
	return "gateway-" + strings.TrimPrefix(strings.TrimPrefix(g.baseURL, "https://"), "http://")
}

// LocationURI returns the URI that identifies this gateway.
func (g *HTTPGateway) LocationURI() string {
	return g.baseURL
}
