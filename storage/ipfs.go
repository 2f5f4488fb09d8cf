package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	shell "github.com/ipfs/go-ipfs-api"
	"github.com/ruteri/lighthouse-toolkit/interfaces"
)

// IPFSGateway reads content through the HTTP API of a local or remote IPFS
// node. Content uploaded to the storage network is reachable from any node
// once it has been announced.
type IPFSGateway struct {
	shell       *shell.Shell
	host        string
	port        string
	log         *slog.Logger
	locationURI string
}

// NewIPFSGateway creates a gateway connected to the node API at host:port.
func NewIPFSGateway(host, port string, timeout time.Duration, log *slog.Logger) *IPFSGateway {
	apiURL := fmt.Sprintf("%s:%s", host, port)

	sh := shell.NewShell(apiURL)
	sh.SetTimeout(timeout)

	return &IPFSGateway{
		shell:       sh,
		host:        host,
		port:        port,
		log:         log,
		locationURI: fmt.Sprintf("ipfs://%s/?timeout=%s", apiURL, timeout),
	}
}

// Fetch retrieves data from IPFS by its content identifier.
// Returns ErrContentNotFound if the node cannot resolve the path or
// ErrBackendUnavailable if the node is not accessible.
func (g *IPFSGateway) Fetch(ctx context.Context, id interfaces.ContentID) (*interfaces.Download, error) {
	start := time.Now()
	path := "/ipfs/" + id.String()

	if !g.shell.IsUp() {
		g.log.Warn("IPFS node unavailable",
			slog.String("host", g.host),
			slog.String("port", g.port))
		return nil, interfaces.ErrBackendUnavailable
	}

	reader, err := g.shell.Cat(path)
	if err != nil {
		if strings.Contains(err.Error(), "no link named") || strings.Contains(err.Error(), "not found") {
			g.log.Debug("Content not found in IPFS",
				slog.String("path", path),
				slog.Duration("duration", time.Since(start)))
			return nil, interfaces.ErrContentNotFound
		}

		g.log.Error("Failed to fetch data from IPFS",
			slog.String("path", path),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("failed to fetch data from IPFS: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read data from IPFS: %w", err)
	}

	g.log.Debug("Fetched content from IPFS",
		slog.String("path", path),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	// The node API does not carry a media type, sniff it.
	return &interfaces.Download{
		Data:        data,
		ContentType: http.DetectContentType(data),
	}, nil
}

// Available checks if the IPFS node is accessible.
func (g *IPFSGateway) Available(ctx context.Context) bool {
	return g.shell.IsUp()
}

// Name returns a unique identifier for this gateway.
func (g *IPFSGateway) Name() string {
	return fmt.Sprintf("ipfs-%s-%s", g.host, g.port)
}

// LocationURI returns the URI that identifies this gateway.
func (g *IPFSGateway) LocationURI() string {
	return g.locationURI
}
