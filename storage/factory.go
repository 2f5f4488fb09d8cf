package storage

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ruteri/lighthouse-toolkit/interfaces"
)

// GatewayFactory creates gateways from URI strings.
type GatewayFactory struct {
	log    *slog.Logger
	client *http.Client
}

// NewGatewayFactory creates a factory; client is shared by all HTTP gateways.
func NewGatewayFactory(logger *slog.Logger, client *http.Client) *GatewayFactory {
	return &GatewayFactory{
		log:    logger,
		client: client,
	}
}

// GatewayFor creates a gateway from a location URI.
//
// Supported schemes:
//   - http://, https:// - IPFS HTTP gateway serving /ipfs/<cid>
//   - ipfs:// - IPFS node API, ipfs://host:port/?timeout=30s
func (gf *GatewayFactory) GatewayFor(locationURI string) (interfaces.Gateway, error) {
	u, err := url.Parse(locationURI)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidLocationURI, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		if u.Host == "" {
			return nil, fmt.Errorf("%w: missing host in %s", interfaces.ErrInvalidLocationURI, locationURI)
		}
		return NewHTTPGateway(locationURI, gf.client, gf.log), nil
	case "ipfs":
		return gf.createIPFSGateway(u)
	default:
		return nil, fmt.Errorf("%w: unsupported gateway scheme: %s", interfaces.ErrInvalidLocationURI, u.Scheme)
	}
}

// CreateMultiGateway creates a fallback gateway from a list of URIs.
// Invalid URIs are logged and skipped; at least one must be valid.
func (gf *GatewayFactory) CreateMultiGateway(locationURIs []string) (interfaces.Gateway, error) {
	gateways := make([]interfaces.Gateway, 0, len(locationURIs))

	for _, uri := range locationURIs {
		gateway, err := gf.GatewayFor(uri)
		if err != nil {
			gf.log.Warn("Failed to create gateway",
				"err", err,
				slog.String("locationURI", uri))
			continue
		}
		gateways = append(gateways, gateway)
	}

	if len(gateways) == 0 {
		return nil, fmt.Errorf("no valid gateways created")
	}

	if len(gateways) == 1 {
		return gateways[0], nil
	}

	return NewMultiGateway(gateways, gf.log), nil
}

func (gf *GatewayFactory) createIPFSGateway(u *url.URL) (interfaces.Gateway, error) {
	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("%w: missing host in %s", interfaces.ErrInvalidLocationURI, u.String())
	}
	port := u.Port()
	if port == "" {
		port = "5001"
	}

	timeout := 30 * time.Second
	if raw := u.Query().Get("timeout"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid timeout %q", interfaces.ErrInvalidLocationURI, raw)
		}
		timeout = parsed
	}

	return NewIPFSGateway(host, port, timeout, gf.log), nil
}
