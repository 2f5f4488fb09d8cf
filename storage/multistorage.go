package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ruteri/lighthouse-toolkit/interfaces"
)

// MultiGateway tries a list of gateways in order and returns the first
// successful fetch. Each gateway is asked at most once per fetch.
type MultiGateway struct {
	gateways []interfaces.Gateway
	log      *slog.Logger
}

func NewMultiGateway(gateways []interfaces.Gateway, logger *slog.Logger) *MultiGateway {
	if logger == nil {
		logger = slog.Default()
	}

	return &MultiGateway{
		gateways: gateways,
		log:      logger,
	}
}

func (m *MultiGateway) Fetch(ctx context.Context, id interfaces.ContentID) (*interfaces.Download, error) {
	start := time.Now()
	var errs []error

	for _, gateway := range m.gateways {
		if !gateway.Available(ctx) {
			m.log.Debug("Gateway unavailable",
				slog.String("gateway", gateway.Name()),
				slog.String("cid", id.String()))
			errs = append(errs, fmt.Errorf("%s: %w", gateway.Name(), interfaces.ErrBackendUnavailable))
			continue
		}

		download, err := gateway.Fetch(ctx, id)
		if err == nil {
			m.log.Debug("Fetched content",
				slog.String("gateway", gateway.Name()),
				slog.String("cid", id.String()),
				slog.Duration("duration", time.Since(start)))
			return download, nil
		}

		errs = append(errs, fmt.Errorf("%s: %w", gateway.Name(), err))
		m.log.Debug("Failed to fetch from gateway",
			slog.String("gateway", gateway.Name()),
			slog.String("cid", id.String()),
			"err", err)
	}

	if len(errs) == 0 {
		return nil, fmt.Errorf("no gateways configured for %s", id)
	}

	return nil, fmt.Errorf("all gateways failed to fetch %s: %w", id, errors.Join(errs...))
}

// Available checks if any gateway is available.
func (m *MultiGateway) Available(ctx context.Context) bool {
	for _, gateway := range m.gateways {
		if gateway.Available(ctx) {
			return true
		}
	}
	return false
}

func (m *MultiGateway) Name() string {
	return "multi-gateway"
}

func (m *MultiGateway) LocationURI() string {
	var locations []string
	for _, gateway := range m.gateways {
		locations = append(locations, gateway.LocationURI())
	}

	return "multi:[" + strings.Join(locations, ",") + "]"
}
