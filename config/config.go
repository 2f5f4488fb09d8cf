// Package config holds the process-wide configuration. It is built once at
// process start and passed explicitly into every workflow.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/ruteri/lighthouse-toolkit/interfaces"
)

const (
	DefaultAPIURL        = "https://api.lighthouse.storage"
	DefaultNodeURL       = "https://node.lighthouse.storage"
	DefaultGatewayURL    = "https://gateway.lighthouse.storage"
	DefaultEncryptionURL = "https://encryption.lighthouse.storage"

	DefaultKeyShards    = 5
	DefaultKeyThreshold = 3
	DefaultHTTPTimeout  = 60 * time.Second
)

type Config struct {
	// PrivateKey is the identity secret. Required by every workflow.
	PrivateKey string
	// PublicAddress is informational; the signing address is always derived
	// from PrivateKey.
	PublicAddress string
	APIKey        string

	APIURL        string
	NodeURL       string
	EncryptionURL string

	// GatewayURIs are tried in order for plain downloads, for example
	// "https://gateway.lighthouse.storage" or "ipfs://127.0.0.1:5001".
	GatewayURIs []string

	KeyShards    int
	KeyThreshold int

	// WorkDir holds upload records and retrieved files.
	WorkDir     string
	HTTPTimeout time.Duration

	// RPCAddr enables the advisory chain-height pre-flight when set.
	RPCAddr string
}

// Default returns a configuration pointing at the public Lighthouse hosts.
func Default() *Config {
	return &Config{
		APIURL:        DefaultAPIURL,
		NodeURL:       DefaultNodeURL,
		EncryptionURL: DefaultEncryptionURL,
		GatewayURIs:   []string{DefaultGatewayURL},
		KeyShards:     DefaultKeyShards,
		KeyThreshold:  DefaultKeyThreshold,
		WorkDir:       ".",
		HTTPTimeout:   DefaultHTTPTimeout,
	}
}

// Validate reports configuration errors. A missing private key is reported
// as interfaces.ErrMissingPrivateKey so callers can stop before any network call.
func (c *Config) Validate() error {
	if c.PrivateKey == "" {
		return interfaces.ErrMissingPrivateKey
	}

	for name, raw := range map[string]string{
		"api url":        c.APIURL,
		"node url":       c.NodeURL,
		"encryption url": c.EncryptionURL,
	} {
		if err := validateHTTPURL(raw); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}

	if len(c.GatewayURIs) == 0 {
		return errors.New("at least one gateway is required")
	}

	if c.KeyThreshold < 2 || c.KeyShards < c.KeyThreshold {
		return fmt.Errorf("invalid key sharding %d-of-%d", c.KeyThreshold, c.KeyShards)
	}

	if c.WorkDir == "" {
		return errors.New("work dir is required")
	}

	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

// HTTPGatewayURL returns the first http(s) gateway, used for endpoints only an
// HTTP gateway serves. Falls back to DefaultGatewayURL.
func (c *Config) HTTPGatewayURL() string {
	for _, uri := range c.GatewayURIs {
		if u, err := url.Parse(uri); err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
			return uri
		}
	}
	return DefaultGatewayURL
}
