package storage

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"
)

// VaultSecretSource reads the identity secret from a Vault KV v2 secret so
// that it does not have to be kept in the environment or a .env file.
//
// URI format: vault://host:8200/<mount>/<path>?field=private_key&scheme=https
// The token is taken from VAULT_TOKEN.
type VaultSecretSource struct {
	client      *api.Client
	mountPath   string
	dataPath    string
	field       string
	log         *slog.Logger
	locationURI string
}

// NewVaultSecretSource creates a secret source from a vault:// URI.
func NewVaultSecretSource(locationURI string, log *slog.Logger) (*VaultSecretSource, error) {
	u, err := url.Parse(locationURI)
	if err != nil {
		return nil, fmt.Errorf("invalid vault URI: %w", err)
	}
	if u.Scheme != "vault" {
		return nil, fmt.Errorf("invalid vault URI scheme %q", u.Scheme)
	}

	parts := strings.SplitN(strings.Trim(u.Path, "/"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("invalid vault URI %s, expected vault://host/<mount>/<path>", locationURI)
	}

	scheme := u.Query().Get("scheme")
	if scheme == "" {
		scheme = "https"
	}
	field := u.Query().Get("field")
	if field == "" {
		field = "private_key"
	}

	config := api.DefaultConfig()
	config.Address = fmt.Sprintf("%s://%s", scheme, u.Host)
	config.HttpClient = &http.Client{Timeout: 30 * time.Second}

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}

	return &VaultSecretSource{
		client:      client,
		mountPath:   parts[0],
		dataPath:    parts[1],
		field:       field,
		log:         log,
		locationURI: locationURI,
	}, nil
}

// SetToken overrides the token read from the environment.
func (s *VaultSecretSource) SetToken(token string) {
	s.client.SetToken(token)
}

// Secret reads the configured field of the KV v2 secret.
func (s *VaultSecretSource) Secret(ctx context.Context) (string, error) {
	start := time.Now()

	secret, err := s.client.KVv2(s.mountPath).Get(ctx, s.dataPath)
	if err != nil {
		s.log.Error("Failed to read from Vault",
			slog.String("mount", s.mountPath),
			slog.String("path", s.dataPath),
			"err", err)
		return "", fmt.Errorf("could not read secret from vault: %w", err)
	}

	value, ok := secret.Data[s.field]
	if !ok {
		return "", fmt.Errorf("field %q not found in vault secret %s", s.field, s.dataPath)
	}

	valueStr, ok := value.(string)
	if !ok || valueStr == "" {
		return "", fmt.Errorf("field %q in vault secret %s is not a non-empty string", s.field, s.dataPath)
	}

	s.log.Debug("Read identity secret from Vault",
		slog.String("path", s.dataPath),
		slog.Duration("duration", time.Since(start)))

	return valueStr, nil
}

// LocationURI returns the URI this source was created from.
func (s *VaultSecretSource) LocationURI() string {
	return s.locationURI
}
