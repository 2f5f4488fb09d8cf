package flags

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/ruteri/lighthouse-toolkit/common"
	"github.com/ruteri/lighthouse-toolkit/config"
	"github.com/ruteri/lighthouse-toolkit/storage"
	"github.com/urfave/cli/v2"
)

// LoadDotEnv loads .env from the working directory if present. Variables
// already set in the environment take precedence.
func LoadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("could not load .env: %w", err)
	}
	return nil
}

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String("log-service")

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

// ConfigFromCLI builds the process configuration from flags and their
// environment variables. When --private-key-vault is set and PRIVATE_KEY is
// not, the identity secret is read from Vault.
func ConfigFromCLI(cCtx *cli.Context, logger *slog.Logger) (*config.Config, error) {
	cfg := config.Default()

	cfg.PrivateKey = strings.TrimSpace(cCtx.String(PrivateKeyFlag.Name))
	cfg.PublicAddress = cCtx.String(PublicAddressFlag.Name)
	cfg.APIKey = cCtx.String(APIKeyFlag.Name)
	cfg.APIURL = cCtx.String(APIURLFlag.Name)
	cfg.NodeURL = cCtx.String(NodeURLFlag.Name)
	cfg.EncryptionURL = cCtx.String(EncryptionURLFlag.Name)
	cfg.GatewayURIs = cCtx.StringSlice(GatewayFlag.Name)
	if ipfsAPI := cCtx.String(IPFSAPIFlag.Name); ipfsAPI != "" {
		cfg.GatewayURIs = append([]string{ipfsAPI}, cfg.GatewayURIs...)
	}
	cfg.KeyShards = cCtx.Int(KeyShardsFlag.Name)
	cfg.KeyThreshold = cCtx.Int(KeyThresholdFlag.Name)
	cfg.WorkDir = cCtx.String(WorkDirFlag.Name)
	cfg.HTTPTimeout = cCtx.Duration(HTTPTimeoutFlag.Name)
	cfg.RPCAddr = cCtx.String(RpcAddrFlag.Name)

	if vaultURI := cCtx.String(PrivateKeyVaultFlag.Name); vaultURI != "" && cfg.PrivateKey == "" {
		source, err := storage.NewVaultSecretSource(vaultURI, logger)
		if err != nil {
			return nil, err
		}
		if token := cCtx.String(VaultTokenFlag.Name); token != "" {
			source.SetToken(token)
		}

		ctx, cancel := context.WithTimeout(cCtx.Context, cfg.HTTPTimeout)
		defer cancel()

		secret, err := source.Secret(ctx)
		if err != nil {
			return nil, err
		}
		cfg.PrivateKey = secret
		logger.Info("Loaded identity secret from Vault", slog.String("location", source.LocationURI()))
	}

	return cfg, nil
}

var PrivateKeyFlag = &cli.StringFlag{
	Name:    "private-key",
	EnvVars: []string{"PRIVATE_KEY"},
	Usage:   "hex-encoded identity secret (required)",
}

var PublicAddressFlag = &cli.StringFlag{
	Name:    "public-address",
	EnvVars: []string{"PUBLIC_ADDRESS"},
	Usage:   "public address, informational only; the signing address is derived from the private key",
}

var APIKeyFlag = &cli.StringFlag{
	Name:    "api-key",
	EnvVars: []string{"API_KEY"},
	Usage:   "Lighthouse API key used for uploads",
}

var APIURLFlag = &cli.StringFlag{
	Name:    "api-url",
	EnvVars: []string{"LIGHTHOUSE_API_URL"},
	Value:   config.DefaultAPIURL,
	Usage:   "Lighthouse API host (auth messages, deal status)",
}

var NodeURLFlag = &cli.StringFlag{
	Name:    "node-url",
	EnvVars: []string{"LIGHTHOUSE_NODE_URL"},
	Value:   config.DefaultNodeURL,
	Usage:   "Lighthouse upload node",
}

var EncryptionURLFlag = &cli.StringFlag{
	Name:    "encryption-url",
	EnvVars: []string{"LIGHTHOUSE_ENCRYPTION_URL"},
	Value:   config.DefaultEncryptionURL,
	Usage:   "Lighthouse key service (key shards and access conditions)",
}

var GatewayFlag = &cli.StringSliceFlag{
	Name:    "gateway",
	EnvVars: []string{"LIGHTHOUSE_GATEWAY_URL"},
	Value:   cli.NewStringSlice(config.DefaultGatewayURL),
	Usage:   "download gateways tried in order: http(s)://host or ipfs://host:port",
}

var IPFSAPIFlag = &cli.StringFlag{
	Name:    "ipfs-api",
	EnvVars: []string{"IPFS_API"},
	Usage:   "local IPFS node tried before the gateways, e.g. ipfs://127.0.0.1:5001",
}

var KeyShardsFlag = &cli.IntFlag{
	Name:  "key-shards",
	Value: config.DefaultKeyShards,
	Usage: "number of key nodes a file key is split across",
}

var KeyThresholdFlag = &cli.IntFlag{
	Name:  "key-threshold",
	Value: config.DefaultKeyThreshold,
	Usage: "number of shards needed to recover a file key",
}

var WorkDirFlag = &cli.StringFlag{
	Name:  "work-dir",
	Value: ".",
	Usage: "directory holding upload records and retrieved files",
}

var HTTPTimeoutFlag = &cli.DurationFlag{
	Name:  "http-timeout",
	Value: config.DefaultHTTPTimeout,
	Usage: "timeout for each remote call",
}

var RpcAddrFlag = &cli.StringFlag{
	Name:    "rpc-addr",
	EnvVars: []string{"RPC_ADDR"},
	Usage:   "Ethereum RPC used to pre-check block height conditions",
}

var PrivateKeyVaultFlag = &cli.StringFlag{
	Name:    "private-key-vault",
	EnvVars: []string{"PRIVATE_KEY_VAULT"},
	Usage:   "read the identity secret from Vault, e.g. vault://127.0.0.1:8200/secret/lighthouse?field=private_key",
}

var VaultTokenFlag = &cli.StringFlag{
	Name:    "vault-token",
	EnvVars: []string{"VAULT_TOKEN"},
	Usage:   "Vault token",
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}

var LogServiceFlagFn = func(service string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "log-service",
		Value: service,
		Usage: "add 'service' tag to logs",
	}
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}

var LogFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
}

// ClientFlags configure the identity and the Lighthouse hosts.
var ClientFlags = []cli.Flag{
	PrivateKeyFlag,
	PublicAddressFlag,
	APIKeyFlag,
	APIURLFlag,
	NodeURLFlag,
	EncryptionURLFlag,
	GatewayFlag,
	IPFSAPIFlag,
	KeyShardsFlag,
	KeyThresholdFlag,
	WorkDirFlag,
	HTTPTimeoutFlag,
	PrivateKeyVaultFlag,
	VaultTokenFlag,
}

// ServerFlags configure the emulator's HTTP server.
var ServerFlags = []cli.Flag{
	PprofFlag,
	DrainSecondsFlag,
}

// DrainDuration returns the configured drain period.
func DrainDuration(cCtx *cli.Context) time.Duration {
	return time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second
}
