package lhcommon

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ruteri/lighthouse-toolkit/api/lighthouse"
	"github.com/ruteri/lighthouse-toolkit/cmd/flags"
	"github.com/ruteri/lighthouse-toolkit/config"
	"github.com/ruteri/lighthouse-toolkit/cryptoutils"
	"github.com/ruteri/lighthouse-toolkit/interfaces"
	"github.com/ruteri/lighthouse-toolkit/storage"
	"github.com/urfave/cli/v2"
)

// Toolkit holds everything a command needs, built once per invocation.
type Toolkit struct {
	Config   *config.Config
	Identity *cryptoutils.Identity
	Client   *lighthouse.Client
	Records  *storage.RecordStore
	Log      *slog.Logger
}

// Setup validates the configuration and wires the identity, the storage
// client and the record store. No network call is made here unless the
// identity secret is read from Vault.
func Setup(cCtx *cli.Context, logger *slog.Logger) (*Toolkit, error) {
	cfg, err := flags.ConfigFromCLI(cCtx, logger)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	identity, err := cryptoutils.NewIdentityFromHex(cfg.PrivateKey)
	if err != nil {
		return nil, err
	}

	if cfg.PublicAddress != "" && !strings.EqualFold(cfg.PublicAddress, identity.Address()) {
		logger.Warn("PUBLIC_ADDRESS does not match the private key, using the derived address",
			slog.String("configured", cfg.PublicAddress),
			slog.String("derived", identity.Address()))
	}
	logger.Info("Using wallet address", slog.String("address", identity.Address()))

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	gateway, err := storage.NewGatewayFactory(logger, httpClient).CreateMultiGateway(cfg.GatewayURIs)
	if err != nil {
		return nil, err
	}

	return &Toolkit{
		Config:   cfg,
		Identity: identity,
		Client:   lighthouse.NewClient(cfg, gateway, httpClient, logger),
		Records:  storage.NewRecordStore(cfg.WorkDir, logger),
		Log:      logger,
	}, nil
}

// ContentIDArg validates a content id argument. Ids without the usual
// prefixes are accepted with a warning.
func ContentIDArg(arg string, logger *slog.Logger) (interfaces.ContentID, error) {
	id, err := interfaces.ParseContentID(arg)
	if err != nil {
		return "", err
	}
	if !id.LooksCanonical() {
		logger.Warn("Content id format looks unusual, expected bafkrei... or Qm...", slog.String("cid", id.String()))
	}
	return id, nil
}

// Finish logs err. Missing inputs end the invocation without a failing exit
// status; every other error is returned to the caller.
func Finish(logger *slog.Logger, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, interfaces.ErrMissingPrivateKey):
		logger.Error("Please set PRIVATE_KEY in your environment or .env file")
		return nil
	case errors.Is(err, interfaces.ErrEmptyContentID):
		logger.Error("No content id provided")
		return nil
	default:
		logger.Error("Command failed", "err", err)
		return err
	}
}

// CommonFlags is the flag set shared by every client binary.
func CommonFlags(service string) []cli.Flag {
	out := append([]cli.Flag{}, flags.LogFlags...)
	out = append(out, flags.LogServiceFlagFn(service))
	return append(out, flags.ClientFlags...)
}
