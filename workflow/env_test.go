package workflow

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/ruteri/lighthouse-toolkit/api/lighthouse"
	"github.com/ruteri/lighthouse-toolkit/config"
	"github.com/ruteri/lighthouse-toolkit/cryptoutils"
	"github.com/ruteri/lighthouse-toolkit/httpserver"
	"github.com/ruteri/lighthouse-toolkit/storage"
	"github.com/stretchr/testify/require"
)

// testEnv wires real workflows to an in-process emulator.
type testEnv struct {
	emu    *httpserver.Emulator
	cfg    *config.Config
	client *lighthouse.Client
	store  *storage.RecordStore
	log    *slog.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	emu := httpserver.NewEmulator(logger)
	srv, err := httpserver.New(&httpserver.HTTPServerConfig{Log: logger}, emu)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	cfg := config.Default()
	cfg.APIURL = ts.URL
	cfg.NodeURL = ts.URL
	cfg.EncryptionURL = ts.URL
	cfg.GatewayURIs = []string{ts.URL}
	cfg.APIKey = "test-api-key"
	cfg.WorkDir = t.TempDir()

	gateway := storage.NewHTTPGateway(ts.URL, ts.Client(), logger)

	return &testEnv{
		emu:    emu,
		cfg:    cfg,
		client: lighthouse.NewClient(cfg, gateway, ts.Client(), logger),
		store:  storage.NewRecordStore(cfg.WorkDir, logger),
		log:    logger,
	}
}

func (e *testEnv) uploader(signer *cryptoutils.Identity) *Uploader {
	if signer == nil {
		return NewUploader(e.cfg, nil, e.client, e.store, e.log)
	}
	return NewUploader(e.cfg, signer, e.client, e.store, e.log)
}

func (e *testEnv) retriever(signer *cryptoutils.Identity) *Retriever {
	if signer == nil {
		return NewRetriever(nil, e.client, e.store, e.log)
	}
	return NewRetriever(signer, e.client, e.store, e.log)
}

func (e *testEnv) controller(signer *cryptoutils.Identity) *AccessController {
	if signer == nil {
		return NewAccessController(nil, e.client, nil, e.log)
	}
	return NewAccessController(signer, e.client, nil, e.log)
}

func newIdentity(t *testing.T) *cryptoutils.Identity {
	t.Helper()
	id, err := cryptoutils.GenerateIdentity()
	require.NoError(t, err)
	return id
}
