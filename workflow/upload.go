package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ruteri/lighthouse-toolkit/config"
	"github.com/ruteri/lighthouse-toolkit/interfaces"
)

// DefaultTextName is used for text uploads without an explicit name.
const DefaultTextName = "encrypted-text"

// RecordWriter persists upload records, one file per kind.
type RecordWriter interface {
	SaveRecord(rec *interfaces.UploadRecord) (string, error)
}

// Source is either a local file (Path) or an inline payload (Text).
type Source struct {
	Path string
	Text string
	Name string
}

type Options struct {
	Encrypt bool
	// Kind selects the record file. Defaults to KindText for text sources,
	// KindEncrypted for encrypted files and KindRegular otherwise.
	Kind interfaces.UploadKind
}

// Uploader runs the upload workflow: authenticate, upload, persist the record.
type Uploader struct {
	client     interfaces.StorageClient
	signer     interfaces.IdentitySigner
	records    RecordWriter
	gatewayURL string
	log        *slog.Logger
	now        func() time.Time
}

// NewUploader creates an uploader. signer may be nil when no identity secret
// is configured; every upload then fails with ErrMissingPrivateKey.
func NewUploader(cfg *config.Config, signer interfaces.IdentitySigner, client interfaces.StorageClient, records RecordWriter, log *slog.Logger) *Uploader {
	return &Uploader{
		client:     client,
		signer:     signer,
		records:    records,
		gatewayURL: strings.TrimSuffix(cfg.HTTPGatewayURL(), "/"),
		log:        log,
		now:        time.Now,
	}
}

// Upload stores src and persists its UploadRecord, replacing any previous
// record of the same kind.
func (u *Uploader) Upload(ctx context.Context, src Source, opts Options) (*interfaces.UploadRecord, error) {
	if u.signer == nil {
		return nil, interfaces.ErrMissingPrivateKey
	}

	name, data, err := readSource(src)
	if err != nil {
		return nil, err
	}

	kind := opts.Kind
	if kind == "" {
		kind = defaultKind(src, opts)
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown upload kind %q", kind)
	}

	token, err := signAuthLogged(ctx, u.client, u.signer, u.log)
	if err != nil {
		return nil, err
	}

	u.log.Info("Uploading",
		slog.String("name", name),
		slog.Int("size", len(data)),
		slog.Bool("encrypted", opts.Encrypt),
		slog.String("address", u.signer.Address()))

	resp, err := u.client.Upload(ctx, interfaces.UploadRequest{
		Name:    name,
		Data:    data,
		Encrypt: opts.Encrypt,
		Address: u.signer.Address(),
		Token:   token,
	})
	if err != nil {
		return nil, &interfaces.UploadError{Name: name, Err: err}
	}

	size, err := resp.Size.Int64()
	if err != nil {
		size = int64(len(data))
		u.log.Warn("Upload response carries no numeric size, using local length",
			slog.String("size", resp.Size.String()))
	}

	recordName := resp.Name
	if recordName == "" {
		recordName = name
	}

	rec := &interfaces.UploadRecord{
		FileName:        recordName,
		CID:             resp.Hash,
		Size:            size,
		PublicKey:       u.signer.Address(),
		UploadTimestamp: u.now().UTC(),
		Kind:            kind,
		Encrypted:       opts.Encrypt,
	}
	if !opts.Encrypt {
		rec.ViewURL = fmt.Sprintf("%s/ipfs/%s", u.gatewayURL, resp.Hash)
	}

	path, err := u.records.SaveRecord(rec)
	if err != nil {
		return nil, &interfaces.PersistenceError{Path: path, Err: err}
	}

	u.log.Info("Upload complete",
		slog.String("cid", rec.CID.String()),
		slog.Int64("size", rec.Size),
		slog.String("record", path))

	return rec, nil
}

func readSource(src Source) (string, []byte, error) {
	if src.Path == "" {
		name := src.Name
		if name == "" {
			name = DefaultTextName
		}
		return name, []byte(src.Text), nil
	}

	info, err := os.Stat(src.Path)
	if errors.Is(err, os.ErrNotExist) || (err == nil && info.IsDir()) {
		return "", nil, &interfaces.SourceNotFoundError{Path: src.Path}
	} else if err != nil {
		return "", nil, fmt.Errorf("could not stat %s: %w", src.Path, err)
	}

	data, err := os.ReadFile(src.Path)
	if err != nil {
		return "", nil, fmt.Errorf("could not read %s: %w", src.Path, err)
	}

	name := src.Name
	if name == "" {
		name = filepath.Base(src.Path)
	}
	return name, data, nil
}

func defaultKind(src Source, opts Options) interfaces.UploadKind {
	switch {
	case src.Path == "":
		return interfaces.KindText
	case opts.Encrypt:
		return interfaces.KindEncrypted
	default:
		return interfaces.KindRegular
	}
}

// WriteSampleFile creates a uniquely named sample file in dir, addressed to
// the given public address, and returns its path.
func WriteSampleFile(dir, publicAddress string, now time.Time) (string, error) {
	id := uuid.New().String()[:8]
	stamp := strings.NewReplacer(":", "-", ".", "-").Replace(now.UTC().Format(time.RFC3339Nano))
	path := filepath.Join(dir, fmt.Sprintf("sample-data-%s-%s.txt", stamp, id))

	if publicAddress == "" {
		publicAddress = "Not set"
	}

	content := fmt.Sprintf(`This is a sample encrypted file uploaded to Lighthouse!
Creation Timestamp: %s
Unique ID: %s
Session info: Upload session %d

This file will be encrypted and stored on IPFS/Filecoin network.
Only the owner with the correct private key can decrypt and access this content.
Public Address: %s`, now.UTC().Format(time.RFC3339), id, now.UnixMilli(), publicAddress)

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("could not write sample file: %w", err)
	}
	return path, nil
}
