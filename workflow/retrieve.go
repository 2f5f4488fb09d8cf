package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/ruteri/lighthouse-toolkit/interfaces"
	"github.com/ruteri/lighthouse-toolkit/storage"
)

// DefaultDownloadName names plain downloads fetched by content id alone.
const DefaultDownloadName = "specific-file"

// RecordReader lists stored upload records and stores retrieved payloads.
type RecordReader interface {
	ScanRecords() []storage.ScannedRecord
	WriteFile(name string, data []byte) (string, error)
}

// RetrievalState names the step that produced (or failed to produce) bytes.
type RetrievalState string

const (
	StateDecrypt  RetrievalState = "decrypt"
	StateDownload RetrievalState = "download"
)

// Attempt is the outcome of one retrieval state. Exactly one of Data or Err
// is meaningful.
type Attempt struct {
	State       RetrievalState
	Data        []byte
	ContentType string
	Err         error
}

func (a Attempt) OK() bool {
	return a.Err == nil
}

// Retrieved holds the bytes of a successful retrieval and every attempt made.
type Retrieved struct {
	CID         interfaces.ContentID
	Data        []byte
	ContentType string
	State       RetrievalState
	Attempts    []Attempt
}

// Retriever runs the retrieval workflow: decrypt first, then plain download.
type Retriever struct {
	client  interfaces.StorageClient
	signer  interfaces.IdentitySigner
	records RecordReader
	log     *slog.Logger
	now     func() time.Time
}

// NewRetriever creates a retriever. signer may be nil, in which case every
// retrieval fails with ErrMissingPrivateKey.
func NewRetriever(signer interfaces.IdentitySigner, client interfaces.StorageClient, records RecordReader, log *slog.Logger) *Retriever {
	return &Retriever{
		client:  client,
		signer:  signer,
		records: records,
		log:     log,
		now:     time.Now,
	}
}

// Retrieve returns the bytes of id. Decryption is always attempted before the
// plain download since the gateway cannot serve plaintext of encrypted
// objects. If both fail the returned *RetrievalError carries both causes.
func (r *Retriever) Retrieve(ctx context.Context, id interfaces.ContentID) (*Retrieved, error) {
	if r.signer == nil {
		return nil, interfaces.ErrMissingPrivateKey
	}
	if id == "" {
		return nil, interfaces.ErrEmptyContentID
	}

	decrypt := r.attemptDecrypt(ctx, id)
	if decrypt.OK() {
		return r.result(id, decrypt, decrypt), nil
	}

	r.log.Info("Decryption not possible, falling back to plain download",
		slog.String("cid", id.String()),
		"err", decrypt.Err)

	download := r.attemptDownload(ctx, id)
	if download.OK() {
		return r.result(id, download, decrypt, download), nil
	}

	r.log.Error("Plain download failed",
		slog.String("cid", id.String()),
		"err", download.Err)

	return nil, &interfaces.RetrievalError{
		CID:         id,
		DecryptErr:  decrypt.Err,
		DownloadErr: download.Err,
	}
}

func (r *Retriever) result(id interfaces.ContentID, winner Attempt, attempts ...Attempt) *Retrieved {
	return &Retrieved{
		CID:         id,
		Data:        winner.Data,
		ContentType: winner.ContentType,
		State:       winner.State,
		Attempts:    attempts,
	}
}

func (r *Retriever) attemptDecrypt(ctx context.Context, id interfaces.ContentID) Attempt {
	attempt := Attempt{State: StateDecrypt}

	token, err := SignAuth(ctx, r.client, r.signer)
	if err != nil {
		attempt.Err = err
		return attempt
	}

	key, err := r.client.FetchEncryptionKey(ctx, id, r.signer.Address(), token)
	if err != nil {
		attempt.Err = fmt.Errorf("could not fetch encryption key: %w", err)
		return attempt
	}
	r.log.Debug("Fetched encryption key", slog.String("cid", id.String()))

	data, err := r.client.Decrypt(ctx, id, key)
	if err != nil {
		attempt.Err = fmt.Errorf("could not decrypt: %w", err)
		return attempt
	}

	r.log.Info("Decrypted content", slog.String("cid", id.String()), slog.Int("size", len(data)))
	attempt.Data = data
	return attempt
}

func (r *Retriever) attemptDownload(ctx context.Context, id interfaces.ContentID) Attempt {
	attempt := Attempt{State: StateDownload}

	download, err := r.client.Download(ctx, id)
	if err != nil {
		attempt.Err = err
		return attempt
	}

	r.log.Info("Downloaded content",
		slog.String("cid", id.String()),
		slog.String("content_type", download.ContentType),
		slog.Int("size", len(download.Data)))

	attempt.Data = download.Data
	attempt.ContentType = download.ContentType
	return attempt
}

// Save writes a retrieval result to disk. Decrypted payloads are written to
// decrypted-<unix ms>.txt and downloads to downloaded-<name>; JSON downloads
// are pretty-printed.
func (r *Retriever) Save(res *Retrieved, name string) (string, error) {
	var fileName string
	data := res.Data

	switch res.State {
	case StateDecrypt:
		fileName = fmt.Sprintf("decrypted-%d.txt", r.now().UnixMilli())
	default:
		fileName = "downloaded-" + downloadName(name)
		data = FormatPayload(res.ContentType, data)
	}

	path, err := r.records.WriteFile(fileName, data)
	if err != nil {
		return path, &interfaces.PersistenceError{Path: path, Err: err}
	}

	r.log.Info("Saved retrieved content", slog.String("path", path))
	return path, nil
}

// downloadName keeps only the final element of name so that a download can
// never replace a file outside its downloaded- prefix.
func downloadName(name string) string {
	base := filepath.Base(name)
	switch base {
	case ".", "..", string(filepath.Separator):
		return DefaultDownloadName
	}
	return base
}

// DealStatus reports the deals backing id. Failures are logged and returned
// but never affect retrieval.
func (r *Retriever) DealStatus(ctx context.Context, id interfaces.ContentID) ([]interfaces.DealStatus, error) {
	deals, err := r.client.DealStatus(ctx, id)
	if err != nil {
		r.log.Warn("Could not get deal status", slog.String("cid", id.String()), "err", err)
		return nil, err
	}

	r.log.Info("Deal status", slog.String("cid", id.String()), slog.Int("deals", len(deals)))
	for _, deal := range deals {
		r.log.Debug("Deal",
			slog.String("status", deal.DealStatus),
			slog.String("provider", deal.StorageProvider),
			slog.Int64("chain_deal_id", deal.ChainDealID))
	}
	return deals, nil
}

// RecordOutcome is the result of processing one stored upload record.
type RecordOutcome struct {
	Slot      storage.RecordSlot
	Record    *interfaces.UploadRecord
	Retrieved *Retrieved
	Path      string
	Deals     []interfaces.DealStatus
	Err       error
}

// RetrieveRecords retrieves every stored upload record in scan order. A
// failing record does not stop the others. Returns ErrRecordNotFound when no
// record file exists.
func (r *Retriever) RetrieveRecords(ctx context.Context) ([]RecordOutcome, error) {
	if r.signer == nil {
		return nil, interfaces.ErrMissingPrivateKey
	}

	scanned := r.records.ScanRecords()
	if len(scanned) == 0 {
		return nil, fmt.Errorf("%w: no upload details found, upload something first", interfaces.ErrRecordNotFound)
	}

	outcomes := make([]RecordOutcome, 0, len(scanned))
	for _, s := range scanned {
		outcome := RecordOutcome{Slot: s.Slot, Record: s.Record, Err: s.Err}
		if s.Err != nil {
			r.log.Error("Skipping unreadable upload record", slog.String("file", s.Slot.FileName), "err", s.Err)
			outcomes = append(outcomes, outcome)
			continue
		}

		r.log.Info("Found upload record",
			slog.String("file", s.Slot.FileName),
			slog.String("name", s.Record.FileName),
			slog.String("cid", s.Record.CID.String()),
			slog.Int64("size", s.Record.Size),
			slog.String("kind", string(s.Record.Kind)))

		outcome.Retrieved, outcome.Err = r.Retrieve(ctx, s.Record.CID)
		if outcome.Err == nil {
			outcome.Path, outcome.Err = r.Save(outcome.Retrieved, s.Record.FileName)
		}
		outcome.Deals, _ = r.DealStatus(ctx, s.Record.CID)

		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}
