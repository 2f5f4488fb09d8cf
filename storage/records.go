package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ruteri/lighthouse-toolkit/interfaces"
)

// RecordSlot is one record file the retrieval scan looks for.
type RecordSlot struct {
	FileName string
	Kind     interfaces.UploadKind
}

// ScanOrder lists the record files processed when no content id is given.
// encrypted-upload-details.json is kept for records written by older tools.
var ScanOrder = []RecordSlot{
	{FileName: interfaces.KindRegular.RecordFileName(), Kind: interfaces.KindRegular},
	{FileName: interfaces.KindText.RecordFileName(), Kind: interfaces.KindText},
	{FileName: "encrypted-upload-details.json", Kind: interfaces.KindEncrypted},
	{FileName: interfaces.KindEncrypted.RecordFileName(), Kind: interfaces.KindEncrypted},
}

// RecordStore keeps upload records and retrieved payloads as flat files in a
// single directory. There is one record file per upload kind.
type RecordStore struct {
	baseDir string
	log     *slog.Logger
}

func NewRecordStore(baseDir string, log *slog.Logger) *RecordStore {
	return &RecordStore{
		baseDir: baseDir,
		log:     log,
	}
}

// PathFor returns the record path for kind.
func (s *RecordStore) PathFor(kind interfaces.UploadKind) string {
	return filepath.Join(s.baseDir, kind.RecordFileName())
}

// SaveRecord replaces the record file for rec.Kind entirely.
func (s *RecordStore) SaveRecord(rec *interfaces.UploadRecord) (string, error) {
	path := s.PathFor(rec.Kind)

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return path, fmt.Errorf("failed to encode record: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return path, fmt.Errorf("failed to write record: %w", err)
	}

	s.log.Debug("Stored upload record",
		slog.String("path", path),
		slog.String("cid", rec.CID.String()))

	return path, nil
}

// LoadRecord reads and validates the record stored in fileName.
// Returns ErrRecordNotFound if the file does not exist.
func (s *RecordStore) LoadRecord(fileName string) (*interfaces.UploadRecord, error) {
	path := filepath.Join(s.baseDir, fileName)

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrRecordNotFound, path)
	} else if err != nil {
		return nil, fmt.Errorf("failed to read record: %w", err)
	}

	var rec interfaces.UploadRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("malformed record %s: %w", path, err)
	}

	if _, err := interfaces.ParseContentID(rec.CID.String()); err != nil {
		return nil, fmt.Errorf("malformed record %s: %w", path, err)
	}

	return &rec, nil
}

// ScannedRecord is the outcome of loading one slot of ScanOrder.
type ScannedRecord struct {
	Slot   RecordSlot
	Record *interfaces.UploadRecord
	Err    error
}

// ScanRecords loads every record file present, in ScanOrder. Missing files
// are skipped; unreadable ones are returned with Err set.
func (s *RecordStore) ScanRecords() []ScannedRecord {
	var found []ScannedRecord
	for _, slot := range ScanOrder {
		rec, err := s.LoadRecord(slot.FileName)
		if errors.Is(err, interfaces.ErrRecordNotFound) {
			continue
		}
		if rec != nil && rec.Kind == "" {
			rec.Kind = slot.Kind
		}
		found = append(found, ScannedRecord{Slot: slot, Record: rec, Err: err})
	}
	return found
}

// WriteFile stores a retrieved payload under name and returns its path.
func (s *RecordStore) WriteFile(name string, data []byte) (string, error) {
	path := filepath.Join(s.baseDir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return path, fmt.Errorf("failed to write file: %w", err)
	}

	s.log.Debug("Stored retrieved content",
		slog.String("path", path),
		slog.Int("size", len(data)))

	return path, nil
}
