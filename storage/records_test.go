package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	"github.com/ruteri/lighthouse-toolkit/common"
	"github.com/ruteri/lighthouse-toolkit/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCID(t *testing.T, data string) interfaces.ContentID {
	t.Helper()
	mh, err := multihash.Sum([]byte(data), multihash.SHA2_256, -1)
	require.NoError(t, err)
	return interfaces.ContentID(cid.NewCidV1(cid.Raw, mh).String())
}

func TestRecordStore_SaveLoad(t *testing.T) {
	dir := t.TempDir()
	store := NewRecordStore(dir, common.DiscardLogger())

	rec := &interfaces.UploadRecord{
		FileName:        "sample.txt",
		CID:             testCID(t, "sample"),
		Size:            6,
		PublicKey:       "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23",
		UploadTimestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Kind:            interfaces.KindEncrypted,
		Encrypted:       true,
	}

	path, err := store.SaveRecord(rec)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "upload-details.json"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, "sample.txt", fields["fileName"])
	assert.Equal(t, rec.CID.String(), fields["cid"])
	assert.Equal(t, float64(6), fields["size"])
	assert.Equal(t, "encrypted", fields["type"])
	assert.Equal(t, "2026-01-02T03:04:05Z", fields["uploadTimestamp"])
	assert.NotContains(t, fields, "viewUrl")

	loaded, err := store.LoadRecord("upload-details.json")
	require.NoError(t, err)
	assert.Equal(t, rec, loaded)
}

func TestRecordStore_OverwritesSameKind(t *testing.T) {
	dir := t.TempDir()
	store := NewRecordStore(dir, common.DiscardLogger())

	first := &interfaces.UploadRecord{
		FileName: "first.txt",
		CID:      testCID(t, "first"),
		Kind:     interfaces.KindText,
		ViewURL:  "https://gateway.example/ipfs/first",
	}
	second := &interfaces.UploadRecord{
		FileName: "second.txt",
		CID:      testCID(t, "second"),
		Kind:     interfaces.KindText,
	}

	_, err := store.SaveRecord(first)
	require.NoError(t, err)
	_, err = store.SaveRecord(second)
	require.NoError(t, err)

	raw, err := os.ReadFile(store.PathFor(interfaces.KindText))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "first.txt")
	assert.NotContains(t, string(raw), "viewUrl")

	loaded, err := store.LoadRecord(interfaces.KindText.RecordFileName())
	require.NoError(t, err)
	assert.Equal(t, second, loaded)
}

func TestRecordStore_LoadFailures(t *testing.T) {
	dir := t.TempDir()
	store := NewRecordStore(dir, common.DiscardLogger())

	_, err := store.LoadRecord("regular-upload-details.json")
	assert.ErrorIs(t, err, interfaces.ErrRecordNotFound)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "text-upload-details.json"), []byte("{not json"), 0644))
	_, err = store.LoadRecord("text-upload-details.json")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, interfaces.ErrRecordNotFound)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "upload-details.json"), []byte(`{"fileName":"x","cid":""}`), 0644))
	_, err = store.LoadRecord("upload-details.json")
	assert.ErrorIs(t, err, interfaces.ErrEmptyContentID)
}

func TestRecordStore_ScanRecords(t *testing.T) {
	dir := t.TempDir()
	store := NewRecordStore(dir, common.DiscardLogger())

	assert.Empty(t, store.ScanRecords())

	_, err := store.SaveRecord(&interfaces.UploadRecord{FileName: "a", CID: testCID(t, "a"), Kind: interfaces.KindEncrypted})
	require.NoError(t, err)
	_, err = store.SaveRecord(&interfaces.UploadRecord{FileName: "b", CID: testCID(t, "b"), Kind: interfaces.KindRegular})
	require.NoError(t, err)
	// Legacy record without a type field.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "encrypted-upload-details.json"),
		[]byte(`{"fileName":"c","cid":"`+testCID(t, "c").String()+`","size":1}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "text-upload-details.json"), []byte("garbage"), 0644))

	scanned := store.ScanRecords()
	require.Len(t, scanned, 4)

	assert.Equal(t, "regular-upload-details.json", scanned[0].Slot.FileName)
	assert.Equal(t, "b", scanned[0].Record.FileName)

	assert.Equal(t, "text-upload-details.json", scanned[1].Slot.FileName)
	assert.Error(t, scanned[1].Err)
	assert.Nil(t, scanned[1].Record)

	assert.Equal(t, "c", scanned[2].Record.FileName)
	assert.Equal(t, interfaces.KindEncrypted, scanned[2].Record.Kind)

	assert.Equal(t, "a", scanned[3].Record.FileName)
}

func TestRecordStore_WriteFile(t *testing.T) {
	dir := t.TempDir()
	store := NewRecordStore(dir, common.DiscardLogger())

	path, err := store.WriteFile("../escape/downloaded-x", []byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "downloaded-x"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(raw))
}
