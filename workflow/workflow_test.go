package workflow

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ruteri/lighthouse-toolkit/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const unsatisfiableHeight = "9223372036854775808" // 2^63

func writeTempFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestUpload_PlainSizeMatchesFile(t *testing.T) {
	sizes := []int{0, 1, 1234, 64 << 10}

	for _, size := range sizes {
		env := newTestEnv(t)
		owner := newIdentity(t)

		data := make([]byte, size)
		_, err := rand.Read(data)
		require.NoError(t, err)
		path := writeTempFile(t, "payload.bin", data)

		rec, err := env.uploader(owner).Upload(context.Background(), Source{Path: path}, Options{Encrypt: false})
		require.NoError(t, err)

		assert.Equal(t, int64(size), rec.Size)
		assert.Equal(t, "payload.bin", rec.FileName)
		assert.Equal(t, owner.Address(), rec.PublicKey)
		assert.Equal(t, interfaces.KindRegular, rec.Kind)
		assert.False(t, rec.Encrypted)
		assert.True(t, rec.CID.LooksCanonical())

		stored, err := env.store.LoadRecord(interfaces.KindRegular.RecordFileName())
		require.NoError(t, err)
		assert.Equal(t, rec.CID, stored.CID)
		assert.Equal(t, rec.Size, stored.Size)
	}
}

func TestRetrieve_EncryptedRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := newIdentity(t)
	stranger := newIdentity(t)

	original := []byte("top secret payload\nwith two lines")
	path := writeTempFile(t, "secret.txt", original)

	rec, err := env.uploader(owner).Upload(ctx, Source{Path: path}, Options{Encrypt: true})
	require.NoError(t, err)
	assert.Equal(t, interfaces.KindEncrypted, rec.Kind)
	assert.Empty(t, rec.ViewURL)

	// Same identity gets the original bytes back.
	res, err := env.retriever(owner).Retrieve(ctx, rec.CID)
	require.NoError(t, err)
	assert.Equal(t, StateDecrypt, res.State)
	assert.Equal(t, original, res.Data)

	// A different identity without a condition gets neither the key nor the
	// plaintext.
	_, err = env.retriever(stranger).Retrieve(ctx, rec.CID)
	require.Error(t, err)

	var retrievalErr *interfaces.RetrievalError
	require.ErrorAs(t, err, &retrievalErr)
	assert.ErrorIs(t, retrievalErr.DecryptErr, interfaces.ErrAccessDenied)
	assert.Error(t, retrievalErr.DownloadErr)
}

func TestRetrieve_PlainUploadFallsBackToDownload(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := newIdentity(t)

	original := []byte(`{"hello":"world","n":[1,2,3]}`)
	path := writeTempFile(t, "data.json", original)

	rec, err := env.uploader(owner).Upload(ctx, Source{Path: path}, Options{})
	require.NoError(t, err)

	retriever := env.retriever(owner)
	for i := 0; i < 2; i++ {
		res, err := retriever.Retrieve(ctx, rec.CID)
		require.NoError(t, err)

		assert.Equal(t, StateDownload, res.State)
		assert.Equal(t, original, res.Data)
		require.Len(t, res.Attempts, 2)
		assert.False(t, res.Attempts[0].OK())
		assert.ErrorIs(t, res.Attempts[0].Err, interfaces.ErrNotEncrypted)
		assert.True(t, res.Attempts[1].OK())
	}
}

func TestAccessCondition_GatesNonOwner(t *testing.T) {
	tests := []struct {
		name      string
		threshold string
		wantKey   bool
	}{
		{"trivially satisfied", "1", true},
		{"unsatisfiable", unsatisfiableHeight, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.emu.SetHeight(1000)
			ctx := context.Background()
			owner := newIdentity(t)
			reader := newIdentity(t)

			original := []byte("gated content")
			rec, err := env.uploader(owner).Upload(ctx, Source{Text: string(original), Name: "gated"}, Options{Encrypt: true})
			require.NoError(t, err)

			cond := BlockHeightCondition("Base_Testnet", ">=", tt.threshold)
			ack, err := env.controller(owner).ApplyCondition(ctx, rec.CID, cond, DefaultAggregator)
			require.NoError(t, err)
			assert.Equal(t, rec.CID, ack.CID)
			assert.Equal(t, "Success", ack.Status)

			info, err := env.controller(reader).FetchKey(ctx, rec.CID)
			if !tt.wantKey {
				require.Error(t, err)
				assert.ErrorIs(t, err, interfaces.ErrAccessDenied)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, info.Key)
			assert.Contains(t, string(info.Conditions), "getBlockNumber")

			res, err := env.retriever(reader).Retrieve(ctx, rec.CID)
			require.NoError(t, err)
			assert.Equal(t, original, res.Data)
		})
	}
}

func TestApplyCondition_NonOwnerRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := newIdentity(t)
	other := newIdentity(t)

	rec, err := env.uploader(owner).Upload(ctx, Source{Text: "mine"}, Options{Encrypt: true})
	require.NoError(t, err)

	_, err = env.controller(other).ApplyCondition(ctx, rec.CID, BlockHeightCondition("Base_Testnet", ">=", "1"), "")
	require.Error(t, err)

	var ace *interfaces.AccessControlError
	require.ErrorAs(t, err, &ace)
	assert.Equal(t, 403, ace.StatusCode)
	assert.Contains(t, ace.Body, "owner")
}

func TestMissingPrivateKey_NoNetworkNoFiles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	path := writeTempFile(t, "file.txt", []byte("data"))

	_, err := env.uploader(nil).Upload(ctx, Source{Path: path}, Options{})
	assert.ErrorIs(t, err, interfaces.ErrMissingPrivateKey)

	_, err = env.uploader(nil).Upload(ctx, Source{Text: "hello"}, Options{Encrypt: true})
	assert.ErrorIs(t, err, interfaces.ErrMissingPrivateKey)

	_, err = env.retriever(nil).Retrieve(ctx, "bafkreigh2akiscaildcqabsyg3dfr6chu3fgpregiymsck7e7aqa4s52zy")
	assert.ErrorIs(t, err, interfaces.ErrMissingPrivateKey)

	_, err = env.retriever(nil).RetrieveRecords(ctx)
	assert.ErrorIs(t, err, interfaces.ErrMissingPrivateKey)

	_, err = env.controller(nil).ApplyCondition(ctx, "bafkreigh2akiscaildcqabsyg3dfr6chu3fgpregiymsck7e7aqa4s52zy", BlockHeightCondition("Base_Testnet", ">=", "1"), "")
	assert.ErrorIs(t, err, interfaces.ErrMissingPrivateKey)

	_, err = env.controller(nil).FetchKey(ctx, "bafkreigh2akiscaildcqabsyg3dfr6chu3fgpregiymsck7e7aqa4s52zy")
	assert.ErrorIs(t, err, interfaces.ErrMissingPrivateKey)

	assert.Equal(t, int64(0), env.emu.Requests())

	entries, err := os.ReadDir(env.cfg.WorkDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUpload_SameKindOverwrites(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := newIdentity(t)
	uploader := env.uploader(owner)

	first, err := uploader.Upload(ctx, Source{Text: "first plain text", Name: "first.txt"}, Options{Kind: interfaces.KindText})
	require.NoError(t, err)
	require.NotEmpty(t, first.ViewURL)

	second, err := uploader.Upload(ctx, Source{Text: "second encrypted text", Name: "second.txt"}, Options{Encrypt: true, Kind: interfaces.KindText})
	require.NoError(t, err)
	require.NotEqual(t, first.CID, second.CID)

	raw, err := os.ReadFile(filepath.Join(env.cfg.WorkDir, interfaces.KindText.RecordFileName()))
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, second.CID.String(), fields["cid"])
	assert.Equal(t, "second.txt", fields["fileName"])
	assert.Equal(t, true, fields["encrypted"])
	assert.NotContains(t, fields, "viewUrl")
	assert.False(t, bytes.Contains(raw, []byte(first.CID)))
}

func TestUpload_SourceNotFound(t *testing.T) {
	env := newTestEnv(t)
	missing := filepath.Join(t.TempDir(), "does-not-exist.txt")

	_, err := env.uploader(newIdentity(t)).Upload(context.Background(), Source{Path: missing}, Options{})
	require.Error(t, err)

	var notFound *interfaces.SourceNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, missing, notFound.Path)
	assert.Equal(t, int64(0), env.emu.Requests())
}

func TestRetrieveRecords_ScanAndSave(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := newIdentity(t)
	uploader := env.uploader(owner)

	_, err := uploader.Upload(ctx, Source{Path: writeTempFile(t, "plain.txt", []byte("plain bytes"))}, Options{})
	require.NoError(t, err)
	_, err = uploader.Upload(ctx, Source{Text: `{"k":"v"}`, Name: "note.json"}, Options{})
	require.NoError(t, err)
	_, err = uploader.Upload(ctx, Source{Path: writeTempFile(t, "hidden.txt", []byte("hidden bytes"))}, Options{Encrypt: true})
	require.NoError(t, err)

	retriever := env.retriever(owner)
	outcomes, err := retriever.RetrieveRecords(ctx)
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	assert.Equal(t, interfaces.KindRegular.RecordFileName(), outcomes[0].Slot.FileName)
	assert.Equal(t, interfaces.KindText.RecordFileName(), outcomes[1].Slot.FileName)
	assert.Equal(t, interfaces.KindEncrypted.RecordFileName(), outcomes[2].Slot.FileName)

	for _, o := range outcomes {
		require.NoError(t, o.Err)
		assert.FileExists(t, o.Path)
		assert.NotEmpty(t, o.Deals)
	}

	assert.Equal(t, "downloaded-plain.txt", filepath.Base(outcomes[0].Path))

	pretty, err := os.ReadFile(outcomes[1].Path)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"k\": \"v\"\n}", string(pretty))

	assert.Regexp(t, `^decrypted-\d+\.txt$`, filepath.Base(outcomes[2].Path))
	decrypted, err := os.ReadFile(outcomes[2].Path)
	require.NoError(t, err)
	assert.Equal(t, "hidden bytes", string(decrypted))
}

func TestRetrieveRecords_NoRecords(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.retriever(newIdentity(t)).RetrieveRecords(context.Background())
	assert.ErrorIs(t, err, interfaces.ErrRecordNotFound)
}

func TestRetrieve_UnknownContent(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.retriever(newIdentity(t)).Retrieve(context.Background(), "bafkreigh2akiscaildcqabsyg3dfr6chu3fgpregiymsck7e7aqa4s52zy")
	require.Error(t, err)

	var retrievalErr *interfaces.RetrievalError
	require.True(t, errors.As(err, &retrievalErr))
	assert.ErrorIs(t, err, interfaces.ErrNotEncrypted)
	assert.ErrorIs(t, err, interfaces.ErrContentNotFound)
}
