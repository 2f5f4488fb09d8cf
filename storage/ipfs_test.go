package storage

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/ruteri/lighthouse-toolkit/common"
	"github.com/ruteri/lighthouse-toolkit/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeIPFSNode(t *testing.T, content map[string][]byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v0/version":
			_ = json.NewEncoder(w).Encode(map[string]string{"Version": "0.29.0", "Commit": ""})
		case "/api/v0/cat":
			data, ok := content[r.URL.Query().Get("arg")]
			if !ok {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(map[string]any{"Message": "block was not found locally (offline)", "Code": 0, "Type": "error"})
				return
			}
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write(data)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestIPFSGateway_Fetch(t *testing.T) {
	node := newFakeIPFSNode(t, map[string][]byte{
		"/ipfs/bafkreiplain": []byte("hello from ipfs"),
	})
	defer node.Close()

	u, err := url.Parse(node.URL)
	require.NoError(t, err)

	gw := NewIPFSGateway(u.Hostname(), u.Port(), 5*time.Second, common.DiscardLogger())
	assert.True(t, gw.Available(context.Background()))
	assert.Equal(t, "ipfs-"+u.Hostname()+"-"+u.Port(), gw.Name())

	download, err := gw.Fetch(context.Background(), "bafkreiplain")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello from ipfs"), download.Data)
	assert.Contains(t, download.ContentType, "text/plain")

	_, err = gw.Fetch(context.Background(), "bafkreimissing")
	assert.ErrorIs(t, err, interfaces.ErrContentNotFound)
}

func TestIPFSGateway_NodeDown(t *testing.T) {
	node := newFakeIPFSNode(t, nil)
	u, err := url.Parse(node.URL)
	require.NoError(t, err)
	node.Close()

	gw := NewIPFSGateway(u.Hostname(), u.Port(), time.Second, common.DiscardLogger())
	assert.False(t, gw.Available(context.Background()))

	_, err = gw.Fetch(context.Background(), "bafkreiplain")
	assert.ErrorIs(t, err, interfaces.ErrBackendUnavailable)
}
