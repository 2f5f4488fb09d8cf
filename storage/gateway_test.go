package storage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ruteri/lighthouse-toolkit/common"
	"github.com/ruteri/lighthouse-toolkit/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPGateway_Fetch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ipfs/bafkreiplain":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"a":1}`))
		case "/ipfs/bafkreilocked":
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte("file is encrypted"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	gw := NewHTTPGateway(ts.URL+"/", ts.Client(), common.DiscardLogger())
	assert.Equal(t, ts.URL+"/ipfs/bafkreiplain", gw.ViewURL("bafkreiplain"))
	assert.True(t, gw.Available(context.Background()))

	download, err := gw.Fetch(context.Background(), "bafkreiplain")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"a":1}`), download.Data)
	assert.Equal(t, "application/json", download.ContentType)

	_, err = gw.Fetch(context.Background(), "bafkreimissing")
	assert.ErrorIs(t, err, interfaces.ErrContentNotFound)

	_, err = gw.Fetch(context.Background(), "bafkreilocked")
	var remote *interfaces.RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, http.StatusForbidden, remote.StatusCode)
	assert.Equal(t, "file is encrypted", remote.Body)
}

func TestHTTPGateway_Unreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	gw := NewHTTPGateway(url, nil, common.DiscardLogger())
	_, err := gw.Fetch(context.Background(), "bafkreiplain")
	assert.ErrorIs(t, err, interfaces.ErrBackendUnavailable)
}
