package storage

import (
	"testing"

	"github.com/ruteri/lighthouse-toolkit/common"
	"github.com/ruteri/lighthouse-toolkit/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatewayFactory_GatewayFor(t *testing.T) {
	gf := NewGatewayFactory(common.DiscardLogger(), nil)

	tests := []struct {
		name     string
		uri      string
		wantType any
		wantName string
		wantErr  bool
	}{
		{name: "https gateway", uri: "https://gateway.lighthouse.storage", wantType: &HTTPGateway{}, wantName: "gateway-gateway.lighthouse.storage"},
		{name: "http gateway", uri: "http://127.0.0.1:8080", wantType: &HTTPGateway{}, wantName: "gateway-127.0.0.1:8080"},
		{name: "ipfs node default port", uri: "ipfs://127.0.0.1", wantType: &IPFSGateway{}, wantName: "ipfs-127.0.0.1-5001"},
		{name: "ipfs node with timeout", uri: "ipfs://localhost:5002/?timeout=5s", wantType: &IPFSGateway{}, wantName: "ipfs-localhost-5002"},
		{name: "ipfs bad timeout", uri: "ipfs://localhost:5002/?timeout=soon", wantErr: true},
		{name: "unsupported scheme", uri: "s3://bucket", wantErr: true},
		{name: "missing host", uri: "https:///ipfs", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw, err := gf.GatewayFor(tt.uri)
			if tt.wantErr {
				assert.ErrorIs(t, err, interfaces.ErrInvalidLocationURI)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.wantType, gw)
			assert.Equal(t, tt.wantName, gw.Name())
		})
	}
}

func TestGatewayFactory_CreateMultiGateway(t *testing.T) {
	gf := NewGatewayFactory(common.DiscardLogger(), nil)

	single, err := gf.CreateMultiGateway([]string{"https://gateway.lighthouse.storage", "bogus://x"})
	require.NoError(t, err)
	assert.IsType(t, &HTTPGateway{}, single)

	multi, err := gf.CreateMultiGateway([]string{"https://gateway.lighthouse.storage", "ipfs://127.0.0.1:5001"})
	require.NoError(t, err)
	assert.IsType(t, &MultiGateway{}, multi)

	_, err = gf.CreateMultiGateway([]string{"bogus://x"})
	assert.Error(t, err)
}
