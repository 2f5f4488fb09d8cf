package lighthouse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/ruteri/lighthouse-toolkit/config"
	"github.com/ruteri/lighthouse-toolkit/cryptoutils"
	"github.com/ruteri/lighthouse-toolkit/interfaces"
)

// Client implements interfaces.StorageClient against the Lighthouse hosts:
// the API host (auth messages, deal status), the upload node, an HTTP
// gateway, and the key service nodes holding key shards and access conditions.
type Client struct {
	APIURL        string
	NodeURL       string
	GatewayURL    string
	EncryptionURL string
	APIKey        string

	KeyShards    int
	KeyThreshold int

	// Gateway serves plain downloads. It may be a fallback list or an IPFS node.
	Gateway interfaces.Gateway

	HTTP *http.Client
	Log  *slog.Logger
}

// NewClient creates a client from cfg. gateway serves plain downloads.
func NewClient(cfg *config.Config, gateway interfaces.Gateway, httpClient *http.Client, log *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	return &Client{
		APIURL:        strings.TrimSuffix(cfg.APIURL, "/"),
		NodeURL:       strings.TrimSuffix(cfg.NodeURL, "/"),
		GatewayURL:    strings.TrimSuffix(cfg.HTTPGatewayURL(), "/"),
		EncryptionURL: strings.TrimSuffix(cfg.EncryptionURL, "/"),
		APIKey:        cfg.APIKey,
		KeyShards:     cfg.KeyShards,
		KeyThreshold:  cfg.KeyThreshold,
		Gateway:       gateway,
		HTTP:          httpClient,
		Log:           log,
	}
}

// AuthMessage requests the challenge to be signed by address.
func (c *Client) AuthMessage(ctx context.Context, address string) (string, error) {
	endpoint := fmt.Sprintf("%s/api/auth/get_message?publicKey=%s", c.APIURL, url.QueryEscape(address))
	body, err := c.do(ctx, "auth message endpoint", http.MethodGet, endpoint, nil, nil)
	if err != nil {
		return "", err
	}

	var message string
	if err := json.Unmarshal(body, &message); err != nil {
		var wrapped struct {
			Message string `json:"message"`
		}
		if err2 := json.Unmarshal(body, &wrapped); err2 != nil || wrapped.Message == "" {
			return "", fmt.Errorf("could not parse auth message response: %w", err)
		}
		message = wrapped.Message
	}
	if message == "" {
		return "", fmt.Errorf("auth message endpoint returned an empty message")
	}
	return message, nil
}

// Upload sends req to the upload node. Encrypted uploads are sealed locally
// with a fresh file key whose shards are then stored on the key nodes.
func (c *Client) Upload(ctx context.Context, req interfaces.UploadRequest) (*interfaces.UploadResponse, error) {
	if !req.Encrypt {
		return c.add(ctx, req.Name, req.Data, false)
	}

	if req.Address == "" || req.Token == "" {
		return nil, fmt.Errorf("encrypted upload requires an address and auth token")
	}

	fileKey, err := cryptoutils.NewFileKey()
	if err != nil {
		return nil, err
	}

	sealed, err := cryptoutils.Seal(req.Data, fileKey)
	if err != nil {
		return nil, fmt.Errorf("could not encrypt %s: %w", req.Name, err)
	}

	resp, err := c.add(ctx, req.Name, sealed, true)
	if err != nil {
		return nil, err
	}

	shards, err := cryptoutils.SplitKey(fileKey, c.KeyShards, c.KeyThreshold)
	if err != nil {
		return nil, err
	}

	if err := c.saveShards(ctx, req.Address, resp.Hash, req.Token, shards); err != nil {
		return nil, fmt.Errorf("uploaded %s but could not store its key: %w", resp.Hash, err)
	}

	return resp, nil
}

// quoteEscaper matches the filename escaping of multipart.Writer.CreateFormFile.
var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func (c *Client) add(ctx context.Context, name string, data []byte, encrypted bool) (*interfaces.UploadResponse, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" || encrypted {
		contentType = "application/octet-stream"
	}

	partHeader := make(textproto.MIMEHeader)
	partHeader.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(name)))
	partHeader.Set("Content-Type", contentType)
	part, err := writer.CreatePart(partHeader)
	if err != nil {
		return nil, fmt.Errorf("could not create upload form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("could not create upload form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("could not create upload form: %w", err)
	}

	headers := map[string]string{
		"Content-Type":  writer.FormDataContentType(),
		"Authorization": "Bearer " + c.APIKey,
	}
	if encrypted {
		headers["Encryption"] = "true"
	}

	start := time.Now()
	body, err := c.do(ctx, "upload endpoint", http.MethodPost, c.NodeURL+"/api/v0/add?wrap-with-directory=false", &buf, headers)
	if err != nil {
		return nil, err
	}

	var parsedResponse interfaces.UploadResponse
	if err := json.Unmarshal(body, &parsedResponse); err != nil {
		return nil, fmt.Errorf("could not parse upload response: %w", err)
	}
	if parsedResponse.Hash == "" {
		return nil, fmt.Errorf("upload response carries no content id")
	}

	c.Log.Debug("Uploaded content",
		slog.String("name", name),
		slog.String("cid", parsedResponse.Hash.String()),
		slog.Bool("encrypted", encrypted),
		slog.Duration("duration", time.Since(start)))

	return &parsedResponse, nil
}

// Decrypt fetches the stored envelope for id and opens it with key.
func (c *Client) Decrypt(ctx context.Context, id interfaces.ContentID, key string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/api/v0/cat/%s", c.GatewayURL, id)
	sealed, err := c.do(ctx, "gateway cat endpoint", http.MethodPost, endpoint, nil, nil)
	if err != nil {
		return nil, err
	}
	return cryptoutils.Open(sealed, key)
}

// Download fetches the plain payload for id from the configured gateway.
func (c *Client) Download(ctx context.Context, id interfaces.ContentID) (*interfaces.Download, error) {
	return c.Gateway.Fetch(ctx, id)
}

// DealStatus reports the storage deals backing id.
func (c *Client) DealStatus(ctx context.Context, id interfaces.ContentID) ([]interfaces.DealStatus, error) {
	endpoint := fmt.Sprintf("%s/api/lighthouse/deal_status?cid=%s", c.APIURL, url.QueryEscape(id.String()))
	body, err := c.do(ctx, "deal status endpoint", http.MethodGet, endpoint, nil, nil)
	if err != nil {
		return nil, err
	}

	var deals []interfaces.DealStatus
	if err := json.Unmarshal(body, &deals); err != nil {
		return nil, fmt.Errorf("could not parse deal status response: %w", err)
	}
	return deals, nil
}

// do performs a request and returns the body of a 2xx response. Other
// statuses are returned as *interfaces.RemoteError.
func (c *Client) do(ctx context.Context, endpointName, method, endpoint string, body io.Reader, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("could not initialize request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not request %s: %w", endpointName, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read %s response: %w", endpointName, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &interfaces.RemoteError{
			Endpoint:   endpointName,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(respBody)),
		}
	}

	return respBody, nil
}

func (c *Client) postJSON(ctx context.Context, endpointName, endpoint string, token interfaces.AuthToken, payload any) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("could not encode %s request: %w", endpointName, err)
	}
	return c.do(ctx, endpointName, http.MethodPost, endpoint, bytes.NewReader(encoded), map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer " + string(token),
	})
}
