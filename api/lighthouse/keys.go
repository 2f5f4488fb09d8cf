package lighthouse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ruteri/lighthouse-toolkit/cryptoutils"
	"github.com/ruteri/lighthouse-toolkit/interfaces"
)

// Key nodes are numbered from 1 to KeyShards; node n holds shard n.

type saveShardRequest struct {
	Address string                 `json:"address"`
	CID     interfaces.ContentID   `json:"cid"`
	Payload []cryptoutils.KeyShard `json:"payload"`
}

type retrieveShardRequest struct {
	Address string               `json:"address"`
	CID     interfaces.ContentID `json:"cid"`
}

type retrieveShardResponse struct {
	Payload cryptoutils.KeyShard `json:"payload"`
}

type accessConditionPayload struct {
	Address        string                       `json:"address"`
	CID            interfaces.ContentID         `json:"cid"`
	Conditions     []interfaces.AccessCondition `json:"conditions"`
	Aggregator     string                       `json:"aggregator"`
	ChainType      string                       `json:"chainType"`
	DecryptionType string                       `json:"decryptionType"`
}

func (c *Client) keyNodeURL(route string, node int) string {
	return fmt.Sprintf("%s/api/%s/%d", c.EncryptionURL, route, node)
}

func (c *Client) saveShards(ctx context.Context, address string, id interfaces.ContentID, token interfaces.AuthToken, shards []cryptoutils.KeyShard) error {
	for i, shard := range shards {
		node := i + 1
		_, err := c.postJSON(ctx, "key node", c.keyNodeURL("setSharedKey", node), token, saveShardRequest{
			Address: address,
			CID:     id,
			Payload: []cryptoutils.KeyShard{shard},
		})
		if err != nil {
			return fmt.Errorf("key node %d: %w", node, err)
		}
	}

	c.Log.Debug("Stored key shards",
		slog.String("cid", id.String()),
		slog.Int("shards", len(shards)))

	return nil
}

// FetchEncryptionKey collects shards from the key nodes until the threshold
// is reached and recombines the file key. Nodes are asked in order and at
// most once. A 401/403 answer ends the collection with ErrAccessDenied, a 404
// with ErrNotEncrypted.
func (c *Client) FetchEncryptionKey(ctx context.Context, id interfaces.ContentID, address string, token interfaces.AuthToken) (string, error) {
	var (
		shards []cryptoutils.KeyShard
		errs   []error
	)

	for node := 1; node <= c.KeyShards && len(shards) < c.KeyThreshold; node++ {
		body, err := c.postJSON(ctx, "key node", c.keyNodeURL("retrieveSharedKey", node), token, retrieveShardRequest{
			Address: address,
			CID:     id,
		})

		var remote *interfaces.RemoteError
		if errors.As(err, &remote) {
			switch remote.StatusCode {
			case http.StatusUnauthorized, http.StatusForbidden:
				return "", errors.Join(interfaces.ErrAccessDenied, fmt.Errorf("key node %d: %w", node, err))
			case http.StatusNotFound:
				return "", errors.Join(interfaces.ErrNotEncrypted, fmt.Errorf("key node %d: %w", node, err))
			}
		}
		if err != nil {
			c.Log.Debug("Key node failed", slog.Int("node", node), "err", err)
			errs = append(errs, fmt.Errorf("key node %d: %w", node, err))
			continue
		}

		var parsed retrieveShardResponse
		if err := json.Unmarshal(body, &parsed); err != nil || parsed.Payload.Key == "" {
			errs = append(errs, fmt.Errorf("key node %d: malformed shard response", node))
			continue
		}
		shards = append(shards, parsed.Payload)
	}

	if len(shards) < c.KeyThreshold {
		errs = append(errs, fmt.Errorf("%w: have %d, need %d", cryptoutils.ErrNotEnoughShards, len(shards), c.KeyThreshold))
		return "", errors.Join(errs...)
	}

	return cryptoutils.RecoverKey(shards, c.KeyThreshold)
}

// ApplyAccessCondition submits the condition set to every key node. The
// aggregator is passed through verbatim. Any node rejecting the request fails
// the whole call with the node's status and body.
func (c *Client) ApplyAccessCondition(ctx context.Context, req interfaces.AccessConditionRequest) (*interfaces.AccessAck, error) {
	payload := accessConditionPayload{
		Address:        req.Address,
		CID:            req.CID,
		Conditions:     req.Conditions,
		Aggregator:     req.Aggregator,
		ChainType:      "evm",
		DecryptionType: "ADDRESS",
	}

	// Nodes are updated one at a time and earlier nodes are not rolled back
	// when a later one fails. The error names the nodes that already hold
	// the new conditions; resubmitting replaces them.
	applied := make([]int, 0, c.KeyShards)
	for node := 1; node <= c.KeyShards; node++ {
		if _, err := c.postJSON(ctx, "key node", c.keyNodeURL("setAccessConditions", node), req.Token, payload); err != nil {
			return nil, fmt.Errorf("key node %d (conditions already stored on nodes %v): %w", node, applied, err)
		}
		applied = append(applied, node)
	}

	return &interfaces.AccessAck{CID: req.CID, Status: "Success", Nodes: applied}, nil
}

// AccessConditions returns the condition document stored for id.
func (c *Client) AccessConditions(ctx context.Context, id interfaces.ContentID, token interfaces.AuthToken) (interfaces.StoredConditions, error) {
	endpoint := fmt.Sprintf("%s/api/getZkConditions/%s", c.EncryptionURL, id)
	body, err := c.do(ctx, "conditions endpoint", http.MethodGet, endpoint, nil, map[string]string{
		"Authorization": "Bearer " + string(token),
	})
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("conditions endpoint returned invalid JSON")
	}
	return interfaces.StoredConditions(body), nil
}
