package cryptoutils

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/hashicorp/vault/shamir"
)

var ErrNotEnoughShards = errors.New("not enough key shards to recover key")

// KeyShard is one Shamir share of a file key as stored on a key node.
type KeyShard struct {
	Key   string `json:"key"`
	Index string `json:"index"`
}

// SplitKey splits a hex file key into parts shares, any threshold of which
// recover it.
func SplitKey(key string, parts, threshold int) ([]KeyShard, error) {
	if threshold < 2 {
		return nil, errors.New("threshold must be at least 2")
	}
	if parts < threshold {
		return nil, errors.New("total shards must be at least equal to threshold")
	}

	shares, err := shamir.Split([]byte(key), parts, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to split key: %w", err)
	}

	shards := make([]KeyShard, len(shares))
	for i, share := range shares {
		shards[i] = KeyShard{
			Key:   hex.EncodeToString(share),
			Index: fmt.Sprintf("%d", i+1),
		}
	}
	return shards, nil
}

// RecoverKey combines shards back into the hex file key.
func RecoverKey(shards []KeyShard, threshold int) (string, error) {
	if len(shards) < threshold {
		return "", fmt.Errorf("%w: have %d, need %d", ErrNotEnoughShards, len(shards), threshold)
	}

	shares := make([][]byte, 0, len(shards))
	for _, shard := range shards {
		share, err := hex.DecodeString(shard.Key)
		if err != nil {
			return "", fmt.Errorf("invalid shard %s: %w", shard.Index, err)
		}
		shares = append(shares, share)
	}

	key, err := shamir.Combine(shares)
	if err != nil {
		return "", fmt.Errorf("failed to combine shards: %w", err)
	}
	return string(key), nil
}
