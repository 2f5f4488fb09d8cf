package interfaces

import (
	"context"
)

// IdentitySigner proves control of a wallet secret.
type IdentitySigner interface {
	// Address returns the checksummed public address derived from the secret.
	Address() string

	// SignMessage returns an EIP-191 personal signature over msg, hex encoded.
	SignMessage(msg string) (string, error)
}

// AuthMessenger issues the challenge that must be signed to authorize
// privileged calls.
type AuthMessenger interface {
	AuthMessage(ctx context.Context, address string) (string, error)
}

// StorageClient is the capability surface of the storage network used by the
// workflows. Every call is attempted exactly once.
type StorageClient interface {
	AuthMessenger

	// Upload stores a payload, encrypting it first when req.Encrypt is set.
	Upload(ctx context.Context, req UploadRequest) (*UploadResponse, error)

	// FetchEncryptionKey returns the file key for id if address may access it.
	// Returns ErrNotEncrypted or ErrAccessDenied when no key is released.
	FetchEncryptionKey(ctx context.Context, id ContentID, address string, token AuthToken) (string, error)

	// Decrypt fetches the encrypted payload for id and opens it with key.
	Decrypt(ctx context.Context, id ContentID, key string) ([]byte, error)

	// Download fetches the plain payload for id from the public gateway.
	Download(ctx context.Context, id ContentID) (*Download, error)

	// DealStatus reports storage deals backing id.
	DealStatus(ctx context.Context, id ContentID) ([]DealStatus, error)

	// ApplyAccessCondition attaches conditions to an encrypted object.
	ApplyAccessCondition(ctx context.Context, req AccessConditionRequest) (*AccessAck, error)

	// AccessConditions returns the condition document stored for id.
	AccessConditions(ctx context.Context, id ContentID, token AuthToken) (StoredConditions, error)
}

// Gateway fetches plain content by id.
type Gateway interface {
	Fetch(ctx context.Context, id ContentID) (*Download, error)

	// Available checks if the gateway is reachable.
	Available(ctx context.Context) bool

	// Name returns a unique identifier for this gateway.
	Name() string

	// LocationURI returns the URI the gateway was created from.
	LocationURI() string
}
