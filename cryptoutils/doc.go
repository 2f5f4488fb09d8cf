// Package cryptoutils implements the wallet and file encryption primitives used
// by the toolkit.
//
// # Identity
//
// Identity wraps a secp256k1 private key and produces EIP-191 personal
// signatures, which the storage network accepts as bearer tokens.
// RecoverAddress is the inverse and is used by the local emulator.
//
// # Envelope Format
//
// Files uploaded with encryption are sealed with a random file key:
//
//	[salt (16 bytes)][nonce (12 bytes)][ciphertext]
//
// Where:
//   - Salt: PBKDF2-SHA256 salt, 250000 iterations
//   - Nonce: 12-byte nonce for AES-256-GCM
//   - Ciphertext: The encrypted data with GCM authentication tag
//
// # Key Shards
//
// The file key is split with Shamir secret sharing into KeyShards shares, any
// threshold of which recover it. Each share is stored on a different key node.
//
//	shards, err := cryptoutils.SplitKey(fileKey, 5, 3)
//	if err != nil {
//	    log.Fatalf("Failed to split key: %v", err)
//	}
//	key, err := cryptoutils.RecoverKey(shards[:3], 3)
//
// # Error Selectors
//
// ErrorSelector and MatchSelector map a 4-byte revert selector back to a known
// Solidity error signature.
package cryptoutils
