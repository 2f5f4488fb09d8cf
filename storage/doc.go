// Package storage provides content retrieval gateways and the local upload
// record store.
//
// Gateways fetch plain content by content id and are specified using URI
// format:
//
//	[scheme]://host[:port][/path][?params]
//
// Supported URI schemes:
//
//   - https://gateway.lighthouse.storage - IPFS HTTP gateway serving /ipfs/<cid>
//   - ipfs://127.0.0.1:5001/?timeout=30s - IPFS node API (cat)
//
// Several locations are combined with GatewayFactory.CreateMultiGateway, which
// tries each gateway in order and returns the first successful fetch.
//
// # Upload Records
//
// RecordStore keeps one JSON record per upload kind in the working directory:
//
//   - regular-upload-details.json for plain file uploads
//   - text-upload-details.json for encrypted text uploads
//   - upload-details.json for encrypted file uploads
//
// A new upload of the same kind replaces the previous record. ScanOrder lists
// the files examined by the retrieval scan, including the legacy
// encrypted-upload-details.json name.
//
// # Vault
//
// VaultSecretSource reads the wallet secret from a Vault KV v2 mount:
//
//	src, err := storage.NewVaultSecretSource("vault://vault.example.com:8200/secret/lighthouse?field=private_key", logger)
//	if err != nil {
//	    log.Fatalf("Failed to create vault source: %v", err)
//	}
//	secret, err := src.Secret(ctx)
package storage
