// Package workflow orchestrates the identity signer and the storage client
// into the upload, retrieval and access-control workflows.
//
// Every workflow runs sequentially and attempts each remote call exactly
// once. A workflow built without a signer fails with
// interfaces.ErrMissingPrivateKey before touching the network or the disk.
package workflow
