// Package interfaces defines the types, errors and capability interfaces shared
// by the lighthouse toolkit.
//
// The workflows in package workflow depend only on the interfaces declared
// here:
//
//   - IdentitySigner: an Ethereum wallet able to produce personal signatures
//   - StorageClient: the storage network (upload, gateway, deal status and the
//     sharded key service)
//   - Gateway: plain content retrieval by content id
//
// Concrete implementations live in cryptoutils (identity), api/lighthouse
// (storage client) and storage (gateways and upload records).
//
// # Errors
//
// Workflow failures are reported with typed errors that wrap their cause:
// SourceNotFoundError, AuthChallengeError, SigningError, UploadError,
// PersistenceError, RetrievalError and AccessControlError. Transport level
// failures are reported as *RemoteError carrying the status code and body.
package interfaces
