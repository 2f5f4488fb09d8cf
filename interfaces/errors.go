package interfaces

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingPrivateKey is returned before any network call when no
	// identity secret is configured.
	ErrMissingPrivateKey = errors.New("PRIVATE_KEY is not set")

	// ErrEmptyContentID is returned when a content id argument is missing.
	ErrEmptyContentID = errors.New("content id is empty")

	// ErrContentNotFound is returned when a gateway has no content for an id.
	ErrContentNotFound = errors.New("content not found")

	// ErrBackendUnavailable is returned when a gateway or node is not reachable.
	ErrBackendUnavailable = errors.New("storage backend unavailable")

	// ErrInvalidLocationURI is returned for malformed gateway URIs.
	ErrInvalidLocationURI = errors.New("invalid storage location URI")

	// ErrAccessDenied is returned by the key service when the caller does not
	// satisfy the conditions attached to an encrypted object.
	ErrAccessDenied = errors.New("access to decryption key denied")

	// ErrNotEncrypted is returned when the key service holds no key for an id.
	ErrNotEncrypted = errors.New("content is not encrypted")

	// ErrRecordNotFound is returned when an upload record file does not exist.
	ErrRecordNotFound = errors.New("upload record not found")

	// ErrInvalidCondition is returned for malformed access conditions.
	ErrInvalidCondition = errors.New("invalid access condition")
)

// RemoteError carries a non-2xx response from a remote service.
type RemoteError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s returned error %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// SourceNotFoundError reports a missing local upload source.
type SourceNotFoundError struct {
	Path string
}

func (e *SourceNotFoundError) Error() string {
	return fmt.Sprintf("file not found: %s", e.Path)
}

// AuthChallengeError reports a failure to obtain the challenge message.
type AuthChallengeError struct {
	Address string
	Err     error
}

func (e *AuthChallengeError) Error() string {
	return fmt.Sprintf("could not request auth message for %s: %v", e.Address, e.Err)
}

func (e *AuthChallengeError) Unwrap() error { return e.Err }

// SigningError reports a failure to sign with the identity secret.
type SigningError struct {
	Err error
}

func (e *SigningError) Error() string {
	return fmt.Sprintf("could not sign auth message: %v", e.Err)
}

func (e *SigningError) Unwrap() error { return e.Err }

// UploadError reports a failed upload call.
type UploadError struct {
	Name string
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload of %s failed: %v", e.Name, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// PersistenceError reports a failed write of an upload record.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("could not persist upload record to %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// RetrievalError is returned when both the decrypt attempt and the plain
// download failed. Both causes are kept.
type RetrievalError struct {
	CID         ContentID
	DecryptErr  error
	DownloadErr error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("could not retrieve %s: decrypt: %v; download: %v", e.CID, e.DecryptErr, e.DownloadErr)
}

func (e *RetrievalError) Unwrap() []error {
	var errs []error
	if e.DecryptErr != nil {
		errs = append(errs, e.DecryptErr)
	}
	if e.DownloadErr != nil {
		errs = append(errs, e.DownloadErr)
	}
	return errs
}

// AccessControlError reports a rejected condition submission. StatusCode and
// Body are set when the rejection came from the remote service.
type AccessControlError struct {
	CID        ContentID
	StatusCode int
	Body       string
	Err        error
}

// NewAccessControlError extracts the remote status and body from err if any.
func NewAccessControlError(id ContentID, err error) *AccessControlError {
	ace := &AccessControlError{CID: id, Err: err}
	var remote *RemoteError
	if errors.As(err, &remote) {
		ace.StatusCode = remote.StatusCode
		ace.Body = remote.Body
	}
	return ace
}

func (e *AccessControlError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("access control for %s rejected (%d: %s): %v", e.CID, e.StatusCode, e.Body, e.Err)
	}
	return fmt.Sprintf("access control for %s failed: %v", e.CID, e.Err)
}

func (e *AccessControlError) Unwrap() error { return e.Err }
