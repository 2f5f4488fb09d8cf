package interfaces

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ipfs/go-cid"
)

// ContentID is an IPFS content identifier as issued by the storage network.
// Content ids are immutable: the same id always addresses the same bytes.
type ContentID string

// ParseContentID validates s as a CIDv0 or CIDv1 string. The original string
// is kept as-is so that ids round-trip through records unchanged.
func ParseContentID(s string) (ContentID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmptyContentID
	}
	if _, err := cid.Decode(s); err != nil {
		return "", fmt.Errorf("invalid content id %q: %w", s, err)
	}
	return ContentID(s), nil
}

// LooksCanonical reports whether the id has one of the prefixes the storage
// network normally issues (raw-leaf CIDv1 or CIDv0).
func (id ContentID) LooksCanonical() bool {
	return strings.HasPrefix(string(id), "bafkrei") || strings.HasPrefix(string(id), "Qm")
}

func (id ContentID) String() string {
	return string(id)
}

// AuthToken is a signature over a server-issued challenge. It is used for a
// single call and never persisted.
type AuthToken string

// Short returns a prefix of the token safe to log.
func (t AuthToken) Short() string {
	if len(t) <= 20 {
		return string(t)
	}
	return string(t[:20]) + "..."
}

// UploadKind selects the record file an upload is persisted to.
type UploadKind string

const (
	KindRegular   UploadKind = "regular"
	KindText      UploadKind = "text"
	KindEncrypted UploadKind = "encrypted"
)

// RecordFileName returns the fixed file name for records of this kind.
// Uploading again with the same kind replaces the previous record.
func (k UploadKind) RecordFileName() string {
	switch k {
	case KindRegular:
		return "regular-upload-details.json"
	case KindText:
		return "text-upload-details.json"
	case KindEncrypted:
		return "upload-details.json"
	default:
		return string(k) + "-upload-details.json"
	}
}

func (k UploadKind) Valid() bool {
	switch k {
	case KindRegular, KindText, KindEncrypted:
		return true
	default:
		return false
	}
}

// UploadRecord is the metadata persisted after a successful upload.
type UploadRecord struct {
	FileName        string     `json:"fileName"`
	CID             ContentID  `json:"cid"`
	Size            int64      `json:"size"`
	PublicKey       string     `json:"publicKey"`
	UploadTimestamp time.Time  `json:"uploadTimestamp"`
	Kind            UploadKind `json:"type"`
	Encrypted       bool       `json:"encrypted"`
	ViewURL         string     `json:"viewUrl,omitempty"`
}

// UploadRequest is a single payload handed to the storage client.
type UploadRequest struct {
	Name    string
	Data    []byte
	Encrypt bool

	// Required when Encrypt is set: key shards are stored on behalf of
	// Address and authorized by Token.
	Address string
	Token   AuthToken
}

// UploadResponse mirrors the storage node's add response. Size is sent as a
// quoted decimal by the node.
type UploadResponse struct {
	Name string      `json:"Name"`
	Hash ContentID   `json:"Hash"`
	Size json.Number `json:"Size"`
}

// Download is a plain payload fetched by content id.
type Download struct {
	Data        []byte
	ContentType string
}

// ReturnValueTest compares the value produced by a condition's method.
type ReturnValueTest struct {
	Comparator string `json:"comparator"`
	Value      string `json:"value"`
}

// AccessCondition is a single predicate evaluated remotely before a
// decryption key is released.
type AccessCondition struct {
	ID                   int             `json:"id"`
	Chain                string          `json:"chain"`
	Method               string          `json:"method"`
	StandardContractType string          `json:"standardContractType"`
	ContractAddress      string          `json:"contractAddress,omitempty"`
	Parameters           []any           `json:"parameters,omitempty"`
	ReturnValueTest      ReturnValueTest `json:"returnValueTest"`
}

var comparators = map[string]bool{
	"==": true, "!=": true, ">": true, ">=": true, "<": true, "<=": true,
}

// Validate checks the shape of the condition. The condition itself is only
// ever evaluated by the key service.
func (c AccessCondition) Validate() error {
	if c.ID <= 0 {
		return fmt.Errorf("%w: id must be positive", ErrInvalidCondition)
	}
	if c.Chain == "" {
		return fmt.Errorf("%w: chain is required", ErrInvalidCondition)
	}
	if c.Method == "" {
		return fmt.Errorf("%w: method is required", ErrInvalidCondition)
	}
	if !comparators[c.ReturnValueTest.Comparator] {
		return fmt.Errorf("%w: unsupported comparator %q", ErrInvalidCondition, c.ReturnValueTest.Comparator)
	}
	if c.ReturnValueTest.Value == "" {
		return fmt.Errorf("%w: threshold value is required", ErrInvalidCondition)
	}
	return nil
}

// AccessConditionRequest is submitted by the owner of a content id.
type AccessConditionRequest struct {
	Address    string
	CID        ContentID
	Token      AuthToken
	Conditions []AccessCondition
	Aggregator string
}

// AccessAck is the key service's acknowledgement of an applied condition set.
type AccessAck struct {
	CID    ContentID `json:"cid"`
	Status string    `json:"status"`
	// Nodes lists the key nodes that accepted the conditions.
	Nodes []int `json:"nodes,omitempty"`
}

// DealStatus describes one storage deal backing a content id.
type DealStatus struct {
	ChainDealID        int64  `json:"chainDealID"`
	StartEpoch         int64  `json:"startEpoch"`
	EndEpoch           int64  `json:"endEpoch"`
	PublishCID         string `json:"publishCID"`
	StorageProvider    string `json:"storageProvider"`
	DealStatus         string `json:"dealStatus"`
	BundleID           string `json:"bundleId"`
	DealUUID           string `json:"dealUUID"`
	ProviderCollateral string `json:"providerCollateral"`
	LastUpdate         int64  `json:"lastUpdate"`
}

// StoredConditions is the raw condition document returned by the key service.
type StoredConditions = json.RawMessage
