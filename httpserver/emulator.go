package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	"github.com/ruteri/lighthouse-toolkit/chain"
	"github.com/ruteri/lighthouse-toolkit/cryptoutils"
	"github.com/ruteri/lighthouse-toolkit/interfaces"
	"go.uber.org/atomic"
)

const (
	// maxBodySize is the maximum accepted upload size (32MB).
	maxBodySize = 32 << 20

	authMessagePrefix = "Please sign this message to prove you are owner of this account: "
)

type storedObject struct {
	name        string
	data        []byte
	contentType string
	encrypted   bool
	uploadedAt  time.Time
}

type conditionSet struct {
	conditions []interfaces.AccessCondition
	aggregator string
}

// Emulator is an in-memory stand-in for the Lighthouse services: the API
// host, the upload node, the gateway and the key nodes. All hosts share one
// state so a single listener can serve every configured URL.
//
// Key nodes release shards to the owner unconditionally and to anyone else
// only when every stored condition holds at the emulated chain height.
type Emulator struct {
	log *slog.Logger

	mu         sync.Mutex
	challenges map[string]string // lowercase address -> last issued message
	objects    map[interfaces.ContentID]*storedObject
	owners     map[interfaces.ContentID]string
	shards     map[interfaces.ContentID]map[int]cryptoutils.KeyShard
	conditions map[interfaces.ContentID]conditionSet

	height   atomic.Int64
	requests atomic.Int64
}

func NewEmulator(log *slog.Logger) *Emulator {
	e := &Emulator{
		log:        log,
		challenges: make(map[string]string),
		objects:    make(map[interfaces.ContentID]*storedObject),
		owners:     make(map[interfaces.ContentID]string),
		shards:     make(map[interfaces.ContentID]map[int]cryptoutils.KeyShard),
		conditions: make(map[interfaces.ContentID]conditionSet),
	}
	e.height.Store(1)
	return e
}

// SetHeight sets the emulated chain height seen by getBlockNumber conditions.
func (e *Emulator) SetHeight(height int64) {
	e.height.Store(height)
}

func (e *Emulator) Height() int64 {
	return e.height.Load()
}

// Requests returns the number of requests served so far.
func (e *Emulator) Requests() int64 {
	return e.requests.Load()
}

// Routes registers the emulated endpoints on mux.
func (e *Emulator) Routes(mux chi.Router) {
	mux.Use(e.countRequests)

	mux.Get("/api/auth/get_message", e.HandleAuthMessage)
	mux.Get("/api/lighthouse/deal_status", e.HandleDealStatus)

	mux.Post("/api/v0/add", e.HandleAdd)
	mux.Post("/api/v0/cat/{cid}", e.HandleCat)
	mux.Get("/ipfs/{cid}", e.HandleGateway)

	mux.Post("/api/setSharedKey/{node}", e.HandleSetSharedKey)
	mux.Post("/api/retrieveSharedKey/{node}", e.HandleRetrieveSharedKey)
	mux.Post("/api/setAccessConditions/{node}", e.HandleSetAccessConditions)
	mux.Get("/api/getZkConditions/{cid}", e.HandleGetConditions)

	mux.Post("/rpc", e.HandleRPC)
}

func (e *Emulator) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e.requests.Inc()
		next.ServeHTTP(w, r)
	})
}

// HandleAuthMessage issues a fresh challenge for publicKey. Issuing a new
// challenge invalidates signatures over the previous one.
func (e *Emulator) HandleAuthMessage(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("publicKey")
	if address == "" {
		http.Error(w, "publicKey is required", http.StatusBadRequest)
		return
	}

	message := authMessagePrefix + uuid.NewString()

	e.mu.Lock()
	e.challenges[strings.ToLower(address)] = message
	e.mu.Unlock()

	writeJSON(w, http.StatusOK, message)
}

// HandleAdd stores the multipart "file" part and returns its content id.
func (e *Emulator) HandleAdd(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		http.Error(w, "missing api key", http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file part", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "failed to read file", http.StatusBadRequest)
		return
	}

	id, err := contentIDFor(data)
	if err != nil {
		e.log.Error("Failed to compute content id", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	encrypted := strings.EqualFold(r.Header.Get("Encryption"), "true")
	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	e.mu.Lock()
	e.objects[id] = &storedObject{
		name:        header.Filename,
		data:        data,
		contentType: contentType,
		encrypted:   encrypted,
		uploadedAt:  time.Now(),
	}
	e.mu.Unlock()

	e.log.Debug("Stored object",
		slog.String("cid", id.String()),
		slog.String("name", header.Filename),
		slog.Bool("encrypted", encrypted),
		slog.Int("size", len(data)))

	writeJSON(w, http.StatusOK, interfaces.UploadResponse{
		Name: header.Filename,
		Hash: id,
		Size: json.Number(strconv.Itoa(len(data))),
	})
}

// HandleCat returns stored bytes as uploaded, including encrypted envelopes.
func (e *Emulator) HandleCat(w http.ResponseWriter, r *http.Request) {
	obj, ok := e.object(interfaces.ContentID(chi.URLParam(r, "cid")))
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	w.Write(obj.data)
}

// HandleGateway serves plain objects. Encrypted objects are refused.
func (e *Emulator) HandleGateway(w http.ResponseWriter, r *http.Request) {
	obj, ok := e.object(interfaces.ContentID(chi.URLParam(r, "cid")))
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if obj.encrypted {
		http.Error(w, "content is encrypted", http.StatusForbidden)
		return
	}
	w.Header().Set("Content-Type", obj.contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(obj.data)
}

func (e *Emulator) HandleDealStatus(w http.ResponseWriter, r *http.Request) {
	id := interfaces.ContentID(r.URL.Query().Get("cid"))
	obj, ok := e.object(id)
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, []interfaces.DealStatus{{
		ChainDealID:     0,
		StorageProvider: "f0emulator",
		DealStatus:      "Queued",
		DealUUID:        uuid.NewSHA1(uuid.NameSpaceURL, []byte(id)).String(),
		LastUpdate:      obj.uploadedAt.Unix(),
	}})
}

type shardRequest struct {
	Address string                 `json:"address"`
	CID     interfaces.ContentID   `json:"cid"`
	Payload []cryptoutils.KeyShard `json:"payload"`
}

type conditionRequest struct {
	Address    string                       `json:"address"`
	CID        interfaces.ContentID         `json:"cid"`
	Conditions []interfaces.AccessCondition `json:"conditions"`
	Aggregator string                       `json:"aggregator"`
}

// HandleSetSharedKey stores one shard for the caller. The first caller to
// store a shard for a content id becomes its owner.
func (e *Emulator) HandleSetSharedKey(w http.ResponseWriter, r *http.Request) {
	node, ok := nodeParam(w, r)
	if !ok {
		return
	}

	var req shardRequest
	if err := decodeBody(r, &req); err != nil || len(req.Payload) != 1 {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if !e.verify(r, req.Address) {
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	obj, exists := e.objects[req.CID]
	if !exists || !obj.encrypted {
		http.Error(w, "unknown encrypted object", http.StatusNotFound)
		return
	}
	if owner, owned := e.owners[req.CID]; owned && !strings.EqualFold(owner, req.Address) {
		http.Error(w, "not the owner", http.StatusForbidden)
		return
	}

	e.owners[req.CID] = req.Address
	if e.shards[req.CID] == nil {
		e.shards[req.CID] = make(map[int]cryptoutils.KeyShard)
	}
	e.shards[req.CID][node] = req.Payload[0]

	writeJSON(w, http.StatusOK, map[string]string{"message": "success"})
}

// HandleRetrieveSharedKey releases the node's shard to the owner, or to any
// verified caller when the stored conditions hold.
func (e *Emulator) HandleRetrieveSharedKey(w http.ResponseWriter, r *http.Request) {
	node, ok := nodeParam(w, r)
	if !ok {
		return
	}

	var req shardRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if !e.verify(r, req.Address) {
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	e.mu.Lock()
	shards, hasKey := e.shards[req.CID]
	shard, hasShard := shards[node]
	owner := e.owners[req.CID]
	conds, hasConds := e.conditions[req.CID]
	e.mu.Unlock()

	if !hasKey {
		http.Error(w, "no key stored for cid", http.StatusNotFound)
		return
	}

	if !strings.EqualFold(owner, req.Address) {
		if !hasConds || !e.evaluate(conds) {
			http.Error(w, "access conditions not satisfied", http.StatusForbidden)
			return
		}
	}

	if !hasShard {
		http.Error(w, "no shard on this node", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"payload": shard})
}

// HandleSetAccessConditions replaces the condition set of an owned object.
func (e *Emulator) HandleSetAccessConditions(w http.ResponseWriter, r *http.Request) {
	if _, ok := nodeParam(w, r); !ok {
		return
	}

	var req conditionRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if !e.verify(r, req.Address) {
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}
	if len(req.Conditions) == 0 {
		http.Error(w, "conditions are required", http.StatusBadRequest)
		return
	}
	for _, cond := range req.Conditions {
		if err := cond.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	owner, owned := e.owners[req.CID]
	if !owned {
		http.Error(w, "no key stored for cid", http.StatusNotFound)
		return
	}
	if !strings.EqualFold(owner, req.Address) {
		http.Error(w, "only the owner may set access conditions", http.StatusForbidden)
		return
	}

	e.conditions[req.CID] = conditionSet{conditions: req.Conditions, aggregator: req.Aggregator}
	writeJSON(w, http.StatusOK, map[string]string{"message": "success"})
}

func (e *Emulator) HandleGetConditions(w http.ResponseWriter, r *http.Request) {
	if _, ok := e.tokenSigner(r); !ok {
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	id := interfaces.ContentID(chi.URLParam(r, "cid"))

	e.mu.Lock()
	conds, ok := e.conditions[id]
	owner := e.owners[id]
	e.mu.Unlock()

	if !ok {
		http.Error(w, "no conditions stored for cid", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"cid":            id,
		"owner":          owner,
		"conditions":     conds.conditions,
		"aggregator":     conds.aggregator,
		"chainType":      "evm",
		"decryptionType": "ADDRESS",
	})
}

type rpcRequest struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
}

// HandleRPC answers eth_blockNumber and eth_chainId with the emulated chain.
func (e *Emulator) HandleRPC(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
	switch req.Method {
	case "eth_blockNumber":
		resp["result"] = fmt.Sprintf("0x%x", e.Height())
	case "eth_chainId":
		resp["result"] = "0x14a34"
	default:
		resp["error"] = map[string]any{"code": -32601, "message": "method not found"}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *Emulator) object(id interfaces.ContentID) (*storedObject, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	obj, ok := e.objects[id]
	return obj, ok
}

// tokenSigner returns the address whose current challenge the bearer token
// signs.
func (e *Emulator) tokenSigner(r *http.Request) (string, bool) {
	token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !found || token == "" {
		return "", false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for address, message := range e.challenges {
		signer, err := cryptoutils.RecoverAddress(message, token)
		if err == nil && strings.EqualFold(signer, address) {
			return signer, true
		}
	}
	return "", false
}

func (e *Emulator) verify(r *http.Request, address string) bool {
	signer, ok := e.tokenSigner(r)
	return ok && strings.EqualFold(signer, address)
}

// evaluate checks the condition set at the current height. Only
// getBlockNumber can be evaluated here; other methods never hold. An
// aggregator mentioning "or" needs any condition to hold, otherwise all.
func (e *Emulator) evaluate(set conditionSet) bool {
	height := big.NewInt(e.Height())
	anyOf := strings.Contains(strings.ToLower(set.aggregator), "or")

	for _, cond := range set.conditions {
		holds := false
		if cond.Method == "getBlockNumber" {
			var err error
			holds, err = chain.Compare(height, cond.ReturnValueTest.Comparator, cond.ReturnValueTest.Value)
			if err != nil {
				e.log.Debug("Condition evaluation failed", slog.Int("condition", cond.ID), "err", err)
				holds = false
			}
		}
		if anyOf && holds {
			return true
		}
		if !anyOf && !holds {
			return false
		}
	}
	return !anyOf
}

// contentIDFor returns the raw-leaf CIDv1 of data, which renders with the
// bafkrei prefix.
func contentIDFor(data []byte) (interfaces.ContentID, error) {
	hash, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return "", err
	}
	return interfaces.ContentID(cid.NewCidV1(cid.Raw, hash).String()), nil
}

func nodeParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	node, err := strconv.Atoi(chi.URLParam(r, "node"))
	if err != nil || node < 1 {
		http.Error(w, "invalid node index", http.StatusBadRequest)
		return 0, false
	}
	return node, true
}

func decodeBody(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return errors.New("empty body")
	}
	return json.Unmarshal(body, v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
