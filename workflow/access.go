package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ruteri/lighthouse-toolkit/interfaces"
)

// DefaultAggregator requires condition 1 to hold.
const DefaultAggregator = "([1])"

// ConditionChecker evaluates a condition locally where possible. It is only
// advisory: the key service decides.
type ConditionChecker interface {
	Check(ctx context.Context, cond interfaces.AccessCondition) (holds bool, supported bool, err error)
}

// AccessController attaches access conditions to encrypted objects and
// fetches their keys.
type AccessController struct {
	client    interfaces.StorageClient
	signer    interfaces.IdentitySigner
	preflight ConditionChecker
	log       *slog.Logger
}

// NewAccessController creates a controller. signer may be nil, in which case
// every call fails with ErrMissingPrivateKey. preflight may be nil.
func NewAccessController(signer interfaces.IdentitySigner, client interfaces.StorageClient, preflight ConditionChecker, log *slog.Logger) *AccessController {
	return &AccessController{
		client:    client,
		signer:    signer,
		preflight: preflight,
		log:       log,
	}
}

// BlockHeightCondition builds a getBlockNumber condition with id 1.
func BlockHeightCondition(chainName, comparator, threshold string) interfaces.AccessCondition {
	return interfaces.AccessCondition{
		ID:                   1,
		Chain:                chainName,
		Method:               "getBlockNumber",
		StandardContractType: "",
		ReturnValueTest: interfaces.ReturnValueTest{
			Comparator: comparator,
			Value:      threshold,
		},
	}
}

// ApplyCondition submits cond for id on behalf of the signer. aggregator is
// passed through verbatim. The acknowledgement is returned unmodified; any
// rejection is returned as *AccessControlError.
func (a *AccessController) ApplyCondition(ctx context.Context, id interfaces.ContentID, cond interfaces.AccessCondition, aggregator string) (*interfaces.AccessAck, error) {
	if a.signer == nil {
		return nil, interfaces.ErrMissingPrivateKey
	}
	if id == "" {
		return nil, interfaces.ErrEmptyContentID
	}
	if err := cond.Validate(); err != nil {
		return nil, interfaces.NewAccessControlError(id, err)
	}
	if aggregator == "" {
		aggregator = DefaultAggregator
	}

	a.runPreflight(ctx, cond)

	token, err := signAuthLogged(ctx, a.client, a.signer, a.log)
	if err != nil {
		return nil, interfaces.NewAccessControlError(id, err)
	}

	a.log.Info("Applying access condition",
		slog.String("cid", id.String()),
		slog.String("owner", a.signer.Address()),
		slog.String("chain", cond.Chain),
		slog.String("method", cond.Method),
		slog.String("comparator", cond.ReturnValueTest.Comparator),
		slog.String("threshold", cond.ReturnValueTest.Value),
		slog.String("aggregator", aggregator))

	ack, err := a.client.ApplyAccessCondition(ctx, interfaces.AccessConditionRequest{
		Address:    a.signer.Address(),
		CID:        id,
		Token:      token,
		Conditions: []interfaces.AccessCondition{cond},
		Aggregator: aggregator,
	})
	if err != nil {
		ace := interfaces.NewAccessControlError(id, err)
		a.log.Error("Access condition rejected",
			slog.String("cid", id.String()),
			slog.Int("status", ace.StatusCode),
			slog.String("body", ace.Body),
			"err", err)
		return nil, ace
	}

	a.log.Info("Access condition applied", slog.String("cid", ack.CID.String()), slog.String("status", ack.Status))
	return ack, nil
}

func (a *AccessController) runPreflight(ctx context.Context, cond interfaces.AccessCondition) {
	if a.preflight == nil {
		return
	}

	holds, supported, err := a.preflight.Check(ctx, cond)
	switch {
	case err != nil:
		a.log.Warn("Could not pre-check condition", "err", err)
	case !supported:
		a.log.Debug("Condition cannot be pre-checked locally", slog.String("method", cond.Method))
	case !holds:
		a.log.Warn("Condition does not currently hold; non-owners will be denied until it does",
			slog.String("method", cond.Method),
			slog.String("comparator", cond.ReturnValueTest.Comparator),
			slog.String("threshold", cond.ReturnValueTest.Value))
	default:
		a.log.Info("Condition currently holds", slog.String("method", cond.Method))
	}
}

// KeyInfo is the result of a key fetch. Conditions is nil when none could
// be read back.
type KeyInfo struct {
	CID        interfaces.ContentID
	Key        string
	Conditions interfaces.StoredConditions
}

// FetchKey reads back the stored conditions and fetches the file key for the
// signer. Failing to read the conditions is logged only.
func (a *AccessController) FetchKey(ctx context.Context, id interfaces.ContentID) (*KeyInfo, error) {
	if a.signer == nil {
		return nil, interfaces.ErrMissingPrivateKey
	}
	if id == "" {
		return nil, interfaces.ErrEmptyContentID
	}

	info := &KeyInfo{CID: id}

	if token, err := signAuthLogged(ctx, a.client, a.signer, a.log); err == nil {
		conditions, err := a.client.AccessConditions(ctx, id, token)
		if err != nil {
			a.log.Warn("Could not read stored conditions", slog.String("cid", id.String()), "err", err)
		} else {
			info.Conditions = conditions
		}
	}

	token, err := signAuthLogged(ctx, a.client, a.signer, a.log)
	if err != nil {
		return nil, err
	}

	key, err := a.client.FetchEncryptionKey(ctx, id, a.signer.Address(), token)
	if err != nil {
		a.log.Error("Could not fetch encryption key", slog.String("cid", id.String()), "err", err)
		return nil, fmt.Errorf("could not fetch encryption key for %s: %w", id, err)
	}

	a.log.Info("Encryption key retrieved", slog.String("cid", id.String()))
	info.Key = key
	return info, nil
}

// TestReport summarizes TestWorkflow.
type TestReport struct {
	Ack *interfaces.AccessAck
	Key *KeyInfo
}

// TestWorkflow applies cond and then checks that the signer can still fetch
// the key.
func (a *AccessController) TestWorkflow(ctx context.Context, id interfaces.ContentID, cond interfaces.AccessCondition, aggregator string) (*TestReport, error) {
	ack, err := a.ApplyCondition(ctx, id, cond, aggregator)
	if err != nil {
		return nil, fmt.Errorf("apply access control: %w", err)
	}

	key, err := a.FetchKey(ctx, id)
	if err != nil {
		return &TestReport{Ack: ack}, fmt.Errorf("key retrieval: %w", err)
	}

	return &TestReport{Ack: ack, Key: key}, nil
}
