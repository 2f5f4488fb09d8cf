package chain

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ruteri/lighthouse-toolkit/interfaces"
)

// BlockNumberReader is the part of an Ethereum client the probe needs.
type BlockNumberReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

// HeightProbe reads the current block height from an Ethereum RPC endpoint.
// It is used for advisory checks of getBlockNumber conditions only; the key
// service remains the authority on whether a condition holds.
type HeightProbe struct {
	client BlockNumberReader
	log    *slog.Logger
}

// Dial connects a probe to the RPC endpoint at rpcAddr.
func Dial(ctx context.Context, rpcAddr string, log *slog.Logger) (*HeightProbe, error) {
	client, err := ethclient.DialContext(ctx, rpcAddr)
	if err != nil {
		return nil, fmt.Errorf("could not dial RPC %s: %w", rpcAddr, err)
	}
	return NewHeightProbe(client, log), nil
}

func NewHeightProbe(client BlockNumberReader, log *slog.Logger) *HeightProbe {
	return &HeightProbe{client: client, log: log}
}

func (p *HeightProbe) Height(ctx context.Context) (*big.Int, error) {
	height, err := p.client.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not read block number: %w", err)
	}
	return new(big.Int).SetUint64(height), nil
}

// Check reports whether cond would currently hold. Only getBlockNumber
// conditions can be checked; others return supported=false.
func (p *HeightProbe) Check(ctx context.Context, cond interfaces.AccessCondition) (holds bool, supported bool, err error) {
	if cond.Method != "getBlockNumber" {
		return false, false, nil
	}

	height, err := p.Height(ctx)
	if err != nil {
		return false, true, err
	}

	holds, err = Compare(height, cond.ReturnValueTest.Comparator, cond.ReturnValueTest.Value)
	if err != nil {
		return false, true, err
	}

	p.log.Debug("Checked condition against chain height",
		slog.Int("condition", cond.ID),
		slog.String("height", height.String()),
		slog.String("comparator", cond.ReturnValueTest.Comparator),
		slog.String("threshold", cond.ReturnValueTest.Value),
		slog.Bool("holds", holds))

	return holds, true, nil
}
