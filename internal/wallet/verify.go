package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/kittynet/kittynet-wallet/internal/ledger"
	"github.com/kittynet/kittynet-wallet/pkg/tx"
	"github.com/kittynet/kittynet-wallet/pkg/types"
)

// VerificationReport is the result of cross-checking one output reference
// against the chain and the local store. Used to diagnose sync drift; the
// check never mutates state.
type VerificationReport struct {
	Ref          types.OutputRef
	InChain      bool
	InLocalStore bool
	ChainOutput  *tx.Output     // nil unless InChain
	LocalOutput  *ledger.Output // nil unless InLocalStore
	// Mismatch is true when both sides have the output but disagree on
	// owner or payload.
	Mismatch bool
}

// VerifyOutput queries the chain and the local store independently and
// reports both states.
func (w *Wallet) VerifyOutput(ctx context.Context, ref types.OutputRef) (*VerificationReport, error) {
	report := &VerificationReport{Ref: ref}

	chainOut, err := w.chain.GetOutput(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("query chain for %s: %w", ref, err)
	}
	if chainOut != nil {
		report.InChain = true
		report.ChainOutput = chainOut
	}

	localOut, err := w.store.Get(ref)
	switch {
	case err == nil:
		report.InLocalStore = true
		report.LocalOutput = localOut
	case errors.Is(err, ledger.ErrNotFound):
	default:
		return nil, err
	}

	if report.InChain && report.InLocalStore {
		report.Mismatch = !outputsEqual(chainOut, localOut)
	}
	return report, nil
}

// VerifyCoin verifies an output reference and additionally requires it to be
// a coin on whichever side has it.
func (w *Wallet) VerifyCoin(ctx context.Context, ref types.OutputRef) (*VerificationReport, error) {
	return w.verifyKind(ctx, ref, types.KindCoin)
}

// VerifyKitty verifies an output reference expected to hold a plain kitty.
func (w *Wallet) VerifyKitty(ctx context.Context, ref types.OutputRef) (*VerificationReport, error) {
	return w.verifyKind(ctx, ref, types.KindKitty)
}

// VerifyTradableKitty verifies an output reference expected to hold a
// tradable kitty.
func (w *Wallet) VerifyTradableKitty(ctx context.Context, ref types.OutputRef) (*VerificationReport, error) {
	return w.verifyKind(ctx, ref, types.KindTradableKitty)
}

func (w *Wallet) verifyKind(ctx context.Context, ref types.OutputRef, kind types.PayloadKind) (*VerificationReport, error) {
	report, err := w.VerifyOutput(ctx, ref)
	if err != nil {
		return nil, err
	}
	if report.InChain && report.ChainOutput.Payload.Kind != kind {
		return nil, fmt.Errorf("output %s holds %s on-chain, expected %s", ref, report.ChainOutput.Payload.Kind, kind)
	}
	if report.InLocalStore && report.LocalOutput.Payload.Kind != kind {
		return nil, fmt.Errorf("output %s holds %s locally, expected %s", ref, report.LocalOutput.Payload.Kind, kind)
	}
	return report, nil
}

// outputsEqual compares owner and canonical payload encoding.
func outputsEqual(chainOut *tx.Output, localOut *ledger.Output) bool {
	if chainOut.Owner != localOut.Owner {
		return false
	}
	a, errA := chainOut.Payload.CanonicalBytes()
	b, errB := localOut.Payload.CanonicalBytes()
	if errA != nil || errB != nil {
		return false
	}
	return string(a) == string(b)
}
