package wallet

import (
	"context"
	"fmt"

	"github.com/kittynet/kittynet-wallet/internal/log"
	"github.com/kittynet/kittynet-wallet/pkg/tx"
	"github.com/kittynet/kittynet-wallet/pkg/types"
)

// MintCoins builds and submits a mint transaction: no inputs, one coin
// output of the given value assigned to owner.
func (w *Wallet) MintCoins(ctx context.Context, owner types.PublicKey, amount uint64) (*tx.Transaction, error) {
	if amount == 0 {
		return nil, fmt.Errorf("mint amount must be positive")
	}

	t := tx.NewBuilder().
		AddOutput(owner, types.CoinPayload(amount)).
		Build()

	if err := w.chain.Submit(ctx, t); err != nil {
		return nil, err
	}
	log.Wallet.Info().
		Str("tx", t.Hash().String()).
		Uint64("amount", amount).
		Str("owner", owner.String()).
		Msg("minted coins")
	return t, nil
}

// SpendRequest describes a coin spend. When Inputs is empty the selector
// picks coin outputs from the keychain's keys; otherwise the listed refs are
// used as-is. All outputs go to Recipient, one coin output per amount.
type SpendRequest struct {
	Inputs    []types.OutputRef
	Recipient types.PublicKey
	Amounts   []uint64
}

// SpendCoins builds, signs and submits a coin spend. The wallet is a
// proposer, not a validator: output totals exceeding the inputs are allowed
// through and rejected by the chain, not locally.
func (w *Wallet) SpendCoins(ctx context.Context, req SpendRequest) (*tx.Transaction, error) {
	if len(req.Amounts) == 0 {
		return nil, fmt.Errorf("spend requires at least one output amount")
	}
	var target uint64
	for _, a := range req.Amounts {
		if a == 0 {
			return nil, fmt.Errorf("output amounts must be positive")
		}
		target += a
	}

	var sel *Selection
	var err error
	if len(req.Inputs) > 0 {
		sel, err = ResolveCoinInputs(w.store, req.Inputs)
	} else {
		var owners []types.PublicKey
		owners, err = w.keys.List()
		if err != nil {
			return nil, err
		}
		sel, err = SelectCoins(w.store, owners, target)
	}
	if err != nil {
		return nil, err
	}

	if sel.Total < target {
		// Deliberate: the chain enforces conservation, the wallet does not.
		log.Wallet.Warn().
			Uint64("inputs", sel.Total).
			Uint64("outputs", target).
			Msg("outputs exceed inputs, submitting anyway")
	}

	builder := tx.NewBuilder()
	for _, in := range sel.Inputs {
		builder.AddInput(in.Ref, in.Owner)
	}
	for _, amount := range req.Amounts {
		builder.AddOutput(req.Recipient, types.CoinPayload(amount))
	}
	if err := builder.Sign(w.keys); err != nil {
		return nil, err
	}
	t := builder.Build()

	if err := w.chain.Submit(ctx, t); err != nil {
		return nil, err
	}
	log.Wallet.Info().
		Str("tx", t.Hash().String()).
		Int("inputs", len(t.Inputs)).
		Uint64("total_out", target).
		Str("recipient", req.Recipient.String()).
		Msg("spent coins")
	return t, nil
}
