package wallet

import (
	"errors"
	"fmt"
	"sort"

	"github.com/kittynet/kittynet-wallet/internal/ledger"
	"github.com/kittynet/kittynet-wallet/pkg/types"
)

// Selection errors.
var (
	// ErrInsufficientFunds is returned when the owners' coin outputs cannot
	// cover the requested total.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrNoCoins is returned when the owners hold no coin outputs at all.
	ErrNoCoins = errors.New("no coin outputs available")
)

// Selection is the result of coin selection.
type Selection struct {
	Inputs []*ledger.Output // Selected outputs, in canonical ref order.
	Total  uint64           // Sum of selected coin values.
}

// SelectCoins picks coin outputs owned by any of the given keys until their
// cumulative value covers target. Candidates are taken in ascending canonical
// OutputRef order, so for a fixed store state the selection is deterministic
// and reproducible. No waste optimization is attempted.
func SelectCoins(store *ledger.Store, owners []types.PublicKey, target uint64) (*Selection, error) {
	if target == 0 {
		return nil, fmt.Errorf("target must be positive")
	}

	outs, err := store.OwnedBy(owners...)
	if err != nil {
		return nil, err
	}

	candidates := make([]*ledger.Output, 0, len(outs))
	for _, o := range outs {
		if v, ok := o.Payload.CoinValue(); ok && v > 0 {
			candidates = append(candidates, o)
		}
	}
	if len(candidates) == 0 {
		return nil, ErrNoCoins
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Ref.Less(candidates[j].Ref)
	})

	sel := &Selection{}
	for _, o := range candidates {
		v, _ := o.Payload.CoinValue()
		sel.Inputs = append(sel.Inputs, o)
		sel.Total += v
		if sel.Total >= target {
			return sel, nil
		}
	}
	return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, sel.Total, target)
}

// ResolveCoinInputs resolves explicitly requested input refs against the
// store, requiring each to be a tracked coin output.
func ResolveCoinInputs(store *ledger.Store, refs []types.OutputRef) (*Selection, error) {
	sel := &Selection{}
	for _, ref := range refs {
		o, err := store.Get(ref)
		if err != nil {
			return nil, err
		}
		v, ok := o.Payload.CoinValue()
		if !ok {
			return nil, fmt.Errorf("input %s is not a coin output", ref)
		}
		sel.Inputs = append(sel.Inputs, o)
		sel.Total += v
	}
	return sel, nil
}
