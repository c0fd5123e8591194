package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/kittynet/kittynet-wallet/pkg/types"
)

func TestMintCoins(t *testing.T) {
	alice := types.PublicKey{1}
	w, _, chain := newTestWallet(alice)

	tr, err := w.MintCoins(context.Background(), alice, 100)
	if err != nil {
		t.Fatalf("MintCoins: %v", err)
	}
	if len(chain.submitted) != 1 {
		t.Fatalf("%d transactions submitted, want 1", len(chain.submitted))
	}
	if len(tr.Inputs) != 0 {
		t.Error("mint must have no inputs")
	}
	if len(tr.Outputs) != 1 || tr.Outputs[0].Owner != alice {
		t.Fatalf("outputs = %+v", tr.Outputs)
	}
	if v, _ := tr.Outputs[0].Payload.CoinValue(); v != 100 {
		t.Errorf("minted value = %d, want 100", v)
	}
}

func TestMintCoins_ZeroAmount(t *testing.T) {
	alice := types.PublicKey{1}
	w, _, chain := newTestWallet(alice)
	if _, err := w.MintCoins(context.Background(), alice, 0); err == nil {
		t.Error("zero mint should be rejected")
	}
	if len(chain.submitted) != 0 {
		t.Error("nothing should be submitted")
	}
}

func TestSpendCoins_SelectsAndSigns(t *testing.T) {
	alice := types.PublicKey{1}
	bob := types.PublicKey{2}
	w, store, chain := newTestWallet(alice)
	insertCoin(t, store, ref(1, 0), alice, 60)

	tr, err := w.SpendCoins(context.Background(), SpendRequest{
		Recipient: bob,
		Amounts:   []uint64{40, 10},
	})
	if err != nil {
		t.Fatalf("SpendCoins: %v", err)
	}
	if len(chain.submitted) != 1 {
		t.Fatalf("%d submissions, want 1", len(chain.submitted))
	}

	if len(tr.Inputs) != 1 || tr.Inputs[0].Ref != ref(1, 0) {
		t.Fatalf("inputs = %+v", tr.Inputs)
	}
	if tr.Inputs[0].Signature == nil {
		t.Error("input must be signed")
	}
	if len(tr.Outputs) != 2 {
		t.Fatalf("outputs = %d, want 2", len(tr.Outputs))
	}
	for i, want := range []uint64{40, 10} {
		if tr.Outputs[i].Owner != bob {
			t.Errorf("output %d owner = %v, want bob", i, tr.Outputs[i].Owner)
		}
		if v, _ := tr.Outputs[i].Payload.CoinValue(); v != want {
			t.Errorf("output %d value = %d, want %d", i, v, want)
		}
	}
}

func TestSpendCoins_ExplicitInputs(t *testing.T) {
	alice := types.PublicKey{1}
	bob := types.PublicKey{2}
	w, store, _ := newTestWallet(alice)
	insertCoin(t, store, ref(1, 0), alice, 10)
	insertCoin(t, store, ref(2, 0), alice, 50)

	tr, err := w.SpendCoins(context.Background(), SpendRequest{
		Inputs:    []types.OutputRef{ref(2, 0)},
		Recipient: bob,
		Amounts:   []uint64{50},
	})
	if err != nil {
		t.Fatalf("SpendCoins: %v", err)
	}
	if len(tr.Inputs) != 1 || tr.Inputs[0].Ref != ref(2, 0) {
		t.Errorf("inputs = %+v, want only the explicit ref", tr.Inputs)
	}
}

func TestSpendCoins_AllowsExceedingInputs(t *testing.T) {
	// Conservation is the chain's job: a spend whose outputs exceed the
	// explicit inputs still builds, signs and submits.
	alice := types.PublicKey{1}
	bob := types.PublicKey{2}
	w, store, chain := newTestWallet(alice)
	insertCoin(t, store, ref(1, 0), alice, 100)

	tr, err := w.SpendCoins(context.Background(), SpendRequest{
		Inputs:    []types.OutputRef{ref(1, 0)},
		Recipient: bob,
		Amounts:   []uint64{150},
	})
	if err != nil {
		t.Fatalf("SpendCoins: %v", err)
	}
	if len(chain.submitted) != 1 {
		t.Error("overdrawn spend must still be submitted")
	}
	if tr.TotalOutputValue() != 150 {
		t.Errorf("output total = %d, want 150", tr.TotalOutputValue())
	}
}

func TestSpendCoins_InsufficientFundsWhenSelecting(t *testing.T) {
	// Without explicit inputs the selector must cover the target, so the
	// proposer leniency does not apply.
	alice := types.PublicKey{1}
	w, store, chain := newTestWallet(alice)
	insertCoin(t, store, ref(1, 0), alice, 10)

	_, err := w.SpendCoins(context.Background(), SpendRequest{
		Recipient: types.PublicKey{2},
		Amounts:   []uint64{50},
	})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("err = %v, want ErrInsufficientFunds", err)
	}
	if len(chain.submitted) != 0 {
		t.Error("nothing should be submitted")
	}
}

func TestSpendCoins_RejectsZeroAmounts(t *testing.T) {
	alice := types.PublicKey{1}
	w, store, _ := newTestWallet(alice)
	insertCoin(t, store, ref(1, 0), alice, 10)

	if _, err := w.SpendCoins(context.Background(), SpendRequest{
		Recipient: types.PublicKey{2},
		Amounts:   []uint64{},
	}); err == nil {
		t.Error("empty amounts should be rejected")
	}
	if _, err := w.SpendCoins(context.Background(), SpendRequest{
		Recipient: types.PublicKey{2},
		Amounts:   []uint64{5, 0},
	}); err == nil {
		t.Error("zero amount should be rejected")
	}
}

func TestSpendCoins_SubmitErrorPropagates(t *testing.T) {
	alice := types.PublicKey{1}
	w, store, chain := newTestWallet(alice)
	insertCoin(t, store, ref(1, 0), alice, 100)
	chain.submitErr = errors.New("node rejected")

	if _, err := w.SpendCoins(context.Background(), SpendRequest{
		Recipient: types.PublicKey{2},
		Amounts:   []uint64{50},
	}); err == nil {
		t.Error("submission failure must surface")
	}
}
