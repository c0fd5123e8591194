package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/kittynet/kittynet-wallet/internal/kitty"
	"github.com/kittynet/kittynet-wallet/internal/ledger"
	"github.com/kittynet/kittynet-wallet/pkg/types"
)

func insertKitty(t *testing.T, store *ledger.Store, r types.OutputRef, owner types.PublicKey, name string, gender types.Gender) {
	t.Helper()
	insertPayload(t, store, r, owner,
		types.KittyPayload(types.Kitty{Name: name, Gender: gender, DNA: types.Hash{r.TxHash[0], byte(r.Index)}}))
}

func insertTradableKitty(t *testing.T, store *ledger.Store, r types.OutputRef, owner types.PublicKey, name string, gender types.Gender, price uint64, forSale bool) {
	t.Helper()
	insertPayload(t, store, r, owner,
		types.TradableKittyPayload(types.TradableKitty{
			Kitty: types.Kitty{Name: name, Gender: gender, DNA: types.Hash{r.TxHash[0], byte(r.Index)}},
			Price: price, IsAvailableForSale: forSale,
		}))
}

func TestMintKitty(t *testing.T) {
	alice := types.PublicKey{1}
	w, _, chain := newTestWallet(alice)

	tr, err := w.MintKitty(context.Background(), alice, "kity", types.Female)
	if err != nil {
		t.Fatalf("MintKitty: %v", err)
	}
	if len(chain.submitted) != 1 || len(tr.Inputs) != 0 || len(tr.Outputs) != 1 {
		t.Fatalf("unexpected tx shape: %d in, %d out", len(tr.Inputs), len(tr.Outputs))
	}
	k := tr.Outputs[0].Payload.Kitty
	if k == nil || k.Name != "kity" || k.Gender != types.Female {
		t.Fatalf("payload = %+v", tr.Outputs[0].Payload)
	}
	if k.DNA.IsZero() {
		t.Error("minted kitty must have DNA")
	}
}

func TestMintKitty_NameCollision(t *testing.T) {
	alice := types.PublicKey{1}
	w, store, chain := newTestWallet(alice)
	insertKitty(t, store, ref(1, 0), alice, "kity", types.Female)

	if _, err := w.MintKitty(context.Background(), alice, "kity", types.Male); !errors.Is(err, kitty.ErrNameCollision) {
		t.Errorf("err = %v, want ErrNameCollision", err)
	}
	if len(chain.submitted) != 0 {
		t.Error("collision must be caught before submission")
	}

	// Another owner is free to use the same name.
	bob := types.PublicKey{2}
	if _, err := w.MintKitty(context.Background(), bob, "kity", types.Male); err != nil {
		t.Errorf("same name under a different owner: %v", err)
	}
}

func TestMintKitty_NameFreeAfterSpend(t *testing.T) {
	alice := types.PublicKey{1}
	w, store, _ := newTestWallet(alice)
	insertKitty(t, store, ref(1, 0), alice, "kity", types.Female)

	// The kitty leaves the wallet (observed as consumed by sync).
	if err := store.NewBatch().Remove(ref(1, 0)).Commit(); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if _, err := w.MintKitty(context.Background(), alice, "kity", types.Male); err != nil {
		t.Errorf("name should be free after the old kitty is spent: %v", err)
	}
}

func TestMintTradableKitty(t *testing.T) {
	alice := types.PublicKey{1}
	w, _, _ := newTestWallet(alice)

	tr, err := w.MintTradableKitty(context.Background(), alice, "kity", types.Female, 250, true)
	if err != nil {
		t.Fatalf("MintTradableKitty: %v", err)
	}
	tk := tr.Outputs[0].Payload.TradableKitty
	if tk == nil || tk.Price != 250 || !tk.IsAvailableForSale {
		t.Fatalf("payload = %+v", tr.Outputs[0].Payload)
	}
}

func TestBreedKitty(t *testing.T) {
	alice := types.PublicKey{1}
	w, store, chain := newTestWallet(alice)
	insertKitty(t, store, ref(1, 0), alice, "mimi", types.Female)
	insertKitty(t, store, ref(2, 0), alice, "tommy", types.Male)

	tr, err := w.BreedKitty(context.Background(), alice, "mimi", "tommy", "")
	if err != nil {
		t.Fatalf("BreedKitty: %v", err)
	}
	if len(chain.submitted) != 1 {
		t.Fatal("breed must submit exactly one transaction")
	}

	// Both parents consumed, both recreated, plus the child.
	if len(tr.Inputs) != 2 || len(tr.Outputs) != 3 {
		t.Fatalf("tx shape = %d in, %d out, want 2 in, 3 out", len(tr.Inputs), len(tr.Outputs))
	}
	for i, in := range tr.Inputs {
		if in.Signature == nil {
			t.Errorf("input %d unsigned", i)
		}
	}
	child := tr.Outputs[2].Payload.Kitty
	if child == nil {
		t.Fatal("third output must be the child kitty")
	}
	if child.Name != "mito" {
		t.Errorf("derived child name = %q, want mito", child.Name)
	}
	momDNA := tr.Outputs[0].Payload.Kitty.DNA
	dadDNA := tr.Outputs[1].Payload.Kitty.DNA
	if child.DNA == momDNA || child.DNA == dadDNA {
		t.Error("child DNA must differ from both parents")
	}
}

func TestBreedKitty_Preconditions(t *testing.T) {
	alice := types.PublicKey{1}

	t.Run("two females", func(t *testing.T) {
		w, store, chain := newTestWallet(alice)
		insertKitty(t, store, ref(1, 0), alice, "mimi", types.Female)
		insertKitty(t, store, ref(2, 0), alice, "lulu", types.Female)
		if _, err := w.BreedKitty(context.Background(), alice, "mimi", "lulu", ""); !errors.Is(err, kitty.ErrInvalidBreedingPair) {
			t.Errorf("err = %v, want ErrInvalidBreedingPair", err)
		}
		if len(chain.submitted) != 0 {
			t.Error("nothing should be submitted")
		}
	})

	t.Run("parent not owned", func(t *testing.T) {
		bob := types.PublicKey{2}
		w, store, _ := newTestWallet(alice)
		insertKitty(t, store, ref(1, 0), alice, "mimi", types.Female)
		insertKitty(t, store, ref(2, 0), bob, "tommy", types.Male)
		// tommy lives under bob, so alice has no live kitty by that name.
		if _, err := w.BreedKitty(context.Background(), alice, "mimi", "tommy", ""); !errors.Is(err, kitty.ErrInvalidBreedingPair) {
			t.Errorf("err = %v, want ErrInvalidBreedingPair", err)
		}
	})

	t.Run("parent missing", func(t *testing.T) {
		w, store, _ := newTestWallet(alice)
		insertKitty(t, store, ref(1, 0), alice, "mimi", types.Female)
		if _, err := w.BreedKitty(context.Background(), alice, "mimi", "ghost", ""); !errors.Is(err, kitty.ErrInvalidBreedingPair) {
			t.Errorf("err = %v, want ErrInvalidBreedingPair", err)
		}
	})

	t.Run("child name taken", func(t *testing.T) {
		w, store, _ := newTestWallet(alice)
		insertKitty(t, store, ref(1, 0), alice, "mimi", types.Female)
		insertKitty(t, store, ref(2, 0), alice, "tommy", types.Male)
		insertKitty(t, store, ref(3, 0), alice, "mito", types.Female)
		if _, err := w.BreedKitty(context.Background(), alice, "mimi", "tommy", ""); !errors.Is(err, kitty.ErrNameCollision) {
			t.Errorf("err = %v, want ErrNameCollision", err)
		}
	})

	t.Run("plain breed rejects tradable parent", func(t *testing.T) {
		w, store, _ := newTestWallet(alice)
		insertKitty(t, store, ref(1, 0), alice, "mimi", types.Female)
		insertTradableKitty(t, store, ref(2, 0), alice, "tommy", types.Male, 10, false)
		if _, err := w.BreedKitty(context.Background(), alice, "mimi", "tommy", ""); !errors.Is(err, kitty.ErrInvalidBreedingPair) {
			t.Errorf("err = %v, want ErrInvalidBreedingPair", err)
		}
	})
}

func TestBreedTradableKitty(t *testing.T) {
	alice := types.PublicKey{1}
	w, store, _ := newTestWallet(alice)
	insertTradableKitty(t, store, ref(1, 0), alice, "mimi", types.Female, 100, true)
	insertTradableKitty(t, store, ref(2, 0), alice, "tommy", types.Male, 200, false)

	tr, err := w.BreedTradableKitty(context.Background(), alice, "mimi", "tommy", "junior")
	if err != nil {
		t.Fatalf("BreedTradableKitty: %v", err)
	}
	child := tr.Outputs[2].Payload.TradableKitty
	if child == nil {
		t.Fatal("child must be a tradable kitty")
	}
	if child.Name != "junior" {
		t.Errorf("child name = %q, want junior", child.Name)
	}
	if child.Price != 0 || child.IsAvailableForSale {
		t.Error("child must start off-market with price zero")
	}
	// Parents keep their market state.
	if mom := tr.Outputs[0].Payload.TradableKitty; mom.Price != 100 || !mom.IsAvailableForSale {
		t.Errorf("mom payload changed: %+v", mom)
	}
}

func TestSetKittyProperty(t *testing.T) {
	alice := types.PublicKey{1}
	w, store, _ := newTestWallet(alice)
	insertTradableKitty(t, store, ref(1, 0), alice, "kity", types.Female, 10, false)

	tr, err := w.SetKittyProperty(context.Background(), alice, "kity", "rex", 500, true)
	if err != nil {
		t.Fatalf("SetKittyProperty: %v", err)
	}
	if len(tr.Inputs) != 1 || tr.Inputs[0].Ref != ref(1, 0) {
		t.Fatalf("inputs = %+v", tr.Inputs)
	}
	if tr.Inputs[0].Signature == nil {
		t.Error("input must be signed")
	}
	updated := tr.Outputs[0].Payload.TradableKitty
	if updated.Name != "rex" || updated.Price != 500 || !updated.IsAvailableForSale {
		t.Errorf("updated = %+v", updated)
	}
	if updated.DNA != (types.Hash{1, 0}) {
		t.Error("DNA must be preserved")
	}
}

func TestSetKittyProperty_Errors(t *testing.T) {
	alice := types.PublicKey{1}

	t.Run("plain kitty", func(t *testing.T) {
		w, store, _ := newTestWallet(alice)
		insertKitty(t, store, ref(1, 0), alice, "kity", types.Female)
		if _, err := w.SetKittyProperty(context.Background(), alice, "kity", "rex", 1, true); err == nil {
			t.Error("plain kitties have no settable properties")
		}
	})

	t.Run("rename collision", func(t *testing.T) {
		w, store, _ := newTestWallet(alice)
		insertTradableKitty(t, store, ref(1, 0), alice, "kity", types.Female, 10, false)
		insertTradableKitty(t, store, ref(2, 0), alice, "rex", types.Male, 10, false)
		if _, err := w.SetKittyProperty(context.Background(), alice, "kity", "rex", 1, true); !errors.Is(err, kitty.ErrNameCollision) {
			t.Errorf("err = %v, want ErrNameCollision", err)
		}
	})

	t.Run("unknown kitty", func(t *testing.T) {
		w, _, _ := newTestWallet(alice)
		if _, err := w.SetKittyProperty(context.Background(), alice, "ghost", "rex", 1, true); !errors.Is(err, ledger.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})
}

func TestBuyKitty(t *testing.T) {
	buyer := types.PublicKey{1}
	seller := types.PublicKey{2}
	w, store, chain := newTestWallet(buyer) // seller's key is not held
	insertTradableKitty(t, store, ref(1, 0), seller, "kity", types.Female, 100, true)
	insertCoin(t, store, ref(2, 0), buyer, 120)

	tr, err := w.BuyKitty(context.Background(), BuyRequest{
		Buyer: buyer, Seller: seller, KittyName: "kity",
	})
	if err != nil {
		t.Fatalf("BuyKitty: %v", err)
	}
	if len(chain.submitted) != 1 {
		t.Fatal("buy must submit one transaction")
	}

	// Input 0 is the seller's kitty, unsigned; the buyer's coin is signed.
	if tr.Inputs[0].Ref != ref(1, 0) {
		t.Fatalf("first input = %v, want the kitty output", tr.Inputs[0].Ref)
	}
	if tr.Inputs[0].Signature != nil {
		t.Error("seller input must ride unsigned (key not held)")
	}
	if tr.Inputs[1].Signature == nil {
		t.Error("buyer coin input must be signed")
	}

	// Kitty goes to the buyer, off the market; payment goes to the seller.
	bought := tr.Outputs[0].Payload.TradableKitty
	if tr.Outputs[0].Owner != buyer || bought == nil {
		t.Fatalf("output 0 = %+v", tr.Outputs[0])
	}
	if bought.IsAvailableForSale {
		t.Error("bought kitty must come off the market")
	}
	if tr.Outputs[1].Owner != seller {
		t.Errorf("payment owner = %v, want seller", tr.Outputs[1].Owner)
	}
	if v, _ := tr.Outputs[1].Payload.CoinValue(); v != 100 {
		t.Errorf("payment = %d, want asking price 100", v)
	}
}

// A free listing must build without any payment: no coin selection, no
// zero-value output.
func TestBuyKitty_FreeListing(t *testing.T) {
	buyer := types.PublicKey{1}
	seller := types.PublicKey{2}
	w, store, chain := newTestWallet(buyer) // buyer holds no coins at all
	insertTradableKitty(t, store, ref(1, 0), seller, "kity", types.Female, 0, true)

	tr, err := w.BuyKitty(context.Background(), BuyRequest{
		Buyer: buyer, Seller: seller, KittyName: "kity",
	})
	if err != nil {
		t.Fatalf("BuyKitty: %v", err)
	}
	if len(chain.submitted) != 1 {
		t.Fatal("free buy must still submit one transaction")
	}

	if len(tr.Inputs) != 1 || tr.Inputs[0].Ref != ref(1, 0) {
		t.Fatalf("inputs = %+v, want only the kitty output", tr.Inputs)
	}
	if len(tr.Outputs) != 1 {
		t.Fatalf("outputs = %+v, want only the kitty (no zero-value payment)", tr.Outputs)
	}
	bought := tr.Outputs[0].Payload.TradableKitty
	if tr.Outputs[0].Owner != buyer || bought == nil {
		t.Fatalf("output 0 = %+v", tr.Outputs[0])
	}
	if bought.IsAvailableForSale {
		t.Error("bought kitty must come off the market")
	}
}

func TestBuyKitty_NotForSale(t *testing.T) {
	buyer := types.PublicKey{1}
	seller := types.PublicKey{2}
	w, store, chain := newTestWallet(buyer)
	insertTradableKitty(t, store, ref(1, 0), seller, "kity", types.Female, 100, false)
	insertCoin(t, store, ref(2, 0), buyer, 500)

	if _, err := w.BuyKitty(context.Background(), BuyRequest{
		Buyer: buyer, Seller: seller, KittyName: "kity",
	}); !errors.Is(err, kitty.ErrNotAvailable) {
		t.Errorf("err = %v, want ErrNotAvailable", err)
	}
	if len(chain.submitted) != 0 {
		t.Error("unavailability must be caught before anything is built")
	}
}

func TestBuyKitty_ExplicitPayment(t *testing.T) {
	buyer := types.PublicKey{1}
	seller := types.PublicKey{2}
	w, store, _ := newTestWallet(buyer)
	insertTradableKitty(t, store, ref(1, 0), seller, "kity", types.Female, 100, true)
	insertCoin(t, store, ref(2, 0), buyer, 60)

	// Explicit underpayment is a soft check: the transaction still goes out.
	tr, err := w.BuyKitty(context.Background(), BuyRequest{
		Buyer: buyer, Seller: seller, KittyName: "kity",
		Inputs:        []types.OutputRef{ref(2, 0)},
		OutputAmounts: []uint64{60},
	})
	if err != nil {
		t.Fatalf("BuyKitty: %v", err)
	}
	if v, _ := tr.Outputs[1].Payload.CoinValue(); v != 60 {
		t.Errorf("payment = %d, want explicit 60", v)
	}
}

func TestBuyKitty_PlainKittyNotBuyable(t *testing.T) {
	buyer := types.PublicKey{1}
	seller := types.PublicKey{2}
	w, store, _ := newTestWallet(buyer)
	insertKitty(t, store, ref(1, 0), seller, "kity", types.Female)
	insertCoin(t, store, ref(2, 0), buyer, 500)

	if _, err := w.BuyKitty(context.Background(), BuyRequest{
		Buyer: buyer, Seller: seller, KittyName: "kity",
	}); err == nil {
		t.Error("plain kitties are not tradable")
	}
}
