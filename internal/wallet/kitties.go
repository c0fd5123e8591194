package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/kittynet/kittynet-wallet/internal/kitty"
	"github.com/kittynet/kittynet-wallet/internal/ledger"
	"github.com/kittynet/kittynet-wallet/internal/log"
	"github.com/kittynet/kittynet-wallet/pkg/tx"
	"github.com/kittynet/kittynet-wallet/pkg/types"
)

// MintKitty builds and submits a kitty mint: no inputs, one kitty output.
// Fails with kitty.ErrNameCollision when owner already has a live kitty with
// this name; once that kitty is spent the name is free again.
func (w *Wallet) MintKitty(ctx context.Context, owner types.PublicKey, name string, gender types.Gender) (*tx.Transaction, error) {
	k, err := w.newKitty(owner, name, gender)
	if err != nil {
		return nil, err
	}

	t := tx.NewBuilder().
		AddOutput(owner, types.KittyPayload(k)).
		Build()

	if err := w.chain.Submit(ctx, t); err != nil {
		return nil, err
	}
	log.Wallet.Info().
		Str("tx", t.Hash().String()).
		Str("name", name).
		Str("dna", k.DNA.String()).
		Msg("minted kitty")
	return t, nil
}

// MintTradableKitty is MintKitty with marketplace fields attached.
func (w *Wallet) MintTradableKitty(ctx context.Context, owner types.PublicKey, name string, gender types.Gender, price uint64, available bool) (*tx.Transaction, error) {
	k, err := w.newKitty(owner, name, gender)
	if err != nil {
		return nil, err
	}
	tk := types.TradableKitty{Kitty: k, Price: price, IsAvailableForSale: available}

	t := tx.NewBuilder().
		AddOutput(owner, types.TradableKittyPayload(tk)).
		Build()

	if err := w.chain.Submit(ctx, t); err != nil {
		return nil, err
	}
	log.Wallet.Info().
		Str("tx", t.Hash().String()).
		Str("name", name).
		Uint64("price", price).
		Bool("for_sale", available).
		Msg("minted tradable kitty")
	return t, nil
}

// newKitty runs the name-collision check and derives a fresh kitty.
func (w *Wallet) newKitty(owner types.PublicKey, name string, gender types.Gender) (types.Kitty, error) {
	inUse, err := w.store.NameInUse(owner, name)
	if err != nil {
		return types.Kitty{}, err
	}
	if inUse {
		return types.Kitty{}, fmt.Errorf("%w: %q", kitty.ErrNameCollision, name)
	}
	return kitty.Mint(w.entropy, owner, name, gender)
}

// BreedKitty consumes the live mom and dad outputs of owner, recreates both,
// and adds the derived child. childName may be empty, in which case a name is
// derived from the parents'.
func (w *Wallet) BreedKitty(ctx context.Context, owner types.PublicKey, momName, dadName, childName string) (*tx.Transaction, error) {
	return w.breed(ctx, owner, momName, dadName, childName, false)
}

// BreedTradableKitty is the tradable-kitty variant of BreedKitty: parents
// must be tradable kitties and the child starts off-market with price zero.
func (w *Wallet) BreedTradableKitty(ctx context.Context, owner types.PublicKey, momName, dadName, childName string) (*tx.Transaction, error) {
	return w.breed(ctx, owner, momName, dadName, childName, true)
}

func (w *Wallet) breed(ctx context.Context, owner types.PublicKey, momName, dadName, childName string, tradable bool) (*tx.Transaction, error) {
	momOut, err := w.liveParent(owner, momName)
	if err != nil {
		return nil, err
	}
	dadOut, err := w.liveParent(owner, dadName)
	if err != nil {
		return nil, err
	}

	mom, err := parentKitty(momOut, tradable)
	if err != nil {
		return nil, err
	}
	dad, err := parentKitty(dadOut, tradable)
	if err != nil {
		return nil, err
	}

	if childName == "" {
		childName = ChildName(momName, dadName)
	}
	nameTaken, err := w.store.NameInUse(owner, childName)
	if err != nil {
		return nil, err
	}
	if nameTaken {
		return nil, fmt.Errorf("%w: %q", kitty.ErrNameCollision, childName)
	}

	child, err := kitty.Breed(w.entropy, owner,
		kitty.Parent{Kitty: mom, Owner: momOut.Owner},
		kitty.Parent{Kitty: dad, Owner: dadOut.Owner},
		childName)
	if err != nil {
		return nil, err
	}

	var childPayload types.Payload
	if tradable {
		childPayload = types.TradableKittyPayload(types.TradableKitty{Kitty: child})
	} else {
		childPayload = types.KittyPayload(child)
	}

	// Parents are consumed and recreated so the child's lineage is anchored
	// in fresh refs; their payloads carry over unchanged.
	builder := tx.NewBuilder().
		AddInput(momOut.Ref, momOut.Owner).
		AddInput(dadOut.Ref, dadOut.Owner).
		AddOutput(owner, momOut.Payload).
		AddOutput(owner, dadOut.Payload).
		AddOutput(owner, childPayload)
	if err := builder.Sign(w.keys); err != nil {
		return nil, err
	}
	t := builder.Build()

	if err := w.chain.Submit(ctx, t); err != nil {
		return nil, err
	}
	log.Wallet.Info().
		Str("tx", t.Hash().String()).
		Str("mom", momName).
		Str("dad", dadName).
		Str("child", childName).
		Str("child_dna", child.DNA.String()).
		Msg("bred kitties")
	return t, nil
}

// liveParent resolves a named kitty of owner; absence is a breeding
// precondition failure, not a plain lookup miss.
func (w *Wallet) liveParent(owner types.PublicKey, name string) (*ledger.Output, error) {
	out, err := w.store.KittyByName(owner, name)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return nil, fmt.Errorf("%w: no live kitty %q owned by %s", kitty.ErrInvalidBreedingPair, name, owner)
		}
		return nil, err
	}
	return out, nil
}

// parentKitty extracts the kitty record from a parent output, enforcing the
// payload kind the breed variant expects.
func parentKitty(out *ledger.Output, tradable bool) (types.Kitty, error) {
	if tradable {
		if out.Payload.Kind != types.KindTradableKitty {
			return types.Kitty{}, fmt.Errorf("%w: %s is not a tradable kitty", kitty.ErrInvalidBreedingPair, out.Ref)
		}
		return out.Payload.TradableKitty.Kitty, nil
	}
	if out.Payload.Kind != types.KindKitty {
		return types.Kitty{}, fmt.Errorf("%w: %s is not a plain kitty", kitty.ErrInvalidBreedingPair, out.Ref)
	}
	return *out.Payload.Kitty, nil
}

// SetKittyProperty consumes the tradable kitty identified by currentName and
// recreates it under the same owner with the new name, price and
// availability.
func (w *Wallet) SetKittyProperty(ctx context.Context, owner types.PublicKey, currentName, newName string, price uint64, available bool) (*tx.Transaction, error) {
	out, err := w.store.KittyByName(owner, currentName)
	if err != nil {
		return nil, err
	}
	if out.Payload.Kind != types.KindTradableKitty {
		return nil, fmt.Errorf("kitty %q is not tradable; properties can only be set on tradable kitties", currentName)
	}

	nameTaken, err := w.store.NameInUse(owner, newName)
	if err != nil {
		return nil, err
	}
	updated, err := kitty.ChangeProperties(*out.Payload.TradableKitty, newName, price, available, nameTaken)
	if err != nil {
		return nil, err
	}

	builder := tx.NewBuilder().
		AddInput(out.Ref, out.Owner).
		AddOutput(owner, types.TradableKittyPayload(updated))
	if err := builder.Sign(w.keys); err != nil {
		return nil, err
	}
	t := builder.Build()

	if err := w.chain.Submit(ctx, t); err != nil {
		return nil, err
	}
	log.Wallet.Info().
		Str("tx", t.Hash().String()).
		Str("name", currentName).
		Str("new_name", newName).
		Uint64("price", price).
		Bool("for_sale", available).
		Msg("set kitty properties")
	return t, nil
}

// BuyRequest describes a kitty purchase. When Inputs is empty the selector
// covers the asking price from the buyer's coins. OutputAmounts are the
// payment coin outputs created for the seller; when empty a single output of
// the asking price is used.
type BuyRequest struct {
	Buyer         types.PublicKey
	Seller        types.PublicKey
	KittyName     string
	Inputs        []types.OutputRef
	OutputAmounts []uint64
}

// BuyKitty builds and submits a purchase of the seller's tradable kitty: the
// kitty transfers to the buyer (taken off the market), payment coin outputs
// go to the seller. The availability flag is checked against the live
// snapshot before anything is built; payment sufficiency is a soft check
// only.
func (w *Wallet) BuyKitty(ctx context.Context, req BuyRequest) (*tx.Transaction, error) {
	kittyOut, err := w.store.KittyByName(req.Seller, req.KittyName)
	if err != nil {
		return nil, err
	}
	if kittyOut.Payload.Kind != types.KindTradableKitty {
		return nil, fmt.Errorf("kitty %q of %s is not tradable", req.KittyName, req.Seller)
	}
	tk := *kittyOut.Payload.TradableKitty
	if err := kitty.ValidateBuy(tk); err != nil {
		return nil, err
	}

	// A free listing needs no payment inputs at all.
	sel := &Selection{}
	if len(req.Inputs) > 0 {
		sel, err = ResolveCoinInputs(w.store, req.Inputs)
	} else if tk.Price > 0 {
		sel, err = SelectCoins(w.store, []types.PublicKey{req.Buyer}, tk.Price)
	}
	if err != nil {
		return nil, err
	}

	if short := kitty.PaymentShortfall(tk, sel.Total); short > 0 {
		log.Wallet.Warn().
			Uint64("price", tk.Price).
			Uint64("payment", sel.Total).
			Uint64("shortfall", short).
			Msg("payment below asking price, submitting anyway")
	}

	amounts := req.OutputAmounts
	if len(amounts) == 0 && tk.Price > 0 {
		amounts = []uint64{tk.Price}
	}

	builder := tx.NewBuilder().
		AddInput(kittyOut.Ref, kittyOut.Owner)
	for _, in := range sel.Inputs {
		builder.AddInput(in.Ref, in.Owner)
	}
	builder.AddOutput(req.Buyer, types.TradableKittyPayload(kitty.TransferToBuyer(tk)))
	for _, amount := range amounts {
		builder.AddOutput(req.Seller, types.CoinPayload(amount))
	}

	// The seller's key is usually not in this wallet; their input rides
	// unsigned and the chain's trade rules judge it. Locally held keys all
	// sign as normal.
	if err := builder.Sign(availableSigner{w.keys}); err != nil {
		return nil, err
	}
	t := builder.Build()

	if err := w.chain.Submit(ctx, t); err != nil {
		return nil, err
	}
	log.Wallet.Info().
		Str("tx", t.Hash().String()).
		Str("name", req.KittyName).
		Str("seller", req.Seller.String()).
		Str("buyer", req.Buyer.String()).
		Uint64("price", tk.Price).
		Msg("bought kitty")
	return t, nil
}

// availableSigner signs with the keychain when it holds the key and leaves
// the input unsigned otherwise.
type availableSigner struct {
	keys Keychain
}

func (s availableSigner) Sign(pub types.PublicKey, hash []byte) ([]byte, error) {
	if !s.keys.Has(pub) {
		return nil, nil
	}
	return s.keys.Sign(pub, hash)
}
