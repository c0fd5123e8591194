// Package kitty implements the pure rules for the non-fungible kitty asset:
// genetic derivation at mint and breeding, property changes, and marketplace
// preconditions. Nothing here touches the ledger; callers resolve state and
// feed it in.
package kitty

import (
	"errors"
	"fmt"
	"io"

	"github.com/kittynet/kittynet-wallet/pkg/crypto"
	"github.com/kittynet/kittynet-wallet/pkg/types"
)

// Rule violations.
var (
	// ErrInvalidBreedingPair is returned when gender, ownership or liveness
	// preconditions for breeding fail.
	ErrInvalidBreedingPair = errors.New("invalid breeding pair")
	// ErrNameCollision is returned when a mint or rename would duplicate a
	// live kitty name under the same owner.
	ErrNameCollision = errors.New("kitty name already in use")
	// ErrNotAvailable is returned when buying a kitty not offered for sale.
	ErrNotAvailable = errors.New("kitty is not available for sale")
)

// MaxNameLen bounds kitty names.
const MaxNameLen = 32

// ValidateName rejects empty or oversized names.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("kitty name must not be empty")
	}
	if len(name) > MaxNameLen {
		return fmt.Errorf("kitty name longer than %d bytes", MaxNameLen)
	}
	return nil
}

// Mint produces a fresh kitty for owner. The genetic code is derived from 32
// bytes of the entropy source mixed with owner and name, so distinct mints
// get distinct DNA even under a fixed test entropy source.
func Mint(entropy io.Reader, owner types.PublicKey, name string, gender types.Gender) (types.Kitty, error) {
	if err := ValidateName(name); err != nil {
		return types.Kitty{}, err
	}

	var seed [32]byte
	if _, err := io.ReadFull(entropy, seed[:]); err != nil {
		return types.Kitty{}, fmt.Errorf("read entropy: %w", err)
	}

	material := make([]byte, 0, 32+types.HashSize+len(name))
	material = append(material, seed[:]...)
	material = append(material, owner[:]...)
	material = append(material, name...)

	return types.Kitty{
		Name:   name,
		Gender: gender,
		DNA:    crypto.Hash(material),
	}, nil
}

// Parent pairs a kitty with the key that owns its output, as resolved from
// the local ledger by the caller.
type Parent struct {
	Kitty types.Kitty
	Owner types.PublicKey
}

// Breed derives the offspring of mom and dad for the requesting key.
// Preconditions: mom is female, dad is male, and both parents' outputs are
// owned by the requester (liveness is implied by the caller having resolved
// them from the local store). The child's DNA is the fixed mom-then-dad hash
// combination; its gender is drawn from the entropy source.
func Breed(entropy io.Reader, requester types.PublicKey, mom, dad Parent, childName string) (types.Kitty, error) {
	if err := ValidateName(childName); err != nil {
		return types.Kitty{}, err
	}
	if mom.Kitty.Gender != types.Female {
		return types.Kitty{}, fmt.Errorf("%w: mom %q is not female", ErrInvalidBreedingPair, mom.Kitty.Name)
	}
	if dad.Kitty.Gender != types.Male {
		return types.Kitty{}, fmt.Errorf("%w: dad %q is not male", ErrInvalidBreedingPair, dad.Kitty.Name)
	}
	if mom.Owner != requester || dad.Owner != requester {
		return types.Kitty{}, fmt.Errorf("%w: both parents must be owned by the requesting key", ErrInvalidBreedingPair)
	}

	var g [1]byte
	if _, err := io.ReadFull(entropy, g[:]); err != nil {
		return types.Kitty{}, fmt.Errorf("read entropy: %w", err)
	}
	gender := types.Female
	if g[0]%2 == 1 {
		gender = types.Male
	}

	return types.Kitty{
		Name:   childName,
		Gender: gender,
		DNA:    crypto.HashConcat(mom.Kitty.DNA, dad.Kitty.DNA),
	}, nil
}

// ChangeProperties returns the updated payload for a property-change
// transaction: same DNA and gender, new name/price/availability. nameTaken is
// the caller's lookup of whether the owner already has a different live kitty
// under newName.
func ChangeProperties(tk types.TradableKitty, newName string, newPrice uint64, available, nameTaken bool) (types.TradableKitty, error) {
	if err := ValidateName(newName); err != nil {
		return types.TradableKitty{}, err
	}
	if newName != tk.Name && nameTaken {
		return types.TradableKitty{}, fmt.Errorf("%w: %q", ErrNameCollision, newName)
	}

	updated := tk
	updated.Name = newName
	updated.Price = newPrice
	updated.IsAvailableForSale = available
	return updated, nil
}

// ValidateBuy checks that the seller's kitty can be bought at all. The price
// is fixed from the snapshot the caller resolved; payment sufficiency is
// deliberately not enforced here (the chain is the validator).
func ValidateBuy(tk types.TradableKitty) error {
	if !tk.IsAvailableForSale {
		return fmt.Errorf("%w: %q", ErrNotAvailable, tk.Name)
	}
	return nil
}

// PaymentShortfall returns how far payment falls short of the asking price,
// zero when the payment covers it. Callers log this; they do not block on it.
func PaymentShortfall(tk types.TradableKitty, payment uint64) uint64 {
	if payment >= tk.Price {
		return 0
	}
	return tk.Price - payment
}

// TransferToBuyer returns the payload the buyer receives: the same kitty
// taken off the market.
func TransferToBuyer(tk types.TradableKitty) types.TradableKitty {
	transferred := tk
	transferred.IsAvailableForSale = false
	return transferred
}
