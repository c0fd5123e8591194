package types

import (
	"encoding/json"
	"fmt"
)

// Gender of a kitty.
type Gender string

// Kitty genders.
const (
	Male   Gender = "male"
	Female Gender = "female"
)

// ParseGender converts a string to a Gender.
func ParseGender(s string) (Gender, error) {
	switch Gender(s) {
	case Male, Female:
		return Gender(s), nil
	}
	return "", fmt.Errorf("gender must be %q or %q, got %q", Male, Female, s)
}

// PayloadKind discriminates the payload union.
type PayloadKind string

// Payload kinds.
const (
	KindCoin          PayloadKind = "coin"
	KindKitty         PayloadKind = "kitty"
	KindTradableKitty PayloadKind = "tradable_kitty"
)

// Coin is a fungible value-carrying payload. It has no identity beyond value.
type Coin struct {
	Value uint64 `json:"value"`
}

// Kitty is a non-fungible asset. Name is unique among the live kitties of a
// single owner; DNA is fixed at mint or derived at breeding.
type Kitty struct {
	Name   string `json:"name"`
	Gender Gender `json:"gender"`
	DNA    Hash   `json:"dna"`
}

// TradableKitty is a kitty augmented with marketplace fields.
type TradableKitty struct {
	Kitty
	Price              uint64 `json:"price"`
	IsAvailableForSale bool   `json:"is_available_for_sale"`
}

// Payload is the tagged union carried by an output. Exactly one of the
// pointer fields matching Kind is non-nil.
type Payload struct {
	Kind          PayloadKind    `json:"kind"`
	Coin          *Coin          `json:"coin,omitempty"`
	Kitty         *Kitty         `json:"kitty,omitempty"`
	TradableKitty *TradableKitty `json:"tradable_kitty,omitempty"`
}

// CoinPayload wraps a coin value.
func CoinPayload(value uint64) Payload {
	return Payload{Kind: KindCoin, Coin: &Coin{Value: value}}
}

// KittyPayload wraps a kitty.
func KittyPayload(k Kitty) Payload {
	return Payload{Kind: KindKitty, Kitty: &k}
}

// TradableKittyPayload wraps a tradable kitty.
func TradableKittyPayload(tk TradableKitty) Payload {
	return Payload{Kind: KindTradableKitty, TradableKitty: &tk}
}

// Validate checks that the union tag matches exactly one populated field.
func (p Payload) Validate() error {
	switch p.Kind {
	case KindCoin:
		if p.Coin == nil || p.Kitty != nil || p.TradableKitty != nil {
			return fmt.Errorf("coin payload must carry only coin data")
		}
	case KindKitty:
		if p.Kitty == nil || p.Coin != nil || p.TradableKitty != nil {
			return fmt.Errorf("kitty payload must carry only kitty data")
		}
	case KindTradableKitty:
		if p.TradableKitty == nil || p.Coin != nil || p.Kitty != nil {
			return fmt.Errorf("tradable kitty payload must carry only tradable kitty data")
		}
	default:
		return fmt.Errorf("unknown payload kind %q", p.Kind)
	}
	return nil
}

// KittyName returns the name carried by a kitty or tradable kitty payload.
func (p Payload) KittyName() (string, bool) {
	switch p.Kind {
	case KindKitty:
		return p.Kitty.Name, true
	case KindTradableKitty:
		return p.TradableKitty.Name, true
	}
	return "", false
}

// CoinValue returns the value for coin payloads, or 0 and false otherwise.
func (p Payload) CoinValue() (uint64, bool) {
	if p.Kind == KindCoin && p.Coin != nil {
		return p.Coin.Value, true
	}
	return 0, false
}

// CanonicalBytes returns the deterministic encoding used inside transaction
// signing bytes. JSON of the union with the tag is stable because the struct
// field order is fixed.
func (p Payload) CanonicalBytes() ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(p)
}
