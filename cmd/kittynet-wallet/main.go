// kittynet-wallet is a command-line wallet for a kittynet node. It keeps a
// local database of the outputs its keys control, syncs it against the node,
// and builds mint/spend/breed/trade transactions.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/kittynet/kittynet-wallet/config"
	"github.com/kittynet/kittynet-wallet/internal/chainclient"
	"github.com/kittynet/kittynet-wallet/internal/chainsync"
	"github.com/kittynet/kittynet-wallet/internal/keystore"
	"github.com/kittynet/kittynet-wallet/internal/ledger"
	"github.com/kittynet/kittynet-wallet/internal/log"
	"github.com/kittynet/kittynet-wallet/internal/storage"
	"github.com/kittynet/kittynet-wallet/internal/wallet"
	"github.com/kittynet/kittynet-wallet/pkg/types"
)

// CLI defaults, matching the development chain.
const (
	defaultMintAmount = 100
	defaultKittyName  = "kity"
)

func main() {
	cfg := config.DefaultConfig()

	args := os.Args[1:]
	// Global flags may appear before the subcommand.
	for len(args) > 0 {
		switch {
		case args[0] == "--endpoint" && len(args) > 1:
			cfg.Endpoint = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--endpoint="):
			cfg.Endpoint = args[0][len("--endpoint="):]
			args = args[1:]
		case args[0] == "--path" && len(args) > 1:
			cfg.DataDir = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--path="):
			cfg.DataDir = args[0][len("--path="):]
			args = args[1:]
		case args[0] == "--no-sync":
			cfg.NoSync = true
			args = args[1:]
		case args[0] == "--tmp":
			cfg.Tmp = true
			args = args[1:]
		case args[0] == "--dev":
			cfg.Dev = true
			args = args[1:]
		case args[0] == "--log-level" && len(args) > 1:
			cfg.LogLevel = args[1]
			args = args[2:]
		case args[0] == "--log-json":
			cfg.LogJSON = true
			args = args[1:]
		default:
			goto dispatch
		}
	}

dispatch:
	log.Init(cfg.LogLevel, cfg.LogJSON)

	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	if cfg.Tmp || cfg.Dev {
		dir, err := os.MkdirTemp("", "kittynet-wallet-*")
		if err != nil {
			fatal("create temp dir: %v", err)
		}
		defer os.RemoveAll(dir)
		cfg.DataDir = dir
	}
	if err := cfg.Validate(); err != nil {
		fatal("%v", err)
	}

	db, err := storage.NewBadger(cfg.LedgerDir())
	if err != nil {
		fatal("%v", err)
	}
	defer db.Close()

	ks, err := keystore.New(cfg.KeystoreDir())
	if err != nil {
		fatal("%v", err)
	}
	if cfg.Dev {
		if _, err := ks.Insert(keystore.ShawnPhrase); err != nil {
			fatal("insert dev key: %v", err)
		}
	}

	store := ledger.NewStore(db)
	client := chainclient.New(cfg.Endpoint)
	w := wallet.New(store, ks, client)
	ctx := context.Background()

	cmd := args[0]
	cmdArgs := args[1:]

	// Key management works offline; everything else syncs first unless
	// suppressed, and then runs against whatever local state we have.
	switch cmd {
	case "insert-key", "generate-key", "remove-key", "show-keys", "help", "-h", "--help":
	default:
		if !cfg.NoSync {
			if _, err := chainsync.New(client, store, ks).Sync(ctx); err != nil {
				fatal("%v", err)
			}
		}
	}

	switch cmd {
	case "mint-coins":
		cmdMintCoins(ctx, w, ks, cmdArgs)
	case "spend-coins":
		cmdSpendCoins(ctx, w, cmdArgs)
	case "mint-kitty":
		cmdMintKitty(ctx, w, ks, cmdArgs, false)
	case "mint-tradable-kitty":
		cmdMintKitty(ctx, w, ks, cmdArgs, true)
	case "breed-kitty":
		cmdBreedKitty(ctx, w, ks, cmdArgs, false)
	case "breed-tradable-kitty":
		cmdBreedKitty(ctx, w, ks, cmdArgs, true)
	case "set-kitty-property":
		cmdSetKittyProperty(ctx, w, ks, cmdArgs)
	case "buy-kitty":
		cmdBuyKitty(ctx, w, ks, cmdArgs)
	case "verify-coin":
		cmdVerify(ctx, w, cmdArgs, "coin")
	case "verify-kitty":
		cmdVerify(ctx, w, cmdArgs, "kitty")
	case "verify-tradable-kitty":
		cmdVerify(ctx, w, cmdArgs, "tradable-kitty")
	case "show-balance":
		cmdShowBalance(w)
	case "show-all-outputs":
		cmdShowAllOutputs(w)
	case "show-all-kitties":
		cmdShowKitties(w, types.PublicKey{}, false)
	case "show-owned-kitties":
		cmdShowOwnedKitties(w, ks, cmdArgs)
	case "show-timestamp":
		cmdShowTimestamp(ctx, client)
	case "get-block":
		cmdGetBlock(ctx, client, cmdArgs)
	case "insert-key":
		cmdInsertKey(ks, cmdArgs)
	case "generate-key":
		cmdGenerateKey(ks, cmdArgs)
	case "remove-key":
		cmdRemoveKey(ks, cmdArgs)
	case "show-keys":
		cmdShowKeys(ks)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

// defaultOwner picks the key operations act on when --owner is not given:
// the single key in the keystore, erroring when that is ambiguous.
func defaultOwner(ks *keystore.Keystore) types.PublicKey {
	keys, err := ks.List()
	if err != nil {
		fatal("list keys: %v", err)
	}
	switch len(keys) {
	case 0:
		fatal("keystore is empty; generate-key or insert-key first (or use --dev)")
	case 1:
		return keys[0]
	}
	fatal("keystore holds %d keys; pass --owner explicitly", len(keys))
	return types.PublicKey{}
}

func parseOwner(ks *keystore.Keystore, hexKey string) types.PublicKey {
	if hexKey == "" {
		return defaultOwner(ks)
	}
	pub, err := types.HexToPublicKey(hexKey)
	if err != nil {
		fatal("owner: %v", err)
	}
	return pub
}

func parseRefs(raw []string) []types.OutputRef {
	refs := make([]types.OutputRef, 0, len(raw))
	for _, s := range raw {
		ref, err := types.ParseOutputRef(s)
		if err != nil {
			fatal("input: %v", err)
		}
		refs = append(refs, ref)
	}
	return refs
}

// multiFlag collects a repeatable string flag.
type multiFlag []string

func (m *multiFlag) String() string { return strings.Join(*m, ",") }
func (m *multiFlag) Set(s string) error {
	*m = append(*m, s)
	return nil
}

// multiUint collects a repeatable uint64 flag.
type multiUint []uint64

func (m *multiUint) String() string { return fmt.Sprint(*m) }
func (m *multiUint) Set(s string) error {
	var v uint64
	if _, err := fmt.Sscanf(s, "%d", &v); err != nil {
		return err
	}
	*m = append(*m, v)
	return nil
}

func cmdMintCoins(ctx context.Context, w *wallet.Wallet, ks *keystore.Keystore, args []string) {
	fs := flag.NewFlagSet("mint-coins", flag.ExitOnError)
	amount := fs.Uint64("amount", defaultMintAmount, "number of coins to mint")
	owner := fs.String("owner", "", "hex public key of the owner")
	fs.Parse(args)

	t, err := w.MintCoins(ctx, parseOwner(ks, *owner), *amount)
	if err != nil {
		fatal("%v", err)
	}
	ref, _ := t.OutputRef(0)
	fmt.Printf("minted %d coins, output %s\n", *amount, ref)
}

func cmdSpendCoins(ctx context.Context, w *wallet.Wallet, args []string) {
	fs := flag.NewFlagSet("spend-coins", flag.ExitOnError)
	var inputs multiFlag
	var amounts multiUint
	fs.Var(&inputs, "input", "output ref to consume (repeatable)")
	fs.Var(&amounts, "output-amount", "coin output amount (repeatable)")
	recipient := fs.String("recipient", "", "hex public key of the recipient")
	fs.Parse(args)

	if *recipient == "" {
		fatal("spend-coins requires --recipient")
	}
	rcpt, err := types.HexToPublicKey(*recipient)
	if err != nil {
		fatal("recipient: %v", err)
	}

	t, err := w.SpendCoins(ctx, wallet.SpendRequest{
		Inputs:    parseRefs(inputs),
		Recipient: rcpt,
		Amounts:   amounts,
	})
	if err != nil {
		fatal("%v", err)
	}
	fmt.Printf("spend submitted, tx %s\n", t.Hash())
}

func cmdMintKitty(ctx context.Context, w *wallet.Wallet, ks *keystore.Keystore, args []string, tradable bool) {
	name := "mint-kitty"
	if tradable {
		name = "mint-tradable-kitty"
	}
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	kittyName := fs.String("kitty-name", defaultKittyName, "name of the kitty")
	gender := fs.String("kitty-gender", string(types.Female), "male or female")
	owner := fs.String("owner", "", "hex public key of the owner")
	price := fs.Uint64("price", 0, "asking price (tradable only)")
	forSale := fs.Bool("is-available-for-sale", false, "offer for sale (tradable only)")
	fs.Parse(args)

	g, err := types.ParseGender(*gender)
	if err != nil {
		fatal("%v", err)
	}
	pub := parseOwner(ks, *owner)

	var t interface{ Hash() types.Hash }
	if tradable {
		t, err = w.MintTradableKitty(ctx, pub, *kittyName, g, *price, *forSale)
	} else {
		t, err = w.MintKitty(ctx, pub, *kittyName, g)
	}
	if err != nil {
		fatal("%v", err)
	}
	fmt.Printf("minted kitty %q, tx %s\n", *kittyName, t.Hash())
}

func cmdBreedKitty(ctx context.Context, w *wallet.Wallet, ks *keystore.Keystore, args []string, tradable bool) {
	name := "breed-kitty"
	if tradable {
		name = "breed-tradable-kitty"
	}
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	mom := fs.String("mom-name", "", "name of the mom")
	dad := fs.String("dad-name", "", "name of the dad")
	child := fs.String("child-name", "", "name of the child (derived when empty)")
	owner := fs.String("owner", "", "hex public key of the owner")
	fs.Parse(args)

	if *mom == "" || *dad == "" {
		fatal("%s requires --mom-name and --dad-name", name)
	}
	pub := parseOwner(ks, *owner)

	var err error
	var t interface{ Hash() types.Hash }
	if tradable {
		t, err = w.BreedTradableKitty(ctx, pub, *mom, *dad, *child)
	} else {
		t, err = w.BreedKitty(ctx, pub, *mom, *dad, *child)
	}
	if err != nil {
		fatal("%v", err)
	}
	fmt.Printf("bred %q x %q, tx %s\n", *mom, *dad, t.Hash())
}

func cmdSetKittyProperty(ctx context.Context, w *wallet.Wallet, ks *keystore.Keystore, args []string) {
	fs := flag.NewFlagSet("set-kitty-property", flag.ExitOnError)
	current := fs.String("current-name", "", "existing name of the kitty")
	newName := fs.String("new-name", "", "new name of the kitty")
	price := fs.Uint64("price", 0, "new asking price")
	forSale := fs.Bool("is-available-for-sale", false, "offer for sale")
	owner := fs.String("owner", "", "hex public key of the owner")
	fs.Parse(args)

	if *current == "" || *newName == "" {
		fatal("set-kitty-property requires --current-name and --new-name")
	}

	t, err := w.SetKittyProperty(ctx, parseOwner(ks, *owner), *current, *newName, *price, *forSale)
	if err != nil {
		fatal("%v", err)
	}
	fmt.Printf("updated kitty %q, tx %s\n", *current, t.Hash())
}

func cmdBuyKitty(ctx context.Context, w *wallet.Wallet, ks *keystore.Keystore, args []string) {
	fs := flag.NewFlagSet("buy-kitty", flag.ExitOnError)
	var inputs multiFlag
	var amounts multiUint
	fs.Var(&inputs, "input", "coin output ref to pay with (repeatable)")
	fs.Var(&amounts, "output-amount", "payment output amount for the seller (repeatable)")
	kittyName := fs.String("kitty-name", "", "name of the kitty to buy")
	seller := fs.String("seller", "", "hex public key of the seller")
	owner := fs.String("owner", "", "hex public key of the buyer")
	fs.Parse(args)

	if *kittyName == "" || *seller == "" {
		fatal("buy-kitty requires --kitty-name and --seller")
	}
	sellerPub, err := types.HexToPublicKey(*seller)
	if err != nil {
		fatal("seller: %v", err)
	}

	t, err := w.BuyKitty(ctx, wallet.BuyRequest{
		Buyer:         parseOwner(ks, *owner),
		Seller:        sellerPub,
		KittyName:     *kittyName,
		Inputs:        parseRefs(inputs),
		OutputAmounts: amounts,
	})
	if err != nil {
		fatal("%v", err)
	}
	fmt.Printf("bought kitty %q, tx %s\n", *kittyName, t.Hash())
}

func cmdVerify(ctx context.Context, w *wallet.Wallet, args []string, kind string) {
	if len(args) != 1 {
		fatal("verify-%s takes exactly one output ref", kind)
	}
	ref, err := types.ParseOutputRef(args[0])
	if err != nil {
		fatal("%v", err)
	}

	var report *wallet.VerificationReport
	switch kind {
	case "coin":
		report, err = w.VerifyCoin(ctx, ref)
	case "kitty":
		report, err = w.VerifyKitty(ctx, ref)
	default:
		report, err = w.VerifyTradableKitty(ctx, ref)
	}
	if err != nil {
		fatal("%v", err)
	}

	fmt.Printf("output %s\n", report.Ref)
	fmt.Printf("  on chain:       %v\n", report.InChain)
	fmt.Printf("  in local store: %v\n", report.InLocalStore)
	if report.Mismatch {
		fmt.Println("  WARNING: chain and local store disagree on this output")
	}
	if report.LocalOutput != nil {
		fmt.Printf("  local owner:    %s\n", report.LocalOutput.Owner)
	}
	if report.ChainOutput != nil {
		fmt.Printf("  chain owner:    %s\n", report.ChainOutput.Owner)
	}
}

func cmdShowBalance(w *wallet.Wallet) {
	balances, err := w.Balances()
	if err != nil {
		fatal("%v", err)
	}
	fmt.Println("balance summary:")
	for pub, total := range balances {
		fmt.Printf("  %s: %d\n", pub, total)
	}
}

func cmdShowAllOutputs(w *wallet.Wallet) {
	outs, err := w.AllOutputs()
	if err != nil {
		fatal("%v", err)
	}
	fmt.Println("tracked outputs:")
	for _, o := range outs {
		switch {
		case o.Payload.Kind == types.KindCoin:
			fmt.Printf("  %s owner=%s coin value=%d\n", o.Ref, o.Owner, o.Payload.Coin.Value)
		default:
			name, _ := o.Payload.KittyName()
			fmt.Printf("  %s owner=%s %s name=%q\n", o.Ref, o.Owner, o.Payload.Kind, name)
		}
	}
}

func cmdShowKitties(w *wallet.Wallet, owner types.PublicKey, ownedOnly bool) {
	var outs []*ledger.Output
	var err error
	if ownedOnly {
		outs, err = w.OwnedKitties(owner)
	} else {
		outs, err = w.AllKitties()
	}
	if err != nil {
		fatal("%v", err)
	}
	for _, o := range outs {
		printKitty(o)
	}
}

func cmdShowOwnedKitties(w *wallet.Wallet, ks *keystore.Keystore, args []string) {
	fs := flag.NewFlagSet("show-owned-kitties", flag.ExitOnError)
	owner := fs.String("owner", "", "hex public key of the owner")
	fs.Parse(args)
	cmdShowKitties(w, parseOwner(ks, *owner), true)
}

func printKitty(o *ledger.Output) {
	switch o.Payload.Kind {
	case types.KindKitty:
		k := o.Payload.Kitty
		fmt.Printf("  %s %q %s dna=%s owner=%s\n", o.Ref, k.Name, k.Gender, k.DNA, o.Owner)
	case types.KindTradableKitty:
		tk := o.Payload.TradableKitty
		fmt.Printf("  %s %q %s dna=%s price=%d for_sale=%v owner=%s\n",
			o.Ref, tk.Name, tk.Gender, tk.DNA, tk.Price, tk.IsAvailableForSale, o.Owner)
	}
}

func cmdShowTimestamp(ctx context.Context, client *chainclient.Client) {
	ts, err := client.LatestTimestamp(ctx)
	if err != nil {
		fatal("%v", err)
	}
	fmt.Printf("latest on-chain timestamp: %s\n", ts)
}

func cmdGetBlock(ctx context.Context, client *chainclient.Client, args []string) {
	if len(args) != 1 {
		fatal("get-block takes exactly one block height")
	}
	var height uint64
	if _, err := fmt.Sscanf(args[0], "%d", &height); err != nil {
		fatal("block height: %v", err)
	}
	blk, err := client.GetBlock(ctx, height)
	if err != nil {
		fatal("%v", err)
	}
	if blk == nil {
		fmt.Printf("no block at height %d\n", height)
		return
	}
	fmt.Printf("block %d %s (%d transactions)\n", blk.Height, blk.Hash, len(blk.Transactions))
	for i := range blk.Transactions {
		fmt.Printf("  tx %s\n", blk.Transactions[i].Hash())
	}
}

func cmdInsertKey(ks *keystore.Keystore, args []string) {
	if len(args) != 1 {
		fatal("insert-key takes exactly one seed phrase argument (quote it)")
	}
	pub, err := ks.Insert(args[0])
	if err != nil {
		fatal("%v", err)
	}
	fmt.Printf("inserted key %s\n", pub)
}

func cmdGenerateKey(ks *keystore.Keystore, args []string) {
	fs := flag.NewFlagSet("generate-key", flag.ExitOnError)
	withPassword := fs.Bool("password", false, "protect the key with a password")
	fs.Parse(args)

	var password string
	if *withPassword {
		fmt.Fprint(os.Stderr, "password: ")
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			fatal("read password: %v", err)
		}
		password = string(raw)
	}

	pub, err := ks.Generate(password)
	if err != nil {
		fatal("%v", err)
	}
	fmt.Printf("generated key %s\n", pub)
}

func cmdRemoveKey(ks *keystore.Keystore, args []string) {
	if len(args) != 1 {
		fatal("remove-key takes exactly one hex public key")
	}
	pub, err := types.HexToPublicKey(args[0])
	if err != nil {
		fatal("%v", err)
	}
	fmt.Println("WARNING: this permanently deletes the private key. There is no recovery.")
	if err := ks.Remove(pub); err != nil {
		fatal("%v", err)
	}
	fmt.Printf("removed key %s\n", pub)
}

func cmdShowKeys(ks *keystore.Keystore) {
	keys, err := ks.List()
	if err != nil {
		fatal("%v", err)
	}
	fmt.Println("keys in keystore:")
	for _, pub := range keys {
		fmt.Printf("  %s\n", pub)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `kittynet-wallet - a UTXO wallet for kittynet nodes

usage: kittynet-wallet [global flags] <command> [command flags]

global flags:
  --endpoint <url>    node RPC endpoint (default %s)
  --path <dir>        wallet data directory
  --no-sync           skip the initial sync, use last synced state
  --tmp               use a throwaway data directory
  --dev               like --tmp, plus the development key Shawn
  --log-level <lvl>   debug|info|warn|error
  --log-json          JSON log output

commands:
  mint-coins            mint coins to an owner
  spend-coins           spend coin outputs to a recipient
  mint-kitty            mint a kitty
  mint-tradable-kitty   mint a kitty with marketplace fields
  breed-kitty           breed two owned kitties
  breed-tradable-kitty  breed two owned tradable kitties
  set-kitty-property    rename/reprice a tradable kitty
  buy-kitty             buy a tradable kitty from a seller
  verify-coin           cross-check a coin output against chain and store
  verify-kitty          cross-check a kitty output
  verify-tradable-kitty cross-check a tradable kitty output
  show-balance          per-key sum of coin outputs
  show-all-outputs      every tracked output
  show-all-kitties      every tracked kitty
  show-owned-kitties    kitties of one owner
  show-timestamp        latest on-chain timestamp
  get-block <height>    show a block
  insert-key <phrase>   insert a key from a BIP-39 seed phrase
  generate-key          generate a new key
  remove-key <pubkey>   permanently remove a key
  show-keys             list public keys
`, config.DefaultEndpoint)
}
