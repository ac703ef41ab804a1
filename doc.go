// Package tokenledger provides a multi-token accounting engine for Go applications.
//
// TokenLedger is designed as a library, not a service. Import it directly into
// your Go application. A single shared ledger ("Collection") tracks
// independently-supplied token types, while individually-held Balance records
// represent spendable, transferable holdings of a specific token type. The
// engine keeps per-token total supply, record amounts, and their sum in
// permanent agreement across mint, burn, split, join, and transfer.
//
// # Quick Start
//
// Create a ledger instance with your preferred store:
//
//	import (
//	    "github.com/xraph/tokenledger"
//	    "github.com/xraph/tokenledger/store/memory"
//	)
//
//	l := tokenledger.New(memory.New())
//
//	ctx := tokenledger.WithActor(context.Background(), "alice")
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop()
//
// # Core Concepts
//
// A Collection is created together with its single capability; the capability
// gates minting and metadata mutation and can be handed to a delegate:
//
//	col, cap, err := l.CreateCollection(ctx)
//
// Token types are 128-bit identifiers packing two 64-bit namespaces:
//
//	gold := token.New(100, 1)
//
// Minting requires the capability; everything else requires only possession
// of the record:
//
//	b, err := l.MintBalance(ctx, cap.ID, col.ID, gold, 100)
//	part, err := l.Split(ctx, b.ID, 30)
//	err = l.Transfer(ctx, part.ID, "bob")
//
// Burning destroys a record and removes its amount from circulation:
//
//	amount, err := l.Burn(ctx, col.ID, b.ID)
//
// Every mint, burn, and transfer appends a durable audit event; off-chain
// indexers may consume the trail through hooks or replay it with
// RecomputeSupply, which always agrees with TotalSupply.
package tokenledger
