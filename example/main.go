// Example usage of the exchange engine against the in-memory asset book.
package main

import (
	"context"
	"fmt"
	"log"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	exchange "github.com/voxelmarkets/exchange-go"
	"github.com/voxelmarkets/exchange-go/asset"
	"github.com/voxelmarkets/exchange-go/fill"
	"github.com/voxelmarkets/exchange-go/order"
	"github.com/voxelmarkets/exchange-go/royalty"
)

func main() {
	admin := common.HexToAddress("0xad")
	feeReceiver := common.HexToAddress("0xfe")
	creator := common.HexToAddress("0xc1")
	payToken := common.HexToAddress("0x2001")
	nftToken := common.HexToAddress("0x7101")

	// Royalty schedule: the creator earns 5% on every resale of the registry.
	royalties := royalty.NewStatic()
	royalties.SetTokenRoyalties(nftToken, []royalty.Part{{Account: creator, Value: 500}})

	book := exchange.NewMemExecutor()

	engine, err := exchange.New(exchange.Config{
		ChainID:           big.NewInt(1),
		VerifyingContract: common.HexToAddress("0xe1"),
		Fee: exchange.ProtocolFeeConfig{
			PrimaryBps:   100, // 1% when the seller is the primary market
			SecondaryBps: 250, // 2.5% otherwise
			Receiver:     feeReceiver,
		},
		Admin: admin,
	}, fill.NewMemLedger(), book, royalties, order.EOAVerifier{})
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}

	// Two parties with their own keys; orders are signed off-system and
	// presented by a third-party matcher.
	buyerKey, err := crypto.GenerateKey()
	if err != nil {
		log.Fatalf("Failed to generate key: %v", err)
	}
	sellerKey, err := crypto.GenerateKey()
	if err != nil {
		log.Fatalf("Failed to generate key: %v", err)
	}
	buyer := order.NewSigner(engine.Domain(), buyerKey)
	seller := order.NewSigner(engine.Domain(), sellerKey)

	// Seed the asset book: the buyer holds payment tokens, the seller an item.
	price := big.NewInt(4_000_000_000)
	book.SetERC20Balance(payToken, buyer.Address(), price)
	book.MintERC721(nftToken, big.NewInt(5), seller.Address())

	bid := &order.Order{
		Maker:     buyer.Address(),
		MakeAsset: asset.Asset{Type: asset.ERC20Type(payToken), Value: price},
		TakeAsset: asset.Asset{Type: asset.ERC721Type(nftToken, big.NewInt(5)), Value: big.NewInt(1)},
		Salt:      big.NewInt(1),
	}
	ask := &order.Order{
		Maker:     seller.Address(),
		MakeAsset: asset.Asset{Type: asset.ERC721Type(nftToken, big.NewInt(5)), Value: big.NewInt(1)},
		TakeAsset: asset.Asset{Type: asset.ERC20Type(payToken), Value: price},
		Salt:      big.NewInt(2),
	}

	bidSig, err := buyer.Sign(bid)
	if err != nil {
		log.Fatalf("Failed to sign bid: %v", err)
	}
	askSig, err := seller.Sign(ask)
	if err != nil {
		log.Fatalf("Failed to sign ask: %v", err)
	}

	ctx := context.Background()
	matcher := common.HexToAddress("0x3a")

	fmt.Println("Matching bid and ask...")
	records, err := engine.MatchOrders(ctx, matcher, []exchange.ExchangeMatch{{
		OrderLeft:      bid,
		SignatureLeft:  bidSig,
		OrderRight:     ask,
		SignatureRight: askSig,
	}})
	if err != nil {
		log.Fatalf("Failed to match orders: %v", err)
	}
	fmt.Printf("Matched: moved %s payment for %s item(s)\n",
		records[0].LeftValue, records[0].RightValue)

	fmt.Printf("Item owner:       %s\n", book.ERC721Owner(nftToken, big.NewInt(5)).Hex())
	fmt.Printf("Seller proceeds:  %s\n", book.ERC20Balance(payToken, seller.Address()))
	fmt.Printf("Creator royalty:  %s\n", book.ERC20Balance(payToken, creator))
	fmt.Printf("Protocol fee:     %s\n", book.ERC20Balance(payToken, feeReceiver))

	// A maker may withdraw a standing order at any time.
	leftover := &order.Order{
		Maker:     seller.Address(),
		MakeAsset: asset.Asset{Type: asset.ERC721Type(nftToken, big.NewInt(6)), Value: big.NewInt(1)},
		TakeAsset: asset.Asset{Type: asset.ERC20Type(payToken), Value: price},
		Salt:      big.NewInt(3),
	}
	if err := engine.Cancel(ctx, seller.Address(), leftover, leftover.HashKey()); err != nil {
		log.Fatalf("Failed to cancel order: %v", err)
	}
	fmt.Println("\nCancelled standing order", leftover.HashKey().Hex())
}
