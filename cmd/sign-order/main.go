package main

import (
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ohsung/twapkit/params"
	"github.com/ohsung/twapkit/pkg/crypto"
	"github.com/ohsung/twapkit/pkg/order"
)

// Demo CLI: builds and signs a single limit order so the payload can be
// inspected or submitted by hand. Uses MAKER_PRIVATE_KEY when set,
// otherwise generates a throwaway key.
func main() {
	cfg := params.LoadFromEnv("")

	// Step 1: Generate or load key
	var key *crypto.MakerKey
	var err error
	if privHex := strings.TrimPrefix(os.Getenv("MAKER_PRIVATE_KEY"), "0x"); privHex != "" {
		key, err = crypto.FromPrivateKeyHex(privHex)
		if err != nil {
			fmt.Printf("Error loading key: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Loaded maker key from MAKER_PRIVATE_KEY\n")
	} else {
		fmt.Println("Generating new keypair...")
		key, err = crypto.GenerateKey()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Private Key: %s (KEEP SECRET!)\n", key.PrivateKeyHex())
	}
	fmt.Printf("Address: %s\n\n", key.Address().Hex())

	// Step 2: Build an order for the configured pair
	builder := &order.Builder{
		Maker:      key.Address(),
		MakerAsset: common.HexToAddress(cfg.Plan.MakerAsset),
		TakerAsset: common.HexToAddress(cfg.Plan.TakerAsset),
		Expiry:     cfg.Plan.OrderExpiry,
	}

	making := cfg.Plan.TotalAmount
	taking := takingAmount(making)

	o, err := builder.Build(making, taking, time.Now())
	if err != nil {
		fmt.Printf("Error building order: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Order Details:")
	fmt.Printf("  Maker: %s\n", o.Maker.Hex())
	fmt.Printf("  MakerAsset: %s\n", o.MakerAsset.Hex())
	fmt.Printf("  TakerAsset: %s\n", o.TakerAsset.Hex())
	fmt.Printf("  MakingAmount: %s\n", o.MakingAmount.String())
	fmt.Printf("  TakingAmount: %s\n", o.TakingAmount.String())
	fmt.Printf("  Expiration: %s (unix)\n\n", o.Expiration.String())

	// Step 3: Sign with EIP-712
	domain := order.Domain{
		Name:              cfg.Protocol.DomainName,
		Version:           cfg.Protocol.DomainVersion,
		ChainID:           big.NewInt(cfg.Protocol.ChainID),
		VerifyingContract: common.HexToAddress(cfg.Protocol.VerifyingContract),
	}
	signer := order.NewSigner(domain)

	signed, err := signer.Sign(key, o)
	if err != nil {
		fmt.Printf("Error signing: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Order Hash: %s\n", signed.OrderHash.Hex())
	fmt.Printf("Signature: 0x%x\n\n", signed.Signature)

	// Step 4: Verify signature
	fmt.Println("Verifying signature...")
	valid, err := signer.Verify(signed)
	if err != nil {
		fmt.Printf("Error verifying: %v\n", err)
		os.Exit(1)
	}
	if !valid {
		fmt.Println("✗ Signature INVALID")
		os.Exit(1)
	}
	recovered, err := signer.RecoverMaker(signed)
	if err != nil {
		fmt.Printf("Error recovering: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✓ Signature VALID")
	fmt.Printf("  Signer: %s\n\n", recovered.Hex())

	// Step 5: Serialize the submission payload
	payload, err := signed.Serialize()
	if err != nil {
		fmt.Printf("Error marshaling JSON: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Submission Payload (JSON):")
	fmt.Println(string(payload))
	fmt.Println()

	// Step 6: Typed data for wallet signing
	typedJSON, err := signer.TypedDataJSON(&o)
	if err != nil {
		fmt.Printf("Error rendering typed data: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("eth_signTypedData_v4 request:")
	fmt.Println(typedJSON)
	fmt.Println()

	// Step 7: Show how to submit
	fmt.Println("To submit this order:")
	fmt.Printf("  POST %s/order\n", cfg.Endpoints.FillBaseURL)
	fmt.Println("  Content-Type: application/json")
	fmt.Println("  Authorization: Bearer $ONEINCH_API_KEY")
}

// takingAmount derives a placeholder quote for the demo. The daemon asks
// the aggregator for a live quote; here a flat 1:1 keeps the output
// self-contained and offline.
func takingAmount(making *big.Int) *big.Int {
	return new(big.Int).Set(making)
}
