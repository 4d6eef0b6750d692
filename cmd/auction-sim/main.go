// Command auction-sim deploys an auction factory against in-memory adapters,
// runs a cross-currency auction end to end, and writes the deployment
// artifact reporting tools consume. It is the local stand-in for deploying
// the factory to a live settlement environment.
package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cloudx-io/assetauction/adapters/memory"
	"github.com/cloudx-io/assetauction/audit"
	"github.com/cloudx-io/assetauction/core"
	"github.com/cloudx-io/assetauction/registry"
)

const (
	deployer    = core.Address("deployer")
	seller      = core.Address("seller")
	bidder1     = core.Address("bidder-1")
	bidder2     = core.Address("bidder-2")
	nftContract = core.Address("nft-contract")
	nativeFeed  = core.Address("feed-native")
	usdToken    = core.Address("usdc")
	usdFeed     = core.Address("feed-usdc")
)

type deploymentContracts struct {
	AuctionFactory        string `json:"auctionFactory"`
	AuctionImplementation string `json:"auctionImplementation"`
	ImplementationVersion string `json:"implementationVersion"`
}

type upgradeInfo struct {
	Timestamp         time.Time `json:"timestamp"`
	OldImplementation string    `json:"oldImplementation"`
	OldVersion        string    `json:"oldVersion"`
	NewImplementation string    `json:"newImplementation"`
	NewVersion        string    `json:"newVersion"`
}

type deploymentInfo struct {
	Network     string              `json:"network"`
	Timestamp   time.Time           `json:"timestamp"`
	Deployer    string              `json:"deployer"`
	Contracts   deploymentContracts `json:"contracts"`
	AuditDigest string              `json:"auditDigest,omitempty"`
	AuditSeal   string              `json:"auditSeal,omitempty"`
	LastUpgrade *upgradeInfo        `json:"lastUpgrade,omitempty"`
}

func main() {
	var (
		startingPriceUSD = flag.String("starting-price", "1000", "Starting price in USD")
		duration         = flag.Duration("duration", 7*24*time.Hour, "Auction duration")
		outPath          = flag.String("out", "deployment.json", "Deployment artifact path")
	)
	flag.Parse()

	price, err := decimal.NewFromString(*startingPriceUSD)
	if err != nil || price.Sign() <= 0 {
		fmt.Fprintf(os.Stderr, "Error: invalid starting price %q\n", *startingPriceUSD)
		os.Exit(1)
	}
	startingPrice := price.Shift(core.ReferenceDecimals)

	if err := run(startingPrice, *duration, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(startingPrice decimal.Decimal, duration time.Duration, outPath string) error {
	ctx := context.Background()

	// Simulated environment: adapters, feeds, funded parties.
	oracle := memory.NewOracle()
	oracle.SetPrice(nativeFeed, decimal.New(2000, 8), 8) // $2000, 8 decimals
	oracle.SetPrice(usdFeed, decimal.New(1, 8), 8)       // $1, 8 decimals

	ledger := memory.NewLedger()
	ledger.RegisterCurrency(usdToken, 6)
	ledger.Mint(core.NativeCurrency, bidder2, decimal.New(10, 18))
	ledger.Mint(usdToken, bidder1, decimal.New(10000, 6))

	custodian := memory.NewCustodian()
	asset := core.AssetRef{Custodian: nftContract, TokenID: 1}
	custodian.Mint(asset, seller)

	now := time.Now().UTC()
	clock := func() time.Time { return now }
	log := audit.NewLog()

	fmt.Printf("Deploying contracts with the account: %s\n", deployer)

	implV1 := core.Address("auction-impl-" + uuid.NewString())
	reg, err := registry.New(registry.Config{
		Authority:      deployer,
		Implementation: registry.DefaultImplementation(implV1),
		Oracle:         oracle,
		Custodian:      custodian,
		Ledger:         ledger,
		Events:         log,
		Now:            clock,
	})
	if err != nil {
		return fmt.Errorf("deploy factory: %w", err)
	}
	factoryID := "auction-factory-" + uuid.NewString()

	fmt.Println("\n=== Deployment Summary ===")
	fmt.Println("Network: local-sim")
	fmt.Printf("Deployer: %s\n", deployer)
	fmt.Printf("AuctionFactory: %s\n", factoryID)
	fmt.Printf("Auction Implementation: %s\n", reg.ImplementationRef())
	fmt.Printf("Implementation Version: %d\n", reg.ImplementationVersion())

	info := deploymentInfo{
		Network:   "local-sim",
		Timestamp: now,
		Deployer:  string(deployer),
		Contracts: deploymentContracts{
			AuctionFactory:        factoryID,
			AuctionImplementation: string(reg.ImplementationRef()),
			ImplementationVersion: fmt.Sprint(reg.ImplementationVersion()),
		},
	}

	// Put the asset up for auction and run a cross-currency bid sequence.
	addr, err := reg.CreateInstance(ctx, seller, asset, startingPrice, duration, nativeFeed)
	if err != nil {
		return fmt.Errorf("create auction: %w", err)
	}
	inst := reg.Instance(addr)
	fmt.Printf("\nAuction created for %s: %s\n", asset, addr)

	if err := inst.SetSupportedToken(seller, usdToken, usdFeed); err != nil {
		return fmt.Errorf("register token: %w", err)
	}

	ledger.Approve(usdToken, bidder1, addr, decimal.New(2000, 6))
	if err := inst.BidToken(ctx, bidder1, usdToken, decimal.New(2000, 6)); err != nil {
		return fmt.Errorf("token bid: %w", err)
	}
	if err := inst.BidNative(ctx, bidder2, decimal.New(2, 18)); err != nil {
		return fmt.Errorf("native bid: %w", err)
	}

	now = now.Add(duration + time.Second)
	if err := inst.EndAuction(); err != nil {
		return fmt.Errorf("end auction: %w", err)
	}
	winner := inst.Info()
	fmt.Printf("Auction ended: winner=%s value=%s\n", winner.CurrentBidder, winner.CurrentBidValue)

	if err := inst.ClaimAsset(ctx, winner.CurrentBidder); err != nil {
		return fmt.Errorf("claim asset: %w", err)
	}
	if err := inst.ClaimPayment(ctx, seller); err != nil {
		return fmt.Errorf("claim payment: %w", err)
	}

	// Roll the implementation forward for future instances, as the upgrade
	// script would.
	implV2 := core.Address("auction-impl-" + uuid.NewString())
	oldVersion := reg.ImplementationVersion()
	if err := reg.UpgradeImplementation(deployer, registry.DefaultImplementation(implV2)); err != nil {
		return fmt.Errorf("upgrade implementation: %w", err)
	}

	fmt.Println("\n=== Upgrade Summary ===")
	fmt.Printf("Old Implementation: %s\n", implV1)
	fmt.Printf("Old Version: %d\n", oldVersion)
	fmt.Printf("New Implementation: %s\n", reg.ImplementationRef())
	fmt.Printf("New Version: %d\n", reg.ImplementationVersion())

	info.LastUpgrade = &upgradeInfo{
		Timestamp:         now,
		OldImplementation: string(implV1),
		OldVersion:        fmt.Sprint(oldVersion),
		NewImplementation: string(reg.ImplementationRef()),
		NewVersion:        fmt.Sprint(reg.ImplementationVersion()),
	}
	info.Contracts.AuctionImplementation = string(reg.ImplementationRef())
	info.Contracts.ImplementationVersion = fmt.Sprint(reg.ImplementationVersion())

	// Print and seal the audit trail.
	fmt.Println("\n=== Audit Trail ===")
	for _, rec := range log.Records() {
		line, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
		fmt.Println(string(line))
	}

	sealKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return fmt.Errorf("generate seal key: %w", err)
	}
	sealed, err := log.Seal(sealKey)
	if err != nil {
		return fmt.Errorf("seal audit trail: %w", err)
	}
	info.AuditDigest = log.Digest()
	info.AuditSeal = base64.StdEncoding.EncodeToString(sealed)
	fmt.Printf("\nSealed audit digest: %s\n", log.Digest())

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("encode deployment info: %w", err)
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("write deployment info: %w", err)
	}
	fmt.Printf("Deployment info saved to %s\n", outPath)
	return nil
}
