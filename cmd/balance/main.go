// Command balance prints the funding wallet's USDC balance and exchange
// allowances, the pre-flight check before enabling live trading.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/yskaaks/polymarket-bot/internal/config"
	"github.com/yskaaks/polymarket-bot/internal/dotenv"
	"github.com/yskaaks/polymarket-bot/internal/wallet"
)

func main() {
	log.SetFlags(0)

	if err := dotenv.Load(); err != nil {
		log.Printf("[warn] %v", err)
	}

	var addrFlag string
	flag.StringVar(&addrFlag, "address", "", "Wallet address to check (default: FUNDER_ADDRESS or signer from PRIVATE_KEY)")
	flag.Parse()

	cfg := config.FromEnv()
	if strings.TrimSpace(cfg.PolygonRPC) == "" {
		log.Fatalf("[fatal] polygon rpc url required (POLYGON_RPC_URL)")
	}

	owner, ownerSrc, err := resolveOwnerAddress(addrFlag, cfg)
	if err != nil {
		log.Fatalf("[fatal] %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 12*time.Second)
	defer cancel()

	client, err := ethclient.DialContext(ctx, cfg.PolygonRPC)
	if err != nil {
		log.Fatalf("[fatal] dial polygon rpc: %v", err)
	}
	defer client.Close()

	reader := wallet.NewReader(client)

	balance, err := reader.BalanceMicros(ctx, owner)
	if err != nil {
		log.Fatalf("[fatal] %v", err)
	}
	allowances, err := reader.ExchangeAllowancesMicros(ctx, owner)
	if err != nil {
		log.Fatalf("[fatal] %v", err)
	}

	fmt.Printf("owner: %s (%s)\n", owner.Hex(), ownerSrc)
	fmt.Printf("usdc_balance: %s (micros=%d)\n", wallet.FormatMicros(balance), balance)
	fmt.Printf("allowance_ctf_exchange: %s\n", wallet.FormatMicros(allowances[wallet.CTFExchangeAddress]))
	fmt.Printf("allowance_neg_risk_exchange: %s\n", wallet.FormatMicros(allowances[wallet.NegRiskExchangeAddress]))

	if balance == 0 {
		fmt.Println("note: zero balance, live orders would be rejected")
	}
}

func resolveOwnerAddress(addrFlag string, cfg config.Config) (common.Address, string, error) {
	if raw := strings.TrimSpace(addrFlag); raw != "" {
		if !common.IsHexAddress(raw) {
			return common.Address{}, "", fmt.Errorf("invalid --address %q", raw)
		}
		return common.HexToAddress(raw), "--address", nil
	}

	if cfg.FunderAddress != "" {
		if !common.IsHexAddress(cfg.FunderAddress) {
			return common.Address{}, "", fmt.Errorf("invalid FUNDER_ADDRESS %q", cfg.FunderAddress)
		}
		return common.HexToAddress(cfg.FunderAddress), "FUNDER_ADDRESS", nil
	}

	if cfg.PrivateKeyHex != "" {
		pk, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKeyHex, "0x"))
		if err != nil {
			return common.Address{}, "", fmt.Errorf("invalid PRIVATE_KEY: %w", err)
		}
		return crypto.PubkeyToAddress(pk.PublicKey), "PRIVATE_KEY", nil
	}

	return common.Address{}, "", fmt.Errorf("wallet required: set FUNDER_ADDRESS, PRIVATE_KEY, or pass --address")
}
