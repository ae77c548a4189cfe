// Command umaarb watches UMA Optimistic Oracle settlements on Polygon and
// buys the freshly resolved Polymarket outcome while stale quotes still
// offer edge. Dry-run by default; set -enable-trading (or DRY_RUN=false)
// plus credentials to go live.
package main

import (
	"context"
	"crypto/ecdsa"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/yskaaks/polymarket-bot/internal/book"
	"github.com/yskaaks/polymarket-bot/internal/clob"
	"github.com/yskaaks/polymarket-bot/internal/config"
	"github.com/yskaaks/polymarket-bot/internal/dotenv"
	"github.com/yskaaks/polymarket-bot/internal/exec"
	"github.com/yskaaks/polymarket-bot/internal/gamma"
	"github.com/yskaaks/polymarket-bot/internal/jsonl"
	"github.com/yskaaks/polymarket-bot/internal/oracle"
	"github.com/yskaaks/polymarket-bot/internal/risk"
	tradesignal "github.com/yskaaks/polymarket-bot/internal/signal"
	"github.com/yskaaks/polymarket-bot/internal/strategy"
	"github.com/yskaaks/polymarket-bot/internal/trading"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := dotenv.Load(); err != nil {
		log.Printf("[warn] %v", err)
	}

	cfg := config.FromEnv()

	var (
		rpcFlag         string
		enableTrading   bool
		maxNotionalFlag float64
		minEdgeFlag     float64
		pollSecFlag     int
		tradeLogFlag    string
		checkpointFlag  string
	)
	flag.StringVar(&rpcFlag, "rpc", "", "Polygon RPC URL (default: POLYGON_RPC_URL)")
	flag.BoolVar(&enableTrading, "enable-trading", !cfg.DryRun, "Actually place orders (default is dry-run)")
	flag.Float64Var(&maxNotionalFlag, "max-notional", cfg.MaxOrderNotional, "USDC cap per order")
	flag.Float64Var(&minEdgeFlag, "min-edge", cfg.MinEdge, "Minimum edge (1 - ask) to act on")
	flag.IntVar(&pollSecFlag, "poll", int(cfg.PollInterval/time.Second), "Poll interval in seconds")
	flag.StringVar(&tradeLogFlag, "out", cfg.TradeLogPath, "Trade log path (JSONL)")
	flag.StringVar(&checkpointFlag, "checkpoint", cfg.CheckpointPath, "Checkpoint file for scan resume")
	flag.Parse()

	if rpcFlag != "" {
		cfg.PolygonRPC = rpcFlag
	}
	cfg.DryRun = !enableTrading
	cfg.MaxOrderNotional = maxNotionalFlag
	cfg.MinEdge = minEdgeFlag
	if pollSecFlag > 0 {
		cfg.PollInterval = time.Duration(pollSecFlag) * time.Second
	}
	cfg.TradeLogPath = tradeLogFlag
	cfg.CheckpointPath = checkpointFlag

	if err := cfg.Validate(); err != nil {
		log.Fatalf("[fatal] %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	ethClient, err := ethclient.DialContext(ctx, cfg.PolygonRPC)
	if err != nil {
		log.Fatalf("[fatal] dial polygon rpc: %v", err)
	}
	defer ethClient.Close()

	oracleAddr := common.HexToAddress(cfg.OracleAddress)
	scanner := oracle.NewScanner(ethClient, oracleAddr)

	gammaClient, err := gamma.NewClient(cfg.GammaHost)
	if err != nil {
		log.Fatalf("[fatal] gamma client: %v", err)
	}

	clobClient, err := buildClobClient(ctx, cfg)
	if err != nil {
		log.Fatalf("[fatal] clob client: %v", err)
	}

	trader := trading.NewService(clobClient, cfg.DryRun)
	analyzer := book.NewAnalyzer(clobClient)
	generator := tradesignal.NewGenerator(gammaClient, analyzer, cfg.MinEdge)
	validator := risk.NewValidator(risk.Limits{
		MinConfidence: cfg.MinConfidence,
		MinEdge:       cfg.MinEdge,
	})

	tradeLog := jsonl.New(cfg.TradeLogPath)
	if tradeLog != nil {
		log.Printf("Trade log: %s (JSONL)", tradeLog.Path())
		defer func() {
			if err := tradeLog.Close(); err != nil {
				log.Printf("[warn] trade log close: %v", err)
			}
		}()
	}

	agent := exec.NewAgent(trader, tradeLog, cfg.MaxOrderNotional)

	mode := "dry-run"
	if !cfg.DryRun {
		mode = "live"
	}
	log.Printf("UMA settlement watcher (mode=%s oracle=%s chain=%d)", mode, oracleAddr.Hex(), cfg.ChainID)
	log.Printf("Limits: max_notional=%.2f min_edge=%.4f min_confidence=%.2f", cfg.MaxOrderNotional, cfg.MinEdge, cfg.MinConfidence)

	watcher := strategy.NewWatcher(scanner, generator, validator, agent, strategy.Options{
		ChainID:        cfg.ChainID,
		OracleAddress:  oracleAddr.Hex(),
		PollInterval:   cfg.PollInterval,
		WarmupBlocks:   cfg.WarmupBlocks,
		CheckpointPath: cfg.CheckpointPath,
	})
	if err := watcher.Run(ctx); err != nil {
		log.Fatalf("[fatal] %v", err)
	}
	log.Printf("Shutting down…")
}

// buildClobClient wires the CLOB client from config. Without a private key
// the client is read-only, which is all dry-run needs. Live mode also needs
// L2 API creds: explicit ones from the environment if present, otherwise
// derived from the key.
func buildClobClient(ctx context.Context, cfg config.Config) (*clob.Client, error) {
	var pk *ecdsa.PrivateKey
	if cfg.PrivateKeyHex != "" {
		var err error
		pk, err = crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKeyHex, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid PRIVATE_KEY: %w", err)
		}
	}

	var funder common.Address
	if cfg.FunderAddress != "" {
		if !common.IsHexAddress(cfg.FunderAddress) {
			return nil, fmt.Errorf("invalid FUNDER_ADDRESS %q", cfg.FunderAddress)
		}
		funder = common.HexToAddress(cfg.FunderAddress)
	}

	client, err := clob.NewClient(cfg.ClobHost, cfg.ChainID, pk, funder, cfg.SignatureType)
	if err != nil {
		return nil, err
	}

	if cfg.APIKey != "" && cfg.APISecret != "" && cfg.APIPassphrase != "" {
		client.SetApiCreds(clob.ApiKeyCreds{Key: cfg.APIKey, Secret: cfg.APISecret, Passphrase: cfg.APIPassphrase})
	} else if pk != nil && !cfg.DryRun {
		creds, err := client.CreateOrDeriveApiKey(ctx, 0, true)
		if err != nil {
			return nil, fmt.Errorf("create/derive api key: %w", err)
		}
		client.SetApiCreds(creds)
		log.Printf("CLOB API creds ready (key=%s…)", safePrefix(creds.Key, 8))
	}
	return client, nil
}

func safePrefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
