package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Default endpoints and contract addresses (Polygon mainnet).
const (
	DefaultClobHost    = "https://clob.polymarket.com"
	DefaultGammaHost   = "https://gamma-api.polymarket.com"
	DefaultMarketWsURL = "wss://ws-subscriptions-clob.polymarket.com/ws/market"

	// Optimistic Oracle V3 used by Polymarket's UMA resolutions.
	DefaultOracleAddress = "0x5953c82c114cbab00fa446A3bbDB2D4B663f73B3"

	DefaultChainID = 137
)

// Config holds every knob the bot reads. It is built once at startup and
// passed into component constructors; nothing reads ambient globals.
type Config struct {
	PolygonRPC    string
	OracleAddress string
	ChainID       int64

	ClobHost    string
	GammaHost   string
	MarketWsURL string

	PrivateKeyHex string
	FunderAddress string
	SignatureType int // 0=EOA, 1=POLY_PROXY, 2=POLY_GNOSIS_SAFE

	APIKey        string
	APISecret     string
	APIPassphrase string

	// DryRun forces the trading transport into simulate-only mode even when
	// credentials are present. Defaults on for safety.
	DryRun bool

	MaxOrderNotional float64 // USDC cap per order
	MinEdge          float64
	MinConfidence    float64

	PollInterval time.Duration
	WarmupBlocks uint64

	TradeLogPath   string
	CheckpointPath string
}

// Default returns the baseline configuration before env merging.
func Default() Config {
	return Config{
		OracleAddress:    DefaultOracleAddress,
		ChainID:          DefaultChainID,
		ClobHost:         DefaultClobHost,
		GammaHost:        DefaultGammaHost,
		MarketWsURL:      DefaultMarketWsURL,
		DryRun:           true,
		MaxOrderNotional: 10,
		MinEdge:          0.02,
		MinConfidence:    0.60,
		PollInterval:     15 * time.Second,
		WarmupBlocks:     100,
		TradeLogPath:     "./out/trades.jsonl",
	}
}

// FromEnv merges environment overrides onto the defaults.
func FromEnv() Config {
	c := Default()

	if v := strings.TrimSpace(os.Getenv("POLYGON_RPC_URL")); v != "" {
		c.PolygonRPC = v
	}
	if v := strings.TrimSpace(os.Getenv("OOV3_ADDRESS")); v != "" {
		c.OracleAddress = v
	}
	if v := strings.TrimSpace(os.Getenv("CLOB_API_URL")); v != "" {
		c.ClobHost = v
	}
	if v := strings.TrimSpace(os.Getenv("GAMMA_API_URL")); v != "" {
		c.GammaHost = v
	}
	if v := strings.TrimSpace(os.Getenv("MARKET_WS_URL")); v != "" {
		c.MarketWsURL = v
	}

	c.PrivateKeyHex = strings.TrimSpace(os.Getenv("PRIVATE_KEY"))
	c.FunderAddress = strings.TrimSpace(os.Getenv("FUNDER_ADDRESS"))
	if v := strings.TrimSpace(os.Getenv("SIGNATURE_TYPE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.SignatureType = n
		}
	}

	c.APIKey = strings.TrimSpace(os.Getenv("CLOB_API_KEY"))
	c.APISecret = strings.TrimSpace(os.Getenv("CLOB_SECRET"))
	c.APIPassphrase = strings.TrimSpace(os.Getenv("CLOB_PASSPHRASE"))

	if v := strings.TrimSpace(os.Getenv("DRY_RUN")); v != "" {
		c.DryRun = v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes")
	}

	if v := strings.TrimSpace(os.Getenv("MAX_ORDER_SIZE")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			c.MaxOrderNotional = f
		}
	}
	if v := strings.TrimSpace(os.Getenv("MIN_EDGE")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			c.MinEdge = f
		}
	}
	if v := strings.TrimSpace(os.Getenv("MIN_CONFIDENCE")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			c.MinConfidence = f
		}
	}
	if v := strings.TrimSpace(os.Getenv("POLL_INTERVAL_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.PollInterval = time.Duration(n) * time.Second
		}
	}
	if v := strings.TrimSpace(os.Getenv("WARMUP_BLOCKS")); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			c.WarmupBlocks = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("TRADE_LOG")); v != "" {
		c.TradeLogPath = v
	}
	if v := strings.TrimSpace(os.Getenv("CHECKPOINT_FILE")); v != "" {
		c.CheckpointPath = v
	}

	return c
}

// HasCredentials reports whether order signing is possible. Without
// credentials the execution agent runs dry only.
func (c Config) HasCredentials() bool {
	return c.PrivateKeyHex != ""
}

// Validate checks fields the strategy loop depends on. Credential format
// checking is left to the signing layer.
func (c Config) Validate() error {
	if strings.TrimSpace(c.PolygonRPC) == "" {
		return fmt.Errorf("polygon rpc url required (POLYGON_RPC_URL)")
	}
	if strings.TrimSpace(c.OracleAddress) == "" {
		return fmt.Errorf("oracle address required")
	}
	if c.MaxOrderNotional <= 0 {
		return fmt.Errorf("max order notional must be > 0")
	}
	if c.MinEdge < 0 {
		return fmt.Errorf("min edge must be >= 0")
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("min confidence must be in [0,1]")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be > 0")
	}
	if c.SignatureType < 0 || c.SignatureType > 2 {
		return fmt.Errorf("signature type must be 0, 1, or 2 (got %d)", c.SignatureType)
	}
	return nil
}
