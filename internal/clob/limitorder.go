package clob

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strconv"

	orderbuilder "github.com/polymarket/go-order-utils/pkg/builder"
	ordermodel "github.com/polymarket/go-order-utils/pkg/model"
)

const zeroAddressHex = "0x0000000000000000000000000000000000000000"

// OrderResult carries a signed order plus the effective price and tick size
// it was built against.
type OrderResult struct {
	SignedOrder *ordermodel.SignedOrder
	Price       string
	TickSize    string
}

type signedOrderPayload struct {
	DeferExec bool      `json:"deferExec"`
	Order     orderJSON `json:"order"`
	Owner     string    `json:"owner"`
	OrderType OrderType `json:"orderType"`
}

type orderJSON struct {
	Salt          int64  `json:"salt"`
	Maker         string `json:"maker"`
	Signer        string `json:"signer"`
	Taker         string `json:"taker"`
	TokenID       string `json:"tokenId"`
	MakerAmount   string `json:"makerAmount"`
	TakerAmount   string `json:"takerAmount"`
	Expiration    string `json:"expiration"`
	Nonce         string `json:"nonce"`
	FeeRateBps    string `json:"feeRateBps"`
	Side          Side   `json:"side"`
	SignatureType int    `json:"signatureType"`
	Signature     string `json:"signature"`
}

// The CLOB API caps limit-order size precision at 2 decimals.
const limitOrderSizeDecimals = 2

// computeLimitOrderAmounts derives on-chain maker/taker amounts for a limit
// order at priceTicks (price in ticks of 1/priceScale) and sizeUnits (shares,
// 1e6 scale). The size is floored to the allowed precision; collateral is
// truncated so the order never pays more than price*size.
func computeLimitOrderAmounts(side Side, sizeUnits, priceTicks, priceScale *big.Int) (maker, taker *big.Int, err error) {
	if sizeUnits == nil || sizeUnits.Sign() <= 0 {
		return nil, nil, fmt.Errorf("size must be > 0")
	}
	if priceTicks == nil || priceTicks.Sign() <= 0 {
		return nil, nil, fmt.Errorf("price must be > 0")
	}
	if priceScale == nil || priceScale.Sign() <= 0 {
		return nil, nil, fmt.Errorf("priceScale must be > 0")
	}

	shares := roundDownUnits(sizeUnits, limitOrderSizeDecimals)
	if shares == nil || shares.Sign() <= 0 {
		return nil, nil, fmt.Errorf("size rounds to 0 at %d decimals", limitOrderSizeDecimals)
	}

	collateral := new(big.Int).Mul(shares, priceTicks)
	collateral.Div(collateral, priceScale)
	if collateral.Sign() <= 0 {
		return nil, nil, fmt.Errorf("collateral amount rounds to 0")
	}

	switch side {
	case SideBuy:
		// BUY: maker = collateral spent, taker = shares received.
		return collateral, shares, nil
	case SideSell:
		// SELL: maker = shares sold, taker = collateral received.
		return shares, collateral, nil
	default:
		return nil, nil, fmt.Errorf("invalid side %q", side)
	}
}

// CreateSignedLimitOrder builds and signs a GTC-style limit order. price and
// size are decimal strings; price must lie strictly inside (0, 1) at the
// market's tick precision.
func (c *Client) CreateSignedLimitOrder(
	ctx context.Context,
	tokenID string,
	side Side,
	price string,
	size string,
	saltGenerator func() int64,
) (*OrderResult, error) {
	if c.privateKey == nil {
		return nil, fmt.Errorf("signing key not configured")
	}

	tickSize, err := c.GetTickSize(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	scale, priceDecimals, err := tickScaleFromTickSize(tickSize)
	if err != nil {
		return nil, err
	}

	priceTicks, err := parseDecimalToUnits(price, priceDecimals)
	if err != nil {
		return nil, fmt.Errorf("parse price %q: %w", price, err)
	}
	if priceTicks.Sign() <= 0 || priceTicks.Cmp(scale) >= 0 {
		return nil, fmt.Errorf("price %q outside (0, 1) at tick %s", price, tickSize)
	}

	sizeUnits, err := parseDecimalToUnits(size, collateralTokenDecimals)
	if err != nil {
		return nil, fmt.Errorf("parse size %q: %w", size, err)
	}

	makerAmount, takerAmount, err := computeLimitOrderAmounts(side, sizeUnits, priceTicks, scale)
	if err != nil {
		return nil, err
	}

	feeBps, err := c.GetFeeRateBps(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	negRisk, err := c.GetNegRisk(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	contract := ordermodel.CTFExchange
	if negRisk {
		contract = ordermodel.NegRiskCTFExchange
	}

	var sideEnum ordermodel.Side
	switch side {
	case SideBuy:
		sideEnum = ordermodel.BUY
	case SideSell:
		sideEnum = ordermodel.SELL
	default:
		return nil, fmt.Errorf("invalid side %q", side)
	}

	od := &ordermodel.OrderData{
		Maker:         c.funder.Hex(),
		Taker:         zeroAddressHex,
		TokenId:       tokenID,
		MakerAmount:   makerAmount.String(),
		TakerAmount:   takerAmount.String(),
		FeeRateBps:    strconv.Itoa(feeBps),
		Nonce:         "0",
		Signer:        c.signer.Hex(),
		Expiration:    "0",
		Side:          sideEnum,
		SignatureType: ordermodel.SignatureType(c.signatureTy),
	}

	signed, err := signOrder(c.chainID, c.privateKey, od, contract, saltGenerator)
	if err != nil {
		return nil, err
	}
	return &OrderResult{
		SignedOrder: signed,
		Price:       formatDecimalUnits(priceTicks, priceDecimals),
		TickSize:    tickSize,
	}, nil
}

func signOrder(chainID int64, pk *ecdsa.PrivateKey, od *ordermodel.OrderData, contract ordermodel.VerifyingContract, saltGen func() int64) (*ordermodel.SignedOrder, error) {
	b := orderbuilder.NewExchangeOrderBuilderImpl(big.NewInt(chainID), saltGen)
	return b.BuildSignedOrder(pk, od, contract)
}

// PostSignedOrder submits a signed order. Requires L2 API creds.
func (c *Client) PostSignedOrder(
	ctx context.Context,
	order *ordermodel.SignedOrder,
	orderType OrderType,
	useServerTime bool,
) (map[string]any, error) {
	if order == nil {
		return nil, fmt.Errorf("order required")
	}

	body, err := c.BuildPostOrderBody(order, orderType)
	if err != nil {
		return nil, err
	}

	ts, err := c.timestampForAuth(ctx, useServerTime)
	if err != nil {
		return nil, err
	}
	headers, err := c.l2Headers(ts, http.MethodPost, "/order", body)
	if err != nil {
		return nil, err
	}

	var resp map[string]any
	if err := c.doJSONBody(ctx, http.MethodPost, "/order", nil, headers, body, &resp); err != nil {
		return resp, err
	}
	return resp, nil
}

// BuildPostOrderBody renders the signed order into the /order request shape.
func (c *Client) BuildPostOrderBody(order *ordermodel.SignedOrder, orderType OrderType) ([]byte, error) {
	if order == nil {
		return nil, fmt.Errorf("order required")
	}
	c.mu.RLock()
	creds := c.creds
	c.mu.RUnlock()

	owner := ""
	if creds != nil {
		owner = creds.Key
	}

	payload := signedOrderPayload{
		Owner:     owner,
		OrderType: orderType,
		Order: orderJSON{
			Salt:          order.Salt.Int64(),
			Maker:         order.Maker.Hex(),
			Signer:        order.Signer.Hex(),
			Taker:         order.Taker.Hex(),
			TokenID:       order.TokenId.String(),
			MakerAmount:   order.MakerAmount.String(),
			TakerAmount:   order.TakerAmount.String(),
			Expiration:    order.Expiration.String(),
			Nonce:         order.Nonce.String(),
			FeeRateBps:    order.FeeRateBps.String(),
			Side:          sideToString(order.Side),
			SignatureType: int(order.SignatureType.Int64()),
			Signature:     "0x" + fmt.Sprintf("%x", order.Signature),
		},
	}
	return json.Marshal(payload)
}

func sideToString(v *big.Int) Side {
	if v == nil {
		return SideBuy
	}
	if v.Int64() == int64(ordermodel.SELL) {
		return SideSell
	}
	return SideBuy
}
