package clob

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// OrderInfo mirrors the /data/order/<order_hash> response payload.
type OrderInfo struct {
	ID               string   `json:"id"`
	Status           string   `json:"status"`
	Market           string   `json:"market"`
	AssetID          string   `json:"asset_id"`
	Side             string   `json:"side"`
	Price            string   `json:"price"`
	OriginalSize     string   `json:"original_size"`
	SizeMatched      string   `json:"size_matched"`
	AssociatedTrades []string `json:"associate_trades"`
	Type             string   `json:"type"`
	OrderType        string   `json:"order_type"`
}

type orderInfoResp struct {
	Order *OrderInfo `json:"order"`
}

type cancelOrderReq struct {
	OrderID string `json:"orderID"`
}

// OpenOrderParams filters OpenOrders. Empty fields are omitted.
type OpenOrderParams struct {
	Market  string // condition id
	AssetID string // outcome token id
}

// OpenOrders lists the account's resting orders, optionally filtered by
// market or outcome token.
func (c *Client) OpenOrders(ctx context.Context, params OpenOrderParams, useServerTime bool) ([]OrderInfo, error) {
	if !c.HasApiCreds() {
		return nil, fmt.Errorf("api creds not configured")
	}

	q := url.Values{}
	if params.Market != "" {
		q.Set("market", params.Market)
	}
	if params.AssetID != "" {
		q.Set("asset_id", params.AssetID)
	}

	path := "/data/orders"
	signedPath := path
	if len(q) > 0 {
		signedPath = path + "?" + q.Encode()
	}

	ts, err := c.timestampForAuth(ctx, useServerTime)
	if err != nil {
		return nil, err
	}
	headers, err := c.l2Headers(ts, http.MethodGet, signedPath, nil)
	if err != nil {
		return nil, err
	}

	var resp []OrderInfo
	if err := c.doJSON(ctx, http.MethodGet, signedPath, nil, headers, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetOrder fetches a single order by ID/hash.
func (c *Client) GetOrder(ctx context.Context, orderID string, useServerTime bool) (*OrderInfo, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, fmt.Errorf("order id required")
	}
	if !c.HasApiCreds() {
		return nil, fmt.Errorf("api creds not configured")
	}

	path := "/data/order/" + orderID
	ts, err := c.timestampForAuth(ctx, useServerTime)
	if err != nil {
		return nil, err
	}
	headers, err := c.l2Headers(ts, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var resp orderInfoResp
	if err := c.doJSON(ctx, http.MethodGet, path, nil, headers, &resp); err != nil {
		return nil, err
	}
	if resp.Order == nil {
		return nil, fmt.Errorf("order missing in response")
	}
	return resp.Order, nil
}

// CancelOrder submits a cancel request for a single order ID/hash.
func (c *Client) CancelOrder(ctx context.Context, orderID string, useServerTime bool) (map[string]any, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, fmt.Errorf("order id required")
	}
	if !c.HasApiCreds() {
		return nil, fmt.Errorf("api creds not configured")
	}

	body, err := json.Marshal(cancelOrderReq{OrderID: orderID})
	if err != nil {
		return nil, fmt.Errorf("marshal cancel order: %w", err)
	}

	path := "/order"
	ts, err := c.timestampForAuth(ctx, useServerTime)
	if err != nil {
		return nil, err
	}
	headers, err := c.l2Headers(ts, http.MethodDelete, path, body)
	if err != nil {
		return nil, err
	}

	var resp map[string]any
	if err := c.doJSONBody(ctx, http.MethodDelete, path, nil, headers, body, &resp); err != nil {
		return resp, err
	}
	return resp, nil
}
