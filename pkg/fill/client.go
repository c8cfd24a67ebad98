// Package fill submits signed orders to the external limit-order API.
// Settlement, signature validation, and MEV protection are the protocol's
// problem; this client only delivers the payload and reports the outcome.
package fill

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ohsung/twapkit/pkg/order"
	"github.com/ohsung/twapkit/pkg/twap"
)

// submitResponse is the API's acknowledgement of an order submission.
// Success is a pointer because some deployments omit the field entirely
// and signal acceptance with the status code alone.
type submitResponse struct {
	Success   *bool  `json:"success"`
	OrderHash string `json:"orderHash"`
	Reference string `json:"reference"`
	Message   string `json:"message"`
}

// Client posts signed orders. Satisfies twap.FillFunc via Fill.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *zap.SugaredLogger
}

// New creates a fill client. The per-slice timeout comes from the
// scheduler's context, not from here, so the embedded http.Client carries
// only a generous safety net.
func New(baseURL, apiKey string, logger *zap.SugaredLogger) *Client {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 2 * time.Minute},
		log:     logger,
	}
}

// Fill submits one signed order. Every failure mode collapses into an
// unsuccessful FillResult; the scheduler does not distinguish transport
// errors from rejections, and neither is retried.
func (c *Client) Fill(ctx context.Context, signed *order.SignedOrder) twap.FillResult {
	payload, err := signed.Serialize()
	if err != nil {
		return twap.FillResult{Err: fmt.Errorf("serialize order: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/order", bytes.NewReader(payload))
	if err != nil {
		return twap.FillResult{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return twap.FillResult{Err: fmt.Errorf("submit order: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return twap.FillResult{Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return twap.FillResult{Err: fmt.Errorf("status %d: %s", resp.StatusCode, string(body))}
	}

	var parsed submitResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return twap.FillResult{Err: fmt.Errorf("invalid submit response: %w", err)}
	}
	if parsed.Success != nil && !*parsed.Success {
		msg := parsed.Message
		if msg == "" {
			msg = "order rejected"
		}
		return twap.FillResult{Err: fmt.Errorf("rejected: %s", msg)}
	}

	reference := parsed.Reference
	if reference == "" {
		reference = parsed.OrderHash
	}
	if reference == "" {
		// The API acked without an identifier; fall back to our own hash
		// so the execution log always carries a reference.
		reference = signed.OrderHash.Hex()
	}

	c.log.Infow("order_submitted", "order_hash", signed.OrderHash.Hex(), "reference", reference)
	return twap.FillResult{Success: true, Reference: reference}
}
