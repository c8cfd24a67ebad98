// Package quote prices slices against an external aggregation API. The
// core never invents a fallback price: if every endpoint fails, the
// affected slice fails.
package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/ohsung/twapkit/pkg/crypto"
)

// ErrNoQuote means every candidate endpoint was exhausted without a
// usable price.
var ErrNoQuote = errors.New("no quote available")

// candidatePaths are tried in order; the first success short-circuits.
// The aggregation API has shipped under several path layouts, so the
// client probes the known ones rather than pinning a single URL shape.
var candidatePaths = []string{
	"/quote",
	"/v6.0/quote",
	"/swap/v6.0/quote",
}

type quoteResponse struct {
	DstAmount string `json:"dstAmount"`
	// Older deployments use toAmount/toTokenAmount for the same field.
	ToAmount      string `json:"toAmount"`
	ToTokenAmount string `json:"toTokenAmount"`
}

func (r *quoteResponse) amount() string {
	switch {
	case r.DstAmount != "":
		return r.DstAmount
	case r.ToAmount != "":
		return r.ToAmount
	default:
		return r.ToTokenAmount
	}
}

// Client fetches quotes over HTTP. Satisfies twap.QuoteFunc via Quote.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *zap.SugaredLogger
}

// New creates a quote client. apiKey may be empty for keyless endpoints;
// logger may be nil.
func New(baseURL, apiKey string, logger *zap.SugaredLogger) *Client {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
		log:     logger,
	}
}

// Quote returns how much takerAsset makingAmount of makerAsset is worth
// right now. Candidate endpoint paths are tried in order; the first
// parseable response wins.
func (c *Client) Quote(ctx context.Context, makerAsset, takerAsset common.Address, makingAmount *big.Int) (*big.Int, error) {
	params := url.Values{}
	params.Set("src", crypto.ChecksumAddress(makerAsset.Bytes()))
	params.Set("dst", crypto.ChecksumAddress(takerAsset.Bytes()))
	params.Set("amount", makingAmount.String())

	var lastErr error
	for _, path := range candidatePaths {
		amount, err := c.fetch(ctx, c.baseURL+path+"?"+params.Encode())
		if err == nil {
			return amount, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.log.Debugw("quote_endpoint_failed", "path", path, "err", err)
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %v", ErrNoQuote, lastErr)
}

func (c *Client) fetch(ctx context.Context, fullURL string) (*big.Int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var parsed quoteResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("invalid quote response: %w", err)
	}

	raw := parsed.amount()
	if raw == "" {
		return nil, fmt.Errorf("quote response missing amount field")
	}
	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok || amount.Sign() <= 0 {
		return nil, fmt.Errorf("unparseable quote amount: %q", raw)
	}
	return amount, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
