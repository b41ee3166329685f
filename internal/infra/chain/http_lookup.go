// File: internal/infra/chain/http_lookup.go
package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"marketplace-spotlight/internal/domain"
	"marketplace-spotlight/internal/domain/ports/adapter"
)

var _ adapter.ChainLookup = (*HTTPLookup)(nil)

// HTTPLookup queries the chain indexer's REST surface for a transaction to an
// address with an exact amount. Transient failures are retried with
// exponential backoff inside the per-call timeout budget; exhausting retries
// surfaces as domain.ErrVerificationUnavailable, never as not-found.
type HTTPLookup struct {
	baseURL    string
	client     *http.Client
	maxRetries int
}

func NewHTTPLookup(baseURL string, timeout time.Duration, maxRetries int) (*HTTPLookup, error) {
	if baseURL == "" {
		return nil, errors.New("lookup base url empty")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid lookup url: %w", err)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &HTTPLookup{
		baseURL:    baseURL,
		client:     &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
	}, nil
}

func (l *HTTPLookup) FindTransaction(ctx context.Context, address string, amountMinorUnits int64, since time.Time) (string, error) {
	endpoint := fmt.Sprintf("%s/v1/addresses/%s/transactions?amount=%s&since=%s",
		l.baseURL,
		url.PathEscape(address),
		strconv.FormatInt(amountMinorUnits, 10),
		url.QueryEscape(since.UTC().Format(time.RFC3339)),
	)

	backoff := time.Second
	var lastErr error
	for attempt := 0; attempt < l.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", domain.ErrVerificationUnavailable
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		txHash, err := l.fetch(ctx, endpoint)
		if err == nil {
			return txHash, nil
		}
		if errors.Is(err, domain.ErrTxNotFound) {
			return "", domain.ErrTxNotFound
		}
		lastErr = err
	}
	return "", fmt.Errorf("%w: %v", domain.ErrVerificationUnavailable, lastErr)
}

func (l *HTTPLookup) fetch(ctx context.Context, endpoint string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return "", domain.ErrTxNotFound
	default:
		return "", fmt.Errorf("lookup status %d", resp.StatusCode)
	}

	var out struct {
		TxHash string `json:"tx_hash"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.TxHash == "" {
		return "", domain.ErrTxNotFound
	}
	return out.TxHash, nil
}
