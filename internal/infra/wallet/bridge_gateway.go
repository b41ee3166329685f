// File: internal/infra/wallet/bridge_gateway.go
package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"marketplace-spotlight/internal/domain/ports/adapter"
)

var _ adapter.WalletGateway = (*BridgeGateway)(nil)

// BridgeGateway talks to the wallet-signing collaborator: it hands over an
// address and exact amount and gets back the broadcast transaction hash.
// The signing flow itself (key custody, user confirmation) is opaque here.
type BridgeGateway struct {
	baseURL string
	client  *http.Client
}

func NewBridgeGateway(baseURL string) (*BridgeGateway, error) {
	if baseURL == "" {
		return nil, errors.New("bridge url empty")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid bridge url: %w", err)
	}
	return &BridgeGateway{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (g *BridgeGateway) Name() string { return "wallet-bridge" }

func (g *BridgeGateway) Broadcast(ctx context.Context, address string, amountMinorUnits int64) (string, error) {
	payload := map[string]any{
		"address": address,
		"amount":  amountMinorUnits,
	}
	b, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/broadcast", bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out struct {
		TxHash string `json:"tx_hash"`
		Error  string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK || out.TxHash == "" {
		if out.Error != "" {
			return "", fmt.Errorf("wallet bridge: %s", out.Error)
		}
		return "", fmt.Errorf("wallet bridge status %d", resp.StatusCode)
	}
	return out.TxHash, nil
}
