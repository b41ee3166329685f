package wallet

import (
	"context"
	"fmt"
	"sync"

	"marketplace-spotlight/internal/domain/ports/adapter"
)

var _ adapter.WalletGateway = (*NoopGateway)(nil)

// NoopGateway is a simple in-memory gateway for dev mode and tests.
type NoopGateway struct {
	mu  sync.Mutex
	seq int64
}

func NewNoopGateway() *NoopGateway { return &NoopGateway{} }

func (g *NoopGateway) Name() string { return "noop" }

func (g *NoopGateway) Broadcast(ctx context.Context, address string, amountMinorUnits int64) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("noop-tx-%d", g.seq), nil
}
