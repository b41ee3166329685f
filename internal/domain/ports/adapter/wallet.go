package adapter

import "context"

// WalletGateway is the opaque "sign and broadcast" capability of the wallet
// collaborator. Broadcast returns the transaction hash once the wallet has
// broadcast a payment of exactly amountMinorUnits to address.
type WalletGateway interface {
	Name() string
	Broadcast(ctx context.Context, address string, amountMinorUnits int64) (txHash string, err error)
}
