package adapter

import (
	"context"
	"time"
)

// ChainLookup is the read-only view of the chain indexer. FindTransaction
// returns the hash of a transaction to `address` whose amount equals
// `amountMinorUnits` exactly and which landed at or after `since`.
//
// It distinguishes "definitely no match" (domain.ErrTxNotFound) from
// "could not determine" (domain.ErrVerificationUnavailable); callers must
// never treat the latter as not-found, or a slow indexer would cause false
// expiries.
type ChainLookup interface {
	FindTransaction(ctx context.Context, address string, amountMinorUnits int64, since time.Time) (txHash string, err error)
}
