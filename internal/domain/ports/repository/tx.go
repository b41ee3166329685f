package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

// TransactionManager provides a thin abstraction to execute a function within a
// database transaction, passing the underlying transaction handle via `tx`.
//
// Keeping the tx handle opaque keeps use-case interfaces clean: repository
// methods accept a `Tx` and detect a live transaction implementation-side
// (e.g. to add SELECT ... FOR UPDATE). Repositories MUST gracefully accept a
// nil tx (non-transactional path).
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
