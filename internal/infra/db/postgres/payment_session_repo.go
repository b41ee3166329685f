package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"marketplace-spotlight/internal/domain"
	"marketplace-spotlight/internal/domain/model"
	"marketplace-spotlight/internal/domain/ports/repository"
)

var _ repository.PaymentSessionRepository = (*paymentSessionRepo)(nil)

type paymentSessionRepo struct{ pool *pgxpool.Pool }

func NewPaymentSessionRepo(pool *pgxpool.Pool) *paymentSessionRepo {
	return &paymentSessionRepo{pool: pool}
}

const sessionColumns = `id, request_id, address, expected_minor, status, tx_hash, created_at, updated_at`

func scanSession(row pgx.Row) (*model.PaymentSession, error) {
	s := &model.PaymentSession{}
	var status string
	if err := row.Scan(&s.ID, &s.RequestID, &s.Address, &s.ExpectedAmountMinorUnits, &status, &s.TxHash, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	s.Status = model.SessionStatus(status)
	return s, nil
}

func (r *paymentSessionRepo) Save(ctx context.Context, tx repository.Tx, s *model.PaymentSession) error {
	const q = `
INSERT INTO payment_sessions (` + sessionColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
  status=$5, tx_hash=$6, updated_at=$8;`
	_, err := execSQL(ctx, r.pool, tx, q, s.ID, s.RequestID, s.Address, s.ExpectedAmountMinorUnits, string(s.Status), s.TxHash, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *paymentSessionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PaymentSession, error) {
	q := `SELECT ` + sessionColumns + ` FROM payment_sessions WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", id)
	if err != nil {
		return nil, err
	}
	return scanSession(row)
}

func (r *paymentSessionRepo) FindCurrentByRequest(ctx context.Context, tx repository.Tx, requestID string) (*model.PaymentSession, error) {
	q := `SELECT ` + sessionColumns + ` FROM payment_sessions WHERE request_id=$1 AND status <> 'expired'`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", requestID)
	if err != nil {
		return nil, err
	}
	return scanSession(row)
}

func (r *paymentSessionRepo) FindLatestByRequest(ctx context.Context, tx repository.Tx, requestID string) (*model.PaymentSession, error) {
	const q = `SELECT ` + sessionColumns + ` FROM payment_sessions WHERE request_id=$1 ORDER BY created_at DESC LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, requestID)
	if err != nil {
		return nil, err
	}
	return scanSession(row)
}

func (r *paymentSessionRepo) MarkConfirmed(ctx context.Context, tx repository.Tx, id, txHash string) (bool, error) {
	const q = `UPDATE payment_sessions SET status='confirmed', tx_hash=$2, updated_at=NOW() WHERE id=$1 AND status <> 'confirmed';`
	tag, err := execSQL(ctx, r.pool, tx, q, id, txHash)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return tag.RowsAffected() == 1, nil
}

func (r *paymentSessionRepo) MarkExpiredByRequest(ctx context.Context, tx repository.Tx, requestID string) error {
	const q = `UPDATE payment_sessions SET status='expired', updated_at=NOW() WHERE request_id=$1 AND status='awaiting';`
	_, err := execSQL(ctx, r.pool, tx, q, requestID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *paymentSessionRepo) ListAwaitingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.PaymentSession, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + sessionColumns + ` FROM payment_sessions WHERE status='awaiting' AND created_at < $1 ORDER BY created_at ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, olderThan, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.PaymentSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
