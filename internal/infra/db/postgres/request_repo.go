package postgres

import (
	"errors"
	"time"

	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"marketplace-spotlight/internal/domain"
	"marketplace-spotlight/internal/domain/model"
	"marketplace-spotlight/internal/domain/ports/repository"
)

var _ repository.RequestRepository = (*requestRepo)(nil)

type requestRepo struct{ pool *pgxpool.Pool }

func NewRequestRepo(pool *pgxpool.Pool) *requestRepo {
	return &requestRepo{pool: pool}
}

const requestColumns = `id, project_id, requester_id, status, start_date, end_date, duration_days, price_minor, is_free_promo, hero_image_url, message, admin_notes, approved_at, created_at, updated_at`

// terminalStatuses is inlined in WHERE clauses that exclude history rows.
const nonTerminalFilter = `status NOT IN ('rejected','completed','cancelled','expired')`

// holdFilter matches statuses that forbid a new overlapping approval.
const holdFilter = `status IN ('approved','paid','active')`

func scanRequest(row pgx.Row) (*model.SpotlightRequest, error) {
	r := &model.SpotlightRequest{}
	var status string
	var priceMinor int64
	var freePromo bool
	if err := row.Scan(&r.ID, &r.ProjectID, &r.RequesterID, &status, &r.StartDate, &r.EndDate, &r.DurationDays, &priceMinor, &freePromo, &r.HeroImageURL, &r.Message, &r.AdminNotes, &r.ApprovedAt, &r.CreatedAt, &r.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	r.Status = model.RequestStatus(status)
	if freePromo {
		r.Terms = model.FreePromotion()
	} else {
		r.Terms = model.RequiresPayment(priceMinor)
	}
	r.StartDate = model.Day(r.StartDate)
	r.EndDate = model.Day(r.EndDate)
	return r, nil
}

func (r *requestRepo) Save(ctx context.Context, tx repository.Tx, req *model.SpotlightRequest) error {
	const q = `
INSERT INTO spotlight_requests (` + requestColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
ON CONFLICT (id) DO UPDATE SET
  status=$4, start_date=$5, end_date=$6, duration_days=$7, price_minor=$8,
  is_free_promo=$9, hero_image_url=$10, message=$11, admin_notes=$12,
  approved_at=$13, updated_at=$15;`
	_, err := execSQL(ctx, r.pool, tx, q,
		req.ID, req.ProjectID, req.RequesterID, string(req.Status),
		req.StartDate, req.EndDate, req.DurationDays,
		req.Terms.AmountMinorUnits, req.Terms.Free(),
		req.HeroImageURL, req.Message, req.AdminNotes,
		req.ApprovedAt, req.CreatedAt, req.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *requestRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SpotlightRequest, error) {
	q := `SELECT ` + requestColumns + ` FROM spotlight_requests WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", id)
	if err != nil {
		return nil, err
	}
	return scanRequest(row)
}

func (r *requestRepo) ListByProject(ctx context.Context, tx repository.Tx, projectID string) ([]*model.SpotlightRequest, error) {
	const q = `SELECT ` + requestColumns + ` FROM spotlight_requests WHERE project_id=$1 ORDER BY created_at DESC;`
	rows, err := queryRows(ctx, r.pool, tx, q, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRequests(rows)
}

func (r *requestRepo) ListByStatus(ctx context.Context, tx repository.Tx, statuses ...model.RequestStatus) ([]*model.SpotlightRequest, error) {
	ss := make([]string, len(statuses))
	for i, s := range statuses {
		ss[i] = string(s)
	}
	const q = `SELECT ` + requestColumns + ` FROM spotlight_requests WHERE status = ANY($1) ORDER BY created_at ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, ss)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRequests(rows)
}

func (r *requestRepo) ListNonTerminal(ctx context.Context, tx repository.Tx) ([]*model.SpotlightRequest, error) {
	const q = `SELECT ` + requestColumns + ` FROM spotlight_requests WHERE ` + nonTerminalFilter + ` ORDER BY created_at ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRequests(rows)
}

func (r *requestRepo) CountActive(ctx context.Context, tx repository.Tx) (int, error) {
	const q = `SELECT COUNT(*) FROM spotlight_requests WHERE status='active';`
	row, err := pickRow(ctx, r.pool, tx, q)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}

func (r *requestRepo) CountOverlappingHolds(ctx context.Context, tx repository.Tx, start, end time.Time, excludeID string) (int, error) {
	const q = `
SELECT COUNT(*) FROM spotlight_requests
WHERE ` + holdFilter + ` AND id <> $3 AND start_date <= $2 AND end_date >= $1;`
	row, err := pickRow(ctx, r.pool, tx, q, model.Day(start), model.Day(end), excludeID)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}

func (r *requestRepo) HasNonTerminalForProject(ctx context.Context, tx repository.Tx, projectID, excludeID string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM spotlight_requests WHERE project_id=$1 AND id <> $2 AND ` + nonTerminalFilter + `);`
	row, err := pickRow(ctx, r.pool, tx, q, projectID, excludeID)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, domain.ErrReadDatabaseRow
	}
	return exists, nil
}

// casUpdate runs a conditional status update and reports whether a row changed.
func (r *requestRepo) casUpdate(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (bool, error) {
	tag, err := execSQL(ctx, r.pool, tx, q, args...)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return tag.RowsAffected() == 1, nil
}

func (r *requestRepo) MarkApproved(ctx context.Context, tx repository.Tx, id string, terms model.PaymentTerms, approvedAt time.Time) (bool, error) {
	const q = `
UPDATE spotlight_requests
SET status='approved', price_minor=$2, is_free_promo=$3, approved_at=$4, updated_at=NOW()
WHERE id=$1 AND status='pending';`
	return r.casUpdate(ctx, tx, q, id, terms.AmountMinorUnits, terms.Free(), approvedAt)
}

func (r *requestRepo) MarkRejected(ctx context.Context, tx repository.Tx, id, notes string) (bool, error) {
	const q = `UPDATE spotlight_requests SET status='rejected', admin_notes=$2, updated_at=NOW() WHERE id=$1 AND status='pending';`
	return r.casUpdate(ctx, tx, q, id, notes)
}

func (r *requestRepo) MarkPaid(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	const q = `UPDATE spotlight_requests SET status='paid', updated_at=NOW() WHERE id=$1 AND status='approved';`
	return r.casUpdate(ctx, tx, q, id)
}

func (r *requestRepo) MarkActive(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	const q = `UPDATE spotlight_requests SET status='active', updated_at=NOW() WHERE id=$1 AND status='paid';`
	return r.casUpdate(ctx, tx, q, id)
}

func (r *requestRepo) MarkCompleted(ctx context.Context, tx repository.Tx, id string, endDate *time.Time) (bool, error) {
	const q = `
UPDATE spotlight_requests
SET status='completed', end_date=COALESCE($2, end_date), updated_at=NOW()
WHERE id=$1 AND status='active';`
	return r.casUpdate(ctx, tx, q, id, endDate)
}

func (r *requestRepo) MarkCancelled(ctx context.Context, tx repository.Tx, id, notes string) (bool, error) {
	const q = `UPDATE spotlight_requests SET status='cancelled', admin_notes=$2, updated_at=NOW() WHERE id=$1 AND status='paid';`
	return r.casUpdate(ctx, tx, q, id, notes)
}

func (r *requestRepo) MarkExpired(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	const q = `UPDATE spotlight_requests SET status='expired', updated_at=NOW() WHERE id=$1 AND status='approved' AND is_free_promo=FALSE;`
	return r.casUpdate(ctx, tx, q, id)
}

func (r *requestRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.RequestStatus]int, error) {
	const q = `SELECT status, COUNT(*) FROM spotlight_requests GROUP BY status;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[model.RequestStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out[model.RequestStatus(status)] = n
	}
	return out, rows.Err()
}

func collectRequests(rows pgx.Rows) ([]*model.SpotlightRequest, error) {
	var out []*model.SpotlightRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}
