// File: internal/usecase/payment_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"marketplace-spotlight/internal/domain"
	"marketplace-spotlight/internal/domain/model"
	"marketplace-spotlight/internal/domain/ports/adapter"
	"marketplace-spotlight/internal/domain/ports/repository"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

// Locker guards critical sections keyed by string; the redis implementation
// backs it in production, tests use an in-process stand-in.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// PaymentStatusView is the composite status served to polling UIs.
type PaymentStatusView struct {
	RequestID       string
	RequestStatus   model.RequestStatus
	Session         *model.PaymentSession
	PaymentDeadline *time.Time
}

// ReconcileResult reports the outcome of the manual late-payment path.
type ReconcileResult struct {
	RequestID string
	TxHash    string
	// LatePayment is true when funds arrived after the request expired; the
	// request stays expired and the amount needs manual follow-up.
	LatePayment bool
}

// PaymentUseCase produces a deterministic, idempotent payment target per
// request and matches incoming chain transactions back to requests.
type PaymentUseCase interface {
	// GetOrCreateSession returns the existing non-expired session for the
	// request or creates exactly one. Safe against concurrent duplicate calls.
	GetOrCreateSession(ctx context.Context, requestID string) (*model.PaymentSession, error)
	// Verify checks the chain for a transaction matching the session's exact
	// expected amount. Idempotent: a transaction processed twice results in a
	// single paid transition.
	Verify(ctx context.Context, requestID string) (*model.PaymentSession, error)
	// WalletPay broadcasts the exact expected amount through the wallet
	// collaborator, then converges on the same Verify contract.
	WalletPay(ctx context.Context, requestID string) (*model.PaymentSession, string, error)
	PollStatus(ctx context.Context, requestID string) (*PaymentStatusView, error)
	// Reconcile handles a payment that landed on-chain after the request
	// expired: it records the transaction without resurrecting the request.
	Reconcile(ctx context.Context, requestID string) (*ReconcileResult, error)
}

type paymentUC struct {
	sessions  repository.PaymentSessionRepository
	requests  repository.RequestRepository
	tm        repository.TransactionManager
	chain     adapter.ChainLookup
	wallet    adapter.WalletGateway
	locker    Locker
	notifier  adapter.AdminNotifier
	address   string
	payWindow time.Duration
	log       *zerolog.Logger
	now       func() time.Time
}

func NewPaymentUseCase(
	sessions repository.PaymentSessionRepository,
	requests repository.RequestRepository,
	tm repository.TransactionManager,
	chain adapter.ChainLookup,
	wallet adapter.WalletGateway,
	locker Locker,
	notifier adapter.AdminNotifier,
	paymentAddress string,
	payWindow time.Duration,
	logger *zerolog.Logger,
) *paymentUC {
	l := logger.With().Str("component", "PaymentUC").Logger()
	return &paymentUC{
		sessions:  sessions,
		requests:  requests,
		tm:        tm,
		chain:     chain,
		wallet:    wallet,
		locker:    locker,
		notifier:  notifier,
		address:   paymentAddress,
		payWindow: payWindow,
		log:       &l,
		now:       time.Now,
	}
}

func sessionLockKey(requestID string) string { return "spotlight:session:" + requestID }

func (uc *paymentUC) GetOrCreateSession(ctx context.Context, requestID string) (*model.PaymentSession, error) {
	token, err := uc.locker.TryLock(ctx, sessionLockKey(requestID), 10*time.Second)
	if err != nil {
		return nil, domain.ErrSessionLocked
	}
	defer func() { _ = uc.locker.Unlock(ctx, sessionLockKey(requestID), token) }()

	var out *model.PaymentSession
	err = uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		req, err := uc.requests.FindByID(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if req.Status.IsTerminal() {
			return domain.ErrTerminalState
		}
		if req.Status != model.RequestStatusApproved {
			return domain.ErrConflict
		}
		if !req.Terms.Due() {
			return domain.ErrNoPaymentDue
		}

		existing, err := uc.sessions.FindCurrentByRequest(ctx, tx, requestID)
		if err == nil {
			out = existing
			return nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		expected := req.Terms.AmountMinorUnits + model.FingerprintOffset(req.ID)
		s := model.NewPaymentSession(uuid.NewString(), req.ID, uc.address, expected, uc.now())
		if err := uc.sessions.Save(ctx, tx, s); err != nil {
			return err
		}
		out = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (uc *paymentUC) Verify(ctx context.Context, requestID string) (*model.PaymentSession, error) {
	session, err := uc.sessions.FindCurrentByRequest(ctx, nil, requestID)
	if err != nil {
		return nil, err
	}
	if session.Status == model.SessionStatusConfirmed {
		return session, nil
	}

	txHash, err := uc.chain.FindTransaction(ctx, session.Address, session.ExpectedAmountMinorUnits, session.CreatedAt)
	if errors.Is(err, domain.ErrTxNotFound) {
		return session, nil
	}
	if err != nil {
		// "unknown" is not "not found"; the request stays approved and the
		// next attempt retries.
		return nil, domain.ErrVerificationUnavailable
	}

	return uc.confirm(ctx, session, txHash)
}

// confirm applies session awaiting->confirmed and request approved->paid as
// one atomic commit. Both are conditional updates, so replaying the same
// confirmed transaction is a no-op.
func (uc *paymentUC) confirm(ctx context.Context, session *model.PaymentSession, txHash string) (*model.PaymentSession, error) {
	var paid bool
	err := uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		applied, err := uc.sessions.MarkConfirmed(ctx, tx, session.ID, txHash)
		if err != nil {
			return err
		}
		if !applied {
			// another actor confirmed first; nothing left to do
			return nil
		}
		paid, err = uc.requests.MarkPaid(ctx, tx, session.RequestID)
		return err
	})
	if err != nil {
		return nil, err
	}

	session.Status = model.SessionStatusConfirmed
	session.TxHash = &txHash
	if paid {
		uc.log.Info().Str("request_id", session.RequestID).Str("tx_hash", txHash).Msg("payment confirmed")
		uc.notifyAdmins(ctx, fmt.Sprintf("Payment confirmed for spotlight request %s (tx %s)", session.RequestID, txHash))
	} else {
		uc.log.Warn().Str("request_id", session.RequestID).Str("tx_hash", txHash).
			Msg("payment matched but request was not approved; recorded for manual follow-up")
	}
	return session, nil
}

func (uc *paymentUC) WalletPay(ctx context.Context, requestID string) (*model.PaymentSession, string, error) {
	session, err := uc.GetOrCreateSession(ctx, requestID)
	if err != nil {
		return nil, "", err
	}
	txHash, err := uc.wallet.Broadcast(ctx, session.Address, session.ExpectedAmountMinorUnits)
	if err != nil {
		return nil, "", err
	}
	uc.log.Info().Str("request_id", requestID).Str("tx_hash", txHash).Str("wallet", uc.wallet.Name()).Msg("wallet payment broadcast")

	// The broadcast hash is advisory; confirmation still comes from the chain
	// lookup so both payment paths converge on the same contract.
	if verified, err := uc.Verify(ctx, requestID); err == nil {
		session = verified
	}
	return session, txHash, nil
}

func (uc *paymentUC) PollStatus(ctx context.Context, requestID string) (*PaymentStatusView, error) {
	req, err := uc.requests.FindByID(ctx, nil, requestID)
	if err != nil {
		return nil, err
	}
	view := &PaymentStatusView{RequestID: req.ID, RequestStatus: req.Status}
	if req.Status == model.RequestStatusApproved && req.Terms.Due() && req.ApprovedAt != nil {
		deadline := req.PaymentDeadline(uc.payWindow)
		view.PaymentDeadline = &deadline
	}
	session, err := uc.sessions.FindCurrentByRequest(ctx, nil, requestID)
	if err == nil {
		view.Session = session
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return view, nil
}

func (uc *paymentUC) Reconcile(ctx context.Context, requestID string) (*ReconcileResult, error) {
	req, err := uc.requests.FindByID(ctx, nil, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != model.RequestStatusExpired {
		return nil, domain.ErrConflict
	}
	session, err := uc.sessions.FindLatestByRequest(ctx, nil, requestID)
	if err != nil {
		return nil, err
	}
	if session.TxHash != nil {
		return &ReconcileResult{RequestID: requestID, TxHash: *session.TxHash, LatePayment: true}, nil
	}

	txHash, err := uc.chain.FindTransaction(ctx, session.Address, session.ExpectedAmountMinorUnits, session.CreatedAt)
	if errors.Is(err, domain.ErrTxNotFound) {
		return nil, domain.ErrTxNotFound
	}
	if err != nil {
		return nil, domain.ErrVerificationUnavailable
	}

	err = uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		_, err := uc.sessions.MarkConfirmed(ctx, tx, session.ID, txHash)
		return err
	})
	if err != nil {
		return nil, err
	}
	uc.log.Warn().Str("request_id", requestID).Str("tx_hash", txHash).Msg("late payment reconciled; request remains expired")
	uc.notifyAdmins(ctx, fmt.Sprintf("Late payment found for expired request %s (tx %s); manual follow-up needed", requestID, txHash))
	return &ReconcileResult{RequestID: requestID, TxHash: txHash, LatePayment: true}, nil
}

func (uc *paymentUC) notifyAdmins(ctx context.Context, msg string) {
	if uc.notifier == nil {
		return
	}
	if err := uc.notifier.NotifyAdmins(ctx, msg); err != nil {
		uc.log.Warn().Err(err).Msg("admin notification failed")
	}
}
