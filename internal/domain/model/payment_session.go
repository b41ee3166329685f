package model

import "time"

type SessionStatus string

const (
	SessionStatusAwaiting  SessionStatus = "awaiting"
	SessionStatusConfirmed SessionStatus = "confirmed"
	SessionStatusExpired   SessionStatus = "expired"
)

// PaymentSession is one payment target bound to a request. At most one
// non-expired session exists per request; re-requesting returns the
// existing one.
type PaymentSession struct {
	ID                       string
	RequestID                string
	Address                  string
	ExpectedAmountMinorUnits int64
	Status                   SessionStatus
	TxHash                   *string
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// NewPaymentSession binds a payment target to a request.
func NewPaymentSession(id, requestID, address string, expectedAmount int64, now time.Time) *PaymentSession {
	return &PaymentSession{
		ID:                       id,
		RequestID:                requestID,
		Address:                  address,
		ExpectedAmountMinorUnits: expectedAmount,
		Status:                   SessionStatusAwaiting,
		CreatedAt:                now,
		UpdatedAt:                now,
	}
}
