package model

type PaymentKind string

const (
	PaymentKindRequired  PaymentKind = "requires_payment"
	PaymentKindFreePromo PaymentKind = "free_promotion"
)

// PaymentTerms is a tagged variant of the payment requirement on a request.
// Keeping the amount and the free-promo flag in one value means the lifecycle
// manager and the payment session manager cannot disagree about whether a
// session is needed.
type PaymentTerms struct {
	Kind             PaymentKind
	AmountMinorUnits int64
}

func RequiresPayment(amountMinorUnits int64) PaymentTerms {
	return PaymentTerms{Kind: PaymentKindRequired, AmountMinorUnits: amountMinorUnits}
}

func FreePromotion() PaymentTerms {
	return PaymentTerms{Kind: PaymentKindFreePromo}
}

// Due reports whether the creator still has to pay for this request.
func (t PaymentTerms) Due() bool { return t.Kind == PaymentKindRequired }

// Free reports whether an administrator waived payment.
func (t PaymentTerms) Free() bool { return t.Kind == PaymentKindFreePromo }
