package model

import "hash/fnv"

// Pricing maps a requested duration to a price in the currency's minor unit,
// and derives the per-request dust fingerprint used to attribute payments.
type Pricing struct {
	UnitPriceMinorUnits int64 // price of one spotlight day
}

// NewPricing builds a pricing table from a per-day price expressed in whole
// currency units and the number of minor units per whole unit.
func NewPricing(unitPrice, minorUnitsPerUnit int64) Pricing {
	return Pricing{UnitPriceMinorUnits: unitPrice * minorUnitsPerUnit}
}

// PriceFor is total over 1..MaxDurationDays; out-of-range input is a caller
// contract violation validated upstream.
func (p Pricing) PriceFor(durationDays int) int64 {
	return int64(durationDays) * p.UnitPriceMinorUnits
}

// fingerprintSpace bounds the dust offset so it stays far below one day's price.
const fingerprintSpace = 9999

// FingerprintOffset maps a request id to a small, stable dust amount in minor
// units (1..fingerprintSpace). Payments of price+offset can be attributed to
// exactly one request even when nominal prices collide.
func FingerprintOffset(requestID string) int64 {
	h := fnv.New32a()
	h.Write([]byte(requestID))
	return int64(h.Sum32()%fingerprintSpace) + 1
}

// ExpectedAmount is the exact on-chain amount that settles a request.
func (p Pricing) ExpectedAmount(requestID string, durationDays int) int64 {
	return p.PriceFor(durationDays) + FingerprintOffset(requestID)
}
