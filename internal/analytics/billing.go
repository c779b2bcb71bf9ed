package analytics

import "math"

// LongDurationThreshold is the billable span, in business days, at or above
// which the long-duration discount applies automatically.
const LongDurationThreshold = 21

// longDurationFactor is the 20% discount applied to long rentals.
const longDurationFactor = 0.8

// ChargeOptions carries the per-rental billing modifiers.
type ChargeOptions struct {
	// LongDuration forces the long-duration discount regardless of the
	// business-day count.
	LongDuration bool
	// MinimumBillingApply enables the floor; MinimumBilling is the floor
	// amount in euros.
	MinimumBillingApply bool
	MinimumBilling      *float64
}

// ComputeCharge bills a span of business days at the given daily rate.
// A nil or zero rate bills nothing, floor included: such equipment is flagged
// as missing-price upstream instead. Otherwise the long-duration discount is
// applied when the span reaches LongDurationThreshold or the explicit flag is
// set, then the minimum-billing floor, then rounding to 2 decimals.
func ComputeCharge(businessDays int, dailyRate *float64, opts ChargeOptions) float64 {
	if dailyRate == nil || *dailyRate == 0 {
		return 0
	}

	if businessDays < 0 {
		businessDays = 0
	}

	charge := float64(businessDays) * *dailyRate

	if businessDays >= LongDurationThreshold || opts.LongDuration {
		charge *= longDurationFactor
	}

	if opts.MinimumBillingApply && opts.MinimumBilling != nil && charge < *opts.MinimumBilling {
		charge = *opts.MinimumBilling
	}

	return round2(charge)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
