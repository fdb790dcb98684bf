package booking

import "fmt"

// Stay is the priced outcome of a date range.
type Stay struct {
	Nights      int     `json:"nights"`
	TotalAmount float64 `json:"total_amount"`
}

// PricingStrategy turns a validated range and nightly rate into a Stay.
type PricingStrategy interface {
	Price(r DateRange, pricePerNight float64) Stay
}

// NightlyPricingStrategy charges the nightly rate for every started day.
type NightlyPricingStrategy struct{}

// NewNightlyPricingStrategy creates a NightlyPricingStrategy.
func NewNightlyPricingStrategy() *NightlyPricingStrategy {
	return &NightlyPricingStrategy{}
}

// Price computes nights × pricePerNight. A non-positive rate prices to zero.
func (NightlyPricingStrategy) Price(r DateRange, pricePerNight float64) Stay {
	nights := r.Nights()
	if nights == 0 || pricePerNight <= 0 {
		return Stay{}
	}
	return Stay{Nights: nights, TotalAmount: float64(nights) * pricePerNight}
}

// ComputeStay prices raw form input. Missing or unparseable dates, a
// non-positive span, or a missing rate all yield a zero Stay rather than an error.
func ComputeStay(checkIn, checkOut string, pricePerNight float64) Stay {
	if checkIn == "" || checkOut == "" || pricePerNight == 0 {
		return Stay{}
	}
	in, err := ParseDate(checkIn)
	if err != nil {
		return Stay{}
	}
	out, err := ParseDate(checkOut)
	if err != nil {
		return Stay{}
	}
	return NightlyPricingStrategy{}.Price(DateRange{CheckIn: in, CheckOut: out}, pricePerNight)
}

// FormatAmount renders a currency amount with two decimals for display.
func FormatAmount(amount float64) string {
	return fmt.Sprintf("%.2f", amount)
}
