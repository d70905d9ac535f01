package catalog

import "math"

// Price is a money amount in the currency's smallest unit. Amounts are
// 32-bit; arithmetic widens to 64-bit and saturates at the int32 bounds
// instead of erroring or wrapping.
type Price struct {
	Amount   int32  `gorm:"column:amount;not null;default:0" json:"amount"`
	Currency string `gorm:"column:currency;not null;default:'JPY'" json:"currency"`
}

// AddUnits returns p plus quantity units at the given unit price. The
// running total never exceeds math.MaxInt32 and never drops below zero.
func (p Price) AddUnits(unit Price, quantity int) Price {
	total := int64(p.Amount) + int64(unit.Amount)*int64(quantity)
	if total > math.MaxInt32 {
		total = math.MaxInt32
	}
	if total < 0 {
		total = 0
	}
	p.Amount = int32(total)
	if p.Currency == "" {
		p.Currency = unit.Currency
	}
	return p
}
