package models

// Money is an amount in minor currency units. Amounts in different currencies
// are never converted or compared against each other.
type Money struct {
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

// IsZero reports whether no amount is set.
func (m Money) IsZero() bool {
	return m.AmountCents == 0
}
