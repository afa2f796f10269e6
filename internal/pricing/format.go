package pricing

import (
	"math"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"estatecatalog/server/internal/models"
)

// Format renders money for display in the given language. It is presentation
// only; resolution never depends on it. Unknown currency codes are printed
// after the number as-is.
func Format(m models.Money, tag language.Tag) string {
	p := message.NewPrinter(tag)

	unit, err := currency.ParseISO(m.Currency)
	if err != nil {
		return p.Sprintf("%v %s", number.Decimal(float64(m.AmountCents)/100, number.Scale(2)), m.Currency)
	}

	scale, _ := currency.Standard.Rounding(unit)
	amount := float64(m.AmountCents) / math.Pow10(scale)
	return p.Sprint(currency.Symbol(unit.Amount(amount)))
}
