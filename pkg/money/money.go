// Package money renders loan amounts, which are held as integer centavos,
// for payloads and operator output.
package money

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"
)

var currencyCodeRe = regexp.MustCompile(`^[A-Z]{3}$`)

// centExponent places the decimal point of a minor-unit amount.
const centExponent = -2

// Currency is an ISO 4217 currency code.
type Currency struct {
	code string
}

func NewCurrency(code string) (Currency, error) {
	if !currencyCodeRe.MatchString(code) {
		return Currency{}, fmt.Errorf("invalid currency code %q: must be exactly 3 uppercase letters", code)
	}
	return Currency{code: code}, nil
}

// MustCurrency is NewCurrency for package-level values.
func MustCurrency(code string) Currency {
	c, err := NewCurrency(code)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Currency) Code() string   { return c.code }
func (c Currency) String() string { return c.code }

// PHP is the settlement currency for loans.
var PHP = MustCurrency("PHP")

// Money is a minor-unit amount tagged with its currency.
type Money struct {
	cents    int64
	currency Currency
}

func FromCents(cents int64, currency Currency) Money {
	return Money{cents: cents, currency: currency}
}

func (m Money) Cents() int64       { return m.cents }
func (m Money) Currency() Currency { return m.currency }

// Major returns the amount in whole currency units, exact to the centavo.
func (m Money) Major() decimal.Decimal {
	return decimal.New(m.cents, centExponent)
}

// String formats the value as "10000.00 PHP".
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Major().StringFixed(2), m.currency.Code())
}
