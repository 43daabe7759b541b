package service

import (
	"github.com/shopspring/decimal"

	"github.com/bibbank/lendcore/internal/domain/model"
	"github.com/bibbank/lendcore/internal/domain/valueobject"
)

// divisionPlaces bounds the single division in each formula well past the 4dp
// rounding point. Products are taken first so a terminating quotient is exact.
const divisionPlaces = 20

var (
	microAnnualRate     = decimal.RequireFromString("0.005")
	extendedMonthlyRate = decimal.RequireFromString("0.0349")
	longtermMonthlyRate = decimal.RequireFromString("0.03")
	daysInYear          = decimal.NewFromInt(365)
	daysInMonth         = decimal.RequireFromString("30.44")
	hundred             = decimal.NewFromInt(100)
)

// InterestQuote is the priced outcome for an (amount, term) pair.
type InterestQuote struct {
	Product       valueobject.Product
	Interest      decimal.Decimal // major units, rounded to 4 places
	APR           decimal.Decimal // percent, 2 places
	AmountCents   int64
	InterestCents int64
	TermDays      int
}

// CalculateInterest prices a loan of amountCents over termDays. The tier comes
// from SelectProduct; interest is rounded half-to-even to 4 places in major
// units and then half-to-even again to whole minor units.
func CalculateInterest(amountCents int64, termDays int) (InterestQuote, error) {
	if amountCents <= 0 {
		return InterestQuote{}, &model.ValidationError{Field: "amount_cents", Reason: "must be greater than 0"}
	}
	product, err := SelectProduct(termDays)
	if err != nil {
		return InterestQuote{}, err
	}

	amount := decimal.New(amountCents, -2)
	term := decimal.NewFromInt(int64(termDays))

	var raw decimal.Decimal
	switch {
	case product.IsMicro():
		raw = amount.Mul(microAnnualRate).Mul(term).DivRound(daysInYear, divisionPlaces)
	case product.IsExtended():
		raw = amount.Mul(extendedMonthlyRate).Mul(term).DivRound(daysInMonth, divisionPlaces)
	default:
		raw = amount.Mul(longtermMonthlyRate).Mul(term).DivRound(daysInMonth, divisionPlaces)
	}

	interest := raw.RoundBank(4)
	interestCents := interest.Mul(hundred).RoundBank(0).IntPart()

	return InterestQuote{
		Product:       product,
		Interest:      interest,
		APR:           annualPercentageRate(interestCents, amountCents, termDays),
		AmountCents:   amountCents,
		InterestCents: interestCents,
		TermDays:      termDays,
	}, nil
}

// annualPercentageRate is (interest / amount) * (365 / term) * 100 at 2 places.
func annualPercentageRate(interestCents, amountCents int64, termDays int) decimal.Decimal {
	numerator := decimal.NewFromInt(interestCents).Mul(daysInYear).Mul(hundred)
	denominator := decimal.NewFromInt(amountCents).Mul(decimal.NewFromInt(int64(termDays)))
	return numerator.DivRound(denominator, divisionPlaces).RoundBank(2)
}
