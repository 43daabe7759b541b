package valueobject

import "fmt"

// Product is the loan tier. It is derived from the term length and never
// supplied by a client.
type Product struct {
	value string
}

const (
	productMicro    = "micro"
	productExtended = "extended"
	productLongterm = "longterm"
)

var (
	ProductMicro    = Product{value: productMicro}
	ProductExtended = Product{value: productExtended}
	ProductLongterm = Product{value: productLongterm}
)

// AmountBounds is an inclusive principal range in minor units.
type AmountBounds struct {
	MinCents int64
	MaxCents int64
}

// Contains reports whether cents lies inside the bounds.
func (b AmountBounds) Contains(cents int64) bool {
	return cents >= b.MinCents && cents <= b.MaxCents
}

var productBounds = map[string]AmountBounds{
	productMicro:    {MinCents: 500_00, MaxCents: 25_000_00},
	productExtended: {MinCents: 5_000_00, MaxCents: 100_000_00},
	productLongterm: {MinCents: 10_000_00, MaxCents: 250_000_00},
}

// longtermTerms are the only term lengths offered for longterm loans.
var longtermTerms = [...]int{270, 365}

// NewProduct parses a persisted product string.
func NewProduct(s string) (Product, error) {
	switch s {
	case productMicro:
		return ProductMicro, nil
	case productExtended:
		return ProductExtended, nil
	case productLongterm:
		return ProductLongterm, nil
	default:
		return Product{}, fmt.Errorf("invalid product: %q", s)
	}
}

func (p Product) String() string { return p.value }

func (p Product) IsZero() bool { return p.value == "" }

func (p Product) Equal(other Product) bool { return p.value == other.value }

func (p Product) IsMicro() bool    { return p.value == productMicro }
func (p Product) IsExtended() bool { return p.value == productExtended }
func (p Product) IsLongterm() bool { return p.value == productLongterm }

// AmountBounds returns the principal range the tier accepts.
func (p Product) AmountBounds() AmountBounds {
	return productBounds[p.value]
}

// AllowsTerm reports whether termDays is a legal term for the tier.
func (p Product) AllowsTerm(termDays int) bool {
	switch p.value {
	case productMicro:
		return termDays >= 1 && termDays <= 60
	case productExtended:
		return termDays >= 61 && termDays <= 180
	case productLongterm:
		for _, t := range longtermTerms {
			if termDays == t {
				return true
			}
		}
	}
	return false
}
