package service

import (
	"github.com/bibbank/lendcore/internal/domain/model"
	"github.com/bibbank/lendcore/internal/domain/valueobject"
)

// SelectProduct maps a term length to its product tier:
//
//	1..60 days    -> micro
//	61..180 days  -> extended
//	270, 365 days -> longterm
//
// Every other term, including non-positive ones, is an InvalidTermError.
func SelectProduct(termDays int) (valueobject.Product, error) {
	switch {
	case termDays == 270 || termDays == 365:
		return valueobject.ProductLongterm, nil
	case termDays >= 1 && termDays <= 60:
		return valueobject.ProductMicro, nil
	case termDays >= 61 && termDays <= 180:
		return valueobject.ProductExtended, nil
	default:
		return valueobject.Product{}, &model.InvalidTermError{TermDays: termDays}
	}
}
