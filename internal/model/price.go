package model

import (
	"math"
	"time"
)

// PriceRecord is one observation in a product's price history.
// Nil price values encode "not for sale". Amounts are stored in cents.
type PriceRecord struct {
	PriceBase  *int      `json:"price_base"`
	PriceFinal *int      `json:"price_final"`
	Currency   string    `json:"currency"`
	Date       time.Time `json:"date"`
}

// SamePrice reports whether two records describe the same price,
// ignoring the observation date.
func (r *PriceRecord) SamePrice(other *PriceRecord) bool {
	return intPtrEqual(r.PriceBase, other.PriceBase) &&
		intPtrEqual(r.PriceFinal, other.PriceFinal) &&
		r.Currency == other.Currency
}

// ForSale reports whether the record describes a purchasable price.
func (r *PriceRecord) ForSale() bool {
	return r.PriceBase != nil
}

// Discount returns the rounded discount percentage, or -1 when the
// product is not for sale. Percentages ending in 9 or 1 are rounded to
// the nearest multiple of ten.
func (r *PriceRecord) Discount() int {
	var fract float64
	if r.PriceBase != nil && *r.PriceBase == 0 {
		// Free products get the full base price
		fract = 1
	} else if r.PriceBase == nil || r.PriceFinal == nil {
		return -1
	} else {
		fract = float64(*r.PriceFinal) / float64(*r.PriceBase)
	}

	rounded := int(math.Round((1 - fract) * 100))
	switch rounded % 10 {
	case 9:
		rounded++
	case 1:
		rounded--
	}
	return rounded
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// PriceLog holds the ordered price history per country and currency.
type PriceLog map[string]map[string][]PriceRecord

// Log returns the record slice for a country/currency pair, creating
// the nested maps as needed.
func (l PriceLog) Log(country, currency string) []PriceRecord {
	return l[country][currency]
}

// SetLog replaces the record slice for a country/currency pair.
func (l PriceLog) SetLog(country, currency string, records []PriceRecord) {
	if l[country] == nil {
		l[country] = make(map[string][]PriceRecord)
	}
	l[country][currency] = records
}

// Empty reports whether no currency holds any records.
func (l PriceLog) Empty() bool {
	for _, byCurrency := range l {
		for _, records := range byCurrency {
			if len(records) > 0 {
				return false
			}
		}
	}
	return true
}
