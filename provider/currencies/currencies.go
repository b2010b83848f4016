// Package currencies lists the ISO 4217 codes quoted in the CNB daily fixing
package currencies

import (
	"slices"

	"github.com/sig-0/cnbrates/storage/types"
)

// CZK is the quote currency of every CNB rate
var CZK types.Currency = "CZK"

var (
	AUD types.Currency = "AUD"
	BRL types.Currency = "BRL"
	CAD types.Currency = "CAD"
	CHF types.Currency = "CHF"
	CNY types.Currency = "CNY"
	DKK types.Currency = "DKK"
	EUR types.Currency = "EUR"
	GBP types.Currency = "GBP"
	HKD types.Currency = "HKD"
	HUF types.Currency = "HUF"
	IDR types.Currency = "IDR"
	ILS types.Currency = "ILS"
	INR types.Currency = "INR"
	ISK types.Currency = "ISK"
	JPY types.Currency = "JPY"
	KRW types.Currency = "KRW"
	MXN types.Currency = "MXN"
	MYR types.Currency = "MYR"
	NOK types.Currency = "NOK"
	NZD types.Currency = "NZD"
	PHP types.Currency = "PHP"
	PLN types.Currency = "PLN"
	RON types.Currency = "RON"
	SEK types.Currency = "SEK"
	SGD types.Currency = "SGD"
	THB types.Currency = "THB"
	TRY types.Currency = "TRY"
	USD types.Currency = "USD"
	XDR types.Currency = "XDR"
	ZAR types.Currency = "ZAR"
)

// Fixing is the set of currencies in the CNB daily fixing
var Fixing = []types.Currency{
	AUD, BRL, CAD, CHF, CNY, DKK, EUR, GBP, HKD, HUF,
	IDR, ILS, INR, ISK, JPY, KRW, MXN, MYR, NOK, NZD,
	PHP, PLN, RON, SEK, SGD, THB, TRY, USD, XDR, ZAR,
}

// IsFixing returns true if the currency is quoted in the CNB daily fixing
func IsFixing(c types.Currency) bool {
	return slices.Contains(Fixing, c)
}
