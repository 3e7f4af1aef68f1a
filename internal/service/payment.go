package service

import (
	"github.com/shopspring/decimal"
)

// PaymentMethod is how a retail sale is settled.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "Cash"
	PaymentTransfer PaymentMethod = "Transfer"
	PaymentQRIS     PaymentMethod = "QRIS"
	PaymentCard     PaymentMethod = "Card"
)

// Settlement is a validated payment for a given grand total.
type Settlement struct {
	Method     PaymentMethod
	AmountPaid decimal.Decimal
	ChangeDue  decimal.Decimal
}

type settleFunc func(total, paid decimal.Decimal) (Settlement, error)

var settlers = map[PaymentMethod]settleFunc{
	PaymentCash:     settleCash,
	PaymentTransfer: settleExact(PaymentTransfer),
	PaymentQRIS:     settleExact(PaymentQRIS),
	PaymentCard:     settleExact(PaymentCard),
}

// Settle validates paid against total for the given method. It never
// touches stock, so checkout calls it before any debit.
func Settle(method string, total, paid decimal.Decimal) (Settlement, error) {
	fn, ok := settlers[PaymentMethod(method)]
	if !ok {
		return Settlement{}, invalid("unsupported payment method %q", method)
	}
	if paid.IsNegative() {
		return Settlement{}, invalid("amount paid cannot be negative")
	}
	return fn(total, paid)
}

func settleCash(total, paid decimal.Decimal) (Settlement, error) {
	if paid.LessThan(total) {
		return Settlement{}, invalid("insufficient payment: total %s, paid %s", total.StringFixed(2), paid.StringFixed(2))
	}
	return Settlement{Method: PaymentCash, AmountPaid: paid, ChangeDue: paid.Sub(total)}, nil
}

// settleExact covers non-cash methods: the terminal charges the exact total,
// so an omitted amount means the total and no change is given.
func settleExact(m PaymentMethod) settleFunc {
	return func(total, paid decimal.Decimal) (Settlement, error) {
		if paid.IsZero() {
			paid = total
		}
		if paid.LessThan(total) {
			return Settlement{}, invalid("insufficient payment: total %s, paid %s", total.StringFixed(2), paid.StringFixed(2))
		}
		return Settlement{Method: m, AmountPaid: paid, ChangeDue: decimal.Zero}, nil
	}
}
