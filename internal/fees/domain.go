// Package fees manages fee schedules, payments and student balances.
// Amounts are stored in kobo (hundredths) to keep arithmetic exact.
package fees

import (
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// FeeItem is one charge on a class for a term, e.g. tuition or bus fare.
type FeeItem struct {
	ID        int64
	TermID    int64
	ClassID   int64
	ClassName string
	Title     string
	Amount    int64
	CreatedAt time.Time
}

// Payment is money received against a student's account.
type Payment struct {
	ID         int64
	StudentID  int64
	Amount     int64
	Method     string
	Reference  *string
	ReceivedBy int64
	ReceivedAt time.Time
}

// Ledger is a student's standing for a term.
type Ledger struct {
	StudentID   int64
	StudentName string
	Charged     int64
	Paid        int64
	Items       []FeeItem
	Payments    []Payment
}

// Balance is the amount outstanding; negative means credit.
func (l Ledger) Balance() int64 {
	return l.Charged - l.Paid
}

var printer = message.NewPrinter(language.English)

// FormatAmount renders kobo as a grouped naira string, e.g. "₦1,250.00".
func FormatAmount(kobo int64) string {
	major := float64(kobo) / 100
	return printer.Sprintf("₦%v", number.Decimal(major,
		number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}
