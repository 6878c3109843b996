package fees

import "testing"

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		kobo int64
		want string
	}{
		{0, "₦0.00"},
		{5000, "₦50.00"},
		{125050, "₦1,250.50"},
		{250000000, "₦2,500,000.00"},
	}
	for _, tc := range cases {
		if got := FormatAmount(tc.kobo); got != tc.want {
			t.Errorf("FormatAmount(%d) = %q, want %q", tc.kobo, got, tc.want)
		}
	}
}

func TestLedgerBalance(t *testing.T) {
	l := Ledger{Charged: 100000, Paid: 45000}
	if l.Balance() != 55000 {
		t.Fatalf("Balance = %d, want 55000", l.Balance())
	}
	l.Paid = 120000
	if l.Balance() != -20000 {
		t.Fatalf("Balance = %d, want -20000 (credit)", l.Balance())
	}
}
