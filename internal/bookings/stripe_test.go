package bookings

import "testing"

func TestAmountToCents(t *testing.T) {
	cases := []struct {
		amount float64
		cents  int64
	}{
		{19.99, 1999},
		{0.1, 10},
		{29.99 * 3, 8997},
		{100.0, 10000},
		{0, 0},
	}

	for _, c := range cases {
		if got := amountToCents(c.amount); got != c.cents {
			t.Errorf("Expected %v dollars to charge %d cents, got %d", c.amount, c.cents, got)
		}
	}
}
