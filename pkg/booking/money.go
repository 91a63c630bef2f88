package booking

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Money is an amount in whole đồng. VND has no minor unit in circulation.
type Money int64

// NewMoney validates a non-negative amount.
func NewMoney(value int64) (Money, error) {
	if value < 0 {
		return 0, fmt.Errorf("%w: negative amount %d", ErrInvalidMoney, value)
	}
	return Money(value), nil
}

// ParseMoney parses a decimal price string exactly. Fractional digits must all be zero.
func ParseMoney(raw string) (Money, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, fmt.Errorf("%w: empty value", ErrInvalidMoney)
	}
	wholePart, fractionPart, hasFraction := strings.Cut(trimmed, ".")
	if wholePart == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMoney, raw)
	}
	if hasFraction {
		if fractionPart == "" || strings.Trim(fractionPart, "0") != "" {
			return 0, fmt.Errorf("%w: fractional đồng in %q", ErrInvalidMoney, raw)
		}
	}
	for _, digit := range wholePart {
		if digit < '0' || digit > '9' {
			return 0, fmt.Errorf("%w: %q", ErrInvalidMoney, raw)
		}
	}
	value, err := strconv.ParseInt(wholePart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMoney, raw)
	}
	return Money(value), nil
}

// Add sums two amounts, failing on overflow.
func (money Money) Add(other Money) (Money, error) {
	if other > 0 && money > Money(math.MaxInt64)-other {
		return 0, fmt.Errorf("%w: overflow", ErrInvalidMoney)
	}
	return money + other, nil
}

// Int64 returns the raw amount.
func (money Money) Int64() int64 {
	return int64(money)
}

// String renders the amount as a plain integer.
func (money Money) String() string {
	return strconv.FormatInt(int64(money), 10)
}

// SumSeatPrices totals seat prices, rejecting any price that does not parse exactly.
func SumSeatPrices(seats []Seat) (Money, error) {
	var total Money
	for _, seat := range seats {
		price, err := ParseMoney(seat.Price)
		if err != nil {
			return 0, fmt.Errorf("%w: seat %s: %v", ErrInvalidSeatPrice, seat.ID.String(), err)
		}
		total, err = total.Add(price)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidSeatPrice, err)
		}
	}
	return total, nil
}
