// AngelaMos | 2026
// money.go

package money

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var ErrInvalidMoney = errors.New("invalid money amount")

// Amount is a ruble amount in kopecks.
type Amount int64

const maxRubles = math.MaxInt64 / 100

// Rubles builds a whole-ruble amount.
func Rubles(n int64) Amount {
	return Amount(n * 100)
}

// FromRubles converts user-entered decimal rubles (12.34) to kopecks.
// Prefer sending kopecks directly where the caller can.
func FromRubles(rubles float64) (Amount, error) {
	if math.IsNaN(rubles) || math.IsInf(rubles, 0) {
		return 0, ErrInvalidMoney
	}
	if rubles < 0 {
		return 0, ErrInvalidMoney
	}
	if rubles > maxRubles {
		return 0, fmt.Errorf("%w: too large", ErrInvalidMoney)
	}

	kopecks := int64(math.Round(rubles * 100.0))
	if kopecks < 0 {
		return 0, ErrInvalidMoney
	}

	return Amount(kopecks), nil
}

// Add returns a+b, or false when the sum would overflow.
func (a Amount) Add(b Amount) (Amount, bool) {
	if b > 0 && a > math.MaxInt64-b {
		return 0, false
	}
	if b < 0 && a < math.MinInt64-b {
		return 0, false
	}
	return a + b, true
}

func (a Amount) IsPositive() bool {
	return a > 0
}

func (a Amount) String() string {
	sign := ""
	k := int64(a)
	if k < 0 {
		sign = "-"
		k = -k
	}
	return fmt.Sprintf("%s%d.%02d", sign, k/100, k%100)
}

// MarshalJSON writes the amount as a decimal ruble number, 12.34.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON reads a decimal ruble number. Up to two fraction digits
// are parsed exactly; longer fractions are rounded to the kopeck.
func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}

	s := strings.Trim(string(b), `"`)
	if v, ok := parseExact(s); ok {
		*a = v
		return nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidMoney, s)
	}
	neg := f < 0
	v, err := FromRubles(math.Abs(f))
	if err != nil {
		return err
	}
	if neg {
		v = -v
	}
	*a = v
	return nil
}

func parseExact(s string) (Amount, bool) {
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" || len(frac) > 2 || strings.ContainsAny(s, "eE+") {
		return 0, false
	}
	for len(frac) < 2 {
		frac += "0"
	}

	r, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || r > maxRubles {
		return 0, false
	}
	k, err := strconv.ParseInt(frac, 10, 64)
	if err != nil || k < 0 {
		return 0, false
	}

	v := Amount(r*100 + k)
	if v < 0 {
		return 0, false
	}
	if neg {
		v = -v
	}
	return v, true
}
