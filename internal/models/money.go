package models

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Money es un monto en centavos; toda suma y producto es exacta
type Money int64

// maxAmount tope de cualquier monto, precio, subtotal o total
const maxAmount Money = 1<<62 - 1

var maxCents = decimal.NewFromInt(int64(maxAmount))

// ParsePrice acepta montos decimales no negativos con a lo sumo dos decimales
func ParsePrice(raw string) (Money, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("%w: empty value", ErrInvalidPrice)
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, raw)
	}
	return MoneyFromDecimal(d)
}

// ParseOptionalPrice trata el string vacío como precio ausente
func ParseOptionalPrice(raw string) (*Money, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	m, err := ParsePrice(raw)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: negative amount %s", ErrInvalidPrice, d.String())
	}
	cents := d.Shift(2)
	if !cents.Equal(cents.Truncate(0)) {
		return 0, fmt.Errorf("%w: more than two decimals in %s", ErrInvalidPrice, d.String())
	}
	if cents.GreaterThan(maxCents) {
		return 0, fmt.Errorf("%w: amount too large", ErrInvalidPrice)
	}
	return Money(cents.IntPart()), nil
}

// ParseQuantity exige un entero positivo
func ParseQuantity(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	qty, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidQuantity, raw)
	}
	if qty <= 0 {
		return 0, fmt.Errorf("%w: %d must be positive", ErrInvalidQuantity, qty)
	}
	return qty, nil
}

func (m Money) Cents() int64 {
	return int64(m)
}

func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -2)
}

// Mul producto exacto; ErrAmountOverflow si el resultado sale de rango
func (m Money) Mul(qty int) (Money, error) {
	if m == 0 || qty == 0 {
		return 0, nil
	}
	q := Money(qty)
	if abs(q) > maxAmount || abs(m) > maxAmount/abs(q) {
		return 0, fmt.Errorf("%w: %s x %d", ErrAmountOverflow, m.String(), qty)
	}
	return m * q, nil
}

// Add suma exacta; ErrAmountOverflow si el resultado sale de rango
func (m Money) Add(other Money) (Money, error) {
	if (other > 0 && m > maxAmount-other) || (other < 0 && m < -maxAmount-other) {
		return 0, fmt.Errorf("%w: %s + %s", ErrAmountOverflow, m.String(), other.String())
	}
	return m + other, nil
}

func abs(m Money) Money {
	if m < 0 {
		return -m
	}
	return m
}

func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Grouped formatea con separador de miles: 1,234.50
func (m Money) Grouped() string {
	s := m.String()
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}

	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + b.String() + "." + frac
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidPrice, raw)
	}
	// los montos persistidos pueden ser negativos en ajustes futuros; solo se exige precisión de centavos
	cents := d.Shift(2)
	if !cents.Equal(cents.Truncate(0)) {
		return fmt.Errorf("%w: more than two decimals in %s", ErrInvalidPrice, raw)
	}
	*m = Money(cents.IntPart())
	return nil
}

// SumMoney suma exacta de todos los valores
func SumMoney(values ...Money) (Money, error) {
	var total Money
	for _, v := range values {
		var err error
		if total, err = total.Add(v); err != nil {
			return 0, err
		}
	}
	return total, nil
}
