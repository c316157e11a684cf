package decimal

import (
	"testing"

	stddec "github.com/shopspring/decimal"
)

func money(s string) Money { return NewMoneyFromDecimal(stddec.RequireFromString(s)) }

func TestNewMoneyFromDecimal(t *testing.T) {
	d := stddec.NewFromFloat(10.125)
	m := NewMoneyFromDecimal(d)
	if !m.Decimal.Equal(d) {
		t.Fatalf("NewMoneyFromDecimal mismatch: got %s want %s", m.Decimal, d)
	}
}

func TestString(t *testing.T) {
	cases := []struct{ in, out string }{
		{"2298.8558538", "2298.86"},
		{"286.3894498", "286.39"},
		{"2.345", "2.35"},
		{"-2.345", "-2.35"},
		{"123.45", "123.45"},
		{"7", "7.00"},
	}
	for _, c := range cases {
		if got := money(c.in).String(); got != c.out {
			t.Fatalf("String(%s) got %s want %s", c.in, got, c.out)
		}
	}
}

func TestSum(t *testing.T) {
	if got := Sum(); !got.IsZero() {
		t.Fatalf("empty sum got %s", got)
	}
	got := Sum(stddec.RequireFromString("100.10"), stddec.RequireFromString("0.20"), stddec.RequireFromString("-50"))
	if !got.Equal(stddec.RequireFromString("50.30")) {
		t.Fatalf("Sum got %s", got)
	}
}

func TestFormat(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0", "0,00 €"},
		{"1234.5", "1.234,50 €"},
		{"2298.8558538", "2.298,86 €"},
		{"120607", "120.607,00 €"},
		{"1000000", "1.000.000,00 €"},
		{"-42.1", "-42,10 €"},
		{"-0.001", "0,00 €"},
	}
	for _, c := range cases {
		if got := money(c.in).Format(); got != c.want {
			t.Fatalf("Format(%s) got %q want %q", c.in, got, c.want)
		}
	}
}

func TestFormatPercent(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0.2607", "26,07%"},
		{"0.26", "26%"},
		{"0.05", "5%"},
		{"0.4", "40%"},
		{"0", "0%"},
		{"0.19899", "19,9%"},
	}
	for _, c := range cases {
		if got := FormatPercent(stddec.RequireFromString(c.in)); got != c.want {
			t.Fatalf("FormatPercent(%s) got %q want %q", c.in, got, c.want)
		}
	}
}
