package output

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormatCurrency(t *testing.T) {
	v := decimal.NewFromFloat(1234.567)
	got := FormatCurrency(v)
	want := "1.234,57 €"
	if got != want {
		t.Errorf("FormatCurrency(%v) = %q, want %q", v, got, want)
	}
}

func TestFormatPercentage(t *testing.T) {
	v := decimal.NewFromFloat(0.2607)
	got := FormatPercentage(v)
	want := "26,07%"
	if got != want {
		t.Errorf("FormatPercentage(%v) = %q, want %q", v, got, want)
	}
}

func TestTransliterate(t *testing.T) {
	if got, want := transliterate("Totale: 1.000,00 € – città"), "Totale: 1.000,00 EUR - citta"; got != want {
		t.Errorf("transliterate = %q, want %q", got, want)
	}
}
