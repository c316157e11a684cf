package dateutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{name: "plain ISO date", input: "2024-01-05", want: "2024-01-05", ok: true},
		{name: "ISO with spaces", input: "  2024-03-31 ", want: "2024-03-31", ok: true},
		{name: "ISO timestamp keeps local calendar day", input: "2024-06-30T23:30:00+02:00", want: "2024-06-30", ok: true},
		{name: "postgres timestamp text", input: "2024-11-02 00:00:00+00", want: "2024-11-02", ok: true},
		{name: "Italian day/month/year", input: "15/02/2025", want: "2025-02-15", ok: true},
		{name: "dotted date", input: "01.12.2024", want: "2024-12-01", ok: true},
		{name: "long month", input: "March 3, 2024", want: "2024-03-03", ok: true},
		{name: "impossible ISO date", input: "2024-02-30", ok: false},
		{name: "empty", input: "   ", ok: false},
		{name: "garbage", input: "yesterday", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeDate(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestFromTimeAndYear(t *testing.T) {
	ts := time.Date(2025, 1, 1, 0, 30, 0, 0, time.FixedZone("CET", 3600))
	assert.Equal(t, "2024-12-31", FromTime(ts))

	year, ok := Year("2024-12-31")
	assert.True(t, ok)
	assert.Equal(t, 2024, year)

	_, ok = Year("31/12/2024")
	assert.False(t, ok)
}
