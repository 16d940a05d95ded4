package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDueDate(t *testing.T) {
	cases := map[Quarter]time.Month{
		Q1: time.February,
		Q2: time.May,
		Q3: time.August,
		Q4: time.November,
	}
	for q, month := range cases {
		due, err := DueDate(q, 2025)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, month, 15, 0, 0, 0, 0, time.UTC), due, string(q))
	}

	t.Run("unrecognized label falls back to January 15 and is flagged", func(t *testing.T) {
		due, err := DueDate(Quarter("Q5"), 2025)
		require.ErrorIs(t, err, ErrUnrecognizedQuarter)
		assert.Equal(t, time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC), due)
	})
}

func TestParseQuarterLabel(t *testing.T) {
	p, err := ParseQuarterLabel("q3-2026")
	require.NoError(t, err)
	assert.Equal(t, QuarterPeriod{Quarter: Q3, Year: 2026}, p)
	assert.Equal(t, "Q3-2026", p.Label())

	for _, bad := range []string{"", "Q3", "Q0-2025", "Q1-twenty", "2025-Q1"} {
		_, err := ParseQuarterLabel(bad)
		assert.ErrorIs(t, err, ErrUnrecognizedQuarter, bad)
	}
}

func TestPeriodOf(t *testing.T) {
	assert.Equal(t, QuarterPeriod{Quarter: Q1, Year: 2026}, PeriodOf(time.Date(2026, 3, 31, 23, 0, 0, 0, time.UTC)))
	assert.Equal(t, QuarterPeriod{Quarter: Q4, Year: 2026}, PeriodOf(time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)))
}

func TestIdentifierFor(t *testing.T) {
	d := UserDetails{TRN: "123456789", NationalID: "NID-1", PassportNumber: ""}

	id, ok := d.IdentifierFor(DocumentDriverLicense)
	assert.True(t, ok)
	assert.Equal(t, "123456789", id)

	id, ok = d.IdentifierFor(DocumentNationalID)
	assert.True(t, ok)
	assert.Equal(t, "NID-1", id)

	_, ok = d.IdentifierFor(DocumentPassport)
	assert.False(t, ok, "empty passport number cannot match")

	_, ok = d.IdentifierFor(DocumentUnknown)
	assert.False(t, ok)
}
