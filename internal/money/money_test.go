package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMilliunits_Truncates(t *testing.T) {
	tests := []struct {
		in   string
		want Money
	}{
		{"1", 1000},
		{"12.34", 12340},
		{"0.001", 1},
		{"0.0019", 1},
		{"-0.0019", -1},
		{"-620", -620000},
		{"1000.01", 1000010},
	}
	for _, tt := range tests {
		d, err := decimal.NewFromString(tt.in)
		require.NoError(t, err)
		got, err := ToMilliunits(d)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "ToMilliunits(%s)", tt.in)
	}
}

func TestToMilliunits_OutOfRange(t *testing.T) {
	for _, in := range []string{"10000000000000000", "-9223372036854775.809", "1e30"} {
		d, err := decimal.NewFromString(in)
		require.NoError(t, err)
		_, err = ToMilliunits(d)
		assert.ErrorIs(t, err, ErrOutOfRange, in)
	}

	d, err := decimal.NewFromString("9223372036854775.807")
	require.NoError(t, err)
	m, err := ToMilliunits(d)
	require.NoError(t, err)
	assert.Equal(t, Money(9223372036854775807), m)
}

func TestRoundTrip(t *testing.T) {
	for _, m := range []Money{0, 1, -1, 999, 1000, 123456789, -500000} {
		got, err := ToMilliunits(FromMilliunits(m))
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
}

func TestParse(t *testing.T) {
	m, err := Parse(" 1,000.50 ")
	require.NoError(t, err)
	assert.Equal(t, Money(1000500), m)

	m, err = Parse("-75")
	require.NoError(t, err)
	assert.Equal(t, Money(-75000), m)

	_, err = Parse("")
	assert.Error(t, err)

	_, err = Parse("abc")
	assert.Error(t, err)

	_, err = Parse("10000000000000000")
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestString(t *testing.T) {
	assert.Equal(t, "-120.00", Money(-120000).String())
	assert.Equal(t, "0.00", Money(0).String())
	assert.Equal(t, "0.005", Money(5).String())
	assert.Equal(t, "0.01", Cent.String())
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, Money(5), Money(-5).Abs())
	assert.Equal(t, Money(-3), Min(-3, 4))
	assert.Equal(t, Money(4), Max(-3, 4))
	assert.Equal(t, Money(6), Sum(1, 2, 3))
	assert.True(t, Within(1000000, 1000010, Cent))
	assert.False(t, Within(1000000, 1000020, Cent))
}
