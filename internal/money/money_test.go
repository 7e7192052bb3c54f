package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrency_FiatDetection(t *testing.T) {
	assert.True(t, NewCurrency("usd").IsFiat())
	assert.True(t, NewCurrency(" eur ").IsFiat())
	assert.False(t, NewCurrency("BTC").IsFiat())
	assert.False(t, NewCurrency("dot").IsFiat())
}

func TestCurrency_Equal(t *testing.T) {
	assert.True(t, NewCurrency("usd").Equal(NewCurrency("USD")))
	assert.False(t, NewCurrency("usd").Equal(NewCurrency("usdc")))
}

func TestDecimal_RoundTrip(t *testing.T) {
	cases := []string{"0", "0.00000001", "123456789012345678.123456789", "-42.5"}
	for _, c := range cases {
		d, err := NewDecimal(c)
		require.NoError(t, err)
		formatted := FormatDecimal(d)
		assert.NotContains(t, formatted, "e")
		assert.NotContains(t, formatted, "E")

		roundTripped, err := NewDecimal(formatted)
		require.NoError(t, err)
		assert.True(t, d.Equal(roundTripped), "round-trip mismatch for %s: got %s", c, formatted)
	}
}

func TestDecimal_RejectsScientificNotation(t *testing.T) {
	_, err := NewDecimal("1.5e10")
	require.Error(t, err)
}

func TestMoney_Add_MismatchedCurrencyPanics(t *testing.T) {
	usd, _ := NewDecimal("10")
	btc, _ := NewDecimal("1")
	a := NewMoney(usd, NewCurrency("USD"))
	b := NewMoney(btc, NewCurrency("BTC"))
	assert.Panics(t, func() { a.Add(b) })
}

func TestMoney_Add(t *testing.T) {
	a, _ := NewDecimal("10.5")
	b, _ := NewDecimal("4.25")
	sum := NewMoney(a, NewCurrency("USD")).Add(NewMoney(b, NewCurrency("USD")))
	assert.Equal(t, "14.75", FormatDecimal(sum.Amount))
}
