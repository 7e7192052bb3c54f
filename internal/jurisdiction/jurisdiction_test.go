package jurisdiction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefault_HasUSAndUK(t *testing.T) {
	table, err := LoadDefault()
	require.NoError(t, err)

	us, err := table.Get("US")
	require.NoError(t, err)
	assert.Equal(t, 1, us.TaxYearStartMonth)
	assert.True(t, us.IsLongTerm(400))
	assert.False(t, us.IsLongTerm(100))

	uk, err := table.Get("UK")
	require.NoError(t, err)
	assert.Equal(t, 4, uk.TaxYearStartMonth)
	assert.False(t, uk.IsLongTerm(1000), "UK table has no long-term distinction configured")
}

func TestGet_UnknownJurisdictionErrors(t *testing.T) {
	table, err := LoadDefault()
	require.NoError(t, err)

	_, err = table.Get("ZZ")
	require.Error(t, err)
}

func TestTaxYearBounds_StartsOnConfiguredMonth(t *testing.T) {
	table, err := LoadDefault()
	require.NoError(t, err)
	au, err := table.Get("AU")
	require.NoError(t, err)

	start, end := au.TaxYearBounds(2024)
	assert.Equal(t, 2024, start.Year())
	assert.Equal(t, 7, int(start.Month()))
	assert.Equal(t, 2025, end.Year())
	assert.Equal(t, 7, int(end.Month()))
}
