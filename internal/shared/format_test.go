package shared

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestFormatBRL(t *testing.T) {
	require.Equal(t, "R$ 1.234,56", FormatBRL(decimal.RequireFromString("1234.56")))
	require.Equal(t, "R$ 0,00", FormatBRL(decimal.Zero))
	require.Equal(t, "R$ 10,50", FormatBRL(decimal.RequireFromString("10.499")))
	require.Equal(t, "R$ -1.234,56", FormatBRL(decimal.RequireFromString("-1234.56")))
}

func TestFormatBRLKeepsDigitsForLargeAmounts(t *testing.T) {
	// well past float64's 15-16 significant digits
	require.Equal(t, "R$ 123.456.789.012.345.678,90",
		FormatBRL(decimal.RequireFromString("123456789012345678.90")))
	require.Equal(t, "R$ 9.007.199.254.740.993,01",
		FormatBRL(decimal.RequireFromString("9007199254740993.01")))
}

func TestFormatCode(t *testing.T) {
	require.Equal(t, "PV20260042", FormatCode("PV", 2026, 42))
	require.Equal(t, "CR20261234", FormatCode("CR", 2026, 1234))
	// sequences past four digits keep growing instead of wrapping
	require.Equal(t, "CP202610000", FormatCode("CP", 2026, 10000))
}
