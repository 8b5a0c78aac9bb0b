package money

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		name     string
		minor    int64
		currency string
		want     string
	}{
		{name: "usd cents", minor: 2599, currency: "usd", want: "25.99"},
		{name: "usd whole", minor: 10000, currency: "USD", want: "100.00"},
		{name: "usd zero", minor: 0, currency: "usd", want: "0.00"},
		{name: "usd sub-dollar", minor: 5, currency: "usd", want: "0.05"},
		{name: "negative refund", minor: -2599, currency: "usd", want: "-25.99"},
		{name: "jpy zero exponent", minor: 2599, currency: "jpy", want: "2599"},
		{name: "kwd three decimals", minor: 2599, currency: "kwd", want: "2.599"},
		{name: "unknown defaults to two", minor: 1234, currency: "xyz", want: "12.34"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, FormatAmount(tc.minor, tc.currency))
		})
	}
}

func TestFormat(t *testing.T) {
	require.Equal(t, "25.99 USD", Format(2599, "usd"))
	require.Equal(t, "2599 JPY", Format(2599, " jpy "))
	require.Equal(t, "12.34", Format(1234, ""))
}

func TestExponent(t *testing.T) {
	require.EqualValues(t, 2, Exponent("usd"))
	require.EqualValues(t, 0, Exponent("JPY"))
	require.EqualValues(t, 3, Exponent("bhd"))
	require.EqualValues(t, 2, Exponent(""))
}
