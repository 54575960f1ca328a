package protocol

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clob/domain/orderbook"
)

func TestParseValidCommands(t *testing.T) {
	tests := []struct {
		line string
		want Command
	}{
		{"SUB LO B o1 10 100", Command{Kind: Submit, Order: orderbook.NewLimit("o1", orderbook.Buy, 10, 100)}},
		{"SUB LO S o2 5 90", Command{Kind: Submit, Order: orderbook.NewLimit("o2", orderbook.Sell, 5, 90)}},
		{"SUB MO B o3 10", Command{Kind: Submit, Order: orderbook.NewMarket("o3", orderbook.Buy, 10)}},
		{"  SUB\tMO S x 0  ", Command{Kind: Submit, Order: orderbook.NewMarket("x", orderbook.Sell, 0)}},
		{"SUB MO B o3 10 100", Command{Kind: Submit, Order: orderbook.NewMarket("o3", orderbook.Buy, 10)}},
		{"CXL o1", Command{Kind: Cancel, ID: "o1"}},
		{"END", Command{Kind: End}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := Parse(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, line := range []string{
		"FOO o1",
		"sub LO B o1 10 100",
		"SUB XO B o1 10 100", // unknown kind is an error, not a market order
		"SUB LO X o1 10 100", // unknown side is an error, not a buy
		"SUB LO B o1 10",
		"SUB LO B o1 ten 100",
		"SUB LO B o1 10 -5",
		"SUB LO B o1 10 100 7",
		"SUB MO B o1",
		"CXL",
		"CXL a b",
		"END now",
	} {
		t.Run(line, func(t *testing.T) {
			_, err := Parse(line)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformed)

			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, line, pe.Line)
		})
	}
}

func TestParseBlank(t *testing.T) {
	_, err := Parse("   ")
	assert.ErrorIs(t, err, ErrBlank)
	assert.NotErrorIs(t, err, ErrMalformed)
}

func TestFormatRoundTrip(t *testing.T) {
	for _, line := range []string{"SUB LO B o1 10 100", "SUB MO S o2 3", "CXL o1", "END"} {
		c, err := Parse(line)
		require.NoError(t, err)
		assert.Equal(t, line, Format(c))
	}
}
