package types

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		in   string
		want Quantity
	}{
		{"12", NewQuantity(12)},
		{"-2", NewQuantity(-2)},
		{"0.5", Quantity(5000)},
		{"3.14159", Quantity(31415)},
		{"+1.0001", Quantity(10001)},
		{"1e2", NewQuantity(100)},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseQuantity(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "abc", "--5", "+-5", "1.-5", "1.5x", "1 000", ".", "-"} {
		_, err := ParseQuantity(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestParseQuantity_Range(t *testing.T) {
	got, err := ParseQuantity("922337203685477.5807")
	require.NoError(t, err)
	assert.Equal(t, Quantity(math.MaxInt64), got)

	for _, tooBig := range []string{"922337203685477.5808", "1000000000000000", "-1000000000000000", "1e300"} {
		_, err := ParseQuantity(tooBig)
		assert.ErrorIs(t, err, ErrQuantityOverflow, "input %q", tooBig)
	}
}

func TestQuantity_CheckedAdd(t *testing.T) {
	sum, err := NewQuantity(2).CheckedAdd(NewQuantity(-5))
	require.NoError(t, err)
	assert.Equal(t, NewQuantity(-3), sum)

	_, err = Quantity(math.MaxInt64).CheckedAdd(1)
	assert.ErrorIs(t, err, ErrQuantityOverflow)
	_, err = Quantity(-math.MaxInt64).CheckedAdd(-1)
	assert.ErrorIs(t, err, ErrQuantityOverflow)
}

func TestQuantity_JSONAcceptsNumberAndString(t *testing.T) {
	var payload struct {
		A Quantity `json:"a"`
		B Quantity `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 52, "b": "-1.25"}`), &payload))
	assert.Equal(t, NewQuantity(52), payload.A)
	assert.Equal(t, Quantity(-12500), payload.B)

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 52.0000, "b": -1.2500}`, string(out))
}

func TestQuantity_ValueAndMul(t *testing.T) {
	variance := NewQuantity(-2)
	assert.True(t, variance.Value(MustMoney("1500000")).Equal(MustMoney("-3000000")))

	perUnit := Quantity(5000) // 0.5
	assert.Equal(t, NewQuantity(5), perUnit.Mul(NewQuantity(10)))
	assert.Equal(t, "-2.0000", variance.String())
}
