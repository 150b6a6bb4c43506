package data

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	maxLen := uint32(255)
	precision, scale := uint32(10), uint32(2)

	types := []Type{
		Int32(),
		UInt64(),
		Float64Type(),
		Boolean(),
		Utf8String(&maxLen),
		Binary(),
		Decimal(&precision, &scale),
		Uuid(),
		Int8(),
	}
	values := []Value{
		NewInt32(-42),
		NewUInt64(18446744073709551615),
		NewFloat64(3.14159),
		NewBoolean(true),
		NewString("hello, world"),
		NewBinary([]byte{0xde, 0xad, 0xbe, 0xef}),
		NewDecimal(&precision, &scale, "123.45"),
		NewUuid("5b1f6f1e-27c8-4b3a-9e2e-96a0e9f0a111"),
		NewNull(Int8()),
	}

	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteRow(values, types))

	r := NewReader(&buf)
	got, err := r.ReadRow(types)
	require.NoError(t, err)

	require.Len(t, got, len(values))
	for i := range values {
		if values[i].IsNull {
			assert.True(t, got[i].IsNull, "column %d should be null", i)
			continue
		}
		assert.True(t, values[i].NullSafeEqual(got[i]), "column %d: want %#v got %#v", i, values[i], got[i])
	}
}

func TestWriterReaderStreamsMultipleRows(t *testing.T) {
	types := []Type{Int64(), Utf8String(nil)}
	rows := [][]Value{
		{NewInt64(1), NewString("Mary")},
		{NewInt64(2), NewString("John")},
		{NewInt64(3), NewString("Gary")},
	}

	var buf bytes.Buffer
	w := NewWriter(&buf)
	for _, row := range rows {
		require.NoError(t, w.WriteRow(row, types))
	}

	r := NewReader(&buf)
	for i, want := range rows {
		got, err := r.ReadRow(types)
		require.NoError(t, err, "row %d", i)
		assert.Equal(t, want[0].Int(), got[0].Int())
		assert.Equal(t, want[1].String(), got[1].String())
	}
}

func TestValueCoercionWidening(t *testing.T) {
	v := NewInt32(7)

	asString, err := v.Cast(Utf8String(nil))
	require.NoError(t, err)
	assert.Equal(t, "7", asString.String())

	precision, scale := uint32(5), uint32(0)
	asDecimal, err := v.Cast(Decimal(&precision, &scale))
	require.NoError(t, err)
	assert.Equal(t, "7", asDecimal.String())

	asInt64, err := v.Cast(Int64())
	require.NoError(t, err)
	assert.Equal(t, int64(7), asInt64.Int())
}

func TestValueCoercionNarrowingFails(t *testing.T) {
	v := NewString("7")
	_, err := v.Cast(Int32())
	require.Error(t, err)
}

func TestNullSafeEqual(t *testing.T) {
	a := NewNull(Int32())
	b := NewNull(Int32())
	c := NewInt32(1)

	assert.True(t, a.NullSafeEqual(b))
	assert.False(t, a.Equal(b))
	assert.False(t, a.NullSafeEqual(c))
	assert.False(t, c.Equal(a))
}

func TestHashKeyTotalForFloats(t *testing.T) {
	nan1 := NewFloat64(float64(0) / float64(0))
	nan2 := NewFloat64(float64(0) / float64(0))
	assert.Equal(t, nan1.HashKey(), nan2.HashKey())
}
