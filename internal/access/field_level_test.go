package access_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scopeguard/scopeguard/internal/access"
)

func TestLessRestrictive(t *testing.T) {
	testCases := []struct {
		a, b access.FieldAccessLevel
		want access.FieldAccessLevel
	}{
		{access.FieldFull, access.FieldMasked, access.FieldFull},
		{access.FieldMasked, access.FieldRead, access.FieldRead},
		{access.FieldPartial, access.FieldMasked, access.FieldPartial},
		{access.FieldHidden, access.FieldMasked, access.FieldMasked},
		{access.FieldRead, access.FieldDenied, access.FieldRead},
		{access.FieldHidden, access.FieldDenied, access.FieldDenied},
		{access.FieldHidden, access.FieldHidden, access.FieldHidden},
	}

	for _, tc := range testCases {
		t.Run(tc.a.String()+"/"+tc.b.String(), func(t *testing.T) {
			assert.Equal(t, tc.want, access.LessRestrictive(tc.a, tc.b))
			assert.Equal(t, tc.want, access.LessRestrictive(tc.b, tc.a))
		})
	}
}

func TestFieldAccessLevelPredicates(t *testing.T) {
	assert.True(t, access.FieldMasked.Readable())
	assert.False(t, access.FieldHidden.Readable())
	assert.False(t, access.FieldDenied.Readable())
	assert.True(t, access.FieldDenied.Terminal())
	assert.False(t, access.FieldPartial.Terminal())
	assert.False(t, access.FieldAccessLevel(0).Valid())
}

func TestParseFieldAccessLevel(t *testing.T) {
	l, err := access.ParseFieldAccessLevel("MASKED")
	require.NoError(t, err)
	assert.Equal(t, access.FieldMasked, l)

	_, err = access.ParseFieldAccessLevel("")
	require.ErrorIs(t, err, access.ErrValidation)

	_, err = access.FieldAccessLevel(0).MarshalText()
	require.ErrorIs(t, err, access.ErrValidation)
}

func TestMaskingStrategyForLevel(t *testing.T) {
	testCases := []struct {
		name     string
		strategy access.MaskingStrategy
		level    access.FieldAccessLevel
		want     access.MaskingStrategy
	}{
		{"masked without strategy redacts", access.MaskUnset, access.FieldMasked, access.MaskRedact},
		{"masked with none redacts", access.MaskNone, access.FieldMasked, access.MaskRedact},
		{"masked keeps explicit strategy", access.MaskDomainPreserving, access.FieldMasked, access.MaskDomainPreserving},
		{"partial defaults to reveal", access.MaskUnset, access.FieldPartial, access.MaskPartialReveal},
		{"partial keeps currency", access.MaskCurrencyRound, access.FieldPartial, access.MaskCurrencyRound},
		{"full never transforms", access.MaskRedact, access.FieldFull, access.MaskNone},
		{"read never transforms", access.MaskRedact, access.FieldRead, access.MaskNone},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.strategy.ForLevel(tc.level))
		})
	}
}

func TestMaskingStrategyScan(t *testing.T) {
	var s access.MaskingStrategy

	require.NoError(t, s.Scan("currency-round"))
	assert.Equal(t, access.MaskCurrencyRound, s)

	require.NoError(t, s.Scan(nil))
	assert.Equal(t, access.MaskUnset, s)

	require.NoError(t, s.Scan(""))
	assert.Equal(t, access.MaskUnset, s)

	require.ErrorIs(t, s.Scan("shuffle"), access.ErrValidation)
}
