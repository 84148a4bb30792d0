package valueobject

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeFee_DefaultRate(t *testing.T) {
	// 10000 кобо при ставке 250 bps: сбор 250, удержание 10250, выплата 9750.
	fb, err := ComputeFee(10000, DefaultFeeRateBps)
	require.NoError(t, err)

	assert.Equal(t, int64(250), fb.ServiceFee)
	assert.Equal(t, int64(10250), fb.TotalDue)
	assert.Equal(t, int64(9750), fb.NetPayout)
}

func TestComputeFee_RoundHalfUp(t *testing.T) {
	cases := []struct {
		name       string
		baseAmount int64
		rateBps    int64
		wantFee    int64
	}{
		{"ровно половина вверх", 199, 250, 5},       // 4.975 -> 5
		{"ниже половины вниз", 100, 249, 2},         // 2.49 -> 2
		{"точное значение", 10000, 250, 250},        // без остатка
		{"минимальная сумма", 1, 250, 0},            // 0.025 -> 0
		{"половина ровно", 2, 2500, 1},              // 0.5 -> 1
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fb, err := ComputeFee(tc.baseAmount, tc.rateBps)
			require.NoError(t, err)
			assert.Equal(t, tc.wantFee, fb.ServiceFee)
		})
	}
}

func TestComputeFee_Invariants(t *testing.T) {
	// Инварианты арифметики сбора обязаны выполняться точно,
	// независимо от округления.
	amounts := []int64{1, 2, 3, 99, 100, 101, 9999, 10000, 10001, 123456789}
	rates := []int64{0, 1, 249, 250, 251, 5000, 9999}

	for _, base := range amounts {
		for _, rate := range rates {
			fb, err := ComputeFee(base, rate)
			require.NoError(t, err)

			assert.Equal(t, base, fb.ServiceFee+fb.NetPayout,
				"fee+netPayout должно равняться base (base=%d rate=%d)", base, rate)
			assert.Equal(t, base+fb.ServiceFee, fb.TotalDue,
				"totalDue должно равняться base+fee (base=%d rate=%d)", base, rate)
			assert.GreaterOrEqual(t, fb.NetPayout, int64(0))
		}
	}
}

func TestComputeFee_RejectsInvalidInput(t *testing.T) {
	_, err := ComputeFee(0, 250)
	assert.Error(t, err)

	_, err = ComputeFee(-100, 250)
	assert.Error(t, err)

	_, err = ComputeFee(10000, -1)
	assert.Error(t, err)

	_, err = ComputeFee(10000, 10000)
	assert.Error(t, err)
}

func TestSplitShare(t *testing.T) {
	// 60% от 9750 с округлением half-up.
	part, err := SplitShare(9750, 6000)
	require.NoError(t, err)
	assert.Equal(t, int64(5850), part)

	// 50% от нечётной суммы: 4875.5 -> 4876.
	part, err = SplitShare(9751, 5000)
	require.NoError(t, err)
	assert.Equal(t, int64(4876), part)
}

func TestSplitShare_RejectsInvalidShare(t *testing.T) {
	_, err := SplitShare(9750, 0)
	assert.Error(t, err)

	_, err = SplitShare(9750, 10000)
	assert.Error(t, err)
}
