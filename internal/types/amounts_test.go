package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitAmount(t *testing.T) {
	assert.Nil(t, SplitAmount(0))
	assert.Equal(t, []uint64{1}, SplitAmount(1))
	assert.Equal(t, []uint64{1, 2}, SplitAmount(3))
	assert.Equal(t, []uint64{64}, SplitAmount(64))
	assert.Equal(t, []uint64{1, 2, 4, 8, 16, 32, 64}, SplitAmount(127))
	assert.Equal(t, []uint64{8, 32, 64, 128}, SplitAmount(232))
}

func TestSplitAmountSumsBack(t *testing.T) {
	for _, amount := range []uint64{1, 2, 5, 21, 500, 999, 4096, 123456789} {
		assert.Equal(t, amount, SumAmounts(SplitAmount(amount)), "amount %d", amount)
	}
}
