package domain

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAmountOverflow(t *testing.T) {
	assert := assert.New(t)

	sum, err := AddAmount(big.NewInt(2), big.NewInt(3))
	assert.Nil(err)
	assert.Equal(int64(5), sum.Int64())

	_, err = AddAmount(MaxAmount, big.NewInt(1))
	assert.ErrorIs(err, ErrorAmountOverflow)

	sum, err = AddAmount(MaxAmount, big.NewInt(0))
	assert.Nil(err)
	assert.Equal(0, sum.Cmp(MaxAmount))
}

func TestSubAmountUnderflow(t *testing.T) {
	assert := assert.New(t)

	a := big.NewInt(10)
	diff, err := SubAmount(a, big.NewInt(10))
	assert.Nil(err)
	assert.Equal(0, diff.Sign())
	assert.Equal(int64(10), a.Int64(), "arguments are left untouched")

	_, err = SubAmount(a, big.NewInt(11))
	assert.ErrorIs(err, ErrorAmountUnderflow)

	_, err = SubAmount(a, big.NewInt(-1))
	assert.ErrorIs(err, ErrorNegativeAmount)
}

func TestParseAmount(t *testing.T) {
	assert := assert.New(t)

	v, err := ParseAmount("1000.23", 9)
	require.Nil(t, err)
	assert.Equal("1000230000000", v.String())

	v, err = ParseAmount("42", 9)
	require.Nil(t, err)
	assert.Equal("42000000000", v.String())

	_, err = ParseAmount("0.0000000001", 9)
	assert.ErrorIs(err, ErrorInvalidAmount)

	_, err = ParseAmount("-1", 9)
	assert.Error(err)

	_, err = ParseAmount("abc", 9)
	assert.ErrorIs(err, ErrorInvalidAmount)
}

func TestExitCodeOf(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(ExitOk, ExitCodeOf(nil))
	assert.Equal(ExitNotAdmin, ExitCodeOf(Abort(ExitNotAdmin)))
	assert.Equal(ExitMalformedRecord, ExitCodeOf(ErrorInvalidAmount))
	assert.Equal("PerTradeLimitExceeded", ExitPerTradeLimit.String())
	assert.Equal("Exit(1234)", ExitCode(1234).String())
}
