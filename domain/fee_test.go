package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tonkeeper/tongo/tlb"
)

const testForwardFee = tlb.Grams(1804014)

func TestMinimumValueTransfer(t *testing.T) {
	assert := assert.New(t)

	// no forward amount: one forward hop, two gas hops, storage
	minimum, err := MinimumValue(TransferChain(0, 0), testForwardFee, GasReserve)
	assert.Nil(err)
	assert.Equal(tlb.Grams(1804014+2*15000000+10000000), minimum)

	// a notification adds a forward hop and the forward amount itself
	minimum, err = MinimumValue(TransferChain(100000000, 0), testForwardFee, GasReserve)
	assert.Nil(err)
	assert.Equal(tlb.Grams(100000000+2*1804014+2*15000000+10000000), minimum)

	// the policy round trip pays for its own hops
	minimum, err = MinimumValue(TransferChain(0, PolicyHops), testForwardFee, GasReserve)
	assert.Nil(err)
	assert.Equal(tlb.Grams(5*1804014+6*15000000+10000000), minimum)
}

func TestMinimumValueBurnIsStrict(t *testing.T) {
	assert := assert.New(t)

	minimum, err := MinimumValue(BurnChain(), testForwardFee, GasReserve)
	assert.Nil(err)
	assert.Equal(tlb.Grams(1804014+2*15000000), minimum)

	assert.False(Covers(minimum-1, BurnChain(), testForwardFee, GasReserve))
	assert.False(Covers(minimum, BurnChain(), testForwardFee, GasReserve))
	assert.True(Covers(minimum+1, BurnChain(), testForwardFee, GasReserve))
}

func TestMinimumValueOverflow(t *testing.T) {
	assert := assert.New(t)

	_, err := MinimumValue(Chain{ForwardHops: 3, GasHops: 2}, tlb.Grams(math.MaxUint64/2), GasReserve)
	assert.ErrorIs(err, ErrorFeeOverflow)

	_, err = MinimumValue(Chain{ForwardHops: 1, ForwardAmount: math.MaxUint64}, testForwardFee, GasReserve)
	assert.ErrorIs(err, ErrorFeeOverflow)

	assert.False(Covers(math.MaxUint64, Chain{ForwardHops: 1, ForwardAmount: math.MaxUint64}, testForwardFee, GasReserve))
}
