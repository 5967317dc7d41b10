package util

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJettonString(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("0", JettonString(nil, JettonDecimals))
	assert.Equal("0", JettonString(big.NewInt(0), JettonDecimals))
	assert.Equal("1,000.23", JettonString(big.NewInt(1000230000000), JettonDecimals))
	assert.Equal("0.000000001", JettonString(big.NewInt(1), JettonDecimals))
	assert.Equal("12,345", JettonString(big.NewInt(12345000000000), JettonDecimals))
}

func TestGramToTonString(t *testing.T) {
	assert.Equal(t, "1.5 Ton", GramToTonString(1500000000))
	assert.Equal(t, "1,804,014 Gram", GramString(1804014))
}
