package domain

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetConfig(t *testing.T, values map[string]interface{}) {
	viper.Reset()
	setDefaults()
	for key, value := range values {
		viper.Set(key, value)
	}
	t.Cleanup(func() {
		viper.Reset()
		setDefaults()
	})
}

func TestConfigDefaults(t *testing.T) {
	resetConfig(t, nil)
	require.NoError(t, initializeVariables())

	assert.True(t, IsTestNet())
	assert.False(t, HasDriverWallet())
	assert.Nil(t, GetMinterAccountId())
	assert.Equal(t, PrincipalAddress("admin"), GetAdminAccountId())
	assert.Equal(t, DefaultFeeSchedule(), GetFeeSchedule())
	assert.Equal(t, PolicyEmbedded, GetPolicyMode())
	assert.Equal(t, 10*time.Second, GetProcessInterval())
	assert.Equal(t, time.Minute, GetAuditInterval())
	assert.Equal(t, 3, GetMaxRetry())
	assert.Empty(t, GetScenario())

	limits := GetPolicyLimits(100)
	assert.Equal(t, uint64(5), limits.BlockInterval)
	assert.Equal(t, uint64(10), limits.TimeLimit)
	assert.Equal(t, uint64(100+3600), limits.DisableTime)
	assert.Equal(t, 0, MustParseAmount("1", 9).Cmp(limits.PerTrade))

	// the returned limits are copies
	limits.PerTrade.SetInt64(0)
	assert.Equal(t, 0, MustParseAmount("1", 9).Cmp(GetPolicyLimits(100).PerTrade))
}

func TestConfigErrors(t *testing.T) {
	cases := []struct {
		name   string
		values map[string]interface{}
		err    error
	}{
		{"network", map[string]interface{}{"network": "devnet"}, ErrorInvalidNetwork},
		{"mnemonic", map[string]interface{}{"mnemonic": "a", "mnemonic_url": "b"}, ErrorMnemonicConflict},
		{"minter", map[string]interface{}{"minter_address": "0:zz"}, ErrorInvalidMinterAddress},
		{"admin", map[string]interface{}{"ledger.admin": "not a name"}, ErrorInvalidAdminAddress},
		{"fee", map[string]interface{}{"fees.forward_fee": 0}, ErrorInvalidFee},
		{"mode", map[string]interface{}{"anti_bot.policy_mode": "remote"}, ErrorInvalidPolicyMode},
		{"limit", map[string]interface{}{"anti_bot.per_trade": "-1"}, ErrorInvalidAntiBotLimit},
		{"time", map[string]interface{}{"anti_bot.time_limit": "soon"}, ErrorInvalidAntiBotTime},
		{"process", map[string]interface{}{"process_interval": "0s"}, ErrorInvalidProcessInterval},
		{"audit", map[string]interface{}{"audit_interval": "-1m"}, ErrorInvalidAuditInterval},
		{"scenario", map[string]interface{}{"scenario": []map[string]interface{}{{"action": "steal"}}}, ErrorInvalidScenario},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			resetConfig(t, c.values)
			assert.ErrorIs(t, initializeVariables(), c.err)
		})
	}
}

func TestConfigScenario(t *testing.T) {
	resetConfig(t, map[string]interface{}{
		"network":              "MainNet",
		"anti_bot.policy_mode": "External",
		"scenario": []map[string]interface{}{
			{"action": "mint", "to": "alice", "amount": "10"},
			{"action": "advance", "advance": "6s"},
			{"action": "transfer", "from": "alice", "to": "bob", "amount": "2", "expect": "901"},
		},
	})
	require.NoError(t, initializeVariables())

	assert.False(t, IsTestNet())
	assert.Equal(t, PolicyExternal, GetPolicyMode())
	steps := GetScenario()
	require.Len(t, steps, 3)
	assert.Equal(t, "alice", steps[0].To)
	assert.Equal(t, "6s", steps[1].Advance)

	code, ok, err := steps[2].Expected()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, ExitCode(901), code)
}
