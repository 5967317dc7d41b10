package exporter

import (
	"jetton/domain"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tonkeeper/tongo/boc"
)

func TestHelpersBeforeInit(t *testing.T) {
	mu.Lock()
	counters, counterVecs, gauges = nil, nil, nil
	mu.Unlock()

	assert.NotPanics(t, func() {
		IncErrorCount()
		IncAuditFailure()
		SetTotalSupply(1)
		SetHolders(1)
		ObserveRequest("mint", "done")
	})
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	Init(reg)

	IncErrorCount()
	IncErrorCount()
	IncAuditFailure()
	SetTotalSupply(12.5)
	SetHolders(3)
	ObserveRequest(domain.StepBurn, domain.RequestStateFailed)

	body := boc.NewCell()
	require.NoError(t, body.WriteUint(uint64(domain.OpTransfer), 32))
	tx := &domain.Transaction{
		InMessage: &domain.Message{Body: body},
		ExitCode:  domain.ExitPerTradeLimit,
	}
	ObserveTransaction(tx)
	ObserveTransaction(tx)

	assert.Equal(t, 2.0, testutil.ToFloat64(GetCounter(METRIC_ERROR_COUNT)))
	assert.Equal(t, 1.0, testutil.ToFloat64(GetCounter(METRIC_AUDIT_FAILURES)))
	assert.Equal(t, 12.5, testutil.ToFloat64(GetGauge(METRIC_TOTAL_SUPPLY)))
	assert.Equal(t, 3.0, testutil.ToFloat64(GetGauge(METRIC_HOLDERS)))
	assert.Equal(t, 2.0, testutil.ToFloat64(GetCounterVec(METRIC_TRANSACTIONS).WithLabelValues("transfer", "PerTradeLimitExceeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(GetCounterVec(METRIC_REQUESTS).WithLabelValues("burn", "failed")))

	count, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 6, count)
}
