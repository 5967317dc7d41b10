package exporter

import (
	"jetton/domain"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	METRIC_ERROR_COUNT    = "error_count"
	METRIC_AUDIT_FAILURES = "audit_failure_count"
	METRIC_TRANSACTIONS   = "transaction_count"
	METRIC_TOTAL_SUPPLY   = "total_supply"
	METRIC_HOLDERS        = "holders"
	METRIC_REQUESTS       = "request_count"
)

var (
	mu            sync.RWMutex
	counters      map[string]prometheus.Counter
	counterVecs   map[string]*prometheus.CounterVec
	gauges        map[string]prometheus.Gauge
	defaultLabels = []string{"operation", "result"}
)

// Init creates the metrics and registers them to reg. A nil reg means the default registerer.
func Init(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	mu.Lock()
	defer mu.Unlock()

	// Create metric spaces
	counters = make(map[string]prometheus.Counter)
	counterVecs = make(map[string]*prometheus.CounterVec)
	gauges = make(map[string]prometheus.Gauge)

	// Register metrics
	counters[METRIC_ERROR_COUNT] = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "jetton",
		Subsystem: "ledger",
		Name:      METRIC_ERROR_COUNT,
		Help:      "Counts the internal errors of the service",
	})
	counters[METRIC_AUDIT_FAILURES] = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "jetton",
		Subsystem: "ledger",
		Name:      METRIC_AUDIT_FAILURES,
		Help:      "Counts the audits where the holders' balances did not add up to the total supply",
	})
	counterVecs[METRIC_TRANSACTIONS] = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jetton",
		Subsystem: "ledger",
		Name:      METRIC_TRANSACTIONS,
		Help:      "Counts the executed transactions by operation and exit code",
	}, defaultLabels)
	counterVecs[METRIC_REQUESTS] = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jetton",
		Subsystem: "ledger",
		Name:      METRIC_REQUESTS,
		Help:      "Counts the processed ledger requests by kind and final state",
	}, []string{"kind", "state"})
	gauges[METRIC_TOTAL_SUPPLY] = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "jetton",
		Subsystem: "ledger",
		Name:      METRIC_TOTAL_SUPPLY,
		Help:      "Total supply reported by the minter, in jettons",
	})
	gauges[METRIC_HOLDERS] = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "jetton",
		Subsystem: "ledger",
		Name:      METRIC_HOLDERS,
		Help:      "Number of deployed wallets",
	})

	for _, c := range counters {
		reg.MustRegister(c)
	}
	for _, c := range counterVecs {
		reg.MustRegister(c)
	}
	for _, g := range gauges {
		reg.MustRegister(g)
	}
}

func GetCounter(name string) prometheus.Counter {
	mu.RLock()
	defer mu.RUnlock()
	return counters[name]
}

func GetCounterVec(name string) *prometheus.CounterVec {
	mu.RLock()
	defer mu.RUnlock()
	return counterVecs[name]
}

func GetGauge(name string) prometheus.Gauge {
	mu.RLock()
	defer mu.RUnlock()
	return gauges[name]
}

// The helpers below do nothing until Init is called, so use cases run without metrics in tests.

func IncErrorCount() {
	if c := GetCounter(METRIC_ERROR_COUNT); c != nil {
		c.Inc()
	}
}

func IncAuditFailure() {
	if c := GetCounter(METRIC_AUDIT_FAILURES); c != nil {
		c.Inc()
	}
}

func ObserveTransaction(tx *domain.Transaction) {
	if c := GetCounterVec(METRIC_TRANSACTIONS); c != nil {
		c.WithLabelValues(domain.OpName(tx.Opcode()), tx.ExitCode.String()).Inc()
	}
}

func ObserveRequest(kind, state string) {
	if c := GetCounterVec(METRIC_REQUESTS); c != nil {
		c.WithLabelValues(kind, state).Inc()
	}
}

func SetTotalSupply(jettons float64) {
	if g := GetGauge(METRIC_TOTAL_SUPPLY); g != nil {
		g.Set(jettons)
	}
}

func SetHolders(n int) {
	if g := GetGauge(METRIC_HOLDERS); g != nil {
		g.Set(float64(n))
	}
}
