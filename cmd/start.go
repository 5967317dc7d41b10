/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"jetton/domain"
	"jetton/interface/exporter"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Starts the ledger service",
	Long: `Deploys the ledger on the local substrate, then processes the queued ledger requests
and audits the supply periodically. Metrics are served on 'metrics_addr'. Stop it with SIGINT or SIGTERM.`,
	Run: func(cmd *cobra.Command, args []string) {
		log.Println("start called.")

		exporter.Init(nil)
		ledgerDependencyInject()
		defaultDependencyInject()
		defer dbPool.Close()

		server := serveMetrics(domain.GetMetricsAddr())

		quit := make(chan bool)
		processTicker := schedule(processRequests, domain.GetProcessInterval(), quit)
		auditTicker := schedule(audit, domain.GetAuditInterval(), quit)

		signal.Ignore()
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		s := <-stop
		log.Printf("Got signal '%v', stopping", s)

		close(quit)
		processTicker.Stop()
		auditTicker.Stop()
		if err := server.Close(); err != nil {
			log.Printf("⚠️ closing metrics server - %v\n", err.Error())
		}
		_ = zapLogger.Sync()
	},
}

func schedule(task func(), interval time.Duration, done chan bool) *time.Ticker {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {

			case <-ticker.C:
				ticker.Stop()
				task()
				ticker.Reset(interval)

			case <-done:
				return
			}
		}
	}()
	return ticker
}

func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("🔴 serving metrics on %v - %v\n", addr, err.Error())
		}
	}()
	return server
}

func processRequests() {
	ledgerInteractor.SyncClock(uint64(time.Now().Unix()))

	processed, err := requestInteractor.ProcessTriable(domain.GetMaxRetry())
	if err != nil {
		log.Printf("❌ No request is processed due to error: %v\n", err.Error())
		return
	}
	if processed > 0 {
		log.Printf("%v request(s) processed\n", processed)
	}
}

func audit() {
	lastLt, err := journalRepository.MaxLt()
	if err != nil {
		log.Printf("⚠️ reading the journal position - %v\n", err.Error())
	}

	memo, err := auditInteractor.Audit(lastLt)
	if err != nil {
		log.Printf("❌ Audit failed: %v\n", err.Error())
		return
	}
	log.Printf("✅ Audit passed [holders: %v, total supply: %v]\n", memo.Holders, memo.TotalSupply)
}

func init() {
	rootCmd.AddCommand(startCmd)
}
