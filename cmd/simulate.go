/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"jetton/domain"
	"jetton/domain/util"
	"jetton/usecase"
	"log"

	"github.com/spf13/cobra"
)

var simulateVerbose bool

// simulateCmd represents the simulate command
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Runs the configured scenario on a fresh ledger",
	Long: `Deploys a fresh ledger on the local substrate, applies the steps of the 'scenario'
configuration in order and prints every transaction. Steps declaring 'expect' fail the run
when they end with another exit code.`,
	Run: func(cmd *cobra.Command, args []string) {
		ledgerDependencyInject()
		defer zapLogger.Sync()

		journalInteractor = usecase.NewJournalInteractor(nil)

		steps := domain.GetScenario()
		traces, err := ledgerInteractor.Run(steps)
		printTraces(traces)
		_ = journalInteractor.Record(traces...)

		printSummary()
		if err != nil {
			log.Fatalf("❌ Scenario failed: %v\n", err.Error())
		}
		log.Printf("✅ Scenario of %v step(s) completed\n", len(steps))
	},
}

func printTraces(traces []*domain.Trace) {
	for i, trace := range traces {
		fmt.Printf("------------- TRACE %03d [%v] -----------------\n", i+1, trace.Id)
		for _, tx := range trace.Transactions {
			fmt.Printf("%v\n", domain.NewTransactionFormatter(tx))
			if !simulateVerbose {
				continue
			}
			fmt.Printf("      in:  %v\n", domain.NewMessageFormatter(tx.InMessage))
			for _, out := range tx.OutMessages {
				fmt.Printf("      out: %v\n", domain.NewMessageFormatter(out))
			}
		}
	}
}

func printSummary() {
	data, err := ledgerInteractor.JettonData()
	if err != nil {
		log.Printf("🔴 loading jetton data - %v\n", err.Error())
		return
	}
	minter, err := ledgerInteractor.Minter()
	if err != nil {
		log.Printf("🔴 loading minter - %v\n", err.Error())
		return
	}
	holders, err := ledgerInteractor.Holders()
	if err != nil {
		log.Printf("🔴 loading holders - %v\n", err.Error())
		return
	}

	fmt.Printf("------------- LEDGER -----------------\n")
	fmt.Printf("minter:       %v\n", domain.FormatAccountId(minter, domain.AddrFormatRaw))
	fmt.Printf("anti-bot:     %v\n", domain.FormatAccountId(data.AntiBot, domain.AddrFormatRaw))
	fmt.Printf("admin:        %v\n", domain.FormatAccountId(data.Admin, domain.AddrFormatRaw))
	fmt.Printf("total supply: %v\n", util.JettonString(data.TotalSupply, util.JettonDecimals))
	for i, holder := range holders {
		fmt.Printf("#%03d - %v %v\n", i+1, domain.FormatAccountId(holder.Owner, domain.AddrFormatRaw),
			util.JettonString(holder.Balance, util.JettonDecimals))
	}
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().BoolVarP(&simulateVerbose, "verbose", "v", false, "print the messages of every transaction")
}
