/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"jetton/domain"
	"log"

	"github.com/spf13/cobra"
)

var (
	requestFrom    string
	requestPayload domain.RequestPayload
)

// requestCmd represents the request command
var requestCmd = &cobra.Command{
	Use:   "request <mint|transfer|burn|whitelist|provide_wallet_address|change_admin|change_anti_bot|fund>",
	Short: "Queues a ledger request for a running service",
	Long: `Stores a ledger request in the database. A running 'start' service applies it on its
next processing round. Addresses may be principal names.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		defaultDependencyInject()
		defer dbPool.Close()

		request, err := requestInteractor.Enqueue(args[0], requestFrom, requestPayload)
		if err != nil {
			log.Fatalf("❌ Request is not queued: %v\n", err.Error())
		}
		fmt.Printf("%v\n", request.Id)
	},
}

func init() {
	rootCmd.AddCommand(requestCmd)

	requestCmd.Flags().StringVar(&requestFrom, "from", "", "sender, the ledger admin when empty")
	requestCmd.Flags().StringVar(&requestPayload.To, "to", "", "destination, owner or new admin")
	requestCmd.Flags().StringVar(&requestPayload.Amount, "amount", "", "amount of jettons")
	requestCmd.Flags().StringVar(&requestPayload.Forward, "forward", "", "forwarded TON")
	requestCmd.Flags().StringVar(&requestPayload.Value, "value", "", "attached TON")
	requestCmd.Flags().Int32Var(&requestPayload.Flag, "flag", 0, "whitelist flag, negative to whitelist")
}
