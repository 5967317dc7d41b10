/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"jetton/domain"
	"jetton/domain/codec"
	"jetton/domain/util"
	"log"

	"github.com/spf13/cobra"
)

var (
	inspectWallet  string
	inspectHistory int
)

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect [minter-address]",
	Short: "Reads a jetton deployed on the live network",
	Long: `Prints get_jetton_data of the minter ('minter_address' when no argument is given) and,
with --wallet, get_wallet_data of a jetton wallet.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		minter := domain.GetMinterAccountId()
		if len(args) == 1 {
			accid, err := domain.ParseAccountId(args[0])
			if err != nil {
				log.Fatalf("❌ Invalid minter address: %v\n", err.Error())
			}
			minter = &accid
		}
		if minter == nil {
			log.Fatalf("❌ No minter address is given\n")
		}

		networkDependencyInject()

		data, err := chainInteractor.GetJettonData(*minter)
		if err != nil {
			log.Fatalf("❌ Reading jetton data failed: %v\n", err.Error())
		}
		fmt.Printf("------------- JETTON -----------------\n")
		fmt.Printf("minter:       %v\n", domain.FormatAccountId(*minter, domain.AddrFormatBouncable))
		fmt.Printf("admin:        %v\n", domain.FormatAccountId(data.Admin, domain.AddrFormatBouncable))
		fmt.Printf("anti-bot:     %v\n", domain.FormatAccountId(data.AntiBot, domain.AddrFormatBouncable))
		fmt.Printf("mintable:     %v\n", data.Mintable)
		fmt.Printf("total supply: %v\n", util.JettonString(data.TotalSupply, util.JettonDecimals))
		if content, err := codec.DecodeMetadata(data.Content); err == nil {
			printMetadata(content)
		}

		if inspectWallet != "" {
			accid, err := domain.ParseAccountId(inspectWallet)
			if err != nil {
				log.Fatalf("❌ Invalid wallet address: %v\n", err.Error())
			}
			wallet, err := chainInteractor.GetWalletData(accid)
			if err != nil {
				log.Fatalf("❌ Reading wallet data failed: %v\n", err.Error())
			}
			fmt.Printf("------------- WALLET -----------------\n")
			fmt.Printf("owner:        %v\n", domain.FormatAccountId(wallet.Owner, domain.AddrFormatBouncable))
			fmt.Printf("balance:      %v\n", util.JettonString(wallet.Balance, util.JettonDecimals))
			if wallet.Minter != *minter {
				fmt.Printf("⚠️ wallet belongs to minter %v\n", domain.FormatAccountId(wallet.Minter, domain.AddrFormatBouncable))
			}
		}

		if inspectHistory > 0 {
			activity, err := chainInteractor.RecentActivity(*minter, inspectHistory)
			if err != nil {
				log.Fatalf("❌ Reading transactions failed: %v\n", err.Error())
			}
			fmt.Printf("------------- RECENT TRANSACTIONS -----------------\n")
			for _, a := range activity {
				result := "✅"
				if !a.Success {
					result = "❌"
				}
				fmt.Printf("#%v %v %-24v %v TON %v\n", a.Lt, a.Time.Local().Format("2006-01-02 15:04:05"),
					domain.OpName(a.Opcode), util.GramToTonString(int64(a.Value)), result)
			}
		}
	},
}

func printMetadata(content domain.Metadata) {
	if !content.OnChain {
		fmt.Printf("content:      %v\n", content.Uri)
		return
	}
	for key, value := range content.Entries {
		fmt.Printf("content:      %v = %v\n", key, string(value))
	}
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringVar(&inspectWallet, "wallet", "", "jetton wallet to read")
	inspectCmd.Flags().IntVar(&inspectHistory, "history", 0, "number of recent minter transactions to list")
}
