/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"jetton/domain"
	"jetton/domain/codec"
	"jetton/domain/util"
	"jetton/usecase"
	"log"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/tonkeeper/tongo"
	"github.com/tonkeeper/tongo/tlb"
)

var (
	sendTo      string
	sendAmount  string
	sendValue   string
	sendForward string
	sendFlag    int32
	sendWallet  string
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send <mint|transfer|burn|whitelist>",
	Short: "Sends a ledger message to the live jetton through the driver wallet",
	Long: `Builds the body of the operation and sends it from the driver wallet ('mnemonic' or
'mnemonic_url'). Mint and whitelist go to 'minter_address'; transfer and burn go to the driver's
jetton wallet given by --wallet.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{domain.StepMint, domain.StepTransfer, domain.StepBurn, domain.StepWhiteList},
	Run: func(cmd *cobra.Command, args []string) {
		if !domain.HasDriverWallet() {
			log.Fatalf("❌ No driver wallet is configured\n")
		}
		networkDependencyInject()

		dest, value, body, err := buildSend(strings.ToLower(args[0]))
		if err != nil {
			log.Fatalf("❌ Message is not built: %v\n", err.Error())
		}

		err = messengerInteractor.Send(dest, value, body)
		if err != nil {
			log.Fatalf("❌ Message is not sent: %v\n", err.Error())
		}
		log.Printf("✅ %v sent to %v\n", domain.OpName(body.Opcode()), dest.ToHuman(true, domain.IsTestNet()))
	},
}

func buildSend(action string) (tongo.AccountID, tlb.Grams, codec.Body, error) {
	queryId := uint64(time.Now().Unix())
	driver := messengerInteractor.Address()

	forward, err := parseTonFlag(sendForward, 0)
	if err != nil {
		return tongo.AccountID{}, 0, nil, err
	}

	switch action {
	case domain.StepMint, domain.StepWhiteList:
		minter := domain.GetMinterAccountId()
		if minter == nil {
			return tongo.AccountID{}, 0, nil, domain.ErrorInvalidMinterAddress
		}
		to, err := domain.ParseAccountId(sendTo)
		if err != nil {
			return tongo.AccountID{}, 0, nil, err
		}

		if action == domain.StepWhiteList {
			if forward == 0 {
				forward = domain.TonToGrams(usecase.DefaultAdminTon)
			}
			value, err := parseTonFlag(sendValue, forward+domain.GasReserve)
			body := &codec.UpdateWhiteListBody{QueryId: queryId, User: to, ForwardValue: forward, Flag: sendFlag}
			return *minter, value, body, err
		}

		amount, err := domain.ParseAmount(sendAmount, util.JettonDecimals)
		if err != nil {
			return tongo.AccountID{}, 0, nil, err
		}
		total, err := parseTonFlag(sendValue, domain.TonToGrams(usecase.DefaultMintTon)+forward)
		if err != nil {
			return tongo.AccountID{}, 0, nil, err
		}
		body := &codec.MintBody{
			QueryId:     queryId,
			Destination: to,
			TotalValue:  total,
			Transfer: codec.InternalTransferBody{
				QueryId:         queryId,
				Amount:          amount,
				From:            minter,
				ResponseAddress: &driver,
				ForwardAmount:   forward,
			},
		}
		return *minter, total + domain.GasReserve, body, nil

	case domain.StepTransfer, domain.StepBurn:
		wallet, err := domain.ParseAccountId(sendWallet)
		if err != nil {
			return tongo.AccountID{}, 0, nil, err
		}
		amount, err := domain.ParseAmount(sendAmount, util.JettonDecimals)
		if err != nil {
			return tongo.AccountID{}, 0, nil, err
		}

		if action == domain.StepBurn {
			value, err := parseTonFlag(sendValue, domain.TonToGrams(usecase.DefaultBurnTon))
			body := &codec.BurnBody{QueryId: queryId, Amount: amount, ResponseDestination: &driver}
			return wallet, value, body, err
		}

		to, err := domain.ParseAccountId(sendTo)
		if err != nil {
			return tongo.AccountID{}, 0, nil, err
		}
		value, err := parseTonFlag(sendValue, domain.TonToGrams(usecase.DefaultTransferTon)+forward)
		body := &codec.TransferBody{
			QueryId:             queryId,
			Amount:              amount,
			Destination:         to,
			ResponseDestination: &driver,
			ForwardAmount:       forward,
		}
		return wallet, value, body, err
	}
	return tongo.AccountID{}, 0, nil, domain.ErrorUnknownStep
}

func parseTonFlag(s string, fallback tlb.Grams) (tlb.Grams, error) {
	step := domain.ScenarioStep{Value: s}
	return step.ValueGrams(fallback)
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().StringVar(&sendTo, "to", "", "destination owner, or the user to whitelist")
	sendCmd.Flags().StringVar(&sendAmount, "amount", "", "amount of jettons")
	sendCmd.Flags().StringVar(&sendValue, "value", "", "attached TON")
	sendCmd.Flags().StringVar(&sendForward, "forward", "", "forwarded TON")
	sendCmd.Flags().Int32Var(&sendFlag, "flag", 0, "whitelist flag, negative to whitelist")
	sendCmd.Flags().StringVar(&sendWallet, "wallet", "", "driver's jetton wallet, for transfer and burn")
}
