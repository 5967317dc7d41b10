package usecase

import (
	"context"
	"fmt"
	"jetton/domain"
	"jetton/domain/codec"
	"log"
	"time"

	"github.com/tonkeeper/tongo"
	"github.com/tonkeeper/tongo/liteapi"
	"github.com/tonkeeper/tongo/tlb"
	tgwallet "github.com/tonkeeper/tongo/wallet"
)

var ErrorTimeOut = fmt.Errorf("timeout for new seqno")

const seqnoTimeout = 30 * time.Second

// MessengerInteractor sends ledger bodies to a live network through the driver wallet,
// one at a time.
type MessengerInteractor struct {
	client       *liteapi.Client
	driverWallet *tgwallet.Wallet
}

func NewMessengerInteractor(client *liteapi.Client, driverWallet *tgwallet.Wallet) *MessengerInteractor {
	return &MessengerInteractor{
		client:       client,
		driverWallet: driverWallet,
	}
}

func (interactor *MessengerInteractor) Address() tongo.AccountID {
	return interactor.driverWallet.GetAddress()
}

// Send submits body to dest and waits until the driver wallet's seqno moves on.
func (interactor *MessengerInteractor) Send(dest tongo.AccountID, value tlb.Grams, body codec.Body) error {
	cell, err := body.ToCell()
	if err != nil {
		return err
	}

	seqno, err := interactor.client.GetSeqno(context.Background(), interactor.Address())
	if err != nil {
		log.Printf("🔴 getting current driver's seqno - %v\n", err.Error())
		return err
	}

	msg := tgwallet.Message{
		Amount:  value,
		Address: dest,
		Body:    cell,
		Code:    nil,
		Data:    nil,
		Bounce:  true,
		Mode:    1, // pay transfer fees separately from the message value
	}

	err = interactor.driverWallet.Send(context.Background(), msg)
	if err != nil {
		log.Printf("🔴 sending %v [dest: %v] - %v\n", domain.OpName(body.Opcode()), dest.ToHuman(true, domain.IsTestNet()), err.Error())
		return err
	}

	_, err = interactor.waitForNextSeqno(seqno)
	return err
}

func (interactor *MessengerInteractor) waitForNextSeqno(seqno uint32) (uint32, error) {
	driverAccountId := interactor.driverWallet.GetAddress()

	err := ErrorTimeOut
	currSeqno := seqno

	start := time.Now()
	for time.Now().Before(start.Add(seqnoTimeout)) {
		currSeqno, err = interactor.client.GetSeqno(context.Background(), driverAccountId)
		if err != nil {
			log.Printf("🔴 getting current driver's seqno - %v\n", err.Error())
		}

		if currSeqno > seqno {
			err = nil
			break
		}
		err = ErrorTimeOut
		time.Sleep(500 * time.Millisecond)
	}

	return currSeqno, err
}
