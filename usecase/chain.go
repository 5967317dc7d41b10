package usecase

import (
	"context"
	"fmt"
	"jetton/domain"
	"log"
	"math/big"

	"github.com/tonkeeper/tongo"
	"github.com/tonkeeper/tongo/liteapi"
	"github.com/tonkeeper/tongo/tlb"
)

var (
	ErrorInvalidJettonData = fmt.Errorf("invalid get_jetton_data result")
	ErrorInvalidWalletData = fmt.Errorf("invalid get_wallet_data result")
)

// ChainInteractor reads a jetton deployed on a live network.
type ChainInteractor struct {
	client *liteapi.Client
}

func NewChainInteractor(client *liteapi.Client) *ChainInteractor {
	return &ChainInteractor{
		client: client,
	}
}

func (interactor *ChainInteractor) GetJettonData(minter tongo.AccountID) (*domain.JettonData, error) {
	code, stack, err := interactor.client.RunSmcMethod(context.Background(), minter, "get_jetton_data", tlb.VmStack{})
	if err != nil {
		log.Printf("Failed to get jetton data [code = %v] - %v\n", code, err.Error())
		return nil, err
	}

	if len(stack) < 5 ||
		stack[0].SumType != "VmStkTinyInt" ||
		stack[1].SumType != "VmStkTinyInt" ||
		(stack[2].SumType != "VmStkSlice" && stack[2].SumType != "VmStkNull") ||
		stack[3].SumType != "VmStkCell" ||
		stack[4].SumType != "VmStkCell" {
		return nil, ErrorInvalidJettonData
	}

	result := &domain.JettonData{
		TotalSupply: big.NewInt(stack[0].VmStkTinyInt),
		Mintable:    stack[1].VmStkTinyInt != 0,
	}
	if admin, err := stackAddress(stack[2]); err == nil && admin != nil {
		result.Admin = *admin
	}
	content := stack[3].VmStkCell.Value
	result.Content = &content
	walletCode := stack[4].VmStkCell.Value
	result.WalletCode = &walletCode

	// contracts with an anti-bot report its address sixth
	result.AntiBot = minter
	if len(stack) > 5 {
		if antiBot, err := stackAddress(stack[5]); err == nil && antiBot != nil {
			result.AntiBot = *antiBot
		}
	}
	return result, nil
}

func (interactor *ChainInteractor) GetWalletData(wallet tongo.AccountID) (*domain.WalletData, error) {
	code, stack, err := interactor.client.RunSmcMethod(context.Background(), wallet, "get_wallet_data", tlb.VmStack{})
	if err != nil {
		log.Printf("Failed to get wallet data [code = %v] - %v\n", code, err.Error())
		return nil, err
	}

	if len(stack) < 4 ||
		stack[0].SumType != "VmStkTinyInt" ||
		stack[1].SumType != "VmStkSlice" ||
		stack[2].SumType != "VmStkSlice" ||
		stack[3].SumType != "VmStkCell" {
		return nil, ErrorInvalidWalletData
	}

	owner, err := stackAddress(stack[1])
	if err != nil || owner == nil {
		return nil, ErrorInvalidWalletData
	}
	minter, err := stackAddress(stack[2])
	if err != nil || minter == nil {
		return nil, ErrorInvalidWalletData
	}
	walletCode := stack[3].VmStkCell.Value

	return &domain.WalletData{
		Address:    wallet,
		Deployed:   true,
		Balance:    big.NewInt(stack[0].VmStkTinyInt),
		Owner:      *owner,
		Minter:     *minter,
		WalletCode: &walletCode,
	}, nil
}

// RecentActivity lists the last transactions of account, newest first.
func (interactor *ChainInteractor) RecentActivity(account tongo.AccountID, limit int) ([]domain.ChainActivity, error) {
	trans, err := interactor.client.GetLastTransactions(context.Background(), account, limit)
	if err != nil {
		log.Printf("Failed to get last transactions - %v\n", err.Error())
		return nil, err
	}

	res := make([]domain.ChainActivity, 0, len(trans))
	for i := range trans {
		res = append(res, domain.NewChainActivity(&trans[i].Transaction))
	}
	return res, nil
}

func stackAddress(value tlb.VmStackValue) (*tongo.AccountID, error) {
	if value.SumType != "VmStkSlice" {
		return nil, nil
	}
	var addr tlb.MsgAddress
	if err := value.VmStkSlice.UnmarshalToTlbStruct(&addr); err != nil {
		return nil, err
	}
	return tongo.AccountIDFromTlb(addr)
}
