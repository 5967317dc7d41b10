package domain

import (
	"math/big"

	"github.com/tonkeeper/tongo"
	"github.com/tonkeeper/tongo/boc"
	"github.com/tonkeeper/tongo/tlb"
)

// AntiBotRecord is the anti-bot sub-state every wallet carries.
type AntiBotRecord struct {
	IsWhiteList         int32  `json:"is_white_list"`
	LastTransactionTime uint64 `json:"last_transaction_time"`
	DisableTime         uint64 `json:"disable_time"`
}

// PolicyActive reports whether a transfer at now has to pass the anti-bot policy.
func (r AntiBotRecord) PolicyActive(now uint64) bool {
	return !IsWhiteListed(r.IsWhiteList) && now < r.DisableTime
}

type JettonData struct {
	TotalSupply *big.Int
	Mintable    bool
	Admin       tongo.AccountID
	AntiBot     tongo.AccountID
	Content     *boc.Cell
	WalletCode  *boc.Cell
}

type WalletData struct {
	Address    tongo.AccountID
	Deployed   bool
	Balance    *big.Int
	Owner      tongo.AccountID
	Minter     tongo.AccountID
	WalletCode *boc.Cell
	AntiBot    AntiBotRecord
	NativeTon  tlb.Grams
}

type AntiBotData struct {
	Owner  tongo.AccountID
	Minter *tongo.AccountID
	Limits PolicyLimits
	Window PolicyWindow
}
