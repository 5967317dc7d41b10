package contract

import (
	"jetton/domain/codec"

	lru "github.com/hashicorp/golang-lru"
	"github.com/tonkeeper/tongo"
	"github.com/tonkeeper/tongo/boc"
)

const walletCacheSize = 8192

type walletKey struct {
	code        [32]byte
	minter      tongo.AccountID
	owner       tongo.AccountID
	disableTime uint64
}

var walletAddresses *lru.Cache

func init() {
	var err error
	walletAddresses, err = lru.New(walletCacheSize)
	if err != nil {
		panic(err)
	}
}

// WalletStateInit is the code and initial data of owner's wallet under minter.
func WalletStateInit(owner, minter tongo.AccountID, walletCode *boc.Cell, disableTime uint64) (*codec.StateInit, error) {
	return NewStateInit(walletCode, NewWallet(owner, minter, walletCode, disableTime))
}

// WalletAddress derives owner's wallet address. It never requires the wallet to exist.
func WalletAddress(owner, minter tongo.AccountID, walletCode *boc.Cell, disableTime uint64) (tongo.AccountID, error) {
	codeHash, err := codec.Hash(walletCode)
	if err != nil {
		return tongo.AccountID{}, err
	}
	key := walletKey{code: codeHash, minter: minter, owner: owner, disableTime: disableTime}
	if cached, ok := walletAddresses.Get(key); ok {
		return cached.(tongo.AccountID), nil
	}

	init, err := WalletStateInit(owner, minter, walletCode, disableTime)
	if err != nil {
		return tongo.AccountID{}, err
	}
	addr, err := codec.DeriveAddress(codec.BaseWorkchain, init)
	if err != nil {
		return tongo.AccountID{}, err
	}
	walletAddresses.Add(key, addr)
	return addr, nil
}

// RecordAddress derives the per-user record sub-actor of an anti-bot.
func RecordAddress(antiBot, owner tongo.AccountID, recordCode *boc.Cell) (tongo.AccountID, error) {
	b := codec.NewBuilder()
	b.WriteAddress(&antiBot)
	b.WriteAddress(&owner)
	data, err := b.Cell()
	if err != nil {
		return tongo.AccountID{}, err
	}
	return codec.DeriveAddress(codec.BaseWorkchain, &codec.StateInit{Code: recordCode, Data: data})
}
