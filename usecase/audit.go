package usecase

import (
	"fmt"
	"jetton/domain"
	"jetton/domain/util"
	"jetton/interface/exporter"
	"log"
	"math/big"
)

var ErrorSupplyMismatch = fmt.Errorf("sum of wallet balances differs from the total supply")

type AuditInteractor struct {
	ledger         *LedgerInteractor
	memoInteractor *MemoInteractor
}

func NewAuditInteractor(ledger *LedgerInteractor, memoInteractor *MemoInteractor) *AuditInteractor {
	return &AuditInteractor{
		ledger:         ledger,
		memoInteractor: memoInteractor,
	}
}

// Audit checks that the deployed wallets hold exactly the minter's total supply. The
// outcome is exported and, when a memo store is configured, kept as the audit checkpoint.
func (interactor *AuditInteractor) Audit(lastLt uint64) (*domain.AuditMemo, error) {
	data, err := interactor.ledger.JettonData()
	if err != nil {
		exporter.IncErrorCount()
		log.Printf("🔴 auditing - loading jetton data - %v\n", err.Error())
		return nil, err
	}

	balance, holders, err := interactor.ledger.TotalBalance()
	if err != nil {
		exporter.IncErrorCount()
		log.Printf("🔴 auditing - summing balances - %v\n", err.Error())
		return nil, err
	}

	exporter.SetTotalSupply(wholeJettons(data.TotalSupply))
	exporter.SetHolders(holders)

	previous := &domain.AuditMemo{}
	if interactor.memoInteractor != nil {
		if previous, err = interactor.memoInteractor.GetAuditMemo(); err != nil {
			log.Printf("⚠️ auditing - loading the previous audit - %v\n", err.Error())
			previous = &domain.AuditMemo{}
		}
	}

	memo := &domain.AuditMemo{
		LastLt:      lastLt,
		TotalSupply: data.TotalSupply.String(),
		Holders:     holders,
		Healthy:     balance.Cmp(data.TotalSupply) == 0,
		Failures:    previous.Failures,
	}
	if !memo.Healthy {
		memo.Failures++
		exporter.IncAuditFailure()
		log.Printf("🔴 auditing - total supply %v, wallets hold %v\n",
			util.JettonString(data.TotalSupply, util.JettonDecimals), util.JettonString(balance, util.JettonDecimals))
	}

	if interactor.memoInteractor != nil {
		if err := interactor.memoInteractor.SetAuditMemo(memo); err != nil {
			exporter.IncErrorCount()
			log.Printf("🔴 auditing - storing the audit - %v\n", err.Error())
		}
	}

	if !memo.Healthy {
		return memo, fmt.Errorf("%w: off by %v", ErrorSupplyMismatch, new(big.Int).Sub(balance, data.TotalSupply))
	}
	return memo, nil
}

func wholeJettons(amount *big.Int) float64 {
	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(util.JettonDecimals), nil))
	res, _ := new(big.Float).Quo(new(big.Float).SetInt(amount), scale).Float64()
	return res
}
