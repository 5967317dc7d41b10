package domain

import (
	"math/big"
)

type PolicyMode string

const (
	PolicyEmbedded PolicyMode = "embedded"
	PolicyExternal PolicyMode = "external"
)

// PolicyLimits are the anti-bot parameters. Times are unix seconds.
type PolicyLimits struct {
	PerTrade      *big.Int `json:"per_trade"`
	PerBlock      *big.Int `json:"per_block"`
	BlockInterval uint64   `json:"block_interval"`
	TimeLimit     uint64   `json:"time_limit"`
	DisableTime   uint64   `json:"disable_time"`
}

// PolicyWindow is the rolling per-block accumulator.
type PolicyWindow struct {
	LastBlockTime   uint64   `json:"last_block_time"`
	LastBlockAmount *big.Int `json:"last_block_amount"`
}

type Trader struct {
	WhiteListed         bool
	LastTransactionTime uint64
}

type Decision struct {
	Allowed bool
	Reason  ExitCode
	Window  PolicyWindow
}

func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return Abort(d.Reason)
}

func (l PolicyLimits) Disabled(now uint64) bool {
	return now >= l.DisableTime
}

func IsWhiteListed(flag int32) bool {
	return flag < 0
}

// Evaluate answers whether trader may move amount at now. The returned window is
// the one to persist on approval; a denial leaves the caller's window untouched.
func Evaluate(limits PolicyLimits, window PolicyWindow, trader Trader, amount *big.Int, now uint64) Decision {
	window = window.clone()

	if limits.Disabled(now) || trader.WhiteListed {
		return Decision{Allowed: true, Window: window}
	}

	if elapsed(now, trader.LastTransactionTime) < limits.TimeLimit {
		return deny(ExitTimeDilation, window)
	}

	if amount.Cmp(limits.PerTrade) > 0 {
		return deny(ExitPerTradeLimit, window)
	}

	if elapsed(now, window.LastBlockTime) >= limits.BlockInterval {
		window.LastBlockTime = now
		window.LastBlockAmount = ZeroAmount()
	}

	blockAmount, err := AddAmount(window.LastBlockAmount, amount)
	if err != nil || blockAmount.Cmp(limits.PerBlock) > 0 {
		return deny(ExitPerBlockLimit, window)
	}
	window.LastBlockAmount = blockAmount

	return Decision{Allowed: true, Window: window}
}

func deny(reason ExitCode, window PolicyWindow) Decision {
	return Decision{Allowed: false, Reason: reason, Window: window}
}

func elapsed(now, since uint64) uint64 {
	if now < since {
		return 0
	}
	return now - since
}

func (w PolicyWindow) clone() PolicyWindow {
	res := PolicyWindow{LastBlockTime: w.LastBlockTime, LastBlockAmount: ZeroAmount()}
	if w.LastBlockAmount != nil {
		res.LastBlockAmount.Set(w.LastBlockAmount)
	}
	return res
}
