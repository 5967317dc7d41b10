package domain

import (
	"fmt"
	"math/bits"

	"github.com/tonkeeper/tongo/tlb"
)

const (
	// Gas reserved by an actor for every hop it pays for in advance.
	GasReserve = tlb.Grams(15_000_000)

	// Value a freshly credited wallet keeps for its own storage.
	StorageReserve = tlb.Grams(10_000_000)

	// Hops added to a transfer chain when it has to pass the anti-bot policy:
	// wallet -> minter -> anti-bot -> minter -> wallet in the worst case.
	PolicyHops = 4
)

var (
	ErrorFeeOverflow = fmt.Errorf("fee computation overflows")
)

// Chain describes the message chain an inbound value has to pay for.
// ForwardHops counts the messages forwarded along the chain, GasHops the
// computations reserved for (hop count times the gas multiplier).
type Chain struct {
	ForwardHops    uint64
	GasHops        uint64
	ForwardAmount  tlb.Grams
	StorageReserve tlb.Grams
}

// TransferChain is sender wallet -> recipient wallet, plus the notification
// when a forward amount is attached and the policy round trip when required.
func TransferChain(forwardAmount tlb.Grams, policyHops uint64) Chain {
	forwardHops := uint64(1)
	if forwardAmount > 0 {
		forwardHops = 2
	}
	return Chain{
		ForwardHops:    forwardHops + policyHops,
		GasHops:        2 + policyHops,
		ForwardAmount:  forwardAmount,
		StorageReserve: StorageReserve,
	}
}

// BurnChain is wallet -> minter.
func BurnChain() Chain {
	return Chain{
		ForwardHops: 1,
		GasHops:     2,
	}
}

// MinimumValue = forwardAmount + forwardHops*forwardFee + gasHops*gasReserve + storageReserve
func MinimumValue(chain Chain, forwardFee, gasReserve tlb.Grams) (tlb.Grams, error) {
	fwdHi, fwd := bits.Mul64(chain.ForwardHops, uint64(forwardFee))
	gasHi, gas := bits.Mul64(chain.GasHops, uint64(gasReserve))
	if fwdHi != 0 || gasHi != 0 {
		return 0, ErrorFeeOverflow
	}

	total := uint64(chain.ForwardAmount)
	var carry uint64
	for _, part := range []uint64{fwd, gas, uint64(chain.StorageReserve)} {
		total, carry = bits.Add64(total, part, 0)
		if carry != 0 {
			return 0, ErrorFeeOverflow
		}
	}
	return tlb.Grams(total), nil
}

// Covers reports whether value is strictly above the minimum of the chain.
func Covers(value tlb.Grams, chain Chain, forwardFee, gasReserve tlb.Grams) bool {
	minimum, err := MinimumValue(chain, forwardFee, gasReserve)
	if err != nil {
		return false
	}
	return value > minimum
}

// FeeSchedule is what the substrate charges.
type FeeSchedule struct {
	ForwardFee tlb.Grams
	ComputeFee tlb.Grams
}

func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{
		ForwardFee: 1_804_014,
		ComputeFee: 10_000_000,
	}
}
