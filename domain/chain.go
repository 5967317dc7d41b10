package domain

import (
	"encoding/base64"
	"time"

	"github.com/tonkeeper/tongo/boc"
	"github.com/tonkeeper/tongo/tlb"
)

// ChainActivity is the summary of one transaction read from a live network.
type ChainActivity struct {
	Lt      uint64
	Hash    string
	Time    time.Time
	Opcode  uint32
	Value   tlb.Grams
	Success bool
}

func NewChainActivity(trans *tlb.Transaction) ChainActivity {
	hash := trans.Hash()
	res := ChainActivity{
		Lt:   trans.Lt,
		Hash: base64.URLEncoding.EncodeToString(hash[:]),
		Time: time.Unix(int64(trans.Now), 0),
	}
	if trans.Description.TransOrd.Action.Exists {
		res.Success = trans.Description.TransOrd.Action.Value.Value.Success
	}

	if trans.Msgs.InMsg.Exists {
		msg := trans.Msgs.InMsg.Value.Value
		if msg.Info.IntMsgInfo != nil {
			res.Value = msg.Info.IntMsgInfo.Value.Grams
		}
		body, _ := msg.Body.Value.MarshalJSON()
		cell := boc.NewCell()
		if cell.UnmarshalJSON(body) == nil && cell.BitsAvailableForRead() >= 32 {
			op, _ := cell.ReadUint(32)
			res.Opcode = uint32(op)
		}
	}
	return res
}
