package domain

import (
	"fmt"
	"jetton/domain/util"
	"time"

	"github.com/tonkeeper/tongo"
	"github.com/tonkeeper/tongo/tlb"
)

const (
	AddrFormatRaw          = "raw"
	AddrFormatBouncable    = "bouncable"
	AddrFormatNonBouncable = "non-bouncable"
)

// Transaction is the processing of one inbound message by one account.
type Transaction struct {
	TraceId     string
	Lt          uint64
	Now         uint64
	Account     tongo.AccountID
	InMessage   *Message
	OutMessages []*Message
	ExitCode    ExitCode
	Deployed    bool
	Skipped     bool
	ComputeFee  tlb.Grams
	ForwardFees tlb.Grams
}

func (t *Transaction) IsSucceeded() bool {
	return !t.Skipped && t.ExitCode.IsOk()
}

func (t *Transaction) Aborted() bool {
	return !t.ExitCode.IsOk()
}

func (t *Transaction) Opcode() uint32 {
	return t.InMessage.Opcode()
}

func (t *Transaction) Value() tlb.Grams {
	return t.InMessage.Value
}

func (t *Transaction) UnixTime() time.Time {
	return time.Unix(int64(t.Now), 0)
}

func (t *Transaction) Fees() (totalFee, computeFee, forwardFee tlb.Grams) {
	computeFee = t.ComputeFee
	forwardFee = t.ForwardFees
	totalFee = computeFee + forwardFee
	return
}

func (t *Transaction) GetMessagesHavingOpcode(opcode uint32) []*Message {
	res := make([]*Message, 0, 2)
	for _, msg := range t.OutMessages {
		if msg.Opcode() == opcode {
			res = append(res, msg)
		}
	}
	return res
}

func (t *Transaction) ToJournalEntry() JournalEntry {
	return JournalEntry{
		TraceId:  t.TraceId,
		Lt:       t.Lt,
		Account:  t.Account.ToRaw(),
		Opcode:   t.Opcode(),
		ExitCode: int32(t.ExitCode),
		Value:    uint64(t.Value()),
		Time:     t.UnixTime(),
		Info: JournalInfo{
			Source:      t.InMessage.SrcOrNone(),
			Operation:   OpName(t.Opcode()),
			Bounced:     t.InMessage.Bounced,
			Deployed:    t.Deployed,
			ExitLabel:   t.ExitCode.String(),
			OutMessages: len(t.OutMessages),
			ComputeFee:  uint64(t.ComputeFee),
		},
	}
}

// Trace is every transaction caused by one submission, in processing order.
type Trace struct {
	Id           string
	Transactions []*Transaction
}

// Find returns the transactions on account whose inbound message carries op.
func (tr *Trace) Find(account tongo.AccountID, op uint32) []*Transaction {
	res := make([]*Transaction, 0, 1)
	for _, tx := range tr.Transactions {
		if tx.Account == account && tx.Opcode() == op {
			res = append(res, tx)
		}
	}
	return res
}

func (tr *Trace) Failed() []*Transaction {
	res := make([]*Transaction, 0)
	for _, tx := range tr.Transactions {
		if tx.Aborted() {
			res = append(res, tx)
		}
	}
	return res
}

// FirstExitCode is the exit code of the first aborted transaction, ExitOk if none.
func (tr *Trace) FirstExitCode() ExitCode {
	for _, tx := range tr.Transactions {
		if tx.Aborted() {
			return tx.ExitCode
		}
	}
	return ExitOk
}

func (tr *Trace) Deployed() []tongo.AccountID {
	res := make([]tongo.AccountID, 0)
	for _, tx := range tr.Transactions {
		if tx.Deployed {
			res = append(res, tx.Account)
		}
	}
	return res
}

//---------------------------------

type TransactionFormatter struct {
	// Output formatter
	obj *Transaction
}

func NewTransactionFormatter(obj *Transaction) *TransactionFormatter {
	return &TransactionFormatter{
		obj: obj,
	}
}

func (f *TransactionFormatter) AccountId(format string) string {
	return FormatAccountId(f.obj.Account, format)
}

func (f *TransactionFormatter) Src() string {
	return NewMessageFormatter(f.obj.InMessage).Src(AddrFormatRaw)
}

func (f *TransactionFormatter) LocalTimeString() string {
	return f.obj.UnixTime().Local().Format(time.RFC1123)
}

func (f *TransactionFormatter) Value() string {
	return util.GramToTonString(int64(f.obj.Value()))
}

func (f *TransactionFormatter) Result() string {
	if f.obj.IsSucceeded() {
		return "✅"
	}
	if f.obj.Skipped && f.obj.ExitCode.IsOk() {
		return "➖"
	}
	return fmt.Sprintf("❌ %d %v", int32(f.obj.ExitCode), f.obj.ExitCode)
}

func (f *TransactionFormatter) String() string {
	op := NewMessageFormatter(f.obj.InMessage).Op()
	deployed := ""
	if f.obj.Deployed {
		deployed = " (deployed)"
	}
	return fmt.Sprintf("#%04d %v %-24v %v%v", f.obj.Lt, f.AccountId(AddrFormatRaw), op, f.Result(), deployed)
}
