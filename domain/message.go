package domain

import (
	"fmt"
	"jetton/domain/util"
	"strings"

	"github.com/tonkeeper/tongo"
	"github.com/tonkeeper/tongo/boc"
	"github.com/tonkeeper/tongo/tlb"
)

// Message is an internal message as delivered by the substrate. A nil Src marks
// a message injected from outside (a principal acting through its own wallet).
type Message struct {
	Src       *tongo.AccountID
	Dest      tongo.AccountID
	Value     tlb.Grams
	FwdFee    tlb.Grams
	Bounce    bool
	Bounced   bool
	Body      *boc.Cell
	Code      *boc.Cell
	Data      *boc.Cell
	CreatedLt uint64
	TraceId   string
}

// Opcode is the first 32 bits of the body. For a bounced message it is the op of
// the message that bounced.
func (m *Message) Opcode() uint32 {
	if m.Body == nil {
		return 0
	}
	m.Body.ResetCounters()
	defer m.Body.ResetCounters()

	if m.Body.BitsAvailableForRead() < 32 {
		return 0
	}
	op, _ := m.Body.ReadUint(32)
	if uint32(op) == OpBounced && m.Bounced && m.Body.BitsAvailableForRead() >= 32 {
		op, _ = m.Body.ReadUint(32)
	}
	return uint32(op)
}

func (m *Message) HasStateInit() bool {
	return m.Code != nil && m.Data != nil
}

func (m *Message) SrcOrNone() string {
	if m.Src == nil {
		return "none"
	}
	return m.Src.ToRaw()
}

//---------------------------------

type MessageFormatter struct {
	// Output formatter
	obj *Message
}

func NewMessageFormatter(obj *Message) *MessageFormatter {
	return &MessageFormatter{
		obj: obj,
	}
}

func (f *MessageFormatter) Src(format string) string {
	if f.obj.Src == nil {
		return "external"
	}
	return FormatAccountId(*f.obj.Src, format)
}

func (f *MessageFormatter) Dest(format string) string {
	return FormatAccountId(f.obj.Dest, format)
}

func (f *MessageFormatter) Value() string {
	return util.GramToTonString(int64(f.obj.Value))
}

func (f *MessageFormatter) Op() string {
	name := OpName(f.obj.Opcode())
	if f.obj.Bounced {
		name = "bounced " + name
	}
	return name
}

func (f *MessageFormatter) String() string {
	return fmt.Sprintf("%v -> %v [%v, %v]", f.Src(AddrFormatRaw), f.Dest(AddrFormatRaw), f.Op(), f.Value())
}

func FormatAccountId(acid tongo.AccountID, format string) string {
	res := ""
	switch strings.ToLower(format) {
	case AddrFormatRaw:
		res = acid.ToRaw()
	case AddrFormatBouncable:
		res = acid.ToHuman(true, IsTestNet())
	case AddrFormatNonBouncable:
		res = acid.ToHuman(false, IsTestNet())
	}
	return res
}
