package contract

import (
	"fmt"
	"jetton/domain"
	"jetton/domain/codec"

	"github.com/tonkeeper/tongo"
	"github.com/tonkeeper/tongo/boc"
	"github.com/tonkeeper/tongo/tlb"
)

type SendMode uint8

const (
	SendDefault           SendMode = 0
	SendPayFeesSeparately SendMode = 1
	SendIgnoreErrors      SendMode = 2
	SendCarryInbound      SendMode = 64
	SendCarryBalance      SendMode = 128
)

func (m SendMode) Has(flag SendMode) bool {
	return m&flag == flag
}

type OutMessage struct {
	Dest   tongo.AccountID
	Value  tlb.Grams
	Mode   SendMode
	Bounce bool
	Body   *boc.Cell
	Init   *codec.StateInit
}

// Context is the view an actor has of the substrate while it handles one message.
// Sends and reservations are actions: the substrate applies them, in order, only
// after Receive returned without error.
type Context interface {
	Self() tongo.AccountID
	Now() uint64
	// Balance includes the inbound value, minus the compute fee.
	Balance() tlb.Grams
	Send(msg OutMessage)
	// Reserve keeps at most amount on the account for the remaining sends.
	Reserve(amount tlb.Grams)
}

// Actor is the decoded persistent state of one account plus its message handler.
// Data must only be read back after a successful Receive.
type Actor interface {
	Receive(ctx Context, in *domain.Message) error
	Data() (*boc.Cell, error)
}

type Loader func(data *boc.Cell) (Actor, error)

var (
	MinterCode  = codec.MustCodeCell("jetton-minter")
	WalletCode  = codec.MustCodeCell("jetton-wallet")
	AntiBotCode = codec.MustCodeCell("anti-bot")
	RecordCode  = codec.MustCodeCell("anti-bot-record")
)

var ErrorUnknownCode = fmt.Errorf("unknown actor code")

type registryEntry struct {
	name   string
	loader Loader
}

// Registry resolves account code to the actor implementation.
type Registry struct {
	entries map[[32]byte]registryEntry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[[32]byte]registryEntry)}
}

func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister(MinterCode, func(data *boc.Cell) (Actor, error) { return LoadMinter(data) })
	r.MustRegister(WalletCode, func(data *boc.Cell) (Actor, error) { return LoadWallet(data) })
	r.MustRegister(AntiBotCode, func(data *boc.Cell) (Actor, error) { return LoadAntiBot(data) })
	return r
}

func (r *Registry) Register(code *boc.Cell, loader Loader) error {
	hash, err := codec.Hash(code)
	if err != nil {
		return err
	}
	name, err := codec.CodeName(code)
	if err != nil {
		name = fmt.Sprintf("%x", hash[:4])
	}
	r.entries[hash] = registryEntry{name: name, loader: loader}
	return nil
}

func (r *Registry) MustRegister(code *boc.Cell, loader Loader) {
	if err := r.Register(code, loader); err != nil {
		panic(err)
	}
}

func (r *Registry) Load(code, data *boc.Cell) (Actor, error) {
	hash, err := codec.Hash(code)
	if err != nil {
		return nil, err
	}
	entry, ok := r.entries[hash]
	if !ok {
		return nil, ErrorUnknownCode
	}
	return entry.loader(data)
}

// Name is the kind of actor a code cell runs, empty when unregistered.
func (r *Registry) Name(code *boc.Cell) string {
	hash, err := codec.Hash(code)
	if err != nil {
		return ""
	}
	return r.entries[hash].name
}

func IsCode(code, expected *boc.Cell) bool {
	if code == nil {
		return false
	}
	a, errA := codec.Hash(code)
	b, errB := codec.Hash(expected)
	return errA == nil && errB == nil && a == b
}

func NewStateInit(code *boc.Cell, actor Actor) (*codec.StateInit, error) {
	data, err := actor.Data()
	if err != nil {
		return nil, err
	}
	return &codec.StateInit{Code: code, Data: data}, nil
}

//-------------------------------------------------------------------
// helpers shared by the actors

func isFrom(in *domain.Message, addr tongo.AccountID) bool {
	return in.Src != nil && *in.Src == addr
}

func send(ctx Context, msg OutMessage, body codec.Body) error {
	cell, err := body.ToCell()
	if err != nil {
		return err
	}
	msg.Body = cell
	ctx.Send(msg)
	return nil
}

func excesses(ctx Context, to tongo.AccountID, queryId uint64, mode SendMode) error {
	return send(ctx, OutMessage{Dest: to, Mode: mode}, &codec.ExcessesBody{QueryId: queryId})
}

func balanceBefore(ctx Context, in *domain.Message) tlb.Grams {
	balance := ctx.Balance()
	if balance < in.Value {
		return 0
	}
	return balance - in.Value
}

func storeLimits(b *codec.Builder, limits domain.PolicyLimits, window domain.PolicyWindow) {
	b.WriteCoins(limits.PerTrade)
	b.WriteCoins(limits.PerBlock)
	b.WriteUint(limits.BlockInterval, 64)
	b.WriteUint(limits.TimeLimit, 64)
	b.WriteUint(limits.DisableTime, 64)
	b.WriteUint(window.LastBlockTime, 64)
	amount := window.LastBlockAmount
	if amount == nil {
		amount = domain.ZeroAmount()
	}
	b.WriteCoins(amount)
}

func loadLimits(s *codec.Slice) (domain.PolicyLimits, domain.PolicyWindow, error) {
	var limits domain.PolicyLimits
	var window domain.PolicyWindow
	var err error
	if limits.PerTrade, err = s.ReadCoins(); err != nil {
		return limits, window, err
	}
	if limits.PerBlock, err = s.ReadCoins(); err != nil {
		return limits, window, err
	}
	if limits.BlockInterval, err = s.ReadUint(64); err != nil {
		return limits, window, err
	}
	if limits.TimeLimit, err = s.ReadUint(64); err != nil {
		return limits, window, err
	}
	if limits.DisableTime, err = s.ReadUint(64); err != nil {
		return limits, window, err
	}
	if window.LastBlockTime, err = s.ReadUint(64); err != nil {
		return limits, window, err
	}
	window.LastBlockAmount, err = s.ReadCoins()
	return limits, window, err
}
