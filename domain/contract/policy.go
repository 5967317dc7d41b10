package contract

import (
	"jetton/domain"
	"jetton/domain/codec"
	"math/big"

	"github.com/pkg/errors"
	"github.com/tonkeeper/tongo"
	"github.com/tonkeeper/tongo/boc"
)

const (
	policyTagEmbedded = 0
	policyTagExternal = 1
)

// TransferPolicy is how a minter answers the pre-transfer checks of its wallets.
// The check has already been authenticated as coming from the owner's wallet.
type TransferPolicy interface {
	Mode() domain.PolicyMode
	Check(ctx Context, m *Minter, in *domain.Message, check *codec.TransferCheckBody) error
	// Verdict handles an execute_transfer coming back from an external authority.
	Verdict(ctx Context, m *Minter, in *domain.Message) error
	// Bounced handles a check that could not be delivered to the authority.
	Bounced(ctx Context, m *Minter, queryId uint64) error
	Limits() (domain.PolicyLimits, domain.PolicyWindow, bool)
	store(b *codec.Builder) error
}

func loadPolicy(c *boc.Cell) (TransferPolicy, error) {
	s := codec.NewSlice(c)
	tag, err := s.ReadUint(8)
	if err != nil {
		return nil, err
	}
	switch tag {
	case policyTagEmbedded:
		limits, window, err := loadLimits(s)
		if err != nil {
			return nil, err
		}
		return &EmbeddedPolicy{limits: limits, window: window}, nil
	case policyTagExternal:
		next, err := s.ReadUint(64)
		if err != nil {
			return nil, err
		}
		pending, err := codec.LoadDict(s, 64)
		if err != nil {
			return nil, err
		}
		return &ExternalPolicy{nextCheckId: next, pending: pending}, nil
	}
	return nil, errors.Wrapf(domain.Abort(domain.ExitMalformedRecord), "policy tag %d", tag)
}

func storePolicy(p TransferPolicy) (*boc.Cell, error) {
	b := codec.NewBuilder()
	if err := p.store(b); err != nil {
		return nil, err
	}
	return b.Cell()
}

//-------------------------------------------------------------------

// EmbeddedPolicy keeps the limits and the block window in the minter itself.
type EmbeddedPolicy struct {
	limits domain.PolicyLimits
	window domain.PolicyWindow
}

func NewEmbeddedPolicy(limits domain.PolicyLimits) *EmbeddedPolicy {
	return &EmbeddedPolicy{
		limits: limits,
		window: domain.PolicyWindow{LastBlockAmount: domain.ZeroAmount()},
	}
}

func (p *EmbeddedPolicy) Mode() domain.PolicyMode {
	return domain.PolicyEmbedded
}

func (p *EmbeddedPolicy) Limits() (domain.PolicyLimits, domain.PolicyWindow, bool) {
	return p.limits, p.window, true
}

func (p *EmbeddedPolicy) Check(ctx Context, m *Minter, in *domain.Message, check *codec.TransferCheckBody) error {
	trader := domain.Trader{
		WhiteListed:         domain.IsWhiteListed(check.IsWhiteList),
		LastTransactionTime: check.LastTransactionTime,
	}
	decision := domain.Evaluate(p.limits, p.window, trader, check.Amount, ctx.Now())
	if err := decision.Err(); err != nil {
		return err
	}
	p.window = decision.Window

	execute := &codec.ExecuteTransferBody{
		QueryId:  check.QueryId,
		Approved: true,
		Amount:   check.Amount,
		Details:  check.Details,
	}
	return send(ctx, OutMessage{Dest: *in.Src, Mode: SendCarryInbound, Bounce: true}, execute)
}

func (p *EmbeddedPolicy) Verdict(ctx Context, m *Minter, in *domain.Message) error {
	return domain.Abort(domain.ExitNotAnAuthority)
}

func (p *EmbeddedPolicy) Bounced(ctx Context, m *Minter, queryId uint64) error {
	return nil
}

func (p *EmbeddedPolicy) store(b *codec.Builder) error {
	b.WriteUint(policyTagEmbedded, 8)
	storeLimits(b, p.limits, p.window)
	return b.Err()
}

//-------------------------------------------------------------------

// ExternalPolicy delegates the decision to a standalone anti-bot actor. Checks in
// flight are kept by id so that the verdict reaches the right wallet.
type ExternalPolicy struct {
	nextCheckId uint64
	pending     *codec.Dict
}

// pendingCheck remembers which authority the check was sent to, so a verdict
// stays valid when the minter is pointed at another anti-bot meanwhile.
type pendingCheck struct {
	Wallet    tongo.AccountID
	QueryId   uint64
	Amount    *big.Int
	Authority tongo.AccountID
}

func NewExternalPolicy() *ExternalPolicy {
	return &ExternalPolicy{pending: codec.NewDict(64)}
}

func (p *ExternalPolicy) Mode() domain.PolicyMode {
	return domain.PolicyExternal
}

func (p *ExternalPolicy) Limits() (domain.PolicyLimits, domain.PolicyWindow, bool) {
	return domain.PolicyLimits{}, domain.PolicyWindow{}, false
}

func (p *ExternalPolicy) Pending() int {
	return p.pending.Len()
}

func (p *ExternalPolicy) Check(ctx Context, m *Minter, in *domain.Message, check *codec.TransferCheckBody) error {
	if m.AntiBot == nil {
		return domain.Abort(domain.ExitNotAnAuthority)
	}
	checkId := p.nextCheckId
	p.nextCheckId++

	entry := pendingCheck{Wallet: *in.Src, QueryId: check.QueryId, Amount: check.Amount, Authority: *m.AntiBot}
	cell, err := entry.toCell()
	if err != nil {
		return err
	}
	if err := p.pending.SetUint(checkId, cell); err != nil {
		return err
	}

	forward := *check
	forward.QueryId = checkId
	return send(ctx, OutMessage{Dest: *m.AntiBot, Mode: SendCarryInbound, Bounce: true}, &forward)
}

func (p *ExternalPolicy) Verdict(ctx Context, m *Minter, in *domain.Message) error {
	body, err := codec.ParseExecuteTransferBody(in.Body)
	if err != nil {
		return err
	}
	entry, err := p.find(body.QueryId)
	if err != nil {
		return err
	}
	if !isFrom(in, entry.Authority) {
		return domain.Abort(domain.ExitNotAnAuthority)
	}
	p.pending.DeleteUint(body.QueryId)

	relay := *body
	relay.QueryId = entry.QueryId
	relay.Amount = entry.Amount
	return send(ctx, OutMessage{Dest: entry.Wallet, Mode: SendCarryInbound, Bounce: true}, &relay)
}

func (p *ExternalPolicy) Bounced(ctx Context, m *Minter, checkId uint64) error {
	entry, err := p.take(checkId)
	if err != nil {
		return err
	}
	rejected := &codec.ExecuteTransferBody{QueryId: entry.QueryId, Amount: entry.Amount}
	return send(ctx, OutMessage{Dest: entry.Wallet, Mode: SendCarryInbound, Bounce: true}, rejected)
}

func (p *ExternalPolicy) find(checkId uint64) (*pendingCheck, error) {
	cell, ok := p.pending.GetUint(checkId)
	if !ok {
		return nil, errors.Wrapf(domain.Abort(domain.ExitMalformedRecord), "unknown check %d", checkId)
	}
	return loadPendingCheck(cell)
}

func (p *ExternalPolicy) take(checkId uint64) (*pendingCheck, error) {
	entry, err := p.find(checkId)
	if err != nil {
		return nil, err
	}
	p.pending.DeleteUint(checkId)
	return entry, nil
}

func (p *ExternalPolicy) store(b *codec.Builder) error {
	b.WriteUint(policyTagExternal, 8)
	b.WriteUint(p.nextCheckId, 64)
	p.pending.Store(b)
	return b.Err()
}

func (e *pendingCheck) toCell() (*boc.Cell, error) {
	b := codec.NewBuilder()
	b.WriteAddress(&e.Wallet)
	b.WriteUint(e.QueryId, 64)
	b.WriteCoins(e.Amount)
	b.WriteAddress(&e.Authority)
	return b.Cell()
}

func loadPendingCheck(c *boc.Cell) (*pendingCheck, error) {
	s := codec.NewSlice(c)
	e := &pendingCheck{}
	var err error
	if e.Wallet, err = s.ReadRequiredAddress(); err != nil {
		return nil, err
	}
	if e.QueryId, err = s.ReadUint(64); err != nil {
		return nil, err
	}
	if e.Amount, err = s.ReadCoins(); err != nil {
		return nil, err
	}
	if e.Authority, err = s.ReadRequiredAddress(); err != nil {
		return nil, err
	}
	return e, nil
}
