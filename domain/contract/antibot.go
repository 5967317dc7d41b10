package contract

import (
	"jetton/domain"
	"jetton/domain/codec"

	"github.com/tonkeeper/tongo"
	"github.com/tonkeeper/tongo/boc"
)

// AntiBot is the standalone policy authority used by minters with an external policy.
type AntiBot struct {
	Owner      tongo.AccountID
	Minter     *tongo.AccountID
	Limits     domain.PolicyLimits
	Window     domain.PolicyWindow
	RecordCode *boc.Cell
	// flags keyed by the account hash of the user
	whiteList *codec.Dict
}

func NewAntiBot(owner tongo.AccountID, limits domain.PolicyLimits) *AntiBot {
	return &AntiBot{
		Owner:      owner,
		Limits:     limits,
		Window:     domain.PolicyWindow{LastBlockAmount: domain.ZeroAmount()},
		RecordCode: RecordCode,
		whiteList:  codec.NewDict(256),
	}
}

func LoadAntiBot(data *boc.Cell) (*AntiBot, error) {
	s := codec.NewSlice(data)
	a := &AntiBot{}
	var err error
	if a.Owner, err = s.ReadRequiredAddress(); err != nil {
		return nil, err
	}
	if a.Minter, err = s.ReadAddress(); err != nil {
		return nil, err
	}
	limitsCell, err := s.ReadRef()
	if err != nil {
		return nil, err
	}
	if a.Limits, a.Window, err = loadLimits(codec.NewSlice(limitsCell)); err != nil {
		return nil, err
	}
	if a.RecordCode, err = s.ReadRef(); err != nil {
		return nil, err
	}
	if a.whiteList, err = codec.LoadDict(s, 256); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *AntiBot) Data() (*boc.Cell, error) {
	l := codec.NewBuilder()
	storeLimits(l, a.Limits, a.Window)
	limits, err := l.Cell()
	if err != nil {
		return nil, err
	}

	b := codec.NewBuilder()
	b.WriteAddress(&a.Owner)
	b.WriteAddress(a.Minter)
	b.WriteRef(limits)
	b.WriteRef(a.RecordCode)
	a.whiteList.Store(b)
	return b.Cell()
}

func (a *AntiBot) AntiBotData() domain.AntiBotData {
	return domain.AntiBotData{
		Owner:  a.Owner,
		Minter: a.Minter,
		Limits: a.Limits,
		Window: a.Window,
	}
}

// RecordAddress answers get_record_address for the anti-bot deployed at self.
func (a *AntiBot) RecordAddress(self, owner tongo.AccountID) (tongo.AccountID, error) {
	return RecordAddress(self, owner, a.RecordCode)
}

func (a *AntiBot) WhiteListFlag(user tongo.AccountID) int32 {
	cell, ok := a.whiteList.GetBytes(user.Address[:])
	if !ok {
		return 0
	}
	flag, err := codec.NewSlice(cell).ReadInt(32)
	if err != nil {
		return 0
	}
	return int32(flag)
}

func (a *AntiBot) Receive(ctx Context, in *domain.Message) error {
	if in.Bounced {
		return nil
	}

	op, err := codec.PeekOp(in.Body)
	if err != nil {
		return err
	}

	switch op {
	case 0, domain.OpExcesses:
		return nil
	case domain.OpPreTransferCheck:
		return a.check(ctx, in)
	case domain.OpSetWhiteList:
		return a.setWhiteList(in)
	case domain.OpSetMinter:
		return a.setMinter(in)
	}
	return domain.Abort(domain.ExitWrongOp)
}

func (a *AntiBot) check(ctx Context, in *domain.Message) error {
	if a.Minter == nil || !isFrom(in, *a.Minter) {
		return domain.Abort(domain.ExitNotAnAuthority)
	}
	check, err := codec.ParseTransferCheckBody(in.Body)
	if err != nil {
		return err
	}

	trader := domain.Trader{
		WhiteListed:         domain.IsWhiteListed(check.IsWhiteList) || domain.IsWhiteListed(a.WhiteListFlag(check.Owner)),
		LastTransactionTime: check.LastTransactionTime,
	}
	decision := domain.Evaluate(a.Limits, a.Window, trader, check.Amount, ctx.Now())
	if err := decision.Err(); err != nil {
		return err
	}
	a.Window = decision.Window

	execute := &codec.ExecuteTransferBody{
		QueryId:  check.QueryId,
		Approved: true,
		Amount:   check.Amount,
		Details:  check.Details,
	}
	return send(ctx, OutMessage{Dest: *a.Minter, Mode: SendCarryInbound, Bounce: true}, execute)
}

func (a *AntiBot) setWhiteList(in *domain.Message) error {
	if !isFrom(in, a.Owner) && (a.Minter == nil || !isFrom(in, *a.Minter)) {
		return domain.Abort(domain.ExitNotAuthorized)
	}
	body, err := codec.ParseSetWhiteListBody(in.Body)
	if err != nil {
		return err
	}

	b := codec.NewBuilder()
	b.WriteInt(int64(body.Flag), 32)
	flag, err := b.Cell()
	if err != nil {
		return err
	}
	return a.whiteList.SetBytes(body.User.Address[:], flag)
}

func (a *AntiBot) setMinter(in *domain.Message) error {
	if !isFrom(in, a.Owner) {
		return domain.Abort(domain.ExitNotAuthorized)
	}
	body, err := codec.ParseSetMinterBody(in.Body)
	if err != nil {
		return err
	}
	minter := body.Minter
	a.Minter = &minter
	return nil
}
