package contract

import (
	"jetton/domain"
	"jetton/domain/codec"
	"math/big"

	"github.com/pkg/errors"
	"github.com/tonkeeper/tongo"
	"github.com/tonkeeper/tongo/boc"
)

// Minter owns the total supply. It is the only actor allowed to create tokens and it
// relays the pre-transfer checks of its wallets to the configured policy.
type Minter struct {
	TotalSupply *big.Int
	Admin       tongo.AccountID
	AntiBot     *tongo.AccountID
	DisableTime uint64
	Content     *boc.Cell
	WalletCode  *boc.Cell
	Policy      TransferPolicy
}

// NewMinter prepares the initial state. An external policy requires the anti-bot address.
func NewMinter(admin tongo.AccountID, antiBot *tongo.AccountID, content *boc.Cell, policy TransferPolicy, disableTime uint64) (*Minter, error) {
	if policy.Mode() == domain.PolicyExternal && antiBot == nil {
		return nil, errors.New("external policy without anti-bot address")
	}
	return &Minter{
		TotalSupply: domain.ZeroAmount(),
		Admin:       admin,
		AntiBot:     antiBot,
		DisableTime: disableTime,
		Content:     content,
		WalletCode:  WalletCode,
		Policy:      policy,
	}, nil
}

func LoadMinter(data *boc.Cell) (*Minter, error) {
	s := codec.NewSlice(data)
	m := &Minter{}
	var err error
	if m.TotalSupply, err = s.ReadCoins(); err != nil {
		return nil, err
	}
	if m.Admin, err = s.ReadRequiredAddress(); err != nil {
		return nil, err
	}
	if m.AntiBot, err = s.ReadAddress(); err != nil {
		return nil, err
	}
	if m.DisableTime, err = s.ReadUint(64); err != nil {
		return nil, err
	}
	if m.Content, err = s.ReadRef(); err != nil {
		return nil, err
	}
	if m.WalletCode, err = s.ReadRef(); err != nil {
		return nil, err
	}
	policyCell, err := s.ReadRef()
	if err != nil {
		return nil, err
	}
	if m.Policy, err = loadPolicy(policyCell); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Minter) Data() (*boc.Cell, error) {
	policy, err := storePolicy(m.Policy)
	if err != nil {
		return nil, err
	}
	b := codec.NewBuilder()
	b.WriteCoins(m.TotalSupply)
	b.WriteAddress(&m.Admin)
	b.WriteAddress(m.AntiBot)
	b.WriteUint(m.DisableTime, 64)
	b.WriteRef(m.Content)
	b.WriteRef(m.WalletCode)
	b.WriteRef(policy)
	return b.Cell()
}

// JettonData answers get_jetton_data. With the embedded policy the minter is its own anti-bot.
func (m *Minter) JettonData(self tongo.AccountID) domain.JettonData {
	antiBot := self
	if m.AntiBot != nil {
		antiBot = *m.AntiBot
	}
	return domain.JettonData{
		TotalSupply: new(big.Int).Set(m.TotalSupply),
		Mintable:    true,
		Admin:       m.Admin,
		AntiBot:     antiBot,
		Content:     m.Content,
		WalletCode:  m.WalletCode,
	}
}

// WalletAddress answers get_wallet_address for the minter deployed at self.
func (m *Minter) WalletAddress(self, owner tongo.AccountID) (tongo.AccountID, error) {
	return WalletAddress(owner, self, m.WalletCode, m.DisableTime)
}

func (m *Minter) Receive(ctx Context, in *domain.Message) error {
	if in.Bounced {
		return m.receiveBounced(ctx, in)
	}

	op, err := codec.PeekOp(in.Body)
	if err != nil {
		return err
	}

	switch op {
	case 0, domain.OpExcesses:
		return nil
	case domain.OpMint:
		return m.mint(ctx, in)
	case domain.OpBurnNotification:
		return m.burnNotification(ctx, in)
	case domain.OpProvideWalletAddress:
		return m.provideWalletAddress(ctx, in)
	case domain.OpChangeAdmin:
		return m.changeAdmin(ctx, in)
	case domain.OpChangeContent:
		return m.changeContent(ctx, in)
	case domain.OpChangeAntiBot:
		return m.changeAntiBot(ctx, in)
	case domain.OpUpdateWhiteList:
		return m.updateWhiteList(ctx, in)
	case domain.OpPreTransferCheck:
		return m.preTransferCheck(ctx, in)
	case domain.OpExecuteTransfer:
		return m.Policy.Verdict(ctx, m, in)
	}
	return domain.Abort(domain.ExitWrongOp)
}

func (m *Minter) walletOf(ctx Context, owner tongo.AccountID) (*codec.StateInit, tongo.AccountID, error) {
	init, err := WalletStateInit(owner, ctx.Self(), m.WalletCode, m.DisableTime)
	if err != nil {
		return nil, tongo.AccountID{}, err
	}
	addr, err := WalletAddress(owner, ctx.Self(), m.WalletCode, m.DisableTime)
	return init, addr, err
}

func (m *Minter) mint(ctx Context, in *domain.Message) error {
	if !isFrom(in, m.Admin) {
		return domain.Abort(domain.ExitNotAdmin)
	}
	body, transfer, err := codec.ParseMintBody(in.Body)
	if err != nil {
		return err
	}
	if body.Destination.Workchain != codec.BaseWorkchain {
		return domain.Abort(domain.ExitWrongWorkchain)
	}
	if body.TotalValue <= body.Transfer.ForwardAmount {
		return domain.Abort(domain.ExitInvalidForward)
	}

	supply, err := domain.AddAmount(m.TotalSupply, body.Transfer.Amount)
	if err != nil {
		return domain.Abort(domain.ExitAmountOverflow)
	}
	m.TotalSupply = supply

	init, dest, err := m.walletOf(ctx, body.Destination)
	if err != nil {
		return err
	}
	ctx.Send(OutMessage{
		Dest:   dest,
		Value:  body.TotalValue,
		Mode:   SendPayFeesSeparately,
		Bounce: true,
		Body:   transfer,
		Init:   init,
	})
	return nil
}

func (m *Minter) burnNotification(ctx Context, in *domain.Message) error {
	body, err := codec.ParseBurnNotificationBody(in.Body)
	if err != nil {
		return err
	}
	_, wallet, err := m.walletOf(ctx, body.Sender)
	if err != nil {
		return err
	}
	if in.Src == nil || *in.Src != wallet {
		return domain.Abort(domain.ExitUnauthorizedBurn)
	}

	supply, err := domain.SubAmount(m.TotalSupply, body.Amount)
	if err != nil {
		return domain.Abort(domain.ExitAmountOverflow)
	}
	m.TotalSupply = supply

	if body.ResponseDestination != nil {
		return excesses(ctx, *body.ResponseDestination, body.QueryId, SendCarryInbound|SendIgnoreErrors)
	}
	return nil
}

func (m *Minter) provideWalletAddress(ctx Context, in *domain.Message) error {
	body, err := codec.ParseProvideWalletAddressBody(in.Body)
	if err != nil {
		return err
	}
	if in.Value <= in.FwdFee+domain.GasReserve {
		return domain.Abort(domain.ExitDiscoveryFee)
	}
	if in.Src == nil {
		return domain.Abort(domain.ExitInvalidSender)
	}

	reply := &codec.TakeWalletAddressBody{QueryId: body.QueryId}
	if body.Owner.Workchain == codec.BaseWorkchain {
		_, wallet, err := m.walletOf(ctx, body.Owner)
		if err != nil {
			return err
		}
		reply.WalletAddress = &wallet
	}
	if body.IncludeAddress {
		owner := body.Owner
		reply.Owner = &owner
	}
	return send(ctx, OutMessage{Dest: *in.Src, Mode: SendCarryInbound}, reply)
}

func (m *Minter) changeAdmin(ctx Context, in *domain.Message) error {
	if !isFrom(in, m.Admin) {
		return domain.Abort(domain.ExitNotAdmin)
	}
	body, err := codec.ParseChangeAdminBody(in.Body)
	if err != nil {
		return err
	}
	m.Admin = body.NewAdmin
	return excesses(ctx, *in.Src, body.QueryId, SendCarryInbound|SendIgnoreErrors)
}

func (m *Minter) changeContent(ctx Context, in *domain.Message) error {
	if !isFrom(in, m.Admin) {
		return domain.Abort(domain.ExitNotAdmin)
	}
	body, err := codec.ParseChangeContentBody(in.Body)
	if err != nil {
		return err
	}
	if _, err := codec.DecodeMetadata(body.Content); err != nil {
		return err
	}
	m.Content = body.Content
	return excesses(ctx, *in.Src, body.QueryId, SendCarryInbound|SendIgnoreErrors)
}

func (m *Minter) changeAntiBot(ctx Context, in *domain.Message) error {
	if !isFrom(in, m.Admin) {
		return domain.Abort(domain.ExitNotAdmin)
	}
	body, err := codec.ParseChangeAntiBotBody(in.Body)
	if err != nil {
		return err
	}
	antiBot := body.NewAntiBot
	m.AntiBot = &antiBot
	return excesses(ctx, *in.Src, body.QueryId, SendCarryInbound|SendIgnoreErrors)
}

func (m *Minter) updateWhiteList(ctx Context, in *domain.Message) error {
	if !isFrom(in, m.Admin) {
		return domain.Abort(domain.ExitNotAdmin)
	}
	body, err := codec.ParseUpdateWhiteListBody(in.Body)
	if err != nil {
		return err
	}

	init, wallet, err := m.walletOf(ctx, body.User)
	if err != nil {
		return err
	}
	set := &codec.SetWhiteListBody{QueryId: body.QueryId, User: body.User, Flag: body.Flag}
	return send(ctx, OutMessage{
		Dest:  wallet,
		Value: body.ForwardValue,
		Mode:  SendPayFeesSeparately,
		Init:  init,
	}, set)
}

func (m *Minter) preTransferCheck(ctx Context, in *domain.Message) error {
	check, err := codec.ParseTransferCheckBody(in.Body)
	if err != nil {
		return err
	}
	_, wallet, err := m.walletOf(ctx, check.Owner)
	if err != nil {
		return err
	}
	if in.Src == nil || *in.Src != wallet {
		return domain.Abort(domain.ExitInvalidSender)
	}
	return m.Policy.Check(ctx, m, in, check)
}

func (m *Minter) receiveBounced(ctx Context, in *domain.Message) error {
	op, queryId, s, err := codec.BouncedHeader(in.Body)
	if err != nil {
		return err
	}

	switch op {
	case domain.OpInternalTransfer:
		// a mint that did not reach the wallet
		amount, err := s.ReadCoins()
		if err != nil {
			return err
		}
		supply, err := domain.SubAmount(m.TotalSupply, amount)
		if err != nil {
			return domain.Abort(domain.ExitAmountOverflow)
		}
		m.TotalSupply = supply
	case domain.OpPreTransferCheck:
		return m.Policy.Bounced(ctx, m, queryId)
	}
	return nil
}
