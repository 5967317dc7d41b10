package contract

import (
	"jetton/domain"
	"jetton/domain/codec"
	"math/big"

	"github.com/tonkeeper/tongo"
	"github.com/tonkeeper/tongo/boc"
)

// Wallet holds one owner's balance. It is deployed by the first credit sent to its
// derived address and trusts only its minter and wallets derived the same way.
type Wallet struct {
	Balance    *big.Int
	Owner      tongo.AccountID
	Minter     tongo.AccountID
	WalletCode *boc.Cell
	Record     domain.AntiBotRecord
}

func NewWallet(owner, minter tongo.AccountID, walletCode *boc.Cell, disableTime uint64) *Wallet {
	return &Wallet{
		Balance:    domain.ZeroAmount(),
		Owner:      owner,
		Minter:     minter,
		WalletCode: walletCode,
		Record:     domain.AntiBotRecord{DisableTime: disableTime},
	}
}

func LoadWallet(data *boc.Cell) (*Wallet, error) {
	s := codec.NewSlice(data)
	w := &Wallet{}
	var err error
	if w.Balance, err = s.ReadCoins(); err != nil {
		return nil, err
	}
	if w.Owner, err = s.ReadRequiredAddress(); err != nil {
		return nil, err
	}
	if w.Minter, err = s.ReadRequiredAddress(); err != nil {
		return nil, err
	}
	if w.WalletCode, err = s.ReadRef(); err != nil {
		return nil, err
	}
	recordCell, err := s.ReadRef()
	if err != nil {
		return nil, err
	}

	r := codec.NewSlice(recordCell)
	flag, err := r.ReadInt(32)
	if err != nil {
		return nil, err
	}
	w.Record.IsWhiteList = int32(flag)
	if w.Record.LastTransactionTime, err = r.ReadUint(64); err != nil {
		return nil, err
	}
	if w.Record.DisableTime, err = r.ReadUint(64); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Wallet) Data() (*boc.Cell, error) {
	r := codec.NewBuilder()
	r.WriteInt(int64(w.Record.IsWhiteList), 32)
	r.WriteUint(w.Record.LastTransactionTime, 64)
	r.WriteUint(w.Record.DisableTime, 64)
	record, err := r.Cell()
	if err != nil {
		return nil, err
	}

	b := codec.NewBuilder()
	b.WriteCoins(w.Balance)
	b.WriteAddress(&w.Owner)
	b.WriteAddress(&w.Minter)
	b.WriteRef(w.WalletCode)
	b.WriteRef(record)
	return b.Cell()
}

func (w *Wallet) WalletData(self tongo.AccountID) domain.WalletData {
	return domain.WalletData{
		Address:    self,
		Deployed:   true,
		Balance:    new(big.Int).Set(w.Balance),
		Owner:      w.Owner,
		Minter:     w.Minter,
		WalletCode: w.WalletCode,
		AntiBot:    w.Record,
	}
}

func (w *Wallet) Receive(ctx Context, in *domain.Message) error {
	if in.Bounced {
		return w.receiveBounced(ctx, in)
	}

	op, err := codec.PeekOp(in.Body)
	if err != nil {
		return err
	}

	switch op {
	case 0, domain.OpExcesses:
		return nil
	case domain.OpTransfer:
		return w.transfer(ctx, in)
	case domain.OpInternalTransfer:
		return w.receiveCredit(ctx, in)
	case domain.OpBurn:
		return w.burn(ctx, in)
	case domain.OpExecuteTransfer:
		return w.executeTransfer(ctx, in)
	case domain.OpSetWhiteList:
		return w.setWhiteList(in)
	}
	return domain.Abort(domain.ExitWrongOp)
}

func (w *Wallet) transfer(ctx Context, in *domain.Message) error {
	body, err := codec.ParseTransferBody(in.Body)
	if err != nil {
		return err
	}
	if !isFrom(in, w.Owner) {
		return domain.Abort(domain.ExitNotOwner)
	}
	if body.Destination.Workchain != codec.BaseWorkchain {
		return domain.Abort(domain.ExitWrongWorkchain)
	}

	now := ctx.Now()
	policyActive := w.Record.PolicyActive(now)
	policyHops := uint64(0)
	if policyActive {
		policyHops = domain.PolicyHops
	}
	chain := domain.TransferChain(body.ForwardAmount, policyHops)
	if !domain.Covers(in.Value, chain, in.FwdFee, domain.GasReserve) {
		return domain.Abort(domain.ExitNotEnoughTon)
	}

	balance, err := domain.SubAmount(w.Balance, body.Amount)
	if err != nil {
		return domain.Abort(domain.ExitBalanceError)
	}
	w.Balance = balance

	details := &codec.TransferDetails{
		Destination:         body.Destination,
		ResponseDestination: body.ResponseDestination,
		ForwardAmount:       body.ForwardAmount,
		ForwardPayload:      body.ForwardPayload,
	}

	if !policyActive {
		w.Record.LastTransactionTime = now
		return w.sendTransfer(ctx, body.QueryId, body.Amount, details)
	}

	detailsCell, err := details.ToCell()
	if err != nil {
		return err
	}
	check := &codec.TransferCheckBody{
		QueryId:             body.QueryId,
		Amount:              body.Amount,
		Owner:               w.Owner,
		IsWhiteList:         w.Record.IsWhiteList,
		LastTransactionTime: w.Record.LastTransactionTime,
		Details:             detailsCell,
	}
	return send(ctx, OutMessage{Dest: w.Minter, Mode: SendCarryInbound, Bounce: true}, check)
}

func (w *Wallet) sendTransfer(ctx Context, queryId uint64, amount *big.Int, details *codec.TransferDetails) error {
	init, err := WalletStateInit(details.Destination, w.Minter, w.WalletCode, w.Record.DisableTime)
	if err != nil {
		return err
	}
	dest, err := codec.DeriveAddress(codec.BaseWorkchain, init)
	if err != nil {
		return err
	}

	owner := w.Owner
	credit := &codec.InternalTransferBody{
		QueryId:         queryId,
		Amount:          amount,
		From:            &owner,
		ResponseAddress: details.ResponseDestination,
		ForwardAmount:   details.ForwardAmount,
		ForwardPayload:  details.ForwardPayload,
	}
	return send(ctx, OutMessage{Dest: dest, Mode: SendCarryInbound, Bounce: true, Init: init}, credit)
}

func (w *Wallet) executeTransfer(ctx Context, in *domain.Message) error {
	if !isFrom(in, w.Minter) {
		return domain.Abort(domain.ExitNotAnAuthority)
	}
	body, err := codec.ParseExecuteTransferBody(in.Body)
	if err != nil {
		return err
	}
	if !body.Approved || body.Details == nil {
		return w.refund(ctx, body.QueryId, body.Amount)
	}

	details, err := codec.ParseTransferDetails(body.Details)
	if err != nil {
		return err
	}

	// What is left after the policy round trip must still carry the credit.
	if !domain.Covers(in.Value, domain.TransferChain(details.ForwardAmount, 0), in.FwdFee, domain.GasReserve) {
		return w.refund(ctx, body.QueryId, body.Amount)
	}

	// Only an approved transfer counts for time dilation.
	if now := ctx.Now(); now > w.Record.LastTransactionTime {
		w.Record.LastTransactionTime = now
	}
	return w.sendTransfer(ctx, body.QueryId, body.Amount, details)
}

// refund gives back a debited amount whose transfer did not go through.
func (w *Wallet) refund(ctx Context, queryId uint64, amount *big.Int) error {
	balance, err := domain.AddAmount(w.Balance, amount)
	if err != nil {
		return domain.Abort(domain.ExitAmountOverflow)
	}
	w.Balance = balance
	return excesses(ctx, w.Owner, queryId, SendCarryInbound|SendIgnoreErrors)
}

func (w *Wallet) receiveCredit(ctx Context, in *domain.Message) error {
	body, err := codec.ParseInternalTransferBody(in.Body)
	if err != nil {
		return err
	}

	authorized := isFrom(in, w.Minter)
	if !authorized && body.From != nil && in.Src != nil {
		sibling, err := WalletAddress(*body.From, w.Minter, w.WalletCode, w.Record.DisableTime)
		if err != nil {
			return err
		}
		authorized = *in.Src == sibling
	}
	if !authorized {
		return domain.Abort(domain.ExitInvalidSender)
	}

	balance, err := domain.AddAmount(w.Balance, body.Amount)
	if err != nil {
		return domain.Abort(domain.ExitAmountOverflow)
	}
	w.Balance = balance

	reserve := balanceBefore(ctx, in)
	if reserve < domain.StorageReserve {
		reserve = domain.StorageReserve
	}
	ctx.Reserve(reserve)

	if body.ForwardAmount > 0 {
		notification := &codec.TransferNotificationBody{
			QueryId:        body.QueryId,
			Amount:         body.Amount,
			Sender:         body.From,
			ForwardPayload: body.ForwardPayload,
		}
		err = send(ctx, OutMessage{Dest: w.Owner, Value: body.ForwardAmount, Mode: SendPayFeesSeparately}, notification)
		if err != nil {
			return err
		}
	}

	if body.ResponseAddress != nil {
		return excesses(ctx, *body.ResponseAddress, body.QueryId, SendCarryBalance|SendIgnoreErrors)
	}
	return nil
}

func (w *Wallet) burn(ctx Context, in *domain.Message) error {
	body, err := codec.ParseBurnBody(in.Body)
	if err != nil {
		return err
	}
	if !isFrom(in, w.Owner) {
		return domain.Abort(domain.ExitNotOwner)
	}
	if !domain.Covers(in.Value, domain.BurnChain(), in.FwdFee, domain.GasReserve) {
		return domain.Abort(domain.ExitNotEnoughGas)
	}

	balance, err := domain.SubAmount(w.Balance, body.Amount)
	if err != nil {
		return domain.Abort(domain.ExitBalanceError)
	}
	w.Balance = balance

	notification := &codec.BurnNotificationBody{
		QueryId:             body.QueryId,
		Amount:              body.Amount,
		Sender:              w.Owner,
		ResponseDestination: body.ResponseDestination,
	}
	return send(ctx, OutMessage{Dest: w.Minter, Mode: SendCarryInbound, Bounce: true}, notification)
}

func (w *Wallet) setWhiteList(in *domain.Message) error {
	if !isFrom(in, w.Minter) {
		return domain.Abort(domain.ExitNotAnAuthority)
	}
	body, err := codec.ParseSetWhiteListBody(in.Body)
	if err != nil {
		return err
	}
	if body.User != w.Owner {
		return domain.Abort(domain.ExitInvalidSender)
	}
	w.Record.IsWhiteList = body.Flag
	return nil
}

// receiveBounced restores amounts debited for messages that did not go through.
func (w *Wallet) receiveBounced(ctx Context, in *domain.Message) error {
	op, queryId, s, err := codec.BouncedHeader(in.Body)
	if err != nil {
		return err
	}

	switch op {
	case domain.OpInternalTransfer, domain.OpBurnNotification, domain.OpPreTransferCheck:
		amount, err := s.ReadCoins()
		if err != nil {
			return err
		}
		balance, err := domain.AddAmount(w.Balance, amount)
		if err != nil {
			return domain.Abort(domain.ExitAmountOverflow)
		}
		w.Balance = balance

		if op == domain.OpPreTransferCheck {
			return excesses(ctx, w.Owner, queryId, SendCarryInbound|SendIgnoreErrors)
		}
	}
	return nil
}
