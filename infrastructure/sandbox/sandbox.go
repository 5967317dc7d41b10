package sandbox

import (
	"fmt"
	"jetton/domain"
	"jetton/domain/codec"
	"jetton/domain/contract"
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/tonkeeper/tongo"
	"github.com/tonkeeper/tongo/boc"
	"github.com/tonkeeper/tongo/tlb"
	"go.uber.org/zap"
)

// Bits of the original body kept in a bounce, after the 0xffffffff prefix.
const bouncedBodyBits = 256

var (
	ErrorUnknownAccount      = fmt.Errorf("unknown account")
	ErrorAccountExists       = fmt.Errorf("account already exists")
	ErrorInsufficientBalance = fmt.Errorf("insufficient balance")
	ErrorNotAnActor          = fmt.Errorf("account has no code")
)

// Account is the substrate view of an address. Principals have no code: they are
// the admins and holders acting from outside and only collect value.
type Account struct {
	Address tongo.AccountID
	Code    *boc.Cell
	Data    *boc.Cell
	Balance tlb.Grams
}

func (a *Account) IsPrincipal() bool {
	return a.Code == nil
}

type Observer func(tx *domain.Transaction)

// Submission is one message injected by a principal.
type Submission struct {
	From  tongo.AccountID
	To    tongo.AccountID
	Value tlb.Grams
	Body  *boc.Cell
}

type queued struct {
	msg   *domain.Message
	trace *domain.Trace
}

// Sandbox is a single-threaded message substrate. It delivers messages in FIFO order,
// charges flat fees, applies the actors' actions and bounces what fails. It is not
// goroutine-safe; callers serialize access.
type Sandbox struct {
	fees      domain.FeeSchedule
	registry  *contract.Registry
	accounts  map[tongo.AccountID]*Account
	queue     []queued
	now       uint64
	lt        uint64
	logger    *zap.Logger
	observers []Observer
}

func New(fees domain.FeeSchedule, registry *contract.Registry, logger *zap.Logger, now uint64) *Sandbox {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sandbox{
		fees:     fees,
		registry: registry,
		accounts: make(map[tongo.AccountID]*Account),
		now:      now,
		logger:   logger,
	}
}

func (s *Sandbox) Subscribe(observer Observer) {
	s.observers = append(s.observers, observer)
}

func (s *Sandbox) Fees() domain.FeeSchedule {
	return s.fees
}

func (s *Sandbox) Now() uint64 {
	return s.now
}

func (s *Sandbox) SetNow(now uint64) {
	s.now = now
}

func (s *Sandbox) Advance(seconds uint64) {
	s.now += seconds
}

// Deploy places an actor at the address derived from its code and initial data.
func (s *Sandbox) Deploy(code *boc.Cell, actor contract.Actor, balance tlb.Grams) (tongo.AccountID, error) {
	init, err := contract.NewStateInit(code, actor)
	if err != nil {
		return tongo.AccountID{}, err
	}
	addr, err := codec.DeriveAddress(codec.BaseWorkchain, init)
	if err != nil {
		return tongo.AccountID{}, err
	}
	if _, ok := s.accounts[addr]; ok {
		return addr, errors.Wrapf(ErrorAccountExists, "deploying %v", addr.ToRaw())
	}
	s.accounts[addr] = &Account{Address: addr, Code: init.Code, Data: init.Data, Balance: balance}
	s.logger.Info("deployed",
		zap.String("account", addr.ToRaw()),
		zap.String("code", s.registry.Name(code)),
		zap.Uint64("balance", uint64(balance)))
	return addr, nil
}

// Fund credits an account, creating a principal when the address is unknown.
func (s *Sandbox) Fund(addr tongo.AccountID, amount tlb.Grams) {
	acc, ok := s.accounts[addr]
	if !ok {
		acc = &Account{Address: addr}
		s.accounts[addr] = acc
	}
	acc.Balance += amount
}

// Account returns a copy of the account state.
func (s *Sandbox) Account(addr tongo.AccountID) (Account, bool) {
	acc, ok := s.accounts[addr]
	if !ok {
		return Account{}, false
	}
	return *acc, true
}

// Actor decodes the current persisted state of an actor account.
func (s *Sandbox) Actor(addr tongo.AccountID) (contract.Actor, error) {
	acc, ok := s.accounts[addr]
	if !ok {
		return nil, errors.Wrapf(ErrorUnknownAccount, "%v", addr.ToRaw())
	}
	if acc.IsPrincipal() {
		return nil, errors.Wrapf(ErrorNotAnActor, "%v", addr.ToRaw())
	}
	return s.registry.Load(acc.Code, acc.Data)
}

// AccountsWithCode lists the actors running code, ordered by raw address.
func (s *Sandbox) AccountsWithCode(code *boc.Cell) []tongo.AccountID {
	res := make([]tongo.AccountID, 0)
	for addr, acc := range s.accounts {
		if contract.IsCode(acc.Code, code) {
			res = append(res, addr)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].ToRaw() < res[j].ToRaw()
	})
	return res
}

// Send injects one message and processes everything it causes.
func (s *Sandbox) Send(from, to tongo.AccountID, value tlb.Grams, body *boc.Cell) (*domain.Trace, error) {
	traces, err := s.SendAll([]Submission{{From: from, To: to, Value: value, Body: body}})
	if err != nil {
		return nil, err
	}
	return traces[0], nil
}

// SendAll injects several messages at once. Their chains are delivered interleaved,
// one message at a time in arrival order, until the queue is empty.
func (s *Sandbox) SendAll(submissions []Submission) ([]*domain.Trace, error) {
	costs := make(map[tongo.AccountID]tlb.Grams)
	for _, sub := range submissions {
		if _, ok := s.accounts[sub.From]; !ok {
			return nil, errors.Wrapf(ErrorUnknownAccount, "sender %v", sub.From.ToRaw())
		}
		costs[sub.From] += sub.Value + s.fees.ForwardFee
	}
	for from, cost := range costs {
		if s.accounts[from].Balance < cost {
			return nil, errors.Wrapf(ErrorInsufficientBalance, "sender %v has %v, needs %v",
				from.ToRaw(), s.accounts[from].Balance, cost)
		}
	}

	traces := make([]*domain.Trace, 0, len(submissions))
	for _, sub := range submissions {
		src := sub.From
		s.accounts[src].Balance -= sub.Value + s.fees.ForwardFee

		trace := &domain.Trace{Id: uuid.New().String()}
		traces = append(traces, trace)
		s.queue = append(s.queue, queued{
			msg: &domain.Message{
				Src:       &src,
				Dest:      sub.To,
				Value:     sub.Value,
				FwdFee:    s.fees.ForwardFee,
				Bounce:    true,
				Body:      sub.Body,
				CreatedLt: s.nextLt(),
				TraceId:   trace.Id,
			},
			trace: trace,
		})
	}
	s.logger.Debug("submitted", zap.Int("messages", len(submissions)))

	for len(s.queue) > 0 {
		next := s.queue[0]
		s.queue = s.queue[1:]
		tx := s.deliver(next.msg)
		next.trace.Transactions = append(next.trace.Transactions, tx)
		for _, out := range tx.OutMessages {
			s.queue = append(s.queue, queued{msg: out, trace: next.trace})
		}
		s.notify(tx)
	}
	return traces, nil
}

func (s *Sandbox) nextLt() uint64 {
	s.lt++
	return s.lt
}

func (s *Sandbox) notify(tx *domain.Transaction) {
	fields := []zap.Field{
		zap.String("trace", tx.TraceId),
		zap.Uint64("lt", tx.Lt),
		zap.String("account", tx.Account.ToRaw()),
		zap.String("op", domain.NewMessageFormatter(tx.InMessage).Op()),
		zap.Uint64("value", uint64(tx.InMessage.Value)),
		zap.Int("out", len(tx.OutMessages)),
	}
	if tx.Aborted() {
		s.logger.Warn("transaction aborted", append(fields, zap.Stringer("exit", tx.ExitCode))...)
	} else {
		s.logger.Debug("transaction", fields...)
	}

	for _, observer := range s.observers {
		observer(tx)
	}
}

// deliver runs one transaction.
func (s *Sandbox) deliver(msg *domain.Message) *domain.Transaction {
	tx := &domain.Transaction{
		TraceId:   msg.TraceId,
		Lt:        s.nextLt(),
		Now:       s.now,
		Account:   msg.Dest,
		InMessage: msg,
	}

	acc, ok := s.accounts[msg.Dest]
	if !ok {
		if !msg.HasStateInit() {
			if msg.Bounce && !msg.Bounced {
				// nothing there to run the message
				tx.Skipped = true
				s.bounce(tx, msg.Value)
				return tx
			}
			s.accounts[msg.Dest] = &Account{Address: msg.Dest, Balance: msg.Value}
			return tx
		}

		derived, err := codec.DeriveAddress(msg.Dest.Workchain, &codec.StateInit{Code: msg.Code, Data: msg.Data})
		if err != nil || derived != msg.Dest {
			tx.ExitCode = domain.ExitMalformedRecord
			s.bounce(tx, msg.Value)
			return tx
		}
		acc = &Account{Address: msg.Dest, Code: msg.Code, Data: msg.Data}
		s.accounts[msg.Dest] = acc
		tx.Deployed = true
	}

	if acc.IsPrincipal() {
		acc.Balance += msg.Value
		return tx
	}

	before := acc.Balance
	acc.Balance += msg.Value
	if acc.Balance < s.fees.ComputeFee {
		tx.ExitCode = domain.ExitComputeFunds
		if tx.Deployed {
			delete(s.accounts, acc.Address)
		}
		return tx
	}
	acc.Balance -= s.fees.ComputeFee
	tx.ComputeFee = s.fees.ComputeFee

	outs, data, err := s.execute(acc, msg)
	if err != nil {
		tx.ExitCode = domain.ExitCodeOf(err)
		s.logger.Debug("abort cause", zap.String("trace", tx.TraceId), zap.Error(err))

		acc.Balance = before
		if tx.Deployed {
			delete(s.accounts, acc.Address)
		}
		var refund tlb.Grams
		if msg.Value > s.fees.ComputeFee {
			refund = msg.Value - s.fees.ComputeFee
		}
		if !s.bounce(tx, refund) && !tx.Deployed {
			acc.Balance += refund
		}
		return tx
	}

	acc.Data = data
	tx.OutMessages = outs
	for _, out := range outs {
		tx.ForwardFees += out.FwdFee
	}
	return tx
}

// execute runs the actor and its action phase. The account balance is only
// updated when both succeed.
func (s *Sandbox) execute(acc *Account, msg *domain.Message) ([]*domain.Message, *boc.Cell, error) {
	actor, err := s.registry.Load(acc.Code, acc.Data)
	if err != nil {
		return nil, nil, errors.Wrapf(domain.Abort(domain.ExitMalformedRecord), "loading %v: %v", acc.Address.ToRaw(), err)
	}

	ctx := &execContext{self: acc.Address, now: s.now, balance: acc.Balance}
	if err := actor.Receive(ctx, msg); err != nil {
		return nil, nil, err
	}
	data, err := actor.Data()
	if err != nil {
		return nil, nil, err
	}

	outs, balance, err := s.applyActions(ctx, msg)
	if err != nil {
		return nil, nil, err
	}
	acc.Balance = balance
	return outs, data, nil
}

func (s *Sandbox) applyActions(ctx *execContext, in *domain.Message) ([]*domain.Message, tlb.Grams, error) {
	available := ctx.balance
	var reserved tlb.Grams
	inbound := tlb.Grams(0)
	if in.Value > s.fees.ComputeFee {
		inbound = in.Value - s.fees.ComputeFee
	}

	outs := make([]*domain.Message, 0, len(ctx.actions))
	for _, a := range ctx.actions {
		if a.reserve {
			r := a.amount
			if r > available {
				r = available
			}
			available -= r
			reserved += r
			continue
		}

		out := a.msg
		value := out.Value
		switch {
		case out.Mode.Has(contract.SendCarryBalance):
			value = available
		case out.Mode.Has(contract.SendCarryInbound):
			value += inbound
		}

		fwd := s.fees.ForwardFee
		cost := value
		msgValue := value
		if out.Mode.Has(contract.SendPayFeesSeparately) {
			cost += fwd
		} else if value >= fwd {
			msgValue = value - fwd
		} else {
			cost = available + 1
		}

		if cost > available {
			if out.Mode.Has(contract.SendIgnoreErrors) {
				continue
			}
			return nil, 0, errors.Wrapf(domain.Abort(domain.ExitActionPhase),
				"sending %v to %v needs %v, %v available", domain.OpName(peekOp(out.Body)), out.Dest.ToRaw(), cost, available)
		}
		available -= cost

		self := ctx.self
		msg := &domain.Message{
			Src:       &self,
			Dest:      out.Dest,
			Value:     msgValue,
			FwdFee:    fwd,
			Bounce:    out.Bounce,
			Body:      out.Body,
			CreatedLt: s.nextLt(),
			TraceId:   in.TraceId,
		}
		if out.Init != nil {
			msg.Code = out.Init.Code
			msg.Data = out.Init.Data
		}
		outs = append(outs, msg)
	}
	return outs, available + reserved, nil
}

// bounce returns value to the sender of a failed message. It reports whether a
// bounce was sent.
func (s *Sandbox) bounce(tx *domain.Transaction, value tlb.Grams) bool {
	in := tx.InMessage
	if !in.Bounce || in.Bounced || in.Src == nil || value <= s.fees.ForwardFee {
		return false
	}

	body, err := bouncedBody(in.Body)
	if err != nil {
		s.logger.Error("building bounce", zap.String("trace", tx.TraceId), zap.Error(err))
		return false
	}
	self := in.Dest
	tx.OutMessages = append(tx.OutMessages, &domain.Message{
		Src:       &self,
		Dest:      *in.Src,
		Value:     value - s.fees.ForwardFee,
		FwdFee:    s.fees.ForwardFee,
		Bounced:   true,
		Body:      body,
		CreatedLt: s.nextLt(),
		TraceId:   in.TraceId,
	})
	tx.ForwardFees += s.fees.ForwardFee
	return true
}

func bouncedBody(original *boc.Cell) (*boc.Cell, error) {
	b := codec.NewBuilder()
	b.WriteUint(uint64(domain.OpBounced), 32)
	if original != nil {
		s := codec.NewSlice(original)
		n := s.BitsLeft()
		if n > bouncedBodyBits {
			n = bouncedBodyBits
		}
		bits, err := s.ReadBits(n)
		if err != nil {
			return nil, err
		}
		b.WriteBits(bits)
	}
	return b.Cell()
}

func peekOp(body *boc.Cell) uint32 {
	op, _ := codec.PeekOp(body)
	return op
}

//-------------------------------------------------------------------

type action struct {
	reserve bool
	amount  tlb.Grams
	msg     contract.OutMessage
}

type execContext struct {
	self    tongo.AccountID
	now     uint64
	balance tlb.Grams
	actions []action
}

func (c *execContext) Self() tongo.AccountID {
	return c.self
}

func (c *execContext) Now() uint64 {
	return c.now
}

func (c *execContext) Balance() tlb.Grams {
	return c.balance
}

func (c *execContext) Send(msg contract.OutMessage) {
	c.actions = append(c.actions, action{msg: msg})
}

func (c *execContext) Reserve(amount tlb.Grams) {
	c.actions = append(c.actions, action{reserve: true, amount: amount})
}
