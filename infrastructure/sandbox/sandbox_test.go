package sandbox

import (
	"jetton/domain"
	"jetton/domain/codec"
	"jetton/domain/contract"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tonkeeper/tongo"
	"github.com/tonkeeper/tongo/boc"
	"github.com/tonkeeper/tongo/tlb"
)

const (
	counterEcho = iota + 1
	counterAbort
	counterOverspend
	counterOverspendIgnored
	counterKeepAndDrain
)

var counterCode = codec.MustCodeCell("counter")

// counter counts the messages it accepted and reacts to a one byte command.
type counter struct {
	count uint64
}

func loadCounter(data *boc.Cell) (contract.Actor, error) {
	count, err := codec.NewSlice(data).ReadUint(32)
	if err != nil {
		return nil, err
	}
	return &counter{count: count}, nil
}

func (p *counter) Data() (*boc.Cell, error) {
	b := codec.NewBuilder()
	b.WriteUint(p.count, 32)
	return b.Cell()
}

func (p *counter) Receive(ctx contract.Context, in *domain.Message) error {
	if in.Bounced {
		return nil
	}
	command, err := codec.NewSlice(in.Body).ReadUint(8)
	if err != nil {
		return err
	}
	p.count++

	switch command {
	case counterEcho:
		ctx.Send(contract.OutMessage{Dest: *in.Src, Mode: contract.SendCarryInbound, Body: in.Body})
	case counterAbort:
		return domain.Abort(domain.ExitNotOwner)
	case counterOverspend:
		ctx.Send(contract.OutMessage{Dest: *in.Src, Value: domain.TonToGrams("1000")})
	case counterOverspendIgnored:
		ctx.Send(contract.OutMessage{Dest: *in.Src, Value: domain.TonToGrams("1000"), Mode: contract.SendIgnoreErrors})
	case counterKeepAndDrain:
		ctx.Reserve(domain.TonToGrams("1"))
		ctx.Send(contract.OutMessage{Dest: *in.Src, Mode: contract.SendCarryBalance})
	}
	return nil
}

func command(t *testing.T, c uint64) *boc.Cell {
	b := codec.NewBuilder()
	b.WriteUint(c, 8)
	cell, err := b.Cell()
	require.NoError(t, err)
	return cell
}

type fixture struct {
	sandbox *Sandbox
	user    tongo.AccountID
	counter tongo.AccountID
	seen    []*domain.Transaction
}

func newFixture(t *testing.T) *fixture {
	registry := contract.NewRegistry()
	registry.MustRegister(counterCode, loadCounter)

	f := &fixture{
		sandbox: New(domain.DefaultFeeSchedule(), registry, nil, 1000),
		user:    domain.PrincipalAddress("user"),
	}
	f.sandbox.Subscribe(func(tx *domain.Transaction) {
		f.seen = append(f.seen, tx)
	})
	f.sandbox.Fund(f.user, domain.TonToGrams("10"))

	addr, err := f.sandbox.Deploy(counterCode, &counter{}, domain.TonToGrams("2"))
	require.NoError(t, err)
	f.counter = addr
	return f
}

func (f *fixture) count(t *testing.T) uint64 {
	actor, err := f.sandbox.Actor(f.counter)
	require.NoError(t, err)
	return actor.(*counter).count
}

func (f *fixture) balance(addr tongo.AccountID) tlb.Grams {
	acc, _ := f.sandbox.Account(addr)
	return acc.Balance
}

func TestDeployTwice(t *testing.T) {
	f := newFixture(t)
	_, err := f.sandbox.Deploy(counterCode, &counter{}, 0)
	assert.ErrorIs(t, err, ErrorAccountExists)
}

func TestEchoCarriesInboundValue(t *testing.T) {
	f := newFixture(t)
	fees := f.sandbox.Fees()
	value := domain.TonToGrams("1")

	trace, err := f.sandbox.Send(f.user, f.counter, value, command(t, counterEcho))
	require.NoError(t, err)
	require.Len(t, trace.Transactions, 2)
	assert.Equal(t, domain.ExitOk, trace.FirstExitCode())
	assert.Equal(t, uint64(1), f.count(t))

	echo := trace.Transactions[1].InMessage
	assert.Equal(t, value-fees.ComputeFee-fees.ForwardFee, echo.Value)
	assert.Equal(t, domain.TonToGrams("2"), f.balance(f.counter))
	assert.Equal(t, domain.TonToGrams("10")-2*fees.ForwardFee-fees.ComputeFee, f.balance(f.user))
	assert.Len(t, f.seen, 2)
}

func TestAbortRestoresStateAndBounces(t *testing.T) {
	f := newFixture(t)
	fees := f.sandbox.Fees()
	value := domain.TonToGrams("1")

	trace, err := f.sandbox.Send(f.user, f.counter, value, command(t, counterAbort))
	require.NoError(t, err)
	require.Len(t, trace.Transactions, 2)

	tx := trace.Transactions[0]
	assert.Equal(t, domain.ExitNotOwner, tx.ExitCode)
	assert.Equal(t, uint64(0), f.count(t))
	assert.Equal(t, domain.TonToGrams("2"), f.balance(f.counter))

	bounce := trace.Transactions[1].InMessage
	assert.True(t, bounce.Bounced)
	assert.False(t, bounce.Bounce)
	assert.Equal(t, value-fees.ComputeFee-fees.ForwardFee, bounce.Value)

	op, err := codec.NewSlice(bounce.Body).ReadUint(32)
	require.NoError(t, err)
	assert.Equal(t, uint64(domain.OpBounced), op)
}

func TestActionPhaseFailure(t *testing.T) {
	f := newFixture(t)

	trace, err := f.sandbox.Send(f.user, f.counter, domain.TonToGrams("1"), command(t, counterOverspend))
	require.NoError(t, err)
	assert.Equal(t, domain.ExitActionPhase, trace.FirstExitCode())
	assert.Equal(t, uint64(0), f.count(t))

	trace, err = f.sandbox.Send(f.user, f.counter, domain.TonToGrams("1"), command(t, counterOverspendIgnored))
	require.NoError(t, err)
	assert.Equal(t, domain.ExitOk, trace.FirstExitCode())
	assert.Len(t, trace.Transactions, 1)
	assert.Equal(t, uint64(1), f.count(t))
}

func TestReserveThenCarryBalance(t *testing.T) {
	f := newFixture(t)
	fees := f.sandbox.Fees()

	trace, err := f.sandbox.Send(f.user, f.counter, domain.TonToGrams("1"), command(t, counterKeepAndDrain))
	require.NoError(t, err)
	require.Len(t, trace.Transactions, 2)
	assert.Equal(t, domain.TonToGrams("1"), f.balance(f.counter))

	drained := trace.Transactions[1].InMessage
	assert.Equal(t, domain.TonToGrams("2")-fees.ComputeFee-fees.ForwardFee, drained.Value)
}

func TestComputeFunds(t *testing.T) {
	f := newFixture(t)
	poor, err := f.sandbox.Deploy(counterCode, &counter{count: 7}, 0)
	require.NoError(t, err)

	trace, err := f.sandbox.Send(f.user, poor, 1000, command(t, counterEcho))
	require.NoError(t, err)
	assert.Equal(t, domain.ExitComputeFunds, trace.FirstExitCode())
	assert.Len(t, trace.Transactions, 1)
	acc, ok := f.sandbox.Account(poor)
	require.True(t, ok)
	assert.Equal(t, tlb.Grams(1000), acc.Balance)
}

func TestUnknownDestination(t *testing.T) {
	f := newFixture(t)
	nobody := domain.PrincipalAddress("nobody")

	trace, err := f.sandbox.Send(f.user, nobody, domain.TonToGrams("1"), command(t, counterEcho))
	require.NoError(t, err)
	require.Len(t, trace.Transactions, 2)
	assert.True(t, trace.Transactions[0].Skipped)
	assert.True(t, trace.Transactions[1].InMessage.Bounced)
	_, ok := f.sandbox.Account(nobody)
	assert.False(t, ok)
}

func TestSenderChecks(t *testing.T) {
	f := newFixture(t)

	_, err := f.sandbox.Send(domain.PrincipalAddress("ghost"), f.counter, 1, nil)
	assert.ErrorIs(t, err, ErrorUnknownAccount)

	_, err = f.sandbox.Send(f.user, f.counter, domain.TonToGrams("11"), nil)
	assert.ErrorIs(t, err, ErrorInsufficientBalance)

	_, err = f.sandbox.Actor(f.user)
	assert.ErrorIs(t, err, ErrorNotAnActor)
}

func TestSendAllInterleaves(t *testing.T) {
	f := newFixture(t)
	other := domain.PrincipalAddress("other")
	f.sandbox.Fund(other, domain.TonToGrams("10"))

	traces, err := f.sandbox.SendAll([]Submission{
		{From: f.user, To: f.counter, Value: domain.TonToGrams("1"), Body: command(t, counterEcho)},
		{From: other, To: f.counter, Value: domain.TonToGrams("1"), Body: command(t, counterEcho)},
	})
	require.NoError(t, err)
	require.Len(t, traces, 2)
	assert.NotEqual(t, traces[0].Id, traces[1].Id)

	// both counter transactions run before either echo is delivered
	require.Len(t, f.seen, 4)
	assert.Equal(t, f.counter, f.seen[0].Account)
	assert.Equal(t, f.counter, f.seen[1].Account)
	assert.Equal(t, f.user, f.seen[2].Account)
	assert.Equal(t, other, f.seen[3].Account)
	assert.Equal(t, uint64(2), f.count(t))
	assert.ElementsMatch(t, []tongo.AccountID{f.counter}, f.sandbox.AccountsWithCode(counterCode))
}
