package contract

import (
	"jetton/domain"
	"jetton/domain/codec"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tonkeeper/tongo"
	"github.com/tonkeeper/tongo/boc"
	"github.com/tonkeeper/tongo/tlb"
)

type fakeContext struct {
	self     tongo.AccountID
	now      uint64
	balance  tlb.Grams
	sent     []OutMessage
	reserved []tlb.Grams
}

func (c *fakeContext) Self() tongo.AccountID    { return c.self }
func (c *fakeContext) Now() uint64              { return c.now }
func (c *fakeContext) Balance() tlb.Grams       { return c.balance }
func (c *fakeContext) Send(msg OutMessage)      { c.sent = append(c.sent, msg) }
func (c *fakeContext) Reserve(amount tlb.Grams) { c.reserved = append(c.reserved, amount) }

var (
	admin  = domain.PrincipalAddress("admin")
	owner  = domain.PrincipalAddress("owner")
	other  = domain.PrincipalAddress("other")
	minter = domain.PrincipalAddress("minter")
)

func limits() domain.PolicyLimits {
	return domain.PolicyLimits{
		PerTrade:      big.NewInt(100),
		PerBlock:      big.NewInt(150),
		BlockInterval: 5,
		TimeLimit:     10,
		DisableTime:   5000,
	}
}

func message(t *testing.T, src tongo.AccountID, value tlb.Grams, body codec.Body) *domain.Message {
	cell, err := body.ToCell()
	require.NoError(t, err)
	return &domain.Message{Src: &src, Value: value, FwdFee: domain.DefaultFeeSchedule().ForwardFee, Body: cell}
}

func offChain(t *testing.T) *boc.Cell {
	cell, err := codec.EncodeMetadata(domain.NewOffChainMetadata("ipfs://jetton"))
	require.NoError(t, err)
	return cell
}

func TestWalletDataRoundTrip(t *testing.T) {
	w := NewWallet(owner, minter, WalletCode, 4242)
	w.Balance = big.NewInt(1234567)
	w.Record.IsWhiteList = -1
	w.Record.LastTransactionTime = 99

	data, err := w.Data()
	require.NoError(t, err)
	loaded, err := LoadWallet(data)
	require.NoError(t, err)

	assert.Equal(t, "1234567", loaded.Balance.String())
	assert.Equal(t, owner, loaded.Owner)
	assert.Equal(t, minter, loaded.Minter)
	assert.True(t, IsCode(loaded.WalletCode, WalletCode))
	assert.Equal(t, w.Record, loaded.Record)
}

func TestMinterDataRoundTrip(t *testing.T) {
	embedded, err := NewMinter(admin, nil, offChain(t), NewEmbeddedPolicy(limits()), 5000)
	require.NoError(t, err)
	embedded.TotalSupply = big.NewInt(77)

	data, err := embedded.Data()
	require.NoError(t, err)
	loaded, err := LoadMinter(data)
	require.NoError(t, err)
	assert.Equal(t, "77", loaded.TotalSupply.String())
	assert.Nil(t, loaded.AntiBot)
	assert.Equal(t, domain.PolicyEmbedded, loaded.Policy.Mode())
	stored, _, ok := loaded.Policy.Limits()
	require.True(t, ok)
	assert.Equal(t, "150", stored.PerBlock.String())
	assert.Equal(t, uint64(5000), stored.DisableTime)

	antiBot := domain.PrincipalAddress("anti-bot")
	policy := NewExternalPolicy()
	external, err := NewMinter(admin, &antiBot, offChain(t), policy, 5000)
	require.NoError(t, err)

	ctx := &fakeContext{self: minter}
	check := &codec.TransferCheckBody{QueryId: 5, Amount: big.NewInt(10), Owner: owner, Details: offChain(t)}
	require.NoError(t, policy.Check(ctx, external, message(t, other, 1, check), check))
	require.Len(t, ctx.sent, 1)
	assert.Equal(t, antiBot, ctx.sent[0].Dest)

	data, err = external.Data()
	require.NoError(t, err)
	loaded, err = LoadMinter(data)
	require.NoError(t, err)
	require.NotNil(t, loaded.AntiBot)
	assert.Equal(t, antiBot, *loaded.AntiBot)
	assert.Equal(t, 1, loaded.Policy.(*ExternalPolicy).Pending())

	_, err = NewMinter(admin, nil, offChain(t), NewExternalPolicy(), 5000)
	assert.Error(t, err)
}

func TestAntiBotDataRoundTrip(t *testing.T) {
	a := NewAntiBot(admin, limits())
	a.Minter = &minter
	require.NoError(t, a.setWhiteList(message(t, admin, 1, &codec.SetWhiteListBody{User: owner, Flag: -1})))

	data, err := a.Data()
	require.NoError(t, err)
	loaded, err := LoadAntiBot(data)
	require.NoError(t, err)
	assert.Equal(t, int32(-1), loaded.WhiteListFlag(owner))
	assert.Equal(t, int32(0), loaded.WhiteListFlag(other))
	require.NotNil(t, loaded.Minter)
	assert.Equal(t, minter, *loaded.Minter)
	assert.Equal(t, "100", loaded.Limits.PerTrade.String())
}

func TestWalletAddressIsDeterministic(t *testing.T) {
	first, err := WalletAddress(owner, minter, WalletCode, 10)
	require.NoError(t, err)
	again, err := WalletAddress(owner, minter, WalletCode, 10)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	init, err := WalletStateInit(owner, minter, WalletCode, 10)
	require.NoError(t, err)
	derived, err := codec.DeriveAddress(codec.BaseWorkchain, init)
	require.NoError(t, err)
	assert.Equal(t, derived, first)

	for _, changed := range []func() (tongo.AccountID, error){
		func() (tongo.AccountID, error) { return WalletAddress(other, minter, WalletCode, 10) },
		func() (tongo.AccountID, error) { return WalletAddress(owner, other, WalletCode, 10) },
		func() (tongo.AccountID, error) { return WalletAddress(owner, minter, WalletCode, 11) },
	} {
		addr, err := changed()
		require.NoError(t, err)
		assert.NotEqual(t, first, addr)
	}
}

func TestWalletAuthorities(t *testing.T) {
	w := NewWallet(owner, minter, WalletCode, 5000)
	w.Balance = big.NewInt(500)
	ctx := &fakeContext{self: other, now: 100, balance: domain.TonToGrams("1")}

	err := w.Receive(ctx, message(t, other, 1, &codec.SetWhiteListBody{User: owner, Flag: -1}))
	assert.Equal(t, domain.ExitNotAnAuthority, domain.ExitCodeOf(err))

	err = w.Receive(ctx, message(t, other, 1, &codec.ExecuteTransferBody{Approved: true, Amount: big.NewInt(1)}))
	assert.Equal(t, domain.ExitNotAnAuthority, domain.ExitCodeOf(err))

	err = w.Receive(ctx, message(t, other, domain.TonToGrams("1"), &codec.BurnBody{Amount: big.NewInt(1)}))
	assert.Equal(t, domain.ExitNotOwner, domain.ExitCodeOf(err))

	err = w.Receive(ctx, message(t, owner, domain.TonToGrams("1"), &codec.ChangeAdminBody{NewAdmin: owner}))
	assert.Equal(t, domain.ExitWrongOp, domain.ExitCodeOf(err))
	assert.Empty(t, ctx.sent)
}

func TestWalletTransferSendsCheckWhilePolicyActive(t *testing.T) {
	w := NewWallet(owner, minter, WalletCode, 5000)
	w.Balance = big.NewInt(500)
	w.Record.LastTransactionTime = 42
	ctx := &fakeContext{self: other, now: 100, balance: domain.TonToGrams("1")}

	transfer := &codec.TransferBody{QueryId: 3, Amount: big.NewInt(200), Destination: other}
	require.NoError(t, w.Receive(ctx, message(t, owner, domain.TonToGrams("1"), transfer)))

	assert.Equal(t, "300", w.Balance.String())
	assert.Equal(t, uint64(42), w.Record.LastTransactionTime)
	require.Len(t, ctx.sent, 1)
	assert.Equal(t, minter, ctx.sent[0].Dest)
	assert.Equal(t, SendCarryInbound, ctx.sent[0].Mode)

	check, err := codec.ParseTransferCheckBody(ctx.sent[0].Body)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), check.LastTransactionTime)
	assert.Equal(t, owner, check.Owner)
	details, err := codec.ParseTransferDetails(check.Details)
	require.NoError(t, err)
	assert.Equal(t, other, details.Destination)
}

func TestWalletRejectedTransferRefunds(t *testing.T) {
	w := NewWallet(owner, minter, WalletCode, 5000)
	w.Balance = big.NewInt(300)
	ctx := &fakeContext{self: other, now: 100, balance: domain.TonToGrams("1")}

	execute := &codec.ExecuteTransferBody{QueryId: 3, Approved: false, Amount: big.NewInt(200)}
	require.NoError(t, w.Receive(ctx, message(t, minter, domain.TonToGrams("0.5"), execute)))

	assert.Equal(t, "500", w.Balance.String())
	assert.Equal(t, uint64(0), w.Record.LastTransactionTime)
	require.Len(t, ctx.sent, 1)
	assert.Equal(t, owner, ctx.sent[0].Dest)
	op, err := codec.PeekOp(ctx.sent[0].Body)
	require.NoError(t, err)
	assert.Equal(t, domain.OpExcesses, op)
}

func TestWalletApprovedTransferAdvancesTime(t *testing.T) {
	w := NewWallet(owner, minter, WalletCode, 5000)
	w.Record.LastTransactionTime = 42
	ctx := &fakeContext{self: other, now: 100, balance: domain.TonToGrams("1")}

	details, err := (&codec.TransferDetails{Destination: other}).ToCell()
	require.NoError(t, err)
	execute := &codec.ExecuteTransferBody{QueryId: 3, Approved: true, Amount: big.NewInt(200), Details: details}

	err = w.Receive(ctx, message(t, other, domain.TonToGrams("0.5"), execute))
	assert.Equal(t, domain.ExitNotAnAuthority, domain.ExitCodeOf(err))
	assert.Equal(t, uint64(42), w.Record.LastTransactionTime)

	require.NoError(t, w.Receive(ctx, message(t, minter, domain.TonToGrams("0.5"), execute)))
	assert.Equal(t, uint64(100), w.Record.LastTransactionTime)
	require.Len(t, ctx.sent, 1)
	op, err := codec.PeekOp(ctx.sent[0].Body)
	require.NoError(t, err)
	assert.Equal(t, domain.OpInternalTransfer, op)
}

func TestWalletBouncedCheckKeepsTime(t *testing.T) {
	w := NewWallet(owner, minter, WalletCode, 5000)
	w.Balance = big.NewInt(500)
	w.Record.LastTransactionTime = 42
	ctx := &fakeContext{self: other, now: 100, balance: domain.TonToGrams("1")}

	transfer := &codec.TransferBody{QueryId: 3, Amount: big.NewInt(200), Destination: other}
	require.NoError(t, w.Receive(ctx, message(t, owner, domain.TonToGrams("1"), transfer)))
	require.Len(t, ctx.sent, 1)

	b := codec.NewBuilder()
	b.WriteUint(uint64(domain.OpBounced), 32)
	b.WriteUint(uint64(domain.OpPreTransferCheck), 32)
	b.WriteUint(3, 64)
	b.WriteCoins(big.NewInt(200))
	bounced, err := b.Cell()
	require.NoError(t, err)

	in := &domain.Message{Src: &minter, Value: domain.TonToGrams("0.9"), Bounced: true, Body: bounced}
	require.NoError(t, w.Receive(ctx, in))
	assert.Equal(t, "500", w.Balance.String())
	assert.Equal(t, uint64(42), w.Record.LastTransactionTime)
}

func TestEmbeddedDenialKeepsWindow(t *testing.T) {
	m, err := NewMinter(admin, nil, offChain(t), NewEmbeddedPolicy(limits()), 5000)
	require.NoError(t, err)
	wallet, err := WalletAddress(owner, minter, m.WalletCode, m.DisableTime)
	require.NoError(t, err)
	ctx := &fakeContext{self: minter, now: 1000}

	check := &codec.TransferCheckBody{QueryId: 1, Amount: big.NewInt(101), Owner: owner, Details: offChain(t)}
	err = m.Receive(ctx, message(t, wallet, domain.TonToGrams("1"), check))
	assert.Equal(t, domain.ExitPerTradeLimit, domain.ExitCodeOf(err))
	_, window, _ := m.Policy.Limits()
	assert.Equal(t, uint64(0), window.LastBlockTime)

	check.Amount = big.NewInt(100)
	err = m.Receive(ctx, message(t, other, domain.TonToGrams("1"), check))
	assert.Equal(t, domain.ExitInvalidSender, domain.ExitCodeOf(err))

	require.NoError(t, m.Receive(ctx, message(t, wallet, domain.TonToGrams("1"), check)))
	_, window, _ = m.Policy.Limits()
	assert.Equal(t, uint64(1000), window.LastBlockTime)
	assert.Equal(t, "100", window.LastBlockAmount.String())
	require.Len(t, ctx.sent, 1)
	assert.Equal(t, wallet, ctx.sent[0].Dest)

	err = m.Receive(ctx, message(t, wallet, 1, &codec.ExecuteTransferBody{Approved: true, Amount: big.NewInt(1)}))
	assert.Equal(t, domain.ExitNotAnAuthority, domain.ExitCodeOf(err))
}

func TestExternalVerdicts(t *testing.T) {
	antiBot := domain.PrincipalAddress("anti-bot")
	policy := NewExternalPolicy()
	m, err := NewMinter(admin, &antiBot, offChain(t), policy, 5000)
	require.NoError(t, err)
	wallet, err := WalletAddress(owner, minter, m.WalletCode, m.DisableTime)
	require.NoError(t, err)
	ctx := &fakeContext{self: minter, now: 1000}

	check := &codec.TransferCheckBody{QueryId: 77, Amount: big.NewInt(10), Owner: owner, Details: offChain(t)}
	require.NoError(t, m.Receive(ctx, message(t, wallet, domain.TonToGrams("1"), check)))
	forwarded, err := codec.ParseTransferCheckBody(ctx.sent[0].Body)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), forwarded.QueryId)

	verdict := &codec.ExecuteTransferBody{QueryId: forwarded.QueryId, Approved: true, Amount: big.NewInt(10), Details: forwarded.Details}
	err = m.Receive(ctx, message(t, other, 1, verdict))
	assert.Equal(t, domain.ExitNotAnAuthority, domain.ExitCodeOf(err))

	unknown := *verdict
	unknown.QueryId = 9
	err = m.Receive(ctx, message(t, antiBot, 1, &unknown))
	assert.Equal(t, domain.ExitMalformedRecord, domain.ExitCodeOf(err))

	require.NoError(t, m.Receive(ctx, message(t, antiBot, 1, verdict)))
	require.Len(t, ctx.sent, 2)
	assert.Equal(t, wallet, ctx.sent[1].Dest)
	relayed, err := codec.ParseExecuteTransferBody(ctx.sent[1].Body)
	require.NoError(t, err)
	assert.Equal(t, uint64(77), relayed.QueryId)
	assert.True(t, relayed.Approved)
	assert.Equal(t, 0, policy.Pending())
}

func TestVerdictFromReplacedAntiBot(t *testing.T) {
	antiBot := domain.PrincipalAddress("anti-bot")
	replacement := domain.PrincipalAddress("replacement")
	policy := NewExternalPolicy()
	m, err := NewMinter(admin, &antiBot, offChain(t), policy, 5000)
	require.NoError(t, err)
	wallet, err := WalletAddress(owner, minter, m.WalletCode, m.DisableTime)
	require.NoError(t, err)
	ctx := &fakeContext{self: minter, now: 1000}

	check := &codec.TransferCheckBody{QueryId: 5, Amount: big.NewInt(10), Owner: owner, Details: offChain(t)}
	require.NoError(t, m.Receive(ctx, message(t, wallet, domain.TonToGrams("1"), check)))
	require.Equal(t, 1, policy.Pending())
	forwarded, err := codec.ParseTransferCheckBody(ctx.sent[0].Body)
	require.NoError(t, err)

	require.NoError(t, m.Receive(ctx, message(t, admin, domain.TonToGrams("0.1"), &codec.ChangeAntiBotBody{NewAntiBot: replacement})))
	assert.Equal(t, replacement, *m.AntiBot)

	verdict := &codec.ExecuteTransferBody{QueryId: forwarded.QueryId, Approved: true, Amount: big.NewInt(10), Details: forwarded.Details}
	err = m.Receive(ctx, message(t, replacement, 1, verdict))
	assert.Equal(t, domain.ExitNotAnAuthority, domain.ExitCodeOf(err))
	assert.Equal(t, 1, policy.Pending())

	sent := len(ctx.sent)
	require.NoError(t, m.Receive(ctx, message(t, antiBot, 1, verdict)))
	assert.Equal(t, 0, policy.Pending())
	require.Len(t, ctx.sent, sent+1)
	assert.Equal(t, wallet, ctx.sent[sent].Dest)
	relayed, err := codec.ParseExecuteTransferBody(ctx.sent[sent].Body)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), relayed.QueryId)
	assert.True(t, relayed.Approved)

	// checks issued after the change go to the new anti-bot
	require.NoError(t, m.Receive(ctx, message(t, wallet, domain.TonToGrams("1"), check)))
	assert.Equal(t, replacement, ctx.sent[len(ctx.sent)-1].Dest)
}

func TestAntiBotChecksOnlyFromMinter(t *testing.T) {
	a := NewAntiBot(admin, limits())
	ctx := &fakeContext{self: other, now: 1000}
	check := &codec.TransferCheckBody{QueryId: 1, Amount: big.NewInt(10), Owner: owner, Details: offChain(t)}

	err := a.Receive(ctx, message(t, minter, 1, check))
	assert.Equal(t, domain.ExitNotAnAuthority, domain.ExitCodeOf(err))

	err = a.Receive(ctx, message(t, other, 1, &codec.SetMinterBody{Minter: minter}))
	assert.Equal(t, domain.ExitNotAuthorized, domain.ExitCodeOf(err))
	require.NoError(t, a.Receive(ctx, message(t, admin, 1, &codec.SetMinterBody{Minter: minter})))

	require.NoError(t, a.Receive(ctx, message(t, minter, 1, check)))
	require.Len(t, ctx.sent, 1)
	assert.Equal(t, minter, ctx.sent[0].Dest)
	assert.Equal(t, "10", a.Window.LastBlockAmount.String())

	check.Amount = big.NewInt(1)
	check.LastTransactionTime = 995
	err = a.Receive(ctx, message(t, minter, 1, check))
	assert.Equal(t, domain.ExitTimeDilation, domain.ExitCodeOf(err))
	assert.Equal(t, "10", a.Window.LastBlockAmount.String())
}
