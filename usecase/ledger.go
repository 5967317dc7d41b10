package usecase

import (
	"fmt"
	"jetton/domain"
	"jetton/domain/codec"
	"jetton/domain/contract"
	"jetton/domain/util"
	"jetton/infrastructure/sandbox"
	"log"
	"math/big"
	"strings"
	"sync"

	"github.com/tonkeeper/tongo"
	"github.com/tonkeeper/tongo/tlb"
)

var (
	ErrorNotDeployed    = fmt.Errorf("ledger is not deployed")
	ErrorDeployFailed   = fmt.Errorf("ledger deployment failed")
	ErrorNoAntiBot      = fmt.Errorf("ledger runs the embedded policy")
	ErrorUnexpectedExit = fmt.Errorf("unexpected exit code")
)

const (
	// Value kept by the minter and the anti-bot on deployment.
	InitialActorBalance = tlb.Grams(1_000_000_000)
	DefaultTransferTon  = "0.2"
	DefaultBurnTon      = "0.1"
	DefaultAdminTon     = "0.05"
	DefaultMintTon      = "0.1"
)

type DeployParams struct {
	Admin        tongo.AccountID
	AntiBotOwner tongo.AccountID
	Mode         domain.PolicyMode
	Limits       domain.PolicyLimits
	Content      domain.Metadata
}

// LedgerInteractor drives the sandbox ledger. The sandbox is single-threaded, every
// call holds the interactor lock while messages are processed.
type LedgerInteractor struct {
	mu      sync.Mutex
	sandbox *sandbox.Sandbox
	minter  tongo.AccountID
	admin   tongo.AccountID
	ready   bool
	queryId uint64
}

func NewLedgerInteractor(sb *sandbox.Sandbox) *LedgerInteractor {
	return &LedgerInteractor{
		sandbox: sb,
	}
}

func (interactor *LedgerInteractor) Deploy(params DeployParams) (tongo.AccountID, error) {
	interactor.mu.Lock()
	defer interactor.mu.Unlock()

	content, err := codec.EncodeMetadata(params.Content)
	if err != nil {
		return tongo.AccountID{}, err
	}

	var policy contract.TransferPolicy
	var antiBot *tongo.AccountID
	switch params.Mode {
	case domain.PolicyExternal:
		addr, err := interactor.sandbox.Deploy(contract.AntiBotCode, contract.NewAntiBot(params.AntiBotOwner, params.Limits), InitialActorBalance)
		if err != nil {
			return tongo.AccountID{}, err
		}
		antiBot = &addr
		policy = contract.NewExternalPolicy()
	default:
		policy = contract.NewEmbeddedPolicy(params.Limits)
	}

	minter, err := contract.NewMinter(params.Admin, antiBot, content, policy, params.Limits.DisableTime)
	if err != nil {
		return tongo.AccountID{}, err
	}
	addr, err := interactor.sandbox.Deploy(contract.MinterCode, minter, InitialActorBalance)
	if err != nil {
		return tongo.AccountID{}, err
	}

	if antiBot != nil {
		body, err := (&codec.SetMinterBody{QueryId: interactor.nextQueryId(), Minter: addr}).ToCell()
		if err != nil {
			return tongo.AccountID{}, err
		}
		trace, err := interactor.sandbox.Send(params.AntiBotOwner, *antiBot, domain.TonToGrams(DefaultAdminTon), body)
		if err != nil {
			return tongo.AccountID{}, err
		}
		if code := trace.FirstExitCode(); !code.IsOk() {
			return tongo.AccountID{}, fmt.Errorf("%w: binding anti-bot exited with %v", ErrorDeployFailed, code)
		}
	}

	interactor.minter = addr
	interactor.admin = params.Admin
	interactor.ready = true

	log.Printf("✅ Ledger deployed at %v with the %v policy\n", addr.ToHuman(true, domain.IsTestNet()), policy.Mode())
	return addr, nil
}

func (interactor *LedgerInteractor) nextQueryId() uint64 {
	interactor.queryId++
	return interactor.queryId
}

func (interactor *LedgerInteractor) Minter() (tongo.AccountID, error) {
	interactor.mu.Lock()
	defer interactor.mu.Unlock()

	if !interactor.ready {
		return tongo.AccountID{}, ErrorNotDeployed
	}
	return interactor.minter, nil
}

func (interactor *LedgerInteractor) Fund(addr tongo.AccountID, amount tlb.Grams) {
	interactor.mu.Lock()
	defer interactor.mu.Unlock()

	interactor.sandbox.Fund(addr, amount)
}

func (interactor *LedgerInteractor) Advance(seconds uint64) {
	interactor.mu.Lock()
	defer interactor.mu.Unlock()

	interactor.sandbox.Advance(seconds)
}

// SyncClock moves the ledger time forward to now. The ledger time never goes back.
func (interactor *LedgerInteractor) SyncClock(now uint64) {
	interactor.mu.Lock()
	defer interactor.mu.Unlock()

	if now > interactor.sandbox.Now() {
		interactor.sandbox.SetNow(now)
	}
}

func (interactor *LedgerInteractor) Now() uint64 {
	interactor.mu.Lock()
	defer interactor.mu.Unlock()

	return interactor.sandbox.Now()
}

// Submit sends an already built body from a principal.
func (interactor *LedgerInteractor) Submit(from, to tongo.AccountID, value tlb.Grams, body codec.Body) (*domain.Trace, error) {
	cell, err := body.ToCell()
	if err != nil {
		return nil, err
	}

	interactor.mu.Lock()
	defer interactor.mu.Unlock()

	if !interactor.ready {
		return nil, ErrorNotDeployed
	}
	return interactor.sandbox.Send(from, to, value, cell)
}

// SubmitAll sends several bodies at once so that their chains interleave.
func (interactor *LedgerInteractor) SubmitAll(submissions []sandbox.Submission) ([]*domain.Trace, error) {
	interactor.mu.Lock()
	defer interactor.mu.Unlock()

	if !interactor.ready {
		return nil, ErrorNotDeployed
	}
	return interactor.sandbox.SendAll(submissions)
}

//-------------------------------------------------------------------
// Operations

// Mint is sent by sender, normally the admin. The excess returns to sender.
func (interactor *LedgerInteractor) Mint(sender, to tongo.AccountID, amount *big.Int, totalValue, forward tlb.Grams) (*domain.Trace, error) {
	minter, err := interactor.Minter()
	if err != nil {
		return nil, err
	}
	queryId := interactor.lockedQueryId()
	body := &codec.MintBody{
		QueryId:     queryId,
		Destination: to,
		TotalValue:  totalValue,
		Transfer: codec.InternalTransferBody{
			QueryId:         queryId,
			Amount:          amount,
			From:            &minter,
			ResponseAddress: &sender,
			ForwardAmount:   forward,
		},
	}
	return interactor.Submit(sender, minter, totalValue+domain.GasReserve, body)
}

func (interactor *LedgerInteractor) Transfer(from, to tongo.AccountID, amount *big.Int, value, forward tlb.Grams, payload string) (*domain.Trace, error) {
	wallet, err := interactor.WalletAddress(from)
	if err != nil {
		return nil, err
	}
	response := from
	body := &codec.TransferBody{
		QueryId:             interactor.lockedQueryId(),
		Amount:              amount,
		Destination:         to,
		ResponseDestination: &response,
		ForwardAmount:       forward,
	}
	if payload != "" {
		cell, err := codec.EncodeSnake(0, []byte(payload))
		if err != nil {
			return nil, err
		}
		body.ForwardPayload = cell
	}
	return interactor.Submit(from, wallet, value, body)
}

func (interactor *LedgerInteractor) Burn(owner tongo.AccountID, amount *big.Int, value tlb.Grams) (*domain.Trace, error) {
	wallet, err := interactor.WalletAddress(owner)
	if err != nil {
		return nil, err
	}
	response := owner
	body := &codec.BurnBody{
		QueryId:             interactor.lockedQueryId(),
		Amount:              amount,
		ResponseDestination: &response,
	}
	return interactor.Submit(owner, wallet, value, body)
}

// WhiteList is sent by sender, normally the admin, through the minter.
func (interactor *LedgerInteractor) WhiteList(sender, user tongo.AccountID, flag int32, forward tlb.Grams) (*domain.Trace, error) {
	minter, err := interactor.Minter()
	if err != nil {
		return nil, err
	}
	body := &codec.UpdateWhiteListBody{
		QueryId:      interactor.lockedQueryId(),
		User:         user,
		ForwardValue: forward,
		Flag:         flag,
	}
	return interactor.Submit(sender, minter, forward+domain.GasReserve, body)
}

func (interactor *LedgerInteractor) ChangeAdmin(sender, newAdmin tongo.AccountID) (*domain.Trace, error) {
	minter, err := interactor.Minter()
	if err != nil {
		return nil, err
	}
	body := &codec.ChangeAdminBody{QueryId: interactor.lockedQueryId(), NewAdmin: newAdmin}
	trace, err := interactor.Submit(sender, minter, domain.TonToGrams(DefaultAdminTon), body)
	if err == nil && trace.FirstExitCode().IsOk() {
		interactor.mu.Lock()
		interactor.admin = newAdmin
		interactor.mu.Unlock()
	}
	return trace, err
}

func (interactor *LedgerInteractor) ChangeContent(sender tongo.AccountID, content domain.Metadata) (*domain.Trace, error) {
	minter, err := interactor.Minter()
	if err != nil {
		return nil, err
	}
	cell, err := codec.EncodeMetadata(content)
	if err != nil {
		return nil, err
	}
	body := &codec.ChangeContentBody{QueryId: interactor.lockedQueryId(), Content: cell}
	return interactor.Submit(sender, minter, domain.TonToGrams(DefaultAdminTon), body)
}

func (interactor *LedgerInteractor) ChangeAntiBot(sender, antiBot tongo.AccountID) (*domain.Trace, error) {
	minter, err := interactor.Minter()
	if err != nil {
		return nil, err
	}
	body := &codec.ChangeAntiBotBody{QueryId: interactor.lockedQueryId(), NewAntiBot: antiBot}
	return interactor.Submit(sender, minter, domain.TonToGrams(DefaultAdminTon), body)
}

func (interactor *LedgerInteractor) ProvideWalletAddress(sender, owner tongo.AccountID, includeAddress bool, value tlb.Grams) (*domain.Trace, error) {
	minter, err := interactor.Minter()
	if err != nil {
		return nil, err
	}
	body := &codec.ProvideWalletAddressBody{
		QueryId:        interactor.lockedQueryId(),
		Owner:          owner,
		IncludeAddress: includeAddress,
	}
	return interactor.Submit(sender, minter, value, body)
}

func (interactor *LedgerInteractor) lockedQueryId() uint64 {
	interactor.mu.Lock()
	defer interactor.mu.Unlock()

	return interactor.nextQueryId()
}

//-------------------------------------------------------------------
// Scenario steps

// Apply runs one scenario step. Steps that send nothing return a nil trace.
func (interactor *LedgerInteractor) Apply(step domain.ScenarioStep) (*domain.Trace, error) {
	if err := step.Validate(); err != nil {
		return nil, err
	}

	action := strings.ToLower(step.Action)
	if action == domain.StepAdvance {
		interactor.Advance(step.AdvanceSeconds())
		return nil, nil
	}

	admin := interactor.Admin()
	from := admin
	if step.From != "" {
		addr, err := domain.ResolveAccountId(step.From)
		if err != nil {
			return nil, err
		}
		from = addr
	}
	var to tongo.AccountID
	if step.To != "" {
		addr, err := domain.ResolveAccountId(step.To)
		if err != nil {
			return nil, err
		}
		to = addr
	}
	forward, err := step.ForwardGrams()
	if err != nil {
		return nil, err
	}

	switch action {
	case domain.StepFund:
		value, err := step.ValueGrams(0)
		if err != nil {
			return nil, err
		}
		interactor.Fund(to, value)
		return nil, nil

	case domain.StepMint:
		amount, _ := domain.ParseAmount(step.Amount, util.JettonDecimals)
		value, err := step.ValueGrams(domain.TonToGrams(DefaultMintTon) + forward)
		if err != nil {
			return nil, err
		}
		return interactor.Mint(from, to, amount, value, forward)

	case domain.StepTransfer:
		amount, _ := domain.ParseAmount(step.Amount, util.JettonDecimals)
		value, err := step.ValueGrams(domain.TonToGrams(DefaultTransferTon) + forward)
		if err != nil {
			return nil, err
		}
		return interactor.Transfer(from, to, amount, value, forward, "")

	case domain.StepBurn:
		amount, _ := domain.ParseAmount(step.Amount, util.JettonDecimals)
		value, err := step.ValueGrams(domain.TonToGrams(DefaultBurnTon))
		if err != nil {
			return nil, err
		}
		return interactor.Burn(from, amount, value)

	case domain.StepWhiteList:
		if forward == 0 {
			forward = domain.TonToGrams(DefaultAdminTon)
		}
		return interactor.WhiteList(from, to, step.Flag, forward)

	case domain.StepProvideAddress:
		value, err := step.ValueGrams(domain.TonToGrams(DefaultAdminTon))
		if err != nil {
			return nil, err
		}
		return interactor.ProvideWalletAddress(from, to, true, value)

	case domain.StepChangeAdmin:
		return interactor.ChangeAdmin(from, to)

	case domain.StepChangeAntiBot:
		return interactor.ChangeAntiBot(from, to)
	}
	return nil, fmt.Errorf("%w '%v'", domain.ErrorUnknownStep, step.Action)
}

// Run applies the steps in order and checks their expected exit codes.
func (interactor *LedgerInteractor) Run(steps []domain.ScenarioStep) ([]*domain.Trace, error) {
	traces := make([]*domain.Trace, 0, len(steps))
	for i, step := range steps {
		trace, err := interactor.Apply(step)
		if err != nil {
			return traces, fmt.Errorf("step %v (%v): %w", i+1, step.Action, err)
		}
		if trace == nil {
			continue
		}
		traces = append(traces, trace)

		expected, declared, _ := step.Expected()
		if got := trace.FirstExitCode(); declared && got != expected {
			return traces, fmt.Errorf("%w: step %v (%v) exited with %v, expected %v", ErrorUnexpectedExit, i+1, step.Action, got, expected)
		}
	}
	return traces, nil
}

//-------------------------------------------------------------------
// Queries

func (interactor *LedgerInteractor) Admin() tongo.AccountID {
	interactor.mu.Lock()
	defer interactor.mu.Unlock()

	return interactor.admin
}

func (interactor *LedgerInteractor) loadMinter() (*contract.Minter, error) {
	if !interactor.ready {
		return nil, ErrorNotDeployed
	}
	actor, err := interactor.sandbox.Actor(interactor.minter)
	if err != nil {
		return nil, err
	}
	minter, ok := actor.(*contract.Minter)
	if !ok {
		return nil, fmt.Errorf("account %v is not a minter", interactor.minter.ToRaw())
	}
	return minter, nil
}

func (interactor *LedgerInteractor) JettonData() (*domain.JettonData, error) {
	interactor.mu.Lock()
	defer interactor.mu.Unlock()

	minter, err := interactor.loadMinter()
	if err != nil {
		return nil, err
	}
	data := minter.JettonData(interactor.minter)
	return &data, nil
}

func (interactor *LedgerInteractor) WalletAddress(owner tongo.AccountID) (tongo.AccountID, error) {
	interactor.mu.Lock()
	defer interactor.mu.Unlock()

	minter, err := interactor.loadMinter()
	if err != nil {
		return tongo.AccountID{}, err
	}
	return minter.WalletAddress(interactor.minter, owner)
}

// WalletData reports an undeployed wallet with a zero balance.
func (interactor *LedgerInteractor) WalletData(owner tongo.AccountID) (*domain.WalletData, error) {
	interactor.mu.Lock()
	defer interactor.mu.Unlock()

	minter, err := interactor.loadMinter()
	if err != nil {
		return nil, err
	}
	addr, err := minter.WalletAddress(interactor.minter, owner)
	if err != nil {
		return nil, err
	}
	return interactor.walletData(addr, minter, owner)
}

func (interactor *LedgerInteractor) walletData(addr tongo.AccountID, minter *contract.Minter, owner tongo.AccountID) (*domain.WalletData, error) {
	acc, ok := interactor.sandbox.Account(addr)
	if !ok || acc.IsPrincipal() {
		return &domain.WalletData{
			Address:    addr,
			Balance:    domain.ZeroAmount(),
			Owner:      owner,
			Minter:     interactor.minter,
			WalletCode: minter.WalletCode,
			AntiBot:    domain.AntiBotRecord{DisableTime: minter.DisableTime},
		}, nil
	}

	actor, err := interactor.sandbox.Actor(addr)
	if err != nil {
		return nil, err
	}
	wallet, ok := actor.(*contract.Wallet)
	if !ok {
		return nil, fmt.Errorf("account %v is not a wallet", addr.ToRaw())
	}
	data := wallet.WalletData(addr)
	data.NativeTon = acc.Balance
	return &data, nil
}

// Holders lists every deployed wallet of the ledger.
func (interactor *LedgerInteractor) Holders() ([]domain.WalletData, error) {
	interactor.mu.Lock()
	defer interactor.mu.Unlock()

	minter, err := interactor.loadMinter()
	if err != nil {
		return nil, err
	}
	addrs := interactor.sandbox.AccountsWithCode(minter.WalletCode)
	res := make([]domain.WalletData, 0, len(addrs))
	for _, addr := range addrs {
		actor, err := interactor.sandbox.Actor(addr)
		if err != nil {
			return nil, err
		}
		wallet, ok := actor.(*contract.Wallet)
		if !ok || wallet.Minter != interactor.minter {
			continue
		}
		data, err := interactor.walletData(addr, minter, wallet.Owner)
		if err != nil {
			return nil, err
		}
		res = append(res, *data)
	}
	return res, nil
}

// loadAntiBot follows the minter to the anti-bot it currently asks. Only a minter
// running the external policy has one.
func (interactor *LedgerInteractor) loadAntiBot(minter *contract.Minter) (tongo.AccountID, *contract.AntiBot, error) {
	if minter.Policy.Mode() != domain.PolicyExternal || minter.AntiBot == nil {
		return tongo.AccountID{}, nil, ErrorNoAntiBot
	}
	addr := *minter.AntiBot
	actor, err := interactor.sandbox.Actor(addr)
	if err != nil {
		return tongo.AccountID{}, nil, err
	}
	antiBot, ok := actor.(*contract.AntiBot)
	if !ok {
		return tongo.AccountID{}, nil, fmt.Errorf("account %v is not an anti-bot", addr.ToRaw())
	}
	return addr, antiBot, nil
}

// AntiBotData reads the standalone anti-bot, or the limits embedded in the minter.
func (interactor *LedgerInteractor) AntiBotData() (*domain.AntiBotData, error) {
	interactor.mu.Lock()
	defer interactor.mu.Unlock()

	minter, err := interactor.loadMinter()
	if err != nil {
		return nil, err
	}
	if limits, window, embedded := minter.Policy.Limits(); embedded {
		self := interactor.minter
		return &domain.AntiBotData{Owner: minter.Admin, Minter: &self, Limits: limits, Window: window}, nil
	}

	_, antiBot, err := interactor.loadAntiBot(minter)
	if err != nil {
		return nil, err
	}
	data := antiBot.AntiBotData()
	return &data, nil
}

func (interactor *LedgerInteractor) RecordAddress(owner tongo.AccountID) (tongo.AccountID, error) {
	interactor.mu.Lock()
	defer interactor.mu.Unlock()

	minter, err := interactor.loadMinter()
	if err != nil {
		return tongo.AccountID{}, err
	}
	addr, antiBot, err := interactor.loadAntiBot(minter)
	if err != nil {
		return tongo.AccountID{}, err
	}
	return antiBot.RecordAddress(addr, owner)
}

// TotalBalance sums the balances of every deployed wallet.
func (interactor *LedgerInteractor) TotalBalance() (*big.Int, int, error) {
	holders, err := interactor.Holders()
	if err != nil {
		return nil, 0, err
	}
	total := domain.ZeroAmount()
	for _, holder := range holders {
		total.Add(total, holder.Balance)
	}
	return total, len(holders), nil
}
