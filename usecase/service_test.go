package usecase

import (
	"errors"
	"jetton/domain"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryJournal struct {
	entries []domain.JournalEntry
}

func (j *memoryJournal) InsertAll(entries []domain.JournalEntry) error {
	j.entries = append(j.entries, entries...)
	return nil
}

func (j *memoryJournal) FindByTrace(traceId string) ([]domain.JournalEntry, error) {
	res := make([]domain.JournalEntry, 0)
	for _, e := range j.entries {
		if e.TraceId == traceId {
			res = append(res, e)
		}
	}
	return res, nil
}

type memoryRequests struct {
	requests map[string]*domain.LedgerRequest
}

func newMemoryRequests() *memoryRequests {
	return &memoryRequests{requests: make(map[string]*domain.LedgerRequest)}
}

func (r *memoryRequests) Insert(request domain.LedgerRequest) (*domain.LedgerRequest, error) {
	stored := request
	r.requests[request.Id] = &stored
	return &stored, nil
}

func (r *memoryRequests) Find(id string) (*domain.LedgerRequest, error) {
	return r.requests[id], nil
}

func (r *memoryRequests) FindAllTriable(maxRetry int) ([]domain.LedgerRequest, error) {
	res := make([]domain.LedgerRequest, 0)
	for _, request := range r.requests {
		if (request.State == domain.RequestStateNew || request.State == domain.RequestStateError) && request.Retried < maxRetry {
			res = append(res, *request)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreateTime.Before(res[j].CreateTime) })
	return res, nil
}

func (r *memoryRequests) SetState(id string, state string) error {
	r.requests[id].State = state
	return nil
}

func (r *memoryRequests) SetRetrying(id string, timestamp time.Time) error {
	request := r.requests[id]
	if request.State != domain.RequestStateNew && request.State != domain.RequestStateError {
		return errors.New("request is taken")
	}
	request.Retried++
	request.RetryTime = &timestamp
	request.State = domain.RequestStateOngoing
	return nil
}

func (r *memoryRequests) SetProcessed(id string, state string, exitCode int32, traceId string, timestamp time.Time) error {
	request := r.requests[id]
	request.State = state
	request.ExitCode = &exitCode
	request.TraceId = &traceId
	request.ProcessTime = &timestamp
	return nil
}

type memoryMemos struct {
	memos map[string]string
}

func (m *memoryMemos) Save(key string, memo domain.Memorable, at time.Time) (*domain.Memo, error) {
	m.memos[key] = memo.ToJson()
	return &domain.Memo{Key: key, Memo: m.memos[key], UpdateTime: at}, nil
}

func (m *memoryMemos) Load(key string) (*domain.Memo, error) {
	memo, ok := m.memos[key]
	if !ok {
		return nil, nil
	}
	return &domain.Memo{Key: key, Memo: memo}, nil
}

func TestRequestProcessing(t *testing.T) {
	ledger := newTestLedger(t, domain.PolicyEmbedded)
	journal := &memoryJournal{}
	store := newMemoryRequests()
	requests := NewRequestInteractor(ledger, NewJournalInteractor(journal), store)

	minted, err := requests.Enqueue("Mint", "admin", domain.RequestPayload{To: "alice", Amount: "50"})
	require.NoError(t, err)
	assert.Equal(t, domain.StepMint, minted.Kind)

	denied, err := requests.Enqueue(domain.StepMint, "bob", domain.RequestPayload{To: "bob", Amount: "50"})
	require.NoError(t, err)
	denied.CreateTime = minted.CreateTime.Add(time.Millisecond)
	store.requests[denied.Id].CreateTime = denied.CreateTime

	processed, err := requests.ProcessTriable(3)
	require.NoError(t, err)
	assert.Equal(t, 2, processed)

	done, _ := requests.Find(minted.Id)
	assert.Equal(t, domain.RequestStateDone, done.State)
	require.NotNil(t, done.TraceId)
	entries, err := NewJournalInteractor(journal).Trace(*done.TraceId)
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
	assertBalance(t, ledger, alice, "50")

	failed, _ := requests.Find(denied.Id)
	assert.Equal(t, domain.RequestStateFailed, failed.State)
	require.NotNil(t, failed.ExitCode)
	assert.Equal(t, int32(domain.ExitNotAdmin), *failed.ExitCode)

	processed, err = requests.ProcessTriable(3)
	require.NoError(t, err)
	assert.Zero(t, processed)
}

func TestRequestErrorsAreRetried(t *testing.T) {
	ledger := newTestLedger(t, domain.PolicyEmbedded)
	store := newMemoryRequests()
	requests := NewRequestInteractor(ledger, NewJournalInteractor(nil), store)

	// nobody funded the sender, so the submission itself fails
	request, err := requests.Enqueue(domain.StepTransfer, "dave", domain.RequestPayload{To: "alice", Amount: "1"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		processed, err := requests.ProcessTriable(2)
		require.NoError(t, err)
		assert.Zero(t, processed)
	}
	stored, _ := requests.Find(request.Id)
	assert.Equal(t, domain.RequestStateError, stored.State)
	assert.Equal(t, 2, stored.Retried)
}

func TestEnqueueValidates(t *testing.T) {
	requests := NewRequestInteractor(nil, NewJournalInteractor(nil), newMemoryRequests())

	_, err := requests.Enqueue(domain.StepAdvance, "admin", domain.RequestPayload{})
	assert.ErrorIs(t, err, ErrorInvalidRequestKind)

	_, err = requests.Enqueue("teleport", "admin", domain.RequestPayload{})
	assert.ErrorIs(t, err, domain.ErrorUnknownStep)

	_, err = requests.Enqueue(domain.StepBurn, "admin", domain.RequestPayload{Amount: "lots"})
	assert.Error(t, err)
}

func TestAudit(t *testing.T) {
	ledger := newTestLedger(t, domain.PolicyEmbedded)
	memos := &memoryMemos{memos: make(map[string]string)}
	audit := NewAuditInteractor(ledger, NewMemoInteractor(memos))

	mint(t, ledger, alice, "70")
	mint(t, ledger, bob, "30")

	memo, err := audit.Audit(42)
	require.NoError(t, err)
	assert.True(t, memo.Healthy)
	assert.Equal(t, 2, memo.Holders)
	assert.Equal(t, jettons("100").String(), memo.TotalSupply)

	stored, err := NewMemoInteractor(memos).GetAuditMemo()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), stored.LastLt)
	assert.Zero(t, stored.Failures)
}

func TestAuditBeforeDeploy(t *testing.T) {
	audit := NewAuditInteractor(NewLedgerInteractor(nil), nil)
	_, err := audit.Audit(0)
	assert.ErrorIs(t, err, ErrorNotDeployed)
}

func TestMemoDefaults(t *testing.T) {
	memos := NewMemoInteractor(&memoryMemos{memos: make(map[string]string)})
	memo, err := memos.GetAuditMemo()
	require.NoError(t, err)
	assert.Equal(t, domain.AuditMemo{}, *memo)
}
