package repository

import (
	"database/sql"
	"encoding/json"
	"jetton/domain"
	"reflect"
	"testing"
	"time"

	"github.com/behrang/sqlbatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	opts     []*sql.TxOptions
	commands [][]sqlbatch.Command
	results  []interface{}
	err      error
}

func (h *recordingHandler) Batch(opts *sql.TxOptions, commands []sqlbatch.Command) ([]interface{}, error) {
	h.opts = append(h.opts, opts)
	h.commands = append(h.commands, commands)
	results := h.results
	if results == nil {
		results = make([]interface{}, len(commands))
	}
	return results, h.err
}

// scanner fills the destinations from values, the way sql.Rows.Scan would for matching types.
func scanner(values ...interface{}) func(...interface{}) error {
	return func(dest ...interface{}) error {
		for i, d := range dest {
			reflect.ValueOf(d).Elem().Set(reflect.ValueOf(values[i]))
		}
		return nil
	}
}

func TestJournalInsertAll(t *testing.T) {
	h := &recordingHandler{}
	repo := NewJournalRepository(h)

	require.NoError(t, repo.InsertAll(nil))
	assert.Empty(t, h.commands)

	entries := []domain.JournalEntry{
		{TraceId: "t-1", Lt: 1, Account: "a", Opcode: domain.OpTransfer, Info: domain.JournalInfo{Operation: "transfer"}},
		{TraceId: "t-1", Lt: 2, Account: "b", Opcode: domain.OpInternalTransfer, ExitCode: 708},
	}
	require.NoError(t, repo.InsertAll(entries))
	require.Len(t, h.commands, 1)
	require.Len(t, h.commands[0], 2)
	assert.Equal(t, &BatchOptionNormal, h.opts[0])

	args := h.commands[0][1].Args
	assert.Equal(t, uint64(2), args[1])
	assert.Equal(t, int32(708), args[4])

	var info domain.JournalInfo
	require.NoError(t, json.Unmarshal(h.commands[0][0].Args[7].([]byte), &info))
	assert.Equal(t, "transfer", info.Operation)
}

func TestReadAllJournalEntries(t *testing.T) {
	now := time.Unix(1700000000, 0)
	info := []byte(`{"operation":"burn","bounced":true}`)

	all, err := readAllJournalEntries(make([]domain.JournalEntry, 0),
		scanner("t-2", uint64(7), "acc", uint32(domain.OpBurn), int32(0), uint64(100), now, info))
	require.NoError(t, err)

	list := all.([]domain.JournalEntry)
	require.Len(t, list, 1)
	assert.Equal(t, "t-2", list[0].TraceId)
	assert.Equal(t, "burn", list[0].Info.Operation)
	assert.True(t, list[0].Info.Bounced)
}

func TestRequestLifecycleCommands(t *testing.T) {
	h := &recordingHandler{}
	repo := NewRequestRepository(h)
	now := time.Unix(1700000000, 0)

	request := domain.LedgerRequest{
		Id:         "r-1",
		Kind:       domain.StepTransfer,
		Sender:     "alice",
		Payload:    domain.RequestPayload{To: "bob", Amount: "1.5"},
		CreateTime: now,
	}
	_, err := repo.Insert(request)
	require.NoError(t, err)
	require.Len(t, h.commands[0], 2)
	var payload domain.RequestPayload
	require.NoError(t, json.Unmarshal(h.commands[0][0].Args[3].([]byte), &payload))
	assert.Equal(t, request.Payload, payload)

	require.NoError(t, repo.SetRetrying("r-1", now))
	assert.Equal(t, &BatchOptionSerializable, h.opts[1])
	assert.EqualValues(t, 1, h.commands[1][0].Affect)

	require.NoError(t, repo.SetProcessed("r-1", domain.RequestStateFailed, 901, "t-9", now))
	assert.Equal(t, []interface{}{"r-1", domain.RequestStateFailed, int32(901), "t-9", now}, h.commands[2][0].Args)
}

func TestReadRequest(t *testing.T) {
	now := time.Unix(1700000000, 0)
	code := int32(0)
	trace := "t-3"

	r, err := readRequest(scanner("r-2", domain.StepMint, "admin", []byte(`{"to":"carol","amount":"10"}`),
		domain.RequestStateDone, 1, &code, &trace, now, &now, &now))
	require.NoError(t, err)

	request := r.(*domain.LedgerRequest)
	assert.Equal(t, "carol", request.Payload.To)
	assert.Equal(t, "10", request.Payload.Amount)
	assert.Equal(t, domain.RequestStateDone, request.State)
	require.NotNil(t, request.TraceId)
	assert.Equal(t, "t-3", *request.TraceId)
}

func TestMemoLoadMissing(t *testing.T) {
	h := &recordingHandler{err: sql.ErrNoRows}
	memo, err := NewMemoRepository(h).Load("audit")
	assert.NoError(t, err)
	assert.Nil(t, memo)
}

func TestMemoSave(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	h := &recordingHandler{}
	h.results = []interface{}{nil, &domain.Memo{Key: "audit", Memo: "{}", UpdateTime: at}}

	audit := &domain.AuditMemo{LastLt: 7, TotalSupply: "10", Healthy: true}
	saved, err := NewMemoRepository(h).Save("audit", audit, at)
	require.NoError(t, err)
	assert.Equal(t, at, saved.UpdateTime)

	require.Len(t, h.commands[0], 2)
	args := h.commands[0][0].Args
	assert.Equal(t, "audit", args[0])
	assert.JSONEq(t, audit.ToJson(), args[1].(string))
	assert.Equal(t, at, args[2])

	memo, err := scanMemo(scanner("audit", []byte(`{"last_lt":7}`), at))
	require.NoError(t, err)
	assert.Equal(t, &domain.Memo{Key: "audit", Memo: `{"last_lt":7}`, UpdateTime: at}, memo)
}

func TestEnsureSchema(t *testing.T) {
	h := &recordingHandler{}
	require.NoError(t, EnsureSchema(h))
	require.Len(t, h.commands, 1)
	assert.Len(t, h.commands[0], len(schema))
}
