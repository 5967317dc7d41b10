package repository

import (
	"encoding/json"
	"jetton/domain"

	"github.com/behrang/sqlbatch"
)

const (
	sqlJournalInsert = `
	insert into transactions (
			trace_id, lt, account, opcode, exit_code, value, time, info
		)
		values (
			$1, $2, $3, $4, $5, $6, $7, $8::jsonb
		)
	on conflict (lt) do nothing
`

	sqlJournalFindByTrace = `
	select
		trace_id, lt, account, opcode, exit_code, value, time, info
	from transactions
	where trace_id = $1
	order by lt
`

	sqlJournalFindSince = `
	select
		trace_id, lt, account, opcode, exit_code, value, time, info
	from transactions
	where lt > $1
	order by lt
	limit $2
`

	sqlJournalMaxLt = `
	select coalesce(max(lt), 0) from transactions
`
)

// JournalRepository keeps every transaction the ledger executed.
type JournalRepository struct {
	batchHandler BatchHandler
}

func NewJournalRepository(db BatchHandler) *JournalRepository {
	return &JournalRepository{batchHandler: db}
}

func scanJournalEntry(scan func(...interface{}) error) (domain.JournalEntry, error) {
	r := domain.JournalEntry{}
	var infoJson []byte
	err := scan(
		&r.TraceId, &r.Lt, &r.Account, &r.Opcode, &r.ExitCode, &r.Value, &r.Time, &infoJson,
	)
	if err != nil {
		return r, err
	}
	err = json.Unmarshal(infoJson, &r.Info)
	return r, err
}

func readAllJournalEntries(all interface{}, scan func(...interface{}) error) (interface{}, error) {
	r, err := scanJournalEntry(scan)
	list := all.([]domain.JournalEntry)
	list = append(list, r)
	return list, err
}

func readMaxLt(scan func(...interface{}) error) (interface{}, error) {
	var lt uint64
	err := scan(&lt)
	return lt, err
}

// InsertAll stores the entries of one trace in a single transaction.
func (repo *JournalRepository) InsertAll(entries []domain.JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}

	commands := make([]sqlbatch.Command, 0, len(entries))
	for _, e := range entries {
		infoJson, err := jsonb(e.Info)
		if err != nil {
			return err
		}
		commands = append(commands, sqlbatch.Command{
			Query: sqlJournalInsert,
			Args: []interface{}{
				e.TraceId, e.Lt, e.Account, e.Opcode, e.ExitCode, e.Value, e.Time, infoJson,
			},
		})
	}

	_, err := repo.batchHandler.Batch(&BatchOptionNormal, commands)
	return err
}

func (repo *JournalRepository) FindByTrace(traceId string) ([]domain.JournalEntry, error) {
	results, err := repo.batchHandler.Batch(&BatchOptionNormalReadOnly, []sqlbatch.Command{
		{
			Query:   sqlJournalFindByTrace,
			Args:    []interface{}{traceId},
			Init:    make([]domain.JournalEntry, 0),
			ReadAll: readAllJournalEntries,
		},
	})
	result, _ := results[0].([]domain.JournalEntry)
	return result, err
}

func (repo *JournalRepository) FindSince(lt uint64, limit int) ([]domain.JournalEntry, error) {
	results, err := repo.batchHandler.Batch(&BatchOptionNormalReadOnly, []sqlbatch.Command{
		{
			Query:   sqlJournalFindSince,
			Args:    []interface{}{lt, limit},
			Init:    make([]domain.JournalEntry, 0),
			ReadAll: readAllJournalEntries,
		},
	})
	result, _ := results[0].([]domain.JournalEntry)
	return result, err
}

func (repo *JournalRepository) MaxLt() (uint64, error) {
	results, err := repo.batchHandler.Batch(&BatchOptionNormalReadOnly, []sqlbatch.Command{
		{
			Query:   sqlJournalMaxLt,
			ReadOne: readMaxLt,
		},
	})
	result, _ := results[0].(uint64)
	return result, err
}
