package repository

import (
	"database/sql"
	"jetton/domain"
	"time"

	"github.com/behrang/sqlbatch"
	"github.com/pkg/errors"
)

const (
	sqlMemoSave = `
	insert into memos as m (
			key, memo, update_time
		)
		values (
			$1, $2::jsonb, $3
		)
	on conflict (key) do
		update set
			memo = $2::jsonb,
			update_time = $3
		where m.update_time <= $3
`

	sqlMemoLoad = `
	select
		key, memo, update_time
	from memos
	where key = $1
`
)

// MemoRepository keeps one json document per key. A save never replaces a
// document written at a later time.
type MemoRepository struct {
	batchHandler BatchHandler
}

func NewMemoRepository(db BatchHandler) *MemoRepository {
	return &MemoRepository{batchHandler: db}
}

func scanMemo(scan func(...interface{}) error) (interface{}, error) {
	var memo domain.Memo
	var document []byte
	if err := scan(&memo.Key, &document, &memo.UpdateTime); err != nil {
		return nil, err
	}
	memo.Memo = string(document)
	return &memo, nil
}

func (repo *MemoRepository) Save(key string, memo domain.Memorable, at time.Time) (*domain.Memo, error) {
	results, err := repo.batchHandler.Batch(&BatchOptionNormal, []sqlbatch.Command{
		{
			Query: sqlMemoSave,
			Args:  []interface{}{key, memo.ToJson(), at},
		},
		{
			Query:   sqlMemoLoad,
			Args:    []interface{}{key},
			ReadOne: scanMemo,
		},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "save memo '%v'", key)
	}
	saved, _ := results[1].(*domain.Memo)
	return saved, nil
}

// Load returns nil without error when the key was never saved.
func (repo *MemoRepository) Load(key string) (*domain.Memo, error) {
	results, err := repo.batchHandler.Batch(&BatchOptionNormalReadOnly, []sqlbatch.Command{
		{
			Query:   sqlMemoLoad,
			Args:    []interface{}{key},
			ReadOne: scanMemo,
		},
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	memo, _ := results[0].(*domain.Memo)
	return memo, nil
}
