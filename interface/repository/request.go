package repository

import (
	"encoding/json"
	"jetton/domain"
	"time"

	"github.com/behrang/sqlbatch"
)

const (
	sqlRequestInsert = `
	insert into ledger_requests as c (
			id, kind, sender, payload, state, retried, exit_code, trace_id, create_time, retry_time, process_time
		)
		values (
			$1, $2, $3, $4::jsonb, 'new', 0, null, null, $5, null, null
		)
`

	sqlRequestFind = `
	select
		id, kind, sender, payload, state, retried, exit_code, trace_id, create_time, retry_time, process_time
	from ledger_requests
	where id = $1
`

	sqlRequestFindAllTriable = `
	select
		id, kind, sender, payload, state, retried, exit_code, trace_id, create_time, retry_time, process_time
	from ledger_requests
	where state in ('new', 'error') and retried < $1
	order by create_time
`

	sqlRequestSetState = `
	update ledger_requests
		set state = $2
	where id = $1
`

	sqlRequestSetRetrying = `
	update ledger_requests
		set retried = retried + 1, retry_time = $2, state = 'ongoing'
	where id = $1 and state in ('new', 'error')
`

	sqlRequestSetProcessed = `
	update ledger_requests
		set state = $2, exit_code = $3, trace_id = $4, process_time = $5
	where id = $1
`
)

// RequestRepository is the queue of ledger operations submitted to the service.
type RequestRepository struct {
	batchHandler BatchHandler
}

func NewRequestRepository(db BatchHandler) *RequestRepository {
	return &RequestRepository{batchHandler: db}
}

func scanRequest(scan func(...interface{}) error) (domain.LedgerRequest, error) {
	r := domain.LedgerRequest{}
	var payloadJson []byte
	err := scan(
		&r.Id, &r.Kind, &r.Sender, &payloadJson, &r.State, &r.Retried, &r.ExitCode, &r.TraceId, &r.CreateTime, &r.RetryTime, &r.ProcessTime,
	)
	if err != nil {
		return r, err
	}
	err = json.Unmarshal(payloadJson, &r.Payload)
	return r, err
}

func readRequest(scan func(...interface{}) error) (interface{}, error) {
	r, err := scanRequest(scan)
	return &r, err
}

func readAllRequests(all interface{}, scan func(...interface{}) error) (interface{}, error) {
	r, err := scanRequest(scan)
	list := all.([]domain.LedgerRequest)
	list = append(list, r)
	return list, err
}

func (repo *RequestRepository) Insert(request domain.LedgerRequest) (*domain.LedgerRequest, error) {
	payloadJson, err := jsonb(request.Payload)
	if err != nil {
		return nil, err
	}

	results, err := repo.batchHandler.Batch(&BatchOptionNormal, []sqlbatch.Command{
		{
			Query: sqlRequestInsert,
			Args: []interface{}{
				request.Id, request.Kind, request.Sender, payloadJson, request.CreateTime,
			},
			Affect: 1,
		},
		{
			Query:   sqlRequestFind,
			Args:    []interface{}{request.Id},
			ReadOne: readRequest,
		},
	})

	result, _ := results[1].(*domain.LedgerRequest)
	return result, err
}

func (repo *RequestRepository) Find(id string) (*domain.LedgerRequest, error) {
	results, err := repo.batchHandler.Batch(&BatchOptionNormalReadOnly, []sqlbatch.Command{
		{
			Query:   sqlRequestFind,
			Args:    []interface{}{id},
			ReadOne: readRequest,
		},
	})
	result, _ := results[0].(*domain.LedgerRequest)
	return result, err
}

func (repo *RequestRepository) FindAllTriable(maxRetry int) ([]domain.LedgerRequest, error) {
	results, err := repo.batchHandler.Batch(&BatchOptionNormalReadOnly, []sqlbatch.Command{
		{
			Query:   sqlRequestFindAllTriable,
			Args:    []interface{}{maxRetry},
			Init:    make([]domain.LedgerRequest, 0),
			ReadAll: readAllRequests,
		},
	})
	result, _ := results[0].([]domain.LedgerRequest)
	return result, err
}

func (repo *RequestRepository) SetState(id string, state string) error {
	_, err := repo.batchHandler.Batch(&BatchOptionNormal, []sqlbatch.Command{
		{
			Query:  sqlRequestSetState,
			Args:   []interface{}{id, state},
			Affect: 1,
		},
	})
	return err
}

// SetRetrying takes the request for processing. It fails when another processor took it first.
func (repo *RequestRepository) SetRetrying(id string, timestamp time.Time) error {
	_, err := repo.batchHandler.Batch(&BatchOptionSerializable, []sqlbatch.Command{
		{
			Query:  sqlRequestSetRetrying,
			Args:   []interface{}{id, timestamp},
			Affect: 1,
		},
	})
	return err
}

func (repo *RequestRepository) SetProcessed(id string, state string, exitCode int32, traceId string, timestamp time.Time) error {
	_, err := repo.batchHandler.Batch(&BatchOptionNormal, []sqlbatch.Command{
		{
			Query:  sqlRequestSetProcessed,
			Args:   []interface{}{id, state, exitCode, traceId, timestamp},
			Affect: 1,
		},
	})
	return err
}
