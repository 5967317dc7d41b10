package dbhandler

import (
	"context"
	"log"

	"database/sql"

	"github.com/behrang/sqlbatch"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

const serializationFailure = "40001"

var ErrorRetriesExhausted = errors.New("serialization retries exhausted")

// DBHandler contains a connection to database.
type DBHandler struct {
	DB *sql.DB
	// MaxRetry bounds the retries of a batch failing with a serialization error.
	// Zero means a single retry.
	MaxRetry int
}

// Batch creates a transaction and executes the batch of commands in that transaction.
// If a retryable error is received, the batch is retried up to MaxRetry times.
func (handler DBHandler) Batch(opts *sql.TxOptions, commands []sqlbatch.Command) ([]interface{}, error) {
	maxRetry := handler.MaxRetry
	if maxRetry <= 0 {
		maxRetry = 1
	}

	for attempt := 0; ; attempt++ {
		results, err := handler.tryBatch(opts, commands)
		if !IsRetryable(err) {
			return results, err
		}
		if attempt >= maxRetry {
			return results, errors.Wrapf(ErrorRetriesExhausted, "after %d attempts - %v", attempt+1, err)
		}
		log.Printf("🟡 Retryable Postgres error, retrying: %v", err)
	}
}

// IsRetryable reports a Postgres serialization failure.
func IsRetryable(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == serializationFailure
}

func (handler DBHandler) tryBatch(opts *sql.TxOptions, commands []sqlbatch.Command) (results []interface{}, err error) {

	results = make([]interface{}, len(commands))

	tx, err := handler.DB.BeginTx(context.Background(), opts)
	if err != nil {
		return
	}
	defer tx.Rollback()

	results, err = sqlbatch.Batch(tx, commands)

	if err == nil {
		err = tx.Commit()
	}

	return
}
