package dbhandler

import (
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&pq.Error{Code: "40001"}))
	assert.True(t, IsRetryable(errors.Wrap(&pq.Error{Code: "40001"}, "batch")))
	assert.True(t, IsRetryable(fmt.Errorf("commit - %w", &pq.Error{Code: "40001"})))
	assert.False(t, IsRetryable(&pq.Error{Code: "23505"}))
	assert.False(t, IsRetryable(errors.New("connection refused")))
	assert.False(t, IsRetryable(nil))
}
