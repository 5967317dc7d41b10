package domain

import (
	"time"
)

const (
	RequestStateNew     = "new"
	RequestStateOngoing = "ongoing"
	RequestStateDone    = "done"
	RequestStateFailed  = "failed"
	RequestStateError   = "error"
)

// LedgerRequest is a queued operation against the sandbox ledger. Failed means the
// ledger aborted it with ExitCode; Error means it could not be submitted and is retriable.
type LedgerRequest struct {
	Id          string         `json:"id"`
	Kind        string         `json:"kind"`
	Sender      string         `json:"sender"`
	Payload     RequestPayload `json:"payload"`
	State       string         `json:"state"`
	Retried     int            `json:"retried"`
	ExitCode    *int32         `json:"exit_code"`
	TraceId     *string        `json:"trace_id"`
	CreateTime  time.Time      `json:"create_time"`
	RetryTime   *time.Time     `json:"retry_time"`
	ProcessTime *time.Time     `json:"process_time"`
}

type RequestPayload struct {
	To      string `json:"to,omitempty"`
	Amount  string `json:"amount,omitempty"`
	Forward string `json:"forward,omitempty"`
	Value   string `json:"value,omitempty"`
	Flag    int32  `json:"flag,omitempty"`
}

// Step converts the request into the equivalent scenario step.
func (r *LedgerRequest) Step() ScenarioStep {
	return ScenarioStep{
		Action:  r.Kind,
		From:    r.Sender,
		To:      r.Payload.To,
		Amount:  r.Payload.Amount,
		Forward: r.Payload.Forward,
		Value:   r.Payload.Value,
		Flag:    r.Payload.Flag,
	}
}
