package domain

import "time"

type JournalEntry struct {
	TraceId  string      `json:"trace_id"`
	Lt       uint64      `json:"lt"`
	Account  string      `json:"account"`
	Opcode   uint32      `json:"opcode"`
	ExitCode int32       `json:"exit_code"`
	Value    uint64      `json:"value"`
	Time     time.Time   `json:"time"`
	Info     JournalInfo `json:"info"`
}

type JournalInfo struct {
	Source      string `json:"source"`
	Operation   string `json:"operation"`
	Bounced     bool   `json:"bounced"`
	Deployed    bool   `json:"deployed"`
	ExitLabel   string `json:"exit_label"`
	OutMessages int    `json:"out_messages"`
	ComputeFee  uint64 `json:"compute_fee"`
}
