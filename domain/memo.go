package domain

import (
	"encoding/json"
	"time"
)

type Memorable interface {
	ToJson() string
	FromJson(jstr string) error
}

type Memo struct {
	Key        string    `json:"key"`
	Memo       string    `json:"memo"`
	UpdateTime time.Time `json:"update_time"`
}

// AuditMemo is the checkpoint of the last supply audit.
type AuditMemo struct {
	LastLt      uint64 `json:"last_lt"`
	TotalSupply string `json:"total_supply"`
	Holders     int    `json:"holders"`
	Healthy     bool   `json:"healthy"`
	Failures    int    `json:"failures"`
}

func (obj *AuditMemo) ToJson() string {
	jstr, err := json.Marshal(obj)
	if err != nil {
		return err.Error()
	}
	return string(jstr)
}

func (obj *AuditMemo) FromJson(jstr string) error {
	err := json.Unmarshal([]byte(jstr), obj)
	return err
}
