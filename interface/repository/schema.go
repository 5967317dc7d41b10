package repository

import (
	"github.com/behrang/sqlbatch"
)

var schema = []string{
	`create table if not exists transactions (
		lt bigint primary key,
		trace_id uuid not null,
		account varchar(80) not null,
		opcode bigint not null,
		exit_code integer not null,
		value numeric not null,
		time timestamptz not null,
		info jsonb not null
	)`,
	`create index if not exists transactions_trace_id on transactions (trace_id)`,
	`create table if not exists ledger_requests (
		id uuid primary key,
		kind varchar(40) not null,
		sender varchar(80) not null,
		payload jsonb not null,
		state varchar(20) not null,
		retried integer not null,
		exit_code integer,
		trace_id uuid,
		create_time timestamptz not null,
		retry_time timestamptz,
		process_time timestamptz
	)`,
	`create index if not exists ledger_requests_state on ledger_requests (state, create_time)`,
	`create table if not exists memos (
		key varchar(40) primary key,
		memo jsonb not null,
		update_time timestamptz not null default now()
	)`,
}

// EnsureSchema creates the tables of the service when they are missing.
func EnsureSchema(db BatchHandler) error {
	commands := make([]sqlbatch.Command, 0, len(schema))
	for _, ddl := range schema {
		commands = append(commands, sqlbatch.Command{Query: ddl})
	}
	_, err := db.Batch(&BatchOptionNormal, commands)
	return err
}
