package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Trace is what the request logger records about a failed request.
type Trace struct {
	Message string
	Cause   string
	Code    Code
	Chain   []string
	DB      *DBFailure
}

// DBFailure carries the Postgres fields of a driver error, from either pgx or
// lib/pq.
type DBFailure struct {
	SQLState   string
	Constraint string
	Table      string
	Column     string
	Detail     string
	Message    string
}

// TraceOf walks err and pulls out its code, wrap chain and any database error.
func TraceOf(err error) Trace {
	if err == nil {
		return Trace{}
	}
	t := Trace{Message: err.Error()}
	if typed := As(err); typed != nil {
		t.Code = typed.Code()
	}
	var root error
	for e := err; e != nil; e = errors.Unwrap(e) {
		t.Chain = append(t.Chain, fmt.Sprintf("%T", e))
		root = e
	}
	if root != err {
		t.Cause = root.Error()
	}
	t.DB = dbFailureOf(err)
	return t
}

func dbFailureOf(err error) *DBFailure {
	if pgErr := (*pgconn.PgError)(nil); errors.As(err, &pgErr) {
		return &DBFailure{
			SQLState:   pgErr.Code,
			Constraint: pgErr.ConstraintName,
			Table:      pgErr.TableName,
			Column:     pgErr.ColumnName,
			Detail:     pgErr.Detail,
			Message:    pgErr.Message,
		}
	}
	if pqErr := (*pq.Error)(nil); errors.As(err, &pqErr) {
		return &DBFailure{
			SQLState:   string(pqErr.Code),
			Constraint: pqErr.Constraint,
			Table:      pqErr.Table,
			Column:     pqErr.Column,
			Detail:     pqErr.Detail,
			Message:    pqErr.Message,
		}
	}
	return nil
}

// Fields flattens the trace into log fields. Database fields appear only
// when a driver error is present.
func (t Trace) Fields() map[string]any {
	fields := map[string]any{
		"error":       t.Message,
		"error_code":  t.Code,
		"error_chain": t.Chain,
	}
	if t.Cause != "" {
		fields["error_cause"] = t.Cause
	}
	if t.DB != nil {
		fields["db_sqlstate"] = t.DB.SQLState
		fields["db_message"] = t.DB.Message
		if t.DB.Constraint != "" {
			fields["db_constraint"] = t.DB.Constraint
		}
		if t.DB.Table != "" {
			fields["db_table"] = t.DB.Table
		}
		if t.DB.Column != "" {
			fields["db_column"] = t.DB.Column
		}
		if t.DB.Detail != "" {
			fields["db_detail"] = t.DB.Detail
		}
	}
	return fields
}
