package db

import (
	"context"
	"reflect"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgproto3/v2"
	"github.com/jackc/pgx/v4"
	"github.com/pkg/errors"
	"github.com/sksmith/inventory-allocation/test"
)

type MockConn struct {
	QueryFunc    func(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRowFunc func(ctx context.Context, sql string, args ...interface{}) pgx.Row
	ExecFunc     func(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	BeginFunc    func(ctx context.Context) (pgx.Tx, error)
	*test.CallWatcher
}

func NewMockConn() *MockConn {
	return &MockConn{
		QueryFunc: func(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
			return NewMockRows(), nil
		},
		QueryRowFunc: func(ctx context.Context, sql string, args ...interface{}) pgx.Row {
			return MockRow{Err: pgx.ErrNoRows}
		},
		ExecFunc: func(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
			return pgconn.CommandTag("UPDATE 1"), nil
		},
		BeginFunc:   func(ctx context.Context) (pgx.Tx, error) { return nil, nil },
		CallWatcher: test.NewCallWatcher(),
	}
}

func (c *MockConn) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	c.AddCall(ctx, sql, args)
	return c.QueryFunc(ctx, sql, args...)
}

func (c *MockConn) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	c.AddCall(ctx, sql, args)
	return c.QueryRowFunc(ctx, sql, args...)
}

func (c *MockConn) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	c.AddCall(ctx, sql, args)
	return c.ExecFunc(ctx, sql, args...)
}

func (c *MockConn) Begin(ctx context.Context) (pgx.Tx, error) {
	c.AddCall(ctx)
	return c.BeginFunc(ctx)
}

type MockTransaction struct {
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error

	*MockConn
	*test.CallWatcher
}

func NewMockTransaction() *MockTransaction {
	return &MockTransaction{
		MockConn:     NewMockConn(),
		CommitFunc:   func(ctx context.Context) error { return nil },
		RollbackFunc: func(ctx context.Context) error { return nil },
		CallWatcher:  test.NewCallWatcher(),
	}
}

func (t *MockTransaction) Commit(ctx context.Context) error {
	t.AddCall(ctx)
	return t.CommitFunc(ctx)
}

func (t *MockTransaction) Rollback(ctx context.Context) error {
	t.AddCall(ctx)
	return t.RollbackFunc(ctx)
}

// MockRow scans Values into the destinations in order, or returns Err.
type MockRow struct {
	Values []interface{}
	Err    error
}

func (r MockRow) Scan(dest ...interface{}) error {
	if r.Err != nil {
		return r.Err
	}
	return scanValues(r.Values, dest)
}

// MockRows iterates over Data, one slice of column values per row.
type MockRows struct {
	Data   [][]interface{}
	ErrVal error
	pos    int
	closed bool
}

func NewMockRows(data ...[]interface{}) *MockRows {
	return &MockRows{Data: data}
}

func (r *MockRows) Close()                                         { r.closed = true }
func (r *MockRows) Err() error                                     { return r.ErrVal }
func (r *MockRows) CommandTag() pgconn.CommandTag                  { return nil }
func (r *MockRows) FieldDescriptions() []pgproto3.FieldDescription { return nil }
func (r *MockRows) RawValues() [][]byte                            { return nil }

func (r *MockRows) Next() bool {
	if r.closed || r.pos >= len(r.Data) {
		r.closed = true
		return false
	}
	r.pos++
	return true
}

func (r *MockRows) Scan(dest ...interface{}) error {
	return scanValues(r.Data[r.pos-1], dest)
}

func (r *MockRows) Values() ([]interface{}, error) {
	return r.Data[r.pos-1], nil
}

func scanValues(values []interface{}, dest []interface{}) error {
	if len(values) != len(dest) {
		return errors.Errorf("mock scan: %d values for %d destinations", len(values), len(dest))
	}
	for i, v := range values {
		target := reflect.ValueOf(dest[i])
		if target.Kind() != reflect.Ptr || target.IsNil() {
			return errors.Errorf("mock scan: destination %d is not a pointer", i)
		}
		value := reflect.ValueOf(v)
		if !value.Type().ConvertibleTo(target.Elem().Type()) {
			return errors.Errorf("mock scan: cannot assign %T to %s", v, target.Elem().Type())
		}
		target.Elem().Set(value.Convert(target.Elem().Type()))
	}
	return nil
}
