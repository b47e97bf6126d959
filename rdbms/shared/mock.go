package shared

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/sonofy/dwhpipe/logger"
)

const (
	MockEventBegin    = "BEGIN"
	MockEventCommit   = "COMMIT"
	MockEventRollback = "ROLLBACK"
	mockChanSize      = 1000
)

var ErrMockExec = errors.New("mock exec failure")

// MockConnection implements Connector without a database.
// Every statement executed is sent to the channel returned by NewMockConnectionWithMockTx and all
// transaction events are kept in Events so tests can assert ordering and commit boundaries.
type MockConnection struct {
	log    logger.Logger
	dbType string
	chSql  chan string
	// FailOn makes any statement containing this text fail with ErrMockExec.
	FailOn string
	// QueryFn supplies results for Query calls.
	QueryFn func(query string) (Rows, error)
	// RowsAffected is returned for every successful exec.
	RowsAffected int64
	mu           sync.Mutex
	events       []string
	closed       bool
}

// NewMockConnectionWithMockTx returns a mock Connector and the channel on which it publishes executed SQL.
func NewMockConnectionWithMockTx(log logger.Logger, dbType string) (*MockConnection, chan string) {
	ch := make(chan string, mockChanSize)
	return &MockConnection{log: log, dbType: dbType, chSql: ch, RowsAffected: 1}, ch
}

func (m *MockConnection) Begin() (Transacter, error) {
	return m.BeginTx(context.Background())
}

func (m *MockConnection) BeginTx(ctx context.Context) (Transacter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.record(MockEventBegin)
	return &mockTx{conn: m}, nil
}

func (m *MockConnection) Exec(query string, args ...interface{}) (Result, error) {
	return m.ExecContext(context.Background(), query, args...)
}

func (m *MockConnection) ExecContext(ctx context.Context, query string, args ...interface{}) (Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.log.Debug("mock exec: ", query)
	m.record(query)
	m.chSql <- query
	if m.FailOn != "" && strings.Contains(query, m.FailOn) {
		return nil, fmt.Errorf("%w: %v", ErrMockExec, m.FailOn)
	}
	return mockResult{rows: m.RowsAffected}, nil
}

func (m *MockConnection) Query(query string, args ...interface{}) (Rows, error) {
	return m.QueryContext(context.Background(), query, args...)
}

func (m *MockConnection) QueryContext(ctx context.Context, query string, args ...interface{}) (Rows, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.record(query)
	if m.QueryFn == nil {
		return nil, errors.New("mock connection has no query results configured")
	}
	return m.QueryFn(query)
}

func (m *MockConnection) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}

func (m *MockConnection) GetType() string {
	return m.dbType
}

// Events returns a copy of everything recorded so far.
func (m *MockConnection) Events() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.events...)
}

// IsClosed reports whether Close was called.
func (m *MockConnection) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MockConnection) record(e string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
}

type mockTx struct {
	conn *MockConnection
	done bool
}

func (t *mockTx) Exec(query string, args ...interface{}) (Result, error) {
	return t.ExecContext(context.Background(), query, args...)
}

func (t *mockTx) ExecContext(ctx context.Context, query string, args ...interface{}) (Result, error) {
	if t.done {
		return nil, errors.New("transaction has already been committed or rolled back")
	}
	return t.conn.ExecContext(ctx, query, args...)
}

func (t *mockTx) Commit() error {
	if t.done {
		return errors.New("transaction has already been committed or rolled back")
	}
	t.done = true
	t.conn.record(MockEventCommit)
	return nil
}

func (t *mockTx) Rollback() error {
	if t.done {
		return errors.New("transaction has already been committed or rolled back")
	}
	t.done = true
	t.conn.record(MockEventRollback)
	return nil
}

type mockResult struct {
	rows int64
}

func (r mockResult) LastInsertId() (int64, error) {
	return 0, errors.New("LastInsertId is not supported")
}

func (r mockResult) RowsAffected() (int64, error) {
	return r.rows, nil
}

// MockRows is an in-memory result set.
type MockRows struct {
	Cols []string
	Data [][]interface{}
	idx  int
}

func NewMockRows(cols []string, data ...[]interface{}) *MockRows {
	return &MockRows{Cols: cols, Data: data, idx: -1}
}

func (r *MockRows) Columns() ([]string, error) {
	return r.Cols, nil
}

func (r *MockRows) Next() bool {
	r.idx++
	return r.idx < len(r.Data)
}

func (r *MockRows) Scan(dest ...interface{}) error {
	if r.idx < 0 || r.idx >= len(r.Data) {
		return errors.New("scan called without a current row")
	}
	row := r.Data[r.idx]
	if len(dest) != len(row) {
		return fmt.Errorf("expected %v destination arguments in Scan, not %v", len(row), len(dest))
	}
	for i, v := range row {
		dv := reflect.ValueOf(dest[i])
		if dv.Kind() != reflect.Ptr || dv.IsNil() {
			return errors.New("destination must be a non-nil pointer")
		}
		if v == nil {
			dv.Elem().Set(reflect.Zero(dv.Elem().Type()))
			continue
		}
		sv := reflect.ValueOf(v)
		if !sv.Type().ConvertibleTo(dv.Elem().Type()) {
			return fmt.Errorf("cannot scan %T into %v", v, dv.Elem().Type())
		}
		dv.Elem().Set(sv.Convert(dv.Elem().Type()))
	}
	return nil
}

func (r *MockRows) Err() error {
	return nil
}

func (r *MockRows) Close() error {
	return nil
}
