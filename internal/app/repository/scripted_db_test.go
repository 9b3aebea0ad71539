package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// scriptedRows ответ на запрос: колонки и строки, либо ошибка.
type scriptedRows struct {
	columns []string
	rows    [][]driver.Value
	err     error
}

// scriptedDB драйвер database/sql, который отвечает на SQL по подстроке
// и запоминает выполненные запросы.
type scriptedDB struct {
	mu        sync.Mutex
	queries   map[string]scriptedRows
	execs     map[string]int64
	execErrs  map[string]error
	executed  []string
	commits   int
	rollbacks int
}

func newScriptedDB() *scriptedDB {
	return &scriptedDB{
		queries:  map[string]scriptedRows{},
		execs:    map[string]int64{},
		execErrs: map[string]error{},
	}
}

// onQuery ответ на SELECT или INSERT ... RETURNING, содержащий fragment.
func (s *scriptedDB) onQuery(fragment string, columns []string, rows ...[]driver.Value) {
	s.queries[fragment] = scriptedRows{columns: columns, rows: rows}
}

func (s *scriptedDB) onQueryError(fragment string, err error) {
	s.queries[fragment] = scriptedRows{err: err}
}

func (s *scriptedDB) onExec(fragment string, affected int64) {
	s.execs[fragment] = affected
}

// ran выполнялся ли запрос, содержащий fragment.
func (s *scriptedDB) ran(fragment string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range s.executed {
		if strings.Contains(q, fragment) {
			return true
		}
	}
	return false
}

func (s *scriptedDB) record(query string) {
	s.mu.Lock()
	s.executed = append(s.executed, query)
	s.mu.Unlock()
}

// gorm открывает *gorm.DB поверх драйвера с теми же настройками, что и Open.
func (s *scriptedDB) gorm(t *testing.T) *gorm.DB {
	t.Helper()
	sqlDB := sql.OpenDB(scriptedConnector{db: s})
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		TranslateError:       true,
		DisableAutomaticPing: true,
		Logger:               logger.Discard,
	})
	require.NoError(t, err)
	return db
}

type scriptedConnector struct {
	db *scriptedDB
}

func (c scriptedConnector) Connect(context.Context) (driver.Conn, error) {
	return &scriptedConn{db: c.db}, nil
}

func (c scriptedConnector) Driver() driver.Driver {
	return scriptedDriver{db: c.db}
}

type scriptedDriver struct {
	db *scriptedDB
}

func (d scriptedDriver) Open(string) (driver.Conn, error) {
	return &scriptedConn{db: d.db}, nil
}

type scriptedConn struct {
	db *scriptedDB
}

func (c *scriptedConn) Prepare(query string) (driver.Stmt, error) {
	return &scriptedStmt{conn: c, query: query}, nil
}

func (c *scriptedConn) Close() error { return nil }

func (c *scriptedConn) Begin() (driver.Tx, error) {
	return &scriptedTx{db: c.db}, nil
}

// CheckNamedValue аргументы запросов не проверяются.
func (c *scriptedConn) CheckNamedValue(*driver.NamedValue) error { return nil }

func (c *scriptedConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	c.db.record(query)
	for fragment, res := range c.db.queries {
		if !strings.Contains(query, fragment) {
			continue
		}
		if res.err != nil {
			return nil, res.err
		}
		return &scriptedResult{columns: res.columns, rows: res.rows}, nil
	}
	return &scriptedResult{}, nil
}

func (c *scriptedConn) ExecContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Result, error) {
	c.db.record(query)
	for fragment, err := range c.db.execErrs {
		if strings.Contains(query, fragment) {
			return nil, err
		}
	}
	for fragment, n := range c.db.execs {
		if strings.Contains(query, fragment) {
			return driver.RowsAffected(n), nil
		}
	}
	return driver.RowsAffected(0), nil
}

type scriptedStmt struct {
	conn  *scriptedConn
	query string
}

func (s *scriptedStmt) Close() error  { return nil }
func (s *scriptedStmt) NumInput() int { return -1 }

func (s *scriptedStmt) Exec(args []driver.Value) (driver.Result, error) {
	return s.conn.ExecContext(context.Background(), s.query, nil)
}

func (s *scriptedStmt) Query(args []driver.Value) (driver.Rows, error) {
	return s.conn.QueryContext(context.Background(), s.query, nil)
}

type scriptedTx struct {
	db *scriptedDB
}

func (t *scriptedTx) Commit() error {
	t.db.mu.Lock()
	t.db.commits++
	t.db.mu.Unlock()
	return nil
}

func (t *scriptedTx) Rollback() error {
	t.db.mu.Lock()
	t.db.rollbacks++
	t.db.mu.Unlock()
	return nil
}

type scriptedResult struct {
	columns []string
	rows    [][]driver.Value
	next    int
}

func (r *scriptedResult) Columns() []string { return r.columns }
func (r *scriptedResult) Close() error      { return nil }

func (r *scriptedResult) Next(dest []driver.Value) error {
	if r.next >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.next])
	r.next++
	return nil
}
