package sqlstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"

	"github.com/querybridge/querybridge/internal/schema"
)

// SQLite implements Store for a local SQLite file.
type SQLite struct {
	path     string
	readOnly bool
	db       *sql.DB
}

// NewSQLite creates a store for the database file at path. A read-only store
// opens the file with mode=ro so writes fail inside the driver as well.
func NewSQLite(path string, readOnly bool) *SQLite {
	return &SQLite{path: path, readOnly: readOnly}
}

func (s *SQLite) dsn() string {
	dsn := "file:" + s.path + "?_busy_timeout=5000"
	if s.readOnly {
		dsn += "&mode=ro"
	}
	return dsn
}

func (s *SQLite) Connect(ctx context.Context) error {
	db, err := sql.Open("sqlite3", s.dsn())
	if err != nil {
		return fmt.Errorf("opening SQLite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("pinging SQLite: %w", err)
	}
	s.db = db
	return nil
}

func (s *SQLite) QueryRows(ctx context.Context, sqlStr string, args ...any) ([]map[string]any, error) {
	if s.db == nil {
		return nil, errors.New("not connected; call Connect first")
	}
	if s.readOnly {
		rows, err := s.db.QueryContext(ctx, sqlStr, args...)
		if err != nil {
			return nil, fmt.Errorf("executing query: %w", err)
		}
		defer rows.Close()
		return scanRows(rows)
	}

	// A read statement can still carry a write (WITH ... DELETE), so the
	// query runs on a connection that SQLite itself holds read-only.
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Close()
	if _, err := conn.ExecContext(ctx, "PRAGMA query_only = ON"); err != nil {
		return nil, fmt.Errorf("enabling query_only: %w", err)
	}
	defer func() {
		if _, err := conn.ExecContext(context.Background(), "PRAGMA query_only = OFF"); err != nil {
			// Drop the connection rather than hand a read-only one to Exec.
			_ = conn.Raw(func(any) error { return driver.ErrBadConn })
		}
	}()
	return queryConn(ctx, conn, sqlStr, args...)
}

func queryConn(ctx context.Context, conn *sql.Conn, sqlStr string, args ...any) ([]map[string]any, error) {
	rows, err := conn.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	defer rows.Close()
	return scanRows(rows)
}

func (s *SQLite) Exec(ctx context.Context, sqlStr string, args ...any) (int64, error) {
	if s.db == nil {
		return 0, errors.New("not connected; call Connect first")
	}
	res, err := s.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, fmt.Errorf("executing statement: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading affected rows: %w", err)
	}
	return n, nil
}

// Catalog lists tables and views from sqlite_master with exact row counts.
func (s *SQLite) Catalog(ctx context.Context, connection string) (*schema.Catalog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, type
		FROM sqlite_master
		WHERE type IN ('table', 'view')
		  AND name NOT LIKE 'sqlite_%'
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	cat := &schema.Catalog{Connection: connection, Type: "sqlite", Database: s.path}
	for rows.Next() {
		var r schema.Resource
		if err := rows.Scan(&r.Name, &r.Kind); err != nil {
			rows.Close()
			return nil, err
		}
		cat.Resources = append(cat.Resources, r)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}

	for i := range cat.Resources {
		r := &cat.Resources[i]
		q := "SELECT COUNT(*) FROM " + quoteIdent(r.Name)
		if err := s.db.QueryRowContext(ctx, q).Scan(&r.RowCount); err != nil {
			return nil, fmt.Errorf("counting rows in %s: %w", r.Name, err)
		}
	}
	return cat, nil
}

func (s *SQLite) Describe(ctx context.Context, table string) (*schema.Resource, error) {
	res := &schema.Resource{Name: table, Kind: "table"}

	if err := s.describeColumns(ctx, res); err != nil {
		return nil, fmt.Errorf("describing columns: %w", err)
	}
	if len(res.Columns) == 0 {
		return nil, fmt.Errorf("table %s not found", table)
	}
	if err := s.describeIndexes(ctx, res); err != nil {
		return nil, fmt.Errorf("describing indexes: %w", err)
	}
	return res, nil
}

func (s *SQLite) describeColumns(ctx context.Context, res *schema.Resource) error {
	rows, err := s.db.QueryContext(ctx, "PRAGMA table_info("+quoteIdent(res.Name)+")")
	if err != nil {
		return err
	}
	defer rows.Close()

	type pkCol struct {
		name string
		pos  int
	}
	var pks []pkCol
	for rows.Next() {
		var (
			cid, notNull, pk int
			col              schema.Column
		)
		if err := rows.Scan(&cid, &col.Name, &col.DataType, &notNull, &col.DefaultValue, &pk); err != nil {
			return err
		}
		col.Nullable = notNull == 0
		if col.DataType == "" {
			col.DataType = "ANY"
		}
		res.Columns = append(res.Columns, col)
		if pk > 0 {
			pks = append(pks, pkCol{col.Name, pk})
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	res.PrimaryKey = make([]string, len(pks))
	for _, p := range pks {
		if p.pos-1 < len(pks) {
			res.PrimaryKey[p.pos-1] = p.name
		}
	}
	if len(res.PrimaryKey) == 0 {
		res.PrimaryKey = nil
	}
	return nil
}

func (s *SQLite) describeIndexes(ctx context.Context, res *schema.Resource) error {
	rows, err := s.db.QueryContext(ctx, "PRAGMA index_list("+quoteIdent(res.Name)+")")
	if err != nil {
		return err
	}
	type entry struct {
		name   string
		unique bool
		origin string
	}
	var list []entry
	for rows.Next() {
		var (
			seq, unique, partial int
			e                    entry
		)
		if err := rows.Scan(&seq, &e.name, &unique, &e.origin, &partial); err != nil {
			rows.Close()
			return err
		}
		e.unique = unique == 1
		list = append(list, e)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return err
	}

	var g indexGrouper
	for i := len(list) - 1; i >= 0; i-- {
		e := list[i]
		cols, err := s.indexColumns(ctx, e.name)
		if err != nil {
			return fmt.Errorf("reading index %s: %w", e.name, err)
		}
		typ := "btree"
		if strings.EqualFold(e.origin, "pk") {
			typ = "primary"
		}
		for _, c := range cols {
			g.add(res.Name, e.name, c, typ, e.unique)
		}
	}
	res.Indexes = g.indexes()
	return nil
}

func (s *SQLite) indexColumns(ctx context.Context, index string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "PRAGMA index_info("+quoteIdent(index)+")")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var (
			seqno, cid int
			name       sql.NullString
		)
		if err := rows.Scan(&seqno, &cid, &name); err != nil {
			return nil, err
		}
		if name.Valid {
			cols = append(cols, name.String)
		}
	}
	return cols, rows.Err()
}

func (s *SQLite) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}
