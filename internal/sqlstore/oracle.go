package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	// Oracle driver
	_ "github.com/sijms/go-ora/v2"

	"github.com/querybridge/querybridge/internal/schema"
)

// Oracle implements Store for Oracle using go-ora.
type Oracle struct {
	connStr  string
	owner    string
	maxConns int
	db       *sql.DB
}

// NewOracle creates an Oracle store. The owner is upper-cased to match the
// data dictionary.
func NewOracle(connStr, owner string, maxConns int) *Oracle {
	return &Oracle{connStr: connStr, owner: strings.ToUpper(owner), maxConns: maxConns}
}

func (o *Oracle) Connect(ctx context.Context) error {
	db, err := sql.Open("oracle", o.connStr)
	if err != nil {
		return fmt.Errorf("opening Oracle connection: %w", err)
	}
	if o.maxConns > 0 {
		db.SetMaxOpenConns(o.maxConns)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("pinging Oracle: %w", err)
	}
	o.db = db
	return nil
}

func (o *Oracle) QueryRows(ctx context.Context, sqlStr string, args ...any) ([]map[string]any, error) {
	if o.db == nil {
		return nil, errors.New("not connected; call Connect first")
	}
	// SET TRANSACTION READ ONLY must be the first statement of the
	// transaction; the rollback ends it either way.
	tx, err := o.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, "SET TRANSACTION READ ONLY"); err != nil {
		return nil, fmt.Errorf("setting read-only transaction: %w", err)
	}
	rows, err := tx.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	defer rows.Close()
	return scanRows(rows)
}

func (o *Oracle) Exec(ctx context.Context, sqlStr string, args ...any) (int64, error) {
	if o.db == nil {
		return 0, errors.New("not connected; call Connect first")
	}
	res, err := o.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, fmt.Errorf("executing statement: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading affected rows: %w", err)
	}
	return n, nil
}

// Catalog lists the owner's tables and views. Row counts come from optimizer
// statistics and may be stale.
func (o *Oracle) Catalog(ctx context.Context, connection string) (*schema.Catalog, error) {
	query := `
		SELECT TABLE_NAME, 'table', NVL(NUM_ROWS, 0)
		FROM ALL_TABLES
		WHERE OWNER = :1
		UNION ALL
		SELECT VIEW_NAME, 'view', 0
		FROM ALL_VIEWS
		WHERE OWNER = :2
		ORDER BY 1`

	rows, err := o.db.QueryContext(ctx, query, o.owner, o.owner)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	cat := &schema.Catalog{Connection: connection, Type: "oracle", SchemaName: o.owner}
	for rows.Next() {
		var r schema.Resource
		if err := rows.Scan(&r.Name, &r.Kind, &r.RowCount); err != nil {
			return nil, err
		}
		cat.Resources = append(cat.Resources, r)
	}
	return cat, rows.Err()
}

func (o *Oracle) Describe(ctx context.Context, table string) (*schema.Resource, error) {
	res := &schema.Resource{Name: table, Kind: "table"}

	if err := o.describeColumns(ctx, res); err != nil {
		return nil, fmt.Errorf("describing columns: %w", err)
	}
	if len(res.Columns) == 0 {
		return nil, fmt.Errorf("table %s.%s not found", o.owner, table)
	}
	if err := o.describePrimaryKey(ctx, res); err != nil {
		return nil, fmt.Errorf("describing primary key: %w", err)
	}
	if err := o.describeIndexes(ctx, res); err != nil {
		return nil, fmt.Errorf("describing indexes: %w", err)
	}
	return res, nil
}

func (o *Oracle) describeColumns(ctx context.Context, res *schema.Resource) error {
	query := `
		SELECT COLUMN_NAME, DATA_TYPE, NULLABLE,
			DATA_DEFAULT, CHAR_LENGTH, DATA_PRECISION, DATA_SCALE
		FROM ALL_TAB_COLUMNS
		WHERE OWNER = :1 AND TABLE_NAME = :2
		ORDER BY COLUMN_ID`

	rows, err := o.db.QueryContext(ctx, query, o.owner, res.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			col      schema.Column
			nullable string
		)
		if err := rows.Scan(&col.Name, &col.DataType, &nullable, &col.DefaultValue, &col.MaxLength, &col.Precision, &col.Scale); err != nil {
			return err
		}
		col.Nullable = nullable == "Y"
		if col.DefaultValue != nil {
			trimmed := strings.TrimSpace(*col.DefaultValue)
			col.DefaultValue = &trimmed
		}
		res.Columns = append(res.Columns, col)
	}
	return rows.Err()
}

func (o *Oracle) describePrimaryKey(ctx context.Context, res *schema.Resource) error {
	query := `
		SELECT cc.COLUMN_NAME
		FROM ALL_CONSTRAINTS c
		JOIN ALL_CONS_COLUMNS cc ON c.CONSTRAINT_NAME = cc.CONSTRAINT_NAME AND c.OWNER = cc.OWNER
		WHERE c.CONSTRAINT_TYPE = 'P'
		  AND c.OWNER = :1
		  AND c.TABLE_NAME = :2
		ORDER BY cc.POSITION`

	rows, err := o.db.QueryContext(ctx, query, o.owner, res.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return err
		}
		res.PrimaryKey = append(res.PrimaryKey, col)
	}
	return rows.Err()
}

func (o *Oracle) describeIndexes(ctx context.Context, res *schema.Resource) error {
	query := `
		SELECT i.INDEX_NAME, i.UNIQUENESS, i.INDEX_TYPE, ic.COLUMN_NAME
		FROM ALL_INDEXES i
		JOIN ALL_IND_COLUMNS ic ON i.INDEX_NAME = ic.INDEX_NAME AND i.TABLE_OWNER = ic.TABLE_OWNER
		WHERE i.TABLE_OWNER = :1
		  AND i.TABLE_NAME = :2
		ORDER BY i.INDEX_NAME, ic.COLUMN_POSITION`

	rows, err := o.db.QueryContext(ctx, query, o.owner, res.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	var g indexGrouper
	for rows.Next() {
		var indexName, uniqueness, indexType, colName string
		if err := rows.Scan(&indexName, &uniqueness, &indexType, &colName); err != nil {
			return err
		}
		g.add(res.Name, indexName, colName, indexType, uniqueness == "UNIQUE")
	}
	if err := rows.Err(); err != nil {
		return err
	}
	res.Indexes = g.indexes()
	return nil
}

func (o *Oracle) Close() error {
	if o.db != nil {
		err := o.db.Close()
		o.db = nil
		return err
	}
	return nil
}
