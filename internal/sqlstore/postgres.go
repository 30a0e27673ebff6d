package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/querybridge/querybridge/internal/schema"
)

// Postgres implements Store for PostgreSQL using pgx.
type Postgres struct {
	connStr  string
	schema   string
	maxConns int32
	pool     *pgxpool.Pool
}

// NewPostgres creates a PostgreSQL store. Nothing is opened until Connect.
func NewPostgres(connStr, schemaName string, maxConns int) *Postgres {
	if schemaName == "" {
		schemaName = "public"
	}
	return &Postgres{connStr: connStr, schema: schemaName, maxConns: int32(maxConns)}
}

func (p *Postgres) Connect(ctx context.Context) error {
	cfg, err := pgxpool.ParseConfig(p.connStr)
	if err != nil {
		return fmt.Errorf("parsing connection string: %w", err)
	}
	if p.maxConns > 0 {
		cfg.MaxConns = p.maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connecting to PostgreSQL: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("pinging PostgreSQL: %w", err)
	}
	p.pool = pool
	return nil
}

// QueryRows runs sql inside a read-only transaction that is always rolled
// back.
func (p *Postgres) QueryRows(ctx context.Context, sql string, args ...any) ([]map[string]any, error) {
	if p.pool == nil {
		return nil, errors.New("not connected; call Connect first")
	}
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("starting read-only transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	rows, err := tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	defer rows.Close()

	descs := rows.FieldDescriptions()
	results := []map[string]any{}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		row := make(map[string]any, len(descs))
		for i, d := range descs {
			row[d.Name] = vals[i]
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return results, nil
}

func (p *Postgres) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	if p.pool == nil {
		return 0, errors.New("not connected; call Connect first")
	}
	tag, err := p.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("executing statement: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Catalog lists tables, views and materialized views with row estimates
// and on-disk sizes.
func (p *Postgres) Catalog(ctx context.Context, connection string) (*schema.Catalog, error) {
	query := `
		SELECT
			c.relname,
			CASE c.relkind WHEN 'v' THEN 'view' WHEN 'm' THEN 'view' ELSE 'table' END,
			GREATEST(c.reltuples, 0)::bigint,
			pg_total_relation_size(c.oid)
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1
		  AND c.relkind IN ('r', 'p', 'v', 'm')
		ORDER BY c.relname`

	rows, err := p.pool.Query(ctx, query, p.schema)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	cat := &schema.Catalog{Connection: connection, Type: "postgresql", SchemaName: p.schema}
	for rows.Next() {
		var r schema.Resource
		if err := rows.Scan(&r.Name, &r.Kind, &r.RowCount, &r.SizeBytes); err != nil {
			return nil, err
		}
		cat.Resources = append(cat.Resources, r)
	}
	return cat, rows.Err()
}

// Describe reports the columns, primary key and indexes of one table.
func (p *Postgres) Describe(ctx context.Context, table string) (*schema.Resource, error) {
	res := &schema.Resource{Name: table, Kind: "table"}

	if err := p.describeColumns(ctx, res); err != nil {
		return nil, fmt.Errorf("describing columns: %w", err)
	}
	if len(res.Columns) == 0 {
		return nil, fmt.Errorf("table %s.%s not found", p.schema, table)
	}
	if err := p.describePrimaryKey(ctx, res); err != nil {
		return nil, fmt.Errorf("describing primary key: %w", err)
	}
	if err := p.describeIndexes(ctx, res); err != nil {
		return nil, fmt.Errorf("describing indexes: %w", err)
	}
	return res, nil
}

func (p *Postgres) describeColumns(ctx context.Context, res *schema.Resource) error {
	query := `
		SELECT
			column_name,
			data_type,
			is_nullable,
			column_default,
			character_maximum_length,
			numeric_precision,
			numeric_scale
		FROM information_schema.columns
		WHERE table_schema = $1
		  AND table_name = $2
		ORDER BY ordinal_position`

	rows, err := p.pool.Query(ctx, query, p.schema, res.Name)
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
		col.Nullable = nullable == "YES"
		res.Columns = append(res.Columns, col)
	}
	return rows.Err()
}

func (p *Postgres) describePrimaryKey(ctx context.Context, res *schema.Resource) error {
	query := `
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		  AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY'
		  AND tc.table_schema = $1
		  AND tc.table_name = $2
		ORDER BY kcu.ordinal_position`

	rows, err := p.pool.Query(ctx, query, p.schema, res.Name)
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

func (p *Postgres) describeIndexes(ctx context.Context, res *schema.Resource) error {
	query := `
		SELECT
			i.relname AS index_name,
			ix.indisunique AS is_unique,
			am.amname AS index_type,
			a.attname AS column_name
		FROM pg_index ix
		JOIN pg_class t ON t.oid = ix.indrelid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		JOIN pg_am am ON am.oid = i.relam
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
		WHERE n.nspname = $1
		  AND t.relname = $2
		ORDER BY i.relname, array_position(ix.indkey, a.attnum)`

	rows, err := p.pool.Query(ctx, query, p.schema, res.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	var g indexGrouper
	for rows.Next() {
		var indexName, indexType, colName string
		var unique bool
		if err := rows.Scan(&indexName, &unique, &indexType, &colName); err != nil {
			return err
		}
		g.add(res.Name, indexName, colName, indexType, unique)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	res.Indexes = g.indexes()
	return nil
}

func (p *Postgres) Close() error {
	if p.pool != nil {
		p.pool.Close()
		p.pool = nil
	}
	return nil
}
