// Package schema describes the resources a connection exposes: tables and
// views for relational stores, collections for document stores.
package schema

// Catalog is the resource listing of one named connection.
type Catalog struct {
	Connection string     `yaml:"connection" json:"connection"`
	Type       string     `yaml:"type" json:"type"` // mongodb, postgresql, oracle, sqlite
	Database   string     `yaml:"database,omitempty" json:"database,omitempty"`
	SchemaName string     `yaml:"schema_name,omitempty" json:"schemaName,omitempty"`
	Resources  []Resource `yaml:"resources" json:"resources"`
}

// Resource is a table, view or collection.
type Resource struct {
	Name       string   `yaml:"name" json:"name"`
	Kind       string   `yaml:"kind" json:"kind"` // table, view, collection
	RowCount   int64    `yaml:"row_count" json:"rowCount"`
	SizeBytes  int64    `yaml:"size_bytes,omitempty" json:"sizeBytes,omitempty"`
	Columns    []Column `yaml:"columns,omitempty" json:"columns,omitempty"`
	PrimaryKey []string `yaml:"primary_key,omitempty" json:"primaryKey,omitempty"`
	Indexes    []Index  `yaml:"indexes,omitempty" json:"indexes,omitempty"`
	Sampled    int      `yaml:"sampled,omitempty" json:"sampled,omitempty"` // documents inspected
}

// Column is a table column or an observed document field.
type Column struct {
	Name         string   `yaml:"name" json:"name"`
	DataType     string   `yaml:"data_type" json:"dataType"`
	Nullable     bool     `yaml:"nullable" json:"nullable"`
	DefaultValue *string  `yaml:"default_value,omitempty" json:"defaultValue,omitempty"`
	MaxLength    *int     `yaml:"max_length,omitempty" json:"maxLength,omitempty"`
	Precision    *int     `yaml:"precision,omitempty" json:"precision,omitempty"`
	Scale        *int     `yaml:"scale,omitempty" json:"scale,omitempty"`
	Types        []string `yaml:"types,omitempty" json:"types,omitempty"` // every BSON type seen
	Seen         int      `yaml:"seen,omitempty" json:"seen,omitempty"`
}

// Index is a secondary or primary index.
type Index struct {
	Name    string   `yaml:"name" json:"name"`
	Columns []string `yaml:"columns" json:"columns"`
	Unique  bool     `yaml:"unique" json:"unique"`
	Type    string   `yaml:"type,omitempty" json:"type,omitempty"` // btree, hash, NORMAL, ...
}

// Lookup returns the named resource, or nil.
func (c *Catalog) Lookup(name string) *Resource {
	for i := range c.Resources {
		if c.Resources[i].Name == name {
			return &c.Resources[i]
		}
	}
	return nil
}
