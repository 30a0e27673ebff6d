// Package docstore connects to MongoDB and adapts the driver to the
// primitives the translation layer dispatches to.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/querybridge/querybridge/internal/schema"
	"github.com/querybridge/querybridge/internal/translate"
)

// DefaultSampleSize is how many documents Describe inspects.
const DefaultSampleSize = 50

// Store is one connected MongoDB database. It is safe for concurrent use;
// the driver pools connections.
type Store struct {
	client   *mongo.Client
	db       *mongo.Database
	database string
}

// Connect opens a client for connectionString and pings the deployment.
func Connect(ctx context.Context, connectionString, database string, maxPoolSize uint64) (*Store, error) {
	if database == "" {
		return nil, fmt.Errorf("no database named for MongoDB connection")
	}

	opts := options.Client().ApplyURI(connectionString)
	if maxPoolSize > 0 {
		opts.SetMaxPoolSize(maxPoolSize)
	}
	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("connecting to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging MongoDB: %w", err)
	}

	return &Store{
		client:   client,
		db:       client.Database(database),
		database: database,
	}, nil
}

// Name returns the database name.
func (s *Store) Name() string { return s.database }

// Collection resolves name to a collection handle. Names are checked
// locally; MongoDB creates collections on first write.
func (s *Store) Collection(name string) (translate.Collection, error) {
	if err := validCollectionName(name); err != nil {
		return nil, err
	}
	return &Collection{coll: s.db.Collection(name)}, nil
}

// RunCommand submits cmd against the database and returns the reply.
func (s *Store) RunCommand(ctx context.Context, cmd bson.D) (bson.Raw, error) {
	return s.db.RunCommand(ctx, cmd).Raw()
}

// CollectionNames lists the collections of the database.
func (s *Store) CollectionNames(ctx context.Context) ([]string, error) {
	names, err := s.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}
	return names, nil
}

// Catalog lists every collection with its estimated document count.
func (s *Store) Catalog(ctx context.Context, connection string) (*schema.Catalog, error) {
	names, err := s.CollectionNames(ctx)
	if err != nil {
		return nil, err
	}

	cat := &schema.Catalog{Connection: connection, Type: "mongodb", Database: s.database}
	for _, name := range names {
		res := schema.Resource{Name: name, Kind: "collection"}
		if n, err := s.db.Collection(name).EstimatedDocumentCount(ctx); err == nil {
			res.RowCount = n
		}
		cat.Resources = append(cat.Resources, res)
	}
	return cat, nil
}

// Describe samples up to sampleSize documents of a collection and reports
// the fields they carry, together with the collection's indexes.
func (s *Store) Describe(ctx context.Context, name string, sampleSize int) (*schema.Resource, error) {
	if err := validCollectionName(name); err != nil {
		return nil, err
	}
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}
	coll := s.db.Collection(name)

	pipeline := mongo.Pipeline{bson.D{{Key: "$sample", Value: bson.D{{Key: "size", Value: sampleSize}}}}}
	cursor, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("sampling documents from %s: %w", name, err)
	}
	defer cursor.Close(ctx)

	stats := schema.NewFieldStats()
	for cursor.Next(ctx) {
		elems, err := cursor.Current.Elements()
		if err != nil {
			return nil, fmt.Errorf("reading sample document: %w", err)
		}
		fields := make([]schema.FieldType, 0, len(elems))
		for _, e := range elems {
			fields = append(fields, schema.FieldType{Name: e.Key(), Type: TypeName(e.Value().Type)})
		}
		stats.Document(fields...)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("sampling documents from %s: %w", name, err)
	}

	res := &schema.Resource{
		Name:    name,
		Kind:    "collection",
		Columns: stats.Columns(),
		Sampled: stats.Documents(),
	}
	if n, err := coll.EstimatedDocumentCount(ctx); err == nil {
		res.RowCount = n
	}

	indexes, err := listIndexes(ctx, coll)
	if err != nil {
		return nil, err
	}
	res.Indexes = indexes
	return res, nil
}

func listIndexes(ctx context.Context, coll *mongo.Collection) ([]schema.Index, error) {
	cursor, err := coll.Indexes().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing indexes of %s: %w", coll.Name(), err)
	}
	defer cursor.Close(ctx)

	var indexes []schema.Index
	for cursor.Next(ctx) {
		var spec struct {
			Name   string `bson:"name"`
			Key    bson.D `bson:"key"`
			Unique bool   `bson:"unique"`
		}
		if err := cursor.Decode(&spec); err != nil {
			return nil, fmt.Errorf("decoding index spec: %w", err)
		}
		idx := schema.Index{Name: spec.Name, Unique: spec.Unique || spec.Name == "_id_"}
		for _, k := range spec.Key {
			idx.Columns = append(idx.Columns, k.Key)
		}
		indexes = append(indexes, idx)
	}
	return indexes, cursor.Err()
}

// Close disconnects from MongoDB.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func validCollectionName(name string) error {
	switch {
	case name == "":
		return errors.New("empty collection name")
	case strings.ContainsAny(name, "$\x00"):
		return fmt.Errorf("invalid collection name %q", name)
	case strings.HasPrefix(name, "system."):
		return fmt.Errorf("collection %q is reserved", name)
	}
	return nil
}

// TypeName returns the shell name of a BSON type, as used by $type.
func TypeName(t bson.Type) string {
	switch t {
	case bson.TypeDouble:
		return "double"
	case bson.TypeString:
		return "string"
	case bson.TypeEmbeddedDocument:
		return "object"
	case bson.TypeArray:
		return "array"
	case bson.TypeBinary:
		return "binData"
	case bson.TypeObjectID:
		return "objectId"
	case bson.TypeBoolean:
		return "bool"
	case bson.TypeDateTime:
		return "date"
	case bson.TypeNull, bson.TypeUndefined:
		return "null"
	case bson.TypeRegex:
		return "regex"
	case bson.TypeInt32:
		return "int"
	case bson.TypeTimestamp:
		return "timestamp"
	case bson.TypeInt64:
		return "long"
	case bson.TypeDecimal128:
		return "decimal"
	default:
		return t.String()
	}
}
