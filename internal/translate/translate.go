// Package translate turns free-form document-store requests into one
// canonical command and dispatches it to a single store primitive.
//
// Accepted request text, tried in this order:
//
//	db.users.find({age: {$gt: 21}}).sort({name: 1}).limit(10)
//	db.getCollection('users').distinct('status')
//	db.runCommand({ping: 1})
//	[{"$match": {"age": {"$gt": 21}}}]            (collection as first parameter)
//	{"collection": "users", "pipeline": [..]}
//	{"collection": "users", "method": "findOne", "args": [{..}]}
//	{"collection": "users", "operation": {"updateOne": {..}}}   (write path)
//	{"collection": "users", "match": {..}, "sort": {..}, "limit": 10}
//	{"collection": "users", "status": "active"}
//	{"listCollections": 1}
//
// Every failure is a *Error carrying an ErrorKind.
package translate

import (
	"context"
	"log/slog"
)

// TranslateRead parses text and runs it on the read path.
func TranslateRead(ctx context.Context, db Database, text string, params []any) (*Result, error) {
	cmd, err := Parse(text, params, ModeRead)
	if err != nil {
		return nil, err
	}
	return DispatchRead(ctx, db, cmd)
}

// TranslateWrite parses text and runs it on the write path.
func TranslateWrite(ctx context.Context, db Database, text string, params []any) error {
	cmd, err := Parse(text, params, ModeWrite)
	if err != nil {
		return err
	}
	_, err = DispatchWrite(ctx, db, cmd)
	return err
}

// Translator binds a database and a logger for repeated use.
type Translator struct {
	db     Database
	logger *slog.Logger
}

// NewTranslator creates a Translator over db.
func NewTranslator(db Database, logger *slog.Logger) *Translator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Translator{db: db, logger: logger}
}

// Read runs text on the read path.
func (t *Translator) Read(ctx context.Context, text string, params []any) (*Result, error) {
	cmd, err := Parse(text, params, ModeRead)
	if err != nil {
		t.logger.Debug("translation rejected", "mode", ModeRead, "kind", KindOf(err))
		return nil, err
	}
	t.logger.Debug("dispatching", "mode", ModeRead, "route", cmd.Kind(), "collection", cmd.Collection(), "method", cmd.Method())
	return DispatchRead(ctx, t.db, cmd)
}

// Write runs text on the write path and returns what the store reported.
func (t *Translator) Write(ctx context.Context, text string, params []any) (*WriteSummary, error) {
	cmd, err := Parse(text, params, ModeWrite)
	if err != nil {
		t.logger.Debug("translation rejected", "mode", ModeWrite, "kind", KindOf(err))
		return nil, err
	}
	t.logger.Debug("dispatching", "mode", ModeWrite, "route", cmd.Kind(), "collection", cmd.Collection(), "method", cmd.Method())

	sum, err := DispatchWrite(ctx, t.db, cmd)
	if err != nil {
		return nil, err
	}
	if sum != nil {
		t.logger.Debug("write complete", "collection", cmd.Collection(), "affected", sum.Affected())
	}
	return sum, nil
}
