package translate

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Mode selects the read or the write path.
type Mode int

const (
	ModeRead Mode = iota
	ModeWrite
)

func (m Mode) String() string {
	if m == ModeWrite {
		return "write"
	}
	return "read"
}

// ParseMode reads "read" or "write". Empty means read.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "read":
		return ModeRead, nil
	case "write":
		return ModeWrite, nil
	default:
		return ModeRead, fmt.Errorf("unknown mode %q", s)
	}
}

// Command is the canonical form of a request. Exactly one field is set.
type Command struct {
	Pipeline   *Pipeline
	Invocation *Invocation
	Raw        *RawCommand
}

// Pipeline is an aggregation over one collection. Every stage is a
// single-key document whose key is a $-prefixed operator.
type Pipeline struct {
	Collection string
	Stages     []bson.D
}

// Invocation is a named method call on a collection.
type Invocation struct {
	Collection string
	Method     string
	Args       []any
}

// RawCommand is submitted verbatim through the generic command path.
type RawCommand struct {
	Document bson.D
}

// Kind names the populated variant.
func (c *Command) Kind() string {
	switch {
	case c.Pipeline != nil:
		return "pipeline"
	case c.Invocation != nil:
		return "invocation"
	case c.Raw != nil:
		return "command"
	default:
		return ""
	}
}

// Collection returns the target collection, empty for raw commands.
func (c *Command) Collection() string {
	switch {
	case c.Pipeline != nil:
		return c.Pipeline.Collection
	case c.Invocation != nil:
		return c.Invocation.Collection
	default:
		return ""
	}
}

// Method returns the method the dispatcher will look up.
func (c *Command) Method() string {
	switch {
	case c.Pipeline != nil:
		return "aggregate"
	case c.Invocation != nil:
		return c.Invocation.Method
	case c.Raw != nil && len(c.Raw.Document) > 0:
		return c.Raw.Document[0].Key
	default:
		return ""
	}
}

// Document renders the command as one document for previews.
func (c *Command) Document() bson.D {
	switch {
	case c.Pipeline != nil:
		stages := make(bson.A, 0, len(c.Pipeline.Stages))
		for _, s := range c.Pipeline.Stages {
			stages = append(stages, s)
		}
		return bson.D{
			{Key: "pipeline", Value: bson.D{
				{Key: "collection", Value: c.Pipeline.Collection},
				{Key: "stages", Value: stages},
			}},
		}
	case c.Invocation != nil:
		args := make(bson.A, 0, len(c.Invocation.Args))
		args = append(args, c.Invocation.Args...)
		return bson.D{
			{Key: "invocation", Value: bson.D{
				{Key: "collection", Value: c.Invocation.Collection},
				{Key: "method", Value: c.Invocation.Method},
				{Key: "args", Value: args},
			}},
		}
	case c.Raw != nil:
		return bson.D{{Key: "command", Value: c.Raw.Document}}
	default:
		return bson.D{}
	}
}
