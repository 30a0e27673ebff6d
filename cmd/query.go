package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/querybridge/querybridge/internal/backend"
	"github.com/querybridge/querybridge/internal/console"
)

var (
	toolConnection string
	toolParams     string
	toolCompact    bool
	toolTimeout    time.Duration
)

var queryCmd = &cobra.Command{
	Use:   "query <text|->",
	Short: "Run a read-only query",
	Long: `Run a read-only query against a connection and print the results.

Document stores accept shell syntax, documents and pipelines:
  querybridge query 'db.users.find({age: {$gt: 21}}).limit(5)'
  querybridge query '[{$match: {status: "A"}}]' --params '["orders"]'

Relational stores accept SELECT, WITH, SHOW, DESCRIBE and EXPLAIN
statements with positional parameters. Pass - to read the query from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTool(cmd, args[0], backend.Backend.Query)
	},
}

var executeCmd = &cobra.Command{
	Use:   "execute <text|->",
	Short: "Run a write or command",
	Long: `Run a write against a connection and print the outcome.

  querybridge execute 'db.users.updateMany({active: false}, {$set: {archived: true}})'
  querybridge execute '{collection: "users", operation: "insertOne", document: {name: "ada"}}'
  querybridge execute -c warehouse 'DELETE FROM staging WHERE loaded = $1' --params '[true]'

Connections marked read_only refuse every execute.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTool(cmd, args[0], backend.Backend.Execute)
	},
}

type toolFunc func(backend.Backend, context.Context, string, []any) (*backend.Result, error)

func runTool(cmd *cobra.Command, arg string, call toolFunc) error {
	text, err := requestText(cmd, arg)
	if err != nil {
		return err
	}
	params, err := backend.ParseParams([]byte(toolParams))
	if err != nil {
		return err
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	ctx, cancel := context.WithTimeout(cmd.Context(), toolTimeout)
	defer cancel()

	b, err := s.backend(ctx, toolConnection)
	if err != nil {
		return err
	}
	res, err := call(b, ctx, text, params)
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), res, toolCompact)
}

// requestText returns arg, or stdin when arg is "-".
func requestText(cmd *cobra.Command, arg string) (string, error) {
	if arg != "-" {
		return arg, nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("empty query on stdin")
	}
	return text, nil
}

func printResult(w io.Writer, res *backend.Result, compact bool) error {
	for _, item := range res.Items {
		line := string(item)
		if !compact {
			line = console.Pretty(item)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func addToolFlags(c *cobra.Command) {
	c.Flags().StringVarP(&toolConnection, "connection", "c", "", "connection name (default: the configured default)")
	c.Flags().StringVar(&toolParams, "params", "", "positional parameters as a JSON array")
	c.Flags().BoolVar(&toolCompact, "compact", false, "print one JSON document per line")
	c.Flags().DurationVar(&toolTimeout, "timeout", 30*time.Second, "time limit for the call")
}

func init() {
	addToolFlags(queryCmd)
	addToolFlags(executeCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(executeCmd)
}
