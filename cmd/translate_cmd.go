package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/querybridge/querybridge/internal/backend"
	"github.com/querybridge/querybridge/internal/console"
	"github.com/querybridge/querybridge/internal/docstore"
	"github.com/querybridge/querybridge/internal/translate"
)

var (
	translateMode   string
	translateParams string
)

var translateCmd = &cobra.Command{
	Use:   "translate <text|->",
	Short: "Show the command a document query translates to",
	Long: `Parse and normalize a document-store request without contacting a
store, then print the canonical command as Extended JSON. Useful for
checking how a shape is routed before running it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := requestText(cmd, args[0])
		if err != nil {
			return err
		}
		mode, err := translate.ParseMode(translateMode)
		if err != nil {
			return err
		}
		params, err := backend.ParseParams([]byte(translateParams))
		if err != nil {
			return err
		}

		c, err := translate.Parse(text, params, mode)
		if err != nil {
			return err
		}
		doc, err := docstore.RenderCommand(c)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "route:      %s\n", c.Kind())
		if c.Collection() != "" {
			fmt.Fprintf(out, "collection: %s\n", c.Collection())
		}
		if c.Method() != "" {
			fmt.Fprintf(out, "method:     %s\n", c.Method())
		}
		fmt.Fprintln(out, console.Pretty(doc))
		return nil
	},
}

func init() {
	translateCmd.Flags().StringVar(&translateMode, "mode", "read", "read or write")
	translateCmd.Flags().StringVar(&translateParams, "params", "", "positional parameters as a JSON array")
	rootCmd.AddCommand(translateCmd)
}
