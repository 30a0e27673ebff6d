package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/querybridge/querybridge/internal/schema"
)

var (
	resourcesConnection string
	resourcesOutput     string
)

var resourcesCmd = &cobra.Command{
	Use:   "resources",
	Short: "List the tables, views or collections of a connection",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.close()

		ctx := cmd.Context()
		b, err := s.backend(ctx, resourcesConnection)
		if err != nil {
			return err
		}
		cat, err := b.Resources(ctx)
		if err != nil {
			return fmt.Errorf("listing resources: %w", err)
		}
		return writeCatalog(cmd.OutOrStdout(), cat)
	},
}

var describeCmd = &cobra.Command{
	Use:   "describe <resource>",
	Short: "Show columns, keys and indexes of one resource",
	Long: `Describe a table or view, or sample a collection to report the fields
and BSON types its documents use.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.close()

		ctx := cmd.Context()
		b, err := s.backend(ctx, resourcesConnection)
		if err != nil {
			return err
		}
		res, err := b.Describe(ctx, args[0])
		if err != nil {
			return fmt.Errorf("describing %s: %w", args[0], err)
		}
		return writeValue(cmd.OutOrStdout(), res)
	},
}

func writeCatalog(w io.Writer, cat *schema.Catalog) error {
	switch resourcesOutput {
	case "summary", "":
		fmt.Fprintln(w, cat.Summary())
		for _, r := range cat.Resources {
			fmt.Fprintf(w, "  %-32s %-10s %d\n", r.Name, r.Kind, r.RowCount)
		}
		return nil
	case "yaml":
		data, err := cat.ToYAML()
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case "json":
		data, err := cat.ToJSON()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	default:
		return fmt.Errorf("unknown output format %q (summary, yaml or json)", resourcesOutput)
	}
}

func writeValue(w io.Writer, v any) error {
	switch resourcesOutput {
	case "json":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "yaml", "summary", "":
		data, err := yaml.Marshal(v)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	default:
		return fmt.Errorf("unknown output format %q (yaml or json)", resourcesOutput)
	}
}

func init() {
	for _, c := range []*cobra.Command{resourcesCmd, describeCmd} {
		c.Flags().StringVarP(&resourcesConnection, "connection", "c", "", "connection name (default: the configured default)")
		c.Flags().StringVarP(&resourcesOutput, "output", "o", "", "output format: summary, yaml or json")
		rootCmd.AddCommand(c)
	}
}
