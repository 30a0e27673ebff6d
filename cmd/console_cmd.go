package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/querybridge/querybridge/internal/console"
	"github.com/querybridge/querybridge/internal/state"
)

var (
	consoleConnection string
	consoleTimeout    time.Duration
	stateFile         string
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Open an interactive query console",
	Long: `Open a terminal console bound to one connection. Enter runs the input
as a query; ctrl+w switches to write mode so input runs as execute.
Up and down recall history, ctrl+l clears, esc quits.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.close()

		name := consoleConnection
		if name == "" {
			name = s.registry.Default()
		}
		b, err := s.backend(cmd.Context(), name)
		if err != nil {
			return err
		}
		st, err := state.Load(stateFile)
		if err != nil {
			s.logger.Warn("console history unavailable", "error", err)
			st = state.New()
		}
		history, err := console.Run(name, b, consoleTimeout, st.Entries(name))
		if err != nil {
			return fmt.Errorf("console: %w", err)
		}
		st.SetEntries(name, history)
		if err := st.Save(stateFile); err != nil {
			s.logger.Warn("saving console history", "error", err)
		}
		return nil
	},
}

func init() {
	consoleCmd.Flags().StringVarP(&consoleConnection, "connection", "c", "", "connection name (default: the configured default)")
	consoleCmd.Flags().DurationVar(&consoleTimeout, "timeout", 30*time.Second, "time limit per query")
	consoleCmd.Flags().StringVar(&stateFile, "state", "", "history file (default: ~/.querybridge/state.yaml)")
	rootCmd.AddCommand(consoleCmd)
}
