/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/josephgoksu/PageWing/internal/ledger"
	"github.com/josephgoksu/PageWing/internal/ui"
)

var ledgerFormat string

var ledgerCmd = &cobra.Command{
	Use:     "ledger",
	Aliases: []string{"tasks"},
	Short:   "Inspect published tasks",
	Long: `Inspect the ledger of published tasks.

The ledger records, for every task, the repository, Pages URL and revision of
its latest successful round. Later rounds use it to find their repository.`,
}

var ledgerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every task in the ledger",
	Example: `  pagewing ledger list
  pagewing ledger list --format yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveFormat(ledgerFormat)
		if err != nil {
			return err
		}
		l, err := openLedger()
		if err != nil {
			return err
		}
		defer func() { _ = l.Close() }()

		entries, err := l.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("list ledger: %w", err)
		}
		return renderEntries(cmd.OutOrStdout(), format, entries)
	},
}

var ledgerShowCmd = &cobra.Command{
	Use:     "show <task>",
	Short:   "Show one task's latest round",
	Example: `  pagewing ledger show captcha-solver --json`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveFormat(ledgerFormat)
		if err != nil {
			return err
		}
		l, err := openLedger()
		if err != nil {
			return err
		}
		defer func() { _ = l.Close() }()

		entry, ok, err := l.Get(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("read ledger: %w", err)
		}
		if !ok {
			return fmt.Errorf("task %q not found in ledger", args[0])
		}

		out := cmd.OutOrStdout()
		switch format {
		case formatJSON:
			return printJSON(out, entry)
		case formatYAML:
			return printYAML(out, entry)
		default:
			_, err := fmt.Fprint(out, ui.RenderEntry(entry))
			return err
		}
	},
}

func init() {
	rootCmd.AddCommand(ledgerCmd)
	ledgerCmd.AddCommand(ledgerListCmd, ledgerShowCmd)
	ledgerCmd.PersistentFlags().StringVar(&ledgerFormat, "format", formatTable, "output format: table, json or yaml")
}

func renderEntries(w io.Writer, format string, entries []ledger.Entry) error {
	switch format {
	case formatJSON:
		return printJSON(w, entries)
	case formatYAML:
		return printYAML(w, entries)
	}
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No tasks published yet.")
		return err
	}
	_, err := fmt.Fprint(w, ui.EntriesTable(entries).Render())
	return err
}
