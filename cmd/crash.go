/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/josephgoksu/PageWing/internal/logger"
)

var crashCmd = &cobra.Command{
	Use:   "crashes",
	Short: "List or print crash logs",
	Long: `Crash logs are written when a round or the process panics. They record
the task, round and the last instruction sent to the model.

Without arguments the recorded logs are listed, oldest first. Pass "latest"
or a file name to print one.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := logger.ListCrashLogs()
		if err != nil {
			return fmt.Errorf("list crash logs: %w", err)
		}
		if len(args) == 0 {
			if len(paths) == 0 {
				cmd.Println("No crash logs.")
				return nil
			}
			if isJSON() {
				return printJSON(cmd.OutOrStdout(), paths)
			}
			for _, p := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		}

		target := ""
		for _, p := range paths {
			if args[0] == "latest" || filepath.Base(p) == args[0] || p == args[0] {
				target = p
			}
		}
		if target == "" {
			return fmt.Errorf("crash log %q not found", args[0])
		}
		content, err := logger.ReadCrashLog(target)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), content)
		return err
	},
}

func init() {
	rootCmd.AddCommand(crashCmd)
}
