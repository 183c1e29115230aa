package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/josephgoksu/PageWing/internal/ledger"
)

// Output formats accepted by --format.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func isJSON() bool {
	return viper.GetBool("json")
}

func printJSON(w io.Writer, v any) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(output))
	return err
}

func printYAML(w io.Writer, v any) error {
	output, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.Write(output)
	return err
}

// resolveFormat lets the global --json flag override --format.
func resolveFormat(format string) (string, error) {
	if isJSON() {
		return formatJSON, nil
	}
	switch format {
	case formatTable, formatJSON, formatYAML:
		return format, nil
	default:
		return "", fmt.Errorf("unsupported format: %s (supported: table, json, yaml)", format)
	}
}

// openLedger opens the configured ledger backend.
func openLedger() (ledger.Ledger, error) {
	cfg := appConfig.Ledger
	l, err := ledger.Open(ledger.Config{Driver: cfg.Driver, Path: cfg.LedgerPath()}, afero.NewOsFs())
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	return l, nil
}
