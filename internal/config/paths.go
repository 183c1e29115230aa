package config

import (
	"os"
	"path/filepath"

	"github.com/josephgoksu/PageWing/internal/ledger"
)

// GetGlobalConfigDir returns the path to the global data directory (~/.pagewing).
// It's a variable to allow overriding in tests.
var GetGlobalConfigDir = func() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".pagewing"), nil
}

// LedgerPath returns where the ledger lives.
// Resolution order (first match wins):
// 1. Explicit config via "ledger.path"
// 2. The file driver's legacy default: ./state.json
// 3. XDG_DATA_HOME/pagewing/ledger.db for sqlite (if XDG_DATA_HOME is set)
// 4. ~/.pagewing/ledger.db for sqlite
func (c LedgerConfig) LedgerPath() string {
	if c.Path != "" {
		return c.Path
	}
	if c.Driver != ledger.DriverSQLite {
		return ledger.DefaultFilePath
	}

	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "pagewing", "ledger.db")
	}

	dir, err := GetGlobalConfigDir()
	if err != nil {
		return "ledger.db"
	}
	return filepath.Join(dir, "ledger.db")
}

// CrashLogBase returns the directory crash logs are written under.
func CrashLogBase() string {
	dir, err := GetGlobalConfigDir()
	if err != nil {
		return ".pagewing"
	}
	return dir
}
