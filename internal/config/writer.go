package config

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

const redacted = "********"

// Document renders c as nested maps using the config file's key names.
// Durations are written in their string form so the file stays readable.
// When redact is set, secrets are masked.
func (c *Config) Document(redact bool) map[string]any {
	secret := func(s string) string {
		if redact && s != "" {
			return redacted
		}
		return s
	}

	return map[string]any{
		"server": map[string]any{
			"port":   c.Server.Port,
			"secret": secret(c.Server.Secret),
		},
		"github": map[string]any{
			"token":      secret(c.GitHub.Token),
			"owner":      c.GitHub.Owner,
			"branch":     c.GitHub.Branch,
			"pagesWait":  c.GitHub.PagesWait.String(),
			"deleteWait": c.GitHub.DeleteWait.String(),
		},
		"llm": map[string]any{
			"provider":    c.LLM.Provider,
			"model":       c.LLM.Model,
			"apiKey":      secret(c.LLM.APIKey),
			"baseURL":     c.LLM.BaseURL,
			"temperature": c.LLM.Temperature,
			"maxTokens":   c.LLM.MaxTokens,
			"timeout":     c.LLM.Timeout.String(),
		},
		"ledger": map[string]any{
			"driver": c.Ledger.Driver,
			"path":   c.Ledger.Path,
		},
		"notify": map[string]any{
			"timeout": c.Notify.Timeout.String(),
		},
		"telemetry": map[string]any{
			"enabled":  c.Telemetry.Enabled,
			"apiKey":   secret(c.Telemetry.APIKey),
			"endpoint": c.Telemetry.Endpoint,
		},
		"log": map[string]any{
			"level":  c.Log.Level,
			"format": c.Log.Format,
		},
	}
}

// MarshalDocument renders the document form of c as YAML.
func (c *Config) MarshalDocument(redact bool) ([]byte, error) {
	out, err := yaml.Marshal(c.Document(redact))
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return append([]byte("# PageWing configuration\n"), out...), nil
}

// WriteFile writes c to path. Existing files are left alone unless force is set.
// The file holds credentials, so it is only readable by the owner.
func WriteFile(fs afero.Fs, path string, c *Config, force bool) error {
	if !force {
		exists, err := afero.Exists(fs, path)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
		}
	}

	data, err := c.MarshalDocument(false)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	return afero.WriteFile(fs, path, data, 0o600)
}
