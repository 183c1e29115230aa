// Package config provides centralized configuration for PageWing.
// All default values are defined here to keep a single source of truth.
package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/josephgoksu/PageWing/internal/ledger"
	"github.com/josephgoksu/PageWing/internal/llm"
	"github.com/josephgoksu/PageWing/internal/notify"
	"github.com/josephgoksu/PageWing/internal/publish"
)

const (
	// ConfigName is the config file name searched in ./ and $HOME.
	ConfigName = ".pagewing"

	// EnvPrefix prefixes every environment variable, e.g. PAGEWING_SERVER_PORT.
	EnvPrefix = "PAGEWING"

	// DefaultPort matches the port the service has always listened on.
	DefaultPort = 8000

	DefaultLogLevel  = "info"
	DefaultLogFormat = "auto"
)

// legacyEnv maps config keys to the environment variables used by earlier
// deployments. They are consulted after the PAGEWING_ prefixed name.
var legacyEnv = map[string][]string{
	"server.secret": {"API_SECRET"},
	"github.token":  {"GITHUB_TOKEN"},
	"github.owner":  {"GITHUB_USERNAME"},
	"llm.baseURL":   {"AIPIPE_BASE_URL"},
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	gh := publish.DefaultGitHubConfig()

	v.SetDefault("server.port", DefaultPort)

	v.SetDefault("github.branch", gh.Branch)
	v.SetDefault("github.pagesWait", gh.PagesWait)
	v.SetDefault("github.deleteWait", gh.DeleteWait)

	// Empty provider lets the model name pick one.
	v.SetDefault("llm.provider", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.apiKey", "")
	v.SetDefault("llm.temperature", llm.DefaultTemperature)
	v.SetDefault("llm.maxTokens", llm.DefaultMaxTokens)
	v.SetDefault("llm.timeout", llm.DefaultTimeout)

	v.SetDefault("ledger.driver", ledger.DriverFile)

	v.SetDefault("notify.timeout", notify.DefaultTimeout)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.apiKey", "")
	v.SetDefault("telemetry.endpoint", "")

	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)
}

// DefaultShutdownTimeout bounds graceful shutdown of the API server.
const DefaultShutdownTimeout = 30 * time.Second
