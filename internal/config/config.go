package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config is the complete PageWing configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	GitHub    GitHubConfig    `mapstructure:"github"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port   int    `mapstructure:"port" validate:"gt=0,lte=65535"`
	Secret string `mapstructure:"secret"`
}

type GitHubConfig struct {
	Token      string        `mapstructure:"token"`
	Owner      string        `mapstructure:"owner"`
	Branch     string        `mapstructure:"branch" validate:"required"`
	PagesWait  time.Duration `mapstructure:"pagesWait" validate:"gte=0"`
	DeleteWait time.Duration `mapstructure:"deleteWait" validate:"gte=0"`
}

type LLMConfig struct {
	Provider    string        `mapstructure:"provider" validate:"omitempty,oneof=openai ollama anthropic gemini"`
	Model       string        `mapstructure:"model"`
	APIKey      string        `mapstructure:"apiKey"`
	BaseURL     string        `mapstructure:"baseURL" validate:"omitempty,url"`
	Temperature float32       `mapstructure:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int           `mapstructure:"maxTokens" validate:"gt=0"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

type LedgerConfig struct {
	Driver string `mapstructure:"driver" validate:"oneof=file sqlite"`
	Path   string `mapstructure:"path"`
}

type NotifyConfig struct {
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

type TelemetryConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	APIKey   string `mapstructure:"apiKey" validate:"required_if=Enabled true"`
	Endpoint string `mapstructure:"endpoint" validate:"omitempty,url"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=auto json console"`
}

// validate is a single instance of Validate, it caches struct info
var validate = validator.New(validator.WithRequiredStructEnabled())

// Init wires the global viper instance: .env, environment variables, the
// config file and defaults. cfgFile overrides the search path when set.
func Init(cfgFile string) error {
	// A missing .env file is fine.
	_ = godotenv.Load()

	v := viper.GetViper()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range legacyEnv {
		envs := append([]string{EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, names...)
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", v.ConfigFileUsed(), err)
	}
	return nil
}

// Load unmarshals the global viper state into a validated Config.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom unmarshals v into a validated Config.
func LoadFrom(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// publishing is the subset that must be present before anything is published.
type publishing struct {
	Secret string `validate:"required"`
	Token  string `validate:"required"`
	Owner  string `validate:"required"`
}

// ValidateServe checks the settings the API server cannot run without.
func (c *Config) ValidateServe() error {
	err := validate.Struct(publishing{Secret: c.Server.Secret, Token: c.GitHub.Token, Owner: c.GitHub.Owner})
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	keys := map[string]string{"Secret": "server.secret", "Token": "github.token", "Owner": "github.owner"}
	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		missing = append(missing, keys[fe.Field()])
	}
	return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
}

// Watch reloads the log level whenever the config file changes.
// It is a no-op when no config file was loaded.
func Watch(log *zap.Logger, level zap.AtomicLevel) {
	v := viper.GetViper()
	if v.ConfigFileUsed() == "" {
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		onConfigChange(v, log, level, e)
	})
	v.WatchConfig()
	log.Debug("watching config file", zap.String("file", v.ConfigFileUsed()))
}

func onConfigChange(v *viper.Viper, log *zap.Logger, level zap.AtomicLevel, e fsnotify.Event) {
	log.Info("config file changed", zap.String("file", e.Name), zap.String("op", e.Op.String()))

	name := v.GetString("log.level")
	next, err := zapcore.ParseLevel(name)
	if err != nil {
		log.Warn("ignoring invalid log level", zap.String("level", name), zap.Error(err))
		return
	}
	if next != level.Level() {
		level.SetLevel(next)
		log.Info("log level changed", zap.Stringer("level", next))
	}
}
