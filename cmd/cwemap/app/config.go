package app

import (
	stderrors "errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/cwemap/pkg/constants"
	"github.com/agentstation/cwemap/pkg/errors"
)

// EnvPrefix prefixes every environment variable read by the CLI.
const EnvPrefix = "CWEMAP"

// Config holds the application configuration loaded from various sources
// including config files, environment variables, and .env files.
type Config struct {
	// Global flags
	Verbose  bool
	Quiet    bool
	NoColor  bool
	Format   string
	LogLevel string

	// Config file
	ConfigFile string

	// Store configuration
	DataDir      string
	CatalogURL   string
	DownloadsURL string
	HTTPTimeout  time.Duration
	CacheSize    int
	MetricsFile  string

	// Logging configuration
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (applied later by UpdateFromFlags)
// 2. Environment variables (CWEMAP_DATA_DIR, ...)
// 3. .env files
// 4. Config file (~/.cwemap.yaml or ./.cwemap.yaml)
// 5. Defaults
func LoadConfig() (*Config, error) {
	return LoadConfigFile("")
}

// LoadConfigFile is LoadConfig with an explicit config file. Unlike the
// default locations, an explicit file must exist.
func LoadConfigFile(file string) (*Config, error) {
	// Load .env files first (before Viper env binding)
	loadEnvFiles()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.NewConfigError("config", "cannot read "+file, err)
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".cwemap")

		var notFound viper.ConfigFileNotFoundError
		if err := v.ReadInConfig(); err != nil && !stderrors.As(err, &notFound) {
			return nil, errors.NewConfigError("config", "invalid config file", err)
		}
	}

	config := &Config{
		Verbose:  v.GetBool("verbose"),
		Quiet:    v.GetBool("quiet"),
		NoColor:  v.GetBool("no_color") || os.Getenv("NO_COLOR") != "",
		Format:   v.GetString("format"),
		LogLevel: v.GetString("log_level"),

		ConfigFile: v.ConfigFileUsed(),

		DataDir:      v.GetString("data_dir"),
		CatalogURL:   v.GetString("catalog_url"),
		DownloadsURL: v.GetString("downloads_url"),
		HTTPTimeout:  v.GetDuration("http_timeout"),
		CacheSize:    v.GetInt("cache_size"),
		MetricsFile:  v.GetString("metrics_file"),

		LogFormat: v.GetString("log_format"),
		LogOutput: v.GetString("log_output"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("catalog_url", constants.CatalogArchiveURL)
	v.SetDefault("downloads_url", constants.DownloadsPageURL)
	v.SetDefault("http_timeout", constants.DownloadTimeout)
	v.SetDefault("cache_size", constants.DefaultCacheSize)
	v.SetDefault("log_format", "auto")
	v.SetDefault("log_output", "stderr")
}

// Validate rejects values no command could run with.
func (c *Config) Validate() error {
	if c.HTTPTimeout < 0 {
		return errors.NewConfigError("config", "http_timeout cannot be negative", nil)
	}
	if c.CacheSize < 0 {
		return errors.NewConfigError("config", "cache_size cannot be negative", nil)
	}
	return nil
}

// UpdateFromFlags updates config values from parsed command flags.
// This should be called after cobra parses flags to ensure flag
// values take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel, dataDir string) {
	c.Verbose = c.Verbose || verbose
	c.Quiet = c.Quiet || quiet
	c.NoColor = c.NoColor || noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
	if dataDir != "" {
		c.DataDir = dataDir
	}
}

// loadEnvFiles loads environment variables from .env files.
// .env.local is read first so it wins over .env.
func loadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}
