package app

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/PepeluiMoreno/sipi-api/pkg/overpass"
)

// Config holds the application configuration loaded from flags, environment
// variables, .env files, and an optional config file.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool

	// Config file
	ConfigFile string

	// Upstream services
	OverpassURL  string
	NominatimURL string
	UserAgent    string

	// Overpass server-side timeouts
	AreaTimeout time.Duration
	BBoxTimeout time.Duration

	// Sync behavior
	BatchSize int

	// Data files
	ScopesFile  string
	FixtureFile string

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
// command-line flags (applied later by cobra), environment variables, .env
// files, config file (~/.sipi.yaml), and defaults.
func LoadConfig() (*Config, error) {
	loadEnvFiles()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	viper.SetDefault("overpass_url", overpass.DefaultAPIURL)
	viper.SetDefault("nominatim_url", "https://nominatim.openstreetmap.org")
	viper.SetDefault("sipi_user_agent", overpass.DefaultUserAgent)
	viper.SetDefault("overpass_area_timeout", 30*time.Minute)
	viper.SetDefault("overpass_bbox_timeout", 3*time.Minute)
	viper.SetDefault("sync_batch_size", 50)

	configFile := viper.GetString("config")
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.AddConfigPath(".")
			viper.SetConfigType("yaml")
			viper.SetConfigName(".sipi")
		}
	}

	// Config file is optional.
	_ = viper.ReadInConfig()

	config := &Config{
		Verbose: viper.GetBool("verbose"),
		Quiet:   viper.GetBool("quiet"),
		NoColor: viper.GetBool("no-color"),

		ConfigFile: viper.ConfigFileUsed(),

		OverpassURL:  viper.GetString("overpass_url"),
		NominatimURL: viper.GetString("nominatim_url"),
		UserAgent:    viper.GetString("sipi_user_agent"),

		AreaTimeout: viper.GetDuration("overpass_area_timeout"),
		BBoxTimeout: viper.GetDuration("overpass_bbox_timeout"),

		BatchSize: viper.GetInt("sync_batch_size"),

		ScopesFile:  viper.GetString("sipi_scopes_file"),
		FixtureFile: viper.GetString("sipi_fixture_file"),

		LogLevel:  getEnvOrDefault("LOG_LEVEL", ""),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "auto"),
		LogOutput: getEnvOrDefault("LOG_OUTPUT", "stderr"),
	}

	return config, nil
}

// UpdateFromFlags updates config values from parsed command flags so flag
// values take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// loadEnvFiles loads environment variables from .env files.
// .env.local overrides .env.
func loadEnvFiles() {
	for _, envFile := range []string{".env", ".env.local"} {
		_ = godotenv.Load(envFile)
	}
}

// getEnvOrDefault returns the environment variable value or the default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
