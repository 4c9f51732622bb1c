package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/terraincognita07/lua/internal/security"
)

const (
	BackupNone  = "none"
	BackupDrive = "drive"
	BackupAzure = "azure"

	minSecretKeyLength = 32
)

var insecureSecretKeys = map[string]struct{}{
	"change_me_in_production":                    {},
	"replace_with_at_least_32_random_characters": {},
}

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Engine   EngineConfig
	Backup   BackupConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Port            string
	TimeZone        string
	DefaultLanguage string
	SecretKey       string
	SecretKeyFile   string
	PublicURL       string
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Path string
}

type EngineConfig struct {
	PredictionWindow int
	ForecastCycles   int
}

type BackupConfig struct {
	Provider    string
	Debounce    time.Duration
	Passphrase  string
	KeyringUser string
	Google      GoogleConfig
	Azure       AzureStorageConfig
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
}

type AzureStorageConfig struct {
	ConnectionString string
	AccountName      string
	AccountKey       string
	Container        string
}

type LoggingConfig struct {
	Level  string
	Format string // json or console
}

// Load reads defaults, an optional lua.yaml from configDir, then the
// environment, which wins over both. Without an explicit secret key the key
// file is used, and created on first start.
func Load(configDir string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("lua")
	v.SetConfigType("yaml")
	if configDir != "" {
		v.AddConfigPath(configDir)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Backup.Provider = strings.ToLower(strings.TrimSpace(cfg.Backup.Provider))

	if strings.TrimSpace(cfg.Server.SecretKey) == "" && cfg.Server.SecretKeyFile != "" {
		secret, err := security.LoadOrCreateSecret(cfg.Server.SecretKeyFile)
		if err != nil {
			return nil, fmt.Errorf("load secret key: %w", err)
		}
		cfg.Server.SecretKey = secret
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.timezone", "UTC")
	v.SetDefault("server.defaultlanguage", "en")
	v.SetDefault("server.publicurl", "http://localhost:8080")
	v.SetDefault("server.shutdowntimeout", 10*time.Second)
	v.SetDefault("server.secretkeyfile", filepath.Join("data", "secret.key"))

	v.SetDefault("database.path", filepath.Join("data", "lua.db"))

	v.SetDefault("engine.predictionwindow", 6)
	v.SetDefault("engine.forecastcycles", 12)

	v.SetDefault("backup.provider", BackupNone)
	v.SetDefault("backup.debounce", 2*time.Second)
	v.SetDefault("backup.keyringuser", "default")
	v.SetDefault("backup.azure.container", "lua-backups")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

func bindEnvVars(v *viper.Viper) {
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.timezone", "TZ")
	v.BindEnv("server.defaultlanguage", "DEFAULT_LANGUAGE")
	v.BindEnv("server.secretkey", "SECRET_KEY")
	v.BindEnv("server.secretkeyfile", "SECRET_KEY_FILE")
	v.BindEnv("server.publicurl", "PUBLIC_URL")

	v.BindEnv("database.path", "DB_PATH")

	v.BindEnv("engine.predictionwindow", "PREDICTION_WINDOW")
	v.BindEnv("engine.forecastcycles", "FORECAST_CYCLES")

	v.BindEnv("backup.provider", "BACKUP_PROVIDER")
	v.BindEnv("backup.debounce", "BACKUP_DEBOUNCE")
	v.BindEnv("backup.passphrase", "BACKUP_PASSPHRASE")
	v.BindEnv("backup.keyringuser", "BACKUP_KEYRING_USER")
	v.BindEnv("backup.google.clientid", "GOOGLE_CLIENT_ID")
	v.BindEnv("backup.google.clientsecret", "GOOGLE_CLIENT_SECRET")
	v.BindEnv("backup.azure.connectionstring", "AZURE_STORAGE_CONNECTION_STRING")
	v.BindEnv("backup.azure.accountname", "AZURE_STORAGE_ACCOUNT_NAME")
	v.BindEnv("backup.azure.accountkey", "AZURE_STORAGE_ACCOUNT_KEY")
	v.BindEnv("backup.azure.container", "AZURE_STORAGE_CONTAINER")

	v.BindEnv("logging.level", "LOG_LEVEL")
	v.BindEnv("logging.format", "LOG_FORMAT")
}

func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("server.port must be a number between 1 and 65535, got %q", c.Server.Port)
	}

	if _, err := c.Location(); err != nil {
		return fmt.Errorf("server.timezone: %w", err)
	}

	secret := strings.TrimSpace(c.Server.SecretKey)
	if secret == "" {
		return errors.New("server.secretkey is required")
	}
	if _, insecure := insecureSecretKeys[secret]; insecure {
		return errors.New("server.secretkey uses a placeholder value")
	}
	if len(secret) < minSecretKeyLength {
		return fmt.Errorf("server.secretkey must be at least %d characters", minSecretKeyLength)
	}

	if c.Engine.PredictionWindow < 1 {
		return errors.New("engine.predictionwindow must be positive")
	}
	if c.Engine.ForecastCycles < 1 {
		return errors.New("engine.forecastcycles must be positive")
	}

	switch c.Backup.Provider {
	case BackupNone:
	case BackupDrive:
		if c.Backup.Google.ClientID == "" {
			return errors.New("backup.google.clientid is required for the drive provider")
		}
	case BackupAzure:
		storage := c.Backup.Azure
		if storage.ConnectionString == "" && (storage.AccountName == "" || storage.AccountKey == "") {
			return errors.New("azure storage credentials are required (either connection string or account name + key)")
		}
		if storage.Container == "" {
			return errors.New("backup.azure.container is required for the azure provider")
		}
	default:
		return fmt.Errorf("unknown backup provider %q", c.Backup.Provider)
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

// Location resolves the configured time zone used to decide what "today" is.
func (c *Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Server.TimeZone)
	if name == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(name)
}
