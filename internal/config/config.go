package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config is the top-level configuration structure.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Bridge     BridgeConfig     `mapstructure:"bridge"`
	Challenges ChallengesConfig `mapstructure:"challenges"`
}

// ServerConfig holds the bridge server settings.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

// DatabaseConfig selects and configures the daily-state store. The sqlite
// driver is the on-device default; postgres is available for hosted
// deployments that want the same schema server-side.
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"` // "sqlite" or "postgres"
	Path     string `mapstructure:"path"`   // sqlite file path
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// LoggingConfig holds settings for the logger.
type LoggingConfig struct {
	Directory  string `mapstructure:"directory"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// BridgeConfig describes the environment the bridge believes it is running in.
// ExpectedPackage/PackageID/DataDir feed the app-clone heuristic; AllowedOrigins
// gates which hosted pages may call the bridge.
type BridgeConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	ExpectedPackage string   `mapstructure:"expected_package"`
	PackageID       string   `mapstructure:"package_id"`
	DataDir         string   `mapstructure:"data_dir"`
	FilesDir        string   `mapstructure:"files_dir"`
	StateDir        string   `mapstructure:"state_dir"`
}

// ChallengesConfig points at the tuning file loaded at startup.
type ChallengesConfig struct {
	File string `mapstructure:"file"`
}

// setDefaults sets the default values for the configuration.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", "5080")

	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/tasktrophy.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "user")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.dbname", "tasktrophy")

	// Logging defaults
	v.SetDefault("logging.directory", "logs")
	v.SetDefault("logging.max_size", 10)   // 10 MB
	v.SetDefault("logging.max_backups", 3) // Keep 3 backups
	v.SetDefault("logging.max_age", 7)     // 7 days
	v.SetDefault("logging.compress", true) // Compress old logs

	// Bridge defaults
	v.SetDefault("bridge.allowed_origins", []string{"https://tasktrophy.in"})
	v.SetDefault("bridge.expected_package", "com.tasktrophy.official")
	v.SetDefault("bridge.package_id", "com.tasktrophy.official")
	v.SetDefault("bridge.data_dir", "")
	v.SetDefault("bridge.files_dir", "")
	v.SetDefault("bridge.state_dir", "data")

	v.SetDefault("challenges.file", "config/challenges.yaml")
}

// Load initializes the configuration with Viper and returns it. The returned
// pointer is updated in place when the config file changes on disk.
func Load(projectRoot string, log *zap.Logger) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.AddConfigPath(filepath.Join(projectRoot, "config"))
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("TASKTROPHY") // e.g., TASKTROPHY_SERVER_PORT
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// It's okay if the file doesn't exist; defaults and env vars will be used.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	conf := &Config{}
	if err := v.Unmarshal(conf); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	// Set up a watch for configuration changes for hot-reloading
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		log.Info("Configuration file changed, reloading.", zap.String("file", e.Name))
		if err := v.Unmarshal(conf); err != nil {
			log.Error("Error reloading configuration", zap.Error(err))
		}
	})

	log.Info("Configuration loaded successfully")
	return conf, nil
}
