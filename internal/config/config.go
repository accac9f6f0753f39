package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Database   DatabaseConfig
	Log        LogConfig
	Import     ImportConfig
	Categories CategoriesConfig
	Duplicates DuplicatesConfig
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string
}

// LogConfig holds logrus settings.
type LogConfig struct {
	Level  string
	Format string
}

// ImportConfig describes the statement CSV files handed to the importer.
type ImportConfig struct {
	DateFormat string `mapstructure:"date_format"`
	Delimiter  string
}

// CategoriesConfig lists categories seeded on startup besides Uncategorized.
type CategoriesConfig struct {
	Defaults []string
}

// DuplicatesConfig tunes the near-duplicate review.
type DuplicatesConfig struct {
	WindowDays       int     `mapstructure:"window_days"`
	MaxDistanceRatio float64 `mapstructure:"max_distance_ratio"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "keyledger", "keyledger.db"))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("import.date_format", "02 Jan 2006")
	v.SetDefault("import.delimiter", ",")
	v.SetDefault("categories.defaults", []string{})
	v.SetDefault("duplicates.window_days", 7)
	v.SetDefault("duplicates.max_distance_ratio", 0.4)
}

// LoadFile reads configuration from cfgPath and env; an empty path searches
// $HOME/.config/keyledger. Env var overrides use prefix KEYLEDGER_.
func LoadFile(cfgPath string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("toml")

	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "keyledger"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("KEYLEDGER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// an explicit path that does not exist is reported as a plain os error
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects values the importer or the duplicate review cannot use.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("invalid configuration: database.path is empty")
	}
	if strings.TrimSpace(c.Import.DateFormat) == "" {
		return fmt.Errorf("invalid configuration: import.date_format is empty")
	}
	if len([]rune(c.Import.Delimiter)) != 1 {
		return fmt.Errorf("invalid configuration: import.delimiter must be a single character, got %q", c.Import.Delimiter)
	}
	if c.Duplicates.WindowDays < 0 {
		return fmt.Errorf("invalid configuration: duplicates.window_days must not be negative")
	}
	if c.Duplicates.MaxDistanceRatio < 0 || c.Duplicates.MaxDistanceRatio > 1 {
		return fmt.Errorf("invalid configuration: duplicates.max_distance_ratio must be within [0,1]")
	}
	return nil
}

// SaveFile writes cfg as TOML to path, creating the directory if needed; an
// empty path means the default location.
func SaveFile(path string, cfg Config) error {
	if path == "" {
		path = filepath.Join(os.Getenv("HOME"), ".config", "keyledger", "config.toml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("database.path", cfg.Database.Path)
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.format", cfg.Log.Format)
	v.Set("import.date_format", cfg.Import.DateFormat)
	v.Set("import.delimiter", cfg.Import.Delimiter)
	v.Set("categories.defaults", cfg.Categories.Defaults)
	v.Set("duplicates.window_days", cfg.Duplicates.WindowDays)
	v.Set("duplicates.max_distance_ratio", cfg.Duplicates.MaxDistanceRatio)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
