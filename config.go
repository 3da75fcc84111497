package fileutils

import (
	"fmt"
	"os"

	"github.com/gobeaver/beaver-kit/config"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Config selects and parameterizes a backend driver. Values come from the
// environment (GetConfig) or a YAML file (LoadConfigFile); the same struct
// serves both.
type Config struct {
	// Default driver to use (local, memory, sftp, url)
	Driver string `env:"FILEUTILS_DRIVER,default:local" yaml:"driver"`

	// Local driver configuration
	LocalRoot string `env:"FILEUTILS_LOCAL_ROOT,default:/" yaml:"local_root"`

	// SFTP driver configuration
	SFTPHost       string `env:"FILEUTILS_SFTP_HOST" yaml:"sftp_host"`
	SFTPPort       int    `env:"FILEUTILS_SFTP_PORT,default:22" yaml:"sftp_port"`
	SFTPUsername   string `env:"FILEUTILS_SFTP_USERNAME" yaml:"sftp_username"`
	SFTPPassword   string `env:"FILEUTILS_SFTP_PASSWORD" yaml:"sftp_password"`
	SFTPPrivateKey string `env:"FILEUTILS_SFTP_PRIVATE_KEY" yaml:"sftp_private_key"` // Path to private key file
	SFTPBasePath   string `env:"FILEUTILS_SFTP_BASE_PATH,default:/" yaml:"sftp_base_path"`

	// URL driver configuration
	URLBase string `env:"FILEUTILS_URL_BASE" yaml:"url_base"`

	// Log level for library logging (reconnect activity); zerolog level
	// names. Empty or "disabled" keeps logging off.
	LogLevel string `env:"FILEUTILS_LOG_LEVEL,default:disabled" yaml:"log_level"`
}

// Logger builds a stderr logger at the configured level, suitable for
// passing to Wrap via WithLogger. Unknown or disabled levels yield a
// no-op logger.
func (c *Config) Logger() zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || level == zerolog.Disabled || c.LogLevel == "" {
		return zerolog.Nop()
	}
	return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
}

// GetConfig returns config loaded from environment
func GetConfig() (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigFile returns config loaded from a YAML file. Fields absent
// from the file keep their zero values; callers that want environment
// defaults underneath should GetConfig first and unmarshal on top.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
