package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/embedsql/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	cfgKeyDatabase      = "database"
	cfgKeyFormat        = "format"
	cfgKeyBusyTimeout   = "busy_timeout"
	cfgKeyRegexpTimeout = "regexp_timeout"

	defaultFormat      = "table"
	defaultBusyTimeout = 5 * time.Second
)

// loadConfig reads config.yaml from configDir. A missing file or directory
// is not an error; defaults apply.
func loadConfig(configDir string) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault(cfgKeyFormat, defaultFormat)
	v.SetDefault(cfgKeyBusyTimeout, defaultBusyTimeout)
	v.SetDefault(cfgKeyRegexpTimeout, types.DefaultRegexpTimeout)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// ensureParentDir creates the directory holding a database file.
func ensureParentDir(location string) error {
	if len(location) >= 5 && location[:5] == "file:" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(location), 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	return nil
}
