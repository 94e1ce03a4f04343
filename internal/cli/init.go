package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/embedsql/internal/paths"
	"github.com/mesh-intelligence/embedsql/internal/sqlite"
	"github.com/mesh-intelligence/embedsql/pkg/types"
)

// configFile holds the structure written to config.yaml.
type configFile struct {
	Database      string `yaml:"database"`
	Format        string `yaml:"format"`
	BusyTimeout   string `yaml:"busy_timeout"`
	RegexpTimeout string `yaml:"regexp_timeout"`
}

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config.yaml and create the database",
		Long: "Create the configuration directory and config.yaml if missing, then\n" +
			"create the database file it names.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInit(cmd)
		},
	}
}

func (a *app) runInit(cmd *cobra.Command) error {
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	database, err := paths.ResolveDatabase(a.flags.database, a.config.GetString(cfgKeyDatabase))
	if err != nil {
		return fmt.Errorf("resolve database: %w", err)
	}
	configPath := filepath.Join(configDir, configFileExt)
	written, err := writeConfigIfMissing(configPath, database)
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if written {
		a.log.Debug("wrote config", "path", configPath)
	}

	err = a.withConn(func(c *sqlite.Conn) error {
		return c.Exec("PRAGMA user_version")
	})
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Initialized %s\nconfig: %s\n", database, configPath)
	return nil
}

// writeConfigIfMissing creates config.yaml with default values unless the
// file already exists. It reports whether the file was written.
func writeConfigIfMissing(path, database string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}

	cfg := configFile{
		Database:      database,
		Format:        defaultFormat,
		BusyTimeout:   defaultBusyTimeout.String(),
		RegexpTimeout: types.DefaultRegexpTimeout.String(),
	}
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	return true, os.WriteFile(path, data, 0o644)
}
