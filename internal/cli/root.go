// Package cli implements the embedsql command-line interface.
package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/embedsql/internal/paths"
	"github.com/mesh-intelligence/embedsql/internal/sqlite"
	"github.com/mesh-intelligence/embedsql/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// usageError marks failures caused by bad input rather than the system.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func userErrorf(format string, args ...any) error {
	return usageError{fmt.Errorf(format, args...)}
}

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	database  string
	format    string
	verbose   bool
}

// app carries state shared by the subcommands of one root command.
type app struct {
	flags  rootFlags
	config *viper.Viper
	log    *slog.Logger
}

// NewRootCmd creates the top-level "embedsql" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "embedsql",
		Short: "Query and maintain embedded SQL databases",
		Long: "embedsql runs SQL against a database file, lists its schema, and moves\n" +
			"rows between tables and JSONL files.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	pf.StringVar(&a.flags.database, "database", "", "database file or :memory: (default: $(CWD)/.embedsql/embedsql.db)")
	pf.StringVar(&a.flags.format, "format", "", "output format: table, json, jsonl, yaml")
	pf.BoolVarP(&a.flags.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(a),
		newExecCmd(a),
		newQueryCmd(a),
		newDumpCmd(a),
		newLoadCmd(a),
		newTablesCmd(a),
		newColumnsCmd(a),
		newIndicesCmd(a),
	)
	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	err := root.Execute()
	if err == nil {
		os.Exit(exitSuccess)
	}
	fmt.Fprintln(os.Stderr, "embedsql:", err)
	var ue usageError
	if errors.As(err, &ue) {
		os.Exit(exitUserError)
	}
	os.Exit(exitSysError)
}

func (a *app) setup(cmd *cobra.Command) error {
	level := slog.LevelWarn
	if a.flags.verbose {
		level = slog.LevelDebug
	}
	a.log = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	a.config, err = loadConfig(configDir)
	if err != nil {
		return err
	}
	a.log.Debug("config loaded", "dir", configDir, "file", a.config.ConfigFileUsed())
	return nil
}

// open resolves the database location and opens it. The caller must Close
// the connection.
func (a *app) open() (*sqlite.Conn, error) {
	location, err := paths.ResolveDatabase(a.flags.database, a.config.GetString(cfgKeyDatabase))
	if err != nil {
		return nil, fmt.Errorf("resolve database: %w", err)
	}
	cfg := types.Config{
		Location:      location,
		BusyTimeout:   a.config.GetDuration(cfgKeyBusyTimeout),
		RegexpTimeout: a.config.GetDuration(cfgKeyRegexpTimeout),
		Logger:        a.log,
	}
	if !cfg.IsMemory() {
		if err := ensureParentDir(location); err != nil {
			return nil, err
		}
	}
	return sqlite.OpenConfig(cfg)
}

// outputFormat returns the --format flag, the config value, or "table".
func (a *app) outputFormat() (format, error) {
	name := a.flags.format
	if name == "" {
		name = a.config.GetString(cfgKeyFormat)
	}
	return parseFormat(name)
}

// withConn opens the database, runs fn, and closes the connection, joining
// any close failure with fn's error.
func (a *app) withConn(fn func(c *sqlite.Conn) error) (err error) {
	c, err := a.open()
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, c.Close())
	}()
	return fn(c)
}
