package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/embedsql/internal/sqlite"
	"github.com/mesh-intelligence/embedsql/internal/tabular"
)

func newExecCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "exec [SQL]",
		Short: "Run one or more statements",
		Long:  "Run every statement in SQL, or in --file, discarding their rows.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sql, err := sqlSource(cmd, args, file)
			if err != nil {
				return err
			}
			return a.withConn(func(c *sqlite.Conn) error {
				if err := c.Exec(sql); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d row(s) changed\n", c.Changes())
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read SQL from file (- for stdin)")
	return cmd
}

// queryFlags are shared by query and dump.
type queryFlags struct {
	params []string
	limit  int
}

func (q *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&q.params, "param", "p", nil, "named parameter as name=value (repeatable)")
	cmd.Flags().IntVarP(&q.limit, "limit", "n", 0, "stop after this many rows (0 for all)")
}

// bindings returns the positional args, or a single map when --param is set.
func (q *queryFlags) bindings(positional []string) ([]any, error) {
	if len(q.params) > 0 && len(positional) > 0 {
		return nil, userErrorf("use either positional arguments or --param, not both")
	}
	if len(q.params) > 0 {
		named := make(map[string]any, len(q.params))
		for _, p := range q.params {
			name, value, ok := strings.Cut(p, "=")
			if !ok || name == "" {
				return nil, userErrorf("parameter %q is not name=value", p)
			}
			named[name] = parseArg(value)
		}
		return []any{named}, nil
	}
	args := make([]any, len(positional))
	for i, p := range positional {
		args[i] = parseArg(p)
	}
	return args, nil
}

func newQueryCmd(a *app) *cobra.Command {
	var q queryFlags
	cmd := &cobra.Command{
		Use:   "query SQL [ARG...]",
		Short: "Run a query and print its rows",
		Long: "Run SQL with ARGs bound to its positional parameters, or --param values\n" +
			"bound by name, and print the rows in the selected format.",
		Example: "  embedsql query 'SELECT * FROM t WHERE name REGEXP ?' '^A'\n" +
			"  embedsql query 'SELECT * FROM t WHERE id = :id' --param id=3 --format json",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.outputFormat()
			if err != nil {
				return err
			}
			binds, err := q.bindings(args[1:])
			if err != nil {
				return err
			}
			return a.withConn(func(c *sqlite.Conn) error {
				t, err := tabular.Query(c, args[0], q.limit, binds...)
				if err != nil {
					return err
				}
				return writeResult(cmd.OutOrStdout(), f, t)
			})
		},
	}
	q.register(cmd)
	return cmd
}

func newDumpCmd(a *app) *cobra.Command {
	var (
		q   queryFlags
		out string
	)
	cmd := &cobra.Command{
		Use:   "dump SQL [ARG...]",
		Short: "Write query rows to a JSONL file",
		Long:  "Run SQL and write one JSON object per row to --out, replacing the file atomically.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return userErrorf("--out is required")
			}
			binds, err := q.bindings(args[1:])
			if err != nil {
				return err
			}
			return a.withConn(func(c *sqlite.Conn) error {
				t, err := tabular.Query(c, args[0], q.limit, binds...)
				if err != nil {
					return err
				}
				records := make([]json.RawMessage, len(t.Rows))
				for i, r := range t.Rows {
					data, err := json.Marshal(record{columns: t.Columns, row: r})
					if err != nil {
						return fmt.Errorf("row %d: %w", i+1, err)
					}
					records[i] = data
				}
				if err := writeJSONL(out, records); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %d row(s) to %s\n", len(records), out)
				return nil
			})
		},
	}
	q.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "destination JSONL file")
	return cmd
}

func newLoadCmd(a *app) *cobra.Command {
	var (
		name        string
		temp        bool
		ifNotExists bool
	)
	cmd := &cobra.Command{
		Use:   "load FILE",
		Short: "Create a table from a JSONL file",
		Long: "Read one JSON object per line from FILE and insert the records into a\n" +
			"new table. Columns are the union of the records' keys.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := readJSONL(args[0], a.log)
			if err != nil {
				return userErrorf("%w", err)
			}
			t, err := recordsToTable(records)
			if err != nil {
				return userErrorf("%s: %w", args[0], err)
			}
			return a.withConn(func(c *sqlite.Conn) error {
				table, err := tabular.Load(c, t, tabular.LoadOptions{Name: name, Temp: temp, IfNotExists: ifNotExists})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "loaded %d row(s) into %s\n", t.Len(), table)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&name, "table", "t", "", "table name (generated when empty)")
	cmd.Flags().BoolVar(&temp, "temp", false, "create a temporary table")
	cmd.Flags().BoolVar(&ifNotExists, "if-not-exists", false, "append to the table if it already exists")
	return cmd
}

// sqlSource returns the SQL argument or the contents of file.
func sqlSource(cmd *cobra.Command, args []string, file string) (string, error) {
	switch {
	case file != "" && len(args) > 0:
		return "", userErrorf("use either a SQL argument or --file, not both")
	case file == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		return string(data), err
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", userErrorf("%w", err)
		}
		return string(data), nil
	case len(args) == 1:
		return args[0], nil
	}
	return "", userErrorf("no SQL given")
}

// parseArg reads a command-line value as an integer, a float, or text.
func parseArg(s string) any {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
