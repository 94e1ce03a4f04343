package cli

import (
	"errors"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/embedsql/internal/catalog"
	"github.com/mesh-intelligence/embedsql/internal/sqlite"
	"github.com/mesh-intelligence/embedsql/internal/tabular"
	"github.com/mesh-intelligence/embedsql/pkg/types"
)

func newTablesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.render(cmd, func(c *sqlite.Conn) (*tabular.Table, error) {
				names, err := catalog.Tables(c)
				if err != nil {
					return nil, err
				}
				t := &tabular.Table{Columns: []string{"name"}}
				for _, n := range names {
					t.Rows = append(t.Rows, types.Row{types.TextValue(n)})
				}
				return t, nil
			})
		},
	}
}

func newColumnsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "columns TABLE",
		Short: "List the columns of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.render(cmd, func(c *sqlite.Conn) (*tabular.Table, error) {
				cols, err := catalog.Columns(c, args[0])
				if errors.Is(err, catalog.ErrTableNotFound) {
					return nil, userErrorf("%w", err)
				}
				if err != nil {
					return nil, err
				}
				t := &tabular.Table{Columns: []string{"cid", "name", "type", "notnull", "default", "pk"}}
				for _, col := range cols {
					t.Rows = append(t.Rows, types.Row{
						types.IntegerValue(int64(col.CID)),
						types.TextValue(col.Name),
						types.TextValue(col.Type),
						types.TextValue(strconv.FormatBool(col.NotNull)),
						col.Default,
						types.IntegerValue(int64(col.PrimaryKey)),
					})
				}
				return t, nil
			})
		},
	}
}

func newIndicesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "indices",
		Aliases: []string{"indexes"},
		Short:   "List indices",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.render(cmd, func(c *sqlite.Conn) (*tabular.Table, error) {
				idx, err := catalog.Indices(c)
				if err != nil {
					return nil, err
				}
				t := &tabular.Table{Columns: []string{"name", "table", "sql"}}
				for _, ix := range idx {
					t.Rows = append(t.Rows, types.Row{
						types.TextValue(ix.Name), types.TextValue(ix.Table), types.TextValue(ix.SQL),
					})
				}
				return t, nil
			})
		},
	}
}

// render opens the database, builds a table with fn, and prints it.
func (a *app) render(cmd *cobra.Command, fn func(c *sqlite.Conn) (*tabular.Table, error)) error {
	f, err := a.outputFormat()
	if err != nil {
		return err
	}
	return a.withConn(func(c *sqlite.Conn) error {
		t, err := fn(c)
		if err != nil {
			return err
		}
		return writeResult(cmd.OutOrStdout(), f, t)
	})
}
