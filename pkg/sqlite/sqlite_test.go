package sqlite_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/embedsql/pkg/sqlite"
	"github.com/mesh-intelligence/embedsql/pkg/types"
)

func TestPublicSurface(t *testing.T) {
	conn, err := sqlite.Open(types.Memory)
	require.NoError(t, err)
	defer conn.Close()

	var square sqlite.ScalarFunc = func(args []types.Value) (any, error) {
		return args[0].Int() * args[0].Int(), nil
	}
	require.NoError(t, conn.RegisterScalar("square", 1, true, square))

	var s *sqlite.Stmt
	s, err = conn.Prepare("SELECT square(?)")
	require.NoError(t, err)
	defer s.Finalize()
	assert.Equal(t, sqlite.Unbound, s.State())
	require.NoError(t, s.BindValues(7))

	var rows *sqlite.Rows = s.Rows()
	all, err := rows.Collect()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, int64(49), all[0][0].Int())
	assert.Equal(t, sqlite.Done, s.State())
}
