package sqlite

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/embedsql/internal/marshal"
	"github.com/mesh-intelligence/embedsql/pkg/types"
)

func TestRoundTripStorageClasses(t *testing.T) {
	c := openMemory(t)
	require.NoError(t, c.Exec("CREATE TABLE t(v)"))

	tests := []struct {
		name string
		in   any
		want types.Value
	}{
		{"null", nil, types.NullValue()},
		{"integer", int64(math.MaxInt64), types.IntegerValue(math.MaxInt64)},
		{"negative integer", -7, types.IntegerValue(-7)},
		{"float", 3.25, types.FloatValue(3.25)},
		{"text", "héllo\x00world", types.TextValue("héllo\x00world")},
		{"empty text", "", types.TextValue("")},
		{"blob", []byte{0, 1, 2, 255}, types.BlobValue([]byte{0, 1, 2, 255})},
		{"empty blob", []byte{}, types.BlobValue([]byte{})},
		{"bool", true, types.IntegerValue(1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, c.Exec("DELETE FROM t"))

			ins, err := c.Prepare("INSERT INTO t(v) VALUES (?)")
			require.NoError(t, err)
			defer ins.Finalize()
			require.NoError(t, ins.BindIndex(1, tt.in))
			require.NoError(t, ins.Exec())

			rows := queryAll(t, c, "SELECT v FROM t")
			require.Len(t, rows, 1)
			got := rows[0][0]
			assert.True(t, tt.want.Equal(got), "want %v (%s), got %v (%s)", tt.want, tt.want.Kind(), got, got.Kind())
			assert.Equal(t, marshal.FromValue(tt.want), marshal.FromValue(got))
		})
	}
}

func TestRebindOverridesBeforeStep(t *testing.T) {
	c := openMemory(t)
	s, err := c.Prepare("SELECT ?")
	require.NoError(t, err)
	defer s.Finalize()

	require.NoError(t, s.BindIndex(1, 1))
	require.NoError(t, s.BindIndex(1, "second"))
	more, err := s.Step()
	require.NoError(t, err)
	require.True(t, more)
	assert.Equal(t, types.TextValue("second"), s.Row()[0])
	assert.Equal(t, types.TextValue("second"), s.Params()[0].Value)
}

func TestResetRepeatsResults(t *testing.T) {
	c := openMemory(t)
	require.NoError(t, c.Exec("CREATE TABLE t(x); INSERT INTO t VALUES (1), (2), (3)"))

	s, err := c.Prepare("SELECT x FROM t WHERE x >= ? ORDER BY x")
	require.NoError(t, err)
	defer s.Finalize()
	require.NoError(t, s.BindIndex(1, 1))

	first, err := s.Rows().Collect()
	require.NoError(t, err)
	require.Len(t, first, 3)
	assert.Equal(t, Done, s.State())

	require.NoError(t, s.Reset())
	assert.Equal(t, Bound, s.State())
	second, err := s.Rows().Collect()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestStepAfterDoneDoesNotRerun(t *testing.T) {
	c := openMemory(t)
	require.NoError(t, c.Exec("CREATE TABLE t(x)"))
	s, err := c.Prepare("INSERT INTO t VALUES (1)")
	require.NoError(t, err)
	defer s.Finalize()

	for range 3 {
		more, err := s.Step()
		require.NoError(t, err)
		assert.False(t, more)
	}
	rows := queryAll(t, c, "SELECT count(*) FROM t")
	assert.Equal(t, int64(1), rows[0][0].Int())
}

func TestStateTransitions(t *testing.T) {
	c := openMemory(t)
	s, err := c.Prepare("SELECT ? UNION ALL SELECT 2")
	require.NoError(t, err)
	assert.Equal(t, Unbound, s.State())

	require.NoError(t, s.BindIndex(1, 1))
	assert.Equal(t, Bound, s.State())

	more, err := s.Step()
	require.NoError(t, err)
	require.True(t, more)
	assert.Equal(t, HasRow, s.State())

	err = s.BindIndex(1, 5)
	var be *types.BindError
	require.ErrorAs(t, err, &be)
	assert.ErrorIs(t, err, types.ErrResetRequired)

	require.NoError(t, s.Rows().Close())
	assert.Equal(t, Bound, s.State())

	require.NoError(t, s.Finalize())
	assert.Equal(t, Finalized, s.State())
	assert.ErrorIs(t, s.Reset(), types.ErrFinalized)
	assert.ErrorIs(t, s.BindIndex(1, 1), types.ErrFinalized)
	assert.Nil(t, s.Row())
}

func TestUnknownParameter(t *testing.T) {
	c := openMemory(t)
	s, err := c.Prepare("SELECT :a, ?2")
	require.NoError(t, err)
	defer s.Finalize()

	t.Run("unknown name", func(t *testing.T) {
		err := s.BindName("missing", 1)
		var upe *types.UnknownParameterError
		require.ErrorAs(t, err, &upe)
		assert.Equal(t, "missing", upe.Name)
	})

	t.Run("index out of range", func(t *testing.T) {
		err := s.BindIndex(3, 1)
		var upe *types.UnknownParameterError
		require.ErrorAs(t, err, &upe)
		assert.Equal(t, 3, upe.Index)
		assert.Equal(t, 2, upe.Count)
	})

	t.Run("index zero", func(t *testing.T) {
		var upe *types.UnknownParameterError
		require.ErrorAs(t, s.BindIndex(0, 1), &upe)
	})

	t.Run("too many positional values", func(t *testing.T) {
		var upe *types.UnknownParameterError
		require.ErrorAs(t, s.BindValues(1, 2, 3), &upe)
	})
}

func TestBindByName(t *testing.T) {
	c := openMemory(t)
	s, err := c.Prepare("SELECT :a, @b, $c, :a")
	require.NoError(t, err)
	defer s.Finalize()

	assert.Equal(t, 3, s.ParamCount())
	params := s.Params()
	assert.Equal(t, ":a", params[0].Name)
	assert.Equal(t, "@b", params[1].Name)

	require.NoError(t, s.BindMap(map[string]any{"a": 1, "@b": "two", ":c": 3.5}))
	more, err := s.Step()
	require.NoError(t, err)
	require.True(t, more)
	assert.Equal(t, []any{int64(1), "two", 3.5, int64(1)}, s.Row().Values())
}

func TestUnboundParametersAreNull(t *testing.T) {
	c := openMemory(t)
	rows := queryAll(t, c, "SELECT ?1, ?2", 10)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(10), rows[0][0].Int())
	assert.True(t, rows[0][1].IsNull())
}

func TestClearBindings(t *testing.T) {
	c := openMemory(t)
	s, err := c.Prepare("SELECT ?")
	require.NoError(t, err)
	defer s.Finalize()

	require.NoError(t, s.BindIndex(1, 9))
	require.NoError(t, s.ClearBindings())
	assert.Equal(t, Unbound, s.State())
	more, err := s.Step()
	require.NoError(t, err)
	require.True(t, more)
	assert.True(t, s.Row()[0].IsNull())
}

func TestBindUnmappableValue(t *testing.T) {
	c := openMemory(t)
	s, err := c.Prepare("SELECT ?")
	require.NoError(t, err)
	defer s.Finalize()

	err = s.BindIndex(1, map[string]int{"a": 1})
	var se *types.SerializationError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "map[string]int", se.Type)
}

type coord struct{ X, Y byte }

func (p coord) MarshalSQLBlob() ([]byte, error) { return []byte{p.X, p.Y}, nil }

func TestBlobFallbackIsAsymmetric(t *testing.T) {
	c := openMemory(t)
	require.NoError(t, c.Exec("CREATE TABLE t(v)"))

	s, err := c.Prepare("INSERT INTO t VALUES (?)")
	require.NoError(t, err)
	defer s.Finalize()
	require.NoError(t, s.BindIndex(1, coord{X: 1, Y: 2}))
	require.NoError(t, s.Exec())

	rows := queryAll(t, c, "SELECT v, typeof(v) FROM t")
	require.Len(t, rows, 1)
	v := rows[0][0]
	assert.Equal(t, types.KindBlob, v.Kind())
	assert.Equal(t, "blob", rows[0][1].Text())

	// What comes back is the envelope, not a coord.
	host := marshal.FromValue(v)
	assert.IsType(t, []byte{}, host)
	codec, payload, err := marshal.DecodeBlob(v.Blob())
	require.NoError(t, err)
	assert.Equal(t, marshal.CodecCustom, codec)
	assert.Equal(t, []byte{1, 2}, payload)
}

func TestColumnMetadata(t *testing.T) {
	c := openMemory(t)
	require.NoError(t, c.Exec("CREATE TABLE t(id INTEGER, name TEXT)"))
	s, err := c.Prepare("SELECT id, name, 1 + 1 AS two FROM t")
	require.NoError(t, err)
	defer s.Finalize()
	assert.Equal(t, []string{"id", "name", "two"}, s.ColumnNames())
	assert.Equal(t, []string{"INTEGER", "TEXT", ""}, s.DeclTypes())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "has-row", HasRow.String())
	assert.Equal(t, "State(42)", State(42).String())
}
