package sqlite

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/embedsql/pkg/types"
)

func TestRegexpBuiltin(t *testing.T) {
	c := openMemory(t)
	require.NoError(t, c.Exec(`
		CREATE TABLE employee(first TEXT, last TEXT);
		INSERT INTO employee VALUES ('Jane', 'Peacock'), ('Nancy', 'Edwards'), ('Andrew', 'Adams');
		CREATE TABLE media(name TEXT);
		INSERT INTO media VALUES ('MPEG audio file'), ('Protected MPEG-4 video file'), ('AAC audio file');
	`))

	t.Run("operator form with lookahead", func(t *testing.T) {
		rows := queryAll(t, c, "SELECT first FROM employee WHERE last REGEXP 'e(?=a)'")
		require.Len(t, rows, 1)
		assert.Equal(t, "Jane", rows[0][0].Text())
	})

	t.Run("function form", func(t *testing.T) {
		rows := queryAll(t, c, "SELECT last FROM employee WHERE regexp('^A', last) ORDER BY last")
		require.Len(t, rows, 1)
		assert.Equal(t, "Adams", rows[0][0].Text())
	})

	t.Run("escaped digit class", func(t *testing.T) {
		rows := queryAll(t, c, `SELECT name FROM media WHERE name REGEXP '-\d'`)
		require.Len(t, rows, 1)
		assert.Equal(t, "Protected MPEG-4 video file", rows[0][0].Text())
	})

	t.Run("bound pattern", func(t *testing.T) {
		rows := queryAll(t, c, "SELECT count(*) FROM media WHERE name REGEXP ?", "audio")
		assert.Equal(t, int64(2), rows[0][0].Int())
	})
}

func TestRegexpResults(t *testing.T) {
	c := openMemory(t)
	tests := []struct {
		name string
		sql  string
		want types.Value
	}{
		{"match is 1", "SELECT regexp('^word', 'word is here')", types.IntegerValue(1)},
		{"no match is 0", "SELECT regexp('^word', 'this is a string')", types.IntegerValue(0)},
		{"null pattern", "SELECT regexp(NULL, 'x')", types.NullValue()},
		{"null subject", "SELECT regexp('x', NULL)", types.NullValue()},
		{"integer subject", "SELECT regexp('^4[0-9]$', 42)", types.IntegerValue(1)},
		{"real subject keeps its fraction", `SELECT regexp('\.0$', 1.0)`, types.IntegerValue(1)},
		{"real subject as engine text", `SELECT regexp('^2\.5$', 2.5)`, types.IntegerValue(1)},
		{"integer pattern", "SELECT regexp(7, 'route 7')", types.IntegerValue(1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := queryAll(t, c, tt.sql)
			assert.Equal(t, tt.want, rows[0][0])
		})
	}
}

func TestRegexpBadPattern(t *testing.T) {
	c := openMemory(t)
	rows, err := c.Query("SELECT regexp('(unclosed', 'x')")
	require.NoError(t, err)
	defer rows.Close()
	assert.False(t, rows.Next())

	var fe *types.FunctionInvocationError
	require.ErrorAs(t, rows.Err(), &fe)
	assert.Equal(t, "regexp", fe.Name)
}

func TestRegexpMatchTimeout(t *testing.T) {
	c, err := OpenConfig(types.Config{Location: types.Memory, RegexpTimeout: 50 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	start := time.Now()
	rows, err := c.Query("SELECT regexp('^(a+)+$', ?)", strings.Repeat("a", 40)+"!")
	require.NoError(t, err)
	defer rows.Close()
	assert.False(t, rows.Next())
	assert.Less(t, time.Since(start), 5*time.Second)

	var se *types.StepError
	require.ErrorAs(t, rows.Err(), &se)
	assert.Equal(t, types.StepFunction, se.Kind)
	var fe *types.FunctionInvocationError
	require.ErrorAs(t, rows.Err(), &fe)
	assert.Equal(t, "regexp", fe.Name)
	assert.Contains(t, fe.Error(), "timeout")
}
