package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// env is an isolated config directory and database for one test.
type env struct {
	configDir string
	database  string
}

func newEnv(t *testing.T) env {
	t.Helper()
	dir := t.TempDir()
	return env{
		configDir: filepath.Join(dir, "config"),
		database:  filepath.Join(dir, "data", "test.db"),
	}
}

func (e env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--config-dir", e.configDir, "--database", e.database}, args...))
	err := root.Execute()
	return out.String(), err
}

func (e env) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	require.NoError(t, err, "embedsql %s", strings.Join(args, " "))
	return out
}

func TestVersion(t *testing.T) {
	e := newEnv(t)
	out := e.mustRun(t, "version")
	assert.Contains(t, out, "embedsql v"+Version)
	assert.Contains(t, out, modulePath)
}

func TestInitWritesConfig(t *testing.T) {
	e := newEnv(t)
	out := e.mustRun(t, "init")
	assert.Contains(t, out, e.database)

	data, err := os.ReadFile(filepath.Join(e.configDir, "config.yaml"))
	require.NoError(t, err)
	var cfg configFile
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	assert.Equal(t, e.database, cfg.Database)
	assert.Equal(t, "table", cfg.Format)
	assert.Equal(t, "5s", cfg.BusyTimeout)
	assert.Equal(t, "1s", cfg.RegexpTimeout)

	_, err = os.Stat(e.database)
	assert.NoError(t, err)

	// A second init keeps the existing file.
	require.NoError(t, os.WriteFile(filepath.Join(e.configDir, "config.yaml"), []byte("format: json\n"), 0o644))
	e.mustRun(t, "init")
	data, err = os.ReadFile(filepath.Join(e.configDir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "format: json\n", string(data))
}

func TestConfigFormatApplies(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, os.MkdirAll(e.configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(e.configDir, "config.yaml"), []byte("format: jsonl\n"), 0o644))

	out := e.mustRun(t, "query", "SELECT 1 AS one")
	assert.Equal(t, "{\"one\":1}\n", out)

	out = e.mustRun(t, "query", "SELECT 1 AS one", "--format", "yaml")
	assert.Equal(t, "- one: 1\n", out)
}

func TestExecAndQuery(t *testing.T) {
	e := newEnv(t)
	e.mustRun(t, "exec", `
		CREATE TABLE employee(id INTEGER PRIMARY KEY, first TEXT, last TEXT, photo BLOB);
		INSERT INTO employee(first, last, photo) VALUES ('Jane', 'Peacock', x'0102'), ('Andrew', 'Adams', NULL);
	`)

	out := e.mustRun(t, "query", "SELECT first, last FROM employee WHERE last REGEXP ? ORDER BY id", "^A")
	assert.Equal(t, "first   last\nAndrew  Adams\n", out)

	out = e.mustRun(t, "query", "SELECT id, first, photo FROM employee WHERE id = :id", "--param", "id=1", "--format", "json")
	var got []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	assert.Equal(t, float64(1), got[0]["id"])
	assert.Equal(t, "Jane", got[0]["first"])
	assert.Equal(t, "AQI=", got[0]["photo"])
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out), `[`))
	assert.Less(t, strings.Index(out, `"id"`), strings.Index(out, `"first"`))

	out = e.mustRun(t, "query", "SELECT id FROM employee ORDER BY id", "--limit", "1", "--format", "jsonl")
	assert.Equal(t, "{\"id\":1}\n", out)
}

func TestExecFromFile(t *testing.T) {
	e := newEnv(t)
	path := filepath.Join(t.TempDir(), "schema.sql")
	require.NoError(t, os.WriteFile(path, []byte("CREATE TABLE t(x); INSERT INTO t VALUES (1), (2);"), 0o644))

	out := e.mustRun(t, "exec", "--file", path)
	assert.Equal(t, "2 row(s) changed\n", out)

	_, err := e.run(t, "exec", "SELECT 1", "--file", path)
	var ue usageError
	assert.ErrorAs(t, err, &ue)
}

func TestQueryErrors(t *testing.T) {
	e := newEnv(t)
	tests := []struct {
		name      string
		args      []string
		userError bool
	}{
		{"bad format", []string{"query", "SELECT 1", "--format", "xml"}, true},
		{"param and positional", []string{"query", "SELECT ?", "1", "--param", "a=1"}, true},
		{"malformed param", []string{"query", "SELECT :a", "--param", "a"}, true},
		{"syntax error", []string{"query", "SELEC 1"}, false},
		{"dump without out", []string{"dump", "SELECT 1"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.run(t, tt.args...)
			require.Error(t, err)
			var ue usageError
			assert.Equal(t, tt.userError, errors.As(err, &ue))
		})
	}
}

func TestSchemaCommands(t *testing.T) {
	e := newEnv(t)
	e.mustRun(t, "exec", `
		CREATE TABLE genre(id INTEGER PRIMARY KEY, name TEXT NOT NULL);
		CREATE INDEX genre_name ON genre(name);
	`)

	out := e.mustRun(t, "tables", "--format", "jsonl")
	assert.Equal(t, "{\"name\":\"genre\"}\n", out)

	out = e.mustRun(t, "columns", "genre", "--format", "jsonl")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `{"cid":1,"name":"name","type":"TEXT","notnull":"true","default":null,"pk":0}`, lines[1])

	out = e.mustRun(t, "indexes")
	assert.Contains(t, out, "genre_name")

	_, err := e.run(t, "columns", "missing")
	var ue usageError
	assert.ErrorAs(t, err, &ue)
}

func TestLoadAndDump(t *testing.T) {
	e := newEnv(t)
	dir := t.TempDir()
	in := filepath.Join(dir, "in.jsonl")
	require.NoError(t, os.WriteFile(in, []byte(strings.Join([]string{
		`{"name": "Jane", "age": 41, "score": 1.5, "active": true}`,
		``,
		`not json`,
		`{"name": "Andrew", "tags": ["a", "b"]}`,
	}, "\n")), 0o644))

	out := e.mustRun(t, "load", in, "--table", "people")
	assert.Equal(t, "loaded 2 row(s) into people\n", out)

	out = e.mustRun(t, "query", "SELECT typeof(age), typeof(score), active, tags FROM people ORDER BY rowid", "--format", "jsonl")
	assert.Equal(t,
		"{\"typeof(age)\":\"integer\",\"typeof(score)\":\"real\",\"active\":1,\"tags\":null}\n"+
			"{\"typeof(age)\":\"null\",\"typeof(score)\":\"null\",\"active\":null,\"tags\":\"[\\\"a\\\",\\\"b\\\"]\"}\n",
		out)

	dump := filepath.Join(dir, "out.jsonl")
	out = e.mustRun(t, "dump", "SELECT name, age FROM people WHERE age > ?", "40", "--out", dump)
	assert.Equal(t, "wrote 1 row(s) to "+dump+"\n", out)
	data, err := os.ReadFile(dump)
	require.NoError(t, err)
	assert.Equal(t, "{\"name\":\"Jane\",\"age\":41}\n", string(data))

	out = e.mustRun(t, "load", dump)
	assert.Contains(t, out, "loaded 1 row(s) into embedsql_")
}
