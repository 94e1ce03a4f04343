package cli

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/mesh-intelligence/embedsql/internal/tabular"
	"github.com/mesh-intelligence/embedsql/pkg/types"
)

// maxLineSize bounds one JSONL record.
const maxLineSize = 16 << 20

// readJSONL reads a JSONL file and returns each non-empty JSON object line.
// Malformed lines are logged and skipped.
func readJSONL(path string, log *slog.Logger) ([]json.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var records []json.RawMessage
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	line := 0
	for scanner.Scan() {
		line++
		b := bytes.TrimSpace(scanner.Bytes())
		if len(b) == 0 {
			continue
		}
		if !json.Valid(b) || b[0] != '{' {
			log.Warn("skipping malformed JSONL line", "path", path, "line", line)
			continue
		}
		records = append(records, json.RawMessage(bytes.Clone(b)))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	return records, nil
}

// writeJSONL atomically writes records to a JSONL file using the temp-file,
// fsync, rename pattern.
func writeJSONL(path string, records []json.RawMessage) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".jsonl-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	fail := func(op string, err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%s: %w", op, err)
	}

	w := bufio.NewWriter(tmp)
	for _, rec := range records {
		if _, err := w.Write(rec); err != nil {
			return fail("writing record", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return fail("writing newline", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fail("flushing buffer", err)
	}
	if err := tmp.Sync(); err != nil {
		return fail("syncing temp file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// recordsToTable builds a table from JSON objects. Columns are the union of
// keys in sorted order; a key missing from a record is NULL.
func recordsToTable(records []json.RawMessage) (*tabular.Table, error) {
	objs := make([]map[string]any, len(records))
	seen := map[string]bool{}
	var columns []string
	for i, rec := range records {
		dec := json.NewDecoder(bytes.NewReader(rec))
		dec.UseNumber()
		if err := dec.Decode(&objs[i]); err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
		for k := range objs[i] {
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
		}
	}
	slices.Sort(columns)

	t := &tabular.Table{Columns: columns, Rows: make([]types.Row, len(objs))}
	for i, obj := range objs {
		row := make(types.Row, len(columns))
		for j, col := range columns {
			v, err := jsonValue(obj[col])
			if err != nil {
				return nil, fmt.Errorf("record %d, key %s: %w", i+1, col, err)
			}
			row[j] = v
		}
		t.Rows[i] = row
	}
	return t, nil
}

// jsonValue maps a decoded JSON value onto a storage class. Nested arrays
// and objects are stored as their JSON text.
func jsonValue(v any) (types.Value, error) {
	switch x := v.(type) {
	case nil:
		return types.NullValue(), nil
	case bool:
		if x {
			return types.IntegerValue(1), nil
		}
		return types.IntegerValue(0), nil
	case json.Number:
		if !strings.ContainsAny(x.String(), ".eE") {
			if i, err := x.Int64(); err == nil {
				return types.IntegerValue(i), nil
			}
		}
		f, err := x.Float64()
		if err != nil {
			return types.Value{}, err
		}
		return types.FloatValue(f), nil
	case string:
		return types.TextValue(x), nil
	default:
		data, err := json.Marshal(x)
		if err != nil {
			return types.Value{}, err
		}
		return types.TextValue(string(data)), nil
	}
}
