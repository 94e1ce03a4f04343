package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/embedsql/internal/tabular"
	"github.com/mesh-intelligence/embedsql/pkg/types"
)

type format string

const (
	formatTable format = "table"
	formatJSON  format = "json"
	formatJSONL format = "jsonl"
	formatYAML  format = "yaml"
)

var formats = []format{formatTable, formatJSON, formatJSONL, formatYAML}

func parseFormat(name string) (format, error) {
	if name == "" {
		return formatTable, nil
	}
	for _, f := range formats {
		if string(f) == strings.ToLower(name) {
			return f, nil
		}
	}
	return "", userErrorf("unknown format %q (want table, json, jsonl, or yaml)", name)
}

// writeResult renders t to w in format f.
func writeResult(w io.Writer, f format, t *tabular.Table) error {
	switch f {
	case formatJSON:
		recs := make([]record, len(t.Rows))
		for i, r := range t.Rows {
			recs[i] = record{columns: t.Columns, row: r}
		}
		data, err := json.MarshalIndent(recs, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	case formatJSONL:
		for _, r := range t.Rows {
			data, err := json.Marshal(record{columns: t.Columns, row: r})
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
				return err
			}
		}
		return nil
	case formatYAML:
		doc := &yaml.Node{Kind: yaml.SequenceNode}
		for _, r := range t.Rows {
			doc.Content = append(doc.Content, yamlRecord(t.Columns, r))
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	default:
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, strings.Join(t.Columns, "\t"))
		for _, r := range t.Rows {
			cells := make([]string, len(r))
			for i, v := range r {
				cells[i] = v.String()
			}
			fmt.Fprintln(tw, strings.Join(cells, "\t"))
		}
		return tw.Flush()
	}
}

// record is one row rendered as a JSON object with keys in column order.
type record struct {
	columns []string
	row     types.Row
}

func (r record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.row[i].Any())
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func yamlRecord(columns []string, row types.Row) *yaml.Node {
	m := &yaml.Node{Kind: yaml.MappingNode}
	for i, col := range columns {
		m.Content = append(m.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: col},
			yamlScalar(row[i]))
	}
	return m
}

func yamlScalar(v types.Value) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode, Value: v.String()}
	switch v.Kind() {
	case types.KindNull:
		n.Tag, n.Value = "!!null", "null"
	case types.KindInteger:
		n.Tag = "!!int"
	case types.KindFloat:
		n.Tag = "!!float"
	default:
		n.Tag = "!!str"
	}
	return n
}
