package codec

// jsonarray.go implements the JSON-array codec.
//
// The accepted document root is either a bare array of flat objects or
// this codec's own export envelope {"metadata": ..., "data": [...]}. Any
// other root fails fast, before any row is processed. Header order on
// decode is the first-seen key order across elements.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

type jsonCodec struct{}

func (c *jsonCodec) Decode(r io.Reader) (*Table, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if errors.Is(err, io.EOF) {
		return &Table{}, nil // empty input: zero rows
	}
	if err != nil {
		return nil, fmt.Errorf("parse JSON: %w", err)
	}

	switch t := tok.(type) {
	case json.Delim:
		if t == '[' {
			return c.decodeArray(dec)
		}
		if t == '{' {
			return c.decodeEnvelope(dec)
		}
	}
	return nil, fmt.Errorf("JSON root must be an array of objects")
}

// decodeEnvelope skips through an export envelope to its "data" array.
func (c *jsonCodec) decodeEnvelope(dec *json.Decoder) (*Table, error) {
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parse JSON: %w", err)
		}
		key, _ := keyTok.(string)

		if key == "data" {
			open, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("parse JSON: %w", err)
			}
			if d, ok := open.(json.Delim); !ok || d != '[' {
				return nil, fmt.Errorf(`JSON "data" must be an array of objects`)
			}
			return c.decodeArray(dec)
		}

		// Skip the value of any other key.
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, fmt.Errorf("parse JSON: %w", err)
		}
	}
	return nil, fmt.Errorf(`JSON root must be an array of objects (or an envelope with a "data" array)`)
}

// decodeArray consumes array elements after the opening bracket.
func (c *jsonCodec) decodeArray(dec *json.Decoder) (*Table, error) {
	table := &Table{}
	seen := make(map[string]int)
	rowIdx := 0

	for dec.More() {
		rowIdx++
		open, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parse JSON: %w", err)
		}
		if d, ok := open.(json.Delim); !ok || d != '{' {
			return nil, fmt.Errorf("JSON array element %d is not an object", rowIdx)
		}

		cells := make(map[string]string)
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("parse JSON: %w", err)
			}
			key := keyTok.(string)
			if _, ok := seen[key]; !ok {
				seen[key] = len(table.Headers)
				table.Headers = append(table.Headers, key)
			}

			val, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("parse JSON: %w", err)
			}
			s, err := scalarString(val, rowIdx, key)
			if err != nil {
				return nil, err
			}
			cells[key] = s
		}
		if _, err := dec.Token(); err != nil { // closing '}'
			return nil, fmt.Errorf("parse JSON: %w", err)
		}

		row := make([]string, len(table.Headers))
		for k, v := range cells {
			row[seen[k]] = v
		}
		table.Rows = append(table.Rows, row)
	}

	// Earlier rows may be narrower than the final header set.
	for i, row := range table.Rows {
		for len(row) < len(table.Headers) {
			row = append(row, "")
		}
		table.Rows[i] = row
	}

	return table, nil
}

// scalarString renders a decoded JSON scalar as a display string.
// Nested arrays/objects are rejected: rows must be flat.
func scalarString(tok json.Token, row int, key string) (string, error) {
	switch v := tok.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case bool:
		if v {
			return "true", nil
		}
		return "false", nil
	case json.Number:
		return v.String(), nil
	default:
		return "", fmt.Errorf("row %d: field %q is not a flat scalar value", row, key)
	}
}

func (c *jsonCodec) Encode(w io.Writer, table *Table, meta *Metadata) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	rows := make([]map[string]string, len(table.Rows))
	for i, row := range table.Rows {
		obj := make(map[string]string, len(table.Headers))
		for j, h := range table.Headers {
			if j < len(row) {
				obj[h] = row[j]
			} else {
				obj[h] = ""
			}
		}
		rows[i] = obj
	}

	if meta == nil {
		return enc.Encode(rows)
	}

	doc := map[string]any{
		"metadata": map[string]any{
			"exportedAt":  meta.ExportedAt.Format("2006-01-02T15:04:05Z07:00"),
			"recordCount": meta.RecordCount,
			"fields":      meta.Fields,
		},
		"data": rows,
	}
	if meta.Statistics != nil {
		stats := make([]map[string]string, len(meta.Statistics.Rows))
		for i, row := range meta.Statistics.Rows {
			obj := make(map[string]string, len(meta.Statistics.Headers))
			for j, h := range meta.Statistics.Headers {
				if j < len(row) {
					obj[h] = row[j]
				}
			}
			stats[i] = obj
		}
		doc["metadata"].(map[string]any)["statistics"] = stats
	}
	return enc.Encode(doc)
}
