package cleaning

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrNoColumns is returned when a tabular projection has no columns to emit.
var ErrNoColumns = errors.New("no columns in cleaned batch")

// Columns returns the tabular projection's column set: the union of record
// keys, case-normalized to lowercase for subsequent case-insensitive matching,
// in deterministic sorted order.
func Columns(records []Record) []string {
	seen := make(map[string]struct{})

	for _, record := range records {
		for key := range record {
			seen[strings.ToLower(key)] = struct{}{}
		}
	}

	columns := make([]string, 0, len(seen))
	for column := range seen {
		columns = append(columns, column)
	}

	sort.Strings(columns)

	return columns
}

// EncodeCSV serializes a cleaned batch as the cleaned-artifact format:
// a header row of lowercase column names followed by one row per record.
// Nested objects are serialized as JSON text inside their cell; absent
// fields become empty cells.
func EncodeCSV(records []Record) ([]byte, error) {
	columns := Columns(records)
	if len(columns) == 0 {
		return nil, ErrNoColumns
	}

	var buf bytes.Buffer

	w := csv.NewWriter(&buf)

	if err := w.Write(columns); err != nil {
		return nil, fmt.Errorf("writing CSV header: %w", err)
	}

	for _, record := range records {
		row := make([]string, len(columns))

		for i, column := range columns {
			value, ok := lookupField(record, column)
			if !ok {
				continue
			}

			cell, err := encodeCell(value)
			if err != nil {
				return nil, fmt.Errorf("encoding column %q: %w", column, err)
			}

			row[i] = cell
		}

		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("writing CSV row: %w", err)
		}
	}

	w.Flush()

	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flushing CSV: %w", err)
	}

	return buf.Bytes(), nil
}

// DecodeCSV reads a cleaned artifact back into records. All values come back
// as strings; the schema mapper owns further coercion.
func DecodeCSV(payload []byte) ([]Record, error) {
	r := csv.NewReader(bytes.NewReader(payload))

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading cleaned CSV: %w", err)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty CSV payload", ErrEmptyResult)
	}

	header := rows[0]
	records := make([]Record, 0, len(rows)-1)

	for _, row := range rows[1:] {
		record := make(Record, len(header))

		for i, column := range header {
			if i < len(row) {
				record[column] = row[i]
			}
		}

		records = append(records, record)
	}

	return records, nil
}

// lookupField finds a record value by lowercase column name, matching record
// keys case-insensitively.
func lookupField(record Record, column string) (any, bool) {
	if value, ok := record[column]; ok {
		return value, true
	}

	for key, value := range record {
		if strings.ToLower(key) == column {
			return value, true
		}
	}

	return nil, false
}

func encodeCell(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case map[string]any, []any:
		data, err := json.Marshal(v)
		if err != nil {
			return "", err
		}

		return string(data), nil
	default:
		return fmt.Sprintf("%v", v), nil
	}
}
