package schema

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/eventflow-io/eventflow/internal/cleaning"
)

// Timestamp layouts accepted for OCCURRED_AT, tried in order. Producers emit
// RFC3339 variants; cleaned CSV round-trips use the staged layout.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Mapper maps cleaned batches onto the destination schema.
//
// The mapper never fails per row: coercion failures substitute the column's
// documented default, preserving the input/output row count equality that
// downstream row-count auditing depends on. An entirely-absent source column
// is defaulted for every row and logged once; it is deliberately not an error,
// matching the observed leniency toward upstream schema drift.
type Mapper struct {
	columns []columnSpec
	logger  *slog.Logger
}

// NewMapper creates a Mapper from the embedded column spec.
// Pass nil to use slog.Default().
func NewMapper(logger *slog.Logger) (*Mapper, error) {
	if logger == nil {
		logger = slog.Default()
	}

	columns, err := loadColumnSpec()
	if err != nil {
		return nil, err
	}

	return &Mapper{
		columns: columns,
		logger:  logger,
	}, nil
}

// ColumnNames returns the destination column names in fixed order.
func (m *Mapper) ColumnNames() []string {
	names := make([]string, len(m.columns))
	for i, column := range m.columns {
		names[i] = column.Name
	}

	return names
}

// MapBatch maps every cleaned record to exactly one TargetRow. The returned
// slice always has the same length as the input.
func (m *Mapper) MapBatch(records []cleaning.Record) []TargetRow {
	for _, column := range m.columns {
		if !columnPresent(records, column) {
			m.logger.Warn("source column absent from batch, filling default",
				slog.String("column", column.Name),
				slog.String("source", column.Source),
			)
		}
	}

	rows := make([]TargetRow, len(records))
	for i, record := range records {
		rows[i] = m.mapRecord(record)
	}

	return rows
}

func (m *Mapper) mapRecord(record cleaning.Record) TargetRow {
	row := TargetRow{
		Props:   emptyObject,
		Request: emptyObject,
	}

	for _, column := range m.columns {
		value, ok := sourceValue(record, column)

		switch column.Coerce {
		case coerceString:
			if !ok {
				break
			}

			if s := coerceToString(value); s != nil {
				setStringColumn(&row, column.Name, s)
			}
		case coerceObject:
			setObjectColumn(&row, column.Name, coerceToObject(value, ok))
		case coerceTimestamp:
			if !ok {
				break
			}

			row.OccurredAt = coerceToTimestamp(value)
		}
	}

	return row
}

// sourceValue finds a record field by the column's source name (then its
// fallback), matching case-insensitively. Empty-string cells count as absent:
// they are how the cleaned CSV encodes missing fields.
func sourceValue(record cleaning.Record, column columnSpec) (any, bool) {
	for _, field := range []string{column.Source, column.Fallback} {
		if field == "" {
			continue
		}

		for key, value := range record {
			if !strings.EqualFold(key, field) {
				continue
			}

			if s, isString := value.(string); isString && s == "" {
				continue
			}

			if value == nil {
				continue
			}

			return value, true
		}
	}

	return nil, false
}

func columnPresent(records []cleaning.Record, column columnSpec) bool {
	for _, record := range records {
		for key := range record {
			if strings.EqualFold(key, column.Source) {
				return true
			}

			if column.Fallback != "" && strings.EqualFold(key, column.Fallback) {
				return true
			}
		}
	}

	return false
}

func coerceToString(value any) *string {
	var s string

	switch v := value.(type) {
	case string:
		s = v
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(v)
	case map[string]any, []any:
		data, err := json.Marshal(v)
		if err != nil {
			return nil
		}

		s = string(data)
	default:
		return nil
	}

	return &s
}

// coerceToObject renders the value as JSON object text. Structured values are
// serialized; strings are parsed JSON-first then as a permissive literal; on
// failure, and for anything that is not a mapping, the empty object stands in.
func coerceToObject(value any, present bool) string {
	if !present {
		return emptyObject
	}

	switch v := value.(type) {
	case map[string]any:
		data, err := json.Marshal(v)
		if err != nil {
			return emptyObject
		}

		return string(data)
	case string:
		var obj map[string]any
		if err := json.Unmarshal([]byte(v), &obj); err == nil && obj != nil {
			return mustMarshalObject(obj)
		}

		obj, err := cleaning.ParseLiteralObject(v)
		if err != nil {
			return emptyObject
		}

		return mustMarshalObject(obj)
	default:
		return emptyObject
	}
}

func coerceToTimestamp(value any) *time.Time {
	switch v := value.(type) {
	case time.Time:
		return &v
	case string:
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return &t
			}
		}

		return nil
	default:
		return nil
	}
}

func mustMarshalObject(obj map[string]any) string {
	data, err := json.Marshal(obj)
	if err != nil {
		return emptyObject
	}

	return string(data)
}

func setStringColumn(row *TargetRow, name string, value *string) {
	switch name {
	case "USER_ID":
		row.UserID = value
	case "EVENT_TYPE":
		row.EventType = value
	case "DESCRIPTION":
		row.Description = value
	case "ENTITY_TYPE":
		row.EntityType = value
	case "ENTITY_ID":
		row.EntityID = value
	case "SESSION_ID":
		row.SessionID = value
	}
}

func setObjectColumn(row *TargetRow, name, value string) {
	switch name {
	case "PROPS":
		row.Props = value
	case "REQUEST":
		row.Request = value
	}
}
