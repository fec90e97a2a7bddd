// Package schema maps cleaned records onto the fixed destination row shape.
package schema

import "time"

// timestampLayout is how OCCURRED_AT is rendered in the staged CSV.
const timestampLayout = "2006-01-02 15:04:05"

// emptyObject is the default for absent or unparseable object columns.
const emptyObject = "{}"

// TargetRow is one destination row. Nullable string columns use nil for the
// null marker (an empty staged CSV cell); object columns always hold JSON
// text; a nil OccurredAt loads as NULL.
type TargetRow struct {
	UserID      *string
	EventType   *string
	Description *string
	EntityType  *string
	EntityID    *string
	SessionID   *string
	Props       string
	Request     string
	OccurredAt  *time.Time
}

// Values renders the row as staged CSV cells in fixed column order.
func (r TargetRow) Values() []string {
	return []string{
		nullableString(r.UserID),
		nullableString(r.EventType),
		nullableString(r.Description),
		nullableString(r.EntityType),
		nullableString(r.EntityID),
		nullableString(r.SessionID),
		r.Props,
		r.Request,
		nullableTime(r.OccurredAt),
	}
}

func nullableString(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}

func nullableTime(t *time.Time) string {
	if t == nil {
		return ""
	}

	return t.UTC().Format(timestampLayout)
}
