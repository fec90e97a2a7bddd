package schema

import (
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Coercion kinds a column spec may declare.
const (
	coerceString    = "string"
	coerceObject    = "object"
	coerceTimestamp = "timestamp"
)

// Sentinel errors for column spec loading.
var (
	// ErrEmptyColumnSpec is returned when the embedded spec declares no columns.
	ErrEmptyColumnSpec = errors.New("column spec declares no columns")

	// ErrBadCoercion is returned for an unknown coercion kind in the spec.
	ErrBadCoercion = errors.New("unknown coercion kind")
)

//go:embed columns.yaml
var embeddedColumnSpec []byte

type (
	// columnSpec declares how one destination column is populated: which
	// source field feeds it (case-insensitive), an optional fallback field,
	// and the coercion applied to the value.
	columnSpec struct {
		Name     string `yaml:"name"`
		Source   string `yaml:"source"`
		Fallback string `yaml:"fallback"`
		Coerce   string `yaml:"coerce"`
	}

	specFile struct {
		Columns []columnSpec `yaml:"columns"`
	}
)

// loadColumnSpec parses the embedded column spec. The file order is the fixed
// output column order.
func loadColumnSpec() ([]columnSpec, error) {
	var file specFile
	if err := yaml.Unmarshal(embeddedColumnSpec, &file); err != nil {
		return nil, fmt.Errorf("parsing embedded column spec: %w", err)
	}

	if len(file.Columns) == 0 {
		return nil, ErrEmptyColumnSpec
	}

	for _, column := range file.Columns {
		switch column.Coerce {
		case coerceString, coerceObject, coerceTimestamp:
		default:
			return nil, fmt.Errorf("%w: %q for column %s", ErrBadCoercion, column.Coerce, column.Name)
		}
	}

	return file.Columns, nil
}
