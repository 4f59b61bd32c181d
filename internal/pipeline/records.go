// internal/pipeline/records.go
package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/config"
	"github.com/AkaashThawani/karyakarta-agent-sub000/pkg/types"
)

// allFields is the field name that targets every content field.
const allFields = "*"

// Transformer applies configured field transforms to extracted records.
// A nil Transformer is usable and passes records through.
type Transformer struct {
	transforms []config.FieldTransform
}

// NewTransformer validates every chain up front and returns a Transformer
// for the given transform chains. Underscore-prefixed fields carry record
// bookkeeping and cannot be targeted.
func NewTransformer(transforms []config.FieldTransform) (*Transformer, error) {
	for i, ft := range transforms {
		if ft.Field == "" {
			return nil, fmt.Errorf("transform %d: field is required", i)
		}
		if strings.HasPrefix(ft.Field, "_") {
			return nil, fmt.Errorf("transform %d: field %s is reserved", i, ft.Field)
		}
		if err := ValidateRules(ft.Rules); err != nil {
			return nil, fmt.Errorf("transform %d (field %s): %w", i, ft.Field, err)
		}
	}
	return &Transformer{transforms: transforms}, nil
}

// Apply runs every configured transform chain over the records and
// returns transformed copies. The input records are not modified. A rule
// failure on any record fails the whole batch; partial output would
// otherwise mix transformed and raw values in one result set.
func (t *Transformer) Apply(records []types.Record) ([]types.Record, error) {
	if t == nil || len(t.transforms) == 0 {
		return records, nil
	}
	out := make([]types.Record, len(records))
	for i := range records {
		rec := records[i].Clone()
		for _, ft := range t.transforms {
			if err := transformRecord(rec, ft); err != nil {
				return nil, fmt.Errorf("record %d: %w", i, err)
			}
		}
		out[i] = *rec
	}
	return out, nil
}

func transformRecord(rec *types.Record, ft config.FieldTransform) error {
	if ft.Field == allFields {
		// FieldNames excludes underscore-prefixed bookkeeping keys.
		names := rec.FieldNames()
		sort.Strings(names)
		for _, name := range names {
			transformed, err := ApplyRules(rec.Fields[name], ft.Rules)
			if err != nil {
				return fmt.Errorf("field %s: %w", name, err)
			}
			rec.Fields[name] = transformed
		}
		return nil
	}

	value, ok := rec.Fields[ft.Field]
	if !ok {
		// Records are heterogeneous; a chain for an absent field is a
		// no-op for that record, not an error.
		return nil
	}
	transformed, err := ApplyRules(value, ft.Rules)
	if err != nil {
		return fmt.Errorf("field %s: %w", ft.Field, err)
	}
	rec.Fields[ft.Field] = transformed
	return nil
}
