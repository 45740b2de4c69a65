package translation

import (
	"context"
	"fmt"

	"codeberg.org/snonux/dsxlate/internal/logger"
	"codeberg.org/snonux/dsxlate/internal/record"
)

// RecordTranslator applies a FieldTranslator to the selected fields of a record
type RecordTranslator struct {
	field  *FieldTranslator
	fields []string
}

// NewRecordTranslator creates a record translator for the given field selector
func NewRecordTranslator(field *FieldTranslator, fields []string) *RecordTranslator {
	selector := make([]string, len(fields))
	copy(selector, fields)
	return &RecordTranslator{field: field, fields: selector}
}

// Fields returns the field selector
func (t *RecordTranslator) Fields() []string {
	fields := make([]string, len(t.fields))
	copy(fields, t.fields)
	return fields
}

// FieldTranslator returns the underlying field translator
func (t *RecordTranslator) FieldTranslator() *FieldTranslator {
	return t.field
}

// TranslateRecord returns a copy of rec with every selected, non-empty field
// translated. Other fields and the key order are left untouched.
func (t *RecordTranslator) TranslateRecord(ctx context.Context, rec *record.Record) (*record.Record, error) {
	out := rec.Clone()

	for _, name := range t.fields {
		if !rec.Truthy(name) {
			continue
		}
		text, _ := rec.Text(name)

		translated, err := t.field.Translate(logger.WithField(ctx, logger.FieldField, name), text)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		out.SetString(name, translated)
	}

	return out, nil
}
