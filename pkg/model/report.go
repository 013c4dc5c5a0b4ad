package model

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/Nephrolytics-ai/pd-report/pkg/utils"
	"github.com/tidwall/gjson"
)

// KnownFields are rendered first, in this order, whatever their position in
// the incoming report.
var KnownFields = []string{
	"officer_full_name_and_badge_number",
	"occurrence_number",
	"occurrence_type",
	"report_time",
	"occurrence_time",
}

func IsKnownField(name string) bool {
	for _, known := range KnownFields {
		if known == name {
			return true
		}
	}
	return false
}

// Report is an ordered mapping of field names to values. Field order is the
// order the backend produced them in.
type Report struct {
	fields []Field
}

func NewReport(fields ...Field) Report {
	return Report{fields: dedupeFields(fields)}
}

// ParseReport decodes a JSON object into a Report, keeping key order. Objects
// nested inside a top-level field and arrays anywhere are kept as raw values.
func ParseReport(data []byte) (Report, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Report{}, utils.WrapIfNotNil(errors.New("report is empty"))
	}
	if !gjson.ValidBytes(trimmed) {
		return Report{}, utils.WrapIfNotNil(errors.New("report is not valid JSON"))
	}

	result := gjson.ParseBytes(trimmed)
	if !result.IsObject() {
		return Report{}, utils.WrapIfNotNil(errors.New("report must be a JSON object"))
	}

	return Report{fields: fieldsFromResult(result, 0)}, nil
}

// ReportFromStruct converts a typed report (CrownBrief, GeneralOccurrence)
// into a Report whose field order follows the struct declaration.
func ReportFromStruct(v any) (Report, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Report{}, utils.WrapIfNotNil(err)
	}
	return ParseReport(data)
}

func fieldsFromResult(result gjson.Result, depth int) []Field {
	fields := make([]Field, 0)
	result.ForEach(func(key, value gjson.Result) bool {
		fields = append(fields, Field{Name: key.String(), Value: valueFromResult(value, depth)})
		return true
	})
	return dedupeFields(fields)
}

func valueFromResult(result gjson.Result, depth int) Value {
	switch result.Type {
	case gjson.String:
		return Text(result.Str)
	case gjson.Number:
		return Number(result.Num)
	case gjson.True:
		return Bool(true)
	case gjson.False:
		return Bool(false)
	case gjson.JSON:
		if result.IsObject() && depth == 0 {
			return Object(fieldsFromResult(result, depth+1)...)
		}
		return Raw(result.Raw)
	default:
		return Null()
	}
}

func (r Report) Len() int {
	return len(r.fields)
}

func (r Report) IsEmpty() bool {
	return len(r.fields) == 0
}

func (r Report) Fields() []Field {
	return append([]Field(nil), r.fields...)
}

func (r Report) Names() []string {
	names := make([]string, 0, len(r.fields))
	for _, field := range r.fields {
		names = append(names, field.Name)
	}
	return names
}

func (r Report) Get(name string) (Value, bool) {
	for _, field := range r.fields {
		if field.Name == name {
			return field.Value, true
		}
	}
	return Value{}, false
}

func (r Report) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

func (r Report) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	writeObject(&buf, r.fields)
	return buf.Bytes(), nil
}

func (r *Report) UnmarshalJSON(data []byte) error {
	parsed, err := ParseReport(data)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
