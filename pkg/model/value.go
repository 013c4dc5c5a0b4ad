package model

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/tidwall/pretty"
)

type Kind int

const (
	KindNull Kind = iota
	KindText
	KindNumber
	KindBool
	// KindObject is a one-level mapping of sub-field names to scalar values.
	KindObject
	// KindRaw holds compact JSON for shapes a report does not model: arrays
	// anywhere, and objects nested below the first level.
	KindRaw
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindObject:
		return "object"
	case KindRaw:
		return "raw"
	default:
		return "unknown"
	}
}

// Value is a report field value. The zero Value is null.
type Value struct {
	kind    Kind
	text    string
	number  float64
	boolean bool
	fields  []Field
}

type Field struct {
	Name  string
	Value Value
}

func Text(s string) Value {
	return Value{kind: KindText, text: s}
}

func Number(f float64) Value {
	return Value{kind: KindNumber, number: f}
}

func Bool(b bool) Value {
	return Value{kind: KindBool, boolean: b}
}

func Null() Value {
	return Value{kind: KindNull}
}

// Object builds a nested mapping. Repeated names keep their first position and
// take the last value.
func Object(fields ...Field) Value {
	return Value{kind: KindObject, fields: dedupeFields(fields)}
}

// Raw wraps a JSON fragment, stored compacted.
func Raw(jsonText string) Value {
	return Value{kind: KindRaw, text: string(pretty.Ugly([]byte(jsonText)))}
}

func F(name string, value Value) Field {
	return Field{Name: name, Value: value}
}

func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) IsObject() bool {
	return v.kind == KindObject
}

func (v Value) Fields() []Field {
	if v.kind != KindObject {
		return nil
	}
	return append([]Field(nil), v.fields...)
}

func (v Value) Text() (string, bool) {
	return v.text, v.kind == KindText
}

func (v Value) Number() (float64, bool) {
	return v.number, v.kind == KindNumber
}

func (v Value) Bool() (bool, bool) {
	return v.boolean, v.kind == KindBool
}

// String renders the value as report text: text verbatim, numbers in shortest
// decimal form, true/false, null, and compact JSON for objects and raw values.
func (v Value) String() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindNumber:
		return formatNumber(v.number)
	case KindBool:
		return strconv.FormatBool(v.boolean)
	case KindObject:
		var buf bytes.Buffer
		writeObject(&buf, v.fields)
		return buf.String()
	case KindRaw:
		return v.text
	default:
		return "null"
	}
}

func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindText, KindRaw:
		return v.text == other.text
	case KindNumber:
		return v.number == other.number
	case KindBool:
		return v.boolean == other.boolean
	case KindObject:
		if len(v.fields) != len(other.fields) {
			return false
		}
		for i := range v.fields {
			if v.fields[i].Name != other.fields[i].Name || !v.fields[i].Value.Equal(other.fields[i].Value) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	writeValue(&buf, v)
	return buf.Bytes(), nil
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func writeValue(buf *bytes.Buffer, v Value) {
	switch v.kind {
	case KindText:
		writeString(buf, v.text)
	case KindNumber:
		buf.WriteString(formatNumber(v.number))
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.boolean))
	case KindObject:
		writeObject(buf, v.fields)
	case KindRaw:
		buf.WriteString(v.text)
	default:
		buf.WriteString("null")
	}
}

func writeObject(buf *bytes.Buffer, fields []Field) {
	buf.WriteByte('{')
	for i, field := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeString(buf, field.Name)
		buf.WriteByte(':')
		writeValue(buf, field.Value)
	}
	buf.WriteByte('}')
}

func writeString(buf *bytes.Buffer, s string) {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	// Encoding a string cannot fail.
	_ = enc.Encode(s)
	// Encode appends a newline.
	buf.Truncate(buf.Len() - 1)
}

func dedupeFields(fields []Field) []Field {
	if len(fields) == 0 {
		return nil
	}

	out := make([]Field, 0, len(fields))
	positions := make(map[string]int, len(fields))
	for _, field := range fields {
		if pos, ok := positions[field.Name]; ok {
			out[pos].Value = field.Value
			continue
		}
		positions[field.Name] = len(out)
		out = append(out, field)
	}
	return out
}
