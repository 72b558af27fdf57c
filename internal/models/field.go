package models

import (
	"bytes"
	"encoding/json"
)

type fieldKind uint8

const (
	fieldAbsent fieldKind = iota
	fieldNumber
	fieldText
	fieldOther // bool, object or array: present but never usable
)

// FieldValue holds a source field that dump1090 may send either as a JSON number or as
// a string (alt_baro is "ground" for aircraft on the ground). JSON null and a missing key
// are both absent.
type FieldValue struct {
	kind   fieldKind
	number float64
	text   string
}

// NumberValue returns a FieldValue holding a number
func NumberValue(f float64) FieldValue {
	return FieldValue{kind: fieldNumber, number: f}
}

// TextValue returns a FieldValue holding a string
func TextValue(s string) FieldValue {
	return FieldValue{kind: fieldText, text: s}
}

// ParseFieldValue classifies a raw JSON value
func ParseFieldValue(raw json.RawMessage) FieldValue {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return FieldValue{}
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return FieldValue{kind: fieldOther}
		}
		return TextValue(s)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return FieldValue{kind: fieldOther}
		}
		return NumberValue(f)
	default:
		return FieldValue{kind: fieldOther}
	}
}

func (v FieldValue) IsAbsent() bool {
	return v.kind == fieldAbsent
}

// Number returns the numeric value if the field holds a JSON number
func (v FieldValue) Number() (float64, bool) {
	return v.number, v.kind == fieldNumber
}

// Text returns the string value if the field holds a JSON string
func (v FieldValue) Text() (string, bool) {
	return v.text, v.kind == fieldText
}

func (v FieldValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case fieldNumber:
		return json.Marshal(v.number)
	case fieldText:
		return json.Marshal(v.text)
	default:
		return []byte("null"), nil
	}
}

func (v *FieldValue) UnmarshalJSON(data []byte) error {
	*v = ParseFieldValue(data)
	return nil
}
