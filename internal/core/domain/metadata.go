package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Metadata keys written for every indexed chunk.
const (
	MetaDocumentID = "documentId"
	MetaChunkIndex = "chunkIndex"
	MetaFilename   = "filename"
	MetaFileType   = "fileType"
)

type MetadataKind uint8

const (
	MetadataNull MetadataKind = iota
	MetadataString
	MetadataNumber
	MetadataBool
)

func (k MetadataKind) String() string {
	switch k {
	case MetadataString:
		return "string"
	case MetadataNumber:
		return "number"
	case MetadataBool:
		return "bool"
	default:
		return "null"
	}
}

// MetadataValue is a scalar that may cross the chunk/index boundary. Structured
// values must be turned into strings with SerializedValue first.
type MetadataValue struct {
	kind MetadataKind
	str  string
	num  float64
	flag bool
}

func StringValue(s string) MetadataValue  { return MetadataValue{kind: MetadataString, str: s} }
func NumberValue(n float64) MetadataValue { return MetadataValue{kind: MetadataNumber, num: n} }
func IntValue(n int) MetadataValue        { return NumberValue(float64(n)) }
func BoolValue(b bool) MetadataValue      { return MetadataValue{kind: MetadataBool, flag: b} }
func NullValue() MetadataValue            { return MetadataValue{} }

func (v MetadataValue) Kind() MetadataKind { return v.kind }
func (v MetadataValue) IsNull() bool       { return v.kind == MetadataNull }

func (v MetadataValue) AsString() (string, bool) {
	return v.str, v.kind == MetadataString
}

func (v MetadataValue) AsNumber() (float64, bool) {
	return v.num, v.kind == MetadataNumber
}

func (v MetadataValue) AsBool() (bool, bool) {
	return v.flag, v.kind == MetadataBool
}

// Any returns the value as a plain Go scalar suitable for JSON payloads.
func (v MetadataValue) Any() any {
	switch v.kind {
	case MetadataString:
		return v.str
	case MetadataNumber:
		return v.num
	case MetadataBool:
		return v.flag
	default:
		return nil
	}
}

func (v MetadataValue) String() string {
	switch v.kind {
	case MetadataString:
		return v.str
	case MetadataNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case MetadataBool:
		return strconv.FormatBool(v.flag)
	default:
		return ""
	}
}

func (v MetadataValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Any())
}

func (v *MetadataValue) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ScalarOf(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ScalarOf converts a Go value into a MetadataValue and rejects anything that is
// not a primitive scalar.
func ScalarOf(raw any) (MetadataValue, error) {
	switch t := raw.(type) {
	case nil:
		return NullValue(), nil
	case MetadataValue:
		return t, nil
	case string:
		return StringValue(t), nil
	case bool:
		return BoolValue(t), nil
	case int:
		return IntValue(t), nil
	case int32:
		return NumberValue(float64(t)), nil
	case int64:
		return NumberValue(float64(t)), nil
	case uint:
		return NumberValue(float64(t)), nil
	case uint32:
		return NumberValue(float64(t)), nil
	case uint64:
		return NumberValue(float64(t)), nil
	case float32:
		return checkedNumber(float64(t))
	case float64:
		return checkedNumber(t)
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return MetadataValue{}, WrapError(ErrInvalidInput, "metadata scalar", err)
		}
		return checkedNumber(n)
	default:
		return MetadataValue{}, WrapError(
			ErrInvalidInput,
			"metadata scalar",
			fmt.Errorf("non-scalar value of type %T must be serialized to a string", raw),
		)
	}
}

// SerializedValue encodes a structured value as a JSON string value.
func SerializedValue(raw any) (MetadataValue, error) {
	encoded, err := json.Marshal(raw)
	if err != nil {
		return MetadataValue{}, WrapError(ErrInvalidInput, "serialize metadata value", err)
	}
	return StringValue(string(encoded)), nil
}

func checkedNumber(n float64) (MetadataValue, error) {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return MetadataValue{}, WrapError(ErrInvalidInput, "metadata scalar", fmt.Errorf("number %v is not finite", n))
	}
	return NumberValue(n), nil
}

// Metadata is the flattened scalar bag attached to an indexed chunk.
type Metadata map[string]MetadataValue

// MetadataFromMap validates an untyped map at the index boundary.
func MetadataFromMap(raw map[string]any) (Metadata, error) {
	out := make(Metadata, len(raw))
	for key, value := range raw {
		scalar, err := ScalarOf(value)
		if err != nil {
			return nil, fmt.Errorf("metadata key %q: %w", key, err)
		}
		out[key] = scalar
	}
	return out, nil
}

func (m Metadata) Map() map[string]any {
	out := make(map[string]any, len(m))
	for key, value := range m {
		out[key] = value.Any()
	}
	return out
}

func (m Metadata) String(key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	return v.String()
}

func (m Metadata) Int(key string) (int, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	switch v.kind {
	case MetadataNumber:
		return int(v.num), true
	case MetadataString:
		n, err := strconv.Atoi(v.str)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
