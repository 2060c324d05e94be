package contextbuilder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Recognized field keys. Their order here is the render order.
const (
	KeyBusinessName   = "business_name"
	KeyDescription    = "description"
	KeyTargetAudience = "target_audience"
	KeyFeatures       = "features"
	KeyPricing        = "pricing"
	KeySupport        = "support"
	KeyContact        = "contact"
)

// KnownKeys lists the recognized keys in priority order.
var KnownKeys = []string{
	KeyBusinessName,
	KeyDescription,
	KeyTargetAudience,
	KeyFeatures,
	KeyPricing,
	KeySupport,
	KeyContact,
}

// Extension is an open-ended field the model emitted outside the known set.
type Extension struct {
	Key   string
	Value string
}

// Fields is the structured business profile collected during an interview.
// The seven known fields are typed; anything else lives in Extensions, in
// the order it was first seen.
type Fields struct {
	BusinessName   string
	Description    string
	TargetAudience string
	Features       string
	Pricing        string
	Support        string
	Contact        string

	Extensions []Extension
}

// NormalizeKey lowercases a key and folds spaces and dashes into underscores.
func NormalizeKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	return key
}

func isKnownKey(key string) bool {
	for _, k := range KnownKeys {
		if k == key {
			return true
		}
	}
	return false
}

func (f *Fields) knownSlot(key string) *string {
	switch key {
	case KeyBusinessName:
		return &f.BusinessName
	case KeyDescription:
		return &f.Description
	case KeyTargetAudience:
		return &f.TargetAudience
	case KeyFeatures:
		return &f.Features
	case KeyPricing:
		return &f.Pricing
	case KeySupport:
		return &f.Support
	case KeyContact:
		return &f.Contact
	}
	return nil
}

// Get returns the value stored under key and whether it is non-empty.
func (f Fields) Get(key string) (string, bool) {
	key = NormalizeKey(key)
	if slot := f.knownSlot(key); slot != nil {
		return *slot, *slot != ""
	}
	for _, ext := range f.Extensions {
		if ext.Key == key {
			return ext.Value, ext.Value != ""
		}
	}
	return "", false
}

// Set writes value under key. An existing extension keeps its position.
func (f *Fields) Set(key, value string) {
	key = NormalizeKey(key)
	if key == "" {
		return
	}
	if slot := f.knownSlot(key); slot != nil {
		*slot = value
		return
	}
	for i := range f.Extensions {
		if f.Extensions[i].Key == key {
			f.Extensions[i].Value = value
			return
		}
	}
	f.Extensions = append(f.Extensions, Extension{Key: key, Value: value})
}

// IsEmpty reports whether no field carries a value.
func (f Fields) IsEmpty() bool {
	for _, p := range f.Pairs() {
		if p.Value != "" {
			return false
		}
	}
	return true
}

// Pairs returns every present key/value: known keys in priority order first,
// then extensions in insertion order.
func (f Fields) Pairs() []Extension {
	pairs := make([]Extension, 0, len(KnownKeys)+len(f.Extensions))
	for _, key := range KnownKeys {
		if v := *f.knownSlot(key); v != "" {
			pairs = append(pairs, Extension{Key: key, Value: v})
		}
	}
	for _, ext := range f.Extensions {
		pairs = append(pairs, ext)
	}
	return pairs
}

// Clone returns a deep copy.
func (f Fields) Clone() Fields {
	out := f
	if f.Extensions != nil {
		out.Extensions = make([]Extension, len(f.Extensions))
		copy(out.Extensions, f.Extensions)
	}
	return out
}

// Merge applies updates on top of f, last write wins per key. Keys absent
// from updates, or present with a blank value, leave f untouched.
func (f Fields) Merge(updates Fields) Fields {
	merged := f.Clone()
	for _, p := range updates.Pairs() {
		if strings.TrimSpace(p.Value) == "" {
			continue
		}
		merged.Set(p.Key, strings.TrimSpace(p.Value))
	}
	return merged
}

// FieldsFromPairs builds Fields from ordered key/value pairs.
func FieldsFromPairs(pairs []Extension) Fields {
	var f Fields
	for _, p := range pairs {
		f.Set(p.Key, p.Value)
	}
	return f
}

// MarshalJSON encodes Fields as a flat object, preserving render order.
func (f Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range f.Pairs() {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(p.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(p.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a flat object, keeping the order keys appear in.
// Non-string scalar values are kept as their JSON text; nested values are
// re-encoded compactly.
func (f *Fields) UnmarshalJSON(data []byte) error {
	pairs, err := decodeOrderedObject(data)
	if err != nil {
		return err
	}
	*f = FieldsFromPairs(pairs)
	return nil
}

func decodeOrderedObject(data []byte) ([]Extension, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return nil, nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("fields: expected object, got %v", tok)
	}

	var pairs []Extension
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("fields: invalid key %v", keyTok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		pairs = append(pairs, Extension{Key: key, Value: rawToString(raw)})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return pairs, nil
}

func rawToString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	trimmed := bytes.TrimSpace(raw)
	if bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	var list []interface{}
	if err := json.Unmarshal(trimmed, &list); err == nil {
		parts := make([]string, 0, len(list))
		for _, item := range list {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ", ")
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, trimmed); err == nil {
		return compact.String()
	}
	return string(trimmed)
}
