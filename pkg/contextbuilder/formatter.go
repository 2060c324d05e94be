package contextbuilder

import (
	"encoding/json"
	"strings"
	"unicode"
	"unicode/utf8"
)

var fieldLabels = map[string]string{
	KeyBusinessName:   "Business Name",
	KeyDescription:    "Description",
	KeyTargetAudience: "Target Audience",
	KeyFeatures:       "Features",
	KeyPricing:        "Pricing",
	KeySupport:        "Support",
	KeyContact:        "Contact",
}

// Multi-line fields put their value on the line after the label.
var multiLineFields = map[string]bool{
	KeyDescription: true,
	KeyFeatures:    true,
}

// Format renders fields into the canonical context document. It is pure:
// the same Fields always produce the same text.
func Format(f Fields) string {
	var b strings.Builder

	for _, key := range KnownKeys {
		value, ok := f.Get(key)
		if !ok {
			continue
		}
		writeEntry(&b, fieldLabels[key], value, multiLineFields[key])
	}

	for _, ext := range f.Extensions {
		if ext.Value == "" || isKnownKey(ext.Key) {
			continue
		}
		writeEntry(&b, TitleCaseKey(ext.Key), ext.Value, false)
	}

	out := strings.TrimRight(b.String(), " \t\r\n")
	if out != "" {
		return out
	}
	return dumpFields(f)
}

func writeEntry(b *strings.Builder, label, value string, multiLine bool) {
	b.WriteString(label)
	if multiLine {
		b.WriteString(":\n")
	} else {
		b.WriteString(": ")
	}
	b.WriteString(value)
	b.WriteString("\n\n")
}

// TitleCaseKey turns "custom_field" into "Custom Field".
func TitleCaseKey(key string) string {
	words := strings.Fields(strings.ReplaceAll(key, "_", " "))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

func dumpFields(f Fields) string {
	out, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return ""
	}
	return string(out)
}
