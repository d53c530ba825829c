// internal/form/normalize.go
//
// Leadgate – Forms subsystem: value normalisation.
//
// Context
//   Submissions arrive as decoded JSON, so a field may hold a string, a
//   bool, a json.Number, nil, or a nested value.  Every normaliser first
//   coerces the raw value to text (toText) and then applies its own rules.
//   Each function is idempotent: feeding its output back in returns the
//   same string.
//
//------------------------------------------------------------------------------

package form

import (
	"encoding/json"
	"strconv"
	"strings"
	"unicode/utf8"
)

// toText coerces a decoded JSON value to a string.  Nested objects and arrays
// are rendered as compact JSON so they never panic and rarely validate.
func toText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// NormalizeText replaces control characters with spaces, collapses runs of
// whitespace to a single space, and trims both ends.
func NormalizeText(v any) string {
	s := strings.Map(func(r rune) rune {
		if r <= 0x1f || r == 0x7f {
			return ' '
		}
		return r
	}, toText(v))
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeEmail trims and lowercases.  It does not validate the format.
func NormalizeEmail(v any) string {
	return strings.ToLower(NormalizeText(v))
}

// NormalizePhone keeps digits, '+', '-', '(', ')', and spaces, then renders
// the number in international "+digits" form.  A local 11-digit number with
// the "8" trunk prefix becomes "+7…".  Numbers already written with a leading
// '+' keep their country code, which keeps the function idempotent.
func NormalizePhone(v any) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '+', r == '-', r == '(', r == ')', r == ' ':
			return r
		default:
			return -1
		}
	}, NormalizeText(v))
	if cleaned == "" {
		return ""
	}

	digits := onlyDigits(cleaned)
	if !strings.HasPrefix(cleaned, "+") && len(digits) == 11 && digits[0] == '8' {
		return "+7" + digits[1:]
	}
	return "+" + digits
}

func normalizeIntent(v any) (Intent, bool) {
	s := NormalizeText(v)
	for _, in := range Intents {
		if string(in) == s {
			return in, true
		}
	}
	return "", false
}

// normalizePrivacy accepts only the checkbox encodings a browser or our own
// client can produce.
func normalizePrivacy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "true" || t == "on" || t == "1"
	default:
		return false
	}
}

func onlyDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// meaningfulChars counts Latin letters, Cyrillic letters (А-Я, а-я, Ё, ё),
// and ASCII digits.
func meaningfulChars(s string) int {
	n := 0
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			n++
		case r >= 'А' && r <= 'я', r == 'Ё', r == 'ё':
			n++
		}
	}
	return n
}

func length(s string) int { return utf8.RuneCountInString(s) }
