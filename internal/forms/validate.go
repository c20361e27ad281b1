package forms

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// FieldError attributes one validation failure to a field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Result is the outcome of validating a raw payload against a schema.
// When Valid is true, Values holds the typed value for every declared field
// that was present; otherwise Errors lists the first violated constraint per
// failing field, in schema declaration order.
type Result struct {
	Valid  bool
	Values map[string]any
	Errors []FieldError
}

var emailRx = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const (
	msgRequired = "Champ requis"
	msgType     = "Valeur invalide"
)

// Validate checks raw against the schema. It is total (every declared field
// is checked) and pure: raw is never mutated and no I/O happens. Unknown
// fields in raw are ignored.
func Validate(s Schema, raw map[string]any) Result {
	values := make(map[string]any, len(s.Fields))
	var errs []FieldError

	for _, f := range s.Fields {
		v, present := raw[f.Name]
		if msg, typed := checkField(f, v, present); msg != "" {
			errs = append(errs, FieldError{Field: f.Name, Message: msg})
		} else if typed != nil {
			values[f.Name] = typed
		}
	}

	if len(errs) > 0 {
		return Result{Valid: false, Errors: errs}
	}
	return Result{Valid: true, Values: values}
}

// ValidateField checks a single value against the named field's rule and
// returns the violation message, or "" when it passes or the field is not
// declared. A nil value counts as absent.
func ValidateField(s Schema, name string, v any) string {
	for _, f := range s.Fields {
		if f.Name == name {
			msg, _ := checkField(f, v, v != nil)
			return msg
		}
	}
	return ""
}

// checkField returns the first violated constraint's message, or the typed
// value when the field passes. A nil typed value with an empty message means
// an absent optional field.
func checkField(f Field, v any, present bool) (msg string, typed any) {
	if !present || v == nil {
		if f.Optional {
			return "", nil
		}
		return orDefault(f.Messages.Required, msgRequired), nil
	}

	switch f.Type {
	case Text:
		return checkText(f, v)
	case Email:
		return checkEmail(f, v)
	case Enum:
		return checkEnum(f, v)
	case Bool:
		return checkBool(f, v)
	case TextList:
		return checkTextList(f, v)
	}
	return msgType, nil
}

func checkText(f Field, v any) (string, any) {
	s, ok := v.(string)
	if !ok {
		return orDefault(f.Messages.Type, msgType), nil
	}
	// Length is measured post-trim so whitespace-only input cannot satisfy a
	// minimum; the stored value stays as typed, sanitization trims later.
	n := utf8.RuneCountInString(strings.TrimSpace(s))
	if f.Min > 0 && n < f.Min {
		return orDefault(f.Messages.Min, fmt.Sprintf("Doit contenir au moins %d caractères", f.Min)), nil
	}
	if f.Max > 0 && n > f.Max {
		return orDefault(f.Messages.Max, fmt.Sprintf("Doit contenir au plus %d caractères", f.Max)), nil
	}
	return "", s
}

func checkEmail(f Field, v any) (string, any) {
	s, ok := v.(string)
	if !ok {
		return orDefault(f.Messages.Type, msgType), nil
	}
	addr := strings.ToLower(strings.TrimSpace(s))
	if !emailRx.MatchString(addr) {
		return orDefault(f.Messages.Format, "Adresse email invalide"), nil
	}
	return "", addr
}

func checkEnum(f Field, v any) (string, any) {
	s, ok := v.(string)
	if !ok {
		return orDefault(f.Messages.Type, msgType), nil
	}
	for _, allowed := range f.Values {
		if s == allowed {
			return "", s
		}
	}
	return orDefault(f.Messages.Values, msgType), nil
}

func checkBool(f Field, v any) (string, any) {
	b, ok := v.(bool)
	if !ok {
		return orDefault(f.Messages.Type, msgType), nil
	}
	// Consent fields treat false the same as absent: a hard failure.
	if f.MustBeTrue && !b {
		return orDefault(f.Messages.Required, msgRequired), nil
	}
	return "", b
}

func checkTextList(f Field, v any) (string, any) {
	var items []string
	switch list := v.(type) {
	case []string:
		items = append(items, list...)
	case []any:
		for _, it := range list {
			s, ok := it.(string)
			if !ok {
				return orDefault(f.Messages.Type, msgType), nil
			}
			items = append(items, s)
		}
	default:
		return orDefault(f.Messages.Type, msgType), nil
	}
	if len(items) < f.Min {
		return orDefault(f.Messages.Min, msgRequired), nil
	}
	return "", items
}

func orDefault(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}
