package forms

import "strings"

var angleBrackets = strings.NewReplacer("<", "", ">", "")

// Sanitize strips literal < and > and trims surrounding whitespace. It runs
// after validation so length and format errors always reflect what the user
// actually typed. Idempotent.
func Sanitize(s string) string {
	return strings.TrimSpace(angleBrackets.Replace(s))
}

// SanitizeValues applies Sanitize to every free-text value produced by
// Validate. Enum and boolean values are schema-bound already and pass
// through untouched; email values were normalized during validation but are
// sanitized again so the output never carries markup characters.
func SanitizeValues(s Schema, values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for _, f := range s.Fields {
		v, ok := values[f.Name]
		if !ok {
			continue
		}
		switch f.Type {
		case Text, Email:
			if str, ok := v.(string); ok {
				out[f.Name] = Sanitize(str)
				continue
			}
		case TextList:
			if list, ok := v.([]string); ok {
				cleaned := make([]string, len(list))
				for i, it := range list {
					cleaned[i] = Sanitize(it)
				}
				out[f.Name] = cleaned
				continue
			}
		}
		out[f.Name] = v
	}
	return out
}
