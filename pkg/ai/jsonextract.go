package ai

import (
	"errors"
	"strings"
)

// ErrNoJSONObject indicates no balanced JSON object could be located in the
// model output.
var ErrNoJSONObject = errors.New("no json object found in model output")

// ExtractJSONObject recovers the first balanced top-level JSON object from
// untrusted model text. The scanner tracks quote and escape state so braces
// inside string values do not terminate the object early, and raw control
// characters inside strings are escaped, since small local models routinely
// emit literal newlines mid-string.
func ExtractJSONObject(text string) (string, error) {
	text = stripCodeFences(text)

	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", ErrNoJSONObject
	}

	var (
		builder  strings.Builder
		inString bool
		escape   bool
		depth    int
	)

	for _, r := range text[start:] {
		if escape {
			builder.WriteRune(r)
			escape = false
			continue
		}

		switch {
		case r == '\\' && inString:
			builder.WriteRune(r)
			escape = true
			continue
		case r == '"':
			builder.WriteRune(r)
			inString = !inString
			continue
		case inString && (r == '\n' || r == '\r' || r == '\t'):
			switch r {
			case '\n':
				builder.WriteString(`\n`)
			case '\r':
				builder.WriteString(`\r`)
			case '\t':
				builder.WriteString(`\t`)
			}
			continue
		}

		builder.WriteRune(r)

		if inString {
			continue
		}

		switch r {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return builder.String(), nil
			}
		}
	}

	return "", ErrNoJSONObject
}

func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimPrefix(text, "json")
		text = strings.TrimPrefix(text, "JSON")
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
