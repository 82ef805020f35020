package converter

import (
	"strings"
	"unicode"

	"github.com/a3tai/mcp-esign-templates/internal/esign"
)

// Underscore converts a camelCase or PascalCase key to snake_case.
// Acronyms stay together: "HTMLParser" becomes "html_parser" and
// "documentBase64" becomes "document_base64".
func Underscore(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 4)

	for i, r := range runes {
		if r == '-' {
			b.WriteByte('_')
			continue
		}
		if unicode.IsUpper(r) && i > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			switch {
			case unicode.IsLower(prev) || unicode.IsDigit(prev):
				b.WriteByte('_')
			case unicode.IsUpper(prev) && nextLower:
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// Camelize converts a snake_case key to lower camelCase
func Camelize(s string) string {
	parts := strings.Split(s, "_")
	var b strings.Builder
	b.Grow(len(s))

	first := true
	for _, p := range parts {
		if p == "" {
			continue
		}
		if first {
			b.WriteString(p)
			first = false
			continue
		}
		runes := []rune(p)
		runes[0] = unicode.ToUpper(runes[0])
		b.WriteString(string(runes))
	}
	return b.String()
}

// UnderscoreKeys returns a deep copy of a with every key underscored
func UnderscoreKeys(a *esign.Attrs) *esign.Attrs {
	return a.RenameKeys(Underscore)
}

// CamelizeKeys returns a deep copy of a with every key camelized
func CamelizeKeys(a *esign.Attrs) *esign.Attrs {
	return a.RenameKeys(Camelize)
}
