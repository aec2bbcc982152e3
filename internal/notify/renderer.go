package notify

import (
	"fmt"
	"regexp"
)

var placeholderPattern = regexp.MustCompile(`\{\{([a-zA-Z0-9_]+)\}\}`)

// Renderer substitutes {{placeholder}} tokens in template text.
type Renderer interface {
	Render(text string, data map[string]interface{}) string
}

// TokenRenderer is the default renderer. Placeholders with no matching
// data key are passed through verbatim so a missing value is visible in
// the delivered text instead of silently vanishing.
type TokenRenderer struct{}

// Render substitutes every resolvable placeholder in text.
func (TokenRenderer) Render(text string, data map[string]interface{}) string {
	return placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		key := placeholderPattern.FindStringSubmatch(match)[1]
		value, ok := data[key]
		if !ok {
			return match
		}
		return fmt.Sprintf("%v", value)
	})
}
