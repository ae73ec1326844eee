package gateway

import "strings"

// htmlEscaper replaces the characters that are unsafe in HTML text and
// attribute values, including / and backtick.
var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	`"`, "&quot;",
	"'", "&#x27;",
	"<", "&lt;",
	">", "&gt;",
	"/", "&#x2F;",
	`\`, "&#x5C;",
	"`", "&#96;",
)

func escapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}
