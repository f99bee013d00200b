package cart

import "strings"

// NormalizeToken quita el sufijo de query string (?key=...) que algunos clientes agregan
// al cart token y los espacios alrededor.
func NormalizeToken(token string) string {
	t := strings.TrimSpace(token)
	if i := strings.IndexByte(t, '?'); i >= 0 {
		t = t[:i]
	}
	return t
}
