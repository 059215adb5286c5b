package record

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// fold brings user input and stored values to one comparable form:
// NFKC, trimmed, case folded. A Caser holds state, so each call gets its own.
func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(norm.NFKC.String(s)))
}
