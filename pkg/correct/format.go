// pkg/correct/format.go
package correct

import (
	"fmt"
	"strings"

	"github.com/care-data/facility-audit/pkg/rules"
)

// digits strips everything but ASCII digits from a value.
func digits(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormatPhone renders a 10-digit phone number as (XXX) XXX-XXXX. The
// digits themselves are never changed; a value without exactly 10 digits
// cannot be formatted.
func FormatPhone(value string) (string, bool) {
	d := digits(value)
	if len(d) != 10 {
		return "", false
	}
	return fmt.Sprintf("(%s) %s-%s", d[0:3], d[3:6], d[6:10]), true
}

// FormatDate reformats a recognizable date to MM/DD/YYYY without changing
// the date itself.
func FormatDate(value string) (string, bool) {
	parsed, ok := rules.ParseDate(value)
	if !ok {
		return "", false
	}
	return parsed.Format(rules.DateLayout), true
}

// FormatZIP normalizes a ZIP value to its 5-digit form. Nine-digit ZIPs
// keep their first five; anything else is unformattable.
func FormatZIP(value string) (string, bool) {
	d := digits(value)
	if len(d) != 5 && len(d) != 9 {
		return "", false
	}
	return d[:5], true
}

// SamePhoneDigits reports whether two phone values carry the same digits,
// ignoring formatting.
func SamePhoneDigits(a, b string) bool {
	return digits(a) != "" && digits(a) == digits(b)
}

// SameDate reports whether two values name the same calendar date. Either
// value failing to parse counts as a mismatch.
func SameDate(a, b string) bool {
	da, okA := rules.ParseDate(a)
	db, okB := rules.ParseDate(b)
	return okA && okB && da.Equal(db)
}
