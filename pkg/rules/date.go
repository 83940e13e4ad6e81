// pkg/rules/date.go
package rules

import (
	"strings"
	"time"
)

// DateLayout is the canonical MM/DD/YYYY form dates are reported in.
const DateLayout = "01/02/2006"

// dateLayouts are the shapes a date value is allowed to arrive in.
// The canonical layout comes first so a correct value round-trips.
var dateLayouts = []string{
	DateLayout,
	"2006/01/02",
	"2006-01-02",
	"02-01-2006",
	"01-02-2006",
	"2006.01.02",
	"January 2, 2006",
	"Jan 2, 2006",
}

// ParseDate tries the known layouts in order. A value no layout accepts is
// not a calendar date.
func ParseDate(value string) (time.Time, bool) {
	trimmed := strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}
